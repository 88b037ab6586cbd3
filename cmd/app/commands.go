package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"emrSocket/configs"
	"emrSocket/internal/enums"
	"emrSocket/internal/logger"
	"emrSocket/internal/models"
	"emrSocket/internal/realtime"
	"emrSocket/internal/repositories"
	"emrSocket/internal/services"
	"emrSocket/internal/utils"
)

func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "emr-socket",
		Short:         "Realtime fan-out service for the hospital EMR",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./configs/config.yaml)")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		tokenCmd(&configPath),
		secretCmd(),
		staffCmd(&configPath),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func load(configPath string) (*configs.Config, *logger.Logger, error) {
	config, err := configs.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(config.Viper.GetString("log.mode"))
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return config, log, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, log, err := load(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return NewApp(config, log).LetsGo(ctx)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, log, err := load(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			if _, err := NewApp(config, log).openDB(); err != nil {
				return err
			}
			log.Info("database migrated")
			return nil
		},
	}
}

func tokenCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed session token for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetUint("user")
			hospitalID, _ := cmd.Flags().GetUint("hospital")
			role, _ := cmd.Flags().GetString("role")
			email, _ := cmd.Flags().GetString("email")

			if userID == 0 || hospitalID == 0 {
				return errors.New("--user and --hospital are required")
			}
			if !enums.IsKnownRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}

			config, err := configs.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			authService := services.NewAuthenticationService(nil, TokenOptionsFromConfig(config))
			token, err := authService.IssueToken(realtime.Identity{UserID: userID, HospitalID: hospitalID, Role: role}, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Uint("user", 0, "User ID")
	cmd.Flags().Uint("hospital", 0, "Hospital ID")
	cmd.Flags().String("role", enums.ROLE_DOCTOR, "Role")
	cmd.Flags().String("email", "", "Email claim")
	return cmd
}

func secretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secret",
		Short: "Print a random value suitable for jwt.secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), utils.GenerateSecretKey())
			return nil
		},
	}
}

func staffCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			hospitalID, _ := cmd.Flags().GetUint("hospital")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			firstName, _ := cmd.Flags().GetString("first-name")
			lastName, _ := cmd.Flags().GetString("last-name")

			config, log, err := load(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := NewApp(config, log).openDB()
			if err != nil {
				return err
			}
			authService := services.NewAuthenticationService(repositories.NewStaffRepository(db), TokenOptionsFromConfig(config))
			user, registerErrs := authService.Register(cmd.Context(), &models.StaffUser{
				HospitalID: hospitalID,
				FirstName:  firstName,
				LastName:   lastName,
				Email:      email,
				Role:       role,
			}, password)
			if len(registerErrs) > 0 {
				return errors.Join(registerErrs...)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created staff user %d in hospital %d\n", user.ID, user.HospitalID)
			return nil
		},
	}
	createCmd.Flags().Uint("hospital", 0, "Hospital ID")
	createCmd.Flags().String("email", "", "Login email")
	createCmd.Flags().String("password", "", "Login password (min 8 characters)")
	createCmd.Flags().String("role", enums.ROLE_DOCTOR, "Role")
	createCmd.Flags().String("first-name", "", "First name")
	createCmd.Flags().String("last-name", "", "Last name")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")

	cmd.AddCommand(createCmd)
	return cmd
}
