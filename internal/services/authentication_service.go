package services

import (
	"context"
	"errors"
	"time"

	"emrSocket/internal/enums"
	"emrSocket/internal/errs"
	"emrSocket/internal/models"
	"emrSocket/internal/realtime"
	"emrSocket/internal/repositories"
	"emrSocket/internal/utils"
	"emrSocket/internal/validators"
)

type TokenOptions struct {
	Secret     []byte
	Issuer     string
	Expiration time.Duration
}

type AuthenticationService struct {
	staffRepo *repositories.StaffRepository
	tokens    TokenOptions
	now       func() time.Time
}

func NewAuthenticationService(
	staffRepo *repositories.StaffRepository,
	tokens TokenOptions,
) *AuthenticationService {
	return &AuthenticationService{
		staffRepo: staffRepo,
		tokens:    tokens,
		now:       time.Now,
	}
}

func (as *AuthenticationService) Register(ctx context.Context, user *models.StaffUser, password string) (*models.StaffUser, []error) {
	var errors []error
	if !enums.IsKnownRole(user.Role) {
		errors = append(errors, errs.ErrUnknownRole)
	}
	if user.HospitalID == 0 {
		errors = append(errors, errs.ErrInvalidClaims)
	}
	if !validators.ValidateEmail(user.Email) {
		errors = append(errors, errs.ErrInvalidEmail)
	}
	if len(password) < 8 {
		errors = append(errors, errs.ErrInvalidPassword)
	}
	if len(errors) > 0 {
		return nil, errors
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, []error{err}
	}
	user.PasswordHash = hash
	created, err := as.staffRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, []error{err}
	}
	return created, nil
}

func (as *AuthenticationService) Login(ctx context.Context, loginData *models.LoginRequestBody) (*models.LoginResponse, []error) {
	var errors []error
	if validationErrs := validators.ValidateLogin(loginData); len(validationErrs) > 0 {
		errors = append(errors, validationErrs...)
		return nil, errors
	}

	user, err := as.staffRepo.GetByEmail(ctx, loginData.Email)
	if err != nil {
		errors = append(errors, err)
		return nil, errors
	}
	if err := utils.CompareHashAndPassword(user.PasswordHash, loginData.Password); err != nil {
		errors = append(errors, errs.ErrWrongPassword)
		return nil, errors
	}

	identity := realtime.Identity{UserID: user.ID, HospitalID: user.HospitalID, Role: user.Role}
	token, err := as.IssueToken(identity, user.Email)
	if err != nil {
		errors = append(errors, err)
		return nil, errors
	}

	return &models.LoginResponse{
		User:  user.ToResponse(),
		Token: token,
	}, nil
}

// IssueToken signs a session token for identity.
func (as *AuthenticationService) IssueToken(identity realtime.Identity, email string) (string, error) {
	claims := models.Claims{
		UserID:     identity.UserID,
		HospitalID: identity.HospitalID,
		Role:       identity.Role,
		Email:      email,
	}
	return utils.CreateJwtToken(claims, as.tokens.Issuer, as.tokens.Secret, as.now().Add(as.tokens.Expiration))
}

// VerifyToken accepts only signed, unexpired tokens whose claims name a
// user, a hospital and a known role.
func (as *AuthenticationService) VerifyToken(token string) (realtime.Identity, error) {
	if token == "" {
		return realtime.Identity{}, errs.ErrMissingToken
	}
	claims, err := utils.VerifyToken(token, as.tokens.Issuer, as.tokens.Secret)
	if err != nil {
		return realtime.Identity{}, err
	}
	if claims.UserID == 0 || claims.HospitalID == 0 {
		return realtime.Identity{}, errs.ErrInvalidClaims
	}
	if !enums.IsKnownRole(claims.Role) {
		return realtime.Identity{}, errs.ErrUnknownRole
	}
	return realtime.Identity{
		UserID:     claims.UserID,
		HospitalID: claims.HospitalID,
		Role:       claims.Role,
	}, nil
}

// IsAuthError reports whether err came from token verification rather than
// an infrastructure failure.
func IsAuthError(err error) bool {
	return errors.Is(err, errs.ErrMissingToken) ||
		errors.Is(err, errs.ErrInvalidToken) ||
		errors.Is(err, errs.ErrInvalidClaims) ||
		errors.Is(err, errs.ErrUnknownRole)
}
