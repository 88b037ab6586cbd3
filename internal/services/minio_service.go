package services

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"emrSocket/configs"
	"emrSocket/internal/logger"
)

type MinioService struct {
	minioClient      *minio.Client
	externalEndpoint string
	useSSL           bool
	log              *logger.Logger
}

// NewMinioService connects to MinIO and makes sure bucketName exists.
func NewMinioService(ctx context.Context, config *configs.Config, bucketName string, log *logger.Logger) (*MinioService, error) {
	endpoint := config.Viper.GetString("minio.endpoint")
	accessKeyID := config.Viper.GetString("minio.access_key_id")
	secretAccessKey := config.Viper.GetString("minio.secret_access_key")
	useSSL := config.Viper.GetBool("minio.use_ssl")

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	log = log.With("component", "MinioService")
	err = minioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := minioClient.BucketExists(ctx, bucketName)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("minio bucket %s: %w", bucketName, err)
		}
		log.Debug("bucket already exists", "bucket", bucketName)
	} else {
		log.Info("bucket created", "bucket", bucketName)
	}

	externalEndpoint := config.Viper.GetString("minio.external_endpoint")
	if externalEndpoint == "" {
		externalEndpoint = endpoint
	}

	return &MinioService{
		minioClient:      minioClient,
		externalEndpoint: externalEndpoint,
		useSSL:           useSSL,
		log:              log,
	}, nil
}

func (ms *MinioService) UploadFile(ctx context.Context, fileName string, file io.Reader, fileSize int64, contentType string, bucketName string) (string, error) {
	info, err := ms.minioClient.PutObject(ctx, bucketName, fileName, file, fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		ms.log.Error("upload failed", "bucket", bucketName, "object", fileName, "error", err)
		return "", err
	}
	return ms.GetPublicFileUrl(bucketName, info.Key), nil
}

func (ms *MinioService) GetPublicFileUrl(bucketName, fileKey string) string {
	scheme := "http"
	if ms.useSSL {
		scheme = "https"
	}
	return (&url.URL{Scheme: scheme, Host: ms.externalEndpoint, Path: "/" + bucketName + "/" + fileKey}).String()
}
