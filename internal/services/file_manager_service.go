package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"emrSocket/internal/enums"
	"emrSocket/internal/errs"
	"emrSocket/internal/interfaces"
)

var allowedAttachmentTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
}

// FileManagerService stores chat attachments. A nil file manager means
// storage is disabled.
type FileManagerService struct {
	fileManager interfaces.FileManager
	bucketName  string
}

func NewFileManagerService(fileManager interfaces.FileManager, bucketName string) *FileManagerService {
	if bucketName == "" {
		bucketName = enums.FILE_BUCKET_CHAT_ATTACHMENTS
	}
	return &FileManagerService{
		fileManager: fileManager,
		bucketName:  bucketName,
	}
}

// UploadChatAttachment stores the file under a per-hospital prefix and
// returns its public URL.
func (fs *FileManagerService) UploadChatAttachment(ctx context.Context, hospitalID uint, originalName string, file io.Reader, fileSize int64, contentType string) (string, error) {
	if fs == nil || fs.fileManager == nil {
		return "", errs.ErrFileStorageUnavailable
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	ext, ok := allowedAttachmentTypes[strings.TrimSpace(strings.ToLower(mediaType))]
	if !ok {
		return "", errs.ErrUnsupportedAttachmentType
	}
	if e := strings.ToLower(path.Ext(originalName)); e != "" && e != ext && !(ext == ".jpg" && e == ".jpeg") {
		return "", errs.ErrUnsupportedAttachmentType
	}

	objectName := fmt.Sprintf("hospital-%d/%s%s", hospitalID, uuid.NewString(), ext)
	url, err := fs.fileManager.UploadFile(ctx, objectName, file, fileSize, contentType, fs.bucketName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUnableToUploadFile, err)
	}
	return url, nil
}
