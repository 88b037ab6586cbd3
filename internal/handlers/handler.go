package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"emrSocket/internal/errs"
	"emrSocket/internal/models"
	"emrSocket/internal/msgs"
	"emrSocket/internal/realtime"
	"emrSocket/internal/utils"
)

// TokenVerifier turns a session token into the identity of its holder.
type TokenVerifier interface {
	VerifyToken(token string) (realtime.Identity, error)
}

func identityFromContext(ctx *gin.Context) realtime.Identity {
	return realtime.Identity{
		UserID:     utils.GetUserIdFromContext(ctx),
		HospitalID: utils.GetHospitalIdFromContext(ctx),
		Role:       utils.GetRoleFromContext(ctx),
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrUnauthorized),
		errors.Is(err, errs.ErrMissingToken),
		errors.Is(err, errs.ErrInvalidToken),
		errors.Is(err, errs.ErrInvalidClaims),
		errors.Is(err, errs.ErrWrongPassword),
		errors.Is(err, errs.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotificationNotFound),
		errors.Is(err, errs.ErrReceiverNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrFileStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrUnableToUploadFile):
		return http.StatusBadGateway
	}
	var sentinel errs.Error
	if errors.As(err, &sentinel) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// publicError hides infrastructure errors behind a generic message.
func publicError(err error) error {
	var sentinel errs.Error
	if errors.As(err, &sentinel) {
		return sentinel
	}
	return errs.Error(msgs.MsgOperationFailed)
}

func abortWithErrors(ctx *gin.Context, status int, message string, errors ...error) {
	public := make([]error, 0, len(errors))
	for _, err := range errors {
		public = append(public, publicError(err))
	}
	ctx.AbortWithStatusJSON(status, models.Response{
		Success: false,
		Message: message,
		Errors:  public,
	})
}

func abortWithError(ctx *gin.Context, err error) {
	abortWithErrors(ctx, statusFor(err), msgs.MsgOperationFailed, err)
}
