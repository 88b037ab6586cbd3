package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emrSocket/internal/errs"
	"emrSocket/internal/msgs"
	"emrSocket/internal/utils"
)

// MustAuthenticateMiddleware verifies the bearer token and stores the caller's
// identity on the gin context.
func MustAuthenticateMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := utils.ExtractToken(ctx)
		if token == "" {
			abortWithErrors(ctx, http.StatusUnauthorized, msgs.MsgYouMustLoginFirst, errs.ErrUnauthorized)
			return
		}

		identity, err := verifier.VerifyToken(token)
		if err != nil {
			abortWithErrors(ctx, http.StatusUnauthorized, msgs.MsgYouMustLoginFirst, errs.ErrUnauthorized)
			return
		}

		ctx.Set(utils.ContextKeyUserID, identity.UserID)
		ctx.Set(utils.ContextKeyHospitalID, identity.HospitalID)
		ctx.Set(utils.ContextKeyRole, identity.Role)
		ctx.Next()
	}
}
