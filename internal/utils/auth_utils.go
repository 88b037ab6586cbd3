package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"emrSocket/internal/errs"
	"emrSocket/internal/models"
)

const (
	ContextKeyUserID     = "user_id"
	ContextKeyHospitalID = "hospital_id"
	ContextKeyRole       = "role"
)

func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func CompareHashAndPassword(hashedPassword string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func GenerateSecretKey() string {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func CreateJwtToken(claims models.Claims, issuer string, secretKey []byte, expiration time.Time) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   fmt.Sprintf("%d", claims.UserID),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiration),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// VerifyToken checks signature, algorithm, expiry and issuer. It does not
// judge whether the claims are complete.
func VerifyToken(tokenString string, issuer string, secretKey []byte) (*models.Claims, error) {
	claims := &models.Claims{}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}

// ExtractToken takes the bearer token from the Authorization header, falling
// back to the token query parameter browsers use for websocket handshakes.
func ExtractToken(ctx *gin.Context) string {
	header := strings.TrimSpace(ctx.GetHeader("Authorization"))
	if header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return header
	}
	return strings.TrimSpace(ctx.Query("token"))
}

func GetUserIdFromContext(ctx *gin.Context) uint {
	return ctx.GetUint(ContextKeyUserID)
}

func GetHospitalIdFromContext(ctx *gin.Context) uint {
	return ctx.GetUint(ContextKeyHospitalID)
}

func GetRoleFromContext(ctx *gin.Context) string {
	return ctx.GetString(ContextKeyRole)
}
