package models

import "github.com/golang-jwt/jwt/v5"

type Claims struct {
	UserID     uint   `json:"userId"`
	HospitalID uint   `json:"hospitalId"`
	Role       string `json:"role"`
	Email      string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
