package models

import "github.com/golang-jwt/jwt/v5"

// Claims представляет стандартные поля JWT и пользовательские данные,
// которые мы хотим включить в токен.
type Claims struct {
	UserID               string   `json:"user_id"` // UUID пользователя в строковом виде
	Roles                []string `json:"roles"`
	jwt.RegisteredClaims          // Встраиваем стандартные поля: Issuer, Subject, ExpiresAt, IssuedAt и т.д.
}
