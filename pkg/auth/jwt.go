package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const browserAudience = "wandernest-portal"

// BrowserClaims identify one browser. The cookie carries no tourist
// credentials, only the id the portal keys dashboard state and tokens by.
type BrowserClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func NewBrowserSession(sessionID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := BrowserClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{browserAudience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseBrowserSession(tokenString, secret string) (*BrowserClaims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &BrowserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(browserAudience),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*BrowserClaims); ok && tok.Valid && claims.SessionID != "" {
		return claims, nil
	}
	return nil, errors.New("invalid browser session")
}
