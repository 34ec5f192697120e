package webapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/SamyKr/VisuAI-sub000/internal/platform/config"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
	httptransport "github.com/SamyKr/VisuAI-sub000/internal/transport/http"
)

// TokenIssuer signs and verifies control API JWT tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds a token helper from the web auth section.
func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
	}
}

// Issue signs a token for the provided subject.
func (t *TokenIssuer) Issue(subject string) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, errors.New("token secret is empty")
	}

	expires := time.Now().Add(t.ttl)
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": expires.Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify validates the token and extracts its subject.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("token secret is empty")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	subject, _ := claims["sub"].(string)
	return subject, nil
}

// AuthMiddleware guards the mutating control routes. The device token from
// the server section doubles as an API key so tooling that already holds it
// needs no second credential; everything else presents a bearer JWT.
func AuthMiddleware(cfg *config.Config, issuer *TokenIssuer, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Web.Auth.Enabled {
			c.Next()
			return
		}

		if apikey := c.GetHeader("AuthorToken"); apikey != "" && cfg.Server.Token != "" {
			if apikey != cfg.Server.Token {
				logger.WarnTag("HTTP", "rejected request with invalid api token")
				httptransport.RespondError(c, http.StatusUnauthorized, "invalid api token", nil)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		token := c.GetHeader("Authorization")
		if token == "" {
			httptransport.RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		subject, err := issuer.Verify(token)
		if err != nil {
			logger.WarnTag("HTTP", "rejected request with invalid token: %v", err)
			httptransport.RespondError(c, http.StatusUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}

		c.Set("subject", subject)
		c.Next()
	}
}
