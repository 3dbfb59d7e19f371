package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
)

// AuthMiddleware authenticates the caller from an HS256 bearer token whose sub claim is the
// user id. The id is stored under logctx.KeyUserID in gin.Context and the request context,
// and the request logger gains a user_id field.
func AuthMiddleware(secret string, base *zap.SugaredLogger) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		userID, err := parseBearer(c.GetHeader("Authorization"), key)
		if err != nil {
			logctx.FromGin(c, base).Infow("request not authenticated", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   apperrors.ErrUnauthenticated.Message,
			})
			return
		}

		c.Set(logctx.KeyUserID, userID)
		ctx := context.WithValue(c.Request.Context(), logctx.KeyUserID, userID)
		c.Request = c.Request.WithContext(ctx)
		setLogger(c, logctx.FromGin(c, base).With("user_id", userID))

		c.Next()
	}
}

func parseBearer(header string, key []byte) (string, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("missing bearer token")
	}
	if len(key) == 0 {
		return "", fmt.Errorf("auth secret is not configured")
	}

	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}
