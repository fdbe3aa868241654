package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/go-comment-service/domain"
)

const identityKey = "identity"

var errMissingAddress = errors.New("token carries no ethereum address")

type errorBody struct {
	Message string `json:"message"`
}

// AuthMiddleware verifies the bearer token and stores the caller identity
// in the gin context
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Message: "Unauthorized: No token provided"})
			return
		}

		identity, err := ParseIdentity(strings.TrimSpace(token), key)
		if err != nil {
			logrus.Warnf("jwt verification failed: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Message: "Unauthorized: Invalid token"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// ParseIdentity verifies an HMAC-signed token and extracts the caller claims
func ParseIdentity(tokenString string, secret []byte) (domain.Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	identity := domain.Identity{
		OwnerAddress: firstClaim(claims, "ethereumAddress", "ownerAddress", "address"),
		DisplayName:  firstClaim(claims, "username", "displayName"),
		SubjectID:    firstClaim(claims, "userId", "sub"),
	}
	if domain.NormalizeAddress(identity.OwnerAddress) == "" {
		return domain.Identity{}, errMissingAddress
	}
	return identity, nil
}

func firstClaim(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := claims[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case float64:
			// 数字类型的 userId
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

// IdentityFromContext returns the identity set by AuthMiddleware
func IdentityFromContext(c *gin.Context) (domain.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}
