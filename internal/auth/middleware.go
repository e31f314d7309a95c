package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// DeviceAuth enforces HS256 access tokens sent as a bearer header. Websocket clients that
// cannot set headers may pass the token as the "token" query value instead.
func DeviceAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if authz := c.GetHeader("Authorization"); authz != "" {
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return "", false
		}
		tok := strings.TrimSpace(authz[len("bearer "):])
		return tok, tok != ""
	}
	tok := c.Query("token")
	return tok, tok != ""
}

// RequireRole lets through tokens carrying one of roles. Admin passes every check.
// It must run after DeviceAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if claims.IsAdmin() {
			c.Next()
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role " + claims.Role + " not allowed"})
	}
}

// ClaimsFrom returns the claims DeviceAuth stored on the context.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
