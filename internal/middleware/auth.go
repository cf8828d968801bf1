package middleware

import (
	"errors"
	"net/http"
	"strings"

	"tempspec/internal/authz"
	"tempspec/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
	actorKey      = "actor"
)

var errInvalidToken = errors.New("invalid token")

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string, secure bool) {
	// cross-origin deployments need SameSite=None, which browsers only accept with Secure
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie(accessCookie, accessToken, 3600*24, "/", "", secure, true)
	c.SetCookie(refreshCookie, refreshToken, 3600*24*7, "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie(accessCookie, "", -1, "/", "", secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", secure, true)
}

// ParseAccessToken validates an HS256 access token and returns the actor it names.
func ParseAccessToken(secret []byte, tokenString string) (authz.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return authz.Actor{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return authz.Actor{}, errInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != "" && typ != "access" {
		return authz.Actor{}, errInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return authz.Actor{}, errInvalidToken
	}
	role, _ := claims["role"].(string)
	if role == "" || role == authz.RoleSystem {
		return authz.Actor{}, errInvalidToken
	}
	return authz.Actor{UserID: userID, Role: role}, nil
}

// tokenFromRequest tries the cookie first, then the Authorization header
func tokenFromRequest(c *gin.Context) (string, string) {
	if tokenString, err := c.Cookie(accessCookie); err == nil && tokenString != "" {
		return tokenString, ""
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// Authenticate validates the JWT and stores the request's authz.Actor.
// It does not check roles; services decide with authz.Check.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, problem := tokenFromRequest(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}

		actor, err := ParseAccessToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		c.Set(actorKey, actor)
		c.Set("userID", actor.UserID.String())
		c.Set("userRole", actor.Role)
		c.Next()
	}
}

// RequireRole must run after Authenticate. Used for the admin-only user routes.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		for _, role := range allowedRoles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// ActorFrom returns the actor stored by Authenticate
func ActorFrom(c *gin.Context) (authz.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return authz.Actor{}, false
	}
	actor, ok := v.(authz.Actor)
	return actor, ok
}
