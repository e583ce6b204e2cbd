package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/colegio-digital/grading-service/internal/config"
	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	actorKey  = "actor"
	userIDKey = "user_id"
	roleKey   = "role"
)

var (
	ErrMissingToken = errors.New("authorization header required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Authenticator turns a bearer token into the actor performing the request
type Authenticator interface {
	Authenticate(token string) (models.Actor, error)
}

// JWTClaims are the claims of tokens signed with the shared secret
type JWTClaims struct {
	UserID uint            `json:"user_id"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type jwtAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) Authenticator {
	return &jwtAuthenticator{secret: []byte(secret)}
}

func (a *jwtAuthenticator) Authenticate(tokenString string) (models.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return models.Actor{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || claims.UserID == 0 || !claims.Role.IsValid() {
		return models.Actor{}, ErrInvalidToken
	}
	return models.Actor{ID: claims.UserID, Role: claims.Role}, nil
}

// IssueToken signs a token for actor. Used by tooling and tests.
func IssueToken(secret string, actor models.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: actor.ID,
		Role:   actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(actor.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

type casdoorAuthenticator struct{}

// NewCasdoorAuthenticator validates tokens issued by the school's casdoor
// instance. The numeric user id and role live in the user's properties.
func NewCasdoorAuthenticator(cfg config.AuthConfig) Authenticator {
	casdoorsdk.InitConfig(
		cfg.CasdoorEndpoint,
		cfg.CasdoorClientID,
		cfg.CasdoorClientSecret,
		cfg.CasdoorCertificate,
		cfg.CasdoorOrganization,
		cfg.CasdoorApplication,
	)
	return &casdoorAuthenticator{}
}

func (a *casdoorAuthenticator) Authenticate(tokenString string) (models.Actor, error) {
	claims, err := casdoorsdk.ParseJwtToken(tokenString)
	if err != nil {
		return models.Actor{}, ErrInvalidToken
	}

	id, err := strconv.ParseUint(claims.User.Properties["actor_id"], 10, 32)
	if err != nil || id == 0 {
		return models.Actor{}, ErrInvalidToken
	}

	roleName := claims.User.Properties["role"]
	if roleName == "" {
		roleName = claims.User.Tag
	}
	role, err := models.ParseUserRole(roleName)
	if err != nil {
		if !claims.User.IsAdmin {
			return models.Actor{}, ErrInvalidToken
		}
		role = models.RoleAdmin
	}
	return models.Actor{ID: uint(id), Role: role}, nil
}

// NewAuthenticator picks the provider configured in AUTH_PROVIDER
func NewAuthenticator(cfg config.AuthConfig) Authenticator {
	if cfg.Provider == "casdoor" {
		return NewCasdoorAuthenticator(cfg)
	}
	return NewJWTAuthenticator(cfg.JWTSecret)
}

// AuthMiddleware rejects requests without a valid bearer token and stores the actor
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}

		actor, err := auth.Authenticate(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}

		c.Set(actorKey, actor)
		c.Set(userIDKey, actor.ID)
		c.Set(roleKey, actor.Role)
		c.Next()
	}
}

// RequireRole only lets the listed roles through
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthenticated", ErrMissingToken.Error())
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		abort(c, http.StatusForbidden, "permission_denied", "insufficient permissions")
	}
}

// ActorFromContext returns the actor stored by AuthMiddleware
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"kind":    kind,
			"message": message,
		},
	})
}
