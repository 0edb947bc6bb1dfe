package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/Dhoini/Entitlement-service/pkg/res"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextUserIDKey ключ для хранения ID пользователя в контексте (используется HTTP middleware и gRPC interceptor).
	ContextUserIDKey    ContextKey = "userID"
	ContextUserEmailKey ContextKey = "userEmail"
	contextScopesKey    ContextKey = "scopes"

	authHeaderPrefix = "Bearer "
)

type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims scope — список через пробел.
type TokenClaims struct {
	UserEmail string `json:"email"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

// Scopes разбирает claim scope
func (c *TokenClaims) Scopes() []string {
	return strings.Fields(c.Scope)
}

type JWTMiddleware struct {
	cfg       *config.Config
	log       *logger.Logger
	validator TokenValidator
}

func NewJWTMiddleware(cfg *config.Config, log *logger.Logger, validator TokenValidator) *JWTMiddleware {
	return &JWTMiddleware{
		cfg:       cfg,
		log:       log,
		validator: validator,
	}
}

// RequireAuth проверяет bearer-токен и кладет user id из sub в контекст.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, authHeaderPrefix) {
			m.handleAuthError(c, "Missing authorization token")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, authHeaderPrefix)
		claims, err := m.validator.Validate(tokenString)
		if err != nil {
			m.handleAuthError(c, fmt.Sprintf("Token validation failed: %v", err))
			return
		}

		userID := claims.Subject
		if userID == "" {
			m.handleAuthError(c, "User ID (sub) missing in token")
			return
		}

		c.Set(string(ContextUserIDKey), userID)
		c.Set(string(ContextUserEmailKey), claims.UserEmail)
		c.Set(string(contextScopesKey), claims.Scopes())
		m.log.Debugw("User authenticated via HTTP", "userID", userID)
		c.Next()
	}
}

// RequireScope пропускает только токены с нужным scope. Ставится после RequireAuth.
func (m *JWTMiddleware) RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scopes := c.GetStringSlice(string(contextScopesKey))
		if !HasScope(scopes, scope) {
			m.log.Warnw("HTTP request forbidden: missing scope", "path", c.Request.URL.Path, "scope", scope, "userID", UserID(c))
			res.JsonResponse(c.Writer, res.ErrorResponse{
				Error:     "forbidden",
				ErrorCode: http.StatusForbidden,
			}, http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// HasScope true, если scope есть в списке
func HasScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// UserID возвращает id пользователя, положенный RequireAuth
func UserID(c *gin.Context) string {
	return c.GetString(string(ContextUserIDKey))
}

// UserEmail возвращает email из токена, если он был
func UserEmail(c *gin.Context) string {
	return c.GetString(string(ContextUserEmailKey))
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, message string) {
	m.log.Warnw("HTTP authentication failed", "path", c.Request.URL.Path, "error", message)
	res.JsonResponse(c.Writer, res.ErrorResponse{
		Error:     message,
		ErrorCode: http.StatusUnauthorized,
	}, http.StatusUnauthorized)
	c.Abort()
}

// DefaultTokenValidator - реализация валидатора по умолчанию (HMAC).
type DefaultTokenValidator struct {
	Secret []byte
}

func (v *DefaultTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.Secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, errors.New("malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.New("invalid token signature")
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, errors.New("token expired")
		default:
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}
