// Package auth проверяет токены операторов консоли.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// CookieName: cookie, из которой берётся токен, если нет заголовка Authorization.
const CookieName = "console_token"

const (
	contextKey = "operator"
	leeway     = 5 * time.Second
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims: утверждения токена оператора.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Validator проверяет HS256-токены общим секретом.
type Validator struct {
	secret []byte
	now    func() time.Time
}

// NewValidator создаёт валидатор. Пустой секрет отключает проверку.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
}

// Enabled сообщает, включена ли проверка токенов.
func (v *Validator) Enabled() bool { return v != nil && len(v.secret) > 0 }

// Validate разбирает токен и требует непустой subject.
func (v *Validator) Validate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	if !v.Enabled() {
		return nil, fmt.Errorf("%w: jwt secret not configured", ErrInvalidToken)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Sign выпускает токен оператора; используется в тестах и утилитах.
func Sign(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}

// Middleware требует валидный токен, если валидатор включён.
func Middleware(v *Validator, logger *log.Entry) echo.MiddlewareFunc {
	if logger == nil {
		logger = log.WithField("component", "auth")
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !v.Enabled() {
			return next
		}
		return func(c echo.Context) error {
			claims, err := v.Validate(tokenFrom(c))
			if err != nil {
				logger.WithError(err).WithFields(log.Fields{
					"path": c.Request().URL.Path,
					"ip":   c.RealIP(),
				}).Warn("request rejected")
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			c.Set(contextKey, claims)
			return next(c)
		}
	}
}

// Operator возвращает утверждения текущего оператора, если запрос аутентифицирован.
func Operator(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(contextKey).(*Claims)
	return claims, ok
}

func tokenFrom(c echo.Context) string {
	authz := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}
