package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sibuparking/coupons/pkg/coupon"
)

const (
	claimUserID = "uid"
	claimRole   = "role"

	bearerPrefix      = "Bearer "
	defaultCookieName = "app_session"
	defaultTokenTTL   = 24 * time.Hour
)

var (
	ErrInvalidConfig = errors.New("invalid auth config")
	ErrInvalidToken  = errors.New("invalid session token")
)

type sessionContextKey struct{}

// Config carries the session token settings.
type Config struct {
	SigningKey []byte
	Issuer     string
	CookieName string
	TokenTTL   time.Duration
}

// Manager mints and validates HMAC-signed session tokens.
type Manager struct {
	cfg Config
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("%w: signing key is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, fmt.Errorf("%w: issuer is required", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &Manager{cfg: cfg}, nil
}

// IssueToken mints a signed token for the given user and role.
func (manager *Manager) IssueToken(userID coupon.UserID, role coupon.Role) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss":       manager.cfg.Issuer,
		"iat":       now.Unix(),
		"exp":       now.Add(manager.cfg.TokenTTL).Unix(),
		claimUserID: userID.String(),
		claimRole:   role.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(manager.cfg.SigningKey)
}

// ValidateToken parses a signed token back into a session.
func (manager *Manager) ValidateToken(raw string) (coupon.Session, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, token.Header["alg"])
		}
		return manager.cfg.SigningKey, nil
	}, jwt.WithIssuer(manager.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return coupon.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return coupon.Session{}, fmt.Errorf("%w: malformed claims", ErrInvalidToken)
	}
	rawUserID, _ := claims[claimUserID].(string)
	userID, err := coupon.NewUserID(rawUserID)
	if err != nil {
		return coupon.Session{}, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	rawRole, _ := claims[claimRole].(string)
	role, err := coupon.ParseRole(rawRole)
	if err != nil {
		role = coupon.RoleUser
	}
	return coupon.Session{UserID: userID, Role: role}, nil
}

// GinMiddleware validates the bearer token or session cookie and stashes the
// session in the request context for ContextIdentity to read back.
func (manager *Manager) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := tokenFromRequest(ctx, manager.cfg.CookieName)
		if raw == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing session"})
			return
		}
		session, err := manager.ValidateToken(raw)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid session"})
			return
		}
		ctx.Request = ctx.Request.WithContext(ContextWithSession(ctx.Request.Context(), session))
		ctx.Next()
	}
}

func tokenFromRequest(ctx *gin.Context, cookieName string) string {
	header := ctx.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	cookie, err := ctx.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie
}

// ContextWithSession returns a context carrying the session.
func ContextWithSession(ctx context.Context, session coupon.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// ContextIdentity resolves the caller from the request context.
type ContextIdentity struct{}

// CurrentSession implements coupon.Identity.
func (ContextIdentity) CurrentSession(ctx context.Context) (coupon.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(coupon.Session)
	return session, ok
}
