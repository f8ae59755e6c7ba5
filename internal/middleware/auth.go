package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"crm/internal/authz"
	"crm/internal/model"
	"crm/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const principalKey = "principal"

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	// access_token: 24h, path=/, domain="", secure, HttpOnly
	c.SetCookie("access_token", accessToken, 3600*24, "/", "", secure, true)
	// refresh_token: 7 days, path=/, domain="", secure, HttpOnly
	c.SetCookie("refresh_token", refreshToken, 3600*24*7, "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// --- Principal resolution ---

// principalCacheEntry stores a resolved principal with TTL. Role changes take
// effect within the TTL window without a per-request role query.
type principalCacheEntry struct {
	principal authz.Principal
	expiresAt time.Time
}

var (
	principalCache    sync.Map // userID string -> principalCacheEntry
	principalCacheTTL = 5 * time.Minute
)

// principalDB holds the database reference for principal resolution — set via InitAuthMiddleware
var principalDB *gorm.DB

// InitAuthMiddleware sets the DB reference used to resolve principals.
func InitAuthMiddleware(db *gorm.DB) {
	principalDB = db
}

// InvalidatePrincipal drops the cached principal for a user (or all users if
// empty). Called after role changes so grants apply promptly.
func InvalidatePrincipal(userID string) {
	if userID == "" {
		principalCache.Range(func(key, _ interface{}) bool {
			principalCache.Delete(key)
			return true
		})
	} else {
		principalCache.Delete(userID)
	}
}

// resolvePrincipal maps a token subject to (user, company, role), the tuple
// every policy check needs. DB-backed with a short cache.
func resolvePrincipal(sub string) (authz.Principal, error) {
	if entry, ok := principalCache.Load(sub); ok {
		cached := entry.(principalCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.principal, nil
		}
	}

	if principalDB == nil {
		return authz.Principal{}, fmt.Errorf("auth middleware not initialized")
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return authz.Principal{}, fmt.Errorf("invalid subject")
	}

	var profile model.Profile
	if err := principalDB.First(&profile, "id = ?", userID).Error; err != nil {
		return authz.Principal{}, err
	}

	var adminCount int64
	if err := principalDB.Model(&model.UserRole{}).
		Where("user_id = ? AND role = ?", userID, model.RoleAdmin).
		Count(&adminCount).Error; err != nil {
		return authz.Principal{}, err
	}

	role := model.RoleUser
	if adminCount > 0 {
		role = model.RoleAdmin
	}

	principal := authz.Principal{UserID: profile.ID, CompanyID: profile.CompanyID, Role: role}
	principalCache.Store(sub, principalCacheEntry{
		principal: principal,
		expiresAt: time.Now().Add(principalCacheTTL),
	})

	return principal, nil
}

// extractToken reads the access token from the cookie, falling back to the
// Authorization header.
func extractToken(c *gin.Context) (string, bool) {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr == nil && tokenString != "" {
		return tokenString, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// authenticate validates the JWT and resolves the caller's principal. On
// failure it aborts the request with 401 and returns ok=false; it never calls
// c.Next() so callers stay in control of the chain.
func authenticate(c *gin.Context) (authz.Principal, bool) {
	tokenString, ok := extractToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
		return authz.Principal{}, false
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return GetJWTSecret(), nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return authz.Principal{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return authz.Principal{}, false
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return authz.Principal{}, false
	}

	principal, err := resolvePrincipal(sub)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unknown profile"))
		return authz.Principal{}, false
	}
	return principal, true
}

// RequireAuth validates the JWT and resolves the caller's principal into the
// gin context. Every protected route goes through here before any policy
// check runs.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := authenticate(c)
		if !ok {
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireAdmin is RequireAuth plus an admin gate, for routes that are
// admin-only in full rather than per-record. The gate runs before the chain
// continues, so the protected handler never executes for a plain user.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := authenticate(c)
		if !ok {
			return
		}
		if !principal.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// MustGetPrincipal returns the principal RequireAuth stored. Only valid on
// routes behind RequireAuth/RequireAdmin.
func MustGetPrincipal(c *gin.Context) authz.Principal {
	return c.MustGet(principalKey).(authz.Principal)
}
