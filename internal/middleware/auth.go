package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/reelshelf/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin 管理员角色
const RoleAdmin = "admin"

// RefreshHeader 续期后的新 Token 通过该响应头返回
const RefreshHeader = "X-Refreshed-Token"

// ErrAdminDisabled 未配置管理员密码
var ErrAdminDisabled = errors.New("admin access is not configured")

// Claims JWT 声明
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAdmin 管理接口鉴权
func RequireAdmin(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err != nil {
			utils.Unauthorized(c, "admin login required")
			c.Abort()
			return
		}
		if claims.Role != RoleAdmin {
			utils.Error(c, http.StatusForbidden, "admin role required")
			c.Abort()
			return
		}

		c.Set("role", claims.Role)
		c.Set("subject", claims.Subject)

		// 滑动续期：有效期消耗过半时下发新 Token
		if shouldRefresh(claims) {
			expiry := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
			if token, err := GenerateToken(claims.Subject, claims.Role, jwtSecret, expiry); err == nil {
				c.Header(RefreshHeader, token)
			}
		}

		c.Next()
	}
}

// extractClaims 从 Authorization Header 中提取 JWT Claims
func extractClaims(c *gin.Context, jwtSecret string) (*Claims, error) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, jwt.ErrTokenMalformed
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// GenerateToken 生成 JWT Token
func GenerateToken(subject, role, jwtSecret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// CheckAdminPassword 校验管理员密码（bcrypt 哈希）
func CheckAdminPassword(hash, password string) error {
	if hash == "" {
		return ErrAdminDisabled
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// shouldRefresh 已经消耗了总有效期的 50% 以上
func shouldRefresh(claims *Claims) bool {
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return false
	}
	total := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	return time.Since(claims.IssuedAt.Time) > total/2
}
