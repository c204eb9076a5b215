package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"academic-mesh/backend/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
	ErrUnknownRole  = errors.New("未知角色")
)

// 角色
const (
	RoleOperator = "operator" // 可写入考勤、触发同步
	RoleAnalyst  = "analyst"  // 只读分析与导出
)

const issuer = "academic-mesh"

// Claims 自定义 JWT 声明
type Claims struct {
	Subject string `json:"sub_name"`
	Role    string `json:"role"`
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器
// Token 由 syncctl token 命令签发，服务端只负责校验
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
	}
}

// GenerateToken 为运维人员或分析人员签发 Token
// ttl 为 0 时使用配置中的默认有效期
func (m *Manager) GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	if role != RoleOperator && role != RoleAnalyst {
		return "", ErrUnknownRole
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	now := time.Now()
	claims := Claims{
		Subject: subject,
		Role:    role,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Issuer != issuer {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
