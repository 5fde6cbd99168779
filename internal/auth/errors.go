package auth

import "errors"

// 认证相关错误定义
var (
	// 网关签名认证错误
	ErrMissingAuthHeaders = errors.New("missing authentication headers")
	ErrInvalidAppKey      = errors.New("invalid app_key")
	ErrGatewayDisabled    = errors.New("gateway authentication is disabled")
	ErrTimestampExpired   = errors.New("timestamp expired")
	ErrNonceReused        = errors.New("nonce already used")
	ErrInvalidSignature   = errors.New("invalid signature")

	// JWT Token 错误
	ErrMissingToken         = errors.New("missing authorization token")
	ErrInvalidTokenFormat   = errors.New("invalid token format")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrInvalidSigningMethod = errors.New("invalid signing method")

	// 管理员认证错误
	ErrInvalidAdminToken = errors.New("invalid admin token")
	ErrAdminAuthDisabled = errors.New("admin authentication is disabled")
)
