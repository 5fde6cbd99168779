package middleware

import (
	"strconv"
	"strings"
	"time"

	"giveaway-server/common/logger"
	"giveaway-server/internal/auth"
	"giveaway-server/internal/common/helper"
	"giveaway-server/internal/common/response"
	"giveaway-server/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// UserAuthFilter 用户认证过滤器（JWT Token）
// 验证用户的 JWT Token，提取用户信息
func UserAuthFilter(ctx *beegocontext.Context) {
	cfg := config.Get()
	traceID := helper.GetTraceID(ctx)

	// 辅助函数：返回错误
	returnError := func(httpCode int, bizCode int, message string) {
		ctx.Output.SetStatus(httpCode)
		ctx.Output.JSON(response.APIResponse{
			Code:      bizCode,
			Message:   message,
			Data:      nil,
			TraceID:   traceID,
			Timestamp: time.Now().UnixMilli(),
		}, false, false)
	}

	// 演示模式：简化认证，从请求头/参数提取用户信息
	if cfg != nil && cfg.Auth.DemoMode {
		userID := int64(0)
		if s := strings.TrimSpace(ctx.Input.Header("X-User-Id")); s != "" {
			userID, _ = strconv.ParseInt(s, 10, 64)
		}
		if userID == 0 {
			if s := strings.TrimSpace(ctx.Input.Query("user_id")); s != "" {
				userID, _ = strconv.ParseInt(s, 10, 64)
			}
		}
		if userID == 0 {
			userID = 1 // 默认演示用户
		}

		username := strings.TrimSpace(ctx.Input.Header("X-User-Name"))
		if username == "" {
			username = "demo_user"
		}

		ctx.Input.SetData("user_id", userID)
		ctx.Input.SetData("username", username)
		ctx.Input.SetData("demo_mode", true)

		logger.Debug("demo mode authentication",
			zap.String("trace_id", traceID),
			zap.Int64("user_id", userID))
		return
	}

	// 1. 验证 JWT Token
	claims, err := auth.VerifyJWTToken(ctx)
	if err != nil {
		logger.Warn("user authentication failed",
			zap.String("trace_id", traceID),
			zap.Error(err))

		// 根据错误类型返回不同的错误码
		switch err {
		case auth.ErrMissingToken:
			returnError(401, response.CodeUnauthorized, "缺少认证Token")
		case auth.ErrInvalidTokenFormat:
			returnError(401, response.CodeInvalidToken, "Token格式无效")
		case auth.ErrInvalidToken:
			returnError(401, response.CodeInvalidToken, "Token无效")
		case auth.ErrTokenExpired:
			returnError(401, response.CodeTokenExpired, "Token已过期")
		case auth.ErrTokenRevoked:
			returnError(401, response.CodeTokenRevoked, "Token已撤销")
		default:
			returnError(401, response.CodeUnauthorized, "认证失败")
		}
		return
	}

	// 2. 将用户信息存入 context
	ctx.Input.SetData("user_id", claims.UserID)
	ctx.Input.SetData("username", claims.Username)
	ctx.Input.SetData("jwt_claims", claims)

	logger.Debug("user authentication successful",
		zap.String("trace_id", traceID),
		zap.Int64("user_id", claims.UserID),
		zap.String("username", claims.Username))
}
