package middleware

import (
	"time"

	"giveaway-server/common/logger"
	"giveaway-server/internal/auth"
	"giveaway-server/internal/common/helper"
	"giveaway-server/internal/common/response"
	"giveaway-server/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// GatewayAuthFilter 网关签名认证过滤器
// 用于支付确认等服务间调用，验证机器人网关的 HMAC 签名
func GatewayAuthFilter(ctx *beegocontext.Context) {
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

	// 演示模式：跳过签名验证
	if cfg != nil && cfg.Auth.DemoMode {
		ctx.Input.SetData("demo_mode", true)
		logger.Debug("demo mode, skip gateway signature", zap.String("trace_id", traceID))
		return
	}

	if err := auth.VerifyGatewaySignature(ctx); err != nil {
		logger.Warn("gateway authentication failed",
			zap.String("trace_id", traceID),
			zap.Error(err))

		// 根据错误类型返回不同的错误码
		switch err {
		case auth.ErrMissingAuthHeaders:
			returnError(401, response.CodeUnauthorized, "缺少认证信息")
		case auth.ErrInvalidAppKey:
			returnError(401, response.CodeUnauthorized, "无效的 app_key")
		case auth.ErrTimestampExpired:
			returnError(401, response.CodeTimestampExpired, "时间戳已过期")
		case auth.ErrNonceReused:
			returnError(401, response.CodeNonceReused, "Nonce已被使用")
		case auth.ErrInvalidSignature:
			returnError(401, response.CodeInvalidSignature, "签名验证失败")
		case auth.ErrGatewayDisabled:
			returnError(403, response.CodeForbidden, "网关认证未启用")
		default:
			returnError(401, response.CodeUnauthorized, "认证失败")
		}
		return
	}

	logger.Debug("gateway authentication successful", zap.String("trace_id", traceID))
}
