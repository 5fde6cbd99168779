package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"giveaway-server/common/logger"
	"giveaway-server/internal/config"
	infrds "giveaway-server/internal/infra/redis"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// VerifyGatewaySignature 验证机器人网关签名（支付确认等服务间调用）
// 从请求头中提取认证信息，验证签名的有效性
func VerifyGatewaySignature(ctx *beegocontext.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if !cfg.Auth.GatewaySign.Enabled {
		return ErrGatewayDisabled
	}

	// 1. 提取请求头
	appKey := strings.TrimSpace(ctx.Input.Header("X-Gateway-Key"))
	timestamp := strings.TrimSpace(ctx.Input.Header("X-Timestamp"))
	nonce := strings.TrimSpace(ctx.Input.Header("X-Nonce"))
	signature := strings.TrimSpace(ctx.Input.Header("X-Signature"))

	// 2. 基本校验
	if appKey == "" || timestamp == "" || nonce == "" || signature == "" {
		logger.Warn("missing authentication headers",
			zap.String("app_key", appKey),
			zap.Bool("has_timestamp", timestamp != ""),
			zap.Bool("has_nonce", nonce != ""),
			zap.Bool("has_signature", signature != ""))
		return ErrMissingAuthHeaders
	}

	// 3. AppKey 校验
	if appKey != cfg.Gateway.AppKey {
		logger.Warn("unknown gateway app_key", zap.String("app_key", appKey))
		return ErrInvalidAppKey
	}

	// 4. 时间戳校验（防重放攻击）
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		logger.Warn("invalid timestamp format", zap.String("timestamp", timestamp))
		return ErrTimestampExpired
	}

	now := time.Now().Unix()
	diff := math.Abs(float64(now - ts))
	if diff > 300 { // 5分钟有效期
		logger.Warn("timestamp expired",
			zap.Int64("timestamp", ts),
			zap.Int64("now", now),
			zap.Float64("diff_seconds", diff))
		return ErrTimestampExpired
	}

	// 5. Nonce 校验（防重放攻击）
	if err := checkAndSetNonce(ctx.Request.Context(), appKey, nonce); err != nil {
		logger.Warn("nonce check failed",
			zap.String("app_key", appKey),
			zap.String("nonce", nonce),
			zap.Error(err))
		return err
	}

	// 6. 读取请求体（用于签名验证）
	body := readRequestBody(ctx)

	// 7. 重新计算签名
	expectedSig := generateSignature(appKey, timestamp, nonce, body, cfg.Gateway.AppSecret)

	// 8. 比较签名（使用恒定时间比较，防止时序攻击）
	if !secureCompare(signature, expectedSig) {
		logger.Warn("signature verification failed",
			zap.String("app_key", appKey),
			zap.String("expected", expectedSig[:16]+"..."), // 只记录前16位
			zap.String("received", safePrefix(signature)))
		return ErrInvalidSignature
	}

	logger.Debug("gateway authentication successful", zap.String("app_key", appKey))

	return nil
}

// checkAndSetNonce 检查并设置 Nonce（防重放）
func checkAndSetNonce(ctx context.Context, appKey, nonce string) error {
	rdb := infrds.Client()
	if rdb == nil {
		// Redis 不可用时，跳过 Nonce 检查（降级）
		logger.Warn("redis not available, skip nonce check")
		return nil
	}

	nonceKey := fmt.Sprintf("nonce:%s:%s", appKey, nonce)

	// 检查是否已存在
	exists, err := rdb.Exists(ctx, nonceKey).Result()
	if err != nil {
		logger.Warn("redis exists check failed", zap.Error(err))
		return nil // 降级：Redis 错误时不阻断请求
	}

	if exists > 0 {
		return ErrNonceReused
	}

	// 设置 Nonce（TTL 10分钟）
	err = rdb.SetEx(ctx, nonceKey, "1", 10*time.Minute).Err()
	if err != nil {
		logger.Warn("redis setex failed", zap.Error(err))
		return nil // 降级：Redis 错误时不阻断请求
	}

	return nil
}

// generateSignature 生成签名
// 签名算法：HMAC-SHA256(app_key + timestamp + nonce + body, app_secret)
func generateSignature(appKey, timestamp, nonce, body, secret string) string {
	signString := appKey + timestamp + nonce + body
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(signString))
	return hex.EncodeToString(h.Sum(nil))
}

// secureCompare 恒定时间字符串比较（防止时序攻击）
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return hmac.Equal([]byte(a), []byte(b))
}

// safePrefix 日志用截断，避免越界
func safePrefix(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:16] + "..."
}

// readRequestBody 读取请求体
func readRequestBody(ctx *beegocontext.Context) string {
	// 如果是 GET 请求，返回空字符串
	if ctx.Request.Method == "GET" || ctx.Request.Method == "DELETE" {
		return ""
	}

	// 从 context 中获取已读取的 body（避免重复读取）
	if body := ctx.Input.GetData("request_body"); body != nil {
		if bodyStr, ok := body.(string); ok {
			return bodyStr
		}
	}

	// 读取 body（注意：这会消耗 body，需要在中间件中提前读取并缓存）
	bodyBytes := ctx.Input.RequestBody
	bodyStr := string(bodyBytes)

	// 缓存到 context
	ctx.Input.SetData("request_body", bodyStr)

	return bodyStr
}

// GetClientIP 获取客户端真实IP
func GetClientIP(ctx *beegocontext.Context) string {
	// 优先从 X-Real-IP 获取
	if ip := ctx.Input.Header("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	// 其次从 X-Forwarded-For 获取（取第一个）
	if xff := ctx.Input.Header("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// 最后使用 RemoteAddr
	return ctx.Request.RemoteAddr
}
