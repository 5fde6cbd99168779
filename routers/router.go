package routers

import (
	"giveaway-server/internal/config"
	"giveaway-server/internal/controller/api"
	"giveaway-server/internal/metrics"
	"giveaway-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
)

// init 注册HTTP路由与全局过滤器
func init() {
	cfg := config.Get()

	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（如果启用）
	if cfg != nil && cfg.CORS.Enabled {
		beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)
	}

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// 定价查询（无需认证）
	beego.Router("/api/prices", &api.EntitlementController{}, "get:Prices")

	// 人机校验挑战（无需认证，功能开关控制是否强制）
	beego.Router("/api/antibot/challenge", &api.AntibotController{}, "get:Challenge")

	// ========== 业务 API（需要用户认证） ==========

	// 发起人接口：创建/生命周期事件/列表，用户认证 + 限流
	beego.InsertFilter("/api/roulette", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/roulette/*", beego.BeforeExec, middleware.UserAuthFilter)
	if cfg != nil && cfg.RateLimit.Enabled {
		beego.InsertFilter("/api/roulette", beego.BeforeExec, middleware.RateLimitFilter)
		beego.InsertFilter("/api/roulette/*", beego.BeforeExec, middleware.RateLimitFilter)
	}
	beego.Router("/api/roulette", &api.RouletteController{}, "post:Create")
	beego.Router("/api/roulette/event", &api.RouletteController{}, "post:Event")
	beego.Router("/api/roulette/list", &api.RouletteController{}, "get:List")
	beego.Router("/api/roulette/:roulette_id", &api.RouletteController{}, "get:Get")

	// 参与接口：用户认证 + 限流（参与是高频入口）
	beego.InsertFilter("/api/join", beego.BeforeExec, middleware.UserAuthFilter)
	if cfg != nil && cfg.RateLimit.Enabled {
		beego.InsertFilter("/api/join", beego.BeforeExec, middleware.RateLimitFilter)
	}
	beego.Router("/api/join", &api.JoinController{}, "post:Join")

	// 订阅条件接口：用户认证
	beego.InsertFilter("/api/gate", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/gate/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/gate", &api.GateController{}, "post:Add")
	beego.Router("/api/gate/:roulette_id", &api.GateController{}, "get:List")

	// 频道绑定接口：用户认证
	beego.InsertFilter("/api/channel/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/channel/link", &api.ChannelController{}, "post:Link")
	beego.Router("/api/channel/unlink", &api.ChannelController{}, "post:Unlink")
	beego.Router("/api/channel/list", &api.ChannelController{}, "get:List")

	// 权益查询接口：用户认证
	beego.InsertFilter("/api/entitlement", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/entitlement", &api.EntitlementController{}, "get:Get")

	// ========== 管理 API（管理员Token认证） ==========

	beego.InsertFilter("/api/admin/*", beego.BeforeExec, middleware.AdminAuthFilter)
	beego.Router("/api/admin/price", &api.AdminController{}, "post:SetPrice")

	// ========== 服务间 API（网关签名认证） ==========

	// 支付确认接口：网关签名认证
	beego.InsertFilter("/api/payment/confirm", beego.BeforeExec, middleware.GatewayAuthFilter)
	beego.Router("/api/payment/confirm", &api.PaymentController{}, "post:Confirm")
}
