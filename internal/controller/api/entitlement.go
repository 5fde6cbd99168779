package api

import (
	helper "giveaway-server/internal/common/helper"
	"giveaway-server/internal/common/response"
	"giveaway-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newEntitlementService = service.NewEntitlementService

type EntitlementController struct{ beego.Controller }

// Get 查询当前用户权益：GET /api/entitlement
func (c *EntitlementController) Get() {
	traceID := helper.GetTraceID(c.Ctx)

	userID := ctxUserID(c.Ctx)
	if userID <= 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	view, err := newEntitlementService().GetEntitlement(c.Ctx.Request.Context(), userID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, view, traceID)
}

// Prices 查询当前定价：GET /api/prices（无需认证）
func (c *EntitlementController) Prices() {
	traceID := helper.GetTraceID(c.Ctx)

	prices, err := newEntitlementService().GetPrices(c.Ctx.Request.Context())
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, prices, traceID)
}
