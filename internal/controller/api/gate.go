package api

import (
	"errors"
	"strconv"
	"strings"

	helper "giveaway-server/internal/common/helper"
	"giveaway-server/internal/common/response"
	"giveaway-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newGateService = service.NewGateService

type GateController struct{ beego.Controller }

// Add 添加订阅条件：POST /api/gate
// 付费功能：有效订阅期内免扣，否则扣一次次数余额
func (c *GateController) Add() {
	traceID := helper.GetTraceID(c.Ctx)

	gp, ok, msg := helper.ParseAndValidateGate(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	ownerID := ctxUserID(c.Ctx)
	if ownerID <= 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	out, err := newGateService().AddGate(c.Ctx.Request.Context(), service.AddGateInput{
		RouletteID:   gp.RouletteID,
		OwnerID:      ownerID,
		ChannelID:    gp.ChannelID,
		ChannelTitle: gp.ChannelTitle,
		InviteLink:   gp.InviteLink,
		TraceID:      traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRouletteNotFound):
			response.NotFound(&c.Controller, "抽奖不存在", traceID)
		case errors.Is(err, service.ErrNotOwner):
			response.Error(&c.Controller, 403, response.CodeNotOwner, traceID)
		case errors.Is(err, service.ErrInvalidTransition):
			response.Conflict(&c.Controller, response.CodeInvalidTransition, traceID)
		case errors.Is(err, service.ErrEntitlementRequired):
			response.Error(&c.Controller, 402, response.CodeEntitlementRequired, traceID)
		case errors.Is(err, service.ErrDuplicateGate):
			response.Conflict(&c.Controller, response.CodeDuplicateKey, traceID)
		case errors.Is(err, service.ErrTooManyGates):
			response.ErrorWithMessage(&c.Controller, 400, response.CodeBadRequest, "订阅条件数量已达上限", traceID)
		case errors.Is(err, service.ErrBadRequest):
			response.BadRequest(&c.Controller, "invalid request", traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}

	response.Success(&c.Controller, out, traceID)
}

// List 查询订阅条件列表：GET /api/gate/:roulette_id
func (c *GateController) List() {
	traceID := helper.GetTraceID(c.Ctx)

	idStr := c.Ctx.Input.Param(":roulette_id")
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(&c.Controller, "roulette_id must be integer", traceID)
		return
	}

	gates, err := newGateService().ListGates(c.Ctx.Request.Context(), id)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"items": gates,
		"count": len(gates),
	}, traceID)
}
