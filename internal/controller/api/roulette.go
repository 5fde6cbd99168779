package api

import (
	"errors"
	"strconv"
	"strings"

	helper "giveaway-server/internal/common/helper"
	"giveaway-server/internal/common/response"
	"giveaway-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	beegocontext "github.com/beego/beego/v2/server/web/context"

	mysqlerr "github.com/go-sql-driver/mysql"
)

var (
	newRouletteService = service.NewRouletteService
	newDrawService     = service.NewDrawService
)

type RouletteController struct{ beego.Controller }

// Create 创建抽奖：POST /api/roulette
// 必填：channel_id、winners_count(>=1)；发起人取自认证中间件注入的 user_id
func (c *RouletteController) Create() {
	traceID := helper.GetTraceID(c.Ctx)

	// 1) 解析入参与基本校验
	// 这里必须要对业务参数严格校验，后续service不再重复校验
	rp, ok, msg := helper.ParseAndValidateRouletteCreate(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	ownerID := ctxUserID(c.Ctx)
	if ownerID <= 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	svc := newRouletteService()
	id, err := svc.CreateRoulette(c.Ctx.Request.Context(), service.CreateRouletteInput{
		OwnerID:      ownerID,
		ChannelID:    rp.ChannelID,
		ChannelTitle: rp.ChannelTitle,
		TextRaw:      rp.TextRaw,
		TextStyle:    rp.TextStyle,
		WinnersCount: rp.WinnersCount,
		TraceID:      traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrChannelNotLinked) {
			response.Error(&c.Controller, 409, response.CodeChannelNotLinked, traceID)
			return
		}
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"roulette_id": id,
		"status":      "draft",
	}, traceID)
}

// Event 生命周期事件：POST /api/roulette/event
// event_type: 1=publish 2=close 3=confirm_draw 4=cancel
// confirm_draw 内部走开奖流程，其余走状态机流转
func (c *RouletteController) Event() {
	traceID := helper.GetTraceID(c.Ctx)

	ep, ok, msg := helper.ParseAndValidateRouletteEvent(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	ownerID := ctxUserID(c.Ctx)
	operator := ctxUsername(c.Ctx)
	if operator == "" {
		operator = "system"
	}

	// confirm_draw 单独处理：涉及选取与开奖日志
	if ep.EventType == service.EventConfirmDraw {
		out, err := newDrawService().ConfirmDraw(c.Ctx.Request.Context(), service.DrawInput{
			RouletteID: ep.RouletteID,
			OwnerID:    ownerID,
			Operator:   operator,
			Source:     "api",
			TraceID:    traceID,
		})
		if err != nil {
			writeEventError(c, err, traceID)
			return
		}
		response.Success(&c.Controller, map[string]interface{}{
			"roulette_id":        out.RouletteID,
			"status":             "drawn",
			"winners":            out.Winners,
			"total_participants": out.TotalParticipants,
			"idempotent":         out.Idempotent,
		}, traceID)
		return
	}

	next, err := newRouletteService().ApplyEvent(c.Ctx.Request.Context(), service.RouletteEventInput{
		RouletteID: ep.RouletteID,
		OwnerID:    ownerID,
		EventType:  ep.EventType,
		Operator:   operator,
		Source:     "api",
		TraceID:    traceID,
	})
	if err != nil {
		writeEventError(c, err, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"roulette_id": ep.RouletteID,
		"status":      next,
	}, traceID)
}

// Get 查询抽奖快照：GET /api/roulette/:roulette_id
func (c *RouletteController) Get() {
	traceID := helper.GetTraceID(c.Ctx)

	idStr := c.Ctx.Input.Param(":roulette_id")
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(&c.Controller, "roulette_id must be integer", traceID)
		return
	}

	snap, err := newRouletteService().GetRoulette(c.Ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRouletteNotFound) {
			response.NotFound(&c.Controller, "抽奖不存在", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, snap, traceID)
}

// List 查询当前用户发起的抽奖：GET /api/roulette/list
func (c *RouletteController) List() {
	traceID := helper.GetTraceID(c.Ctx)

	ownerID := ctxUserID(c.Ctx)
	if ownerID <= 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	limit := 0
	if s := strings.TrimSpace(c.Ctx.Input.Query("limit")); s != "" {
		limit, _ = strconv.Atoi(s)
	}

	rows, err := newRouletteService().ListByOwner(c.Ctx.Request.Context(), ownerID, limit)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"items": rows,
		"count": len(rows),
	}, traceID)
}

// writeEventError 将服务层错误映射为响应
func writeEventError(c *RouletteController, err error, traceID string) {
	if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
		response.Conflict(&c.Controller, response.CodeDuplicateKey, traceID)
		return
	}
	switch {
	case errors.Is(err, service.ErrRouletteNotFound):
		response.NotFound(&c.Controller, "抽奖不存在", traceID)
	case errors.Is(err, service.ErrNotOwner):
		response.Error(&c.Controller, 403, response.CodeNotOwner, traceID)
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(&c.Controller, response.CodeInvalidTransition, traceID)
	case errors.Is(err, service.ErrInvalidStateDraw):
		response.Conflict(&c.Controller, response.CodeInvalidTransition, traceID)
	case errors.Is(err, service.ErrBadRequest):
		response.BadRequest(&c.Controller, "invalid request", traceID)
	default:
		response.InternalError(&c.Controller, traceID)
	}
}

// ctxUserID 从认证中间件注入的数据中提取用户ID
func ctxUserID(ctx *beegocontext.Context) int64 {
	v := ctx.Input.GetData("user_id")
	if v == nil {
		return 0
	}
	if id, ok := v.(int64); ok {
		return id
	}
	return 0
}

// ctxUsername 从认证中间件注入的数据中提取用户名
func ctxUsername(ctx *beegocontext.Context) string {
	v := ctx.Input.GetData("username")
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
