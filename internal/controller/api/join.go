package api

import (
	"errors"

	helper "giveaway-server/internal/common/helper"
	"giveaway-server/internal/common/response"
	"giveaway-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newJoinService = service.NewJoinService

type JoinController struct{ beego.Controller }

// Join 参与抽奖：POST /api/join
// 重复参与不算错误，返回首次参与的结果（duplicate=true）
func (c *JoinController) Join() {
	traceID := helper.GetTraceID(c.Ctx)

	jp, ok, msg := helper.ParseAndValidateJoin(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	userID := ctxUserID(c.Ctx)
	if userID <= 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}
	username := jp.Username
	if username == "" {
		username = ctxUsername(c.Ctx)
	}

	out, err := newJoinService().Join(c.Ctx.Request.Context(), service.JoinInput{
		RouletteID:   jp.RouletteID,
		UserID:       userID,
		Username:     username,
		CaptchaID:    jp.CaptchaID,
		CaptchaValue: jp.CaptchaValue,
		TraceID:      traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRouletteNotFound):
			response.NotFound(&c.Controller, "抽奖不存在", traceID)
		case errors.Is(err, service.ErrRouletteNotOpen):
			response.Conflict(&c.Controller, response.CodeRouletteNotOpen, traceID)
		case errors.Is(err, service.ErrAntibotFailed):
			response.Error(&c.Controller, 403, response.CodeAntibotFailed, traceID)
		case errors.Is(err, service.ErrBadRequest):
			response.BadRequest(&c.Controller, "invalid request", traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}

	response.Success(&c.Controller, out, traceID)
}
