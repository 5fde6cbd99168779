package api

import (
	helper "giveaway-server/internal/common/helper"
	"giveaway-server/internal/common/response"
	"giveaway-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newAntibotService = service.NewAntibotService

type AntibotController struct{ beego.Controller }

// Challenge 获取人机校验挑战：GET /api/antibot/challenge
// 仅在 antibot_challenge 功能开关打开时有意义；返回验证码图片（base64）
func (c *AntibotController) Challenge() {
	traceID := helper.GetTraceID(c.Ctx)

	out, err := newAntibotService().CreateChallenge(c.Ctx.Request.Context())
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, out, traceID)
}
