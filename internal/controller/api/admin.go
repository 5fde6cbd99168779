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

type AdminController struct{ beego.Controller }

// SetPrice 更新定价：POST /api/admin/price?tier=1&value=100
// tier: 1=包月 2=单次；value 为 Star 整数价格
func (c *AdminController) SetPrice() {
	traceID := helper.GetTraceID(c.Ctx)

	tierStr := strings.TrimSpace(c.Ctx.Input.Query("tier"))
	valueStr := strings.TrimSpace(c.Ctx.Input.Query("value"))

	tier, err := strconv.Atoi(tierStr)
	if err != nil {
		response.BadRequest(&c.Controller, "tier must be 1|2", traceID)
		return
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		response.BadRequest(&c.Controller, "value must be positive integer", traceID)
		return
	}

	if err := newEntitlementService().SetPrice(c.Ctx.Request.Context(), tier, value); err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid tier or value", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"tier":  tier,
		"value": value,
	}, traceID)
}
