package api

import (
	"errors"

	helper "giveaway-server/internal/common/helper"
	"giveaway-server/internal/common/response"
	"giveaway-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"

	mysqlerr "github.com/go-sql-driver/mysql"
)

var newPaymentService = service.NewPaymentService

type PaymentController struct{ beego.Controller }

// Confirm 支付确认：POST /api/payment/confirm
// 由机器人网关回调（网关签名认证），payment_ref 为幂等键，
// 重复确认不算错误，返回首次处理的结果（duplicate=true）
func (c *PaymentController) Confirm() {
	traceID := helper.GetTraceID(c.Ctx)

	pp, ok, msg := helper.ParseAndValidatePaymentConfirm(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	out, err := newPaymentService().ProcessPayment(c.Ctx.Request.Context(), service.PaymentInput{
		PaymentRef: pp.PaymentRef,
		UserID:     pp.UserID,
		Tier:       pp.Tier,
		Amount:     pp.Amount,
		TraceID:    traceID,
	})
	if err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			response.Conflict(&c.Controller, response.CodeDuplicateKey, traceID)
			return
		}
		switch {
		case errors.Is(err, service.ErrBadAmount):
			response.BadRequest(&c.Controller, "金额格式不合法", traceID)
		case errors.Is(err, service.ErrBadRequest):
			response.BadRequest(&c.Controller, "invalid request", traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}

	response.Success(&c.Controller, out, traceID)
}
