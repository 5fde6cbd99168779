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

var newChannelService = service.NewChannelService

type ChannelController struct{ beego.Controller }

// Link 绑定频道：POST /api/channel/link
// 重复绑定幂等返回已有记录
func (c *ChannelController) Link() {
	traceID := helper.GetTraceID(c.Ctx)

	cp, ok, msg := helper.ParseAndValidateChannelLink(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	ownerID := ctxUserID(c.Ctx)
	if ownerID <= 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	id, err := newChannelService().LinkChannel(c.Ctx.Request.Context(), service.LinkChannelInput{
		OwnerID:      ownerID,
		ChannelID:    cp.ChannelID,
		ChannelTitle: cp.ChannelTitle,
		Username:     cp.Username,
		TraceID:      traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"link_id":    id,
		"channel_id": cp.ChannelID,
	}, traceID)
}

// Unlink 解绑频道：POST /api/channel/unlink
func (c *ChannelController) Unlink() {
	traceID := helper.GetTraceID(c.Ctx)

	ownerID := ctxUserID(c.Ctx)
	if ownerID <= 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	cidStr := strings.TrimSpace(c.Ctx.Input.Query("channel_id"))
	cid, err := strconv.ParseInt(cidStr, 10, 64)
	if err != nil || cid == 0 {
		response.BadRequest(&c.Controller, "channel_id must be integer", traceID)
		return
	}

	if err := newChannelService().UnlinkChannel(c.Ctx.Request.Context(), ownerID, cid); err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			response.NotFound(&c.Controller, "频道绑定不存在", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"channel_id": cid,
		"unlinked":   true,
	}, traceID)
}

// List 查询已绑定频道：GET /api/channel/list
func (c *ChannelController) List() {
	traceID := helper.GetTraceID(c.Ctx)

	ownerID := ctxUserID(c.Ctx)
	if ownerID <= 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	links, err := newChannelService().ListChannels(c.Ctx.Request.Context(), ownerID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"items": links,
		"count": len(links),
	}, traceID)
}
