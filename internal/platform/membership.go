package platform

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"giveaway-server/common/helper"
	"giveaway-server/common/logger"
	"giveaway-server/internal/config"
	"giveaway-server/internal/metrics"

	"go.uber.org/zap"
)

// memberResp 网关成员资格查询响应
type memberResp struct {
	Code int `json:"code"`
	Data struct {
		IsMember bool   `json:"is_member"`
		Status   string `json:"status"` // member / administrator / creator / left / kicked
	} `json:"data"`
}

// CheckChannelMembership 通过机器人网关查询用户是否已加入频道
// 任何失败（网关不可达、超时、非200、解析失败）一律按"未加入"处理，
// 避免外部故障放大为误发奖
func CheckChannelMembership(channelID, userID int64) bool {
	cfg := config.Get()
	if cfg == nil || cfg.Gateway.BaseURL == "" {
		logger.Warn("gateway not configured, treat as not member",
			zap.Int64("channel_id", channelID),
			zap.Int64("user_id", userID))
		metrics.RecordMembershipCheck("error")
		return false
	}

	uri := fmt.Sprintf("%s/internal/v1/channels/%d/members/%d",
		cfg.Gateway.BaseURL, channelID, userID)

	headers := map[string]string{
		"X-Gateway-Key": cfg.Gateway.AppKey,
		"X-Timestamp":   strconv.FormatInt(time.Now().Unix(), 10),
	}

	body, status, err := helper.HttpDoTimeout(nil, http.MethodGet, uri, headers, helper.FastTimeout)
	if err != nil {
		logger.Warn("membership check request failed",
			zap.Int64("channel_id", channelID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		metrics.RecordMembershipCheck("error")
		return false
	}
	if status != http.StatusOK {
		logger.Warn("membership check non-200",
			zap.Int64("channel_id", channelID),
			zap.Int64("user_id", userID),
			zap.Int("status", status))
		metrics.RecordMembershipCheck("error")
		return false
	}

	var out memberResp
	if err := json.Unmarshal(body, &out); err != nil {
		logger.Warn("membership check decode failed",
			zap.Int64("channel_id", channelID),
			zap.Error(err))
		metrics.RecordMembershipCheck("error")
		return false
	}

	if out.Code != 0 || !out.Data.IsMember {
		metrics.RecordMembershipCheck("not_member")
		return false
	}
	// left/kicked 状态也视为未加入
	if out.Data.Status == "left" || out.Data.Status == "kicked" {
		metrics.RecordMembershipCheck("not_member")
		return false
	}

	metrics.RecordMembershipCheck("member")
	return true
}
