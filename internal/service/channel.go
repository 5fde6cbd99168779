package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	infmysql "giveaway-server/internal/infra/mysql"
	"giveaway-server/internal/model"
)

type LinkChannelInput struct {
	OwnerID      int64
	ChannelID    int64
	ChannelTitle string
	Username     string
	TraceID      string
}

type ChannelService interface {
	LinkChannel(ctx context.Context, in LinkChannelInput) (int64, error)
	UnlinkChannel(ctx context.Context, ownerID, channelID int64) error
	ListChannels(ctx context.Context, ownerID int64) ([]model.ChannelLink, error)
}

type channelService struct{}

func NewChannelService() ChannelService { return &channelService{} }

// LinkChannel 绑定频道（发起抽奖的前置条件）
// 唯一索引 uq(owner_id, channel_id)：重复绑定幂等返回已有记录
func (s *channelService) LinkChannel(ctx context.Context, in LinkChannelInput) (int64, error) {
	if in.OwnerID <= 0 || in.ChannelID == 0 {
		return 0, ErrBadRequest
	}

	db := infmysql.SQLX()

	l := &model.ChannelLink{
		OwnerID:      in.OwnerID,
		ChannelID:    in.ChannelID,
		ChannelTitle: in.ChannelTitle,
		Username:     in.Username,
	}
	if err := l.Insert(ctx, db); err != nil {
		if isMySQLDuplicateKeyError(err) {
			prior, gerr := model.GetChannelLink(ctx, db, in.OwnerID, in.ChannelID)
			if gerr != nil {
				return 0, gerr
			}
			fmt.Printf("[Channel] 频道已绑定，幂等返回: owner_id=%d, channel_id=%d, trace_id=%s\n",
				in.OwnerID, in.ChannelID, in.TraceID)
			return prior.ID, nil
		}
		return 0, err
	}

	fmt.Printf("[Channel] 绑定频道成功: owner_id=%d, channel_id=%d, link_id=%d, trace_id=%s\n",
		in.OwnerID, in.ChannelID, l.ID, in.TraceID)

	return l.ID, nil
}

// UnlinkChannel 解绑频道
func (s *channelService) UnlinkChannel(ctx context.Context, ownerID, channelID int64) error {
	if ownerID <= 0 || channelID == 0 {
		return ErrBadRequest
	}

	deleted, err := model.DeleteChannelLink(ctx, infmysql.SQLX(), ownerID, channelID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrLinkNotFound
	}
	return nil
}

// ListChannels 查询发起人绑定的频道列表
func (s *channelService) ListChannels(ctx context.Context, ownerID int64) ([]model.ChannelLink, error) {
	if ownerID <= 0 {
		return nil, ErrBadRequest
	}
	links, err := model.ListChannelLinks(ctx, infmysql.SQLX(), ownerID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return []model.ChannelLink{}, nil
		}
		return nil, err
	}
	return links, nil
}

var ErrLinkNotFound = errors.New("channel link not found")
