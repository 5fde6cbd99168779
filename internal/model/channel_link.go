package model

import (
	"context"
	"time"

	"giveaway-server/common"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// ChannelLink 对应 channel_links 表（发起人绑定的频道）
// 唯一索引 uq(owner_id, channel_id)：同一频道不重复绑定
type ChannelLink struct {
	ID           int64  `db:"id"`            // 自增ID
	OwnerID      int64  `db:"owner_id"`      // 绑定人用户ID
	ChannelID    int64  `db:"channel_id"`    // 频道ID
	ChannelTitle string `db:"channel_title"` // 频道标题
	Username     string `db:"username"`      // 频道公开用户名(可空)
	CreatedAt    int64  `db:"created_at"`    // 绑定时间(毫秒)
}

// Insert 插入一条绑定记录（唯一键冲突=重复绑定，由调用方按幂等成功处理）
func (l *ChannelLink) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	l.CreatedAt = now

	sqlStr := "INSERT INTO channel_links (owner_id, channel_id, channel_title, username, created_at) VALUES (?, ?, ?, ?, ?)"
	res, err := exec.ExecContext(ctx, sqlStr, l.OwnerID, l.ChannelID, l.ChannelTitle, l.Username, now)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	l.ID = id
	return nil
}

// DeleteChannelLink 解绑频道，返回是否存在记录
func DeleteChannelLink(ctx context.Context, exec sqlx.ExtContext, ownerID, channelID int64) (bool, error) {
	res, err := exec.ExecContext(ctx, "DELETE FROM channel_links WHERE owner_id = ? AND channel_id = ?", ownerID, channelID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetChannelLink 查询绑定关系（不存在返回 sql.ErrNoRows）
func GetChannelLink(ctx context.Context, exec sqlx.ExtContext, ownerID, channelID int64) (*ChannelLink, error) {
	var l ChannelLink
	err := common.SelectOneCtx(ctx, exec, &l, "channel_links", common.EnumFields(ChannelLink{}),
		g.Ex{"owner_id": ownerID, "channel_id": channelID})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListChannelLinks 查询发起人绑定的全部频道
func ListChannelLinks(ctx context.Context, db *sqlx.DB, ownerID int64) ([]ChannelLink, error) {
	var list []ChannelLink
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     db,
		Table:  "channel_links",
		Fields: common.EnumFields(ChannelLink{}),
		Ex:     []exp.Expression{g.Ex{"owner_id": ownerID}},
		Order:  []exp.OrderedExpression{g.C("id").Asc()},
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
