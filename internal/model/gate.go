package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RouletteGate 对应 roulette_gates 表（订阅门槛频道）
// 唯一索引 uq(roulette_id, channel_id)：同一频道不重复挂载
type RouletteGate struct {
	ID           int64  `db:"id"`            // 自增ID
	RouletteID   int64  `db:"roulette_id"`   // 抽奖ID
	ChannelID    int64  `db:"channel_id"`    // 门槛频道ID
	ChannelTitle string `db:"channel_title"` // 频道标题（冗余）
	InviteLink   string `db:"invite_link"`   // 频道邀请链接（公示用）
	CreatedAt    int64  `db:"created_at"`    // 创建时间(毫秒)
}

// Insert 插入一条门槛记录
func (g *RouletteGate) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	g.CreatedAt = now

	sqlStr := "INSERT INTO roulette_gates (roulette_id, channel_id, channel_title, invite_link, created_at) VALUES (?, ?, ?, ?, ?)"
	res, err := exec.ExecContext(ctx, sqlStr, g.RouletteID, g.ChannelID, g.ChannelTitle, g.InviteLink, now)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	g.ID = id
	return nil
}

// ListGates 查询某抽奖的全部门槛频道
func ListGates(ctx context.Context, exec sqlx.ExtContext, rouletteID int64) ([]RouletteGate, error) {
	sqlStr := `SELECT id, roulette_id, channel_id, channel_title, invite_link, created_at
		FROM roulette_gates WHERE roulette_id = ? ORDER BY id ASC`
	var list []RouletteGate
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, rouletteID); err != nil {
		return nil, err
	}
	return list, nil
}

// CountGates 统计某抽奖已挂载的门槛数量
func CountGates(ctx context.Context, exec sqlx.ExtContext, rouletteID int64) (int64, error) {
	var cnt int64
	if err := sqlx.GetContext(ctx, exec, &cnt, "SELECT COUNT(1) FROM roulette_gates WHERE roulette_id = ?", rouletteID); err != nil {
		return 0, err
	}
	return cnt, nil
}
