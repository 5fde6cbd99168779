package model

import (
	"context"
	"encoding/json"
	"time"

	"giveaway-server/common"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// Roulette 对应 roulettes 表
// status: 1=draft 2=open 3=closed 4=drawn 5=cancelled
// result 在开奖后写入（中奖用户ID列表的JSON），其余时间为空字符串
type Roulette struct {
	ID           int64  `db:"id"`            // 抽奖ID(主键)
	OwnerID      int64  `db:"owner_id"`      // 发起人用户ID
	ChannelID    int64  `db:"channel_id"`    // 承载频道ID
	ChannelTitle string `db:"channel_title"` // 频道标题（冗余）
	TextRaw      string `db:"text_raw"`      // 抽奖文案
	TextStyle    string `db:"text_style"`    // 文案样式(JSON字符串，透传)
	WinnersCount int    `db:"winners_count"` // 中奖名额(>=1)
	Status       int8   `db:"status"`        // 状态
	Result       string `db:"result"`        // 开奖结果(JSON: 中奖用户ID列表)
	TraceID      string `db:"trace_id"`      // 链路追踪ID
	CreatedAt    int64  `db:"created_at"`    // 创建时间(毫秒)
	UpdatedAt    int64  `db:"updated_at"`    // 更新时间(毫秒)
	ClosedAt     int64  `db:"closed_at"`     // 封盘时间(毫秒，未封盘为0)
}

// Insert 插入一条草稿状态的抽奖记录，回填自增ID
func (r *Roulette) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	r.CreatedAt = now
	r.UpdatedAt = now

	sqlStr := `INSERT INTO roulettes (owner_id, channel_id, channel_title, text_raw, text_style,
		winners_count, status, result, trace_id, created_at, updated_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, sqlStr, r.OwnerID, r.ChannelID, r.ChannelTitle, r.TextRaw, r.TextStyle,
		r.WinnersCount, r.Status, "", r.TraceID, now, now, 0)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	r.ID = id
	return nil
}

// GetRoulette 获取抽奖信息（不加锁）
func GetRoulette(ctx context.Context, exec sqlx.ExtContext, id int64) (*Roulette, error) {
	sqlStr := `SELECT id, owner_id, channel_id, channel_title, text_raw, text_style,
		winners_count, status, result, trace_id, created_at, updated_at, closed_at
		FROM roulettes WHERE id = ?`
	var r Roulette
	if err := sqlx.GetContext(ctx, exec, &r, sqlStr, id); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRouletteForUpdate 在事务中按ID加锁获取抽奖信息（用于开奖）
func GetRouletteForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*Roulette, error) {
	sqlStr := `SELECT id, owner_id, channel_id, channel_title, text_raw, text_style,
		winners_count, status, result, trace_id, created_at, updated_at, closed_at
		FROM roulettes WHERE id = ? FOR UPDATE`
	var r Roulette
	if err := sqlx.GetContext(ctx, exec, &r, sqlStr, id); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetStatus 读取当前状态码（不加锁）
func GetStatus(ctx context.Context, exec sqlx.ExtContext, id int64) (int8, error) {
	var status int8
	if err := sqlx.GetContext(ctx, exec, &status, "SELECT status FROM roulettes WHERE id = ?", id); err != nil {
		return 0, err
	}
	return status, nil
}

// UpdateStatusCAS 条件更新状态（乐观CAS）：仅当当前状态等于 expected 时生效。
// 返回是否真正更新了记录；0行表示状态已被并发方推进或不匹配，由调用方重新读取并判定。
func UpdateStatusCAS(ctx context.Context, exec sqlx.ExtContext, id int64, expected, next int8) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE roulettes SET status = ?, updated_at = ? WHERE id = ? AND status = ?"
	res, err := exec.ExecContext(ctx, sqlStr, next, now, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkClosed 条件封盘：open -> closed，并记录封盘时间
func MarkClosed(ctx context.Context, exec sqlx.ExtContext, id int64, expected, next int8) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE roulettes SET status = ?, closed_at = ?, updated_at = ? WHERE id = ? AND status = ?"
	res, err := exec.ExecContext(ctx, sqlStr, next, now, now, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetResult 写入开奖结果（中奖用户ID列表JSON），状态由调用方先行CAS推进
func SetResult(ctx context.Context, exec sqlx.ExtContext, id int64, winners []int64) error {
	b, err := json.Marshal(winners)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE roulettes SET result = ?, updated_at = ? WHERE id = ?"
	_, err = exec.ExecContext(ctx, sqlStr, string(b), now, id)
	return err
}

// WinnerIDs 解析 result 字段为中奖用户ID列表（未开奖返回空）
func (r *Roulette) WinnerIDs() []int64 {
	if r.Result == "" {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(r.Result), &ids); err != nil {
		return nil
	}
	return ids
}

// RouletteSnapshot 提供 GET 接口所需的最小字段集合
type RouletteSnapshot struct {
	ID           int64  `db:"id"`
	OwnerID      int64  `db:"owner_id"`
	ChannelID    int64  `db:"channel_id"`
	ChannelTitle string `db:"channel_title"`
	TextRaw      string `db:"text_raw"`
	WinnersCount int    `db:"winners_count"`
	Status       int8   `db:"status"`
	Result       string `db:"result"`
	CreatedAt    int64  `db:"created_at"`
	ClosedAt     int64  `db:"closed_at"`
}

// GetRouletteSnapshot 按ID查询快照字段（无锁读取）
func GetRouletteSnapshot(ctx context.Context, exec sqlx.ExtContext, id int64) (*RouletteSnapshot, error) {
	sqlStr := `SELECT id, owner_id, channel_id, channel_title, text_raw, winners_count,
		status, result, created_at, closed_at
		FROM roulettes WHERE id = ?`
	var rs RouletteSnapshot
	if err := sqlx.GetContext(ctx, exec, &rs, sqlStr, id); err != nil {
		return nil, err
	}
	return &rs, nil
}

// ListByOwner 查询发起人名下的抽奖列表（按创建时间倒序）
func ListByOwner(ctx context.Context, db *sqlx.DB, ownerID int64, limit int) ([]RouletteSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100 // 最多返回 100 条
	}

	var list []RouletteSnapshot
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     db,
		Table:  "roulettes",
		Fields: common.EnumFields(RouletteSnapshot{}),
		Ex:     []exp.Expression{g.Ex{"owner_id": ownerID}},
		Order:  []exp.OrderedExpression{g.C("created_at").Desc()},
		Limit:  uint(limit),
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
