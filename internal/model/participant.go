package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Participant 对应 participants 表
// 唯一索引 uq(roulette_id, user_id)：同一用户同一抽奖只能参与一次（天然幂等）
// 只增不改：参与记录一旦写入不再更新
type Participant struct {
	ID         int64  `db:"id"`          // 自增ID
	RouletteID int64  `db:"roulette_id"` // 抽奖ID
	UserID     int64  `db:"user_id"`     // 参与用户ID
	Username   string `db:"username"`    // 用户名（冗余，用于公示）
	JoinedAt   int64  `db:"joined_at"`   // 参与时间(毫秒)
	TraceID    string `db:"trace_id"`    // 链路追踪ID
}

// InsertIfOpen 条件插入参与记录：仅当抽奖处于 open(2) 状态时插入。
// 通过 INSERT...SELECT 把状态校验与插入压成一条语句，已提交的封盘对后续参与立即可见。
// 返回是否真正插入；0行表示抽奖不存在或状态不是open，由调用方回读判定。
// 唯一键冲突(1062)表示重复参与，由调用方按幂等成功处理。
func InsertIfOpen(ctx context.Context, exec sqlx.ExtContext, p *Participant) (bool, error) {
	now := time.Now().UnixMilli()
	p.JoinedAt = now

	sqlStr := `INSERT INTO participants (roulette_id, user_id, username, joined_at, trace_id)
		SELECT r.id, ?, ?, ?, ? FROM roulettes r WHERE r.id = ? AND r.status = 2`
	res, err := exec.ExecContext(ctx, sqlStr, p.UserID, p.Username, now, p.TraceID, p.RouletteID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		id, _ := res.LastInsertId()
		p.ID = id
	}
	return n == 1, nil
}

// GetParticipant 按 (roulette_id, user_id) 查询参与记录
func GetParticipant(ctx context.Context, exec sqlx.ExtContext, rouletteID, userID int64) (*Participant, error) {
	sqlStr := `SELECT id, roulette_id, user_id, username, joined_at, trace_id
		FROM participants WHERE roulette_id = ? AND user_id = ? LIMIT 1`
	var p Participant
	if err := sqlx.GetContext(ctx, exec, &p, sqlStr, rouletteID, userID); err != nil {
		return nil, err
	}
	return &p, nil
}

// CountParticipants 统计参与人数
func CountParticipants(ctx context.Context, exec sqlx.ExtContext, rouletteID int64) (int64, error) {
	var cnt int64
	if err := sqlx.GetContext(ctx, exec, &cnt, "SELECT COUNT(1) FROM participants WHERE roulette_id = ?", rouletteID); err != nil {
		return 0, err
	}
	return cnt, nil
}

// ListParticipantIDs 查询某抽奖全部参与者用户ID（开奖抽样用）
// 在开奖事务内调用：此时抽奖已封盘且状态行被锁定，参与集不会再变化
func ListParticipantIDs(ctx context.Context, exec sqlx.ExtContext, rouletteID int64) ([]int64, error) {
	var ids []int64
	sqlStr := "SELECT user_id FROM participants WHERE roulette_id = ? ORDER BY id ASC"
	if err := sqlx.SelectContext(ctx, exec, &ids, sqlStr, rouletteID); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListWinners 按中奖ID列表回查参与记录（用于公示文案的用户名）
func ListWinners(ctx context.Context, exec sqlx.ExtContext, rouletteID int64, userIDs []int64) ([]Participant, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	sqlStr, args, err := sqlx.In(
		"SELECT id, roulette_id, user_id, username, joined_at, trace_id FROM participants WHERE roulette_id = ? AND user_id IN (?)",
		rouletteID, userIDs)
	if err != nil {
		return nil, err
	}
	var list []Participant
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, args...); err != nil {
		return nil, err
	}
	return list, nil
}
