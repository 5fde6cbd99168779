package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// DrawLog 开奖日志表（防止重复开奖）
// 唯一索引 uq(roulette_id)：一个抽奖至多开奖一次，唯一键冲突即重复开奖
type DrawLog struct {
	ID                int64  `db:"id"`                 // 自增ID
	RouletteID        int64  `db:"roulette_id"`        // 抽奖ID
	Winners           string `db:"winners"`            // 中奖用户ID列表(JSON)
	TotalParticipants int    `db:"total_participants"` // 参与总人数
	Operator          string `db:"operator"`           // 操作人
	TraceID           string `db:"trace_id"`           // 链路追踪ID
	CreatedAt         int64  `db:"created_at"`         // 创建时间（13位毫秒时间戳）
}

// CreateDrawLog 创建开奖日志（利用唯一索引防止重复开奖）
// 如果返回唯一键冲突错误，说明该抽奖已经开过奖
func CreateDrawLog(ctx context.Context, exec sqlx.ExtContext, log *DrawLog) error {
	now := time.Now().UnixMilli()
	log.CreatedAt = now

	sqlStr := `INSERT INTO draw_logs (roulette_id, winners, total_participants, operator, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, sqlStr,
		log.RouletteID, log.Winners, log.TotalParticipants, log.Operator, log.TraceID, log.CreatedAt)

	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	log.ID = id

	return nil
}

// GetDrawLog 查询开奖日志
func GetDrawLog(ctx context.Context, exec sqlx.ExtContext, rouletteID int64) (*DrawLog, error) {
	sqlStr := `SELECT id, roulette_id, winners, total_participants, operator, trace_id, created_at
	           FROM draw_logs WHERE roulette_id = ? LIMIT 1`

	var log DrawLog
	if err := sqlx.GetContext(ctx, exec, &log, sqlStr, rouletteID); err != nil {
		return nil, err
	}

	return &log, nil
}
