package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RouletteEventAudit 对应 roulette_event_audit 表（状态机审计）
// event_type 采用数值枚举（1=publish 2=close 3=confirm_draw 4=cancel）
// prev_state/next_state 使用字符串快照，便于直观查询
type RouletteEventAudit struct {
	ID int64 `db:"id"`
	// 抽奖ID
	RouletteID int64 `db:"roulette_id"`
	// 发起人用户ID
	OwnerID int64 `db:"owner_id"`
	// 事件类型（数值：1=publish 2=close 3=confirm_draw 4=cancel）
	EventType int8   `db:"event_type"`
	PrevState string `db:"prev_state"`
	NextState string `db:"next_state"`
	Operator  string `db:"operator"`
	Source    string `db:"source"`
	Payload   string `db:"payload"`
	TraceID   string `db:"trace_id"`
	CreatedAt int64  `db:"created_at"`
}

// Insert
func (e *RouletteEventAudit) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO roulette_event_audit (roulette_id, owner_id, event_type, prev_state, next_state, operator, source, payload, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{e.RouletteID, e.OwnerID, e.EventType, e.PrevState, e.NextState, e.Operator, e.Source, e.Payload, e.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}
