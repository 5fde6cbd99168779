package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Purchase 对应 purchases 表（支付成功事件的落库审计，只增不改）
// 唯一索引 uq(payment_ref)：同一支付事件只入账一次
// tier: 1=subscription(包月) 2=credit(单次)，字符串冗余便于直观查询
type Purchase struct {
	ID         int64   `db:"id"`          // 自增ID
	PaymentRef string  `db:"payment_ref"` // 支付平台流水号(幂等键)
	UserID     int64   `db:"user_id"`     // 付款用户ID
	Tier       int8    `db:"tier"`        // 档位
	TierStr    string  `db:"tier_str"`    // 档位冗余: subscription|credit
	Amount     float64 `db:"amount"`      // 支付金额(Star)
	TraceID    string  `db:"trace_id"`    // 链路追踪ID
	CreatedAt  int64   `db:"created_at"`  // 入账时间(毫秒)
}

// Insert 插入一条支付记录（唯一键冲突=重复支付事件，由调用方吸收）
func (p *Purchase) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	p.CreatedAt = now

	sqlStr := "INSERT INTO purchases (payment_ref, user_id, tier, tier_str, amount, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	res, err := exec.ExecContext(ctx, sqlStr, p.PaymentRef, p.UserID, p.Tier, p.TierStr, p.Amount, p.TraceID, now)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	p.ID = id
	return nil
}

// GetPurchaseByRef 按支付流水号查询首次入账记录
func GetPurchaseByRef(ctx context.Context, exec sqlx.ExtContext, paymentRef string) (*Purchase, error) {
	sqlStr := `SELECT id, payment_ref, user_id, tier, tier_str, amount, trace_id, created_at
		FROM purchases WHERE payment_ref = ? LIMIT 1`
	var p Purchase
	if err := sqlx.GetContext(ctx, exec, &p, sqlStr, paymentRef); err != nil {
		return nil, err
	}
	return &p, nil
}
