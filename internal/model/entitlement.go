package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// EntitlementGrant 对应 entitlement_grants 表（门槛功能的权益账户）
// 唯一索引 uq(user_id)：每个用户一行
// subscription_expires_at: 订阅到期时间(毫秒)，0=从未订阅
// credit_balance: 一次性次数余额，扣减必须走条件更新防止负数
type EntitlementGrant struct {
	ID                    int64 `db:"id"`                      // 自增ID
	UserID                int64 `db:"user_id"`                 // 用户ID
	SubscriptionExpiresAt int64 `db:"subscription_expires_at"` // 订阅到期时间(毫秒)
	CreditBalance         int64 `db:"credit_balance"`          // 次数余额
	CreatedAt             int64 `db:"created_at"`              // 创建时间
	UpdatedAt             int64 `db:"updated_at"`              // 更新时间
}

// GetGrant 查询用户权益（不存在返回 sql.ErrNoRows）
func GetGrant(ctx context.Context, exec sqlx.ExtContext, userID int64) (*EntitlementGrant, error) {
	sqlStr := `SELECT id, user_id, subscription_expires_at, credit_balance, created_at, updated_at
		FROM entitlement_grants WHERE user_id = ? LIMIT 1`
	var g EntitlementGrant
	if err := sqlx.GetContext(ctx, exec, &g, sqlStr, userID); err != nil {
		return nil, err
	}
	return &g, nil
}

// HasActiveSubscription 订阅是否有效（到期时间晚于当前时间）
func (g *EntitlementGrant) HasActiveSubscription(nowMs int64) bool {
	return g.SubscriptionExpiresAt > nowMs
}

// 叠加订阅语句：到期时间 = GREATEST(当前到期, now) + 延长时长。
// GREATEST 必须在数据库侧计算，保证并发续费时基于行内最新值顺延而非回退
const upsertSubscriptionSQL = `INSERT INTO entitlement_grants (user_id, subscription_expires_at, credit_balance, created_at, updated_at)
		VALUES (?, ? + ?, 0, ?, ?)
		ON DUPLICATE KEY UPDATE
			subscription_expires_at = GREATEST(subscription_expires_at, ?) + ?,
			updated_at = ?`

// upsertSubscriptionArgs 按占位符顺序组装参数：插入分支 now+extend，更新分支 GREATEST(当前, now)+extend
func upsertSubscriptionArgs(userID, nowMs, extendMs int64) []interface{} {
	return []interface{}{userID, nowMs, extendMs, nowMs, nowMs, nowMs, extendMs, nowMs}
}

// UpsertSubscription 叠加订阅：到期时间 = max(now, 当前到期) + 延长时长。
// 已有订阅在原到期时间上顺延，已过期则从当前时间起算，绝不回退。
func UpsertSubscription(ctx context.Context, exec sqlx.ExtContext, userID int64, extendMs int64) error {
	now := time.Now().UnixMilli()
	_, err := exec.ExecContext(ctx, upsertSubscriptionSQL, upsertSubscriptionArgs(userID, now, extendMs)...)
	return err
}

// AddCredits 增加一次性次数余额（不存在则创建账户）
func AddCredits(ctx context.Context, exec sqlx.ExtContext, userID int64, n int64) error {
	now := time.Now().UnixMilli()

	sqlStr := `INSERT INTO entitlement_grants (user_id, subscription_expires_at, credit_balance, created_at, updated_at)
		VALUES (?, 0, ?, ?, ?)
		ON DUPLICATE KEY UPDATE credit_balance = credit_balance + ?, updated_at = ?`
	_, err := exec.ExecContext(ctx, sqlStr, userID, n, now, now, n, now)
	return err
}

// ConsumeOneCredit 条件扣减一次次数：仅当余额>0时生效。
// 返回是否扣减成功；并发场景下后到的请求即使曾读到余额1也会在这里落败。
func ConsumeOneCredit(ctx context.Context, exec sqlx.ExtContext, userID int64) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE entitlement_grants SET credit_balance = credit_balance - 1, updated_at = ? WHERE user_id = ? AND credit_balance > 0"
	res, err := exec.ExecContext(ctx, sqlStr, now, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountExpiredSubscriptions 统计已过期但到期时间非0的订阅数（巡检用，只读）
func CountExpiredSubscriptions(ctx context.Context, exec sqlx.ExtContext, nowMs int64) (int64, error) {
	var cnt int64
	sqlStr := "SELECT COUNT(1) FROM entitlement_grants WHERE subscription_expires_at > 0 AND subscription_expires_at <= ?"
	if err := sqlx.GetContext(ctx, exec, &cnt, sqlStr, nowMs); err != nil {
		return 0, err
	}
	return cnt, nil
}
