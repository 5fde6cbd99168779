package model

import (
	"strings"
	"testing"
)

// 续费必须在既有到期时间上顺延（GREATEST 取 max(当前到期, now) 再加时长），
// 不能重置为 now+时长，否则提前续费会吞掉剩余订阅期
func TestUpsertSubscriptionStacksExpiry(t *testing.T) {
	if !strings.Contains(upsertSubscriptionSQL, "GREATEST(subscription_expires_at, ?) + ?") {
		t.Fatalf("duplicate-key branch must stack on GREATEST(current, now), got: %s", upsertSubscriptionSQL)
	}
	if strings.Contains(upsertSubscriptionSQL, "subscription_expires_at = ? + ?") {
		t.Fatalf("duplicate-key branch must not reset expiry to now+extend")
	}
	// 首次订阅：从 now 起算
	if !strings.Contains(upsertSubscriptionSQL, "VALUES (?, ? + ?, 0, ?, ?)") {
		t.Fatalf("insert branch must start from now+extend, got: %s", upsertSubscriptionSQL)
	}
}

func TestUpsertSubscriptionArgsOrder(t *testing.T) {
	const (
		userID   = int64(7)
		nowMs    = int64(1700000000000)
		extendMs = int64(2592000000)
	)
	args := upsertSubscriptionArgs(userID, nowMs, extendMs)

	want := []interface{}{userID, nowMs, extendMs, nowMs, nowMs, nowMs, extendMs, nowMs}
	if len(args) != len(want) {
		t.Fatalf("args length = %d, want %d", len(args), len(want))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %v, want %v", i, args[i], want[i])
		}
	}
	// 占位符数量与参数一一对应
	if n := strings.Count(upsertSubscriptionSQL, "?"); n != len(args) {
		t.Fatalf("statement has %d placeholders, args has %d", n, len(args))
	}
}

func TestHasActiveSubscription(t *testing.T) {
	g := &EntitlementGrant{SubscriptionExpiresAt: 2000}
	if !g.HasActiveSubscription(1999) {
		t.Fatalf("expiry after now should be active")
	}
	if g.HasActiveSubscription(2000) {
		t.Fatalf("expiry equal to now should be inactive")
	}
	var zero EntitlementGrant
	if zero.HasActiveSubscription(0) {
		t.Fatalf("never-subscribed account should be inactive")
	}
}
