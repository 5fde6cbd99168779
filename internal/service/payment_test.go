package service

import (
	"testing"
	"time"

	decimal "github.com/shopspring/decimal"
)

func TestTierToString(t *testing.T) {
	cases := []struct {
		tier int
		want string
	}{
		{TierSubscription, "subscription"},
		{TierCredit, "credit"},
		{0, "unknown"},
		{3, "unknown"},
	}
	for _, c := range cases {
		if got := tierToString(c.tier); got != c.want {
			t.Fatalf("tierToString(%d) = %s, want %s", c.tier, got, c.want)
		}
	}
}

func TestSubscriptionExtendDuration(t *testing.T) {
	// 包月固定延长 30 天
	if subscriptionExtendMs != 30*24*int64(time.Hour/time.Millisecond) {
		t.Fatalf("subscriptionExtendMs = %d", subscriptionExtendMs)
	}
}

func TestPriceMismatch(t *testing.T) {
	// 精确相等不算差异（含小数表示与尾零）
	equal := []string{"100", "100.0", "100.00"}
	for _, s := range equal {
		a, err := decimal.NewFromString(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if priceMismatch(a, 100) {
			t.Fatalf("priceMismatch(%s, 100) = true, want false", s)
		}
	}

	// 差一分也算差异：定价调整期间的在途订单按实付金额入账并标记
	diff := []string{"99.99", "100.01", "50", "0"}
	for _, s := range diff {
		a, err := decimal.NewFromString(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if !priceMismatch(a, 100) {
			t.Fatalf("priceMismatch(%s, 100) = false, want true", s)
		}
	}
}
