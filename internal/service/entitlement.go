package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	infmysql "giveaway-server/internal/infra/mysql"
	"giveaway-server/internal/model"
)

type EntitlementView struct {
	UserID                int64 `json:"user_id"`
	SubscriptionActive    bool  `json:"subscription_active"`
	SubscriptionExpiresAt int64 `json:"subscription_expires_at"`
	CreditBalance         int64 `json:"credit_balance"`
}

type PriceView struct {
	Month int64 `json:"month"` // 包月价格（Star）
	Once  int64 `json:"once"`  // 单次价格（Star）
}

type EntitlementService interface {
	GetEntitlement(ctx context.Context, userID int64) (*EntitlementView, error)
	GetPrices(ctx context.Context) (*PriceView, error)
	SetPrice(ctx context.Context, tier int, value int64) error
}

type entitlementService struct{}

func NewEntitlementService() EntitlementService { return &entitlementService{} }

// GetEntitlement 查询用户权益（无账户视为零权益，不报错）
func (s *entitlementService) GetEntitlement(ctx context.Context, userID int64) (*EntitlementView, error) {
	if userID <= 0 {
		return nil, ErrBadRequest
	}

	g, err := model.GetGrant(ctx, infmysql.SQLX(), userID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return &EntitlementView{UserID: userID}, nil
		}
		return nil, err
	}

	now := time.Now().UnixMilli()
	return &EntitlementView{
		UserID:                userID,
		SubscriptionActive:    g.HasActiveSubscription(now),
		SubscriptionExpiresAt: g.SubscriptionExpiresAt,
		CreditBalance:         g.CreditBalance,
	}, nil
}

// GetPrices 查询当前定价（app_settings 动态定价，缺省回退默认值）
func (s *entitlementService) GetPrices(ctx context.Context) (*PriceView, error) {
	db := infmysql.SQLX()

	month, err := model.GetSettingInt(ctx, db, model.SettingPriceMonth, model.DefaultPriceMonth)
	if err != nil {
		return nil, err
	}
	once, err := model.GetSettingInt(ctx, db, model.SettingPriceOnce, model.DefaultPriceOnce)
	if err != nil {
		return nil, err
	}

	return &PriceView{Month: month, Once: once}, nil
}

// SetPrice 更新定价（管理接口），立即对后续支付校验生效
func (s *entitlementService) SetPrice(ctx context.Context, tier int, value int64) error {
	if value <= 0 {
		return ErrBadRequest
	}

	var key string
	switch tier {
	case TierSubscription:
		key = model.SettingPriceMonth
	case TierCredit:
		key = model.SettingPriceOnce
	default:
		return ErrBadRequest
	}

	return model.SetSetting(ctx, infmysql.SQLX(), key, strconv.FormatInt(value, 10))
}
