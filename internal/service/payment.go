package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"giveaway-server/common/helper"
	infmysql "giveaway-server/internal/infra/mysql"
	"giveaway-server/internal/metrics"
	"giveaway-server/internal/model"

	decimal "github.com/shopspring/decimal"
)

// 订阅档位：1=subscription(包月) 2=credit(单次)
const (
	TierSubscription = 1
	TierCredit       = 2

	// 包月订阅延长时长（毫秒）
	subscriptionExtendMs = int64(30 * 24 * time.Hour / time.Millisecond)
)

type PaymentInput struct {
	PaymentRef string
	UserID     int64
	Tier       int
	Amount     string
	TraceID    string
}

type PaymentOutput struct {
	PurchaseID int64  `json:"purchase_id"`
	PaymentRef string `json:"payment_ref"`
	Tier       string `json:"tier"`
	Duplicate  bool   `json:"duplicate"`
}

type PaymentService interface {
	ProcessPayment(ctx context.Context, in PaymentInput) (*PaymentOutput, error)
}

type paymentService struct{}

func NewPaymentService() PaymentService { return &paymentService{} }

// ProcessPayment 处理 Star 支付确认（网关回调/消息）
// 幂等键：payment_ref（purchases 表唯一索引）
// tier=1 叠加 30 天订阅；tier=2 增加一次次数余额。
// 支付已在平台侧扣款成功，金额与当前定价不符时照常入账并发放权益，
// 仅记录差异供对账（定价调整期间的在途订单金额就是旧价）
func (s *paymentService) ProcessPayment(ctx context.Context, in PaymentInput) (*PaymentOutput, error) {
	if in.PaymentRef == "" || in.UserID <= 0 || (in.Tier != TierSubscription && in.Tier != TierCredit) {
		fmt.Printf("[Payment]  参数校验失败: payment_ref=%s, user_id=%d, tier=%d, trace_id=%s\n",
			in.PaymentRef, in.UserID, in.Tier, in.TraceID)
		return nil, ErrBadRequest
	}

	tierStr := tierToString(in.Tier)

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordPayment(resultLabel, tierStr, start) }()

	fmt.Printf("[Payment] 收到支付确认: payment_ref=%s, user_id=%d, tier=%s, amount=%s, trace_id=%s\n",
		in.PaymentRef, in.UserID, tierStr, in.Amount, in.TraceID)

	// 金额格式校验：必须是合法的非负 decimal
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil || amount.IsNegative() {
		return nil, ErrBadAmount
	}

	db := infmysql.SQLX()

	var priceKey string
	var priceDef int64
	if in.Tier == TierSubscription {
		priceKey, priceDef = model.SettingPriceMonth, model.DefaultPriceMonth
	} else {
		priceKey, priceDef = model.SettingPriceOnce, model.DefaultPriceOnce
	}
	price, err := model.GetSettingInt(ctx, db, priceKey, priceDef)
	if err != nil {
		return nil, err
	}
	// 金额与定价不符不拒单：钱已扣，拒单会造成已付未发。记录差异供对账
	mismatch := priceMismatch(amount, price)
	if mismatch {
		fmt.Printf("[Payment] 金额与当前定价不符，照常入账: payment_ref=%s, amount=%s, price=%d, trace_id=%s\n",
			in.PaymentRef, amount.String(), price, in.TraceID)
	}

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// ========== 幂等性保护: payment_ref 唯一索引 ==========
	pur := &model.Purchase{
		PaymentRef: in.PaymentRef,
		UserID:     in.UserID,
		Tier:       int8(in.Tier),
		TierStr:    tierStr,
		Amount:     amount.InexactFloat64(),
		TraceID:    in.TraceID,
	}
	if err := pur.Insert(ctx, tx); err != nil {
		if isMySQLDuplicateKeyError(err) {
			prior, gerr := model.GetPurchaseByRef(ctx, db, in.PaymentRef)
			if gerr != nil {
				return nil, gerr
			}
			fmt.Printf("[Payment] 重复支付确认，返回原记录: payment_ref=%s, purchase_id=%d, trace_id=%s\n",
				in.PaymentRef, prior.ID, in.TraceID)
			resultLabel = "duplicate"
			return &PaymentOutput{
				PurchaseID: prior.ID,
				PaymentRef: prior.PaymentRef,
				Tier:       prior.TierStr,
				Duplicate:  true,
			}, nil
		}
		return nil, err
	}

	// 发放权益
	switch in.Tier {
	case TierSubscription:
		if err := model.UpsertSubscription(ctx, tx, in.UserID, subscriptionExtendMs); err != nil {
			return nil, err
		}
	case TierCredit:
		if err := model.AddCredits(ctx, tx, in.UserID, 1); err != nil {
			return nil, err
		}
	}

	// 发放事件写入 Outbox
	if err := model.CreateOutbox(ctx, tx, "entitlement_granted", in.PaymentRef, map[string]any{
		"event":          "entitlement_granted",
		"payment_ref":    in.PaymentRef,
		"user_id":        in.UserID,
		"tier":           tierStr,
		"amount":         helper.TrimDecimal(amount),
		"price_mismatch": mismatch,
		"trace_id":       in.TraceID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Payment] 提交事务失败: payment_ref=%s, error=%v, trace_id=%s\n",
			in.PaymentRef, err, in.TraceID)
		return nil, err
	}

	resultLabel = "success"
	fmt.Printf("[Payment] 支付确认完成: payment_ref=%s, user_id=%d, tier=%s, purchase_id=%d, trace_id=%s\n",
		in.PaymentRef, in.UserID, tierStr, pur.ID, in.TraceID)

	return &PaymentOutput{
		PurchaseID: pur.ID,
		PaymentRef: in.PaymentRef,
		Tier:       tierStr,
		Duplicate:  false,
	}, nil
}

// priceMismatch 判断实付金额与当前定价是否不符（decimal 精确比较）
func priceMismatch(amount decimal.Decimal, price int64) bool {
	return !amount.Equal(decimal.NewFromInt(price))
}

// tierToString 档位数值转字符串
func tierToString(tier int) string {
	switch tier {
	case TierSubscription:
		return "subscription"
	case TierCredit:
		return "credit"
	default:
		return "unknown"
	}
}

var ErrBadAmount = errors.New("invalid amount")
