package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"giveaway-server/internal/config"
	infmysql "giveaway-server/internal/infra/mysql"
	"giveaway-server/internal/metrics"
	"giveaway-server/internal/model"
	"giveaway-server/internal/state"
)

type AddGateInput struct {
	RouletteID   int64
	OwnerID      int64
	ChannelID    int64
	ChannelTitle string
	InviteLink   string
	TraceID      string
}

type AddGateResult struct {
	GateID  int64  `json:"gate_id"`
	Billing string `json:"billing"` // subscription / credit
}

type GateService interface {
	AddGate(ctx context.Context, in AddGateInput) (*AddGateResult, error)
	ListGates(ctx context.Context, rouletteID int64) ([]model.RouletteGate, error)
}

type gateService struct{}

func NewGateService() GateService { return &gateService{} }

// AddGate 为抽奖添加订阅条件（付费功能）
// 计费规则：有效订阅期内免扣；否则条件扣减一次次数余额，余额不足则拒绝。
// 扣减与条件写入在同一事务内，失败一并回滚
func (s *gateService) AddGate(ctx context.Context, in AddGateInput) (*AddGateResult, error) {
	if in.RouletteID <= 0 || in.OwnerID <= 0 || in.ChannelID == 0 {
		return nil, ErrBadRequest
	}

	start := time.Now()
	resultLabel := "fail"
	billingLabel := "none"
	defer func() { metrics.RecordGateAdd(resultLabel, billingLabel, start) }()

	fmt.Printf("[Gate] 收到添加订阅条件请求: roulette_id=%d, channel_id=%d, owner_id=%d, trace_id=%s\n",
		in.RouletteID, in.ChannelID, in.OwnerID, in.TraceID)

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	r, err := model.GetRouletteForUpdate(ctx, tx, in.RouletteID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrRouletteNotFound
		}
		return nil, err
	}

	// 仅发起人可配置
	if r.OwnerID != in.OwnerID {
		return nil, ErrNotOwner
	}

	// 仅 draft/open 状态允许追加条件
	currentState := codeToState(r.Status)
	if currentState != state.StateDraft && currentState != state.StateOpen {
		fmt.Printf("[Gate] 当前状态不允许添加条件: roulette_id=%d, state=%s, trace_id=%s\n",
			in.RouletteID, currentState, in.TraceID)
		return nil, ErrInvalidTransition
	}

	// 条件数量上限（阈值可动态下发）
	maxGates := config.GetThreshold("max_gates_per_roulette", 10)
	cnt, err := model.CountGates(ctx, tx, in.RouletteID)
	if err != nil {
		return nil, err
	}
	if cnt >= maxGates {
		return nil, ErrTooManyGates
	}

	// 计费：有效订阅免扣，否则扣一次次数
	now := time.Now().UnixMilli()
	grant, err := model.GetGrant(ctx, tx, in.OwnerID)
	switch {
	case err == nil && grant.HasActiveSubscription(now):
		billingLabel = "subscription"
	case err == nil || strings.Contains(errStr(err), "no rows"):
		ok, cerr := model.ConsumeOneCredit(ctx, tx, in.OwnerID)
		if cerr != nil {
			return nil, cerr
		}
		if !ok {
			fmt.Printf("[Gate] 权益不足: roulette_id=%d, owner_id=%d, trace_id=%s\n",
				in.RouletteID, in.OwnerID, in.TraceID)
			resultLabel = "entitlement_required"
			return nil, ErrEntitlementRequired
		}
		billingLabel = "credit"
	default:
		return nil, err
	}

	g := &model.RouletteGate{
		RouletteID:   in.RouletteID,
		ChannelID:    in.ChannelID,
		ChannelTitle: in.ChannelTitle,
		InviteLink:   in.InviteLink,
	}
	if err := g.Insert(ctx, tx); err != nil {
		// 唯一索引 uq(roulette_id, channel_id)：重复添加同一频道
		if isMySQLDuplicateKeyError(err) {
			fmt.Printf("[Gate] 该频道条件已存在: roulette_id=%d, channel_id=%d, trace_id=%s\n",
				in.RouletteID, in.ChannelID, in.TraceID)
			return nil, ErrDuplicateGate
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Gate] 提交事务失败: roulette_id=%d, error=%v, trace_id=%s\n",
			in.RouletteID, err, in.TraceID)
		return nil, err
	}

	resultLabel = "success"
	fmt.Printf("[Gate] 添加订阅条件成功: roulette_id=%d, channel_id=%d, gate_id=%d, billing=%s, trace_id=%s\n",
		in.RouletteID, in.ChannelID, g.ID, billingLabel, in.TraceID)

	return &AddGateResult{GateID: g.ID, Billing: billingLabel}, nil
}

// ListGates 查询抽奖的订阅条件列表
func (s *gateService) ListGates(ctx context.Context, rouletteID int64) ([]model.RouletteGate, error) {
	if rouletteID <= 0 {
		return nil, ErrBadRequest
	}
	return model.ListGates(ctx, infmysql.SQLX(), rouletteID)
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

var (
	ErrEntitlementRequired = errors.New("active subscription or credit required")
	ErrDuplicateGate       = errors.New("gate for this channel already exists")
	ErrTooManyGates        = errors.New("too many gates for this roulette")
)
