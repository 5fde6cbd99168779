package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	infmysql "giveaway-server/internal/infra/mysql"
	infrds "giveaway-server/internal/infra/redis"
	"giveaway-server/internal/metrics"
	"giveaway-server/internal/model"
	"giveaway-server/internal/platform"
	"giveaway-server/internal/state"
)

type DrawInput struct {
	RouletteID int64
	OwnerID    int64
	Operator   string
	Source     string
	TraceID    string
}

type DrawOutput struct {
	RouletteID        int64   `json:"roulette_id"`
	Winners           []int64 `json:"winners"`
	TotalParticipants int     `json:"total_participants"`
	Idempotent        bool    `json:"idempotent"`
}

type DrawService interface {
	ConfirmDraw(ctx context.Context, in DrawInput) (*DrawOutput, error)
}

type drawService struct{}

func NewDrawService() DrawService { return &drawService{} }

// ConfirmDraw 确认开奖：closed -> drawn
// 选取规则：从全部参与者中加密随机且不重复地选取 winners_count 名；
// 配置了订阅条件时，仅未通过频道成员校验的候选被跳过，顺延补位。
// 幂等性保护 #1: 行锁下检查当前状态（drawn 直接返回已有结果）
// 幂等性保护 #2: draw_logs 唯一索引 uq(roulette_id)
func (s *drawService) ConfirmDraw(ctx context.Context, in DrawInput) (*DrawOutput, error) {
	if in.RouletteID <= 0 {
		return nil, ErrBadRequest
	}

	fmt.Printf("[Draw] 收到开奖请求: roulette_id=%d, operator=%s, trace_id=%s\n",
		in.RouletteID, in.Operator, in.TraceID)

	// 指标：在输入校验通过后开始计时
	start := time.Now()
	resultLabel := "fail"
	winnersCount := 0
	defer func() { metrics.RecordDraw(resultLabel, winnersCount, start) }()

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

	// 仅发起人可开奖
	if in.OwnerID > 0 && r.OwnerID != in.OwnerID {
		return nil, ErrNotOwner
	}

	currentState := codeToState(r.Status)
	fmt.Printf("[Draw]  当前状态: state=%s(%d), roulette_id=%d, trace_id=%s\n",
		currentState, r.Status, in.RouletteID, in.TraceID)

	// ========== 幂等性保护 #1: 已开奖直接返回已有结果 ==========
	if currentState == state.StateDrawn {
		fmt.Printf("[Draw] 该抽奖已开奖，返回已有结果: roulette_id=%d, trace_id=%s\n",
			in.RouletteID, in.TraceID)
		resultLabel = "success_idempotent"
		total, _ := model.CountParticipants(ctx, tx, in.RouletteID)
		return &DrawOutput{
			RouletteID:        in.RouletteID,
			Winners:           r.WinnerIDs(),
			TotalParticipants: int(total),
			Idempotent:        true,
		}, nil
	}

	// 校验当前状态：仅允许在 closed 状态执行开奖
	if currentState != state.StateClosed {
		return nil, ErrInvalidStateDraw
	}

	// 查询全部参与者（按参与顺序）
	candidates, err := model.ListParticipantIDs(ctx, tx, in.RouletteID)
	if err != nil {
		return nil, err
	}

	fmt.Printf("[Draw]  共 %d 名参与者: roulette_id=%d, winners_count=%d, trace_id=%s\n",
		len(candidates), in.RouletteID, r.WinnersCount, in.TraceID)

	// 订阅条件：未通过成员校验的候选顺延跳过
	gates, err := model.ListGates(ctx, tx, in.RouletteID)
	if err != nil {
		return nil, err
	}

	winners := drawWinners(candidates, r.WinnersCount, gates)
	winnersCount = len(winners)

	// 写入抽奖结果（winners 为 JSON 数组，零参与者时为空数组）
	if err := model.SetResult(ctx, tx, in.RouletteID, winners); err != nil {
		return nil, err
	}

	// ========== 幂等性保护 #2: 创建开奖日志 ==========
	// 利用唯一索引防止重复开奖（双重保护）
	dl := &model.DrawLog{
		RouletteID:        in.RouletteID,
		Winners:           toJSON(winners),
		TotalParticipants: len(candidates),
		Operator:          in.Operator,
		TraceID:           in.TraceID,
	}
	if err := model.CreateDrawLog(ctx, tx, dl); err != nil {
		if isMySQLDuplicateKeyError(err) {
			fmt.Printf("[Draw] 开奖日志已存在，跳过重复开奖: roulette_id=%d, trace_id=%s\n",
				in.RouletteID, in.TraceID)
			resultLabel = "success_idempotent"
			return &DrawOutput{
				RouletteID:        in.RouletteID,
				Winners:           r.WinnerIDs(),
				TotalParticipants: len(candidates),
				Idempotent:        true,
			}, nil
		}
		fmt.Printf("[Draw] 创建开奖日志失败: roulette_id=%d, error=%v, trace_id=%s\n",
			in.RouletteID, err, in.TraceID)
		return nil, err
	}

	// CAS 状态流转 closed -> drawn
	ok, err := model.UpdateStatusCAS(ctx, tx, in.RouletteID, r.Status, stateToCode(state.StateDrawn))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStateDraw
	}

	// 审计事件 - confirm_draw
	aud := &model.RouletteEventAudit{
		RouletteID: in.RouletteID,
		OwnerID:    r.OwnerID,
		EventType:  EventConfirmDraw,
		PrevState:  state.StateClosed,
		NextState:  state.StateDrawn,
		Operator:   in.Operator,
		Source:     in.Source,
		Payload: toJSON(map[string]any{
			"winners":            winners,
			"total_participants": len(candidates),
		}),
		TraceID: in.TraceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return nil, err
	}

	// 回查中奖者参与记录（用户名用于公示文案）
	winnerRows, err := model.ListWinners(ctx, tx, in.RouletteID, winners)
	if err != nil {
		return nil, err
	}

	// 开奖事件写入 Outbox（事务内写入，确保与数据库状态一致），载荷携带公示文案
	fmt.Printf("[Draw] 写入 Outbox: topic=roulette_drawn, roulette_id=%d, trace_id=%s\n",
		in.RouletteID, in.TraceID)
	payload := drawnOutboxPayload(r, gates, winnerRows, winners, len(candidates), in.TraceID)
	if err := model.CreateOutbox(ctx, tx, "roulette_drawn", i64str(in.RouletteID), payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Draw] 提交事务失败: roulette_id=%d, error=%v, trace_id=%s\n",
			in.RouletteID, err, in.TraceID)
		return nil, err
	}

	// 将开奖结果写入 Redis，便于后续查询/回放
	if rdb := infrds.Client(); rdb != nil {
		val := map[string]any{
			"roulette_id":        in.RouletteID,
			"channel_id":         r.ChannelID,
			"winners":            winners,
			"total_participants": len(candidates),
			"status":             "drawn",
		}
		if b, e := json.Marshal(val); e == nil {
			_ = rdb.Set(ctx, infrds.DrawResultKey(in.RouletteID), b, 10*time.Minute).Err()
		}
		// 状态已变化，失效信息缓存
		_ = rdb.Del(ctx, infrds.RouletteInfoKey(in.RouletteID)).Err()
	}

	resultLabel = "success"
	fmt.Printf("[Draw] 开奖完成: roulette_id=%d, winners=%d/%d, total_participants=%d, trace_id=%s\n",
		in.RouletteID, len(winners), r.WinnersCount, len(candidates), in.TraceID)

	return &DrawOutput{
		RouletteID:        in.RouletteID,
		Winners:           winners,
		TotalParticipants: len(candidates),
		Idempotent:        false,
	}, nil
}

// drawnOutboxPayload 组装开奖事件载荷：中奖名单 + 公示文案，由分发器投递到机器人网关
func drawnOutboxPayload(r *model.Roulette, gates []model.RouletteGate, winnerRows []model.Participant,
	winnerIDs []int64, totalParticipants int, traceID string) map[string]any {
	return map[string]any{
		"event":              "roulette_drawn",
		"roulette_id":        r.ID,
		"channel_id":         r.ChannelID,
		"winners":            winnerIDs,
		"total_participants": totalParticipants,
		"text":               AssembleAnnouncement(r, gates, winnerRows),
		"text_style":         r.TextStyle,
		"trace_id":           traceID,
	}
}

// drawWinners 选取中奖者：先对候选整体洗牌，再按序取前 k 名通过条件校验的。
// 候选数不足 k 时全部（通过校验者）中奖
func drawWinners(candidates []int64, k int, gates []model.RouletteGate) []int64 {
	shuffled := shuffleUnique(candidates)
	winners := make([]int64, 0, k)
	for _, uid := range shuffled {
		if len(winners) >= k {
			break
		}
		if !passesGates(uid, gates) {
			continue
		}
		winners = append(winners, uid)
	}
	return winners
}

// passesGates 校验用户是否满足全部订阅条件
func passesGates(userID int64, gates []model.RouletteGate) bool {
	for i := range gates {
		if !platform.CheckChannelMembership(gates[i].ChannelID, userID) {
			return false
		}
	}
	return true
}

// shuffleUnique 加密随机 Fisher-Yates 洗牌（不修改入参）
func shuffleUnique(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	for i := len(out) - 1; i > 0; i-- {
		j := int(cryptoIntn(uint64(i + 1)))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// cryptoIntn 返回 [0, n) 的加密随机数，拒绝采样消除取模偏差
func cryptoIntn(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	max := ^uint64(0) - (^uint64(0) % n)
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand 在受支持平台上不会失败；失败说明系统熵源异常，
			// 绝不能降级为可预测的随机源
			panic(fmt.Sprintf("crypto/rand read failed: %v", err))
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < max {
			return v % n
		}
	}
}

var ErrInvalidStateDraw = errors.New("draw not allowed in current state")
