package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"giveaway-server/internal/config"
	infmysql "giveaway-server/internal/infra/mysql"
	infrds "giveaway-server/internal/infra/redis"
	"giveaway-server/internal/model"
	"giveaway-server/internal/state"
)

// 生命周期事件数值枚举：1=publish 2=close 3=confirm_draw 4=cancel
const (
	EventPublish     = 1
	EventClose       = 2
	EventConfirmDraw = 3
	EventCancel      = 4
)

type CreateRouletteInput struct {
	OwnerID      int64
	ChannelID    int64
	ChannelTitle string
	TextRaw      string
	TextStyle    string
	WinnersCount int
	TraceID      string
}

type RouletteEventInput struct {
	RouletteID int64
	OwnerID    int64
	EventType  int
	Operator   string
	Source     string
	TraceID    string
}

type RouletteService interface {
	CreateRoulette(ctx context.Context, in CreateRouletteInput) (int64, error)
	ApplyEvent(ctx context.Context, in RouletteEventInput) (string, error)
	GetRoulette(ctx context.Context, rouletteID int64) (*model.RouletteSnapshot, error)
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]model.RouletteSnapshot, error)
}

type rouletteService struct{}

func NewRouletteService() RouletteService { return &rouletteService{} }

// CreateRoulette 创建抽奖（初始状态 draft）
// 前置条件：发起人已绑定目标频道
func (s *rouletteService) CreateRoulette(ctx context.Context, in CreateRouletteInput) (int64, error) {
	if in.OwnerID <= 0 || in.ChannelID == 0 || in.WinnersCount < 1 {
		fmt.Printf("[Roulette]  参数校验失败: owner_id=%d, channel_id=%d, winners_count=%d, trace_id=%s\n",
			in.OwnerID, in.ChannelID, in.WinnersCount, in.TraceID)
		return 0, ErrBadRequest
	}

	db := infmysql.SQLX()

	// 校验频道绑定关系
	link, err := model.GetChannelLink(ctx, db, in.OwnerID, in.ChannelID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return 0, ErrChannelNotLinked
		}
		return 0, err
	}

	title := in.ChannelTitle
	if title == "" {
		title = link.ChannelTitle
	}

	style := strings.ToLower(strings.TrimSpace(in.TextStyle))
	if style == "" {
		style = "plain"
	}

	r := &model.Roulette{
		OwnerID:      in.OwnerID,
		ChannelID:    in.ChannelID,
		ChannelTitle: title,
		TextRaw:      in.TextRaw,
		TextStyle:    style,
		WinnersCount: in.WinnersCount,
		Status:       stateToCode(state.StateDraft),
		TraceID:      in.TraceID,
	}
	if err := r.Insert(ctx, db); err != nil {
		return 0, err
	}

	fmt.Printf("[Roulette] 创建抽奖成功: roulette_id=%d, owner_id=%d, channel_id=%d, winners_count=%d, trace_id=%s\n",
		r.ID, in.OwnerID, in.ChannelID, in.WinnersCount, in.TraceID)

	return r.ID, nil
}

// ApplyEvent 处理生命周期事件（publish/close/cancel）
// confirm_draw 事件不走此入口，由 DrawService.ConfirmDraw 处理（涉及选取与开奖日志）
func (s *rouletteService) ApplyEvent(ctx context.Context, in RouletteEventInput) (string, error) {
	if in.RouletteID <= 0 || in.EventType < 1 || in.EventType > 4 {
		return "", ErrBadRequest
	}
	if in.EventType == EventConfirmDraw {
		return "", ErrUseDrawService
	}

	evt := eventCodeToString(in.EventType)

	fmt.Printf("[RouletteEvent] 收到生命周期事件: roulette_id=%d, event=%s(%d), trace_id=%s\n",
		in.RouletteID, evt, in.EventType, in.TraceID)

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	r, err := model.GetRouletteForUpdate(ctx, tx, in.RouletteID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return "", ErrRouletteNotFound
		}
		return "", err
	}

	// 仅发起人可操作
	if in.OwnerID > 0 && r.OwnerID != in.OwnerID {
		return "", ErrNotOwner
	}

	currentState := codeToState(r.Status)
	nextState, err := state.NextState(currentState, evt)
	if err != nil {
		fmt.Printf("[RouletteEvent] 状态流转不允许: roulette_id=%d, current=%s, event=%s, trace_id=%s\n",
			in.RouletteID, currentState, evt, in.TraceID)
		return "", ErrInvalidTransition
	}

	// CAS 更新状态（带预期状态，防止并发下重复流转）
	var ok bool
	if nextState == state.StateClosed {
		ok, err = model.MarkClosed(ctx, tx, in.RouletteID, r.Status, stateToCode(nextState))
	} else {
		ok, err = model.UpdateStatusCAS(ctx, tx, in.RouletteID, r.Status, stateToCode(nextState))
	}
	if err != nil {
		return "", err
	}
	if !ok {
		// 行锁下状态仍不匹配，说明并发流转已发生
		return "", ErrInvalidTransition
	}

	// 审计事件
	aud := &model.RouletteEventAudit{
		RouletteID: in.RouletteID,
		OwnerID:    r.OwnerID,
		EventType:  int8(in.EventType),
		PrevState:  currentState,
		NextState:  nextState,
		Operator:   in.Operator,
		Source:     in.Source,
		Payload:    toJSON(map[string]any{"channel_id": r.ChannelID}),
		TraceID:    in.TraceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return "", err
	}

	// publish 事件：组装公告文案并写入 Outbox，由分发器投递到机器人网关
	if in.EventType == EventPublish {
		gates, err := model.ListGates(ctx, tx, in.RouletteID)
		if err != nil {
			return "", err
		}
		text := AssembleAnnouncement(r, gates, nil)
		if err := model.CreateOutbox(ctx, tx, "roulette_published", i64str(in.RouletteID), map[string]any{
			"event":       "roulette_published",
			"roulette_id": in.RouletteID,
			"channel_id":  r.ChannelID,
			"text":        text,
			"text_style":  r.TextStyle,
			"trace_id":    in.TraceID,
		}); err != nil {
			fmt.Printf("[RouletteEvent]  写入 Outbox 失败: roulette_id=%d, error=%v, trace_id=%s\n",
				in.RouletteID, err, in.TraceID)
			return "", err
		}
	}

	// cancel 事件：通知下游清理公告
	if in.EventType == EventCancel {
		if err := model.CreateOutbox(ctx, tx, "roulette_cancelled", i64str(in.RouletteID), map[string]any{
			"event":       "roulette_cancelled",
			"roulette_id": in.RouletteID,
			"channel_id":  r.ChannelID,
			"trace_id":    in.TraceID,
		}); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[RouletteEvent] 提交事务失败: roulette_id=%d, error=%v, trace_id=%s\n",
			in.RouletteID, err, in.TraceID)
		return "", err
	}

	// 状态已变化，失效信息缓存
	if rdb := infrds.Client(); rdb != nil {
		_ = rdb.Del(ctx, infrds.RouletteInfoKey(in.RouletteID)).Err()
	}

	fmt.Printf("[RouletteEvent] 事件处理完成: roulette_id=%d, %s -> %s, trace_id=%s\n",
		in.RouletteID, currentState, nextState, in.TraceID)

	return nextState, nil
}

// GetRoulette 查询抽奖快照（带 Redis 缓存）
func (s *rouletteService) GetRoulette(ctx context.Context, rouletteID int64) (*model.RouletteSnapshot, error) {
	if rouletteID <= 0 {
		return nil, ErrBadRequest
	}

	// 快路径：Redis 缓存
	if rdb := infrds.Client(); rdb != nil {
		if b, err := rdb.Get(ctx, infrds.RouletteInfoKey(rouletteID)).Bytes(); err == nil && len(b) > 0 {
			var snap model.RouletteSnapshot
			if json.Unmarshal(b, &snap) == nil {
				return &snap, nil
			}
		}
	}

	db := infmysql.SQLX()
	snap, err := model.GetRouletteSnapshot(ctx, db, rouletteID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrRouletteNotFound
		}
		return nil, err
	}

	// 回填缓存（TTL 较短，容忍轻微陈旧）
	if rdb := infrds.Client(); rdb != nil {
		ttl := time.Duration(config.GetThreshold("roulette_info_cache_sec", 30)) * time.Second
		if b, e := json.Marshal(snap); e == nil {
			_ = rdb.Set(ctx, infrds.RouletteInfoKey(rouletteID), b, ttl).Err()
		}
	}

	return snap, nil
}

// ListByOwner 查询发起人的抽奖列表
func (s *rouletteService) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]model.RouletteSnapshot, error) {
	if ownerID <= 0 {
		return nil, ErrBadRequest
	}
	return model.ListByOwner(ctx, infmysql.SQLX(), ownerID, limit)
}

// codeToState 将数值状态转换为状态机字符串
// 1=draft 2=open 3=closed 4=drawn 5=cancelled
func codeToState(code int8) string {
	switch code {
	case 1:
		return state.StateDraft
	case 2:
		return state.StateOpen
	case 3:
		return state.StateClosed
	case 4:
		return state.StateDrawn
	case 5:
		return state.StateCancelled
	default:
		return ""
	}
}

// stateToCode 将状态机字符串转换为数值状态
func stateToCode(s string) int8 {
	switch s {
	case state.StateDraft:
		return 1
	case state.StateOpen:
		return 2
	case state.StateClosed:
		return 3
	case state.StateDrawn:
		return 4
	case state.StateCancelled:
		return 5
	default:
		return 0
	}
}

// eventCodeToString 将数值事件转换为状态机事件
func eventCodeToString(code int) string {
	switch code {
	case EventPublish:
		return state.EvtPublish
	case EventClose:
		return state.EvtClose
	case EventConfirmDraw:
		return state.EvtConfirmDraw
	case EventCancel:
		return state.EvtCancel
	default:
		return ""
	}
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func i64str(v int64) string {
	return fmt.Sprintf("%d", v)
}

// isMySQLDuplicateKeyError 判断是否为 MySQL 唯一键冲突错误
func isMySQLDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	// MySQL 错误码 1062: Duplicate entry
	return strings.Contains(errMsg, "Error 1062") ||
		strings.Contains(errMsg, "Duplicate entry") ||
		strings.Contains(errMsg, "duplicate key")
}

var (
	ErrBadRequest        = errors.New("bad request")
	ErrRouletteNotFound  = errors.New("roulette not found")
	ErrNotOwner          = errors.New("only the owner can perform this operation")
	ErrInvalidTransition = errors.New("transition not allowed in current state")
	ErrChannelNotLinked  = errors.New("channel not linked")
	ErrUseDrawService    = errors.New("confirm_draw must go through the draw endpoint")
)
