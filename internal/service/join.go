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
	"giveaway-server/internal/metrics"
	"giveaway-server/internal/model"
)

type JoinInput struct {
	RouletteID   int64
	UserID       int64
	Username     string
	CaptchaID    string
	CaptchaValue string
	TraceID      string
}

type JoinResult struct {
	RouletteID int64  `json:"roulette_id"`
	UserID     int64  `json:"user_id"`
	Joined     bool   `json:"joined"`
	Duplicate  bool   `json:"duplicate"`
	JoinedAt   int64  `json:"joined_at"`
	TraceID    string `json:"trace_id,omitempty"`
}

type JoinService interface {
	Join(ctx context.Context, in JoinInput) (*JoinResult, error)
}

type joinService struct {
	antibot AntibotService
}

func NewJoinService() JoinService {
	return &joinService{antibot: NewAntibotService()}
}

// Join 参与抽奖
// 幂等性保护 #1: Redis 结果缓存（重复点击的快路径）
// 幂等性保护 #2: participants 表唯一索引 uq(roulette_id, user_id)
// 仅 open 状态可参与：INSERT ... SELECT 条件写入，状态校验与插入在同一语句内完成
func (s *joinService) Join(ctx context.Context, in JoinInput) (*JoinResult, error) {
	if in.RouletteID <= 0 || in.UserID <= 0 {
		fmt.Printf("[Join]  参数校验失败: roulette_id=%d, user_id=%d, trace_id=%s\n",
			in.RouletteID, in.UserID, in.TraceID)
		return nil, ErrBadRequest
	}

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordJoin(resultLabel, start) }()

	// 人机校验（功能开关控制）
	if config.GetFeatureFlag("antibot_challenge") {
		if ok := s.antibot.VerifyChallenge(ctx, in.CaptchaID, in.CaptchaValue); !ok {
			fmt.Printf("[Join] 人机校验失败: roulette_id=%d, user_id=%d, trace_id=%s\n",
				in.RouletteID, in.UserID, in.TraceID)
			resultLabel = "antibot_failed"
			return nil, ErrAntibotFailed
		}
	}

	// ========== 幂等性保护 #1: Redis 结果缓存 ==========
	if rdb := infrds.Client(); rdb != nil {
		key := infrds.JoinResultKey(in.RouletteID, in.UserID)
		if b, err := rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var cached JoinResult
			if json.Unmarshal(b, &cached) == nil {
				fmt.Printf("[Join] 命中结果缓存: roulette_id=%d, user_id=%d, trace_id=%s\n",
					in.RouletteID, in.UserID, in.TraceID)
				cached.Duplicate = true
				resultLabel = "duplicate"
				return &cached, nil
			}
		}
	}

	db := infmysql.SQLX()

	p := &model.Participant{
		RouletteID: in.RouletteID,
		UserID:     in.UserID,
		Username:   in.Username,
		TraceID:    in.TraceID,
	}

	inserted, err := model.InsertIfOpen(ctx, db, p)
	if err != nil {
		// ========== 幂等性保护 #2: 唯一索引冲突 ==========
		if isMySQLDuplicateKeyError(err) {
			prior, gerr := model.GetParticipant(ctx, db, in.RouletteID, in.UserID)
			if gerr != nil {
				return nil, gerr
			}
			fmt.Printf("[Join] 重复参与，返回原记录: roulette_id=%d, user_id=%d, trace_id=%s\n",
				in.RouletteID, in.UserID, in.TraceID)
			resultLabel = "duplicate"
			res := &JoinResult{
				RouletteID: in.RouletteID,
				UserID:     in.UserID,
				Joined:     true,
				Duplicate:  true,
				JoinedAt:   prior.JoinedAt,
				TraceID:    prior.TraceID,
			}
			s.cacheResult(ctx, res)
			return res, nil
		}
		return nil, err
	}

	if !inserted {
		// 条件写入未生效：抽奖不存在或不在 open 状态，回读区分
		status, gerr := model.GetStatus(ctx, db, in.RouletteID)
		if gerr != nil {
			if strings.Contains(gerr.Error(), "no rows") {
				resultLabel = "not_found"
				return nil, ErrRouletteNotFound
			}
			return nil, gerr
		}
		fmt.Printf("[Join] 抽奖未开放参与: roulette_id=%d, state=%s(%d), user_id=%d, trace_id=%s\n",
			in.RouletteID, codeToState(status), status, in.UserID, in.TraceID)
		resultLabel = "not_open"
		return nil, ErrRouletteNotOpen
	}

	res := &JoinResult{
		RouletteID: in.RouletteID,
		UserID:     in.UserID,
		Joined:     true,
		Duplicate:  false,
		JoinedAt:   p.JoinedAt,
		TraceID:    in.TraceID,
	}
	s.cacheResult(ctx, res)

	resultLabel = "success"
	fmt.Printf("[Join] 参与成功: roulette_id=%d, user_id=%d, participant_id=%d, trace_id=%s\n",
		in.RouletteID, in.UserID, p.ID, in.TraceID)

	return res, nil
}

// cacheResult 将参与结果写入 Redis，便于重复点击快速返回
func (s *joinService) cacheResult(ctx context.Context, res *JoinResult) {
	rdb := infrds.Client()
	if rdb == nil {
		return
	}
	ttl := time.Duration(config.GetThreshold("join_result_cache_sec", 120)) * time.Second
	if b, e := json.Marshal(res); e == nil {
		_ = rdb.Set(ctx, infrds.JoinResultKey(res.RouletteID, res.UserID), b, ttl).Err()
	}
}

var ErrRouletteNotOpen = errors.New("roulette is not open for joining")
