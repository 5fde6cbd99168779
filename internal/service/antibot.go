package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giveaway-server/common/helper"
	infrds "giveaway-server/internal/infra/redis"
)

type ChallengeOutput struct {
	ChallengeID string `json:"challenge_id"`
	ImageB64    string `json:"image_b64"`
}

type AntibotService interface {
	CreateChallenge(ctx context.Context) (*ChallengeOutput, error)
	VerifyChallenge(ctx context.Context, challengeID, value string) bool
}

type antibotService struct{}

func NewAntibotService() AntibotService { return &antibotService{} }

// CreateChallenge 生成图形验证码挑战
// 验证码本体由内存 store 管理；Redis 标记挑战有效期，过期后即使 store 命中也拒绝
func (s *antibotService) CreateChallenge(ctx context.Context) (*ChallengeOutput, error) {
	id, b64s, err := helper.CreateCaptcha()
	if err != nil {
		fmt.Printf("[Antibot] 生成验证码失败: error=%v\n", err)
		return nil, err
	}

	if rdb := infrds.Client(); rdb != nil {
		_ = rdb.Set(ctx, infrds.AntibotChallengeKey(id), "1", 5*time.Minute).Err()
	}

	return &ChallengeOutput{ChallengeID: id, ImageB64: b64s}, nil
}

// VerifyChallenge 校验挑战答案（一次性：校验即消耗）
func (s *antibotService) VerifyChallenge(ctx context.Context, challengeID, value string) bool {
	if challengeID == "" || value == "" {
		return false
	}

	// Redis 有效期标记：不存在说明挑战已过期或已被消耗
	if rdb := infrds.Client(); rdb != nil {
		n, err := rdb.Del(ctx, infrds.AntibotChallengeKey(challengeID)).Result()
		if err == nil && n == 0 {
			return false
		}
	}

	return helper.VerifyCaptcha(challengeID, value)
}

var ErrAntibotFailed = errors.New("antibot challenge failed")
