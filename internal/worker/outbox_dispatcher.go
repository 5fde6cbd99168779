package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"giveaway-server/common/logger"
	infmysql "giveaway-server/internal/infra/mysql"
	infmq "giveaway-server/internal/infra/rocketmq"
	"giveaway-server/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StartOutboxDispatcher 启动 Outbox 分发器，支持通过 ctx 优雅退出
// 仅当 MQ 已启用时运行。
func StartOutboxDispatcher(ctx context.Context, wg *sync.WaitGroup) {
	if !infmq.Enabled() {
		return
	}
	wg.Add(1)
	pub := infmq.PublisherInstance()
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer wg.Done()

		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// 每一轮派发共用一个 trace，便于串联同批消息的日志
				batchCtx := logger.WithTraceID(ctx, uuid.NewString())
				c, cancel := context.WithTimeout(batchCtx, 2*time.Second)
				rows, err := model.ListOutboxPending(c, infmysql.SQLX(), 100)
				cancel()
				if err != nil {
					logger.WarnCtx(batchCtx, "outbox: list pending failed", zap.Error(err))
					continue
				}
				for _, r := range rows {
					// publish
					if err := pub.Publish(r.Topic, []byte(r.Payload)); err != nil {
						logger.WarnCtx(batchCtx, "outbox: publish failed",
							zap.Int64("id", r.ID), zap.String("topic", r.Topic), zap.Error(err))
						_ = model.MarkOutboxFailed(batchCtx, infmysql.SQLX(), r.ID, truncateErr(err))
						continue
					}
					if err := model.MarkOutboxSent(batchCtx, infmysql.SQLX(), r.ID); err != nil {
						logger.WarnCtx(batchCtx, "outbox: mark sent failed", zap.Int64("id", r.ID), zap.Error(err))
					}
				}
				if len(rows) > 0 {
					logger.InfoCtx(batchCtx, "outbox: batch dispatched", zap.Int("count", len(rows)))
				}
			}
		}
	}()
}

func truncateErr(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	if len(b) > 240 {
		return string(b[:240])
	}
	return string(b)
}
