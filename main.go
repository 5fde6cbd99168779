package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"giveaway-server/common"
	"giveaway-server/common/logger"
	"giveaway-server/internal/config"
	"giveaway-server/internal/infra/mysql"
	infrds "giveaway-server/internal/infra/redis"
	"giveaway-server/internal/worker"
	_ "giveaway-server/routers"

	beego "github.com/beego/beego/v2/server/web"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// 1. 日志
	logger.InitLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. 配置（Nacos 优先，失败回退本地文件）
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("config load failed", zap.Error(err))
	}
	config.Set(cfg)
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 配置热更新：仅动态项（日志级别、功能开关、阈值、限流）即时生效
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		config.Set(newCfg)
		if oldCfg.Server.LogLevel != newCfg.Server.LogLevel {
			logger.SetLevel(newCfg.Server.LogLevel)
			logger.Info("log level updated", zap.String("level", newCfg.Server.LogLevel))
		}
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	// 3. MySQL
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	mysql.UseDB(db.DB)
	logger.Info("mysql connected",
		zap.Int("max_open", cfg.Database.MaxOpenConns),
		zap.Int("max_idle", cfg.Database.MaxIdleConns))

	// 4. Redis（可选，地址为空时相关能力自动降级）
	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := infrds.Ping(ctx, 3*time.Second); err != nil {
		logger.Warn("redis ping failed, cache/ratelimit degraded", zap.Error(err))
	}

	// 5. 后台任务
	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(ctx, &wg)
	worker.StartInboxConsumer(ctx, &wg)
	worker.StartMaintenance(ctx, &wg)

	// 6. Prometheus 指标端口（独立于业务端口）
	if cfg.Observability.EnableProm {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := cfg.Observability.PromAddr
			if addr == "" {
				addr = ":9100"
			}
			logger.Info("prometheus metrics listening", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics server exited", zap.Error(err))
			}
		}()
	}

	// 7. HTTP 服务
	if cfg.Server.Port > 0 {
		beego.BConfig.Listen.HTTPPort = cfg.Server.Port
	}
	beego.BConfig.CopyRequestBody = true

	go func() {
		logger.Info("giveaway-server starting", zap.Int("port", beego.BConfig.Listen.HTTPPort))
		beego.Run()
	}()

	// 8. 优雅退出：等待信号 -> 停止后台任务 -> 刷日志
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	common.Printf("[Main] received signal %s, shutting down\n", sig)

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("all workers stopped")
	case <-time.After(10 * time.Second):
		logger.Warn("worker shutdown timeout, force exit")
	}
}
