package model

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

// AppSetting 对应 app_settings 表（键值配置，动态定价等）
type AppSetting struct {
	ID        int64  `db:"id"`         // 自增ID
	Key       string `db:"k"`          // 配置键(唯一)
	Value     string `db:"v"`          // 配置值
	UpdatedAt int64  `db:"updated_at"` // 更新时间(毫秒)
}

// 定价配置键与缺省值（Star 计价）
const (
	SettingPriceMonth = "price_month_value"
	SettingPriceOnce  = "price_once_value"

	DefaultPriceMonth = 100
	DefaultPriceOnce  = 10
)

// GetSettingInt 读取整数型配置，缺失或非法时返回默认值
func GetSettingInt(ctx context.Context, exec sqlx.ExtContext, key string, def int64) (int64, error) {
	var v string
	err := sqlx.GetContext(ctx, exec, &v, "SELECT v FROM app_settings WHERE k = ? LIMIT 1", key)
	if err != nil {
		if err == sql.ErrNoRows {
			return def, nil
		}
		return def, err
	}
	n, perr := strconv.ParseInt(v, 10, 64)
	if perr != nil {
		return def, nil
	}
	return n, nil
}

// SetSetting 写入配置（存在则覆盖）
func SetSetting(ctx context.Context, exec sqlx.ExtContext, key, value string) error {
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO app_settings (k, v, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE v = ?, updated_at = ?"
	_, err := exec.ExecContext(ctx, sqlStr, key, value, now, value, now)
	return err
}
