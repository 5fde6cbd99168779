package helper

import (
	"github.com/shopspring/decimal"
)

var (
	OneDecimal = decimal.NewFromInt(1)
)

// TrimDecimal 格式化金额为2位小数字符串（四舍五入，避免截断丢精度）
func TrimDecimal(val decimal.Decimal) string {
	return val.StringFixed(2)
}
