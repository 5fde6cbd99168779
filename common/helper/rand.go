package helper

import (
	"time"

	"golang.org/x/exp/rand"
)

// GenerateRandNum 返回 [min, max) 区间的随机整数（非安全随机，仅用于干扰项等弱随机场景）
func GenerateRandNum(min, max int) int {
	rand.Seed(uint64(time.Now().UnixNano()))

	return min + rand.Intn(max-min)
}
