package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixJoinResult：参与幂等“结果缓存”Key 的前缀。
	// 作用：缓存某个 (roulette_id, user_id) 对应的第一次成功参与结果，用于后续重复请求直接返回。
	PrefixJoinResult = "roulette:join:result:"

	// PrefixRouletteInfo：抽奖快照缓存（状态/参与人数），用于查询接口快速返回
	PrefixRouletteInfo = "roulette:info:"
	// PrefixDrawResult：开奖结果缓存
	PrefixDrawResult = "roulette:draw:"

	// PrefixAntibotChallenge：防机器人挑战答案缓存（TTL 内有效，验证后删除）
	PrefixAntibotChallenge = "antibot:challenge:"

	// KeyMaintenanceLock：巡检任务的互斥锁，防止多实例/重叠执行
	KeyMaintenanceLock = "maintenance:lock"
)

// JoinResultKey：构造参与幂等“结果缓存”的完整 Key。
// 形如：roulette:join:result:{roulette_id}:{user_id}
func JoinResultKey(rouletteID int64, userID int64) string {
	return PrefixJoinResult + i64toa(rouletteID) + ":" + i64toa(userID)
}

// RouletteInfoKey：构造抽奖快照缓存 Key。形如：roulette:info:{roulette_id}
func RouletteInfoKey(rouletteID int64) string { return PrefixRouletteInfo + i64toa(rouletteID) }

// DrawResultKey：构造开奖结果缓存 Key。形如：roulette:draw:{roulette_id}
func DrawResultKey(rouletteID int64) string { return PrefixDrawResult + i64toa(rouletteID) }

// AntibotChallengeKey：构造防机器人挑战 Key。形如：antibot:challenge:{challenge_id}
func AntibotChallengeKey(challengeID string) string { return PrefixAntibotChallenge + challengeID }

// 轻量 int64 转字符串，避免在 key 构造热路径上引入 fmt
func i64toa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := false
	if n < 0 {
		neg = true
		n = -n
	}
	var b [20]byte
	pos := len(b)
	for n > 0 {
		pos--
		b[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		b[pos] = '-'
	}
	return string(b[pos:])
}
