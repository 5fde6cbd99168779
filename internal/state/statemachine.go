package state

import "fmt"

// State 抽奖状态
const (
	StateDraft     = "draft"     // 草稿/编辑中
	StateOpen      = "open"      // 进行中(接受参与)
	StateClosed    = "closed"    // 已封盘(参与冻结，待开奖)
	StateDrawn     = "drawn"     // 已开奖(终态，结果固定)
	StateCancelled = "cancelled" // 已取消(终态)
)

// Event 抽奖事件
const (
	EvtPublish     = "publish"
	EvtClose       = "close"
	EvtConfirmDraw = "confirm_draw"
	EvtCancel      = "cancel"
)

// NextState 根据当前状态与事件计算下一个状态，非法转换报错
// 正向路径: draft -> open -> closed -> drawn；cancel 可从任意非终态触发
func NextState(cur, evt string) (string, error) {
	if evt == EvtCancel {
		switch cur {
		case StateDraft, StateOpen, StateClosed:
			return StateCancelled, nil
		}
		return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
	}
	switch cur {
	case StateDraft:
		if evt == EvtPublish {
			return StateOpen, nil
		}
	case StateOpen:
		if evt == EvtClose {
			return StateClosed, nil
		}
	case StateClosed:
		if evt == EvtConfirmDraw {
			return StateDrawn, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}

// IsTerminal 终态判断：drawn 与 cancelled 不再接受任何事件
func IsTerminal(s string) bool {
	return s == StateDrawn || s == StateCancelled
}
