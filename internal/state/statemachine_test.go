package state

import "testing"

func TestNextStateForwardPath(t *testing.T) {
	cases := []struct {
		cur, evt, want string
	}{
		{StateDraft, EvtPublish, StateOpen},
		{StateOpen, EvtClose, StateClosed},
		{StateClosed, EvtConfirmDraw, StateDrawn},
	}
	for _, c := range cases {
		got, err := NextState(c.cur, c.evt)
		if err != nil {
			t.Fatalf("NextState(%s,%s) error: %v", c.cur, c.evt, err)
		}
		if got != c.want {
			t.Fatalf("NextState(%s,%s) = %s, want %s", c.cur, c.evt, got, c.want)
		}
	}
}

func TestNextStateCancel(t *testing.T) {
	for _, cur := range []string{StateDraft, StateOpen, StateClosed} {
		got, err := NextState(cur, EvtCancel)
		if err != nil {
			t.Fatalf("cancel from %s error: %v", cur, err)
		}
		if got != StateCancelled {
			t.Fatalf("cancel from %s = %s, want cancelled", cur, got)
		}
	}
	// 终态不可取消
	for _, cur := range []string{StateDrawn, StateCancelled} {
		if _, err := NextState(cur, EvtCancel); err == nil {
			t.Fatalf("cancel from %s should fail", cur)
		}
	}
}

func TestNextStateInvalidTransitions(t *testing.T) {
	bad := []struct{ cur, evt string }{
		{StateDraft, EvtClose},
		{StateDraft, EvtConfirmDraw},
		{StateOpen, EvtPublish},
		{StateOpen, EvtConfirmDraw},
		{StateClosed, EvtPublish},
		{StateClosed, EvtClose},
		{StateDrawn, EvtPublish},
		{StateDrawn, EvtClose},
		{StateDrawn, EvtConfirmDraw},
		{StateCancelled, EvtPublish},
	}
	for _, c := range bad {
		if _, err := NextState(c.cur, c.evt); err == nil {
			t.Fatalf("NextState(%s,%s) should fail", c.cur, c.evt)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StateDrawn) || !IsTerminal(StateCancelled) {
		t.Fatalf("drawn/cancelled must be terminal")
	}
	for _, s := range []string{StateDraft, StateOpen, StateClosed} {
		if IsTerminal(s) {
			t.Fatalf("%s must not be terminal", s)
		}
	}
}
