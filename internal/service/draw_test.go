package service

import (
	"strings"
	"testing"

	"giveaway-server/internal/model"
)

func TestCryptoIntnBounds(t *testing.T) {
	if got := cryptoIntn(0); got != 0 {
		t.Fatalf("cryptoIntn(0) = %d, want 0", got)
	}
	if got := cryptoIntn(1); got != 0 {
		t.Fatalf("cryptoIntn(1) = %d, want 0", got)
	}
	for i := 0; i < 1000; i++ {
		if got := cryptoIntn(7); got >= 7 {
			t.Fatalf("cryptoIntn(7) = %d, out of range", got)
		}
	}
}

func TestShuffleUniquePreservesElements(t *testing.T) {
	in := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	orig := make([]int64, len(in))
	copy(orig, in)

	out := shuffleUnique(in)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	// 入参不可被修改
	for i := range in {
		if in[i] != orig[i] {
			t.Fatalf("input mutated at %d: %v", i, in)
		}
	}
	// 元素集合不变
	seen := map[int64]int{}
	for _, v := range out {
		seen[v]++
	}
	for _, v := range orig {
		if seen[v] != 1 {
			t.Fatalf("element %d count = %d, want 1", v, seen[v])
		}
	}
}

func TestShuffleUniqueEmptyAndSingle(t *testing.T) {
	if out := shuffleUnique(nil); len(out) != 0 {
		t.Fatalf("shuffle nil = %v, want empty", out)
	}
	if out := shuffleUnique([]int64{42}); len(out) != 1 || out[0] != 42 {
		t.Fatalf("shuffle single = %v, want [42]", out)
	}
}

func TestDrawWinnersNoGates(t *testing.T) {
	candidates := []int64{11, 22, 33, 44, 55}

	// 名额充足：全部中奖
	winners := drawWinners(candidates, 10, nil)
	if len(winners) != len(candidates) {
		t.Fatalf("winners = %d, want %d", len(winners), len(candidates))
	}

	// 名额不足：恰好 k 名，且不重复、均来自候选
	winners = drawWinners(candidates, 3, nil)
	if len(winners) != 3 {
		t.Fatalf("winners = %d, want 3", len(winners))
	}
	candSet := map[int64]bool{}
	for _, c := range candidates {
		candSet[c] = true
	}
	seen := map[int64]bool{}
	for _, w := range winners {
		if !candSet[w] {
			t.Fatalf("winner %d not in candidates", w)
		}
		if seen[w] {
			t.Fatalf("winner %d duplicated", w)
		}
		seen[w] = true
	}
}

func TestDrawWinnersZeroCandidates(t *testing.T) {
	winners := drawWinners(nil, 5, nil)
	if len(winners) != 0 {
		t.Fatalf("winners = %v, want empty", winners)
	}
}

func TestDrawWinnersDistribution(t *testing.T) {
	// k=1 多次抽取，每个候选都应当至少中过一次奖
	candidates := []int64{1, 2, 3}
	hit := map[int64]int{}
	for i := 0; i < 300; i++ {
		w := drawWinners(candidates, 1, nil)
		if len(w) != 1 {
			t.Fatalf("winners = %d, want 1", len(w))
		}
		hit[w[0]]++
	}
	for _, c := range candidates {
		if hit[c] == 0 {
			t.Fatalf("candidate %d never selected in 300 draws: %v", c, hit)
		}
	}
}

func TestDrawnOutboxPayloadCarriesAnnouncement(t *testing.T) {
	r := &model.Roulette{
		ID:           77,
		ChannelID:    -100123,
		TextStyle:    "plain",
		WinnersCount: 2,
	}
	gates := []model.RouletteGate{{ChannelID: 200, ChannelTitle: "频道A"}}
	winnerRows := []model.Participant{
		{UserID: 1, Username: "alice"},
		{UserID: 2},
	}
	winners := []int64{1, 2}

	p := drawnOutboxPayload(r, gates, winnerRows, winners, 5, "trace-1")

	if p["event"] != "roulette_drawn" {
		t.Fatalf("event = %v", p["event"])
	}
	if p["roulette_id"] != int64(77) || p["channel_id"] != int64(-100123) {
		t.Fatalf("ids = %v/%v", p["roulette_id"], p["channel_id"])
	}
	if got := p["winners"].([]int64); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("winners = %v", got)
	}
	if p["total_participants"] != 5 {
		t.Fatalf("total_participants = %v", p["total_participants"])
	}
	if p["text_style"] != "plain" || p["trace_id"] != "trace-1" {
		t.Fatalf("style/trace = %v/%v", p["text_style"], p["trace_id"])
	}

	// 公示文案必须是开奖公告：含中奖名单与人数汇总
	text, ok := p["text"].(string)
	if !ok || text == "" {
		t.Fatalf("payload text missing: %v", p["text"])
	}
	for _, want := range []string{"🎉 开奖结果", "1. alice", "2. 用户 2", "共 2 名中奖者"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text missing %q:\n%s", want, text)
		}
	}
}

func TestDrawnOutboxPayloadZeroWinners(t *testing.T) {
	// 零参与者开奖：名单为空，文案退化为参与公告而非空串
	r := &model.Roulette{ID: 1, ChannelID: 2, WinnersCount: 3, TextRaw: "抽奖啦"}
	p := drawnOutboxPayload(r, nil, nil, []int64{}, 0, "t")
	if got := p["winners"].([]int64); len(got) != 0 {
		t.Fatalf("winners = %v, want empty", got)
	}
	if text := p["text"].(string); !strings.Contains(text, "抽奖啦") {
		t.Fatalf("text = %q", text)
	}
}

func TestPassesGatesEmpty(t *testing.T) {
	// 无订阅条件时任何候选都通过
	if !passesGates(1, nil) {
		t.Fatalf("passesGates with no gates must be true")
	}
	if !passesGates(1, []model.RouletteGate{}) {
		t.Fatalf("passesGates with empty gates must be true")
	}
}
