package service

import (
	"strings"
	"testing"

	"giveaway-server/internal/model"
)

func TestAssembleAnnouncementJoin(t *testing.T) {
	r := &model.Roulette{
		TextRaw:      "新年抽奖来啦",
		TextStyle:    "plain",
		WinnersCount: 3,
	}
	gates := []model.RouletteGate{
		{ChannelID: 100, ChannelTitle: "频道A", InviteLink: "https://t.me/a"},
		{ChannelID: 200, ChannelTitle: "", InviteLink: ""},
	}

	out := AssembleAnnouncement(r, gates, nil)
	if !strings.Contains(out, "新年抽奖来啦") {
		t.Fatalf("missing text_raw: %s", out)
	}
	if !strings.Contains(out, "3 名中奖者") {
		t.Fatalf("missing winners count: %s", out)
	}
	if !strings.Contains(out, "频道A (https://t.me/a)") {
		t.Fatalf("missing gate link: %s", out)
	}
	// 无标题频道回退为"频道 <id>"
	if !strings.Contains(out, "频道 200") {
		t.Fatalf("missing fallback title: %s", out)
	}
}

func TestAssembleAnnouncementJoinNoGates(t *testing.T) {
	r := &model.Roulette{TextRaw: "hello", WinnersCount: 1}
	out := AssembleAnnouncement(r, nil, nil)
	if strings.Contains(out, "参与条件") {
		t.Fatalf("no-gate announcement must not list conditions: %s", out)
	}
}

func TestAssembleAnnouncementWinners(t *testing.T) {
	r := &model.Roulette{TextStyle: "plain"}
	winners := []model.Participant{
		{UserID: 7, Username: "alice"},
		{UserID: 8, Username: ""},
	}
	out := AssembleAnnouncement(r, nil, winners)
	if !strings.Contains(out, "🎉 开奖结果") {
		t.Fatalf("missing header: %s", out)
	}
	if !strings.Contains(out, "1. alice") {
		t.Fatalf("missing winner name: %s", out)
	}
	// 无用户名回退为"用户 <id>"
	if !strings.Contains(out, "2. 用户 8") {
		t.Fatalf("missing fallback username: %s", out)
	}
	if !strings.Contains(out, "共 2 名中奖者") {
		t.Fatalf("missing total: %s", out)
	}
}

func TestAssembleAnnouncementMarkdownStyle(t *testing.T) {
	r := &model.Roulette{TextStyle: "markdown", WinnersCount: 1}
	gates := []model.RouletteGate{
		{ChannelID: 1, ChannelTitle: "a_b", InviteLink: "https://t.me/x"},
	}
	out := AssembleAnnouncement(r, gates, nil)
	if !strings.Contains(out, `[a\_b](https://t.me/x)`) {
		t.Fatalf("markdown link/escape wrong: %s", out)
	}

	winners := []model.Participant{{UserID: 1, Username: "bob*"}}
	out = AssembleAnnouncement(r, nil, winners)
	if !strings.Contains(out, `*bob\**`) {
		t.Fatalf("markdown emphasis/escape wrong: %s", out)
	}
}

func TestAssembleAnnouncementHTMLStyle(t *testing.T) {
	r := &model.Roulette{TextStyle: "html", WinnersCount: 1}
	gates := []model.RouletteGate{
		{ChannelID: 1, ChannelTitle: "a<b>", InviteLink: "https://t.me/x"},
	}
	out := AssembleAnnouncement(r, gates, nil)
	if !strings.Contains(out, `<a href="https://t.me/x">a&lt;b&gt;</a>`) {
		t.Fatalf("html link/escape wrong: %s", out)
	}

	winners := []model.Participant{{UserID: 1, Username: "x&y"}}
	out = AssembleAnnouncement(r, nil, winners)
	if !strings.Contains(out, "<b>x&amp;y</b>") {
		t.Fatalf("html emphasis/escape wrong: %s", out)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("a_b*c[d]e`f"); got != "a\\_b\\*c\\[d\\]e\\`f" {
		t.Fatalf("escapeMarkdown = %s", got)
	}
}
