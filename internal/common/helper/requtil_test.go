package helper

import (
	"strings"
	"testing"
)

func TestIsJSONContentType(t *testing.T) {
	yes := []string{
		"application/json",
		"application/json; charset=utf-8",
		"  Application/JSON ",
		"application/problem+json",
	}
	for _, ct := range yes {
		if !IsJSONContentType(ct) {
			t.Fatalf("IsJSONContentType(%q) = false", ct)
		}
	}
	no := []string{"", "text/plain", "application/x-www-form-urlencoded"}
	for _, ct := range no {
		if IsJSONContentType(ct) {
			t.Fatalf("IsJSONContentType(%q) = true", ct)
		}
	}
}

func TestIsMoneyFormat(t *testing.T) {
	valid := []string{"0", "1", "100", "10.5", "10.50", " 99.99 "}
	for _, s := range valid {
		if !IsMoneyFormat(s) {
			t.Fatalf("IsMoneyFormat(%q) = false", s)
		}
	}
	invalid := []string{"", "-1", "01", "1.", ".5", "1.234", "abc", "1e3", "+1"}
	for _, s := range invalid {
		if IsMoneyFormat(s) {
			t.Fatalf("IsMoneyFormat(%q) = true", s)
		}
	}
}

func TestValidateRouletteCreate(t *testing.T) {
	ok := RouletteCreateParsed{ChannelID: 1, WinnersCount: 1}
	if pass, msg := ValidateRouletteCreate(&ok); !pass {
		t.Fatalf("valid input rejected: %s", msg)
	}

	bad := []RouletteCreateParsed{
		{ChannelID: 0, WinnersCount: 1},
		{ChannelID: 1, WinnersCount: 0},
		{ChannelID: 1, WinnersCount: 1001},
		{ChannelID: 1, WinnersCount: 1, TextRaw: strings.Repeat("x", 4097)},
		{ChannelID: 1, WinnersCount: 1, TextStyle: strings.Repeat("y", 33)},
	}
	for i, in := range bad {
		if pass, _ := ValidateRouletteCreate(&in); pass {
			t.Fatalf("case %d should be rejected", i)
		}
	}

	// 边界值
	edge := RouletteCreateParsed{ChannelID: 1, WinnersCount: 1000, TextRaw: strings.Repeat("x", 4096)}
	if pass, msg := ValidateRouletteCreate(&edge); !pass {
		t.Fatalf("edge input rejected: %s", msg)
	}
}

func TestValidateRouletteEvent(t *testing.T) {
	for et := 1; et <= 4; et++ {
		in := RouletteEventParsed{RouletteID: 1, EventType: et}
		if pass, msg := ValidateRouletteEvent(&in); !pass {
			t.Fatalf("event_type=%d rejected: %s", et, msg)
		}
	}
	bad := []RouletteEventParsed{
		{RouletteID: 0, EventType: 1},
		{RouletteID: 1, EventType: 0},
		{RouletteID: 1, EventType: 5},
		{RouletteID: 1, EventType: -1},
	}
	for i, in := range bad {
		if pass, _ := ValidateRouletteEvent(&in); pass {
			t.Fatalf("case %d should be rejected", i)
		}
	}
}

func TestParseRouletteEventFromJSON(t *testing.T) {
	in := strings.NewReader(`{"roulette_id": 12, "event_type": 2}`)
	out, ok, _ := ParseRouletteEventFromJSON(in)
	if !ok || out.RouletteID != 12 || out.EventType != 2 {
		t.Fatalf("parse result = %+v, ok=%v", out, ok)
	}

	// 非数值 event_type 不赋值，交由校验层拒绝
	in = strings.NewReader(`{"roulette_id": 12, "event_type": "publish"}`)
	out, ok, _ = ParseRouletteEventFromJSON(in)
	if !ok || out.EventType != 0 {
		t.Fatalf("string event_type should stay 0, got %+v", out)
	}

	if _, ok, _ := ParseRouletteEventFromJSON(strings.NewReader("not json")); ok {
		t.Fatalf("invalid json should fail")
	}
}

func TestValidatePaymentConfirm(t *testing.T) {
	ok := PaymentConfirmParsed{PaymentRef: "pay_1", UserID: 1, Tier: 1, Amount: "100"}
	if pass, msg := ValidatePaymentConfirm(&ok); !pass {
		t.Fatalf("valid input rejected: %s", msg)
	}

	bad := []PaymentConfirmParsed{
		{PaymentRef: "", UserID: 1, Tier: 1, Amount: "100"},
		{PaymentRef: "p", UserID: 0, Tier: 1, Amount: "100"},
		{PaymentRef: "p", UserID: 1, Tier: 3, Amount: "100"},
		{PaymentRef: "p", UserID: 1, Tier: 1, Amount: ""},
		{PaymentRef: "p", UserID: 1, Tier: 1, Amount: "1.234"},
		{PaymentRef: strings.Repeat("r", 65), UserID: 1, Tier: 1, Amount: "100"},
	}
	for i, in := range bad {
		if pass, _ := ValidatePaymentConfirm(&in); pass {
			t.Fatalf("case %d should be rejected", i)
		}
	}
}

func TestValidateGateAndJoinAndChannelLink(t *testing.T) {
	gOK := GateParsed{RouletteID: 1, ChannelID: 2}
	if pass, msg := ValidateGate(&gOK); !pass {
		t.Fatalf("valid gate rejected: %s", msg)
	}
	gBad := GateParsed{RouletteID: 0, ChannelID: 2}
	if pass, _ := ValidateGate(&gBad); pass {
		t.Fatalf("gate without roulette_id should be rejected")
	}

	jOK := JoinParsed{RouletteID: 1}
	if pass, msg := ValidateJoin(&jOK); !pass {
		t.Fatalf("valid join rejected: %s", msg)
	}
	jBad := JoinParsed{RouletteID: 0}
	if pass, _ := ValidateJoin(&jBad); pass {
		t.Fatalf("join without roulette_id should be rejected")
	}

	cOK := ChannelLinkParsed{ChannelID: 5}
	if pass, msg := ValidateChannelLink(&cOK); !pass {
		t.Fatalf("valid channel link rejected: %s", msg)
	}
	cBad := ChannelLinkParsed{ChannelID: 0}
	if pass, _ := ValidateChannelLink(&cBad); pass {
		t.Fatalf("channel link without channel_id should be rejected")
	}
}
