package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 金额格式校验：非负，最多两位小数（预编译正则）
var moneyRe = regexp.MustCompile(`^(?:0|[1-9]\d*)(?:\.\d{1,2})?$`)

// IsMoneyFormat 判断金额格式
func IsMoneyFormat(s string) bool {
	return moneyRe.MatchString(strings.TrimSpace(s))
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// -------- 创建抽奖 --------

// RouletteCreateParsed 为解析后的创建抽奖入参（与控制器/服务层解耦）
type RouletteCreateParsed struct {
	ChannelID    int64  `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	TextRaw      string `json:"text_raw"`
	TextStyle    string `json:"text_style"`
	WinnersCount int    `json:"winners_count"`
}

// ParseRouletteCreateFromJSON 解析 JSON 到 RouletteCreateParsed。失败返回 false 与错误消息。
func ParseRouletteCreateFromJSON(r io.Reader) (RouletteCreateParsed, bool, string) {
	var out RouletteCreateParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return RouletteCreateParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ParseRouletteCreateFromForm 从表单读取字段并做强校验。失败返回 false 与可读错误信息。
func ParseRouletteCreateFromForm(ctx *beegocontext.Context) (RouletteCreateParsed, bool, string) {
	var out RouletteCreateParsed

	chStr := strings.TrimSpace(ctx.Input.Query("channel_id"))
	if chStr == "" {
		return RouletteCreateParsed{}, false, "channel_id required"
	}
	ch, err := strconv.ParseInt(chStr, 10, 64)
	if err != nil {
		return RouletteCreateParsed{}, false, "channel_id must be integer"
	}
	out.ChannelID = ch

	out.ChannelTitle = strings.TrimSpace(ctx.Input.Query("channel_title"))
	out.TextRaw = ctx.Input.Query("text_raw")
	out.TextStyle = strings.TrimSpace(ctx.Input.Query("text_style"))

	wcStr := strings.TrimSpace(ctx.Input.Query("winners_count"))
	if wcStr == "" {
		return RouletteCreateParsed{}, false, "winners_count required"
	}
	wc, err := strconv.Atoi(wcStr)
	if err != nil {
		return RouletteCreateParsed{}, false, "winners_count must be integer"
	}
	out.WinnersCount = wc

	return out, true, ""
}

// ValidateRouletteCreate 对通用字段做二次校验（适用于 JSON 与 FORM）。失败返回 false 与错误消息。
func ValidateRouletteCreate(in *RouletteCreateParsed) (bool, string) {
	if in.ChannelID == 0 {
		return false, "channel_id required"
	}
	if in.WinnersCount < 1 {
		return false, "winners_count must be >= 1"
	}
	if in.WinnersCount > 1000 {
		return false, "winners_count too large"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.ChannelTitle) > 255 || len(in.TextStyle) > 32 {
		return false, "invalid request"
	}
	if len(in.TextRaw) > 4096 {
		return false, "text_raw too long"
	}
	return true, ""
}

// ParseAndValidateRouletteCreate 按 Content-Type 自动解析并做统一校验
func ParseAndValidateRouletteCreate(ctx *beegocontext.Context) (RouletteCreateParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseRouletteCreateFromJSON, ParseRouletteCreateFromForm)
	if !ok {
		return RouletteCreateParsed{}, false, msg
	}
	if ok, msg := ValidateRouletteCreate(&out); !ok {
		return RouletteCreateParsed{}, false, msg
	}
	return out, true, ""
}

// -------- 生命周期事件 --------

// RouletteEventParsed 生命周期事件入参
type RouletteEventParsed struct {
	RouletteID int64 `json:"roulette_id"`
	EventType  int   `json:"event_type"` // 仅支持数值：1=publish 2=close 3=confirm_draw 4=cancel
}

// ParseRouletteEventFromJSON 仅接受数值型 event_type（1..4）
func ParseRouletteEventFromJSON(r io.Reader) (RouletteEventParsed, bool, string) {
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return RouletteEventParsed{}, false, "invalid request"
	}
	var out RouletteEventParsed
	if v, ok := raw["roulette_id"].(float64); ok {
		out.RouletteID = int64(v)
	}
	// 仅当 event_type 为 JSON 数字时赋值
	if v, ok := raw["event_type"].(float64); ok {
		out.EventType = int(v)
	}
	return out, true, ""
}

func ParseRouletteEventFromForm(ctx *beegocontext.Context) (RouletteEventParsed, bool, string) {
	var out RouletteEventParsed
	if rid := strings.TrimSpace(ctx.Input.Query("roulette_id")); rid != "" {
		if v, err := strconv.ParseInt(rid, 10, 64); err == nil {
			out.RouletteID = v
		}
	}
	et := strings.TrimSpace(ctx.Input.Query("event_type"))
	if et != "" {
		if n, err := strconv.Atoi(et); err == nil {
			out.EventType = n
		}
	}
	return out, true, ""
}

func ValidateRouletteEvent(in *RouletteEventParsed) (bool, string) {
	if in.RouletteID <= 0 || in.EventType == 0 {
		return false, "invalid request"
	}
	if in.EventType < 1 || in.EventType > 4 {
		return false, "event_type must be one of: 1|2|3|4"
	}
	return true, ""
}

// ParseAndValidateRouletteEvent 按 Content-Type 自动解析并校验
func ParseAndValidateRouletteEvent(ctx *beegocontext.Context) (RouletteEventParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseRouletteEventFromJSON, ParseRouletteEventFromForm)
	if !ok {
		return RouletteEventParsed{}, false, msg
	}
	if ok, msg := ValidateRouletteEvent(&out); !ok {
		return RouletteEventParsed{}, false, msg
	}
	return out, true, ""
}

// -------- 参与抽奖 --------

// JoinParsed 参与抽奖入参
// captcha_id/captcha_value 仅在开启人机校验时必填
type JoinParsed struct {
	RouletteID   int64  `json:"roulette_id"`
	Username     string `json:"username"`
	CaptchaID    string `json:"captcha_id"`
	CaptchaValue string `json:"captcha_value"`
}

func ParseJoinFromJSON(r io.Reader) (JoinParsed, bool, string) {
	var out JoinParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return JoinParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseJoinFromForm(ctx *beegocontext.Context) (JoinParsed, bool, string) {
	var out JoinParsed
	rid := strings.TrimSpace(ctx.Input.Query("roulette_id"))
	if rid == "" {
		return JoinParsed{}, false, "roulette_id required"
	}
	v, err := strconv.ParseInt(rid, 10, 64)
	if err != nil {
		return JoinParsed{}, false, "roulette_id must be integer"
	}
	out.RouletteID = v
	out.Username = strings.TrimSpace(ctx.Input.Query("username"))
	out.CaptchaID = strings.TrimSpace(ctx.Input.Query("captcha_id"))
	out.CaptchaValue = strings.TrimSpace(ctx.Input.Query("captcha_value"))
	return out, true, ""
}

func ValidateJoin(in *JoinParsed) (bool, string) {
	if in.RouletteID <= 0 {
		return false, "roulette_id required"
	}
	if len(in.Username) > 64 || len(in.CaptchaID) > 64 || len(in.CaptchaValue) > 16 {
		return false, "invalid request"
	}
	return true, ""
}

// ParseAndValidateJoin 按 Content-Type 自动解析并做统一校验
func ParseAndValidateJoin(ctx *beegocontext.Context) (JoinParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseJoinFromJSON, ParseJoinFromForm)
	if !ok {
		return JoinParsed{}, false, msg
	}
	if ok, msg := ValidateJoin(&out); !ok {
		return JoinParsed{}, false, msg
	}
	return out, true, ""
}

// -------- 订阅条件（Gate） --------

// GateParsed 订阅条件入参
type GateParsed struct {
	RouletteID   int64  `json:"roulette_id"`
	ChannelID    int64  `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	InviteLink   string `json:"invite_link"`
}

func ParseGateFromJSON(r io.Reader) (GateParsed, bool, string) {
	var out GateParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return GateParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseGateFromForm(ctx *beegocontext.Context) (GateParsed, bool, string) {
	var out GateParsed
	rid := strings.TrimSpace(ctx.Input.Query("roulette_id"))
	cid := strings.TrimSpace(ctx.Input.Query("channel_id"))
	if rid == "" || cid == "" {
		return GateParsed{}, false, "missing required fields: roulette_id/channel_id"
	}
	rv, err := strconv.ParseInt(rid, 10, 64)
	if err != nil {
		return GateParsed{}, false, "roulette_id must be integer"
	}
	cv, err := strconv.ParseInt(cid, 10, 64)
	if err != nil {
		return GateParsed{}, false, "channel_id must be integer"
	}
	out.RouletteID = rv
	out.ChannelID = cv
	out.ChannelTitle = strings.TrimSpace(ctx.Input.Query("channel_title"))
	out.InviteLink = strings.TrimSpace(ctx.Input.Query("invite_link"))
	return out, true, ""
}

func ValidateGate(in *GateParsed) (bool, string) {
	if in.RouletteID <= 0 || in.ChannelID == 0 {
		return false, "missing or invalid fields"
	}
	if len(in.ChannelTitle) > 255 || len(in.InviteLink) > 512 {
		return false, "invalid request"
	}
	return true, ""
}

// ParseAndValidateGate 按 Content-Type 自动解析并做统一校验
func ParseAndValidateGate(ctx *beegocontext.Context) (GateParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseGateFromJSON, ParseGateFromForm)
	if !ok {
		return GateParsed{}, false, msg
	}
	if ok, msg := ValidateGate(&out); !ok {
		return GateParsed{}, false, msg
	}
	return out, true, ""
}

// -------- 支付确认 --------

// PaymentConfirmParsed 支付确认入参（网关回调，payment_ref 为幂等键）
type PaymentConfirmParsed struct {
	PaymentRef string `json:"payment_ref"`
	UserID     int64  `json:"user_id"`
	Tier       int    `json:"tier"` // 1=subscription 2=credit
	Amount     string `json:"amount"`
}

func ParsePaymentConfirmFromJSON(r io.Reader) (PaymentConfirmParsed, bool, string) {
	var out PaymentConfirmParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return PaymentConfirmParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParsePaymentConfirmFromForm(ctx *beegocontext.Context) (PaymentConfirmParsed, bool, string) {
	var out PaymentConfirmParsed
	out.PaymentRef = strings.TrimSpace(ctx.Input.Query("payment_ref"))
	if out.PaymentRef == "" {
		return PaymentConfirmParsed{}, false, "payment_ref required"
	}

	uidStr := strings.TrimSpace(ctx.Input.Query("user_id"))
	if uidStr == "" {
		return PaymentConfirmParsed{}, false, "user_id required"
	}
	u64, err := strconv.ParseInt(uidStr, 10, 64)
	if err != nil {
		return PaymentConfirmParsed{}, false, "user_id must be integer"
	}
	out.UserID = u64

	tStr := strings.TrimSpace(ctx.Input.Query("tier"))
	if tStr == "" {
		return PaymentConfirmParsed{}, false, "tier required"
	}
	tn, err := strconv.Atoi(tStr)
	if err != nil || (tn != 1 && tn != 2) {
		return PaymentConfirmParsed{}, false, "tier must be 1|2"
	}
	out.Tier = tn

	out.Amount = strings.TrimSpace(ctx.Input.Query("amount"))
	if out.Amount == "" || !IsMoneyFormat(out.Amount) {
		return PaymentConfirmParsed{}, false, "amount must be numeric with up to 2 decimals"
	}

	return out, true, ""
}

func ValidatePaymentConfirm(in *PaymentConfirmParsed) (bool, string) {
	if in.PaymentRef == "" || in.UserID <= 0 || in.Tier == 0 || strings.TrimSpace(in.Amount) == "" {
		return false, "missing or invalid fields"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.PaymentRef) > 64 || len(in.Amount) > 32 {
		return false, "invalid request"
	}
	if in.Tier != 1 && in.Tier != 2 {
		return false, "tier must be 1|2"
	}
	if !IsMoneyFormat(in.Amount) {
		return false, "amount must be numeric with up to 2 decimals"
	}
	return true, ""
}

// ParseAndValidatePaymentConfirm 按 Content-Type 自动解析并做统一校验
func ParseAndValidatePaymentConfirm(ctx *beegocontext.Context) (PaymentConfirmParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParsePaymentConfirmFromJSON, ParsePaymentConfirmFromForm)
	if !ok {
		return PaymentConfirmParsed{}, false, msg
	}
	if ok, msg := ValidatePaymentConfirm(&out); !ok {
		return PaymentConfirmParsed{}, false, msg
	}
	return out, true, ""
}

// -------- 频道绑定 --------

// ChannelLinkParsed 频道绑定入参
type ChannelLinkParsed struct {
	ChannelID    int64  `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	Username     string `json:"username"`
}

func ParseChannelLinkFromJSON(r io.Reader) (ChannelLinkParsed, bool, string) {
	var out ChannelLinkParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return ChannelLinkParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseChannelLinkFromForm(ctx *beegocontext.Context) (ChannelLinkParsed, bool, string) {
	var out ChannelLinkParsed
	cid := strings.TrimSpace(ctx.Input.Query("channel_id"))
	if cid == "" {
		return ChannelLinkParsed{}, false, "channel_id required"
	}
	v, err := strconv.ParseInt(cid, 10, 64)
	if err != nil {
		return ChannelLinkParsed{}, false, "channel_id must be integer"
	}
	out.ChannelID = v
	out.ChannelTitle = strings.TrimSpace(ctx.Input.Query("channel_title"))
	out.Username = strings.TrimSpace(ctx.Input.Query("username"))
	return out, true, ""
}

func ValidateChannelLink(in *ChannelLinkParsed) (bool, string) {
	if in.ChannelID == 0 {
		return false, "channel_id required"
	}
	if len(in.ChannelTitle) > 255 || len(in.Username) > 64 {
		return false, "invalid request"
	}
	return true, ""
}

// ParseAndValidateChannelLink 按 Content-Type 自动解析并做统一校验
func ParseAndValidateChannelLink(ctx *beegocontext.Context) (ChannelLinkParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseChannelLinkFromJSON, ParseChannelLinkFromForm)
	if !ok {
		return ChannelLinkParsed{}, false, msg
	}
	if ok, msg := ValidateChannelLink(&out); !ok {
		return ChannelLinkParsed{}, false, msg
	}
	return out, true, ""
}
