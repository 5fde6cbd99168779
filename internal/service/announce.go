package service

import (
	"fmt"
	"strings"

	"giveaway-server/internal/model"
)

// AssembleAnnouncement 组装公告文案（纯函数，便于测试）
// winners 为空时生成参与公告；非空时生成开奖公告。
// text_style: plain / markdown / html，仅影响强调与链接的包裹方式
func AssembleAnnouncement(r *model.Roulette, gates []model.RouletteGate, winners []model.Participant) string {
	var b strings.Builder

	style := strings.ToLower(strings.TrimSpace(r.TextStyle))

	if len(winners) == 0 {
		// 参与公告：正文 + 条件列表 + 名额
		if strings.TrimSpace(r.TextRaw) != "" {
			b.WriteString(r.TextRaw)
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("🎁 本次抽奖将选出 %d 名中奖者\n", r.WinnersCount))
		if len(gates) > 0 {
			b.WriteString("\n参与条件（需加入以下频道）：\n")
			for i := range gates {
				g := gates[i]
				title := g.ChannelTitle
				if title == "" {
					title = fmt.Sprintf("频道 %d", g.ChannelID)
				}
				if g.InviteLink != "" {
					b.WriteString("· ")
					b.WriteString(wrapLink(style, title, g.InviteLink))
					b.WriteString("\n")
				} else {
					b.WriteString("· ")
					b.WriteString(title)
					b.WriteString("\n")
				}
			}
		}
		return b.String()
	}

	// 开奖公告
	b.WriteString("🎉 开奖结果\n\n")
	for i := range winners {
		w := winners[i]
		name := w.Username
		if name == "" {
			name = fmt.Sprintf("用户 %d", w.UserID)
		}
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, wrapEmphasis(style, name)))
	}
	b.WriteString(fmt.Sprintf("\n共 %d 名中奖者，感谢参与！", len(winners)))
	return b.String()
}

// wrapLink 按样式包裹链接
func wrapLink(style, title, url string) string {
	switch style {
	case "markdown":
		return fmt.Sprintf("[%s](%s)", escapeMarkdown(title), url)
	case "html":
		return fmt.Sprintf(`<a href="%s">%s</a>`, url, escapeHTML(title))
	default:
		return fmt.Sprintf("%s (%s)", title, url)
	}
}

// wrapEmphasis 按样式包裹强调文本
func wrapEmphasis(style, s string) string {
	switch style {
	case "markdown":
		return "*" + escapeMarkdown(s) + "*"
	case "html":
		return "<b>" + escapeHTML(s) + "</b>"
	default:
		return s
	}
}

// escapeMarkdown 转义 Markdown 特殊字符
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return r.Replace(s)
}

// escapeHTML 转义 HTML 特殊字符
func escapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return r.Replace(s)
}
