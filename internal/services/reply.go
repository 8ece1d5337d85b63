package services

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-calorie-bot/internal/domain"
)

// Fixed user-facing strings.
const (
	// Apology is sent when a meal photo could not be processed.
	Apology = "ごめんね、うまく見えなかったみたい💦 もう一回送ってくれる？🥺"

	// GuestName is stored when the profile lookup fails at first contact.
	GuestName = "ゲスト"

	// FallbackDisplayName is used in prompts when no user row exists.
	FallbackDisplayName = "あなた"

	separator = "──────────"
)

// ComposeMealReply renders an estimation and the running daily total.
func ComposeMealReply(est domain.Estimation, total int) string {
	var b strings.Builder
	b.WriteString(est.ReplyText)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "🍽 %s\n", est.FoodName)
	fmt.Fprintf(&b, "・カロリー: %dkcal\n", est.Calorie)
	fmt.Fprintf(&b, "・炭水化物: %s\n", est.Carbs)
	fmt.Fprintf(&b, "・たんぱく質: %s\n", est.Protein)
	fmt.Fprintf(&b, "・脂質: %s\n", est.Fat)
	b.WriteString(separator)
	b.WriteString("\n")
	fmt.Fprintf(&b, "今日の合計: %dkcal", total)
	return b.String()
}
