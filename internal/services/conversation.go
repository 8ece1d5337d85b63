package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

const conversationPrompt = `あなたは、ユーザーの「親友ユキ」です。
ユーザーの名前は「%s」です。次のメッセージに返信してください。
・タメ口で、ギャルっぽく明るく全肯定する。
・食事や美容の話題なら、健康の観点でさりげなく褒める。
・敬語は禁止。3行程度の短文で。

メッセージ:
%s`

// buildConversationPrompt embeds the user's name and message in the persona
// prompt. Full-width ASCII and half-width katakana in the message are folded
// to their canonical widths first.
func buildConversationPrompt(name, message string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = FallbackDisplayName
	}
	msg := strings.TrimSpace(width.Fold.String(message))
	return fmt.Sprintf(conversationPrompt, name, msg)
}
