// Package push implements the LINE Pusher (C7): it delivers a text message
// plus an optional audio message to one validated LINE user, dropping the
// call without any network I/O when the user id is malformed (§4.7).
package push

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/ordering-helper/backend/logger"
	"github.com/ordering-helper/backend/pkg/config"
)

// lineUserIDPattern is the format check from §4.7.
var lineUserIDPattern = regexp.MustCompile(`^U[0-9a-f]{32}$`)

// ValidUserID reports whether raw is a real LINE user id, not a guest
// token or placeholder (§4.7).
func ValidUserID(raw string) bool {
	return lineUserIDPattern.MatchString(raw)
}

// Pusher sends push messages through the LINE Messaging API.
type Pusher struct {
	client *messaging_api.MessagingApiAPI
}

// New builds a Pusher from the configured channel access token. A missing
// token yields a Pusher whose Push calls always no-op (treated like any
// other transport failure, §4.7).
func New(cfg config.LineConfig) (*Pusher, error) {
	if cfg.ChannelAccessToken == "" {
		return &Pusher{}, nil
	}
	client, err := messaging_api.NewMessagingApiAPI(cfg.ChannelAccessToken)
	if err != nil {
		return nil, err
	}
	return &Pusher{client: client}, nil
}

// Push sends the user-language summary, the Chinese summary, and the total,
// followed by an audio message when audioURL is eligible (§4.7). Malformed
// user ids and transport errors are both non-fatal: they are logged and
// swallowed, never surfaced to the pipeline.
func (p *Pusher) Push(ctx context.Context, lineUserID, userLanguageSummary, chineseSummary string, totalAmount int, audioURL string, durationMs int64) {
	if !ValidUserID(lineUserID) {
		logger.Warn("push skipped: line user id failed format check", map[string]interface{}{
			"line_user_id": redact(lineUserID),
		})
		return
	}

	if p.client == nil {
		logger.Warn("push skipped: line channel access token not configured", nil)
		return
	}

	body := fmt.Sprintf("%s\n中文摘要(給店家聽)：%s\n總金額：%d 元", userLanguageSummary, chineseSummary, totalAmount)

	messages := []messaging_api.MessageInterface{
		messaging_api.TextMessage{Text: body},
	}

	if strings.HasPrefix(audioURL, "https://") {
		messages = append(messages, messaging_api.AudioMessage{
			OriginalContentUrl: audioURL,
			Duration:           int32(durationMs),
		})
	}

	_, err := p.client.PushMessage(&messaging_api.PushMessageRequest{
		To:       lineUserID,
		Messages: messages,
	}, "")
	if err != nil {
		logger.Warn("line push transport error", map[string]interface{}{
			"line_user_id": redact(lineUserID),
			"error":        err.Error(),
		})
		return
	}

	logger.Info("line push delivered", map[string]interface{}{
		"line_user_id": redact(lineUserID),
		"has_audio":    len(messages) > 1,
	})
}

// redact keeps only the first 6 characters of a LINE user id in logs.
func redact(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[:6] + "…"
}
