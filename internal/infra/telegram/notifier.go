package telegram

import (
	"context"
	"fmt"

	"github.com/dmitrysorokin/mediapoints/backend/internal/domain/enums"
	"github.com/dmitrysorokin/mediapoints/backend/internal/services/submissions"
)

// ModerationNotifier forwards staged submissions into the admin chat as a
// media message with accept and reject buttons.
type ModerationNotifier struct {
	bot         *Bot
	adminChatID int64
}

func NewModerationNotifier(bot *Bot, adminChatID int64) *ModerationNotifier {
	return &ModerationNotifier{bot: bot, adminChatID: adminChatID}
}

func (n *ModerationNotifier) SendModerationPrompt(ctx context.Context, prompt submissions.ModerationPrompt) error {
	if n == nil || n.bot == nil {
		return fmt.Errorf("moderation notifier is not initialized")
	}
	if n.adminChatID == 0 {
		return fmt.Errorf("admin chat id is not configured")
	}

	fileName := prompt.FileName
	if fileName == "" {
		if prompt.Kind == enums.MediaKindVideo {
			fileName = "video.mp4"
		} else {
			fileName = "photo.jpg"
		}
	}

	caption := fmt.Sprintf("📤 Новое медиа\n\n👤 @%s\n💎 Баллы: %d", prompt.Handle, prompt.Points)

	return n.bot.SendMedia(ctx, MediaMessage{
		ChatID:     n.adminChatID,
		Video:      prompt.Kind == enums.MediaKindVideo,
		FileName:   fileName,
		Body:       prompt.Media,
		Caption:    caption,
		AcceptText: "✅ Принять",
		AcceptData: prompt.AcceptToken,
		RejectText: "❌ Отклонить",
		RejectData: prompt.RejectToken,
	})
}
