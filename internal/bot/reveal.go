package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"roulette-bot/internal/model"
	"roulette-bot/internal/service"
)

// revealer shows the roulette animation, waits, removes it and replies with
// the item picture.
func (b *Bot) revealer(msg *tgbotapi.Message) service.Revealer {
	return service.RevealFunc(func(ctx context.Context, req service.SpinRequest, item model.CatalogItem) error {
		if b.anim != nil {
			anim := tgbotapi.NewAnimation(req.ChatID, tgbotapi.FileBytes{Name: b.anim.FileName, Bytes: b.anim.Data})
			anim.Duration = b.anim.Seconds
			anim.ReplyToMessageID = msg.MessageID

			sent, err := b.api.Send(anim)
			if err != nil {
				return fmt.Errorf("send animation: %w", err)
			}

			if err := sleepContext(ctx, b.cfg.RevealDelay); err != nil {
				return err
			}

			if _, err := b.api.Request(tgbotapi.NewDeleteMessage(req.ChatID, sent.MessageID)); err != nil {
				b.logger.Warn().Err(err).Int64("chat_id", req.ChatID).Msg("failed to delete animation")
				if err := b.reply(msg, msgDeleteFailed); err != nil {
					return err
				}
			}
		}

		photo := tgbotapi.NewPhoto(req.ChatID, tgbotapi.FilePath(item.ImagePath))
		photo.Caption = fmt.Sprintf(msgReveal, item.Name)
		photo.ReplyToMessageID = msg.MessageID
		if _, err := b.api.Send(photo); err != nil {
			return fmt.Errorf("send item photo: %w", err)
		}
		return nil
	})
}
