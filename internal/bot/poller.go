package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource is the long-polling side of *tgbotapi.BotAPI.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RunPolling receives updates until ctx is done, then waits for in-flight
// handlers to finish.
func (b *Bot) RunPolling(ctx context.Context, src UpdateSource, timeout int) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeout
	updates := src.GetUpdatesChan(cfg)

	b.logger.Info().Int("timeout", timeout).Msg("polling for updates")
	defer b.Wait()

	for {
		select {
		case <-ctx.Done():
			src.StopReceivingUpdates()
			b.logger.Info().Msg("polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.Dispatch(ctx, update)
		}
	}
}
