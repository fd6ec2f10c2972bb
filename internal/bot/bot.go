// Package bot connects the roulette services to Telegram.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"roulette-bot/internal/animation"
	"roulette-bot/internal/service"
	"roulette-bot/pkg/uid"
)

// Sender is the subset of *tgbotapi.BotAPI the bot needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Config holds reveal and reply settings.
type Config struct {
	RevealDelay    time.Duration
	SupportContact string
}

// Bot routes Telegram updates to the spin and inventory services.
type Bot struct {
	api       Sender
	spin      *service.SpinService
	inventory *service.InventoryService
	anim      *animation.Animation
	cfg       Config
	logger    zerolog.Logger
	wg        sync.WaitGroup
}

// New creates a bot. anim may be nil, in which case the reveal skips
// straight to the item photo.
func New(
	api Sender,
	spin *service.SpinService,
	inventory *service.InventoryService,
	anim *animation.Animation,
	cfg Config,
	logger zerolog.Logger,
) *Bot {
	return &Bot{
		api:       api,
		spin:      spin,
		inventory: inventory,
		anim:      anim,
		cfg:       cfg,
		logger:    logger.With().Str("component", "bot").Logger(),
	}
}

// Dispatch handles update on its own goroutine.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.HandleUpdate(ctx, update)
	}()
}

// Wait blocks until every dispatched update has finished.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// HandleUpdate processes one update. Panics and unexpected errors are logged
// and answered with an apology; they never escape.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.fail(update, fmt.Errorf("panic: %v", r), debug.Stack())
		}
	}()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	}
	if err != nil {
		b.fail(update, err, nil)
	}
}

func (b *Bot) fail(update tgbotapi.Update, err error, stack []byte) {
	event := b.logger.Error().
		Err(err).
		Str("error_id", uid.New()).
		Int("update_id", update.UpdateID)
	if user := update.SentFrom(); user != nil {
		event = event.Int64("user_id", user.ID)
	}
	if chat := update.FromChat(); chat != nil {
		event = event.Int64("chat_id", chat.ID)
	}
	if stack != nil {
		event = event.Bytes("stack", stack)
	}
	event.Msg("unhandled error while processing update")

	chat := update.FromChat()
	if chat == nil {
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chat.ID, msgUnhandled)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chat.ID).Msg("failed to send error message to user")
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "spin":
			return b.handleSpin(ctx, msg)
		case "inventory", "inv":
			return b.handleInventory(ctx, msg)
		case "help", "start":
			return b.reply(msg, msgHelp)
		}
		return nil
	}

	switch msg.Text {
	case "инв", "инвентарь":
		return b.handleInventory(ctx, msg)
	case "":
		return nil
	}
	return b.handleAnswer(ctx, msg)
}

func (b *Bot) handleSpin(ctx context.Context, msg *tgbotapi.Message) error {
	req := service.SpinRequest{
		UserID:   msg.From.ID,
		ChatID:   msg.Chat.ID,
		Username: msg.From.UserName,
	}

	res, err := b.spin.Spin(ctx, req, b.revealer(msg))
	if err != nil {
		return err
	}

	switch res.Outcome {
	case service.OutcomeBusy:
		return b.reply(msg, msgBusy)
	case service.OutcomeChallengePending:
		return b.reply(msg, fmt.Sprintf(msgChallengePending, res.Question))
	case service.OutcomeChallengeIssued:
		return b.reply(msg, fmt.Sprintf(msgChallengeIssued, res.Question))
	case service.OutcomeUnavailable:
		return b.reply(msg, fmt.Sprintf(msgPersistFailed, b.cfg.SupportContact))
	}
	return nil
}

func (b *Bot) handleAnswer(ctx context.Context, msg *tgbotapi.Message) error {
	res := b.spin.AnswerChallenge(ctx, msg.From.ID, msg.Text)
	switch res.Outcome {
	case service.AnswerWrong:
		return b.reply(msg, fmt.Sprintf(msgChallengeWrong, res.Question))
	case service.AnswerSolved:
		return b.reply(msg, msgChallengeSolved)
	}
	return nil
}

func (b *Bot) handleInventory(ctx context.Context, msg *tgbotapi.Message) error {
	page, err := b.inventory.RenderPage(ctx, msg.From.ID, 0)
	if err != nil {
		return err
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, page.Text)
	out.ReplyToMessageID = msg.MessageID
	if kb := navKeyboard(page.Nav); kb != nil {
		out.ReplyMarkup = *kb
	}
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	owner, page, err := ParsePageToken(q.Data)
	if err != nil {
		return b.answerCallback(q.ID, "")
	}
	if q.From == nil || q.From.ID != owner {
		return b.answerCallback(q.ID, msgForeignInventory)
	}
	if err := b.answerCallback(q.ID, ""); err != nil {
		b.logger.Warn().Err(err).Str("callback_id", q.ID).Msg("failed to answer callback")
	}
	if q.Message == nil {
		return nil
	}

	p, err := b.inventory.RenderPage(ctx, owner, page)
	if err != nil {
		return err
	}

	var edit tgbotapi.EditMessageTextConfig
	if kb := navKeyboard(p.Nav); kb != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(q.Message.Chat.ID, q.Message.MessageID, p.Text, *kb)
	} else {
		edit = tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, p.Text)
	}
	if _, err := b.api.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return err
	}
	return nil
}

func (b *Bot) answerCallback(id, text string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(id, text))
	return err
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) error {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	_, err := b.api.Send(out)
	return err
}

func navKeyboard(nav *service.Navigation) *tgbotapi.InlineKeyboardMarkup {
	if nav == nil {
		return nil
	}
	var row []tgbotapi.InlineKeyboardButton
	if nav.Prev >= 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(buttonPrev, FormatPageToken(nav.UserID, nav.Prev)))
	}
	if nav.Next >= 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(buttonNext, FormatPageToken(nav.UserID, nav.Next)))
	}
	if len(row) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
