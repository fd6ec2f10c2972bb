package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roulette-bot/internal/animation"
	"roulette-bot/internal/catalog"
	"roulette-bot/internal/model"
	"roulette-bot/internal/repository"
	"roulette-bot/internal/service"
)

const (
	userID = int64(1001)
	chatID = int64(-5001)
)

// fakeSender records every outgoing call.
type fakeSender struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	requests  []tgbotapi.Chattable
	nextID    int
	deleteErr error
	panicOn   string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok && f.panicOn != "" && m.Text == f.panicOn {
		f.panicOn = ""
		panic("send exploded")
	}
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if _, ok := c.(tgbotapi.DeleteMessageConfig); ok && f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeSender) lastText() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type harness struct {
	bot    *Bot
	sender *fakeSender
	spin   *service.SpinService
	ledger repository.Ledger
}

func testCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	items := make([]model.CatalogItem, n)
	for i := range items {
		items[i] = model.CatalogItem{
			ID:        int64(i + 1),
			Name:      fmt.Sprintf("Предмет %d", i+1),
			Price:     5,
			Weight:    0.5,
			ImagePath: fmt.Sprintf("item/%d.png", i+1),
		}
	}
	cat, err := catalog.New("test", items)
	require.NoError(t, err)
	return cat
}

func newHarness(t *testing.T, ledger repository.Ledger, cat *catalog.Catalog) *harness {
	t.Helper()
	if ledger == nil {
		l, err := repository.NewSQLiteLedger(filepath.Join(t.TempDir(), "inventory.db"), time.Second, 5*time.Second)
		require.NoError(t, err)
		t.Cleanup(func() { l.Close() })
		ledger = l
	}
	if cat == nil {
		cat = testCatalog(t, 1)
	}

	sampler, err := service.NewSampler(cat.Items(), nil)
	require.NoError(t, err)
	captcha := service.NewCaptcha(func(int) int { return 0 })
	spin := service.NewSpinService(sampler, service.NewGate(), captcha, ledger, service.SpinConfig{ChallengeInterval: 50}, zerolog.Nop())

	sender := &fakeSender{}
	anim := &animation.Animation{Data: []byte("GIF89a"), FileName: "roulette.gif", Seconds: 7}
	b := New(sender, spin, service.NewInventoryService(ledger, cat), anim,
		Config{SupportContact: "@support"}, zerolog.Nop())

	return &harness{bot: b, sender: sender, spin: spin, ledger: ledger}
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: userID, UserName: "neo"},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "group"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func callbackUpdate(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: from},
			Data:    data,
			Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: chatID}},
		},
	}
}

func TestSpinRevealSequence(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.bot.HandleUpdate(context.Background(), textUpdate("/spin"))

	require.Len(t, h.sender.sent, 2)
	anim, ok := h.sender.sent[0].(tgbotapi.AnimationConfig)
	require.True(t, ok)
	assert.Equal(t, chatID, anim.ChatID)

	require.Len(t, h.sender.requests, 1)
	del, ok := h.sender.requests[0].(tgbotapi.DeleteMessageConfig)
	require.True(t, ok)
	assert.Equal(t, 1, del.MessageID)

	photo, ok := h.sender.sent[1].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "вам выпало Предмет 1", photo.Caption)
	assert.Equal(t, tgbotapi.FilePath("item/1.png"), photo.File)

	entries, err := h.ledger.ListEntries(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, h.spin.Gate().SpinCount(userID))
}

func TestSpinDeleteFailureIsReported(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.sender.deleteErr = errors.New("Bad Request: message can't be deleted")

	h.bot.HandleUpdate(context.Background(), textUpdate("/spin"))

	assert.Equal(t, []string{msgDeleteFailed}, h.sender.texts())
	_, ok := h.sender.sent[len(h.sender.sent)-1].(tgbotapi.PhotoConfig)
	assert.True(t, ok, "photo still sent")
}

func TestSpinBusy(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.True(t, h.spin.Gate().TryAcquire(userID))

	h.bot.HandleUpdate(context.Background(), textUpdate("/spin"))

	assert.Equal(t, []string{"рулетка уже крутиться. подождите"}, h.sender.texts())
}

func TestCaptchaFlow(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.spin.Gate().Update(userID, func(st *service.UserSpinState) { st.SpinCount = 50 })
	ctx := context.Background()

	h.bot.HandleUpdate(ctx, textUpdate("/spin"))
	assert.Equal(t, "Капча: 1+1=? Ответь числом.", h.sender.lastText())

	h.bot.HandleUpdate(ctx, textUpdate("/spin"))
	assert.Equal(t, "сначала реши капчу.\nКапча: 1+1=? Ответь числом.", h.sender.lastText())

	h.bot.HandleUpdate(ctx, textUpdate("5"))
	assert.Equal(t, "неверно, попробуй ещё.\nКапча: 1+1=? Ответь числом.", h.sender.lastText())

	before := len(h.sender.texts())
	h.bot.HandleUpdate(ctx, textUpdate("два"))
	assert.Len(t, h.sender.texts(), before, "malformed answer is ignored")

	h.bot.HandleUpdate(ctx, textUpdate("2"))
	assert.Equal(t, "капча пройдена, можешь снова использовать /spin", h.sender.lastText())
	assert.Equal(t, 0, h.spin.Gate().SpinCount(userID))
}

func TestSpinPersistenceFailure(t *testing.T) {
	l, err := repository.NewSQLiteLedger(filepath.Join(t.TempDir(), "inventory.db"), time.Second, time.Second)
	require.NoError(t, err)
	require.NoError(t, l.Close())
	h := newHarness(t, l, nil)

	h.bot.HandleUpdate(context.Background(), textUpdate("/spin"))

	assert.Equal(t, []string{"временная ошибка сохранения, обратитесь к @support"}, h.sender.texts())
	assert.False(t, h.spin.Gate().Snapshot(userID).InFlight)
}

type panicLedger struct{ repository.Ledger }

func (panicLedger) Grant(context.Context, model.Grant) error { panic("driver bug") }

func TestPanicIsRecovered(t *testing.T) {
	l, err := repository.NewSQLiteLedger(filepath.Join(t.TempDir(), "inventory.db"), time.Second, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	h := newHarness(t, panicLedger{l}, nil)

	assert.NotPanics(t, func() {
		h.bot.HandleUpdate(context.Background(), textUpdate("/spin"))
	})
	assert.Equal(t, []string{msgUnhandled}, h.sender.texts())
	assert.False(t, h.spin.Gate().Snapshot(userID).InFlight)
}

func TestPanicInSendIsRecovered(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.sender.panicOn = msgHelp

	h.bot.HandleUpdate(context.Background(), textUpdate("/help"))

	assert.Equal(t, []string{msgUnhandled}, h.sender.texts())
}

func TestHelpAndStart(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.bot.HandleUpdate(context.Background(), textUpdate("/help"))
	h.bot.HandleUpdate(context.Background(), textUpdate("/start"))
	assert.Equal(t, []string{"автор @HATE_death_ME", "автор @HATE_death_ME"}, h.sender.texts())
}

func TestInventoryCommandAndTriggers(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	h.bot.HandleUpdate(ctx, textUpdate("/inv"))
	assert.True(t, strings.HasPrefix(h.sender.lastText(), "Инвентарь пуст."))

	h.bot.HandleUpdate(ctx, textUpdate("/spin"))
	for _, text := range []string{"/inventory", "инв", "инвентарь"} {
		h.bot.HandleUpdate(ctx, textUpdate(text))
		assert.True(t, strings.HasPrefix(h.sender.lastText(), "Предмет 1 x1 | цена 5 метровалюта | шанс 0.5"), text)
	}

	before := len(h.sender.texts())
	h.bot.HandleUpdate(ctx, textUpdate("Инв"))
	assert.Len(t, h.sender.texts(), before, "triggers are exact")
}

func TestInventoryPagination(t *testing.T) {
	cat := testCatalog(t, 30)
	h := newHarness(t, nil, cat)
	ctx := context.Background()
	for id := int64(1); id <= 30; id++ {
		require.NoError(t, h.ledger.Grant(ctx, model.Grant{UserID: userID, ItemID: id, Timestamp: time.Now()}))
	}

	h.bot.HandleUpdate(ctx, textUpdate("/inv"))
	msg, ok := h.sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard[0], 1)
	assert.Equal(t, "▶️", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "inv:1001:1", *kb.InlineKeyboard[0][0].CallbackData)

	h.bot.HandleUpdate(ctx, callbackUpdate(userID, "inv:1001:1"))

	require.Len(t, h.sender.requests, 1)
	cb := h.sender.requests[0].(tgbotapi.CallbackConfig)
	assert.Empty(t, cb.Text)

	edit, ok := h.sender.sent[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 77, edit.MessageID)
	assert.True(t, strings.HasPrefix(edit.Text, "Предмет 26 x1"))
	require.NotNil(t, edit.ReplyMarkup)
	assert.Equal(t, "◀️", edit.ReplyMarkup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "inv:1001:0", *edit.ReplyMarkup.InlineKeyboard[0][0].CallbackData)
}

func TestCallbackFromAnotherUser(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.bot.HandleUpdate(context.Background(), callbackUpdate(2002, "inv:1001:0"))

	require.Len(t, h.sender.requests, 1)
	assert.Equal(t, "не твой инвентарь", h.sender.requests[0].(tgbotapi.CallbackConfig).Text)
	assert.Empty(t, h.sender.sent)
}

func TestCallbackMalformedToken(t *testing.T) {
	h := newHarness(t, nil, nil)

	for _, data := range []string{"", "inv:1001", "inv:x:0", "inv:1001:y", "shop:1001:0"} {
		h.bot.HandleUpdate(context.Background(), callbackUpdate(userID, data))
	}

	require.Len(t, h.sender.requests, 5)
	for _, r := range h.sender.requests {
		assert.Empty(t, r.(tgbotapi.CallbackConfig).Text)
	}
	assert.Empty(t, h.sender.sent)
}

func TestPageToken(t *testing.T) {
	token := FormatPageToken(42, 3)
	assert.Equal(t, "inv:42:3", token)

	uid, page, err := ParsePageToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
	assert.Equal(t, 3, page)

	_, _, err = ParsePageToken("inv:42:3:4")
	assert.ErrorIs(t, err, model.ErrValidation)
}

type chanSource struct {
	ch      chan tgbotapi.Update
	stopped chan struct{}
}

func (s *chanSource) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return s.ch }
func (s *chanSource) StopReceivingUpdates()                                        { close(s.stopped) }

func TestRunPolling(t *testing.T) {
	h := newHarness(t, nil, nil)
	src := &chanSource{ch: make(chan tgbotapi.Update, 1), stopped: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- h.bot.RunPolling(ctx, src, 1) }()

	src.ch <- textUpdate("/help")
	require.Eventually(t, func() bool { return len(h.sender.texts()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	<-src.stopped
}
