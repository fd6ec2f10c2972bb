package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"roulette-bot/internal/metrics"
	"roulette-bot/internal/model"
	"roulette-bot/internal/repository"
)

// SpinRequest identifies who is spinning and where the result goes.
type SpinRequest struct {
	UserID   int64
	ChatID   int64
	Username string
}

// Outcome is the terminal state of one spin attempt.
type Outcome int

const (
	OutcomeGranted Outcome = iota
	OutcomeBusy
	OutcomeChallengePending
	OutcomeChallengeIssued
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGranted:
		return "granted"
	case OutcomeBusy:
		return "busy"
	case OutcomeChallengePending:
		return "challenge_pending"
	case OutcomeChallengeIssued:
		return "challenge_issued"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// SpinResult carries what the transport needs to reply.
type SpinResult struct {
	Outcome   Outcome
	Item      model.CatalogItem // set when granted
	Question  string            // set for both challenge outcomes
	SpinCount int
}

// Revealer shows a committed grant to the user.
type Revealer interface {
	Reveal(ctx context.Context, req SpinRequest, item model.CatalogItem) error
}

// RevealFunc adapts a function to Revealer.
type RevealFunc func(ctx context.Context, req SpinRequest, item model.CatalogItem) error

func (f RevealFunc) Reveal(ctx context.Context, req SpinRequest, item model.CatalogItem) error {
	return f(ctx, req, item)
}

// Journal records committed grants outside the ledger.
type Journal interface {
	Append(g model.Grant, item model.CatalogItem) error
}

// SpinConfig tunes the captcha checkpoint.
type SpinConfig struct {
	ChallengeInterval int
	CountChallenged   bool
}

// AnswerOutcome is the result of a captcha answer.
type AnswerOutcome int

const (
	AnswerIgnored AnswerOutcome = iota
	AnswerWrong
	AnswerSolved
)

// AnswerResult carries the replacement question after a wrong answer.
type AnswerResult struct {
	Outcome  AnswerOutcome
	Question string
}

// SpinService runs the spin state machine and the captcha answer path.
type SpinService struct {
	sampler *Sampler
	gate    *Gate
	captcha *Captcha
	ledger  repository.Ledger
	journal Journal
	metrics *metrics.Metrics
	cfg     SpinConfig
	now     func() time.Time
	logger  zerolog.Logger
}

// NewSpinService creates the orchestrator. Journal and metrics are optional
// and set with SetJournal and SetMetrics.
func NewSpinService(
	sampler *Sampler,
	gate *Gate,
	captcha *Captcha,
	ledger repository.Ledger,
	cfg SpinConfig,
	logger zerolog.Logger,
) *SpinService {
	if cfg.ChallengeInterval <= 0 {
		cfg.ChallengeInterval = 50
	}
	return &SpinService{
		sampler: sampler,
		gate:    gate,
		captcha: captcha,
		ledger:  ledger,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger.With().Str("component", "spin").Logger(),
	}
}

// SetJournal sets the spreadsheet journal.
func (s *SpinService) SetJournal(j Journal) {
	s.journal = j
}

// SetMetrics sets the Prometheus collectors.
func (s *SpinService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetClock overrides the grant timestamp source.
func (s *SpinService) SetClock(now func() time.Time) {
	s.now = now
}

// Gate returns the per-user state holder.
func (s *SpinService) Gate() *Gate {
	return s.gate
}

// Spin performs one attempt for req.UserID. The user's in-flight mark is
// released on every return path, panics included. reveal may be nil.
func (s *SpinService) Spin(ctx context.Context, req SpinRequest, reveal Revealer) (*SpinResult, error) {
	if !s.gate.TryAcquire(req.UserID) {
		s.logger.Debug().Int64("user_id", req.UserID).Msg("spin rejected: already in flight")
		return s.finish(&SpinResult{Outcome: OutcomeBusy}), nil
	}
	defer s.gate.Release(req.UserID)

	if res := s.checkpoint(req.UserID); res != nil {
		return s.finish(res), nil
	}

	item := s.sampler.Draw()
	grant := model.Grant{
		UserID:    req.UserID,
		ItemID:    item.ID,
		Username:  req.Username,
		ChatID:    req.ChatID,
		Timestamp: s.now(),
	}

	start := time.Now()
	err := s.ledger.Grant(ctx, grant)
	s.metrics.ObserveGrant(time.Since(start), err)
	if err != nil {
		if errors.Is(err, model.ErrPersistence) {
			s.logger.Warn().Err(err).
				Int64("user_id", req.UserID).
				Int64("item_id", item.ID).
				Msg("grant not persisted")
			return s.finish(&SpinResult{Outcome: OutcomeUnavailable}), nil
		}
		return nil, fmt.Errorf("grant item %d to user %d: %w", item.ID, req.UserID, err)
	}

	if s.journal != nil {
		if err := s.journal.Append(grant, item); err != nil {
			s.logger.Warn().Err(err).Int64("user_id", req.UserID).Msg("journal append failed")
		}
	}

	if reveal != nil {
		if err := safeReveal(ctx, reveal, req, item); err != nil {
			s.logger.Warn().Err(err).
				Int64("user_id", req.UserID).
				Int64("chat_id", req.ChatID).
				Int64("item_id", item.ID).
				Msg("reveal failed after commit")
		}
	}

	count := s.gate.IncrementSpinCount(req.UserID)
	s.logger.Info().
		Int64("user_id", req.UserID).
		Int64("item_id", item.ID).
		Str("item", item.Name).
		Int("spin_count", count).
		Msg("item granted")

	return s.finish(&SpinResult{Outcome: OutcomeGranted, Item: item, SpinCount: count}), nil
}

// checkpoint returns a non-nil result when the user must answer a captcha first.
func (s *SpinService) checkpoint(userID int64) *SpinResult {
	var res *SpinResult
	s.gate.Update(userID, func(st *UserSpinState) {
		if st.PendingChallenge != nil {
			res = &SpinResult{
				Outcome:   OutcomeChallengePending,
				Question:  st.PendingChallenge.Question,
				SpinCount: st.SpinCount,
			}
			return
		}

		n := st.SpinCount
		if n > 0 && n%s.cfg.ChallengeInterval == 0 {
			ch := s.captcha.Generate()
			st.PendingChallenge = &ch
			if s.cfg.CountChallenged {
				st.SpinCount++
			}
			res = &SpinResult{
				Outcome:   OutcomeChallengeIssued,
				Question:  ch.Question,
				SpinCount: st.SpinCount,
			}
		}
	})

	if res != nil && res.Outcome == OutcomeChallengeIssued {
		s.metrics.Challenge("issued")
		s.logger.Info().Int64("user_id", userID).Int("spin_count", res.SpinCount).Msg("captcha issued")
	}
	return res
}

func (s *SpinService) finish(res *SpinResult) *SpinResult {
	s.metrics.SpinOutcome(res.Outcome.String())
	return res
}

func safeReveal(ctx context.Context, reveal Revealer, req SpinRequest, item model.CatalogItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reveal panicked: %v", r)
		}
	}()
	return reveal.Reveal(ctx, req, item)
}

// AnswerChallenge checks text against the user's pending captcha. The whole
// check runs under the user's state lock. Users who never spun are not tracked.
func (s *SpinService) AnswerChallenge(ctx context.Context, userID int64, text string) AnswerResult {
	var res AnswerResult
	s.gate.UpdateExisting(userID, func(st *UserSpinState) {
		if st.PendingChallenge == nil {
			return
		}
		answer, err := ParseAnswer(text)
		if err != nil {
			return
		}
		if answer != st.PendingChallenge.Answer {
			ch := s.captcha.Generate()
			st.PendingChallenge = &ch
			res = AnswerResult{Outcome: AnswerWrong, Question: ch.Question}
			return
		}
		st.PendingChallenge = nil
		st.SpinCount = 0
		res = AnswerResult{Outcome: AnswerSolved}
	})

	switch res.Outcome {
	case AnswerWrong:
		s.metrics.Challenge("wrong")
		s.logger.Debug().Int64("user_id", userID).Msg("captcha answer wrong")
	case AnswerSolved:
		s.metrics.Challenge("solved")
		s.logger.Info().Int64("user_id", userID).Msg("captcha solved")
	}
	return res
}
