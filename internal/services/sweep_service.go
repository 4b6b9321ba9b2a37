// Package services – SweepService
//
// SweepService is the delivery orchestrator. One run takes a single "now",
// collects due SPECIFIC_DATE messages and today's birthday messages, and for
// each one notifies the recipient and then commits DELIVERED. Items fail
// independently: a notifier or store error on one message is recorded and
// the run moves on.
//
// Delivery is at-least-once. The commit is a conditional update on
// status=SCHEDULED, so sequential runs never deliver twice; two overlapping
// runs may both notify unless a Locker is configured.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/helloforever-backend/internal/delivery"
	"github.com/tbourn/helloforever-backend/internal/domain"
	"github.com/tbourn/helloforever-backend/internal/lock"
	"github.com/tbourn/helloforever-backend/internal/notify"
	"github.com/tbourn/helloforever-backend/internal/repo"
)

// Sweep triggers recorded on each DeliveryRun.
const (
	TriggerHTTP   = "http"
	TriggerCLI    = "cli"
	TriggerTicker = "ticker"
)

const sweepLockName = "delivery-sweep"

var (
	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helloforever_deliveries_total",
			Help: "Messages processed by the delivery sweep, by outcome.",
		},
		[]string{"outcome"},
	)
	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helloforever_sweep_duration_seconds",
			Help:    "Wall time of one delivery sweep.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(deliveriesTotal, sweepDuration)
}

// DeliveredItem identifies a message committed as delivered.
type DeliveredItem struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	RecipientEmail string `json:"recipientEmail"`
}

// FailedItem identifies a message that stayed SCHEDULED, with the reason.
type FailedItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// SweepResult summarises one run.
type SweepResult struct {
	Now            time.Time       `json:"now"`
	DeliveredCount int             `json:"deliveredCount"`
	FailedCount    int             `json:"failedCount"`
	Delivered      []DeliveredItem `json:"delivered"`
	Failed         []FailedItem    `json:"failed"`
}

// SweepService delivers due messages.
type SweepService struct {
	DB       *gorm.DB
	Notifier notify.Notifier

	// Locker, when set, rejects overlapping runs with ErrSweepInProgress.
	Locker  lock.Locker
	LockTTL time.Duration

	// NotifyTimeout bounds each notifier call; zero disables it.
	NotifyTimeout time.Duration
}

// Run performs one sweep at now. trigger is stored on the audit row.
func (s *SweepService) Run(ctx context.Context, now time.Time, trigger string) (*SweepResult, error) {
	now = now.UTC()
	ctx, span := otel.Tracer("services/SweepService").Start(ctx, "Run",
		trace.WithAttributes(
			attribute.String("sweep.now", now.Format(time.RFC3339)),
			attribute.String("sweep.trigger", trigger),
		),
	)
	defer span.End()

	if s.Locker != nil {
		ttl := s.LockTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		release, err := s.Locker.Acquire(ctx, sweepLockName, ttl)
		switch {
		case errors.Is(err, lock.ErrHeld):
			return nil, ErrSweepInProgress
		case err != nil:
			// Fall back to the unlocked, at-least-once behaviour.
			log.Warn().Err(err).Msg("sweep lock unavailable, continuing without it")
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					log.Warn().Err(err).Msg("sweep lock release failed")
				}
			}()
		}
	}

	start := time.Now()
	candidates, err := s.Candidates(ctx, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	res := &SweepResult{
		Now:       now,
		Delivered: []DeliveredItem{},
		Failed:    []FailedItem{},
	}
	for i := range candidates {
		m := &candidates[i]
		if err := ctx.Err(); err != nil {
			// Nothing was sent for the rest; they stay SCHEDULED for the next run.
			res.Failed = append(res.Failed, FailedItem{ID: m.ID, Title: m.Title, Error: err.Error()})
			deliveriesTotal.WithLabelValues("failed").Inc()
			continue
		}
		if err := s.deliver(ctx, m, now); err != nil {
			res.Failed = append(res.Failed, FailedItem{ID: m.ID, Title: m.Title, Error: err.Error()})
			deliveriesTotal.WithLabelValues("failed").Inc()
			log.Warn().
				Err(err).
				Str("message_id", m.ID).
				Msg("delivery failed")
			continue
		}
		res.Delivered = append(res.Delivered, DeliveredItem{ID: m.ID, Title: m.Title, RecipientEmail: m.Recipient.Email})
		deliveriesTotal.WithLabelValues("delivered").Inc()
	}
	res.DeliveredCount = len(res.Delivered)
	res.FailedCount = len(res.Failed)

	took := time.Since(start)
	sweepDuration.Observe(took.Seconds())
	span.SetAttributes(
		attribute.Int("sweep.delivered", res.DeliveredCount),
		attribute.Int("sweep.failed", res.FailedCount),
	)
	log.Info().
		Time("now", now).
		Str("trigger", trigger).
		Int("candidates", len(candidates)).
		Int("delivered", res.DeliveredCount).
		Int("failed", res.FailedCount).
		Dur("took", took).
		Msg("delivery sweep finished")

	if _, err := repo.CreateDeliveryRun(context.WithoutCancel(ctx), s.DB, now, trigger, res.DeliveredCount, res.FailedCount, res); err != nil {
		log.Error().Err(err).Msg("delivery run audit write failed")
	}
	return res, nil
}

// Candidates returns the messages due at now: SPECIFIC_DATE messages from
// the store query plus birthday messages whose recipient's month and day
// match now. The union is de-duplicated by ID and every entry has its
// recipient and author loaded.
func (s *SweepService) Candidates(ctx context.Context, now time.Time) ([]domain.Message, error) {
	byDate, err := repo.DueSpecificDate(ctx, s.DB, now)
	if err != nil {
		return nil, fmt.Errorf("specific-date candidates: %w", err)
	}
	birthdays, err := repo.BirthdayCandidates(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("birthday candidates: %w", err)
	}

	seen := make(map[string]struct{}, len(byDate)+len(birthdays))
	out := make([]domain.Message, 0, len(byDate))
	for _, set := range [][]domain.Message{byDate, birthdays} {
		for _, m := range set {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			if !delivery.IsDue(m, m.Recipient.Birthday, now) {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

// deliver notifies, then commits. A commit that matches no SCHEDULED row
// is a failure: the message changed under the sweep.
func (s *SweepService) deliver(ctx context.Context, m *domain.Message, now time.Time) error {
	if s.Notifier == nil {
		return notify.ErrNotConfigured
	}
	nctx := ctx
	if s.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		nctx, cancel = context.WithTimeout(ctx, s.NotifyTimeout)
		defer cancel()
	}
	err := s.Notifier.Send(nctx, notify.Delivery{
		RecipientEmail: m.Recipient.Email,
		RecipientName:  m.Recipient.Name,
		SenderName:     m.User.Name,
		MessageTitle:   m.Title,
		MessageID:      m.ID,
		MessageType:    string(m.Type),
		Note:           m.Note,
	})
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	// The email is out: commit even if the caller has gone away, or the
	// next sweep would send it again.
	out := delivery.OutcomeAt(now)
	ok, err := repo.MarkDelivered(context.WithoutCancel(ctx), s.DB, m.ID, out.DeliveredAt)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if !ok {
		return errors.New("commit: message is no longer scheduled")
	}
	m.Status, m.DeliveredAt = out.Status, &out.DeliveredAt
	return nil
}
