// Package webhook drains the webhook queue and delivers each notification.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"macrotrack/internal/metrics"
	"macrotrack/internal/notifier"
	"macrotrack/internal/pgmq"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Queue is the part of *pgmq.Client the worker uses.
type Queue interface {
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, maxMessages, pollSec int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgID int64) error
}

type Options struct {
	Queue string
	// VisibilitySec is a floor; the worker always hides a batch for at least
	// the time it may take to work through it.
	VisibilitySec int
	PollSec       int
	MaxMessages   int
	// MaxRetries is the number of delivery attempts after the first.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// AttemptTimeout bounds one delivery attempt.
	AttemptTimeout time.Duration
	// ReadErrorDelay is the pause after a failed queue read.
	ReadErrorDelay time.Duration
}

func (o Options) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.InitialInterval
	b.MaxInterval = o.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.MaxRetries)), ctx)
}

// visibility returns how long a read batch stays hidden. Messages of a batch
// are delivered one after another, each with up to MaxRetries+1 attempts and
// a backoff wait between them, so the last message must not reappear before
// the worker reaches it.
func (o Options) visibility() int {
	perMessage := time.Duration(o.MaxRetries+1) * (o.AttemptTimeout + o.MaxInterval)
	batch := time.Duration(max(o.MaxMessages, 1)) * perMessage
	sec := int(math.Ceil(batch.Seconds()))
	return max(sec, o.VisibilitySec, 1)
}

// Run starts the webhook orchestrator. It returns nil when ctx is cancelled.
func Run(ctx context.Context, logger zerolog.Logger, q Queue, deliver notifier.Notifier, opts Options, m *metrics.Metrics) error {
	logger = logger.With().Str("orchestrator", "webhook").Str("queue", opts.Queue).Logger()
	visibilitySec := opts.visibility()
	logger.Info().Int("visibility_sec", visibilitySec).Int("max_messages", opts.MaxMessages).Msg("Starting webhook orchestrator")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down webhook orchestrator")
			return nil
		default:
		}

		msgs, err := q.ReadWithPoll(ctx, opts.Queue, visibilitySec, opts.MaxMessages, opts.PollSec)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error().Err(err).Msg("Error reading webhook queue")
			select {
			case <-ctx.Done():
			case <-time.After(opts.ReadErrorDelay):
			}
			continue
		}

		for _, msg := range msgs {
			if ctx.Err() != nil {
				// Unfinished messages become visible again after the timeout.
				break
			}
			handle(ctx, logger, q, deliver, opts, m, msg)
		}
	}
}

func handle(ctx context.Context, logger zerolog.Logger, q Queue, deliver notifier.Notifier, opts Options, m *metrics.Metrics, msg *pgmq.Message) {
	log := logger.With().Int64("msg_id", msg.ID).Int("read_ct", msg.ReadCt).Logger()

	var n notifier.Notification
	if err := json.Unmarshal(msg.Data, &n); err != nil {
		log.Error().Err(err).Msg("Dropping malformed webhook message")
		m.WebhookDelivery(notifier.BackendQueue, "malformed")
		remove(ctx, log, q, opts.Queue, msg.ID)
		return
	}
	log = log.With().Str("entry_id", n.EntryID).Str("user_id", n.Payload.UID).Logger()

	// A message read more often than the budget allows has survived worker
	// restarts mid-delivery; give up on it.
	if msg.ReadCt > opts.MaxRetries+1 {
		log.Warn().Msg("Webhook message exceeded read budget, dropping")
		m.WebhookDelivery(notifier.BackendQueue, "dropped")
		remove(ctx, log, q, opts.Queue, msg.ID)
		return
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := deliver.Notify(ctx, n)
		var se *notifier.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return backoff.Permanent(err)
		}
		if errors.Is(err, notifier.ErrNoTarget) {
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Msg("Webhook delivery attempt failed")
		}
		return err
	}, opts.backOff(ctx))

	if ctx.Err() != nil {
		// Shutdown interrupted the retries; leave the message for the next worker.
		return
	}
	if err != nil {
		log.Error().Err(err).Int("attempts", attempt).Msg("Webhook delivery failed, dropping message")
		m.WebhookDelivery(notifier.BackendQueue, "failed")
	} else {
		log.Info().Int("attempts", attempt).Msg("Webhook delivered")
		m.WebhookDelivery(notifier.BackendQueue, "sent")
	}
	remove(ctx, log, q, opts.Queue, msg.ID)
}

func remove(ctx context.Context, log zerolog.Logger, q Queue, queue string, id int64) {
	if err := q.Delete(ctx, queue, id); err != nil {
		log.Error().Err(err).Msg("Error deleting webhook message")
	}
}
