package notifier

import (
	"context"
	"sync"
	"time"

	"macrotrack/internal/metrics"

	"github.com/rs/zerolog"
)

// Async fires notifications in the background. Failures are logged and
// counted; they never reach the caller that saved the entry.
type Async struct {
	next    Notifier
	backend string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func NewAsync(next Notifier, backend string, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Async {
	return &Async{
		next:    next,
		backend: backend,
		timeout: timeout,
		metrics: m,
		logger:  logger.With().Str("service", "Notifier").Str("backend", backend).Logger(),
	}
}

// Notify schedules n and returns immediately. It is a no-op after Close.
func (a *Async) Notify(_ context.Context, n Notification) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		// Detached from the request context; the request has already returned.
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.next.Notify(ctx, n); err != nil {
			a.metrics.WebhookDelivery(a.backend, "failed")
			a.logger.Warn().Err(err).Str("entry_id", n.EntryID).Str("user_id", n.Payload.UID).Msg("Webhook notification failed")
			return
		}
		a.metrics.WebhookDelivery(a.backend, "sent")
		a.logger.Debug().Str("entry_id", n.EntryID).Msg("Webhook notification sent")
	}()
	return nil
}

// Close stops accepting notifications and waits for in-flight ones.
func (a *Async) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.wg.Wait()
}
