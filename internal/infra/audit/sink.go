// File: internal/infra/audit/sink.go
package audit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"video-gate-platform/internal/domain/ports/adapter"
	"video-gate-platform/internal/infra/metrics"
)

var _ adapter.AuditSink = (*Sink)(nil)

// Sink fans ledger transition events out to structured logs through a small
// worker pool. Emit never blocks: when the buffer is full the event is dropped
// and counted, never allowed to stall a purchase.
type Sink struct {
	events chan adapter.AuditEvent
	wg     sync.WaitGroup
	n      int
	log    *zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func NewSink(buffer, workers int, logger *zerolog.Logger) *Sink {
	if buffer <= 0 {
		buffer = 1024
	}
	if workers <= 0 {
		workers = 2
	}
	compLog := logger.With().Str("component", "AuditSink").Logger()
	return &Sink{
		events: make(chan adapter.AuditEvent, buffer),
		n:      workers,
		log:    &compLog,
	}
}

// Start launches the dispatch workers. They drain remaining buffered events
// after ctx is cancelled, then exit.
func (s *Sink) Start(ctx context.Context) {
	for i := 0; i < s.n; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case ev, ok := <-s.events:
					if !ok {
						return
					}
					s.record(ev)
				case <-ctx.Done():
					s.drain()
					return
				}
			}
		}()
	}
}

// Stop closes the channel and waits for workers to finish the backlog.
func (s *Sink) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Sink) Emit(ev adapter.AuditEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		metrics.IncAuditDropped()
		return
	}
	select {
	case s.events <- ev:
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		metrics.IncAuditDropped()
		s.log.Warn().Str("type", ev.Type).Msg("audit buffer full, event dropped")
	}
}

func (s *Sink) drain() {
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			s.record(ev)
		default:
			return
		}
	}
}

func (s *Sink) record(ev adapter.AuditEvent) {
	metrics.IncAuditEvent(ev.Type)
	s.log.Info().
		Str("event", ev.Type).
		Str("user_id", ev.UserID).
		Str("purchase_id", ev.PurchaseID).
		Str("image_id", ev.ImageID).
		Int64("amount", ev.Amount).
		Str("detail", ev.Detail).
		Time("at", ev.At).
		Msg("audit")
}
