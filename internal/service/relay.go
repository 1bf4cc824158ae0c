package service

import (
	"context"
	"log"
	"time"

	"concertgate/internal/model"
)

// OutboxStore is the relay worker's view of the outbox table.
type OutboxStore interface {
	FindPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	ResetFailed(ctx context.Context, maxRetry int) (int64, error)
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventSender publishes a serialized event to a broker topic.
type EventSender interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// RelayConfig carries the relay worker's tunables.
type RelayConfig struct {
	BatchSize int           // max PENDING records per pass
	MaxRetry  int           // FAILED records at/above this stay parked
	Retention time.Duration // PUBLISHED records older than this are deleted
}

// RelayService is the publishing half of the transactional outbox: it
// drains PENDING records to the broker, re-drives FAILED ones below the
// retry ceiling and prunes old PUBLISHED ones. A send that timed out but
// actually landed downstream may be resent — consumers are idempotent, so
// at-least-once is the contract.
type RelayService struct {
	outbox OutboxStore
	sender EventSender
	cfg    RelayConfig
}

// NewRelayService wires the outbox relay.
func NewRelayService(outbox OutboxStore, sender EventSender, cfg RelayConfig) *RelayService {
	return &RelayService{outbox: outbox, sender: sender, cfg: cfg}
}

// Relay publishes up to BatchSize of the oldest PENDING records. Each
// record is marked PUBLISHED on success or FAILED (with the error and a
// bumped retry count) on failure; a failure never halts the batch.
// Returns how many were published.
func (s *RelayService) Relay(ctx context.Context) (int, error) {
	pending, err := s.outbox.FindPending(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, ev := range pending {
		if err := s.sender.Publish(ctx, ev.Topic, ev.Payload); err != nil {
			log.Printf("relay: publish outbox id=%d topic=%s failed: %v", ev.ID, ev.Topic, err)
			if err := s.outbox.MarkFailed(ctx, ev.ID, err.Error()); err != nil {
				log.Printf("relay: mark failed id=%d: %v", ev.ID, err)
			}
			continue
		}
		if err := s.outbox.MarkPublished(ctx, ev.ID); err != nil {
			// The send succeeded but the mark did not; the record stays
			// PENDING and will be resent. Consumers tolerate the duplicate.
			log.Printf("relay: mark published id=%d: %v", ev.ID, err)
			continue
		}
		published++
	}

	if published > 0 {
		log.Printf("relay: published %d outbox events", published)
	}
	return published, nil
}

// Retry resets FAILED records below the retry ceiling back to PENDING for
// the next relay pass. Records at the ceiling stay parked for manual
// re-drive.
func (s *RelayService) Retry(ctx context.Context) (int64, error) {
	n, err := s.outbox.ResetFailed(ctx, s.cfg.MaxRetry)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("relay: reset %d failed events for retry", n)
	}
	return n, nil
}

// Cleanup deletes PUBLISHED records older than the retention window.
func (s *RelayService) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.Retention)
	n, err := s.outbox.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("relay: cleaned up %d published events", n)
	}
	return n, nil
}
