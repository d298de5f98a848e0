package services

import (
	"context"
	"fmt"

	"finpulse/internal/core"
	"finpulse/internal/log"
)

// TransactionService records ledger facts and announces them on the event
// channel so the alert worker can react per transaction.
type TransactionService struct {
	store     TransactionWriter
	publisher EventPublisher
	logger    *log.Logger
}

func NewTransactionService(store TransactionWriter, publisher EventPublisher, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentApp),
	}
}

// Record persists the transaction and publishes a transaction-recorded event.
// The publish is best effort: the scheduled sweep re-examines recent
// transactions, so a lost event delays alerts instead of losing them.
func (s *TransactionService) Record(ctx context.Context, t core.Transaction) (int64, error) {
	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("record transaction: %w", err)
	}

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Event publisher not configured, skipping transaction event",
			log.FieldTransactionID, id)
		return id, nil
	}
	if err := s.publisher.PublishTransactionRecorded(ctx, t.OwnerID, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, id, log.FieldError, err)
		// Don't fail the request, the transaction is recorded
	}

	return id, nil
}
