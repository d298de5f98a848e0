package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"finpulse/internal/amqp"
	"finpulse/internal/log"
)

// AlertProcessorConfig configures the periodic sweep.
type AlertProcessorConfig struct {
	// SweepInterval is the pause between full alert sweeps.
	SweepInterval time.Duration
	// SweepLookback bounds which owners a sweep examines: only owners with
	// activity since now minus lookback are re-evaluated.
	SweepLookback time.Duration
}

func DefaultAlertProcessorConfig() AlertProcessorConfig {
	return AlertProcessorConfig{
		SweepInterval: 15 * time.Minute,
		SweepLookback: time.Hour,
	}
}

// AlertProcessor drives the alert engine: it reacts to transaction events as
// they arrive and runs a periodic sweep as a safety net for events that were
// lost or never published.
type AlertProcessor struct {
	alerts *AlertService
	owners OwnerLister
	config AlertProcessorConfig
	logger *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewAlertProcessor(alerts *AlertService, owners OwnerLister, config AlertProcessorConfig, logger *log.Logger) *AlertProcessor {
	return &AlertProcessor{
		alerts: alerts,
		owners: owners,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (p *AlertProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("alert processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Alert processor started",
		"sweep_interval", p.config.SweepInterval,
		"sweep_lookback", p.config.SweepLookback)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *AlertProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Alert processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Alert processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning reports whether the sweep loop is active.
func (p *AlertProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// HandleTransactionEvent evaluates alerts for a freshly recorded transaction.
// Transaction alerts are checked for the specific transaction; budget alerts
// are recomputed because the new spend may have crossed a threshold. Goal
// reminders are time-driven and left to the sweep.
func (p *AlertProcessor) HandleTransactionEvent(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	p.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldOwnerID, msg.OwnerID,
		log.FieldTransactionID, msg.TransactionID)

	if err := p.alerts.CheckTransactionAlerts(ctx, msg.OwnerID, &msg.TransactionID); err != nil {
		return fmt.Errorf("transaction alerts for event: %w", err)
	}
	if err := p.alerts.CheckBudgetAlerts(ctx, msg.OwnerID); err != nil {
		return fmt.Errorf("budget alerts for event: %w", err)
	}
	return nil
}

func (p *AlertProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.SweepInterval)
	defer ticker.Stop()

	// Run one sweep immediately so a restart does not wait a full interval.
	p.runSweep(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runSweep(ctx)
		}
	}
}

// runSweep re-evaluates every alert family for every recently active owner.
// Per-owner failures are logged and the sweep moves on.
func (p *AlertProcessor) runSweep(ctx context.Context) {
	since := time.Now().Add(-p.config.SweepLookback)
	owners, err := p.owners.ActiveOwners(ctx, since)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to list active owners", log.FieldError, err)
		return
	}
	if len(owners) == 0 {
		return
	}

	p.logger.DebugContext(ctx, "Starting alert sweep", "owners", len(owners))

	for _, owner := range owners {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.alerts.CheckBudgetAlerts(ctx, owner); err != nil {
			p.logger.WarnContext(ctx, "Budget sweep failed", log.FieldOwnerID, owner, log.FieldError, err)
		}
		if err := p.alerts.CheckGoalReminders(ctx, owner); err != nil {
			p.logger.WarnContext(ctx, "Goal sweep failed", log.FieldOwnerID, owner, log.FieldError, err)
		}
		if err := p.alerts.CheckTransactionAlerts(ctx, owner, nil); err != nil {
			p.logger.WarnContext(ctx, "Transaction sweep failed", log.FieldOwnerID, owner, log.FieldError, err)
		}
	}
}
