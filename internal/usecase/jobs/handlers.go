package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase/activation"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ActivationService is what the job handlers need from the activation usecase.
type ActivationService interface {
	Activate(ctx context.Context, req domain.ActivationRequest) (*domain.ActivationResult, error)
	OpenPools(ctx context.Context, req domain.ActivationRequest) ([]*domain.PlacementAccount, error)
	DistributeSource(ctx context.Context, req domain.DistributeRequest) (*domain.DistributionResult, error)
	ApplyAdjustment(ctx context.Context, req activation.AdjustmentRequest) (*domain.LedgerEntry, bool, error)
}

// PayoutEvent is published for every ledger credit produced by an activation.
type PayoutEvent struct {
	EntryID    string    `json:"entry_id"`
	UserID     string    `json:"user_id"`
	EntryType  string    `json:"entry_type"`
	Amount     string    `json:"amount"`
	Level      int       `json:"level,omitempty"`
	PoolType   string    `json:"pool_type,omitempty"`
	SourceType string    `json:"source_type"`
	SourceID   string    `json:"source_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Handlers struct {
	Activation ActivationService
	// Publisher is optional; without it no payout events are sent.
	Publisher   domain.PublisherPort
	PayoutTopic string
	Logger      *slog.Logger
}

func (h *Handlers) Register(reg *Registry) {
	reg.Register(domain.JobTypeActivation, h.HandleActivation)
	reg.Register(domain.JobTypeOpenPools, h.HandleOpenPools)
	reg.Register(domain.JobTypeDistribute, h.HandleDistribute)
	reg.Register(domain.JobTypeAdjust, h.HandleAdjust)
}

func (h *Handlers) HandleActivation(ctx context.Context, job *domain.Job) error {
	var req domain.ActivationRequest
	if err := decodePayload(job, &req); err != nil {
		return err
	}
	result, err := h.Activation.Activate(ctx, req)
	if err != nil {
		return err
	}
	if result.Created {
		h.publishPayouts(ctx, req.Source, result)
	}
	return nil
}

func (h *Handlers) HandleOpenPools(ctx context.Context, job *domain.Job) error {
	var req domain.ActivationRequest
	if err := decodePayload(job, &req); err != nil {
		return err
	}
	_, err := h.Activation.OpenPools(ctx, req)
	return err
}

func (h *Handlers) HandleDistribute(ctx context.Context, job *domain.Job) error {
	var req domain.DistributeRequest
	if err := decodePayload(job, &req); err != nil {
		return err
	}
	result, err := h.Activation.DistributeSource(ctx, req)
	if err != nil {
		return err
	}
	if !result.Skipped {
		h.publishPayouts(ctx, req.Source, &domain.ActivationResult{Created: true, Payouts: result.Payouts})
	}
	return nil
}

func (h *Handlers) HandleAdjust(ctx context.Context, job *domain.Job) error {
	var req activation.AdjustmentRequest
	if err := decodePayload(job, &req); err != nil {
		return err
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: adjustment amount %s", domain.ErrInvalidAmount, req.Amount.String())
	}
	_, _, err := h.Activation.ApplyAdjustment(ctx, req)
	return err
}

func decodePayload(job *domain.Job, v any) error {
	if err := json.Unmarshal(job.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", job.Type, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", domain.ErrConstraintViolation, job.Type, err)
	}
	return nil
}

// publishPayouts runs after the ledger transaction committed. A publish
// failure is logged and does not fail the job.
// TODO: write payout events to an outbox table inside the ledger transaction.
func (h *Handlers) publishPayouts(ctx context.Context, source domain.SourceRef, result *domain.ActivationResult) {
	if h.Publisher == nil || h.PayoutTopic == "" {
		return
	}
	now := time.Now().UTC()
	events := make([]PayoutEvent, 0, len(result.Bonuses)+len(result.Payouts))
	for _, b := range result.Bonuses {
		events = append(events, PayoutEvent{
			EntryID:    b.EntryID,
			UserID:     b.RecipientID,
			EntryType:  string(b.Type),
			Amount:     b.Amount.StringFixed(domain.MoneyScale),
			SourceType: source.Type,
			SourceID:   source.ID,
			OccurredAt: now,
		})
	}
	for _, p := range result.Payouts {
		events = append(events, PayoutEvent{
			EntryID:    p.EntryID,
			UserID:     p.RecipientID,
			EntryType:  string(domain.EntryMatrixPayout),
			Amount:     p.Amount.StringFixed(domain.MoneyScale),
			Level:      p.Level,
			PoolType:   string(p.PoolType),
			SourceType: source.Type,
			SourceID:   source.ID,
			OccurredAt: now,
		})
	}
	if len(events) == 0 {
		return
	}

	msgs := make([]domain.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			h.logger().Error("failed to marshal payout event", slog.String("entry_id", e.EntryID), slog.String("error", err.Error()))
			continue
		}
		msgs = append(msgs, domain.Message{Key: []byte(e.UserID), Value: value})
	}
	if err := h.Publisher.Publish(ctx, h.PayoutTopic, msgs...); err != nil {
		h.logger().Error("failed to publish payout events",
			slog.String("source", source.String()),
			slog.Int("events", len(msgs)),
			slog.String("error", err.Error()),
		)
	}
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
