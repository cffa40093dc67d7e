package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase/activation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivation struct {
	activate    *domain.ActivationResult
	distribute  *domain.DistributionResult
	err         error
	adjustments []activation.AdjustmentRequest
}

func (f *fakeActivation) Activate(context.Context, domain.ActivationRequest) (*domain.ActivationResult, error) {
	return f.activate, f.err
}

func (f *fakeActivation) OpenPools(context.Context, domain.ActivationRequest) ([]*domain.PlacementAccount, error) {
	return nil, f.err
}

func (f *fakeActivation) DistributeSource(context.Context, domain.DistributeRequest) (*domain.DistributionResult, error) {
	return f.distribute, f.err
}

func (f *fakeActivation) ApplyAdjustment(_ context.Context, req activation.AdjustmentRequest) (*domain.LedgerEntry, bool, error) {
	f.adjustments = append(f.adjustments, req)
	return &domain.LedgerEntry{}, true, f.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []domain.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, msgs ...domain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msgs...)
	return p.err
}

func jobWith(t *testing.T, jobType string, payload any) *domain.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &domain.Job{ID: "job-1", Type: jobType, Payload: raw}
}

var activationPayload = domain.ActivationRequest{
	UserID:      "U",
	PackageCode: "PRIME_150",
	Source:      domain.SourceRef{Type: "order", ID: "1"},
}

func TestHandleActivationPublishesCredits(t *testing.T) {
	fake := &fakeActivation{activate: &domain.ActivationResult{
		Created: true,
		Bonuses: []domain.BonusResult{{RecipientID: "S", Type: domain.EntryDirectBonus, Amount: decimal.NewFromInt(25), EntryID: "e1"}},
		Payouts: []domain.PayoutResult{{
			PayoutInstruction: domain.PayoutInstruction{RecipientID: "G", Level: 2, Amount: decimal.NewFromInt(10)},
			EntryID:           "e2",
			PoolType:          domain.PoolFiveLevel150,
		}},
	}}
	pub := &recordingPublisher{}
	h := &Handlers{Activation: fake, Publisher: pub, PayoutTopic: "payouts"}

	require.NoError(t, h.HandleActivation(context.Background(), jobWith(t, domain.JobTypeActivation, activationPayload)))
	require.Len(t, pub.msgs, 2)

	var event PayoutEvent
	require.NoError(t, json.Unmarshal(pub.msgs[1].Value, &event))
	assert.Equal(t, "G", string(pub.msgs[1].Key))
	assert.Equal(t, "10.00", event.Amount)
	assert.Equal(t, 2, event.Level)
	assert.Equal(t, string(domain.PoolFiveLevel150), event.PoolType)
	assert.Equal(t, "1", event.SourceID)
}

func TestHandleActivationDuplicatePublishesNothing(t *testing.T) {
	pub := &recordingPublisher{}
	h := &Handlers{Activation: &fakeActivation{activate: &domain.ActivationResult{}}, Publisher: pub, PayoutTopic: "payouts"}

	require.NoError(t, h.HandleActivation(context.Background(), jobWith(t, domain.JobTypeActivation, activationPayload)))
	assert.Empty(t, pub.msgs)
}

func TestPublishFailureDoesNotFailJob(t *testing.T) {
	fake := &fakeActivation{distribute: &domain.DistributionResult{Payouts: []domain.PayoutResult{{
		PayoutInstruction: domain.PayoutInstruction{RecipientID: "G", Level: 1, Amount: decimal.NewFromInt(50)},
	}}}}
	pub := &recordingPublisher{err: errors.New("broker down")}
	h := &Handlers{Activation: fake, Publisher: pub, PayoutTopic: "payouts"}

	err := h.HandleDistribute(context.Background(), jobWith(t, domain.JobTypeDistribute, domain.DistributeRequest{
		Source:      domain.SourceRef{Type: "order", ID: "1"},
		PoolType:    domain.PoolFiveLevel150,
		OwnerID:     "U",
		PackageCode: "PRIME_150",
	}))
	assert.NoError(t, err)
	assert.Len(t, pub.msgs, 1)
}

func TestHandlersRejectInvalidPayloads(t *testing.T) {
	h := &Handlers{Activation: &fakeActivation{}}
	ctx := context.Background()

	err := h.HandleActivation(ctx, &domain.Job{Type: domain.JobTypeActivation, Payload: []byte("[")})
	assert.Error(t, err)

	err = h.HandleOpenPools(ctx, jobWith(t, domain.JobTypeOpenPools, domain.ActivationRequest{UserID: "U"}))
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)

	err = h.HandleDistribute(ctx, jobWith(t, domain.JobTypeDistribute, domain.DistributeRequest{OwnerID: "U"}))
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)

	err = h.HandleAdjust(ctx, jobWith(t, domain.JobTypeAdjust, activation.AdjustmentRequest{
		UserID:    "U",
		Amount:    decimal.NewFromInt(5),
		Direction: "sideways",
		Source:    domain.SourceRef{Type: "adjustment", ID: "a1"},
	}))
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)

	err = h.HandleAdjust(ctx, jobWith(t, domain.JobTypeAdjust, activation.AdjustmentRequest{
		UserID:    "U",
		Amount:    decimal.Zero,
		Direction: activation.AdjustCredit,
		Source:    domain.SourceRef{Type: "adjustment", ID: "a1"},
	}))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestHandleAdjustAndRegister(t *testing.T) {
	fake := &fakeActivation{}
	h := &Handlers{Activation: fake}
	reg := NewRegistry()
	h.Register(reg)
	assert.ElementsMatch(t, []string{
		domain.JobTypeActivation,
		domain.JobTypeOpenPools,
		domain.JobTypeDistribute,
		domain.JobTypeAdjust,
	}, reg.Types())

	handler, ok := reg.Lookup(domain.JobTypeAdjust)
	require.True(t, ok)
	require.NoError(t, handler(context.Background(), jobWith(t, domain.JobTypeAdjust, activation.AdjustmentRequest{
		UserID:    "U",
		Amount:    decimal.RequireFromString("12.5"),
		Direction: activation.AdjustDebit,
		Note:      "chargeback",
		Source:    domain.SourceRef{Type: "adjustment", ID: "a1"},
	})))
	require.Len(t, fake.adjustments, 1)
	assert.True(t, fake.adjustments[0].Amount.Equal(decimal.RequireFromString("12.5")))
}
