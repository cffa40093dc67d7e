package grpcapi

import (
	"context"
	"strconv"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase/jobs"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var validate = validator.New()

// ProgressReader is the read side of the activation usecase.
type ProgressReader interface {
	GetProgress(ctx context.Context, userID string, poolType domain.PoolType) (*domain.MatrixProgress, error)
}

type PlacementCloser interface {
	CloseAccount(ctx context.Context, accountID string) error
}

type MatrixHandler struct {
	queue      domain.JobQueue
	ledger     domain.LedgerUsecase
	progress   ProgressReader
	placements PlacementCloser
}

func NewMatrixHandler(
	queue domain.JobQueue,
	ledger domain.LedgerUsecase,
	progress ProgressReader,
	placements PlacementCloser,
) *MatrixHandler {
	return &MatrixHandler{
		queue:      queue,
		ledger:     ledger,
		progress:   progress,
		placements: placements,
	}
}

func (h *MatrixHandler) EnqueueActivation(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	req := domain.ActivationRequest{
		UserID:      stringField(r, "user_id"),
		PackageCode: stringField(r, "package_code"),
		Source: domain.SourceRef{
			Type: stringField(r, "source_type"),
			ID:   stringField(r, "source_id"),
		},
	}
	if err := validate.Struct(req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid activation request: %v", err)
	}

	job, err := h.queue.Enqueue(ctx, domain.JobTypeActivation, req, domain.EnqueueOptions{
		IdempotencyKey: jobs.ActivationIdempotencyKey(req),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(jobToMap(job))
}

func (h *MatrixHandler) GetJobStatus(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	jobID := stringField(r, "job_id")
	if jobID == "" {
		return nil, status.Error(codes.InvalidArgument, "job_id is required")
	}
	job, err := h.queue.GetJobStatus(ctx, jobID)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(jobToMap(job))
}

func (h *MatrixHandler) RequeueJob(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	jobID := stringField(r, "job_id")
	if jobID == "" {
		return nil, status.Error(codes.InvalidArgument, "job_id is required")
	}
	job, err := h.queue.Requeue(ctx, jobID)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(jobToMap(job))
}

func (h *MatrixHandler) GetBalance(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	userID := stringField(r, "user_id")
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	balance, err := h.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{
		"user_id":              balance.UserID,
		"main_balance":         balance.MainBalance.StringFixed(domain.MoneyScale),
		"withdrawable_balance": balance.WithdrawableBalance.StringFixed(domain.MoneyScale),
	})
}

func (h *MatrixHandler) ListEntries(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	userID := stringField(r, "user_id")
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	filter := domain.EntryFilter{
		SourceType: stringField(r, "source_type"),
		SourceID:   stringField(r, "source_id"),
	}
	for _, v := range r.GetFields()["types"].GetListValue().GetValues() {
		filter.Types = append(filter.Types, domain.EntryType(v.GetStringValue()))
	}
	var err error
	if filter.DateFrom, err = timeField(r, "date_from"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "date_from: %v", err)
	}
	if filter.DateTo, err = timeField(r, "date_to"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "date_to: %v", err)
	}

	page := int(r.GetFields()["page"].GetNumberValue())
	limit := int(r.GetFields()["limit"].GetNumberValue())
	entries, total, err := h.ledger.ListEntries(ctx, userID, filter, page, limit)
	if err != nil {
		return nil, toStatus(err)
	}

	items := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		items = append(items, entryToMap(e))
	}
	return structpb.NewStruct(map[string]interface{}{
		"entries": items,
		"total":   total,
	})
}

func (h *MatrixHandler) GetProgress(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	userID := stringField(r, "user_id")
	poolType := stringField(r, "pool_type")
	if userID == "" || poolType == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id and pool_type are required")
	}
	progress, err := h.progress.GetProgress(ctx, userID, domain.PoolType(poolType))
	if err != nil {
		return nil, toStatus(err)
	}

	perLevel := make(map[string]interface{}, len(progress.PerLevelCount))
	for level, count := range progress.PerLevelCount {
		perLevel[strconv.Itoa(level)] = map[string]interface{}{
			"count":  count,
			"earned": progress.PerLevelEarned[level].StringFixed(domain.MoneyScale),
		}
	}
	return structpb.NewStruct(map[string]interface{}{
		"user_id":       progress.UserID,
		"pool_type":     string(progress.PoolType),
		"total_earned":  progress.TotalEarned.StringFixed(domain.MoneyScale),
		"level_reached": progress.LevelReached,
		"levels":        perLevel,
	})
}

// ClosePlacement stops an account from taking new children. Payouts through
// it continue.
func (h *MatrixHandler) ClosePlacement(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	accountID := stringField(r, "account_id")
	if accountID == "" {
		return nil, status.Error(codes.InvalidArgument, "account_id is required")
	}
	if err := h.placements.CloseAccount(ctx, accountID); err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{
		"account_id": accountID,
		"status":     string(domain.PlacementClosed),
	})
}

func stringField(r *structpb.Struct, name string) string {
	return r.GetFields()[name].GetStringValue()
}

func timeField(r *structpb.Struct, name string) (time.Time, error) {
	raw := stringField(r, name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func jobToMap(job *domain.Job) map[string]interface{} {
	out := map[string]interface{}{
		"job_id":       job.ID,
		"type":         job.Type,
		"status":       string(job.Status),
		"attempts":     job.Attempts,
		"max_attempts": job.MaxAttempts,
		"last_error":   job.LastError,
		"scheduled_at": job.ScheduledAt.Format(time.RFC3339Nano),
	}
	if job.IdempotencyKey != nil {
		out["idempotency_key"] = *job.IdempotencyKey
	}
	if job.StartedAt != nil {
		out["started_at"] = job.StartedAt.Format(time.RFC3339Nano)
	}
	if job.FinishedAt != nil {
		out["finished_at"] = job.FinishedAt.Format(time.RFC3339Nano)
	}
	return out
}

func entryToMap(e *domain.LedgerEntry) map[string]interface{} {
	out := map[string]interface{}{
		"entry_id":      e.ID,
		"reference":     e.Reference,
		"type":          string(e.Type),
		"amount":        e.Amount.StringFixed(domain.MoneyScale),
		"balance_after": e.BalanceAfter.StringFixed(domain.MoneyScale),
		"source_type":   e.Source.Type,
		"source_id":     e.Source.ID,
		"created_at":    e.CreatedAt.Format(time.RFC3339Nano),
	}
	if e.Meta.Level > 0 {
		out["level"] = e.Meta.Level
		out["pool_type"] = string(e.Meta.PoolType)
	}
	if e.Meta.Withheld {
		out["withheld"] = true
	}
	if e.Meta.Note != "" {
		out["note"] = e.Meta.Note
	}
	return out
}
