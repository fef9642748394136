package evaluation

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/Quybuom/hcckpi-tasks-sub000/internal/errors"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/scoring"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

// Service is the single write path for evaluations. Every submission is
// checked against the resolver before it reaches storage, so a score on
// record always came from the assignment's designated evaluator.
type Service struct {
	store    scoring.Store
	resolver *scoring.Resolver
}

// NewService creates an evaluation service over the given store.
func NewService(store scoring.Store) *Service {
	return &Service{
		store:    store,
		resolver: scoring.NewResolver(store),
	}
}

// SubmitRequest carries one evaluation submission.
type SubmitRequest struct {
	TaskID       string  `json:"task_id"`
	AssignmentID string  `json:"assignment_id"`
	EvaluatorID  string  `json:"evaluator_id"`
	Score        float64 `json:"score"`
	Comments     string  `json:"comments"`
}

// Submit validates and stores an evaluation. Re-submission by the same
// evaluator replaces the previous score for the assignment.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*types.Evaluation, error) {
	if req.TaskID == "" || req.AssignmentID == "" || req.EvaluatorID == "" {
		return nil, apperrors.NewValidationError("task_id, assignment_id and evaluator_id are required")
	}
	if req.Score < 0 || req.Score > 10 {
		return nil, apperrors.NewValidationError("score must be between 0 and 10", req.Score)
	}

	if _, err := s.store.GetTask(ctx, req.TaskID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("task", req.TaskID)
		}
		return nil, err
	}

	allowed, err := s.resolver.CanEvaluate(ctx, req.EvaluatorID, req.TaskID, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.NewPermissionError("user is not the designated evaluator for this assignment")
	}

	ev, err := s.store.UpsertEvaluation(ctx, req.TaskID, req.AssignmentID, req.EvaluatorID, req.Score, req.Comments)
	if err != nil {
		return nil, err
	}

	slog.Info("Evaluation recorded",
		"task_id", req.TaskID,
		"assignment_id", req.AssignmentID,
		"evaluator_id", req.EvaluatorID,
		"score", req.Score)

	return ev, nil
}

// Evaluator returns the resolved evaluator for an assignment, or nil
// when the resolution chain ends without a candidate.
func (s *Service) Evaluator(ctx context.Context, taskID, assignmentID string) (*types.User, error) {
	return s.resolver.Resolve(ctx, taskID, assignmentID)
}

// Get returns the stored evaluation for an assignment.
func (s *Service) Get(ctx context.Context, taskID, assignmentID string) (*types.Evaluation, error) {
	ev, err := s.store.GetEvaluation(ctx, taskID, assignmentID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("evaluation", assignmentID)
	}
	return ev, err
}
