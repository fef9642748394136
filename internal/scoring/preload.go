package scoring

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

// TaskActivity holds everything the quality scorer reads for one task.
type TaskActivity struct {
	Updates     []types.ProgressUpdate
	Comments    []types.Comment
	Attachments []types.Attachment
	// Evaluations is keyed by assignment id; absent key means the
	// assignment has not been evaluated yet.
	Evaluations map[string]*types.Evaluation
}

// HasActivityIn reports whether any update, comment, attachment or
// evaluation timestamp falls inside the period. An overdue task someone
// still touched during the period stays visible through this.
func (a *TaskActivity) HasActivityIn(p *Period) bool {
	if a == nil {
		return false
	}
	for _, u := range a.Updates {
		if p.Contains(u.CreatedAt) {
			return true
		}
	}
	for _, c := range a.Comments {
		if p.Contains(c.CreatedAt) {
			return true
		}
	}
	for _, at := range a.Attachments {
		if p.Contains(at.CreatedAt) {
			return true
		}
	}
	for _, ev := range a.Evaluations {
		if p.Contains(ev.EvaluatedAt) {
			return true
		}
	}
	return false
}

// ActivityCache maps task id to its preloaded activity. The cache is
// request-scoped: built once per aggregation call, passed around as a
// plain read-only value, never shared across independent computations.
type ActivityCache map[string]*TaskActivity

// Preloader batches all activity reads for a task set so scoring N
// tasks does not issue O(N*M) sequential storage calls.
type Preloader struct {
	store Store
}

// NewPreloader creates a preloader backed by the given store.
func NewPreloader(store Store) *Preloader {
	return &Preloader{store: store}
}

// Load fetches progress updates, comments, attachments and per-assignment
// evaluations for every task, fanning out all reads concurrently. None
// of the reads depend on each other, so ordering is irrelevant; the
// first storage error cancels the rest and propagates.
func (p *Preloader) Load(ctx context.Context, tasks []*types.Task) (ActivityCache, error) {
	cache := make(ActivityCache, len(tasks))
	for _, t := range tasks {
		cache[t.ID] = &TaskActivity{Evaluations: make(map[string]*types.Evaluation)}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		taskID := t.ID
		entry := cache[taskID]

		g.Go(func() error {
			updates, err := p.store.GetProgressUpdates(ctx, taskID)
			if err != nil {
				return err
			}
			entry.Updates = updates
			return nil
		})
		g.Go(func() error {
			comments, err := p.store.GetComments(ctx, taskID)
			if err != nil {
				return err
			}
			entry.Comments = comments
			return nil
		})
		g.Go(func() error {
			attachments, err := p.store.GetAttachments(ctx, taskID)
			if err != nil {
				return err
			}
			entry.Attachments = attachments
			return nil
		})
		g.Go(func() error {
			return p.loadEvaluations(ctx, taskID, entry)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cache, nil
}

func (p *Preloader) loadEvaluations(ctx context.Context, taskID string, entry *TaskActivity) error {
	assignments, err := p.store.GetTaskAssignments(ctx, taskID)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, a := range assignments {
		assignmentID := a.ID
		g.Go(func() error {
			ev, err := p.store.GetEvaluation(ctx, taskID, assignmentID)
			if errors.Is(err, types.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			entry.Evaluations[assignmentID] = ev
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}
