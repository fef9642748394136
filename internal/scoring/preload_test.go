package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

func TestPreloaderLoad(t *testing.T) {
	store := newMemStore()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	store.addTask(&types.Task{ID: "t1", Status: types.StatusInProgress, Deadline: base.AddDate(0, 0, 10)})
	store.addTask(&types.Task{ID: "t2", Status: types.StatusCompleted, Deadline: base.AddDate(0, 0, 5)})

	store.addAssignment(types.Assignment{ID: "a1", TaskID: "t1", UserID: "u1", Role: types.RoleLead})
	store.addAssignment(types.Assignment{ID: "a2", TaskID: "t1", UserID: "u2", Role: types.RoleCollaborator})
	store.addAssignment(types.Assignment{ID: "a3", TaskID: "t2", UserID: "u1", Role: types.RoleLead})

	store.updates["t1"] = []types.ProgressUpdate{
		{ID: "p1", TaskID: "t1", Content: "kickoff", CreatedAt: base},
		{ID: "p2", TaskID: "t1", Content: "halfway", CreatedAt: base.AddDate(0, 0, 2)},
	}
	store.comments["t1"] = []types.Comment{{ID: "c1", TaskID: "t1", Content: "looks good", CreatedAt: base}}
	store.attachments["t2"] = []types.Attachment{{ID: "f1", TaskID: "t2", FileName: "report.xlsx", CreatedAt: base}}
	store.evaluations["t1/a1"] = &types.Evaluation{ID: "e1", TaskID: "t1", AssignmentID: "a1", Score: 8, EvaluatedAt: base.AddDate(0, 0, 3)}

	cache, err := NewPreloader(store).Load(context.Background(), []*types.Task{store.tasks["t1"], store.tasks["t2"]})
	require.NoError(t, err)
	require.Len(t, cache, 2)

	t1 := cache["t1"]
	require.NotNil(t, t1)
	assert.Len(t, t1.Updates, 2)
	assert.Len(t, t1.Comments, 1)
	assert.Empty(t, t1.Attachments)
	require.Contains(t, t1.Evaluations, "a1")
	assert.Equal(t, 8.0, t1.Evaluations["a1"].Score)
	assert.NotContains(t, t1.Evaluations, "a2", "unevaluated assignments stay absent")

	t2 := cache["t2"]
	require.NotNil(t, t2)
	assert.Empty(t, t2.Updates)
	assert.Len(t, t2.Attachments, 1)
	assert.Empty(t, t2.Evaluations)
}

func TestPreloaderLoadEmpty(t *testing.T) {
	cache, err := NewPreloader(newMemStore()).Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, cache)
}

func TestHasActivityIn(t *testing.T) {
	base := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	activity := &TaskActivity{
		Updates:     []types.ProgressUpdate{{CreatedAt: base}},
		Evaluations: map[string]*types.Evaluation{"a1": {EvaluatedAt: base.AddDate(0, 0, 20)}},
	}

	tests := []struct {
		name     string
		period   *Period
		expected bool
	}{
		{
			name:     "update inside window",
			period:   &Period{Start: base.AddDate(0, 0, -1), End: base.AddDate(0, 0, 1)},
			expected: true,
		},
		{
			name:     "window start is inclusive",
			period:   &Period{Start: base, End: base.AddDate(0, 0, 1)},
			expected: true,
		},
		{
			name:     "window end is inclusive",
			period:   &Period{Start: base.AddDate(0, 0, -1), End: base},
			expected: true,
		},
		{
			name:     "evaluation timestamp counts as activity",
			period:   &Period{Start: base.AddDate(0, 0, 19), End: base.AddDate(0, 0, 21)},
			expected: true,
		},
		{
			name:     "nothing in window",
			period:   &Period{Start: base.AddDate(0, 0, 5), End: base.AddDate(0, 0, 10)},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, activity.HasActivityIn(tt.period))
		})
	}

	var nilActivity *TaskActivity
	assert.False(t, nilActivity.HasActivityIn(&Period{Start: base, End: base}))
}
