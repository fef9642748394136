package database

import (
	"context"
	"fmt"
)

// NextTaskNumber allocates the next human-readable task number for a
// period, e.g. "2025-Q2-0042". The counter row is bumped in a single
// upsert so concurrent callers never see the same number.
func (r *Repository) NextTaskNumber(ctx context.Context, periodKey string) (string, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO task_counters (period_key, next_number) VALUES (?, 1)
		ON CONFLICT(period_key) DO UPDATE SET next_number = next_number + 1
		RETURNING next_number
	`, periodKey).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("failed to allocate task number: %w", err)
	}

	return fmt.Sprintf("%s-%04d", periodKey, n), nil
}
