package scoring

import (
	"time"
	"unicode/utf8"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

const (
	activityPointsMax = 30
	leadershipWeight  = 70

	cadencePoints = 10
	detailPoints  = 10
	commentPoints = 10

	cadenceMinUpdates  = 3
	cadenceMinRecent   = 2
	cadenceRecentDays  = 7
	detailMinRunes     = 50
	commentMinCount    = 3
	evaluationMaxScore = 10
)

// QualityScore combines activity signals with the capped evaluation
// score into a 0..100 quality measure. The evaluation contributes only
// if its timestamp falls inside the period window, and never above the
// leadership cap derived from the task's completion score.
func QualityScore(task *types.Task, assignmentID string, activity *TaskActivity, period *Period, now time.Time) float64 {
	if activity == nil {
		activity = &TaskActivity{}
	}

	score := activityPoints(activity, period, now)

	raw := 0.0
	if ev, ok := activity.Evaluations[assignmentID]; ok && ev != nil && period.Contains(ev.EvaluatedAt) {
		raw = ev.Score
	}
	cap := float64(LeadershipCap(CompletionScore(task, now)))
	if raw > cap {
		raw = cap
	}
	score += raw / evaluationMaxScore * leadershipWeight

	return score
}

// activityPoints awards up to 30 points for cadence, detail and
// discussion. Each signal is all-or-nothing and earned independently.
func activityPoints(a *TaskActivity, period *Period, now time.Time) float64 {
	points := 0.0

	var updates []types.ProgressUpdate
	for _, u := range a.Updates {
		if period.Contains(u.CreatedAt) {
			updates = append(updates, u)
		}
	}

	recent := 0
	weekAgo := now.AddDate(0, 0, -cadenceRecentDays)
	for _, u := range updates {
		if !u.CreatedAt.Before(weekAgo) && !u.CreatedAt.After(now) {
			recent++
		}
	}
	if len(updates) >= cadenceMinUpdates && recent >= cadenceMinRecent {
		points += cadencePoints
	}

	detailed := false
	for _, u := range updates {
		if utf8.RuneCountInString(u.Content) > detailMinRunes {
			detailed = true
			break
		}
	}
	if !detailed {
		for _, at := range a.Attachments {
			if period.Contains(at.CreatedAt) {
				detailed = true
				break
			}
		}
	}
	if detailed {
		points += detailPoints
	}

	comments := 0
	for _, c := range a.Comments {
		if period.Contains(c.CreatedAt) {
			comments++
		}
	}
	if comments >= commentMinCount {
		points += commentPoints
	}

	if points > activityPointsMax {
		points = activityPointsMax
	}
	return points
}
