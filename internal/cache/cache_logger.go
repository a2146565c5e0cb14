package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SafeSet stores a value and only logs on failure
func SafeSet(ctx context.Context, helper *CacheHelper, key string, value any, ttl time.Duration) {
	if err := helper.Set(ctx, key, value, ttl); err != nil {
		slog.ErrorContext(ctx, "Failed to set cache key",
			"error", err,
			"key", key)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// ProgressKey is the cache key of one student's report in one course.
func ProgressKey(courseID uint, studentID string) string {
	return fmt.Sprintf("course:%d:student:%s", courseID, studentID)
}

// EvaluationStatsKey is the cache key of an evaluation's attempt statistics.
func EvaluationStatsKey(evaluationID uint) string {
	return fmt.Sprintf("evaluation:%d", evaluationID)
}

// InvalidateProgressCache drops the cached report for one student in one course
func InvalidateProgressCache(ctx context.Context, cm *CacheManager, courseID uint, studentID string) {
	SafeDelete(ctx, cm.Progress, ProgressKey(courseID, studentID))
}

// InvalidateEvaluationStats drops cached statistics of an evaluation
func InvalidateEvaluationStats(ctx context.Context, cm *CacheManager, evaluationID uint) {
	SafeDelete(ctx, cm.Stats, EvaluationStatsKey(evaluationID))
}
