package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

// progressEngine aggregates lesson, module and course grades. It runs against
// whatever repository it is handed so callers can include it in their
// transaction.
type progressEngine struct {
	passThreshold float64
	maxRetries    int
	clock         func() time.Time
	logger        *slog.Logger
}

type progressOutcome struct {
	Report *models.ProgressReport
	// Persisted is false when persistence was not requested or nothing changed.
	Persisted      bool
	NewlyCompleted bool
	CompletedAt    *time.Time
}

// events returns the domain events produced by a persisted recompute.
func (o *progressOutcome) events() []*events.Event {
	if o == nil || !o.NewlyCompleted || o.Report.FinalGrade == nil {
		return nil
	}
	return []*events.Event{events.NewEvent(events.CourseCompleted, o.Report.StudentID, events.CourseCompletedData{
		CourseID:    o.Report.CourseID,
		StudentID:   o.Report.StudentID,
		FinalGrade:  *o.Report.FinalGrade,
		CompletedAt: *o.CompletedAt,
	})}
}

func (e *progressEngine) compute(ctx context.Context, repo repositories.Repository, courseID uint, studentID string, persist bool) (*progressOutcome, error) {
	enrollment, err := e.loadEnrollment(ctx, repo, courseID, studentID)
	if err != nil {
		return nil, err
	}

	course, err := repo.Hierarchy().GetCourseTree(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course tree: %w", err)
	}

	report, err := e.buildReport(ctx, repo, course, studentID)
	if err != nil {
		return nil, err
	}
	report.EnrollmentID = enrollment.ID

	outcome := &progressOutcome{Report: report}
	if !persist {
		report.Completed = enrollment.Status == models.EnrollmentCompleted
		return outcome, nil
	}

	for try := 1; try <= e.maxRetries; try++ {
		if try > 1 {
			if enrollment, err = e.loadEnrollment(ctx, repo, courseID, studentID); err != nil {
				return nil, err
			}
		}

		newlyCompleted := report.Passed && canComplete(enrollment.Status)
		if floatPtrEqual(enrollment.FinalGrade, report.FinalGrade) && enrollment.PassedFinal == report.Passed && !newlyCompleted {
			report.Completed = enrollment.Status == models.EnrollmentCompleted
			return outcome, nil
		}

		enrollment.FinalGrade = report.FinalGrade
		enrollment.PassedFinal = report.Passed
		if newlyCompleted {
			now := e.clock()
			enrollment.Status = models.EnrollmentCompleted
			enrollment.CompletedAt = &now
		}

		err = repo.Enrollment().UpdateProgress(ctx, enrollment)
		if errors.Is(err, repositories.ErrVersionConflict) {
			e.logger.Warn("Enrollment version conflict, retrying progress write",
				"course_id", courseID,
				"student_id", studentID,
				"try", try)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update enrollment progress: %w", err)
		}

		report.Completed = enrollment.Status == models.EnrollmentCompleted
		outcome.Persisted = true
		outcome.NewlyCompleted = newlyCompleted
		outcome.CompletedAt = enrollment.CompletedAt
		return outcome, nil
	}

	return nil, ErrProgressConflict
}

func (e *progressEngine) loadEnrollment(ctx context.Context, repo repositories.Repository, courseID uint, studentID string) (*models.Enrollment, error) {
	enrollment, err := repo.Enrollment().GetByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrollment, nil
}

func (e *progressEngine) buildReport(ctx context.Context, repo repositories.Repository, course *models.Course, studentID string) (*models.ProgressReport, error) {
	var lessonIDs, moduleIDs []uint
	for _, m := range course.Modules {
		moduleIDs = append(moduleIDs, m.ID)
		for _, l := range m.Lessons {
			lessonIDs = append(lessonIDs, l.ID)
		}
	}

	evaluationsByLesson, evaluationIDs, err := e.loadEvaluations(ctx, repo, lessonIDs)
	if err != nil {
		return nil, err
	}

	best, err := e.bestAttempts(ctx, repo, studentID, evaluationIDs)
	if err != nil {
		return nil, err
	}

	overrides, err := repo.ModuleOverride().ListForStudent(ctx, moduleIDs, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list module overrides: %w", err)
	}
	overrideByModule := make(map[uint]*models.ModulePassOverride, len(overrides))
	for _, o := range overrides {
		overrideByModule[o.ModuleID] = o
	}

	report := &models.ProgressReport{
		CourseID:  course.ID,
		StudentID: studentID,
		Modules:   make([]models.ModuleProgress, 0, len(course.Modules)),
	}

	var moduleGrades []float64
	allPassed := len(course.Modules) > 0
	for _, module := range course.Modules {
		mp := models.ModuleProgress{ModuleID: module.ID, Title: module.Title, Lessons: []models.LessonProgress{}}

		var lessonGrades []float64
		for _, lesson := range module.Lessons {
			lp := models.LessonProgress{LessonID: lesson.ID, Title: lesson.Title, Evaluations: []models.EvaluationProgress{}}

			var percentages []float64
			for _, evaluation := range evaluationsByLesson[lesson.ID] {
				attempt, ok := best[evaluation.ID]
				if !ok {
					continue
				}
				pct := utils.Percentage(*attempt.Score, *attempt.MaxScore)
				percentages = append(percentages, pct)
				lp.Evaluations = append(lp.Evaluations, models.EvaluationProgress{
					EvaluationID:  evaluation.ID,
					BestAttemptID: attempt.ID,
					Score:         *attempt.Score,
					MaxScore:      *attempt.MaxScore,
					Percentage:    pct,
				})
			}

			if mean, ok := utils.Mean(percentages); ok {
				grade := utils.RoundTo(mean, 2)
				lp.Grade = &grade
				lp.Passed = grade >= e.passThreshold
				lessonGrades = append(lessonGrades, grade)
			}
			mp.Lessons = append(mp.Lessons, lp)
		}

		if mean, ok := utils.Mean(lessonGrades); ok {
			grade := utils.RoundTo(mean, 2)
			mp.Grade = &grade
			mp.Passed = grade >= e.passThreshold
			moduleGrades = append(moduleGrades, grade)
		}
		// an override can only add a pass, never take a computed one away
		if override, ok := overrideByModule[module.ID]; ok {
			mp.Passed = mp.Passed || override.Passed
			mp.Overridden = true
		}

		allPassed = allPassed && mp.Passed
		report.Modules = append(report.Modules, mp)
	}

	if mean, ok := utils.Mean(moduleGrades); ok {
		grade := utils.RoundTo(mean, 2)
		report.FinalGrade = &grade
	}
	report.Passed = allPassed

	return report, nil
}

// loadEvaluations groups the non-archived evaluations by lesson.
func (e *progressEngine) loadEvaluations(ctx context.Context, repo repositories.Repository, lessonIDs []uint) (map[uint][]*models.Evaluation, []uint, error) {
	byLesson := make(map[uint][]*models.Evaluation)
	if len(lessonIDs) == 0 {
		return byLesson, nil, nil
	}

	evaluations, err := repo.Evaluation().ListByLessons(ctx, lessonIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list evaluations: %w", err)
	}

	var ids []uint
	for _, evaluation := range evaluations {
		if evaluation.Status == models.ContentArchived {
			continue
		}
		byLesson[evaluation.LessonID] = append(byLesson[evaluation.LessonID], evaluation)
		ids = append(ids, evaluation.ID)
	}
	return byLesson, ids, nil
}

// bestAttempts picks the highest scoring qualifying attempt per evaluation.
// An attempt qualifies when it is graded, carries a score and a positive max
// score, and its grade record, if any, is published. Ties keep the earlier
// attempt.
func (e *progressEngine) bestAttempts(ctx context.Context, repo repositories.Repository, studentID string, evaluationIDs []uint) (map[uint]*models.Attempt, error) {
	best := make(map[uint]*models.Attempt)
	if len(evaluationIDs) == 0 {
		return best, nil
	}

	attempts, err := repo.Attempt().ListScoredForStudent(ctx, studentID, evaluationIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list scored attempts: %w", err)
	}

	var gradeIDs []uint
	for _, a := range attempts {
		if a.GradeID != nil {
			gradeIDs = append(gradeIDs, *a.GradeID)
		}
	}
	published := make(map[uint]bool, len(gradeIDs))
	if len(gradeIDs) > 0 {
		grades, err := repo.Grade().GetByIDs(ctx, gradeIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get grades: %w", err)
		}
		for _, g := range grades {
			published[g.ID] = g.IsPublished()
		}
	}

	for _, a := range attempts {
		if a.Status != models.AttemptGraded || a.Score == nil || a.MaxScore == nil || *a.MaxScore <= 0 {
			continue
		}
		if a.GradeID != nil && !published[*a.GradeID] {
			continue
		}
		if current, ok := best[a.EvaluationID]; !ok || *a.Score > *current.Score {
			best[a.EvaluationID] = a
		}
	}
	return best, nil
}

// canComplete reports whether a passing report may move the enrollment to
// COMPLETED. Cancelled enrollments keep their status.
func canComplete(status models.EnrollmentStatus) bool {
	return status != models.EnrollmentCompleted && status != models.EnrollmentCancelled
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
