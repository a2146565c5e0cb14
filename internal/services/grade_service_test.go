package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

// seedSubmittedAttempt stores a submitted essay attempt without a max score
func seedSubmittedAttempt(env *testEnv, maxScore *float64) uint {
	env.repo.mu.Lock()
	defer env.repo.mu.Unlock()
	id := env.repo.id()
	submittedAt := fixedNow
	env.repo.attempts[id] = &models.Attempt{
		ID:            id,
		EvaluationID:  essayID,
		StudentID:     student.ID,
		AttemptNumber: 1,
		Status:        models.AttemptSubmitted,
		StartedAt:     fixedNow,
		SubmittedAt:   &submittedAt,
		Score:         utils.Ptr(0.0),
		MaxScore:      maxScore,
	}
	return id
}

func TestGradeService_Grade(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		maxScore       *float64
		score          float64
		subject        Subject
		wantErr        error
		wantForbidden  bool
		wantMax        float64
		wantPercentage float64
		wantPassed     bool
	}{
		{name: "fallback max score", score: 7.5, subject: teacher, wantMax: 10, wantPercentage: 75, wantPassed: true},
		{name: "fallback upper bound", score: 10, subject: teacher, wantMax: 10, wantPercentage: 100, wantPassed: true},
		{name: "above fallback", score: 10.5, subject: teacher, wantErr: ErrInvalidArgument},
		{name: "attempt max score", maxScore: utils.Ptr(30.0), score: 20, subject: teacher, wantMax: 30, wantPercentage: 66.67},
		{name: "negative", score: -1, subject: teacher, wantErr: ErrInvalidArgument},
		{name: "zero max score", maxScore: utils.Ptr(0.0), score: 0, subject: teacher, wantMax: 0, wantPercentage: 0},
		{name: "student", score: 5, subject: student, wantForbidden: true},
		{name: "teacher of another course", score: 5, subject: otherTeacher, wantForbidden: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			attemptID := seedSubmittedAttempt(env, tt.maxScore)

			grade, err := env.grades().Grade(ctx, tt.subject, attemptID, &GradeRequest{
				Score:    utils.Ptr(tt.score),
				Feedback: utils.Ptr("ok"),
			})
			if tt.wantForbidden {
				if !IsPermissionError(err) {
					t.Errorf("Grade() error = %v, want PermissionError", err)
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Grade() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}

			if grade.MaxScore != tt.wantMax || grade.Percentage != tt.wantPercentage || grade.Passed != tt.wantPassed {
				t.Errorf("grade = max %v pct %v passed %v, want %v %v %v",
					grade.MaxScore, grade.Percentage, grade.Passed, tt.wantMax, tt.wantPercentage, tt.wantPassed)
			}
			if grade.Status != models.GradePending {
				t.Errorf("Status = %s, want pending", grade.Status)
			}

			attempt, _ := env.repo.Attempt().GetByID(ctx, attemptID)
			if attempt.Status != models.AttemptGraded || attempt.GradeID == nil || *attempt.GradeID != grade.ID {
				t.Errorf("attempt = status %s grade %v, want graded and linked", attempt.Status, attempt.GradeID)
			}
			if attempt.Score == nil || *attempt.Score != tt.score {
				t.Errorf("attempt score = %v, want %v", attempt.Score, tt.score)
			}
			if attempt.GradedAt == nil || !attempt.GradedAt.Equal(fixedNow) {
				t.Errorf("GradedAt = %v, want %v", attempt.GradedAt, fixedNow)
			}
		})
	}
}

func TestGradeService_Grade_States(t *testing.T) {
	ctx := context.Background()

	t.Run("existing grade conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		attemptID := seedSubmittedAttempt(env, nil)
		if _, err := env.grades().Grade(ctx, teacher, attemptID, &GradeRequest{Score: utils.Ptr(5.0)}); err != nil {
			t.Fatalf("Grade() error = %v", err)
		}
		_, err := env.grades().Grade(ctx, teacher, attemptID, &GradeRequest{Score: utils.Ptr(6.0)})
		if !errors.Is(err, ErrGradeExists) {
			t.Errorf("second Grade() error = %v, want ErrGradeExists", err)
		}
	})

	t.Run("in progress attempt", func(t *testing.T) {
		env := newTestEnv(t)
		attempt, err := env.attempts().Start(ctx, student, &StartAttemptRequest{EvaluationID: essayID})
		if err != nil {
			t.Fatal(err)
		}
		_, err = env.grades().Grade(ctx, teacher, attempt.ID, &GradeRequest{Score: utils.Ptr(5.0)})
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("Grade() error = %v, want INVALID_STATE", err)
		}
	})

	t.Run("archived course", func(t *testing.T) {
		env := newTestEnv(t)
		attemptID := seedSubmittedAttempt(env, nil)
		env.repo.courses[courseID].Status = models.ContentArchived
		_, err := env.grades().Grade(ctx, teacher, attemptID, &GradeRequest{Score: utils.Ptr(5.0)})
		if !errors.Is(err, ErrArchivedContent) {
			t.Errorf("Grade() error = %v, want ErrArchivedContent", err)
		}
	})

	t.Run("missing attempt", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.grades().Grade(ctx, teacher, 4242, &GradeRequest{Score: utils.Ptr(5.0)})
		if !errors.Is(err, ErrAttemptNotFound) {
			t.Errorf("Grade() error = %v, want ErrAttemptNotFound", err)
		}
	})

	t.Run("missing score", func(t *testing.T) {
		env := newTestEnv(t)
		attemptID := seedSubmittedAttempt(env, nil)
		_, err := env.grades().Grade(ctx, teacher, attemptID, &GradeRequest{})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Grade() error = %v, want INVALID_ARGUMENT", err)
		}
	})
}

func TestGradeService_PublishRecomputesProgress(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	attempt := env.submitEssay(t)
	grade, err := env.grades().Grade(ctx, teacher, attempt.ID, &GradeRequest{Score: utils.Ptr(8.0)})
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}

	// a pending grade keeps the attempt out of progress
	report, err := env.progress().ComputeCourseProgress(ctx, courseID, student.ID, false)
	if err != nil {
		t.Fatalf("ComputeCourseProgress() error = %v", err)
	}
	if report.FinalGrade != nil {
		t.Errorf("FinalGrade before publish = %v, want nil", *report.FinalGrade)
	}

	published, err := env.grades().Publish(ctx, teacher, grade.ID)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if published.Status != models.GradePublished || published.PublishedAt == nil {
		t.Errorf("published grade = %s at %v", published.Status, published.PublishedAt)
	}

	enrollment := env.enrollment()
	if enrollment.FinalGrade == nil || *enrollment.FinalGrade != 80 {
		t.Errorf("enrollment FinalGrade = %v, want 80", enrollment.FinalGrade)
	}
	if !enrollment.PassedFinal || enrollment.Status != models.EnrollmentCompleted || enrollment.CompletedAt == nil {
		t.Errorf("enrollment = %+v, want passed and completed", enrollment)
	}
	if env.certificateCount() != 1 {
		t.Errorf("certificates = %d, want 1", env.certificateCount())
	}

	for _, eventType := range []events.EventType{events.GradePublished, events.CourseCompleted, events.CertificateIssued} {
		if got := len(env.publisher.EventsOfType(eventType)); got != 1 {
			t.Errorf("%s events = %d, want 1", eventType, got)
		}
	}

	// publishing again changes nothing
	if _, err := env.grades().Publish(ctx, teacher, grade.ID); err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}
	if got := len(env.publisher.EventsOfType(events.GradePublished)); got != 1 {
		t.Errorf("grade.published events after republish = %d, want 1", got)
	}
}

func TestGradeService_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	attempt := env.submitEssay(t)
	grade, err := env.grades().Grade(ctx, teacher, attempt.ID, &GradeRequest{Score: utils.Ptr(8.0)})
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}
	if _, err := env.grades().Publish(ctx, teacher, grade.ID); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if _, err := env.grades().UpdatePartial(ctx, teacher, grade.ID, &UpdateGradeRequest{Score: utils.Ptr(11.0)}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("UpdatePartial() above snapshot max error = %v, want INVALID_ARGUMENT", err)
	}

	updated, err := env.grades().UpdatePartial(ctx, teacher, grade.ID, &UpdateGradeRequest{
		Score:    utils.Ptr(6.0),
		Feedback: utils.Ptr("Needs examples"),
		Rubric:   []RubricItemInput{{Criterion: "clarity", Points: 3, MaxPoints: 5}},
	})
	if err != nil {
		t.Fatalf("UpdatePartial() error = %v", err)
	}
	if updated.Status != models.GradeInReview || updated.PublishedAt != nil {
		t.Errorf("status = %s at %v, want in_review and unpublished", updated.Status, updated.PublishedAt)
	}
	if updated.Percentage != 60 || updated.Passed {
		t.Errorf("percentage = %v passed %v, want 60 and failed", updated.Percentage, updated.Passed)
	}
	if len(updated.Rubric) != 1 || updated.Feedback == nil || *updated.Feedback != "Needs examples" {
		t.Errorf("rubric/feedback not applied: %+v", updated)
	}

	stored, _ := env.repo.Attempt().GetByID(ctx, attempt.ID)
	if *stored.Score != 6 {
		t.Errorf("attempt score = %v, want re-synced 6", *stored.Score)
	}

	// grade left progress until republished; completion is sticky
	enrollment := env.enrollment()
	if enrollment.FinalGrade != nil || enrollment.PassedFinal {
		t.Errorf("enrollment = grade %v passed %v, want cleared", enrollment.FinalGrade, enrollment.PassedFinal)
	}
	if enrollment.Status != models.EnrollmentCompleted {
		t.Errorf("enrollment status = %s, want completed", enrollment.Status)
	}
}

func TestGradeService_Delete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	attemptID := seedSubmittedAttempt(env, nil)
	grade, err := env.grades().Grade(ctx, teacher, attemptID, &GradeRequest{Score: utils.Ptr(5.0)})
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}

	if err := env.grades().Delete(ctx, student, grade.ID); !IsPermissionError(err) {
		t.Errorf("Delete() by student error = %v, want PermissionError", err)
	}
	if err := env.grades().Delete(ctx, teacher, grade.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := env.grades().GetByID(ctx, teacher, grade.ID); !errors.Is(err, ErrGradeNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrGradeNotFound", err)
	}
	attempt, _ := env.repo.Attempt().GetByID(ctx, attemptID)
	if attempt.GradeID != nil || attempt.Status != models.AttemptSubmitted {
		t.Errorf("attempt = status %s grade %v, want submitted and unlinked", attempt.Status, attempt.GradeID)
	}

	// the attempt can be graded again
	if _, err := env.grades().Grade(ctx, teacher, attemptID, &GradeRequest{Score: utils.Ptr(4.0)}); err != nil {
		t.Errorf("Grade() after delete error = %v", err)
	}
}

func TestGradeService_Views(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	attemptID := seedSubmittedAttempt(env, nil)
	grade, err := env.grades().Grade(ctx, teacher, attemptID, &GradeRequest{Score: utils.Ptr(5.0)})
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}

	if _, err := env.grades().GetByAttempt(ctx, student, attemptID); !errors.Is(err, ErrGradeNotFound) {
		t.Errorf("student view of pending grade error = %v, want ErrGradeNotFound", err)
	}
	if _, err := env.grades().GetByID(ctx, otherStudent, grade.ID); !IsPermissionError(err) {
		t.Errorf("other student view error = %v, want PermissionError", err)
	}
	if _, err := env.grades().GetByID(ctx, teacher, grade.ID); err != nil {
		t.Errorf("teacher view error = %v", err)
	}

	if _, err := env.grades().Publish(ctx, teacher, grade.ID); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	got, err := env.grades().GetByAttempt(ctx, student, attemptID)
	if err != nil {
		t.Fatalf("student view of published grade error = %v", err)
	}
	if got.ID != grade.ID {
		t.Errorf("GetByAttempt() = %d, want %d", got.ID, grade.ID)
	}
}
