package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	courseID      uint = 1
	moduleID      uint = 10
	lessonID      uint = 100
	emptyLessonID uint = 101

	quizID   uint = 500 // single choice + numeric, auto-gradable
	essayID  uint = 501 // open question
	choiceQ  uint = 1
	numericQ uint = 2
	essayQ   uint = 3

	enrollmentID uint = 7
)

var (
	student      = Subject{ID: "student-1", Role: models.RoleStudent}
	otherStudent = Subject{ID: "student-2", Role: models.RoleStudent}
	teacher      = Subject{ID: "teacher-1", Role: models.RoleTeacher}
	otherTeacher = Subject{ID: "teacher-2", Role: models.RoleTeacher}
)

type testEnv struct {
	repo      *memoryRepository
	publisher *events.MockEventPublisher
	services  ServiceManager
}

func (e *testEnv) attempts() AttemptService { return e.services.Attempt() }
func (e *testEnv) grades() GradeService     { return e.services.Grade() }
func (e *testEnv) progress() ProgressService {
	return e.services.Progress()
}

func (e *testEnv) enrollment() *models.Enrollment {
	e.repo.mu.Lock()
	defer e.repo.mu.Unlock()
	cp := *e.repo.enrollments[enrollmentID]
	return &cp
}

func (e *testEnv) certificateCount() int {
	e.repo.mu.Lock()
	defer e.repo.mu.Unlock()
	return len(e.repo.certificates)
}

// newTestEnv seeds one course with a single module holding a graded lesson
// and an empty one, and an active enrollment for student-1.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newMemoryRepository()
	repo.courses[courseID] = &models.Course{ID: courseID, Title: "Go Basics", Status: models.ContentPublished, CreatedBy: teacher.ID}
	repo.modules[moduleID] = &models.Module{ID: moduleID, CourseID: courseID, Title: "Syntax", Position: 1, Status: models.ContentPublished}
	repo.lessons[lessonID] = &models.Lesson{ID: lessonID, ModuleID: moduleID, Title: "Types", Position: 1, Status: models.ContentPublished}
	repo.lessons[emptyLessonID] = &models.Lesson{ID: emptyLessonID, ModuleID: moduleID, Title: "Reading", Position: 2, Status: models.ContentPublished}

	repo.evaluations[quizID] = &models.Evaluation{
		ID:               quizID,
		LessonID:         lessonID,
		Title:            "Types quiz",
		Type:             models.EvaluationQuiz,
		PassThreshold:    70,
		TimeLimitSeconds: 600,
		Status:           models.ContentPublished,
		AutoGradable:     true,
		Questions: []models.Question{
			{
				ID: choiceQ, EvaluationID: quizID, Position: 1, Type: models.SingleChoice, Points: 5, AutoGradable: true,
				Options: []models.QuestionOption{{ID: "optA", Correct: true}, {ID: "optB"}},
			},
			{
				ID: numericQ, EvaluationID: quizID, Position: 2, Type: models.Numeric, Points: 5, AutoGradable: true,
				CorrectValue: utils.Ptr(3.0),
			},
		},
	}
	repo.evaluations[essayID] = &models.Evaluation{
		ID:                   essayID,
		LessonID:             lessonID,
		Title:                "Types essay",
		Type:                 models.EvaluationAssignment,
		PassThreshold:        70,
		Status:               models.ContentPublished,
		RequiresManualReview: true,
		CreatedBy:            teacher.ID,
		Questions: []models.Question{
			{ID: essayQ, EvaluationID: essayID, Position: 1, Type: models.Open, Points: 10},
		},
	}

	repo.enrollments[enrollmentID] = &models.Enrollment{
		ID:        enrollmentID,
		CourseID:  courseID,
		StudentID: student.ID,
		Status:    models.EnrollmentActive,
		Version:   1,
	}
	repo.users[student.ID] = &models.User{ID: student.ID, FullName: "Ada Student", Role: models.RoleStudent}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := events.NewMockEventPublisher(logger)

	sm := NewServiceManager(Dependencies{
		Repo:      repo,
		Logger:    logger,
		Validator: validator.New(),
		Publisher: publisher,
		Clock:     func() time.Time { return fixedNow },
	}, ServiceManagerConfig{
		Grading:  GradingConfig{PassThreshold: 70, MaxScoreFallback: 10},
		Progress: ProgressConfig{PassThreshold: 70, MaxRetries: 3},
	})
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	return &testEnv{repo: repo, publisher: publisher, services: sm}
}

// submitQuiz starts and submits the auto-graded quiz for student-1
func (e *testEnv) submitQuiz(t *testing.T, answers []AnswerInput) *models.Attempt {
	t.Helper()
	ctx := context.Background()

	attempt, err := e.attempts().Start(ctx, student, &StartAttemptRequest{EvaluationID: quizID})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	submitted, err := e.attempts().Submit(ctx, student, attempt.ID, &SubmitAttemptRequest{Answers: answers}, fixedNow)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return submitted
}

// submitEssay starts and submits the manually graded essay for student-1
func (e *testEnv) submitEssay(t *testing.T) *models.Attempt {
	t.Helper()
	ctx := context.Background()

	attempt, err := e.attempts().Start(ctx, student, &StartAttemptRequest{EvaluationID: essayID})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	submitted, err := e.attempts().Submit(ctx, student, attempt.ID, &SubmitAttemptRequest{
		Answers: []AnswerInput{{QuestionID: essayQ, Text: utils.Ptr("Interfaces are satisfied implicitly.")}},
	}, fixedNow)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return submitted
}

func correctQuizAnswers() []AnswerInput {
	return []AnswerInput{
		{QuestionID: choiceQ, SelectedOptionIDs: []string{"optA"}},
		{QuestionID: numericQ, Text: utils.Ptr("3.0000005")},
	}
}
