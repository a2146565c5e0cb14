package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

func discardLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// tokenStub accepts tokens of the form "<role>:<user id>"
type tokenStub struct{}

func (tokenStub) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	for _, role := range []string{"student", "teacher", "proctor", "admin"} {
		prefix := role + ":"
		if len(token) > len(prefix) && token[:len(prefix)] == prefix {
			return &casdoorsdk.Claims{User: casdoorsdk.User{
				Id:          token[len(prefix):],
				Type:        role,
				DisplayName: "User " + token[len(prefix):],
			}}, nil
		}
	}
	return nil, errors.New("token signature is invalid")
}

type fakeUserRepo struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if user, err := f.GetByID(ctx, id); err == nil {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := f.GetByID(ctx, id)
	return err == nil, nil
}

func (f *fakeUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, err := f.GetByID(ctx, id)
	if err != nil {
		return false, nil
	}
	return user.Role == role, nil
}

// fakeServices records the last call and returns the configured error.
type fakeServices struct {
	err       error
	healthErr error

	lastSubject  services.Subject
	lastID       uint
	lastStudent  string
	lastStart    *services.StartAttemptRequest
	lastFilters  repositories.AttemptFilters
	lastGrade    *services.GradeRequest
	lastOverride *services.ModuleOverrideRequest
	export       []byte
}

func (f *fakeServices) Attempt() services.AttemptService        { return fakeAttempts{f} }
func (f *fakeServices) Grade() services.GradeService            { return fakeGrades{f} }
func (f *fakeServices) Progress() services.ProgressService      { return fakeProgress{f} }
func (f *fakeServices) Certificate() services.CertificateIssuer { return nil }
func (f *fakeServices) Export() services.ExportService          { return fakeExport{f} }

func (f *fakeServices) Initialize(context.Context) error  { return nil }
func (f *fakeServices) HealthCheck(context.Context) error { return f.healthErr }
func (f *fakeServices) Shutdown(context.Context) error    { return nil }

type fakeAttempts struct{ f *fakeServices }

func (a fakeAttempts) Start(_ context.Context, subject services.Subject, req *services.StartAttemptRequest) (*models.Attempt, error) {
	a.f.lastSubject, a.f.lastStart = subject, req
	if a.f.err != nil {
		return nil, a.f.err
	}
	return &models.Attempt{ID: 1, EvaluationID: req.EvaluationID, StudentID: subject.ID, Status: models.AttemptInProgress}, nil
}

func (a fakeAttempts) UpdateAnswers(_ context.Context, subject services.Subject, id uint, _ *services.UpdateAnswersRequest) (*models.Attempt, error) {
	a.f.lastSubject, a.f.lastID = subject, id
	if a.f.err != nil {
		return nil, a.f.err
	}
	return &models.Attempt{ID: id, Status: models.AttemptInProgress}, nil
}

func (a fakeAttempts) Submit(_ context.Context, subject services.Subject, id uint, _ *services.SubmitAttemptRequest, _ time.Time) (*models.Attempt, error) {
	a.f.lastSubject, a.f.lastID = subject, id
	if a.f.err != nil {
		return nil, a.f.err
	}
	return &models.Attempt{ID: id, Status: models.AttemptGraded}, nil
}

func (a fakeAttempts) DeleteIfOwnInProgress(_ context.Context, subject services.Subject, id uint) error {
	a.f.lastSubject, a.f.lastID = subject, id
	return a.f.err
}

func (a fakeAttempts) GetByID(_ context.Context, subject services.Subject, id uint) (*models.Attempt, error) {
	a.f.lastSubject, a.f.lastID = subject, id
	if a.f.err != nil {
		return nil, a.f.err
	}
	return &models.Attempt{ID: id}, nil
}

func (a fakeAttempts) ListForStudent(_ context.Context, subject services.Subject, evaluationID uint, studentID string) ([]*models.Attempt, error) {
	a.f.lastSubject, a.f.lastID, a.f.lastStudent = subject, evaluationID, studentID
	return []*models.Attempt{}, a.f.err
}

func (a fakeAttempts) ListByEvaluation(_ context.Context, subject services.Subject, evaluationID uint, filters repositories.AttemptFilters) (*services.AttemptListResponse, error) {
	a.f.lastSubject, a.f.lastID, a.f.lastFilters = subject, evaluationID, filters
	if a.f.err != nil {
		return nil, a.f.err
	}
	return &services.AttemptListResponse{Attempts: []*models.Attempt{}, Limit: filters.Limit, Offset: filters.Offset}, nil
}

func (a fakeAttempts) GetEvaluationStats(_ context.Context, subject services.Subject, evaluationID uint) (*models.EvaluationStats, error) {
	a.f.lastSubject, a.f.lastID = subject, evaluationID
	if a.f.err != nil {
		return nil, a.f.err
	}
	return &models.EvaluationStats{EvaluationID: evaluationID, TotalAttempts: 3}, nil
}

func (a fakeAttempts) ExpireOverdue(context.Context, time.Time) (int, error) { return 0, a.f.err }

type fakeGrades struct{ f *fakeServices }

func (g fakeGrades) Grade(_ context.Context, subject services.Subject, attemptID uint, req *services.GradeRequest) (*models.Grade, error) {
	g.f.lastSubject, g.f.lastID, g.f.lastGrade = subject, attemptID, req
	if g.f.err != nil {
		return nil, g.f.err
	}
	return &models.Grade{ID: 9, AttemptID: attemptID, Score: *req.Score}, nil
}

func (g fakeGrades) UpdatePartial(_ context.Context, subject services.Subject, id uint, _ *services.UpdateGradeRequest) (*models.Grade, error) {
	g.f.lastSubject, g.f.lastID = subject, id
	if g.f.err != nil {
		return nil, g.f.err
	}
	return &models.Grade{ID: id}, nil
}

func (g fakeGrades) Publish(_ context.Context, subject services.Subject, id uint) (*models.Grade, error) {
	g.f.lastSubject, g.f.lastID = subject, id
	if g.f.err != nil {
		return nil, g.f.err
	}
	return &models.Grade{ID: id, Status: models.GradePublished}, nil
}

func (g fakeGrades) Delete(_ context.Context, subject services.Subject, id uint) error {
	g.f.lastSubject, g.f.lastID = subject, id
	return g.f.err
}

func (g fakeGrades) GetByID(_ context.Context, subject services.Subject, id uint) (*models.Grade, error) {
	g.f.lastSubject, g.f.lastID = subject, id
	if g.f.err != nil {
		return nil, g.f.err
	}
	return &models.Grade{ID: id}, nil
}

func (g fakeGrades) GetByAttempt(_ context.Context, subject services.Subject, attemptID uint) (*models.Grade, error) {
	g.f.lastSubject, g.f.lastID = subject, attemptID
	if g.f.err != nil {
		return nil, g.f.err
	}
	return &models.Grade{ID: 9, AttemptID: attemptID}, nil
}

type fakeProgress struct{ f *fakeServices }

func (p fakeProgress) ComputeCourseProgress(_ context.Context, courseID uint, studentID string, _ bool) (*models.ProgressReport, error) {
	return &models.ProgressReport{CourseID: courseID, StudentID: studentID}, p.f.err
}

func (p fakeProgress) GetMyProgress(_ context.Context, subject services.Subject, courseID uint) (*models.ProgressReport, error) {
	p.f.lastSubject, p.f.lastID = subject, courseID
	if p.f.err != nil {
		return nil, p.f.err
	}
	return &models.ProgressReport{CourseID: courseID, StudentID: subject.ID}, nil
}

func (p fakeProgress) GetStudentProgress(_ context.Context, subject services.Subject, courseID uint, studentID string) (*models.ProgressReport, error) {
	p.f.lastSubject, p.f.lastID, p.f.lastStudent = subject, courseID, studentID
	if p.f.err != nil {
		return nil, p.f.err
	}
	return &models.ProgressReport{CourseID: courseID, StudentID: studentID}, nil
}

func (p fakeProgress) SetModuleOverride(_ context.Context, subject services.Subject, _ uint, moduleID uint, studentID string, req *services.ModuleOverrideRequest) (*models.ModulePassOverride, error) {
	p.f.lastSubject, p.f.lastID, p.f.lastStudent, p.f.lastOverride = subject, moduleID, studentID, req
	if p.f.err != nil {
		return nil, p.f.err
	}
	return &models.ModulePassOverride{ModuleID: moduleID, StudentID: studentID, Passed: *req.Passed, SetBy: subject.ID}, nil
}

func (p fakeProgress) ClearModuleOverride(_ context.Context, subject services.Subject, _ uint, moduleID uint, studentID string) error {
	p.f.lastSubject, p.f.lastID, p.f.lastStudent = subject, moduleID, studentID
	return p.f.err
}

type fakeExport struct{ f *fakeServices }

func (e fakeExport) ExportEvaluationGrades(_ context.Context, subject services.Subject, evaluationID uint) ([]byte, error) {
	e.f.lastSubject, e.f.lastID = subject, evaluationID
	if e.f.err != nil {
		return nil, e.f.err
	}
	return e.f.export, nil
}
