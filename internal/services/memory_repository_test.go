package services

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// memoryRepository is an in-memory Repository for service tests. Every
// store returns copies so services cannot mutate state without writing it.
type memoryRepository struct {
	mu sync.Mutex

	courses     map[uint]*models.Course
	modules     map[uint]*models.Module
	lessons     map[uint]*models.Lesson
	evaluations map[uint]*models.Evaluation

	attempts     map[uint]*models.Attempt
	answers      map[uint]map[uint]models.Answer
	grades       map[uint]*models.Grade
	enrollments  map[uint]*models.Enrollment
	overrides    map[uint]*models.ModulePassOverride
	certificates map[uint]*models.Certificate
	users        map[string]*models.User

	nextID uint

	// versionConflicts makes the next N enrollment writes fail
	versionConflicts int
	enrollmentWrites int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		courses:      map[uint]*models.Course{},
		modules:      map[uint]*models.Module{},
		lessons:      map[uint]*models.Lesson{},
		evaluations:  map[uint]*models.Evaluation{},
		attempts:     map[uint]*models.Attempt{},
		answers:      map[uint]map[uint]models.Answer{},
		grades:       map[uint]*models.Grade{},
		enrollments:  map[uint]*models.Enrollment{},
		overrides:    map[uint]*models.ModulePassOverride{},
		certificates: map[uint]*models.Certificate{},
		users:        map[string]*models.User{},
		nextID:       1000,
	}
}

func (r *memoryRepository) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memoryRepository) Hierarchy() repositories.HierarchyRepository   { return memoryHierarchy{r} }
func (r *memoryRepository) Evaluation() repositories.EvaluationRepository { return memoryEvaluations{r} }
func (r *memoryRepository) Attempt() repositories.AttemptRepository       { return memoryAttempts{r} }
func (r *memoryRepository) Answer() repositories.AnswerRepository         { return memoryAnswers{r} }
func (r *memoryRepository) Grade() repositories.GradeRepository           { return memoryGrades{r} }
func (r *memoryRepository) Enrollment() repositories.EnrollmentRepository { return memoryEnrollments{r} }
func (r *memoryRepository) ModuleOverride() repositories.ModuleOverrideRepository {
	return memoryOverrides{r}
}
func (r *memoryRepository) Certificate() repositories.CertificateRepository {
	return memoryCertificates{r}
}
func (r *memoryRepository) User() repositories.UserRepository { return memoryUsers{r} }

// WithTransaction has no rollback; tests assert on failures before any write.
func (r *memoryRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *memoryRepository) Ping(ctx context.Context) error { return nil }
func (r *memoryRepository) Close() error                   { return nil }

// ===== HIERARCHY =====

type memoryHierarchy struct{ r *memoryRepository }

func (h memoryHierarchy) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	c, ok := h.r.courses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	cp.Modules = nil
	return &cp, nil
}

func (h memoryHierarchy) GetModule(ctx context.Context, id uint) (*models.Module, error) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	m, ok := h.r.modules[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *m
	cp.Lessons = nil
	return &cp, nil
}

func (h memoryHierarchy) GetLesson(ctx context.Context, id uint) (*models.Lesson, error) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	l, ok := h.r.lessons[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (h memoryHierarchy) GetCourseTree(ctx context.Context, courseID uint) (*models.Course, error) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	c, ok := h.r.courses[courseID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	course := *c
	course.Modules = nil
	for _, m := range h.r.modules {
		if m.CourseID != courseID {
			continue
		}
		module := *m
		module.Lessons = nil
		for _, l := range h.r.lessons {
			if l.ModuleID == m.ID {
				module.Lessons = append(module.Lessons, *l)
			}
		}
		slices.SortFunc(module.Lessons, func(a, b models.Lesson) int {
			return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
		})
		course.Modules = append(course.Modules, module)
	}
	slices.SortFunc(course.Modules, func(a, b models.Module) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
	})
	return &course, nil
}

func (h memoryHierarchy) CourseIDForEvaluation(ctx context.Context, evaluationID uint) (uint, error) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	e, ok := h.r.evaluations[evaluationID]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	l, ok := h.r.lessons[e.LessonID]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	m, ok := h.r.modules[l.ModuleID]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	return m.CourseID, nil
}

// ===== EVALUATIONS =====

type memoryEvaluations struct{ r *memoryRepository }

func (e memoryEvaluations) GetByID(ctx context.Context, id uint) (*models.Evaluation, error) {
	ev, err := e.GetWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	ev.Questions = nil
	return ev, nil
}

func (e memoryEvaluations) GetWithQuestions(ctx context.Context, id uint) (*models.Evaluation, error) {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	ev, ok := e.r.evaluations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *ev
	cp.Questions = slices.Clone(ev.Questions)
	return &cp, nil
}

func (e memoryEvaluations) ListByLessons(ctx context.Context, lessonIDs []uint) ([]*models.Evaluation, error) {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	var out []*models.Evaluation
	for _, ev := range e.r.evaluations {
		if slices.Contains(lessonIDs, ev.LessonID) {
			cp := *ev
			cp.Questions = nil
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Evaluation) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ===== ATTEMPTS =====

type memoryAttempts struct{ r *memoryRepository }

func copyAttempt(a *models.Attempt) *models.Attempt {
	cp := *a
	cp.Answers = slices.Clone(a.Answers)
	return &cp
}

func (s memoryAttempts) Create(ctx context.Context, attempt *models.Attempt) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for _, a := range s.r.attempts {
		if a.EvaluationID != attempt.EvaluationID || a.StudentID != attempt.StudentID {
			continue
		}
		if a.AttemptNumber == attempt.AttemptNumber || (a.Status == models.AttemptInProgress && attempt.Status == models.AttemptInProgress) {
			return repositories.ErrDuplicate
		}
	}
	attempt.ID = s.r.id()
	s.r.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (s memoryAttempts) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	a, ok := s.r.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := copyAttempt(a)
	cp.Answers = nil
	return cp, nil
}

func (s memoryAttempts) GetByIDWithAnswers(ctx context.Context, id uint) (*models.Attempt, error) {
	attempt, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	attempt.Answers, _ = memoryAnswers(s).ListByAttempt(ctx, id)
	return attempt, nil
}

func (s memoryAttempts) GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	return s.GetByID(ctx, id)
}

func (s memoryAttempts) Update(ctx context.Context, attempt *models.Attempt) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if _, ok := s.r.attempts[attempt.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := copyAttempt(attempt)
	cp.Answers = nil
	s.r.attempts[attempt.ID] = cp
	return nil
}

func (s memoryAttempts) GetMaxAttemptNumber(ctx context.Context, evaluationID uint, studentID string) (int, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	highest := 0
	for _, a := range s.r.attempts {
		if a.EvaluationID == evaluationID && a.StudentID == studentID {
			highest = max(highest, a.AttemptNumber)
		}
	}
	return highest, nil
}

func (s memoryAttempts) HasInProgress(ctx context.Context, evaluationID uint, studentID string) (bool, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for _, a := range s.r.attempts {
		if a.EvaluationID == evaluationID && a.StudentID == studentID && a.Status == models.AttemptInProgress {
			return true, nil
		}
	}
	return false, nil
}

func (s memoryAttempts) filter(keep func(*models.Attempt) bool) []*models.Attempt {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	var out []*models.Attempt
	for _, a := range s.r.attempts {
		if keep(a) {
			out = append(out, copyAttempt(a))
		}
	}
	slices.SortFunc(out, func(a, b *models.Attempt) int {
		return cmp.Or(cmp.Compare(a.EvaluationID, b.EvaluationID), cmp.Compare(a.AttemptNumber, b.AttemptNumber))
	})
	return out
}

func (s memoryAttempts) ListByEvaluationAndStudent(ctx context.Context, evaluationID uint, studentID string) ([]*models.Attempt, error) {
	out := s.filter(func(a *models.Attempt) bool {
		return a.EvaluationID == evaluationID && a.StudentID == studentID
	})
	slices.Reverse(out)
	return out, nil
}

func (s memoryAttempts) ListByEvaluation(ctx context.Context, evaluationID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	out := s.filter(func(a *models.Attempt) bool {
		if a.EvaluationID != evaluationID {
			return false
		}
		if filters.Status != nil && a.Status != *filters.Status {
			return false
		}
		return filters.StudentID == nil || a.StudentID == *filters.StudentID
	})
	total := int64(len(out))
	start := min(filters.Offset, len(out))
	end := len(out)
	if filters.Limit > 0 {
		end = min(start+filters.Limit, len(out))
	}
	return out[start:end], total, nil
}

func (s memoryAttempts) ListScoredForStudent(ctx context.Context, studentID string, evaluationIDs []uint) ([]*models.Attempt, error) {
	return s.filter(func(a *models.Attempt) bool {
		return a.StudentID == studentID && a.Status == models.AttemptGraded &&
			a.Score != nil && slices.Contains(evaluationIDs, a.EvaluationID)
	}), nil
}

func (s memoryAttempts) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error) {
	out := s.filter(func(a *models.Attempt) bool {
		return a.Status == models.AttemptInProgress && a.TimeLimitSeconds > 0 &&
			now.After(a.StartedAt.Add(time.Duration(a.TimeLimitSeconds)*time.Second))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memoryAttempts) UpdateStatus(ctx context.Context, id uint, from, to models.AttemptStatus) (bool, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	a, ok := s.r.attempts[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (s memoryAttempts) GetEvaluationStats(ctx context.Context, evaluationID uint) (*models.EvaluationStats, error) {
	stats := &models.EvaluationStats{EvaluationID: evaluationID, ByStatus: map[models.AttemptStatus]int64{}}
	students := map[string]bool{}
	for _, a := range s.filter(func(a *models.Attempt) bool { return a.EvaluationID == evaluationID }) {
		stats.TotalAttempts++
		stats.ByStatus[a.Status]++
		students[a.StudentID] = true
	}
	stats.DistinctStudents = int64(len(students))
	return stats, nil
}

// ===== ANSWERS =====

type memoryAnswers struct{ r *memoryRepository }

func (s memoryAnswers) Upsert(ctx context.Context, answers []models.Answer) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for _, a := range answers {
		byQuestion, ok := s.r.answers[a.AttemptID]
		if !ok {
			byQuestion = map[uint]models.Answer{}
			s.r.answers[a.AttemptID] = byQuestion
		}
		if existing, ok := byQuestion[a.QuestionID]; ok {
			a.ID = existing.ID
		} else {
			a.ID = s.r.id()
		}
		byQuestion[a.QuestionID] = a
	}
	return nil
}

func (s memoryAnswers) ListByAttempt(ctx context.Context, attemptID uint) ([]models.Answer, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	var out []models.Answer
	for _, a := range s.r.answers[attemptID] {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b models.Answer) int { return cmp.Compare(a.QuestionID, b.QuestionID) })
	return out, nil
}

// ===== GRADES =====

type memoryGrades struct{ r *memoryRepository }

func (s memoryGrades) Create(ctx context.Context, grade *models.Grade) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for _, g := range s.r.grades {
		if g.AttemptID == grade.AttemptID {
			return repositories.ErrDuplicate
		}
	}
	grade.ID = s.r.id()
	cp := *grade
	s.r.grades[grade.ID] = &cp
	return nil
}

func (s memoryGrades) GetByID(ctx context.Context, id uint) (*models.Grade, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	g, ok := s.r.grades[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s memoryGrades) GetByAttempt(ctx context.Context, attemptID uint) (*models.Grade, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for _, g := range s.r.grades {
		if g.AttemptID == attemptID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s memoryGrades) GetByIDs(ctx context.Context, ids []uint) ([]*models.Grade, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	var out []*models.Grade
	for _, id := range ids {
		if g, ok := s.r.grades[id]; ok {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s memoryGrades) ListByEvaluation(ctx context.Context, evaluationID uint) ([]*models.Grade, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	var out []*models.Grade
	for _, g := range s.r.grades {
		if g.EvaluationID == evaluationID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s memoryGrades) Update(ctx context.Context, grade *models.Grade) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if _, ok := s.r.grades[grade.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *grade
	s.r.grades[grade.ID] = &cp
	return nil
}

func (s memoryGrades) Delete(ctx context.Context, id uint) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if _, ok := s.r.grades[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.r.grades, id)
	return nil
}

// ===== ENROLLMENT & CERTIFICATES =====

type memoryEnrollments struct{ r *memoryRepository }

func (s memoryEnrollments) GetByCourseAndStudent(ctx context.Context, courseID uint, studentID string) (*models.Enrollment, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for _, e := range s.r.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s memoryEnrollments) UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	stored, ok := s.r.enrollments[enrollment.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if s.r.versionConflicts > 0 {
		s.r.versionConflicts--
		stored.Version++
		return repositories.ErrVersionConflict
	}
	if stored.Version != enrollment.Version {
		return repositories.ErrVersionConflict
	}
	s.r.enrollmentWrites++
	enrollment.Version++
	cp := *enrollment
	s.r.enrollments[enrollment.ID] = &cp
	return nil
}

type memoryOverrides struct{ r *memoryRepository }

func (s memoryOverrides) ListForStudent(ctx context.Context, moduleIDs []uint, studentID string) ([]*models.ModulePassOverride, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	var out []*models.ModulePassOverride
	for _, o := range s.r.overrides {
		if o.StudentID == studentID && slices.Contains(moduleIDs, o.ModuleID) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s memoryOverrides) Upsert(ctx context.Context, override *models.ModulePassOverride) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for id, o := range s.r.overrides {
		if o.ModuleID == override.ModuleID && o.StudentID == override.StudentID {
			override.ID = id
			cp := *override
			s.r.overrides[id] = &cp
			return nil
		}
	}
	override.ID = s.r.id()
	cp := *override
	s.r.overrides[override.ID] = &cp
	return nil
}

func (s memoryOverrides) Delete(ctx context.Context, moduleID uint, studentID string) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for id, o := range s.r.overrides {
		if o.ModuleID == moduleID && o.StudentID == studentID {
			delete(s.r.overrides, id)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type memoryCertificates struct{ r *memoryRepository }

func (s memoryCertificates) Exists(ctx context.Context, courseID uint, studentID string) (bool, error) {
	_, err := s.GetByCourseAndStudent(ctx, courseID, studentID)
	return err == nil, nil
}

func (s memoryCertificates) Create(ctx context.Context, certificate *models.Certificate) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for _, c := range s.r.certificates {
		if c.CourseID == certificate.CourseID && c.StudentID == certificate.StudentID {
			return repositories.ErrDuplicate
		}
	}
	certificate.ID = s.r.id()
	cp := *certificate
	s.r.certificates[certificate.ID] = &cp
	return nil
}

func (s memoryCertificates) GetByCourseAndStudent(ctx context.Context, courseID uint, studentID string) (*models.Certificate, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for _, c := range s.r.certificates {
		if c.CourseID == courseID && c.StudentID == studentID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type memoryUsers struct{ r *memoryRepository }

func (s memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	u, ok := s.r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s memoryUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := s.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s memoryUsers) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := s.GetByID(ctx, id)
	return err == nil, nil
}

func (s memoryUsers) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return false, nil
	}
	return u.Role == role, nil
}
