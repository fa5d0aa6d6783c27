package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/repository"
	"github.com/jackc/pgx/v5"
)

// In-memory store fakes. They mirror the repository contract, in particular
// signalling absent rows with pgx.ErrNoRows.

type fakeUserStore struct {
	users []*model.User
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	cp := *u
	f.users = append(f.users, &cp)
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// fakeExamStore keeps exams alongside the question and session fakes so
// DeleteCascade can mimic the repository's all-or-nothing transaction:
// when deleteErr is set, the delete fails and no store changes.
type fakeExamStore struct {
	exams     []*model.Exam
	questions *fakeQuestionStore
	sessions  *fakeSessionStore
	deleteErr error
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	for _, e := range f.exams {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeExamStore) CreateWithQuestions(_ context.Context, e *model.Exam, questions []model.Question) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	cp := *e
	f.exams = append(f.exams, &cp)
	for i := range questions {
		questions[i].ExamID = e.ID
	}
	if f.questions != nil {
		f.questions.questions = append(f.questions.questions, questions...)
	}
	return nil
}

func (f *fakeExamStore) ListAll(ctx context.Context) ([]model.ExamWithCount, error) {
	var out []model.ExamWithCount
	for _, e := range f.exams {
		count := 0
		if f.questions != nil {
			count, _ = f.questions.CountByExam(ctx, e.ID)
		}
		out = append(out, model.ExamWithCount{Exam: *e, QuestionCount: count})
	}
	return out, nil
}

func (f *fakeExamStore) ListAvailableForUser(ctx context.Context, userID uuid.UUID) ([]model.ExamWithCount, error) {
	all, _ := f.ListAll(ctx)
	var out []model.ExamWithCount
	for _, e := range all {
		if !e.Active {
			continue
		}
		done := false
		if f.sessions != nil {
			done, _ = f.sessions.HasCompleted(ctx, userID, e.ID)
		}
		if !done {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeExamStore) Update(_ context.Context, e *model.Exam) error {
	for i, stored := range f.exams {
		if stored.ID == e.ID {
			cp := *e
			f.exams[i] = &cp
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeExamStore) DeleteCascade(_ context.Context, id uuid.UUID) error {
	idx := -1
	for i, e := range f.exams {
		if e.ID == id {
			idx = i
		}
	}
	if idx == -1 {
		return pgx.ErrNoRows
	}

	if f.deleteErr != nil {
		return f.deleteErr
	}

	if f.questions != nil {
		kept := f.questions.questions[:0]
		for _, q := range f.questions.questions {
			if q.ExamID != id {
				kept = append(kept, q)
			}
		}
		f.questions.questions = kept
	}
	if f.sessions != nil {
		kept := f.sessions.sessions[:0]
		for _, s := range f.sessions.sessions {
			if s.ExamID != id {
				kept = append(kept, s)
			}
		}
		f.sessions.sessions = kept
	}
	f.exams = append(f.exams[:idx], f.exams[idx+1:]...)
	return nil
}

type fakeQuestionStore struct {
	questions []model.Question
}

func (f *fakeQuestionStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	for _, q := range f.questions {
		if q.ExamID == examID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) CountByExam(_ context.Context, examID uuid.UUID) (int, error) {
	qs, _ := f.ListByExam(context.Background(), examID)
	return len(qs), nil
}

type fakeSessionStore struct {
	sessions  []*model.ExamSession
	userNames map[uuid.UUID]string
}

func (f *fakeSessionStore) active(userID, examID uuid.UUID) *model.ExamSession {
	for _, s := range f.sessions {
		if s.UserID == userID && s.ExamID == examID && !s.Completed {
			return s
		}
	}
	return nil
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.ExamSession) error {
	if f.active(s.UserID, s.ExamID) != nil {
		return pgx.ErrNoRows
	}
	s.ID = uuid.New()
	s.StartedAt = time.Now()
	cp := *s
	f.sessions = append(f.sessions, &cp)
	return nil
}

func (f *fakeSessionStore) GetActive(_ context.Context, userID, examID uuid.UUID) (*model.ExamSession, error) {
	s := f.active(userID, examID)
	if s == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) HasCompleted(_ context.Context, userID, examID uuid.UUID) (bool, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.ExamID == examID && s.Completed {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSessionStore) SaveAnswer(_ context.Context, userID, examID, questionID uuid.UUID, answer json.RawMessage) error {
	s := f.active(userID, examID)
	if s == nil {
		return pgx.ErrNoRows
	}
	if s.Answers == nil {
		s.Answers = map[string]json.RawMessage{}
	}
	s.Answers[questionID.String()] = answer
	return nil
}

func (f *fakeSessionStore) UpdateProctorState(_ context.Context, sessionID uuid.UUID, warnings int, status model.SessionStatus, warningLog []model.WarningEvent) error {
	for _, s := range f.sessions {
		if s.ID == sessionID && !s.Completed {
			s.Warnings = warnings
			s.Status = status
			s.WarningLog = warningLog
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeSessionStore) Complete(_ context.Context, userID, examID uuid.UUID, score int, forced bool, warnings *int) error {
	s := f.active(userID, examID)
	if s == nil {
		return pgx.ErrNoRows
	}
	now := time.Now()
	s.Completed = true
	s.EndedAt = &now
	s.Score = &score
	s.ForcedSubmission = forced
	if warnings != nil {
		s.Warnings = *warnings
	}
	return nil
}

func (f *fakeSessionStore) ListActiveByExam(_ context.Context, examID uuid.UUID) ([]repository.ActiveSessionRow, error) {
	var rows []repository.ActiveSessionRow
	for _, s := range f.sessions {
		if s.ExamID == examID && !s.Completed {
			name := f.userNames[s.UserID]
			if name == "" {
				name = "Unknown User"
			}
			rows = append(rows, repository.ActiveSessionRow{
				SessionID: s.ID,
				UserID:    s.UserID,
				Name:      name,
				Status:    s.Status,
				Warnings:  s.Warnings,
				StartedAt: s.StartedAt,
			})
		}
	}
	return rows, nil
}

func (f *fakeSessionStore) ListCompletedByUser(_ context.Context, userID uuid.UUID) ([]model.CompletedExamSummary, error) {
	var out []model.CompletedExamSummary
	for _, s := range f.sessions {
		if s.UserID == userID && s.Completed {
			out = append(out, model.CompletedExamSummary{
				SessionID:        s.ID,
				ExamID:           s.ExamID,
				Score:            s.Score,
				CompletedAt:      s.EndedAt,
				ForcedSubmission: s.ForcedSubmission,
			})
		}
	}
	return out, nil
}

type fakeAuditTrail struct {
	events []model.MonitoringLog
}

func (f *fakeAuditTrail) Record(_ context.Context, l model.MonitoringLog) {
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	f.events = append(f.events, l)
}

func (f *fakeAuditTrail) countByType(event model.MonitoringEventType) int {
	n := 0
	for _, e := range f.events {
		if e.EventType == event {
			n++
		}
	}
	return n
}
