package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	svc       *SessionService
	sessions  *fakeSessionStore
	questions *fakeQuestionStore
	audit     *fakeAuditTrail
	exam      *model.Exam
	userID    uuid.UUID
}

func newSessionFixture() *sessionFixture {
	sessions := &fakeSessionStore{userNames: map[uuid.UUID]string{}}
	questions := &fakeQuestionStore{}
	audit := &fakeAuditTrail{}
	return &sessionFixture{
		svc:       NewSessionService(sessions, questions, audit, zerolog.Nop()),
		sessions:  sessions,
		questions: questions,
		audit:     audit,
		exam:      &model.Exam{ID: uuid.New(), Name: "Algebra Final", DurationMinutes: 60, Active: true},
		userID:    uuid.New(),
	}
}

func (f *sessionFixture) addQuestions(correct ...string) []model.Question {
	for _, ans := range correct {
		f.questions.questions = append(f.questions.questions, model.Question{
			ID:            uuid.New(),
			ExamID:        f.exam.ID,
			Text:          "q",
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: ans,
			Points:        1,
		})
	}
	return f.questions.questions
}

func TestStartIsIdempotent(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	first, err := f.svc.Start(ctx, f.userID, f.exam)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, model.SessionStatusActive, first.Status)
	assert.Equal(t, 0, first.Warnings)

	second, err := f.svc.Start(ctx, f.userID, f.exam)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Continuing an existing session is still announced as session_start.
	assert.Equal(t, 2, f.audit.countByType(model.EventSessionStart))
}

func TestStartAfterCompletionFails(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID, f.exam)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.userID, f.exam.ID, model.SubmitExamRequest{})
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, f.userID, f.exam)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestRecordWarningSequence(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	session, err := f.svc.Start(ctx, f.userID, f.exam)
	require.NoError(t, err)

	count, status, err := f.svc.RecordWarning(ctx, f.userID, f.exam.ID, "tab switch")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, model.SessionStatusWarning, status)

	count, status, err = f.svc.RecordWarning(ctx, f.userID, f.exam.ID, "window blur")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, model.SessionStatusFlagged, status)

	count, status, err = f.svc.RecordWarning(ctx, f.userID, f.exam.ID, "copy attempt")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, model.SessionStatusFlagged, status)

	stored, err := f.sessions.GetActive(ctx, f.userID, f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.ID)
	assert.Len(t, stored.WarningLog, 3)
	assert.Equal(t, "tab switch", stored.WarningLog[0].Message)

	assert.Equal(t, 3, f.audit.countByType(model.EventWarning))
}

func TestUpdateStatusOverwritesWarnings(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID, f.exam)
	require.NoError(t, err)

	_, _, err = f.svc.RecordWarning(ctx, f.userID, f.exam.ID, "tab switch")
	require.NoError(t, err)

	// Client reports a higher count; it replaces the server counter.
	five := 5
	status, err := f.svc.UpdateStatus(ctx, f.userID, model.UpdateMonitoringRequest{
		ExamID:   f.exam.ID,
		Warnings: &five,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusFlagged, status)

	stored, err := f.sessions.GetActive(ctx, f.userID, f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Warnings)

	// Reporting zero drops the session back to active.
	zero := 0
	status, err = f.svc.UpdateStatus(ctx, f.userID, model.UpdateMonitoringRequest{
		ExamID:   f.exam.ID,
		Warnings: &zero,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusActive, status)

	// Telemetry without a warnings value leaves the counter alone.
	timeLeft := 42
	_, err = f.svc.UpdateStatus(ctx, f.userID, model.UpdateMonitoringRequest{
		ExamID:   f.exam.ID,
		TimeLeft: &timeLeft,
	})
	require.NoError(t, err)

	stored, err = f.sessions.GetActive(ctx, f.userID, f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Warnings)

	assert.Equal(t, 3, f.audit.countByType(model.EventStatusUpdate))
}

func TestOperationsWithoutSession(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	err := f.svc.SaveAnswer(ctx, f.userID, f.exam.ID, model.SaveAnswerRequest{
		QuestionID: uuid.New(),
		Answer:     rawAnswer("A"),
	})
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, _, err = f.svc.RecordWarning(ctx, f.userID, f.exam.ID, "tab switch")
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = f.svc.UpdateStatus(ctx, f.userID, model.UpdateMonitoringRequest{ExamID: f.exam.ID})
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = f.svc.Submit(ctx, f.userID, f.exam.ID, model.SubmitExamRequest{})
	assert.ErrorIs(t, err, ErrNoActiveSession)

	err = f.svc.EndMonitoring(ctx, f.userID, f.exam.ID)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestSubmitScoresAndSeals(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	qs := f.addQuestions("A", "B")

	_, err := f.svc.Start(ctx, f.userID, f.exam)
	require.NoError(t, err)

	err = f.svc.SaveAnswer(ctx, f.userID, f.exam.ID, model.SaveAnswerRequest{
		QuestionID: qs[0].ID,
		Answer:     rawAnswer("A"),
	})
	require.NoError(t, err)
	err = f.svc.SaveAnswer(ctx, f.userID, f.exam.ID, model.SaveAnswerRequest{
		QuestionID: qs[1].ID,
		Answer:     rawAnswer("X"),
	})
	require.NoError(t, err)

	score, err := f.svc.Submit(ctx, f.userID, f.exam.ID, model.SubmitExamRequest{})
	require.NoError(t, err)
	assert.Equal(t, 50, score)

	// The session is sealed: every mutation now reports no active session.
	err = f.svc.SaveAnswer(ctx, f.userID, f.exam.ID, model.SaveAnswerRequest{
		QuestionID: qs[0].ID,
		Answer:     rawAnswer("B"),
	})
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = f.svc.Submit(ctx, f.userID, f.exam.ID, model.SubmitExamRequest{})
	assert.ErrorIs(t, err, ErrNoActiveSession)

	completed, err := f.svc.ListCompleted(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.NotNil(t, completed[0].Score)
	assert.Equal(t, 50, *completed[0].Score)
	assert.False(t, completed[0].ForcedSubmission)
}

func TestSubmitForcedWithReportedWarnings(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	f.addQuestions("A")

	_, err := f.svc.Start(ctx, f.userID, f.exam)
	require.NoError(t, err)

	four := 4
	score, err := f.svc.Submit(ctx, f.userID, f.exam.ID, model.SubmitExamRequest{
		Forced:   true,
		Warnings: &four,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	completed, err := f.svc.ListCompleted(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.True(t, completed[0].ForcedSubmission)

	for _, s := range f.sessions.sessions {
		if s.Completed {
			assert.Equal(t, 4, s.Warnings)
		}
	}
}

func TestSubmitEmptyExamScoresZero(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.userID, f.exam)
	require.NoError(t, err)

	score, err := f.svc.Submit(ctx, f.userID, f.exam.ID, model.SubmitExamRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestEndMonitoringDoesNotSeal(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	qs := f.addQuestions("A")

	_, err := f.svc.Start(ctx, f.userID, f.exam)
	require.NoError(t, err)

	require.NoError(t, f.svc.EndMonitoring(ctx, f.userID, f.exam.ID))
	assert.Equal(t, 1, f.audit.countByType(model.EventSessionEnd))

	// The session still accepts answers and a submission.
	err = f.svc.SaveAnswer(ctx, f.userID, f.exam.ID, model.SaveAnswerRequest{
		QuestionID: qs[0].ID,
		Answer:     rawAnswer("A"),
	})
	require.NoError(t, err)

	score, err := f.svc.Submit(ctx, f.userID, f.exam.ID, model.SubmitExamRequest{})
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}

func TestListActiveSnapshots(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	f.sessions.userNames[f.userID] = "Sam Student"
	session, err := f.svc.Start(ctx, f.userID, f.exam)
	require.NoError(t, err)

	_, _, err = f.svc.RecordWarning(ctx, f.userID, f.exam.ID, "tab switch")
	require.NoError(t, err)

	snapshots, err := f.svc.ListActive(ctx, f.exam)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	snap := snapshots[0]
	assert.Equal(t, session.ID, snap.SessionID)
	assert.Equal(t, "Sam Student", snap.UserName)
	assert.Equal(t, model.SessionStatusWarning, snap.Status)
	assert.Equal(t, 1, snap.Warnings)
	assert.Equal(t, 60, snap.MinutesRemaining)
}

func TestMinutesRemaining(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		duration  int
		startedAt time.Time
		want      int
	}{
		{"just started", 60, now, 60},
		{"half way", 60, now.Add(-30 * time.Minute), 30},
		{"partial minute rounds up", 60, now.Add(-59*time.Minute - 30*time.Second), 1},
		{"exactly over", 60, now.Add(-60 * time.Minute), 0},
		{"overtime clamps at zero", 60, now.Add(-2 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, minutesRemaining(tt.duration, tt.startedAt, now))
		})
	}
}
