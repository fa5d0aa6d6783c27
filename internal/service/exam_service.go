package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// examPayloadTTL bounds staleness of the cached student payload. Updates
// and deletes invalidate eagerly; the TTL only covers writes the service
// never saw.
const examPayloadTTL = time.Hour

// ExamService handles exam business logic and Redis payload caching.
type ExamService struct {
	exams     ExamStore
	questions QuestionStore
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore, questions QuestionStore, rdb *redis.Client, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:     exams,
		questions: questions,
		rdb:       rdb,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// List retrieves every exam with question counts (admin view).
func (s *ExamService) List(ctx context.Context) ([]model.ExamWithCount, error) {
	return s.exams.ListAll(ctx)
}

// ListAvailable retrieves active exams the user has not completed yet.
func (s *ExamService) ListAvailable(ctx context.Context, userID uuid.UUID) ([]model.ExamWithCount, error) {
	return s.exams.ListAvailableForUser(ctx, userID)
}

// Create persists a new exam with its questions in one transaction.
// New exams are immediately active.
func (s *ExamService) Create(ctx context.Context, creatorID uuid.UUID, req model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Active:          true,
		CreatedBy:       creatorID,
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		points := q.Points
		if points == 0 {
			points = 1
		}
		questions[i] = model.Question{
			ID:            uuid.New(),
			Position:      i + 1,
			Text:          q.Text,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        points,
		}
	}

	if err := s.exams.CreateWithQuestions(ctx, exam, questions); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	// Warm the student payload cache; a miss later just refills it.
	if err := s.warmPayloadCache(ctx, exam, questions); err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Failed to warm exam payload cache")
	}

	s.log.Info().Str("exam_id", exam.ID.String()).Int("questions", len(questions)).Msg("Exam created")
	return exam, nil
}

// GetByID retrieves an exam regardless of its active flag. Session
// continuation must keep working when an exam is deactivated mid-attempt,
// so the monitoring path resolves exams through here.
func (s *ExamService) GetByID(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

// Get retrieves an exam, applying the role gate: students never see
// inactive exams.
func (s *ExamService) Get(ctx context.Context, examID uuid.UUID, role model.Role) (*model.Exam, error) {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !exam.Active && role != model.RoleAdmin {
		return nil, ErrExamUnavailable
	}
	return exam, nil
}

// Update applies partial changes to an exam and invalidates its cached
// payload.
func (s *ExamService) Update(ctx context.Context, examID uuid.UUID, req model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if req.Name != "" {
		exam.Name = req.Name
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.DurationMinutes != 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	if req.Active != nil {
		exam.Active = *req.Active
	}

	if err := s.exams.Update(ctx, exam); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("update exam: %w", err)
	}

	s.invalidatePayloadCache(ctx, examID)
	s.log.Info().Str("exam_id", examID.String()).Msg("Exam updated")
	return exam, nil
}

// Delete removes an exam with its questions and sessions atomically and
// invalidates the cached payload.
func (s *ExamService) Delete(ctx context.Context, examID uuid.UUID) error {
	if err := s.exams.DeleteCascade(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExamNotFound
		}
		return fmt.Errorf("delete exam: %w", err)
	}

	s.invalidatePayloadCache(ctx, examID)
	s.log.Info().Str("exam_id", examID.String()).Msg("Exam deleted")
	return nil
}

// Questions retrieves the full question set including correct answers
// (admin view).
func (s *ExamService) Questions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.questions.ListByExam(ctx, examID)
}

// QuestionCount returns the number of questions attached to an exam.
func (s *ExamService) QuestionCount(ctx context.Context, examID uuid.UUID) (int, error) {
	return s.questions.CountByExam(ctx, examID)
}

// StudentPayload retrieves the answer-stripped exam payload, served from
// Redis when possible.
func (s *ExamService) StudentPayload(ctx context.Context, exam *model.Exam) (*model.ExamPayload, error) {
	key := config.CacheKey.ExamPayloadKey(exam.ID.String())

	cached, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		payload := &model.ExamPayload{}
		if err := json.Unmarshal(cached, payload); err == nil {
			return payload, nil
		}
		// Corrupt entry; fall through and rebuild.
		s.log.Warn().Str("exam_id", exam.ID.String()).Msg("Discarding unreadable cached exam payload")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Exam payload cache read failed")
	}

	questions, err := s.questions.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	payload := buildStudentPayload(exam, questions)
	if err := s.cachePayload(ctx, key, payload); err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Failed to cache exam payload")
	}
	return payload, nil
}

func (s *ExamService) warmPayloadCache(ctx context.Context, exam *model.Exam, questions []model.Question) error {
	key := config.CacheKey.ExamPayloadKey(exam.ID.String())
	return s.cachePayload(ctx, key, buildStudentPayload(exam, questions))
}

func (s *ExamService) cachePayload(ctx context.Context, key string, payload *model.ExamPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return s.rdb.Set(ctx, key, data, examPayloadTTL).Err()
}

func (s *ExamService) invalidatePayloadCache(ctx context.Context, examID uuid.UUID) {
	key := config.CacheKey.ExamPayloadKey(examID.String())
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to invalidate exam payload cache")
	}
}

func buildStudentPayload(exam *model.Exam, questions []model.Question) *model.ExamPayload {
	stripped := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		stripped[i] = q.ForStudent()
	}
	return &model.ExamPayload{
		ExamID:    exam.ID,
		Name:      exam.Name,
		Duration:  exam.DurationMinutes,
		Questions: stripped,
	}
}
