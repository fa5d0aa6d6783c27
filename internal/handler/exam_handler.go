package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invigil/invigil-backend/internal/middleware"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/response"
	"github.com/invigil/invigil-backend/internal/service"
	"github.com/invigil/invigil-backend/internal/validator"
)

// ExamHandler handles exam CRUD and the student exam-taking endpoints.
type ExamHandler struct {
	examService    *service.ExamService
	sessionService *service.SessionService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, sessionService *service.SessionService) *ExamHandler {
	return &ExamHandler{
		examService:    examService,
		sessionService: sessionService,
	}
}

// ListExams godoc
// GET /api/v1/exams
// Returns every exam with question counts (admin view).
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// ListAvailableExams godoc
// GET /api/v1/exams/available
// Returns active exams the calling student has not completed yet.
func (h *ExamHandler) ListAvailableExams(c *gin.Context) {
	user := middleware.GetUser(c)

	exams, err := h.examService.ListAvailable(c.Request.Context(), user.ID)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// ListCompletedExams godoc
// GET /api/v1/exams/completed
// Returns the calling student's finished attempts, most recent first.
func (h *ExamHandler) ListCompletedExams(c *gin.Context) {
	user := middleware.GetUser(c)

	completed, err := h.sessionService.ListCompleted(c.Request.Context(), user.ID)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": completed})
}

// CreateExam godoc
// POST /api/v1/exams
// Creates an exam with its questions in one transaction.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user := middleware.GetUser(c)
	exam, err := h.examService.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/exams/:exam_id
// Returns one exam with its question count. Students never see inactive
// exams.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	user := middleware.GetUser(c)
	exam, err := h.examService.Get(c.Request.Context(), examID, user.Role)
	if err != nil {
		failFromError(c, err)
		return
	}

	count, err := h.examService.QuestionCount(c.Request.Context(), examID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam": model.ExamWithCount{Exam: *exam, QuestionCount: count},
	})
}

// GetQuestions godoc
// GET /api/v1/exams/:exam_id/questions
// Admins get the full question set including correct answers. Students get
// the answer-stripped payload; fetching it implicitly starts (or continues)
// their exam session, so a completed attempt fails here too.
func (h *ExamHandler) GetQuestions(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	user := middleware.GetUser(c)
	exam, err := h.examService.Get(c.Request.Context(), examID, user.Role)
	if err != nil {
		failFromError(c, err)
		return
	}

	if user.Role == model.RoleAdmin {
		questions, err := h.examService.Questions(c.Request.Context(), examID)
		if err != nil {
			failFromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"questions": questions})
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), user.ID, exam)
	if err != nil {
		failFromError(c, err)
		return
	}

	payload, err := h.examService.StudentPayload(c.Request.Context(), exam)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"questions":        payload.Questions,
		"duration_minutes": payload.Duration,
		"session": gin.H{
			"id":         session.ID,
			"started_at": session.StartedAt,
			"status":     session.Status,
			"warnings":   session.Warnings,
			"answers":    session.Answers,
		},
	})
}

// SaveAnswer godoc
// POST /api/v1/exams/:exam_id/answer
// Upserts one answer into the caller's active session.
func (h *ExamHandler) SaveAnswer(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user := middleware.GetUser(c)
	if err := h.sessionService.SaveAnswer(c.Request.Context(), user.ID, examID, req); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// SubmitExam godoc
// POST /api/v1/exams/:exam_id/submit
// Scores and seals the caller's active session, returning the percentage.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user := middleware.GetUser(c)
	score, err := h.sessionService.Submit(c.Request.Context(), user.ID, examID, req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"score": score})
}

// UpdateExam godoc
// PUT /api/v1/exams/:exam_id
// Applies partial changes to an exam.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), examID, req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/exams/:exam_id
// Deletes an exam with its questions and sessions atomically.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
