package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/invigil/invigil-backend/internal/middleware"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/response"
	"github.com/invigil/invigil-backend/internal/service"
	"github.com/invigil/invigil-backend/internal/validator"
)

const defaultLogLimit = 100

// MonitorHandler handles the proctoring endpoints: the admin dashboard
// queries and the student-side monitoring signals.
type MonitorHandler struct {
	examService    *service.ExamService
	sessionService *service.SessionService
	auditService   *service.AuditService
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(examService *service.ExamService, sessionService *service.SessionService, auditService *service.AuditService) *MonitorHandler {
	return &MonitorHandler{
		examService:    examService,
		sessionService: sessionService,
		auditService:   auditService,
	}
}

// GetMonitoring godoc
// GET /api/v1/monitoring/:exam_id
// Returns a point-in-time snapshot of every active session on the exam.
// The dashboard is expected to poll this endpoint.
func (h *MonitorHandler) GetMonitoring(c *gin.Context) {
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

	sessions, err := h.sessionService.ListActive(c.Request.Context(), exam)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// GetMonitoringLogs godoc
// GET /api/v1/monitoring/:exam_id/logs?limit=100
// Returns the most recent monitoring events for the exam, newest first.
func (h *MonitorHandler) GetMonitoringLogs(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		limit = n
	}

	logs, err := h.auditService.ListByExam(c.Request.Context(), examID, limit)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logs": logs})
}

// StartMonitoring godoc
// POST /api/v1/monitoring/start
// Opens (or continues) the caller's session for the exam and logs a
// session_start event. The exam is resolved without the active gate:
// deactivating an exam must not lock students out of a session they are
// already in.
func (h *MonitorHandler) StartMonitoring(c *gin.Context) {
	var req model.StartMonitoringRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user := middleware.GetUser(c)
	exam, err := h.examService.GetByID(c.Request.Context(), req.ExamID)
	if err != nil {
		failFromError(c, err)
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), user.ID, exam)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// UpdateMonitoring godoc
// POST /api/v1/monitoring/update
// Applies client-reported proctoring telemetry to the caller's session.
func (h *MonitorHandler) UpdateMonitoring(c *gin.Context) {
	var req model.UpdateMonitoringRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user := middleware.GetUser(c)
	status, err := h.sessionService.UpdateStatus(c.Request.Context(), user.ID, req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": status})
}

// RecordWarning godoc
// POST /api/v1/monitoring/warning
// Records one suspicious-behavior event and returns the new warning count.
func (h *MonitorHandler) RecordWarning(c *gin.Context) {
	var req model.RecordWarningRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user := middleware.GetUser(c)
	warnings, status, err := h.sessionService.RecordWarning(c.Request.Context(), user.ID, req.ExamID, req.Message)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"warnings": warnings,
		"status":   status,
	})
}

// EndMonitoring godoc
// POST /api/v1/monitoring/end
// Logs a session_end event. Does not submit or seal the session.
func (h *MonitorHandler) EndMonitoring(c *gin.Context) {
	var req model.EndMonitoringRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user := middleware.GetUser(c)
	if err := h.sessionService.EndMonitoring(c.Request.Context(), user.ID, req.ExamID); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
