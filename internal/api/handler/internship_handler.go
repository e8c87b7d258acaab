package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/internal/service"
	"github.com/JoshH2S/tuterra-sub001/pkg/response"
)

// InternshipHandler 实习会话模块 HTTP 处理器
type InternshipHandler struct {
	internshipSvc service.InternshipService
}

// NewInternshipHandler 创建 InternshipHandler
func NewInternshipHandler(internshipSvc service.InternshipService) *InternshipHandler {
	return &InternshipHandler{internshipSvc: internshipSvc}
}

// CreateInternship 创建实习会话
// POST /api/v1/internships
func (h *InternshipHandler) CreateInternship(c *gin.Context) {
	var req dto.CreateInternshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	result, err := h.internshipSvc.CreateSession(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// ListInternships 当前用户的实习会话列表
// GET /api/v1/internships
func (h *InternshipHandler) ListInternships(c *gin.Context) {
	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	sessions, err := h.internshipSvc.ListSessions(c.Request.Context(), ac)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": sessions})
}

// GetInternship 实习会话详情
// GET /api/v1/internships/:id
func (h *InternshipHandler) GetInternship(c *gin.Context) {
	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	session, err := h.internshipSvc.GetSession(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, session)
}

// ListTasks 任务列表
// GET /api/v1/internships/:id/tasks?include_hidden=true
func (h *InternshipHandler) ListTasks(c *gin.Context) {
	var req dto.ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	tasks, err := h.internshipSvc.ListTasks(c.Request.Context(), ac, c.Param("id"), req.IncludeHidden)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": tasks})
}

// StartTask 开始任务
// POST /api/v1/internships/:id/tasks/:task_id/start
func (h *InternshipHandler) StartTask(c *gin.Context) {
	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	task, err := h.internshipSvc.StartTask(c.Request.Context(), ac, c.Param("id"), c.Param("task_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, task)
}

// SubmitDeliverable 提交任务成果
// POST /api/v1/internships/:id/tasks/:task_id/submit
func (h *InternshipHandler) SubmitDeliverable(c *gin.Context) {
	var req dto.SubmitDeliverableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	result, err := h.internshipSvc.SubmitDeliverable(c.Request.Context(), ac, c.Param("id"), c.Param("task_id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ReopenTask 重新打开任务
// POST /api/v1/internships/:id/tasks/:task_id/reopen
func (h *InternshipHandler) ReopenTask(c *gin.Context) {
	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	task, err := h.internshipSvc.ReopenTask(c.Request.Context(), ac, c.Param("id"), c.Param("task_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, task)
}
