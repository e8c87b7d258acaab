package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/internal/service"
	"github.com/JoshH2S/tuterra-sub001/pkg/response"
)

// InterviewHandler 面试题模块 HTTP 处理器
type InterviewHandler struct {
	interviewSvc service.InterviewService
}

// NewInterviewHandler 创建 InterviewHandler
func NewInterviewHandler(interviewSvc service.InterviewService) *InterviewHandler {
	return &InterviewHandler{interviewSvc: interviewSvc}
}

// GenerateQuestions 生成面试题
// POST /api/v1/interview-questions
func (h *InterviewHandler) GenerateQuestions(c *gin.Context) {
	var req dto.InterviewQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	ac, ok := MustGetAuth(c)
	if !ok {
		return
	}

	result, err := h.interviewSvc.Generate(c.Request.Context(), ac, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
