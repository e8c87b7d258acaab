package dto

// ── 面试题 DTO ──

// InterviewQuestionsRequest 生成面试题请求
type InterviewQuestionsRequest struct {
	Industry       string `json:"industry"       binding:"required,min=2,max=100"`
	JobTitle       string `json:"jobTitle"       binding:"required,min=2,max=200"`
	JobDescription string `json:"jobDescription" binding:"max=5000"`
	SessionID      string `json:"sessionId"      binding:"required,max=64"`
}

// InterviewQuestionsResponse 面试题响应
type InterviewQuestionsResponse struct {
	Success   bool     `json:"success"`
	SessionID string   `json:"sessionId"`
	Questions []string `json:"questions"`
	Fallback  bool     `json:"fallback,omitempty"`
}
