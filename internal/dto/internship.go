package dto

// ── 实习会话 DTO ──

// CreateInternshipRequest 创建实习会话请求
type CreateInternshipRequest struct {
	JobTitle       string `json:"job_title"       binding:"required,min=2,max=200"`
	Industry       string `json:"industry"        binding:"required,min=2,max=100"`
	JobDescription string `json:"job_description" binding:"max=5000"`
	DurationWeeks  int    `json:"duration_weeks"  binding:"required,min=1,max=12"`
	StartDate      string `json:"start_date"      binding:"required"`
	IsPromotional  bool   `json:"is_promotional"`
	PromoCode      string `json:"promo_code"      binding:"max=64"`
}

// CreateInternshipResponse 创建实习会话响应
// message 非空时表示会话已创建但部分内容降级
type CreateInternshipResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// SessionResponse 实习会话详情
type SessionResponse struct {
	ID             string               `json:"id"`
	JobTitle       string               `json:"job_title"`
	Industry       string               `json:"industry"`
	JobDescription string               `json:"job_description"`
	DurationWeeks  int                  `json:"duration_weeks"`
	StartDate      string               `json:"start_date"`
	EndDate        string               `json:"end_date"`
	CurrentPhase   int                  `json:"current_phase"`
	IsPromotional  bool                 `json:"is_promotional"`
	TeamMembers    []TeamMemberResponse `json:"team_members"`
	CreatedAt      string               `json:"created_at"`
}

// TeamMemberResponse 团队成员
type TeamMemberResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Personality string `json:"personality,omitempty"`
}

// ListTasksRequest 任务列表查询参数
type ListTasksRequest struct {
	IncludeHidden bool `form:"include_hidden"`
}

// TaskResponse 任务信息
type TaskResponse struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	DueDate      string            `json:"due_date"`
	TaskOrder    int               `json:"task_order"`
	WeekNumber   int               `json:"week_number"`
	Status       string            `json:"status"`
	VisibleAfter string            `json:"visible_after"`
	Visible      bool              `json:"visible"`
	Deliverable  *DeliverableBrief `json:"deliverable,omitempty"`
}

// DeliverableBrief 提交物摘要
type DeliverableBrief struct {
	ID             string            `json:"id"`
	Content        string            `json:"content"`
	AttachmentName *string           `json:"attachment_name,omitempty"`
	AttachmentURL  *string           `json:"attachment_url,omitempty"`
	SubmittedAt    string            `json:"submitted_at"`
	Feedback       *FeedbackResponse `json:"feedback,omitempty"`
}

// FeedbackResponse 反馈
type FeedbackResponse struct {
	Ratings    map[string]int `json:"ratings"`
	Text       string         `json:"text"`
	ProvidedAt string         `json:"provided_at"`
}

// SubmitDeliverableRequest 提交任务成果请求
// 附件只记录元数据，文件存储不在本服务
type SubmitDeliverableRequest struct {
	Content        string `json:"content"         binding:"required,min=1,max=20000"`
	AttachmentName string `json:"attachment_name" binding:"omitempty,max=255"`
	AttachmentURL  string `json:"attachment_url"  binding:"omitempty,url"`
}

// SubmitDeliverableResponse 提交结果
type SubmitDeliverableResponse struct {
	Success       bool   `json:"success"`
	DeliverableID string `json:"deliverable_id"`
	TaskStatus    string `json:"task_status"`
	Message       string `json:"message"`
}
