package dto

// ── 导师消息 DTO ──

// 导师动作
const (
	ActionOnboarding                = "onboarding"
	ActionCheckIn                   = "check_in"
	ActionFeedbackFollowup          = "feedback_followup"
	ActionScheduleReminder          = "schedule_reminder"
	ActionProcessScheduled          = "process_scheduled"
	ActionScheduleTeamIntroductions = "schedule_team_introductions"
	ActionScheduleTeamInteraction   = "schedule_team_interaction"
	ActionProcessTeamMessages       = "process_team_messages"
)

// SupervisorRequest 导师动作请求
// user_id 可省略，省略时取令牌中的用户；与令牌不一致时拒绝
type SupervisorRequest struct {
	Action    string            `json:"action"     binding:"required,oneof=onboarding check_in feedback_followup schedule_reminder process_scheduled schedule_team_introductions schedule_team_interaction process_team_messages"`
	SessionID string            `json:"session_id" binding:"required,uuid"`
	UserID    string            `json:"user_id"    binding:"omitempty,uuid"`
	Context   SupervisorContext `json:"context"`
}

// SupervisorContext 动作附加参数
type SupervisorContext struct {
	TaskID        string `json:"task_id"        binding:"omitempty,uuid"`
	DeliverableID string `json:"deliverable_id" binding:"omitempty,uuid"`
}

// SupervisorResponse 导师动作响应
type SupervisorResponse struct {
	Success   bool              `json:"success"`
	Action    string            `json:"action"`
	Skipped   bool              `json:"skipped,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Scheduled int               `json:"scheduled"`
	Processed int               `json:"processed"`
	Failed    int               `json:"failed,omitempty"`
	Messages  []MessageResponse `json:"messages,omitempty"`
}

// MessageResponse 计划消息
type MessageResponse struct {
	ID            string  `json:"id"`
	SessionID     string  `json:"session_id"`
	Type          string  `json:"type"`
	Content       string  `json:"content"`
	ScheduledFor  string  `json:"scheduled_for"`
	Status        string  `json:"status"`
	SenderName    string  `json:"sender_name"`
	SenderRole    string  `json:"sender_role"`
	RelatedTaskID *string `json:"related_task_id,omitempty"`
	SentAt        *string `json:"sent_at,omitempty"`
}

// NotificationListRequest 通知轮询参数
type NotificationListRequest struct {
	Since string `form:"since" binding:"omitempty"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=200"`
}
