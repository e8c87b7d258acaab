package model

import "time"

// 消息状态：pending → sending → sent | failed，sent 与 failed 为终态
// sending 表示已被某次派发认领
const (
	MessageStatusPending = "pending"
	MessageStatusSending = "sending"
	MessageStatusSent    = "sent"
	MessageStatusFailed  = "failed"
)

// 消息类型
const (
	MessageTypeOnboarding       = "onboarding"
	MessageTypeCheckIn          = "check_in"
	MessageTypeFeedbackFollowup = "feedback_followup"
	MessageTypeDeadlineReminder = "deadline_reminder"
	MessageTypeTaskAssigned     = "task_assigned"
	MessageTypeTeamIntroduction = "team_introduction"
	MessageTypeTeamInteraction  = "team_interaction"
)

// TeamMessagePrefix 团队成员消息类型前缀
const TeamMessagePrefix = "team_"

// ScheduledMessage 计划消息，对应 scheduled_messages
type ScheduledMessage struct {
	MessageID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"message_id"`
	SessionID     string     `gorm:"type:uuid;not null"                             json:"session_id"`
	UserID        string     `gorm:"type:uuid;not null"                             json:"user_id"`
	Type          string     `gorm:"type:varchar(40);not null"                      json:"type"`
	Content       string     `gorm:"type:text;not null"                             json:"content"`
	ScheduledFor  time.Time  `gorm:"not null"                                       json:"scheduled_for"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	SenderName    string     `gorm:"type:varchar(100);not null"                     json:"sender_name"`
	SenderRole    string     `gorm:"type:varchar(100);not null;default:''"          json:"sender_role"`
	RelatedTaskID *string    `gorm:"type:uuid"                                      json:"related_task_id,omitempty"`
	ErrorPayload  *string    `gorm:"type:text"                                      json:"error_payload,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ScheduledMessage) TableName() string { return "scheduled_messages" }

// InterviewQuestionSet 面试题集，对应 interview_question_sets
type InterviewQuestionSet struct {
	SetID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"set_id"`
	SessionID string     `gorm:"type:varchar(64);not null"                      json:"session_id"`
	UserID    string     `gorm:"type:uuid;not null"                             json:"user_id"`
	Industry  string     `gorm:"type:varchar(100);not null"                     json:"industry"`
	JobTitle  string     `gorm:"type:varchar(200);not null"                     json:"job_title"`
	Questions StringList `gorm:"type:jsonb;not null"                            json:"questions"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (InterviewQuestionSet) TableName() string { return "interview_question_sets" }
