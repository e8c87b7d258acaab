package model

import "time"

// Deliverable 任务提交物，对应 internship_deliverables（每个任务至多一条）
type Deliverable struct {
	DeliverableID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"deliverable_id"`
	TaskID         string    `gorm:"type:uuid;not null;uniqueIndex"                 json:"task_id"`
	SessionID      string    `gorm:"type:uuid;not null"                             json:"session_id"`
	UserID         string    `gorm:"type:uuid;not null"                             json:"user_id"`
	Content        string    `gorm:"type:text;not null"                             json:"content"`
	AttachmentName *string   `gorm:"type:varchar(255)"                              json:"attachment_name,omitempty"`
	AttachmentURL  *string   `gorm:"type:text"                                      json:"attachment_url,omitempty"`
	SubmittedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"submitted_at"`
}

// TableName 指定表名
func (Deliverable) TableName() string { return "internship_deliverables" }

// Feedback 提交物反馈，对应 internship_feedback（异步生成，最终一致）
type Feedback struct {
	FeedbackID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"feedback_id"`
	DeliverableID string    `gorm:"type:uuid;not null"                             json:"deliverable_id"`
	Ratings       Ratings   `gorm:"type:jsonb;not null"                            json:"ratings"`
	Text          string    `gorm:"type:text;not null"                             json:"text"`
	ProvidedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"provided_at"`
}

// TableName 指定表名
func (Feedback) TableName() string { return "internship_feedback" }
