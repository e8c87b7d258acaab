package model

import "time"

// 任务状态
const (
	TaskStatusNotStarted      = "not_started"
	TaskStatusInProgress      = "in_progress"
	TaskStatusFeedbackPending = "feedback_pending"
	TaskStatusCompleted       = "completed"
)

// taskStatusRank 状态只能沿 rank 递增方向流转（reopen 除外）
var taskStatusRank = map[string]int{
	TaskStatusNotStarted:      0,
	TaskStatusInProgress:      1,
	TaskStatusFeedbackPending: 2,
	TaskStatusCompleted:       3,
}

// CanAdvanceTaskStatus 判断 from → to 是否为合法的前进流转
func CanAdvanceTaskStatus(from, to string) bool {
	f, ok1 := taskStatusRank[from]
	t, ok2 := taskStatusRank[to]
	return ok1 && ok2 && t >= f
}

// InternshipSession 实习会话，对应 internship_sessions
type InternshipSession struct {
	SessionID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	UserID         string    `gorm:"type:uuid;not null;index"                       json:"user_id"`
	JobTitle       string    `gorm:"type:varchar(200);not null"                     json:"job_title"`
	Industry       string    `gorm:"type:varchar(100);not null"                     json:"industry"`
	JobDescription string    `gorm:"type:text;not null;default:''"                  json:"job_description"`
	DurationWeeks  int       `gorm:"type:smallint;not null"                         json:"duration_weeks"`
	StartDate      time.Time `gorm:"type:date;not null"                             json:"start_date"`
	CurrentPhase   int       `gorm:"type:smallint;not null;default:1"               json:"current_phase"`
	IsPromotional  bool      `gorm:"not null;default:false"                         json:"is_promotional"`
	VersionedModel

	// 关联
	Tasks       []Task       `gorm:"foreignKey:SessionID" json:"tasks,omitempty"`
	TeamMembers []TeamMember `gorm:"foreignKey:SessionID" json:"team_members,omitempty"`
}

// TableName 指定表名
func (InternshipSession) TableName() string { return "internship_sessions" }

// Task 实习任务，对应 internship_tasks
type Task struct {
	TaskID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"task_id"`
	SessionID    string    `gorm:"type:uuid;not null"                             json:"session_id"`
	Title        string    `gorm:"type:varchar(300);not null"                     json:"title"`
	Description  string    `gorm:"type:text;not null;default:''"                  json:"description"`
	DueDate      time.Time `gorm:"type:date;not null"                             json:"due_date"`
	TaskOrder    int       `gorm:"type:smallint;not null"                         json:"task_order"`
	WeekNumber   int       `gorm:"type:smallint;not null"                         json:"week_number"`
	Status       string    `gorm:"type:varchar(20);not null;default:'not_started'" json:"status"`
	VisibleAfter time.Time `gorm:"not null"                                       json:"visible_after"`
	BaseModel
}

// TableName 指定表名
func (Task) TableName() string { return "internship_tasks" }

// IsCompleted 任务是否已完成
func (t *Task) IsCompleted() bool { return t.Status == TaskStatusCompleted }

// TeamMember 模拟团队成员，对应 internship_team_members
type TeamMember struct {
	MemberID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"member_id"`
	SessionID   string `gorm:"type:uuid;not null"                             json:"session_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Role        string `gorm:"type:varchar(100);not null"                     json:"role"`
	Personality string `gorm:"type:varchar(300);not null;default:''"          json:"personality"`
	SortOrder   int    `gorm:"type:smallint;not null;default:0"               json:"sort_order"`
}

// TableName 指定表名
func (TeamMember) TableName() string { return "internship_team_members" }
