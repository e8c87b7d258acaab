package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Session          SessionRepository
	Task             TaskRepository
	Deliverable      DeliverableRepository
	Feedback         FeedbackRepository
	TeamMember       TeamMemberRepository
	ScheduledMessage ScheduledMessageRepository
	Interview        InterviewQuestionRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Session:          NewSessionRepo(db),
		Task:             NewTaskRepo(db),
		Deliverable:      NewDeliverableRepo(db),
		Feedback:         NewFeedbackRepo(db),
		TeamMember:       NewTeamMemberRepo(db),
		ScheduledMessage: NewScheduledMessageRepo(db),
		Interview:        NewInterviewQuestionRepo(db),
	}
}
