package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/JoshH2S/tuterra-sub001/internal/model"
)

// InterviewQuestionRepository 面试题集数据访问接口
type InterviewQuestionRepository interface {
	Create(ctx context.Context, set *model.InterviewQuestionSet) error
	GetLatestBySession(ctx context.Context, sessionID, userID string) (*model.InterviewQuestionSet, error)
}

type interviewQuestionRepo struct {
	db *gorm.DB
}

func NewInterviewQuestionRepo(db *gorm.DB) InterviewQuestionRepository {
	return &interviewQuestionRepo{db: db}
}

func (r *interviewQuestionRepo) Create(ctx context.Context, set *model.InterviewQuestionSet) error {
	return r.db.WithContext(ctx).Create(set).Error
}

func (r *interviewQuestionRepo) GetLatestBySession(ctx context.Context, sessionID, userID string) (*model.InterviewQuestionSet, error) {
	var set model.InterviewQuestionSet
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Order("created_at DESC").
		First(&set).Error
	if err != nil {
		return nil, err
	}
	return &set, nil
}
