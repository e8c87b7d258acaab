package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/JoshH2S/tuterra-sub001/internal/model"
	pkgerrors "github.com/JoshH2S/tuterra-sub001/pkg/errors"
)

// SessionRepository 实习会话数据访问接口
type SessionRepository interface {
	Create(ctx context.Context, session *model.InternshipSession) error
	GetByID(ctx context.Context, id string) (*model.InternshipSession, error)
	GetByIDForUser(ctx context.Context, id, userID string) (*model.InternshipSession, error)
	ListByUser(ctx context.Context, userID string) ([]model.InternshipSession, error)
	AdvancePhase(ctx context.Context, session *model.InternshipSession, phase int) error
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.InternshipSession) error {
	return r.db.WithContext(ctx).Omit("Tasks", "TeamMembers").Create(session).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.InternshipSession, error) {
	var session model.InternshipSession
	err := r.db.WithContext(ctx).
		Preload("TeamMembers", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetByIDForUser(ctx context.Context, id, userID string) (*model.InternshipSession, error) {
	var session model.InternshipSession
	err := r.db.WithContext(ctx).
		Preload("TeamMembers", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("session_id = ? AND user_id = ?", id, userID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string) ([]model.InternshipSession, error) {
	var sessions []model.InternshipSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// AdvancePhase 推进会话阶段；阶段只增不减，phase 不大于当前阶段时不做任何修改
func (r *sessionRepo) AdvancePhase(ctx context.Context, session *model.InternshipSession, phase int) error {
	if phase <= session.CurrentPhase {
		return nil
	}
	oldVersion := session.Version
	result := r.db.WithContext(ctx).
		Model(&model.InternshipSession{}).
		Where("session_id = ? AND version = ? AND current_phase < ?", session.SessionID, oldVersion, phase).
		Updates(map[string]interface{}{
			"current_phase": phase,
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	session.CurrentPhase = phase
	session.Version = oldVersion + 1
	return nil
}
