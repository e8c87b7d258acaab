package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/JoshH2S/tuterra-sub001/internal/model"
)

// TeamMemberRepository 模拟团队成员数据访问接口
type TeamMemberRepository interface {
	BatchCreate(ctx context.Context, members []model.TeamMember) error
	ListBySession(ctx context.Context, sessionID string) ([]model.TeamMember, error)
}

type teamMemberRepo struct {
	db *gorm.DB
}

func NewTeamMemberRepo(db *gorm.DB) TeamMemberRepository {
	return &teamMemberRepo{db: db}
}

func (r *teamMemberRepo) BatchCreate(ctx context.Context, members []model.TeamMember) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&members).Error
}

func (r *teamMemberRepo) ListBySession(ctx context.Context, sessionID string) ([]model.TeamMember, error) {
	var members []model.TeamMember
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sort_order ASC").
		Find(&members).Error
	return members, err
}
