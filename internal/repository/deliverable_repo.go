package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoshH2S/tuterra-sub001/internal/model"
)

// DeliverableRepository 提交物数据访问接口
type DeliverableRepository interface {
	Upsert(ctx context.Context, d *model.Deliverable) error
	GetByTask(ctx context.Context, taskID string) (*model.Deliverable, error)
}

// FeedbackRepository 反馈数据访问接口
type FeedbackRepository interface {
	Create(ctx context.Context, f *model.Feedback) error
	GetLatestByDeliverable(ctx context.Context, deliverableID string) (*model.Feedback, error)
}

// ── Deliverable Repository 实现 ──

type deliverableRepo struct {
	db *gorm.DB
}

func NewDeliverableRepo(db *gorm.DB) DeliverableRepository {
	return &deliverableRepo{db: db}
}

// Upsert 每个任务只保留一条提交物，重复提交覆盖内容
func (r *deliverableRepo) Upsert(ctx context.Context, d *model.Deliverable) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "attachment_name", "attachment_url", "submitted_at"}),
		}).
		Create(d).Error
}

func (r *deliverableRepo) GetByTask(ctx context.Context, taskID string) (*model.Deliverable, error) {
	var d model.Deliverable
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ── Feedback Repository 实现 ──

type feedbackRepo struct {
	db *gorm.DB
}

func NewFeedbackRepo(db *gorm.DB) FeedbackRepository {
	return &feedbackRepo{db: db}
}

func (r *feedbackRepo) Create(ctx context.Context, f *model.Feedback) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *feedbackRepo) GetLatestByDeliverable(ctx context.Context, deliverableID string) (*model.Feedback, error) {
	var f model.Feedback
	err := r.db.WithContext(ctx).
		Where("deliverable_id = ?", deliverableID).
		Order("provided_at DESC").
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}
