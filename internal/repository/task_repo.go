package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/JoshH2S/tuterra-sub001/internal/model"
	pkgerrors "github.com/JoshH2S/tuterra-sub001/pkg/errors"
)

// TaskRepository 实习任务数据访问接口
type TaskRepository interface {
	BatchCreate(ctx context.Context, tasks []model.Task) error
	GetByID(ctx context.Context, sessionID, taskID string) (*model.Task, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.Task, error)
	ListVisible(ctx context.Context, sessionID string, now time.Time) ([]model.Task, error)
	UpdateStatus(ctx context.Context, taskID string, from []string, to string) error
}

type taskRepo struct {
	db *gorm.DB
}

func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) BatchCreate(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tasks).Error
}

func (r *taskRepo) GetByID(ctx context.Context, sessionID, taskID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND session_id = ?", taskID, sessionID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("task_order ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepo) ListVisible(ctx context.Context, sessionID string, now time.Time) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND visible_after <= ?", sessionID, now).
		Order("task_order ASC").
		Find(&tasks).Error
	return tasks, err
}

// UpdateStatus 条件更新任务状态：仅当当前状态属于 from 时生效
func (r *taskRepo) UpdateStatus(ctx context.Context, taskID string, from []string, to string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("task_id = ? AND status IN ?", taskID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStateConflict
	}
	return nil
}
