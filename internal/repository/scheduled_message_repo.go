package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoshH2S/tuterra-sub001/internal/model"
	pkgerrors "github.com/JoshH2S/tuterra-sub001/pkg/errors"
)

// MessageScope 待发送消息的筛选范围；零值表示全局
type MessageScope struct {
	SessionID  string
	UserID     string
	TypePrefix string
}

// ScheduledMessageRepository 计划消息数据访问接口
type ScheduledMessageRepository interface {
	Create(ctx context.Context, msg *model.ScheduledMessage) error
	BatchCreate(ctx context.Context, msgs []model.ScheduledMessage) error
	// CreateIfAbsent 命中唯一索引时不插入，返回 false
	CreateIfAbsent(ctx context.Context, msg *model.ScheduledMessage) (bool, error)
	ExistsByType(ctx context.Context, sessionID, msgType string) (bool, error)
	ListReminderTaskIDs(ctx context.Context, sessionID string) ([]string, error)
	LatestByType(ctx context.Context, sessionID, msgType string) (*model.ScheduledMessage, error)
	ListDue(ctx context.Context, scope MessageScope, now time.Time, limit int) ([]model.ScheduledMessage, error)
	// Claim pending → sending，返回是否由本次调用认领
	Claim(ctx context.Context, id string) (bool, error)
	// MarkSent sending → sent
	MarkSent(ctx context.Context, id string, at time.Time) (bool, error)
	// MarkFailed sending → failed
	MarkFailed(ctx context.Context, id string, payload string) (bool, error)
	ListSentForUser(ctx context.Context, userID string, since time.Time, limit int) ([]model.ScheduledMessage, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.ScheduledMessage, error)
}

type scheduledMessageRepo struct {
	db *gorm.DB
}

func NewScheduledMessageRepo(db *gorm.DB) ScheduledMessageRepository {
	return &scheduledMessageRepo{db: db}
}

// Create 命中唯一索引时返回 pkgerrors.ErrAlreadyExists
func (r *scheduledMessageRepo) Create(ctx context.Context, msg *model.ScheduledMessage) error {
	err := r.db.WithContext(ctx).Create(msg).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.ErrAlreadyExists
	}
	return err
}

func (r *scheduledMessageRepo) BatchCreate(ctx context.Context, msgs []model.ScheduledMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&msgs).Error
}

func (r *scheduledMessageRepo) CreateIfAbsent(ctx context.Context, msg *model.ScheduledMessage) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(msg)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *scheduledMessageRepo) ExistsByType(ctx context.Context, sessionID, msgType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ScheduledMessage{}).
		Where("session_id = ? AND type = ?", sessionID, msgType).
		Count(&count).Error
	return count > 0, err
}

func (r *scheduledMessageRepo) ListReminderTaskIDs(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.ScheduledMessage{}).
		Where("session_id = ? AND type = ? AND related_task_id IS NOT NULL", sessionID, model.MessageTypeDeadlineReminder).
		Pluck("related_task_id", &ids).Error
	return ids, err
}

func (r *scheduledMessageRepo) LatestByType(ctx context.Context, sessionID, msgType string) (*model.ScheduledMessage, error) {
	var msg model.ScheduledMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND type = ?", sessionID, msgType).
		Order("scheduled_for DESC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *scheduledMessageRepo) ListDue(ctx context.Context, scope MessageScope, now time.Time, limit int) ([]model.ScheduledMessage, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", model.MessageStatusPending, now)
	if scope.SessionID != "" {
		query = query.Where("session_id = ?", scope.SessionID)
	}
	if scope.UserID != "" {
		query = query.Where("user_id = ?", scope.UserID)
	}
	if scope.TypePrefix != "" {
		query = query.Where("type LIKE ? ESCAPE '\\'", escapeLike(scope.TypePrefix)+"%")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var msgs []model.ScheduledMessage
	err := query.Order("scheduled_for ASC").Find(&msgs).Error
	return msgs, err
}

func (r *scheduledMessageRepo) Claim(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ScheduledMessage{}).
		Where("message_id = ? AND status = ?", id, model.MessageStatusPending).
		Update("status", model.MessageStatusSending)
	return result.RowsAffected > 0, result.Error
}

func (r *scheduledMessageRepo) MarkSent(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ScheduledMessage{}).
		Where("message_id = ? AND status = ?", id, model.MessageStatusSending).
		Updates(map[string]interface{}{
			"status":  model.MessageStatusSent,
			"sent_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *scheduledMessageRepo) MarkFailed(ctx context.Context, id string, payload string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ScheduledMessage{}).
		Where("message_id = ? AND status = ?", id, model.MessageStatusSending).
		Updates(map[string]interface{}{
			"status":        model.MessageStatusFailed,
			"error_payload": payload,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *scheduledMessageRepo) ListSentForUser(ctx context.Context, userID string, since time.Time, limit int) ([]model.ScheduledMessage, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.MessageStatusSent)
	if !since.IsZero() {
		query = query.Where("sent_at > ?", since)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var msgs []model.ScheduledMessage
	err := query.Order("sent_at DESC").Find(&msgs).Error
	return msgs, err
}

func (r *scheduledMessageRepo) ListBySession(ctx context.Context, sessionID string) ([]model.ScheduledMessage, error) {
	var msgs []model.ScheduledMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("scheduled_for ASC").
		Find(&msgs).Error
	return msgs, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike 转义 LIKE 通配符，使前缀按字面匹配
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
