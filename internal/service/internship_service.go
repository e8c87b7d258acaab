package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JoshH2S/tuterra-sub001/config"
	"github.com/JoshH2S/tuterra-sub001/internal/auth"
	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/internal/model"
	"github.com/JoshH2S/tuterra-sub001/internal/repository"
	"github.com/JoshH2S/tuterra-sub001/internal/timeline"
	"github.com/JoshH2S/tuterra-sub001/pkg/clock"
	pkgerrors "github.com/JoshH2S/tuterra-sub001/pkg/errors"
	"github.com/JoshH2S/tuterra-sub001/pkg/ratelimit"
)

const (
	msgCreated            = "Internship created successfully"
	msgCreatedWithWarning = "Internship created, but some content could not be generated: "
	reviewTimeout         = 2 * time.Minute
	phaseAdvanceAttempts  = 2
)

// InternshipService 实习会话业务接口
type InternshipService interface {
	// CreateSession 创建实习会话：生成计划、分配任务、排期任务消息
	CreateSession(ctx context.Context, ac *auth.AuthContext, req *dto.CreateInternshipRequest) (*dto.CreateInternshipResponse, error)
	// ListSessions 当前用户的全部会话，按创建时间倒序
	ListSessions(ctx context.Context, ac *auth.AuthContext) ([]dto.SessionResponse, error)
	// GetSession 会话详情（含团队）
	GetSession(ctx context.Context, ac *auth.AuthContext, sessionID string) (*dto.SessionResponse, error)
	// ListTasks 任务列表；includeHidden=false 时只返回已开放任务
	ListTasks(ctx context.Context, ac *auth.AuthContext, sessionID string, includeHidden bool) ([]dto.TaskResponse, error)
	// StartTask not_started → in_progress
	StartTask(ctx context.Context, ac *auth.AuthContext, sessionID, taskID string) (*dto.TaskResponse, error)
	// SubmitDeliverable 提交任务成果，反馈异步生成
	SubmitDeliverable(ctx context.Context, ac *auth.AuthContext, sessionID, taskID string, req *dto.SubmitDeliverableRequest) (*dto.SubmitDeliverableResponse, error)
	// ReopenTask 显式重新打开：completed | feedback_pending → in_progress
	ReopenTask(ctx context.Context, ac *auth.AuthContext, sessionID, taskID string) (*dto.TaskResponse, error)
}

type internshipService struct {
	cfg        *config.Config
	repo       *repository.Repository
	composer   *composer
	supervisor *supervisorService
	cooldown   *ratelimit.Limiter
	clock      clock.Clock
	logger     *zap.Logger

	newID func() string
	spawn func(func())
}

// newInternshipService 创建 InternshipService 实例
func newInternshipService(
	cfg *config.Config,
	repo *repository.Repository,
	composer *composer,
	supervisor *supervisorService,
	cooldown *ratelimit.Limiter,
	clk clock.Clock,
	logger *zap.Logger,
) *internshipService {
	return &internshipService{
		cfg:        cfg,
		repo:       repo,
		composer:   composer,
		supervisor: supervisor,
		cooldown:   cooldown,
		clock:      clk,
		logger:     logger,
		newID:      uuid.NewString,
		spawn:      func(f func()) { go f() },
	}
}

// ════════════════════════════════════════════════════════════
// CreateSession
// ════════════════════════════════════════════════════════════
//
// 会话行写入前的失败（授权、参数、冷却、生成服务未配置）直接返回错误；
// 写入后任何一步失败都降级处理，并在 message 中给出提示。

func (s *internshipService) CreateSession(ctx context.Context, ac *auth.AuthContext, req *dto.CreateInternshipRequest) (*dto.CreateInternshipResponse, error) {
	now := s.clock.Now()

	// 1. 授权：订阅用户，或携带有效推广码的推广会话
	if !ac.IsSubscriber() && !(req.IsPromotional && s.cfg.Auth.HasPromoCode(req.PromoCode)) {
		return nil, ErrNotEntitled
	}

	// 2. 参数
	start, ok := timeline.ParseStartDate(req.StartDate, now)
	if !ok {
		return nil, ErrInvalidStartDate
	}
	if s.composer.gen == nil || !s.composer.gen.Configured() {
		return nil, ErrGenerationUnavailable
	}

	// 3. 冷却
	if s.cooldown != nil && !s.cooldown.Allow("create_session:"+ac.UserID) {
		return nil, ErrCooldown
	}

	// 4. 写入会话
	session := &model.InternshipSession{
		SessionID:      s.newID(),
		UserID:         ac.UserID,
		JobTitle:       strings.TrimSpace(req.JobTitle),
		Industry:       strings.TrimSpace(req.Industry),
		JobDescription: strings.TrimSpace(req.JobDescription),
		DurationWeeks:  req.DurationWeeks,
		StartDate:      start,
		CurrentPhase:   1,
		IsPromotional:  req.IsPromotional,
	}
	if err := s.repo.Session.Create(ctx, session); err != nil {
		s.logger.Error("创建实习会话失败", zap.Error(err))
		return nil, err
	}

	log := s.logger.With(zap.String("session_id", session.SessionID), zap.String("user_id", ac.UserID))
	var warnings []string

	// 5. 生成计划
	window := timeline.NewWindow(start, session.DurationWeeks)
	plan, err := generateJSON(ctx, s.composer, systemPlanner, "plan", planPromptData{
		JobTitle:       session.JobTitle,
		Industry:       session.Industry,
		JobDescription: session.JobDescription,
		DurationWeeks:  session.DurationWeeks,
		MaxTasks:       timeline.MaxTasksPerWeek * session.DurationWeeks,
		StartDate:      formatDate(window.Start),
		EndDate:        formatDate(window.End()),
	}, func() planContent { return planContent{} })
	if err != nil {
		log.Warn("生成实习计划失败，使用默认计划", zap.Error(err))
	}

	planned := toPlannedTasks(plan.Tasks)
	if len(planned) == 0 {
		planned = fallbackTasks(session.JobTitle, session.Industry, session.DurationWeeks)
		warnings = append(warnings, "default tasks were used")
	}

	// 6. 分桶、计算可见时间
	distributed := timeline.Redistribute(planned, window, nil)
	tasks := make([]model.Task, 0, len(distributed))
	for _, pt := range distributed {
		tasks = append(tasks, model.Task{
			TaskID:       s.newID(),
			SessionID:    session.SessionID,
			Title:        pt.Title,
			Description:  pt.Description,
			DueDate:      *pt.DueDate,
			TaskOrder:    pt.Order,
			WeekNumber:   pt.Week,
			Status:       model.TaskStatusNotStarted,
			VisibleAfter: timeline.VisibleAfter(pt.Order, window.Start),
		})
	}

	tasksSaved := true
	if err := s.repo.Task.BatchCreate(ctx, tasks); err != nil {
		log.Error("保存任务失败", zap.Error(err))
		warnings = append(warnings, "tasks could not be saved")
		tasksSaved = false
	}

	// 7. 团队
	if len(plan.Team) == 0 {
		plan.Team = defaultTeam()
	}
	members := toTeamMembers(session.SessionID, plan.Team, s.newID)
	if err := s.repo.TeamMember.BatchCreate(ctx, members); err != nil {
		log.Error("保存团队成员失败", zap.Error(err))
		warnings = append(warnings, "team could not be saved")
	}

	// 8. 任务下发消息按可见时间排期
	if tasksSaved {
		msgs := s.supervisor.taskAssignedMessages(session, tasks, supervisorOf(members), now)
		if err := s.repo.ScheduledMessage.BatchCreate(ctx, msgs); err != nil {
			log.Error("保存任务下发消息失败", zap.Error(err))
			warnings = append(warnings, "task notifications could not be scheduled")
		}
	}

	log.Info("实习会话已创建",
		zap.Int("tasks", len(tasks)),
		zap.Int("team", len(members)),
		zap.Int("weeks", session.DurationWeeks),
	)

	message := msgCreated
	if len(warnings) > 0 {
		message = msgCreatedWithWarning + strings.Join(warnings, "; ")
	}
	return &dto.CreateInternshipResponse{
		Success:   true,
		SessionID: session.SessionID,
		Message:   message,
	}, nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *internshipService) ListSessions(ctx context.Context, ac *auth.AuthContext) ([]dto.SessionResponse, error) {
	if !ac.Authenticated() {
		return nil, ErrUserMismatch
	}
	sessions, err := s.repo.Session.ListByUser(ctx, ac.UserID)
	if err != nil {
		s.logger.Error("查询实习会话列表失败", zap.String("user_id", ac.UserID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, *toSessionResponse(&sessions[i]))
	}
	return result, nil
}

func (s *internshipService) GetSession(ctx context.Context, ac *auth.AuthContext, sessionID string) (*dto.SessionResponse, error) {
	session, err := s.loadSession(ctx, ac, sessionID)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(session), nil
}

func (s *internshipService) ListTasks(ctx context.Context, ac *auth.AuthContext, sessionID string, includeHidden bool) ([]dto.TaskResponse, error) {
	if _, err := s.loadSession(ctx, ac, sessionID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var (
		tasks []model.Task
		err   error
	)
	if includeHidden {
		tasks, err = s.repo.Task.ListBySession(ctx, sessionID)
	} else {
		tasks, err = s.repo.Task.ListVisible(ctx, sessionID, now)
	}
	if err != nil {
		s.logger.Error("查询任务失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp := toTaskResponse(&tasks[i], now)
		if tasks[i].Status == model.TaskStatusFeedbackPending || tasks[i].Status == model.TaskStatusCompleted {
			resp.Deliverable = s.deliverableBrief(ctx, tasks[i].TaskID)
		}
		result = append(result, resp)
	}
	return result, nil
}

func (s *internshipService) deliverableBrief(ctx context.Context, taskID string) *dto.DeliverableBrief {
	d, err := s.repo.Deliverable.GetByTask(ctx, taskID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("查询提交物失败", zap.String("task_id", taskID), zap.Error(err))
		}
		return nil
	}
	f, err := s.repo.Feedback.GetLatestByDeliverable(ctx, d.DeliverableID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("查询反馈失败", zap.String("deliverable_id", d.DeliverableID), zap.Error(err))
		}
		f = nil
	}
	return toDeliverableBrief(d, f)
}

// ════════════════════════════════════════════════════════════
// 任务状态流转
// ════════════════════════════════════════════════════════════

func (s *internshipService) StartTask(ctx context.Context, ac *auth.AuthContext, sessionID, taskID string) (*dto.TaskResponse, error) {
	task, err := s.loadVisibleTask(ctx, ac, sessionID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.TaskStatusNotStarted {
		resp := toTaskResponse(task, s.clock.Now())
		return &resp, nil
	}

	err = s.repo.Task.UpdateStatus(ctx, taskID, []string{model.TaskStatusNotStarted}, model.TaskStatusInProgress)
	if err != nil && !errors.Is(err, pkgerrors.ErrStateConflict) {
		s.logger.Error("更新任务状态失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}
	if err == nil {
		task.Status = model.TaskStatusInProgress
	}
	resp := toTaskResponse(task, s.clock.Now())
	return &resp, nil
}

func (s *internshipService) SubmitDeliverable(ctx context.Context, ac *auth.AuthContext, sessionID, taskID string, req *dto.SubmitDeliverableRequest) (*dto.SubmitDeliverableResponse, error) {
	session, err := s.loadSession(ctx, ac, sessionID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, sessionID, taskID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !timeline.IsVisible(task.VisibleAfter, now) {
		return nil, ErrTaskNotVisible
	}
	if task.IsCompleted() {
		return nil, ErrTaskAlreadyCompleted
	}

	deliverable := &model.Deliverable{
		TaskID:      taskID,
		SessionID:   sessionID,
		UserID:      ac.UserID,
		Content:     strings.TrimSpace(req.Content),
		SubmittedAt: now,
	}
	if req.AttachmentName != "" {
		deliverable.AttachmentName = &req.AttachmentName
	}
	if req.AttachmentURL != "" {
		deliverable.AttachmentURL = &req.AttachmentURL
	}
	if err := s.repo.Deliverable.Upsert(ctx, deliverable); err != nil {
		s.logger.Error("保存提交物失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	err = s.repo.Task.UpdateStatus(ctx, taskID,
		[]string{model.TaskStatusNotStarted, model.TaskStatusInProgress, model.TaskStatusFeedbackPending},
		model.TaskStatusFeedbackPending)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrStateConflict) {
			return nil, ErrTaskAlreadyCompleted
		}
		s.logger.Error("更新任务状态失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}
	task.Status = model.TaskStatusFeedbackPending
	resp := &dto.SubmitDeliverableResponse{
		Success:       true,
		DeliverableID: deliverable.DeliverableID,
		TaskStatus:    task.Status,
		Message:       "Deliverable submitted. Feedback will be available shortly.",
	}

	// 反馈异步生成，不占用请求上下文；后台协程只持有副本
	sess, t, d := *session, *task, *deliverable
	s.spawn(func() {
		bg, cancel := context.WithTimeout(context.Background(), reviewTimeout)
		defer cancel()
		s.reviewDeliverable(bg, &sess, &t, &d)
	})

	return resp, nil
}

func (s *internshipService) ReopenTask(ctx context.Context, ac *auth.AuthContext, sessionID, taskID string) (*dto.TaskResponse, error) {
	if _, err := s.loadSession(ctx, ac, sessionID); err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, sessionID, taskID)
	if err != nil {
		return nil, err
	}

	err = s.repo.Task.UpdateStatus(ctx, taskID,
		[]string{model.TaskStatusCompleted, model.TaskStatusFeedbackPending},
		model.TaskStatusInProgress)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrStateConflict) {
			return nil, ErrTaskNotReopenable
		}
		s.logger.Error("重新打开任务失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	task.Status = model.TaskStatusInProgress
	resp := toTaskResponse(task, s.clock.Now())
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// 异步反馈
// ════════════════════════════════════════════════════════════

type feedbackContent struct {
	Ratings map[string]int `json:"ratings"`
	Text    string         `json:"text"`
}

type feedbackPromptData struct {
	JobTitle        string
	TaskTitle       string
	TaskDescription string
	Content         string
}

var ratingKeys = []string{"quality", "timeliness", "communication"}

func defaultFeedback() feedbackContent {
	return feedbackContent{
		Ratings: map[string]int{"quality": 3, "timeliness": 3, "communication": 3},
		Text:    "Thanks for your submission. Your work covers the main points of the task. Review the task description once more and look for one or two areas where you can add more depth or supporting detail.",
	}
}

// reviewDeliverable 生成反馈、完成任务、排期跟进消息并推进阶段
func (s *internshipService) reviewDeliverable(ctx context.Context, session *model.InternshipSession, task *model.Task, d *model.Deliverable) {
	log := s.logger.With(zap.String("session_id", session.SessionID), zap.String("task_id", task.TaskID))

	content, err := generateJSON(ctx, s.composer, systemReviewer, "feedback", feedbackPromptData{
		JobTitle:        session.JobTitle,
		TaskTitle:       task.Title,
		TaskDescription: task.Description,
		Content:         d.Content,
	}, defaultFeedback)
	if err != nil {
		log.Warn("生成反馈失败，使用默认反馈", zap.Error(err))
		content = defaultFeedback()
	}
	if strings.TrimSpace(content.Text) == "" {
		content.Text = defaultFeedback().Text
	}

	ratings := make(model.Ratings, len(ratingKeys))
	for _, k := range ratingKeys {
		ratings[k] = clampRating(content.Ratings[k])
	}

	feedback := &model.Feedback{
		DeliverableID: d.DeliverableID,
		Ratings:       ratings,
		Text:          strings.TrimSpace(content.Text),
		ProvidedAt:    s.clock.Now(),
	}
	if err := s.repo.Feedback.Create(ctx, feedback); err != nil {
		log.Error("保存反馈失败", zap.Error(err))
		return
	}

	err = s.repo.Task.UpdateStatus(ctx, task.TaskID, []string{model.TaskStatusFeedbackPending}, model.TaskStatusCompleted)
	if err != nil {
		// 反馈生成期间任务被重新打开或重复提交
		log.Warn("任务状态已变化，跳过完成", zap.Error(err))
		return
	}
	task.Status = model.TaskStatusCompleted

	if _, err := s.supervisor.scheduleFeedbackFollowup(ctx, session, task, feedback); err != nil {
		log.Error("排期反馈跟进消息失败", zap.Error(err))
	}
	s.advancePhase(ctx, session.SessionID, session.DurationWeeks)
}

func clampRating(v int) int {
	if v < 1 {
		return 3
	}
	if v > 5 {
		return 5
	}
	return v
}

// advancePhase 当前阶段之前的任务全部完成时推进到第一个未完成的周
// 并发评审可能让会话版本过期，冲突时重新加载后再试一次
func (s *internshipService) advancePhase(ctx context.Context, sessionID string, weeks int) {
	log := s.logger.With(zap.String("session_id", sessionID))

	tasks, err := s.repo.Task.ListBySession(ctx, sessionID)
	if err != nil {
		log.Error("查询任务失败", zap.Error(err))
		return
	}
	phase := nextPhase(tasks, weeks)

	for attempt := 0; attempt < phaseAdvanceAttempts; attempt++ {
		session, err := s.repo.Session.GetByID(ctx, sessionID)
		if err != nil {
			log.Error("加载会话失败", zap.Error(err))
			return
		}
		if phase <= session.CurrentPhase {
			return
		}
		err = s.repo.Session.AdvancePhase(ctx, session, phase)
		if err == nil {
			log.Info("实习阶段推进", zap.Int("phase", phase))
			return
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			log.Error("推进实习阶段失败", zap.Int("phase", phase), zap.Error(err))
			return
		}
	}
	log.Warn("推进实习阶段冲突，放弃本次推进", zap.Int("phase", phase))
}

// nextPhase 第一个存在未完成任务的周次；全部完成时为最后一周
func nextPhase(tasks []model.Task, weeks int) int {
	phase := weeks
	for _, t := range tasks {
		if !t.IsCompleted() && t.WeekNumber < phase {
			phase = t.WeekNumber
		}
	}
	if phase < 1 {
		phase = 1
	}
	return phase
}

// ════════════════════════════════════════════════════════════
// 辅助
// ════════════════════════════════════════════════════════════

func (s *internshipService) loadSession(ctx context.Context, ac *auth.AuthContext, sessionID string) (*model.InternshipSession, error) {
	return loadOwnedSession(ctx, s.repo, s.logger, ac, sessionID)
}

func (s *internshipService) loadTask(ctx context.Context, sessionID, taskID string) (*model.Task, error) {
	task, err := s.repo.Task.GetByID(ctx, sessionID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("查询任务失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}
	return task, nil
}

func (s *internshipService) loadVisibleTask(ctx context.Context, ac *auth.AuthContext, sessionID, taskID string) (*model.Task, error) {
	if _, err := s.loadSession(ctx, ac, sessionID); err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, sessionID, taskID)
	if err != nil {
		return nil, err
	}
	if !timeline.IsVisible(task.VisibleAfter, s.clock.Now()) {
		return nil, ErrTaskNotVisible
	}
	return task, nil
}

// loadOwnedSession 查询属于当前用户的会话
func loadOwnedSession(ctx context.Context, repo *repository.Repository, logger *zap.Logger, ac *auth.AuthContext, sessionID string) (*model.InternshipSession, error) {
	if !ac.Authenticated() {
		return nil, fmt.Errorf("%w: %v", ErrUserMismatch, auth.ErrNotInitialized)
	}
	session, err := repo.Session.GetByIDForUser(ctx, sessionID, ac.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		logger.Error("查询实习会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return session, nil
}
