package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
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
)

// SupervisorService 导师与团队消息业务接口
type SupervisorService interface {
	// Handle 执行导师动作
	Handle(ctx context.Context, ac *auth.AuthContext, req *dto.SupervisorRequest) (*dto.SupervisorResponse, error)
}

type supervisorService struct {
	cfg      *config.SchedulerConfig
	repo     *repository.Repository
	composer *composer
	dispatch *dispatchService
	clock    clock.Clock
	logger   *zap.Logger

	newID func() string
	rndMu sync.Mutex
	rnd   *rand.Rand
}

func newSupervisorService(
	cfg *config.SchedulerConfig,
	repo *repository.Repository,
	composer *composer,
	dispatch *dispatchService,
	clk clock.Clock,
	logger *zap.Logger,
) *supervisorService {
	return &supervisorService{
		cfg:      cfg,
		repo:     repo,
		composer: composer,
		dispatch: dispatch,
		clock:    clk,
		logger:   logger,
		newID:    uuid.NewString,
		rnd:      rand.New(rand.NewSource(clk.Now().UnixNano())),
	}
}

func (s *supervisorService) Handle(ctx context.Context, ac *auth.AuthContext, req *dto.SupervisorRequest) (*dto.SupervisorResponse, error) {
	if req.UserID != "" && req.UserID != ac.UserID {
		return nil, ErrUserMismatch
	}
	session, err := loadOwnedSession(ctx, s.repo, s.logger, ac, req.SessionID)
	if err != nil {
		return nil, err
	}

	resp := &dto.SupervisorResponse{Success: true, Action: req.Action}
	switch req.Action {
	case dto.ActionOnboarding:
		err = s.onboarding(ctx, session, resp)
	case dto.ActionCheckIn:
		err = s.checkIn(ctx, session, resp)
	case dto.ActionFeedbackFollowup:
		err = s.feedbackFollowup(ctx, session, req.Context, resp)
	case dto.ActionScheduleReminder:
		err = s.scheduleReminders(ctx, session, resp)
	case dto.ActionProcessScheduled:
		err = s.process(ctx, repository.MessageScope{SessionID: session.SessionID, UserID: session.UserID}, resp)
	case dto.ActionScheduleTeamIntroductions:
		err = s.scheduleTeamIntroductions(ctx, session, resp)
	case dto.ActionScheduleTeamInteraction:
		err = s.scheduleTeamInteraction(ctx, session, resp)
	case dto.ActionProcessTeamMessages:
		err = s.process(ctx, repository.MessageScope{
			SessionID:  session.SessionID,
			UserID:     session.UserID,
			TypePrefix: model.TeamMessagePrefix,
		}, resp)
	default:
		return nil, ErrUnknownAction
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// onboarding：每个会话一次，同步发送
// ════════════════════════════════════════════════════════════

type onboardingPromptData struct {
	SenderName    string
	SenderRole    string
	JobTitle      string
	Industry      string
	DurationWeeks int
	FirstTask     string
	FirstDue      string
}

func (s *supervisorService) onboarding(ctx context.Context, session *model.InternshipSession, resp *dto.SupervisorResponse) error {
	exists, err := s.repo.ScheduledMessage.ExistsByType(ctx, session.SessionID, model.MessageTypeOnboarding)
	if err != nil {
		s.logger.Error("查询入职消息失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}
	if exists {
		resp.Skipped, resp.Reason = true, "onboarding message already sent"
		return nil
	}

	sender := supervisorOf(session.TeamMembers)
	data := onboardingPromptData{
		SenderName:    sender.Name,
		SenderRole:    sender.Role,
		JobTitle:      session.JobTitle,
		Industry:      session.Industry,
		DurationWeeks: session.DurationWeeks,
	}
	if tasks, err := s.repo.Task.ListBySession(ctx, session.SessionID); err == nil && len(tasks) > 0 {
		data.FirstTask, data.FirstDue = tasks[0].Title, formatDate(tasks[0].DueDate)
	}

	fallback := fmt.Sprintf("Welcome to the team! I'm %s, your %s. Over the next %d weeks you'll work on real %s projects as our new %s. Check your task list to get started, and reach out any time you have questions.",
		sender.Name, sender.Role, session.DurationWeeks, session.Industry, session.JobTitle)
	content, _ := s.composer.compose(ctx, systemSupervisor, "onboarding", data, fallback)

	now := s.clock.Now()
	msg := s.newMessage(session, model.MessageTypeOnboarding, content, now, sender, nil)
	msg.Status = model.MessageStatusSent
	msg.SentAt = &now

	// 唯一索引兜底并发触发
	created, err := s.repo.ScheduledMessage.CreateIfAbsent(ctx, msg)
	if err != nil {
		s.logger.Error("保存入职消息失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}
	if !created {
		resp.Skipped, resp.Reason = true, "onboarding message already sent"
		return nil
	}

	if err := s.dispatch.deliverer.Deliver(ctx, msg); err != nil {
		s.logger.Warn("推送入职消息失败", zap.String("message_id", msg.MessageID), zap.Error(err))
	}
	resp.Scheduled = 1
	resp.Messages = append(resp.Messages, ToMessageResponse(msg))
	return nil
}

// ════════════════════════════════════════════════════════════
// check_in：有未完成任务且距上次问候超过间隔
// ════════════════════════════════════════════════════════════

type taskPromptData struct {
	SenderName      string
	JobTitle        string
	TaskTitle       string
	TaskDescription string
	DueDate         string
	DaysUntil       int
	Feedback        string
}

func (s *supervisorService) checkIn(ctx context.Context, session *model.InternshipSession, resp *dto.SupervisorResponse) error {
	now := s.clock.Now()
	tasks, err := s.repo.Task.ListVisible(ctx, session.SessionID, now)
	if err != nil {
		s.logger.Error("查询任务失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}
	next := nextIncomplete(tasks)

	var lastCheckIn *time.Time
	last, err := s.repo.ScheduledMessage.LatestByType(ctx, session.SessionID, model.MessageTypeCheckIn)
	switch {
	case err == nil:
		lastCheckIn = &last.ScheduledFor
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("查询问候消息失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}

	if !timeline.ShouldCheckIn(lastCheckIn, now, s.cfg.CheckInInterval, next != nil) {
		resp.Skipped, resp.Reason = true, "no check-in needed"
		return nil
	}

	sender := supervisorOf(session.TeamMembers)
	days := timeline.DaysUntil(next.DueDate, now)
	fallback := fmt.Sprintf("Hi! Just checking in on \"%s\", which is due in %d day(s). How is it going? Let me know if anything is blocking you.", next.Title, days)
	content, _ := s.composer.compose(ctx, systemSupervisor, "check_in", taskPromptData{
		SenderName: sender.Name,
		JobTitle:   session.JobTitle,
		TaskTitle:  next.Title,
		DueDate:    formatDate(next.DueDate),
		DaysUntil:  days,
	}, fallback)

	msg := s.newMessage(session, model.MessageTypeCheckIn, content, now, sender, &next.TaskID)
	return s.save(ctx, msg, resp)
}

// ════════════════════════════════════════════════════════════
// feedback_followup：反馈后 2 分钟
// ════════════════════════════════════════════════════════════

func (s *supervisorService) feedbackFollowup(ctx context.Context, session *model.InternshipSession, sc dto.SupervisorContext, resp *dto.SupervisorResponse) error {
	if sc.TaskID == "" {
		return ErrMissingTaskContext
	}
	task, err := s.repo.Task.GetByID(ctx, session.SessionID, sc.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		s.logger.Error("查询任务失败", zap.String("task_id", sc.TaskID), zap.Error(err))
		return err
	}

	msg, err := s.scheduleFeedbackFollowup(ctx, session, task, s.latestFeedback(ctx, task.TaskID))
	if err != nil {
		return err
	}
	resp.Scheduled = 1
	resp.Messages = append(resp.Messages, ToMessageResponse(msg))
	return nil
}

// latestFeedback 任务当前提交物的最新反馈，没有时返回 nil
func (s *supervisorService) latestFeedback(ctx context.Context, taskID string) *model.Feedback {
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
		return nil
	}
	return f
}

// scheduleFeedbackFollowup 异步反馈完成后也会调用
func (s *supervisorService) scheduleFeedbackFollowup(ctx context.Context, session *model.InternshipSession, task *model.Task, feedback *model.Feedback) (*model.ScheduledMessage, error) {
	sender := supervisorOf(session.TeamMembers)
	data := taskPromptData{SenderName: sender.Name, JobTitle: session.JobTitle, TaskTitle: task.Title}
	if feedback != nil {
		data.Feedback = feedback.Text
	}
	fallback := fmt.Sprintf("I've left feedback on \"%s\". Take a few minutes to read it and try to apply it to your next task. Happy to talk it through if anything is unclear.", task.Title)
	content, _ := s.composer.compose(ctx, systemSupervisor, "feedback_followup", data, fallback)

	at := s.clock.Now().Add(s.cfg.FeedbackFollowupDelay)
	msg := s.newMessage(session, model.MessageTypeFeedbackFollowup, content, at, sender, &task.TaskID)
	if err := s.repo.ScheduledMessage.Create(ctx, msg); err != nil {
		s.logger.Error("保存反馈跟进消息失败", zap.String("task_id", task.TaskID), zap.Error(err))
		return nil, err
	}
	return msg, nil
}

// ════════════════════════════════════════════════════════════
// schedule_reminder：48 小时内截止的任务，每个任务至多一条
// ════════════════════════════════════════════════════════════

func (s *supervisorService) scheduleReminders(ctx context.Context, session *model.InternshipSession, resp *dto.SupervisorResponse) error {
	now := s.clock.Now()
	tasks, err := s.repo.Task.ListBySession(ctx, session.SessionID)
	if err != nil {
		s.logger.Error("查询任务失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}
	existing, err := s.repo.ScheduledMessage.ListReminderTaskIDs(ctx, session.SessionID)
	if err != nil {
		s.logger.Error("查询提醒失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}
	reminded := make(map[string]bool, len(existing))
	for _, id := range existing {
		reminded[id] = true
	}

	sender := supervisorOf(session.TeamMembers)
	for i := range tasks {
		task := &tasks[i]
		if task.IsCompleted() || reminded[task.TaskID] || !timeline.ReminderDue(task.DueDate, now, s.cfg.ReminderWindow) {
			continue
		}

		days := timeline.DaysUntil(task.DueDate, now)
		fallback := fmt.Sprintf("Friendly reminder: \"%s\" is due on %s. Let me know if you need anything before then.", task.Title, formatDate(task.DueDate))
		content, _ := s.composer.compose(ctx, systemSupervisor, "deadline_reminder", taskPromptData{
			SenderName: sender.Name,
			TaskTitle:  task.Title,
			DueDate:    formatDate(task.DueDate),
			DaysUntil:  days,
		}, fallback)

		at := timeline.ReminderTime(task.DueDate, now, s.cfg.ReminderLead)
		msg := s.newMessage(session, model.MessageTypeDeadlineReminder, content, at, sender, &task.TaskID)
		created, err := s.repo.ScheduledMessage.CreateIfAbsent(ctx, msg)
		if err != nil {
			s.logger.Error("保存截止提醒失败", zap.String("task_id", task.TaskID), zap.Error(err))
			return err
		}
		if created {
			resp.Scheduled++
			resp.Messages = append(resp.Messages, ToMessageResponse(msg))
		}
	}
	if resp.Scheduled == 0 {
		resp.Reason = "no reminders due"
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// 团队消息
// ════════════════════════════════════════════════════════════

type teamPromptData struct {
	MemberName  string
	MemberRole  string
	Personality string
	IsManager   bool
	JobTitle    string
	TaskTitle   string
}

func (s *supervisorService) scheduleTeamIntroductions(ctx context.Context, session *model.InternshipSession, resp *dto.SupervisorResponse) error {
	exists, err := s.repo.ScheduledMessage.ExistsByType(ctx, session.SessionID, model.MessageTypeTeamIntroduction)
	if err != nil {
		s.logger.Error("查询团队介绍失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}
	if exists {
		resp.Skipped, resp.Reason = true, "team introductions already scheduled"
		return nil
	}

	members := session.TeamMembers
	if len(members) > s.cfg.TeamIntroMax {
		members = members[:s.cfg.TeamIntroMax]
	}
	if len(members) == 0 {
		resp.Skipped, resp.Reason = true, "session has no team members"
		return nil
	}

	now := s.clock.Now()
	s.rndMu.Lock()
	offsets := timeline.TeamIntroOffsets(len(members), s.cfg.TeamIntroWindow, s.cfg.TeamIntroJitter, s.rnd)
	s.rndMu.Unlock()

	msgs := make([]model.ScheduledMessage, 0, len(members))
	for i, m := range members {
		manager := timeline.IsManagerRole(m.Role)
		fallback := fmt.Sprintf("Hi, I'm %s, %s on the team. Great to have you with us, feel free to reach out if you need anything.", m.Name, m.Role)
		if manager {
			fallback = fmt.Sprintf("Hello and welcome. I'm %s, %s. I'm looking forward to seeing your work this week. Let's make sure your first tasks are clear, so send me any questions.", m.Name, m.Role)
		}
		content, _ := s.composer.compose(ctx, systemTeammate, "team_intro", teamPromptData{
			MemberName:  m.Name,
			MemberRole:  m.Role,
			Personality: m.Personality,
			IsManager:   manager,
			JobTitle:    session.JobTitle,
		}, fallback)

		sender := persona{Name: m.Name, Role: m.Role}
		msgs = append(msgs, *s.newMessage(session, model.MessageTypeTeamIntroduction, content, now.Add(offsets[i]), sender, nil))
	}

	if err := s.repo.ScheduledMessage.BatchCreate(ctx, msgs); err != nil {
		s.logger.Error("保存团队介绍失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}
	resp.Scheduled = len(msgs)
	resp.Messages = toMessageResponses(msgs)
	return nil
}

func (s *supervisorService) scheduleTeamInteraction(ctx context.Context, session *model.InternshipSession, resp *dto.SupervisorResponse) error {
	if len(session.TeamMembers) == 0 {
		resp.Skipped, resp.Reason = true, "session has no team members"
		return nil
	}

	now := s.clock.Now()
	tasks, err := s.repo.Task.ListVisible(ctx, session.SessionID, now)
	if err != nil {
		s.logger.Error("查询任务失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return err
	}
	next := nextIncomplete(tasks)
	if next == nil {
		resp.Skipped, resp.Reason = true, "no open tasks"
		return nil
	}

	s.rndMu.Lock()
	member := session.TeamMembers[s.rnd.Intn(len(session.TeamMembers))]
	delay := timeline.InteractionDelay(s.cfg.TeamInteractionMin, s.cfg.TeamInteractionMax, s.rnd)
	s.rndMu.Unlock()

	fallback := fmt.Sprintf("Hey! How's \"%s\" coming along? If you get stuck, happy to take a look or share what worked for me.", next.Title)
	content, _ := s.composer.compose(ctx, systemTeammate, "team_interaction", teamPromptData{
		MemberName:  member.Name,
		MemberRole:  member.Role,
		Personality: member.Personality,
		JobTitle:    session.JobTitle,
		TaskTitle:   next.Title,
	}, fallback)

	sender := persona{Name: member.Name, Role: member.Role}
	msg := s.newMessage(session, model.MessageTypeTeamInteraction, content, now.Add(delay), sender, &next.TaskID)
	return s.save(ctx, msg, resp)
}

// ════════════════════════════════════════════════════════════
// 派发
// ════════════════════════════════════════════════════════════

func (s *supervisorService) process(ctx context.Context, scope repository.MessageScope, resp *dto.SupervisorResponse) error {
	result, err := s.dispatch.ProcessDue(ctx, scope)
	if err != nil {
		return err
	}
	resp.Processed = result.Processed
	resp.Failed = result.Failed
	if result.Throttled {
		resp.Skipped, resp.Reason = true, "processed recently"
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// 任务下发消息（创建会话时调用，不走生成服务）
// ════════════════════════════════════════════════════════════

func (s *supervisorService) taskAssignedMessages(session *model.InternshipSession, tasks []model.Task, sender persona, now time.Time) []model.ScheduledMessage {
	msgs := make([]model.ScheduledMessage, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		at := task.VisibleAfter
		if at.Before(now) {
			at = now
		}
		content := fmt.Sprintf("New task for week %d: \"%s\". %s Please submit it by %s.",
			task.WeekNumber, task.Title, task.Description, formatDate(task.DueDate))
		msgs = append(msgs, *s.newMessage(session, model.MessageTypeTaskAssigned, content, at, sender, &task.TaskID))
	}
	return msgs
}

// ════════════════════════════════════════════════════════════
// 辅助
// ════════════════════════════════════════════════════════════

// newMessage 构造待发送消息；scheduled_for 不早于创建时间
func (s *supervisorService) newMessage(session *model.InternshipSession, msgType, content string, at time.Time, sender persona, taskID *string) *model.ScheduledMessage {
	created := s.clock.Now()
	if at.Before(created) {
		at = created
	}
	return &model.ScheduledMessage{
		MessageID:     s.newID(),
		SessionID:     session.SessionID,
		UserID:        session.UserID,
		Type:          msgType,
		Content:       content,
		ScheduledFor:  at,
		Status:        model.MessageStatusPending,
		SenderName:    sender.Name,
		SenderRole:    sender.Role,
		RelatedTaskID: taskID,
		CreatedAt:     created,
	}
}

func (s *supervisorService) save(ctx context.Context, msg *model.ScheduledMessage, resp *dto.SupervisorResponse) error {
	if err := s.repo.ScheduledMessage.Create(ctx, msg); err != nil {
		s.logger.Error("保存计划消息失败", zap.String("type", msg.Type), zap.Error(err))
		return err
	}
	resp.Scheduled = 1
	resp.Messages = append(resp.Messages, ToMessageResponse(msg))
	return nil
}

// nextIncomplete 按序号第一个未完成任务
func nextIncomplete(tasks []model.Task) *model.Task {
	for i := range tasks {
		if !tasks[i].IsCompleted() {
			return &tasks[i]
		}
	}
	return nil
}
