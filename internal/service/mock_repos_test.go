package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/JoshH2S/tuterra-sub001/internal/model"
	"github.com/JoshH2S/tuterra-sub001/internal/repository"
	pkgerrors "github.com/JoshH2S/tuterra-sub001/pkg/errors"
)

var errMockStore = errors.New("mock store failure")

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.InternshipSession
	team     *mockTeamMemberRepo
}

func newMockSessionRepo(team *mockTeamMemberRepo) *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.InternshipSession), team: team}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.InternshipSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.SessionID == "" {
		session.SessionID = fmt.Sprintf("session-%d", len(m.sessions)+1)
	}
	if session.Version == 0 {
		session.Version = 1
	}
	cp := *session
	m.sessions[session.SessionID] = &cp
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.InternshipSession, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	if m.team != nil {
		cp.TeamMembers, _ = m.team.ListBySession(context.Background(), id)
	}
	return &cp, nil
}

func (m *mockSessionRepo) GetByIDForUser(ctx context.Context, id, userID string) (*model.InternshipSession, error) {
	s, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (m *mockSessionRepo) ListByUser(_ context.Context, userID string) ([]model.InternshipSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.InternshipSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSessionRepo) AdvancePhase(_ context.Context, session *model.InternshipSession, phase int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if phase <= session.CurrentPhase {
		return nil
	}
	stored, ok := m.sessions[session.SessionID]
	if !ok || stored.Version != session.Version || stored.CurrentPhase >= phase {
		return pkgerrors.ErrOptimisticLock
	}
	stored.CurrentPhase = phase
	stored.Version++
	session.CurrentPhase = phase
	session.Version = stored.Version
	return nil
}

func (m *mockSessionRepo) phase(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].CurrentPhase
}

// ── Mock TaskRepository ──

type mockTaskRepo struct {
	mu       sync.Mutex
	tasks    map[string]*model.Task
	batchErr error
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string]*model.Task)}
}

func (m *mockTaskRepo) BatchCreate(_ context.Context, tasks []model.Task) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range tasks {
		cp := tasks[i]
		m.tasks[cp.TaskID] = &cp
	}
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, sessionID, taskID string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.SessionID != sessionID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTaskRepo) ListBySession(_ context.Context, sessionID string) ([]model.Task, error) {
	return m.list(sessionID, func(*model.Task) bool { return true }), nil
}

func (m *mockTaskRepo) ListVisible(_ context.Context, sessionID string, now time.Time) ([]model.Task, error) {
	return m.list(sessionID, func(t *model.Task) bool { return !t.VisibleAfter.After(now) }), nil
}

func (m *mockTaskRepo) list(sessionID string, keep func(*model.Task) bool) []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Task
	for _, t := range m.tasks {
		if t.SessionID == sessionID && keep(t) {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TaskOrder < result[j].TaskOrder })
	return result
}

func (m *mockTaskRepo) UpdateStatus(_ context.Context, taskID string, from []string, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return pkgerrors.ErrStateConflict
	}
	for _, f := range from {
		if t.Status == f {
			t.Status = to
			return nil
		}
	}
	return pkgerrors.ErrStateConflict
}

func (m *mockTaskRepo) status(taskID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[taskID].Status
}

// ── Mock DeliverableRepository / FeedbackRepository ──

type mockDeliverableRepo struct {
	mu     sync.Mutex
	byTask map[string]*model.Deliverable
}

func newMockDeliverableRepo() *mockDeliverableRepo {
	return &mockDeliverableRepo{byTask: make(map[string]*model.Deliverable)}
}

func (m *mockDeliverableRepo) Upsert(_ context.Context, d *model.Deliverable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byTask[d.TaskID]; ok {
		d.DeliverableID = existing.DeliverableID
	} else {
		d.DeliverableID = "deliverable-" + d.TaskID
	}
	cp := *d
	m.byTask[d.TaskID] = &cp
	return nil
}

func (m *mockDeliverableRepo) GetByTask(_ context.Context, taskID string) (*model.Deliverable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byTask[taskID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

type mockFeedbackRepo struct {
	mu        sync.Mutex
	feedbacks []model.Feedback
	getErr    error
}

func newMockFeedbackRepo() *mockFeedbackRepo {
	return &mockFeedbackRepo{}
}

func (m *mockFeedbackRepo) Create(_ context.Context, f *model.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.FeedbackID == "" {
		f.FeedbackID = fmt.Sprintf("feedback-%d", len(m.feedbacks)+1)
	}
	m.feedbacks = append(m.feedbacks, *f)
	return nil
}

func (m *mockFeedbackRepo) GetLatestByDeliverable(_ context.Context, deliverableID string) (*model.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := len(m.feedbacks) - 1; i >= 0; i-- {
		if m.feedbacks[i].DeliverableID == deliverableID {
			cp := m.feedbacks[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock TeamMemberRepository ──

type mockTeamMemberRepo struct {
	mu      sync.Mutex
	members []model.TeamMember
}

func newMockTeamMemberRepo() *mockTeamMemberRepo {
	return &mockTeamMemberRepo{}
}

func (m *mockTeamMemberRepo) BatchCreate(_ context.Context, members []model.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append(m.members, members...)
	return nil
}

func (m *mockTeamMemberRepo) ListBySession(_ context.Context, sessionID string) ([]model.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.TeamMember
	for _, tm := range m.members {
		if tm.SessionID == sessionID {
			result = append(result, tm)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

// ── Mock ScheduledMessageRepository ──
// 与数据库一致：onboarding 每会话唯一，deadline_reminder 每任务唯一

type mockMessageRepo struct {
	mu   sync.Mutex
	msgs []*model.ScheduledMessage
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{}
}

func (m *mockMessageRepo) conflicts(msg *model.ScheduledMessage) bool {
	for _, existing := range m.msgs {
		if existing.MessageID == msg.MessageID {
			return true
		}
		if existing.Type != msg.Type {
			continue
		}
		switch msg.Type {
		case model.MessageTypeOnboarding:
			if existing.SessionID == msg.SessionID {
				return true
			}
		case model.MessageTypeDeadlineReminder:
			if existing.RelatedTaskID != nil && msg.RelatedTaskID != nil && *existing.RelatedTaskID == *msg.RelatedTaskID {
				return true
			}
		}
	}
	return false
}

func (m *mockMessageRepo) Create(_ context.Context, msg *model.ScheduledMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(msg) {
		return pkgerrors.ErrAlreadyExists
	}
	cp := *msg
	m.msgs = append(m.msgs, &cp)
	return nil
}

func (m *mockMessageRepo) BatchCreate(_ context.Context, msgs []model.ScheduledMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range msgs {
		if m.conflicts(&msgs[i]) {
			continue
		}
		cp := msgs[i]
		m.msgs = append(m.msgs, &cp)
	}
	return nil
}

func (m *mockMessageRepo) CreateIfAbsent(_ context.Context, msg *model.ScheduledMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(msg) {
		return false, nil
	}
	cp := *msg
	m.msgs = append(m.msgs, &cp)
	return true, nil
}

func (m *mockMessageRepo) ExistsByType(_ context.Context, sessionID, msgType string) (bool, error) {
	return len(m.byType(sessionID, msgType)) > 0, nil
}

func (m *mockMessageRepo) ListReminderTaskIDs(_ context.Context, sessionID string) ([]string, error) {
	var ids []string
	for _, msg := range m.byType(sessionID, model.MessageTypeDeadlineReminder) {
		if msg.RelatedTaskID != nil {
			ids = append(ids, *msg.RelatedTaskID)
		}
	}
	return ids, nil
}

func (m *mockMessageRepo) LatestByType(_ context.Context, sessionID, msgType string) (*model.ScheduledMessage, error) {
	msgs := m.byType(sessionID, msgType)
	if len(msgs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	latest := msgs[0]
	for _, msg := range msgs[1:] {
		if msg.ScheduledFor.After(latest.ScheduledFor) {
			latest = msg
		}
	}
	return &latest, nil
}

func (m *mockMessageRepo) ListDue(_ context.Context, scope repository.MessageScope, now time.Time, limit int) ([]model.ScheduledMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ScheduledMessage
	for _, msg := range m.msgs {
		if msg.Status != model.MessageStatusPending || msg.ScheduledFor.After(now) {
			continue
		}
		if scope.SessionID != "" && msg.SessionID != scope.SessionID {
			continue
		}
		if scope.UserID != "" && msg.UserID != scope.UserID {
			continue
		}
		if scope.TypePrefix != "" && !strings.HasPrefix(msg.Type, scope.TypePrefix) {
			continue
		}
		result = append(result, *msg)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ScheduledFor.Before(result[j].ScheduledFor) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockMessageRepo) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs {
		if msg.MessageID == id && msg.Status == model.MessageStatusPending {
			msg.Status = model.MessageStatusSending
			return true, nil
		}
	}
	return false, nil
}

func (m *mockMessageRepo) MarkSent(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs {
		if msg.MessageID == id && msg.Status == model.MessageStatusSending {
			msg.Status = model.MessageStatusSent
			sentAt := at
			msg.SentAt = &sentAt
			return true, nil
		}
	}
	return false, nil
}

func (m *mockMessageRepo) MarkFailed(_ context.Context, id string, payload string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs {
		if msg.MessageID == id && msg.Status == model.MessageStatusSending {
			msg.Status = model.MessageStatusFailed
			p := payload
			msg.ErrorPayload = &p
			return true, nil
		}
	}
	return false, nil
}

func (m *mockMessageRepo) ListSentForUser(_ context.Context, userID string, since time.Time, limit int) ([]model.ScheduledMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ScheduledMessage
	for _, msg := range m.msgs {
		if msg.UserID != userID || msg.Status != model.MessageStatusSent || msg.SentAt == nil {
			continue
		}
		if !since.IsZero() && !msg.SentAt.After(since) {
			continue
		}
		result = append(result, *msg)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].SentAt.After(*result[j].SentAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockMessageRepo) ListBySession(_ context.Context, sessionID string) ([]model.ScheduledMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ScheduledMessage
	for _, msg := range m.msgs {
		if msg.SessionID == sessionID {
			result = append(result, *msg)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ScheduledFor.Before(result[j].ScheduledFor) })
	return result, nil
}

func (m *mockMessageRepo) byType(sessionID, msgType string) []model.ScheduledMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ScheduledMessage
	for _, msg := range m.msgs {
		if msg.SessionID == sessionID && msg.Type == msgType {
			result = append(result, *msg)
		}
	}
	return result
}

func (m *mockMessageRepo) countByStatus(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.msgs {
		if msg.Status == status {
			n++
		}
	}
	return n
}

// ── Mock InterviewQuestionRepository ──

type mockInterviewRepo struct {
	mu   sync.Mutex
	sets []model.InterviewQuestionSet
	err  error
}

func newMockInterviewRepo() *mockInterviewRepo {
	return &mockInterviewRepo{}
}

func (m *mockInterviewRepo) Create(_ context.Context, set *model.InterviewQuestionSet) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = append(m.sets, *set)
	return nil
}

func (m *mockInterviewRepo) GetLatestBySession(_ context.Context, sessionID, userID string) (*model.InterviewQuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sets) - 1; i >= 0; i-- {
		if m.sets[i].SessionID == sessionID && m.sets[i].UserID == userID {
			cp := m.sets[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock Generator ──

// mockGenerator 按系统提示词返回预设输出
type mockGenerator struct {
	mu         sync.Mutex
	configured bool
	replies    map[string]string
	err        error
	calls      int
}

func newMockGenerator() *mockGenerator {
	return &mockGenerator{configured: true, replies: make(map[string]string)}
}

func (g *mockGenerator) Configured() bool { return g.configured }

func (g *mockGenerator) Generate(_ context.Context, system, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.replies[system], nil
}

// ── Mock Deliverer ──

type mockDeliverer struct {
	mu        sync.Mutex
	delivered []string
	err       error
}

func (d *mockDeliverer) Deliver(_ context.Context, msg *model.ScheduledMessage) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, msg.MessageID)
	return nil
}
