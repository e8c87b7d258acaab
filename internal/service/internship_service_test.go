package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JoshH2S/tuterra-sub001/internal/auth"
	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/internal/model"
	"github.com/JoshH2S/tuterra-sub001/internal/timeline"
)

const planReply = `Here is the plan:
{"tasks":[
 {"title":"Market scan","description":"Survey the market","due_date":"2024-01-03","order":1},
 {"title":"Stakeholder map","description":"Map stakeholders","due_date":"2024-01-04","order":2},
 {"title":"Data audit","description":"Audit data sources","due_date":"2024-01-05","order":3},
 {"title":"Dashboard draft","description":"Draft a dashboard","order":4},
 {"title":"Final presentation","description":"Present results","due_date":"2024-03-01","order":5}
],"team":[
 {"name":"Dana Fox","role":"Engineering Manager","personality":"direct"},
 {"name":"Lee Park","role":"Analyst","personality":"calm"}
]}`

// ── CreateSession 测试 ──

func TestCreateSession_Success(t *testing.T) {
	env := setupTestEnv(t)
	env.gen.replies[systemPlanner] = planReply

	resp, err := env.svc.Internship.CreateSession(context.Background(), subscriber(), createRequest(4))
	if err != nil {
		t.Fatalf("CreateSession 应成功: %v", err)
	}
	if !resp.Success || resp.SessionID == "" {
		t.Fatalf("期望 success 且返回 sessionId，实际=%+v", resp)
	}
	if resp.Message != msgCreated {
		t.Errorf("期望 message=%q，实际=%q", msgCreated, resp.Message)
	}

	tasks, _ := env.tasks.ListBySession(context.Background(), resp.SessionID)
	if len(tasks) != 5 {
		t.Fatalf("期望 5 个任务，实际=%d", len(tasks))
	}

	window := timeline.NewWindow(testNow, 4)
	perWeek := make(map[int]int)
	for i, task := range tasks {
		if task.TaskOrder != i+1 {
			t.Errorf("任务序号应连续，第 %d 个序号=%d", i, task.TaskOrder)
		}
		if !window.Contains(task.DueDate) {
			t.Errorf("截止日 %s 超出实习窗口", task.DueDate.Format(timeline.DateLayout))
		}
		if want := timeline.VisibleAfter(task.TaskOrder, window.Start); !task.VisibleAfter.Equal(want) {
			t.Errorf("任务 %d 可见时间期望=%v，实际=%v", task.TaskOrder, want, task.VisibleAfter)
		}
		if task.Status != model.TaskStatusNotStarted {
			t.Errorf("新任务状态应为 not_started，实际=%s", task.Status)
		}
		perWeek[task.WeekNumber]++
	}
	for week := 1; week <= 4; week++ {
		if n := perWeek[week]; n < 1 || n > 2 {
			t.Errorf("第 %d 周任务数应为 1-2，实际=%d", week, n)
		}
	}

	members, _ := env.team.ListBySession(context.Background(), resp.SessionID)
	if len(members) != 2 || members[0].Name != "Dana Fox" {
		t.Errorf("期望保留生成的团队，实际=%+v", members)
	}

	assigned := env.messages.byType(resp.SessionID, model.MessageTypeTaskAssigned)
	if len(assigned) != len(tasks) {
		t.Fatalf("每个任务应有一条下发消息，实际=%d", len(assigned))
	}
	for _, msg := range assigned {
		if msg.ScheduledFor.Before(msg.CreatedAt) {
			t.Errorf("scheduled_for 不应早于 created_at: %+v", msg)
		}
		if msg.SenderName != "Dana Fox" {
			t.Errorf("下发消息应来自管理者，实际=%s", msg.SenderName)
		}
	}
}

func TestCreateSession_NotEntitled(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.svc.Internship.CreateSession(context.Background(), freeUser(), createRequest(2))
	if !errors.Is(err, ErrNotEntitled) {
		t.Errorf("期望 ErrNotEntitled，实际: %v", err)
	}

	// 推广会话需要有效推广码
	req := createRequest(2)
	req.IsPromotional = true
	req.PromoCode = "WRONG"
	_, err = env.svc.Internship.CreateSession(context.Background(), freeUser(), req)
	if !errors.Is(err, ErrNotEntitled) {
		t.Errorf("无效推广码期望 ErrNotEntitled，实际: %v", err)
	}
	if n := len(env.sessions.sessions); n != 0 {
		t.Errorf("授权失败不应写入会话，实际=%d", n)
	}
}

func TestCreateSession_PromoCode(t *testing.T) {
	env := setupTestEnv(t)
	env.gen.replies[systemPlanner] = planReply

	req := createRequest(2)
	req.IsPromotional = true
	req.PromoCode = strings.ToLower(testPromo)

	resp, err := env.svc.Internship.CreateSession(context.Background(), freeUser(), req)
	if err != nil {
		t.Fatalf("有效推广码应成功: %v", err)
	}
	session, _ := env.sessions.GetByID(context.Background(), resp.SessionID)
	if !session.IsPromotional {
		t.Error("会话应标记为推广会话")
	}
}

func TestCreateSession_InvalidStartDate(t *testing.T) {
	env := setupTestEnv(t)

	req := createRequest(2)
	req.StartDate = "01/02/2024"
	_, err := env.svc.Internship.CreateSession(context.Background(), subscriber(), req)
	if !errors.Is(err, ErrInvalidStartDate) {
		t.Errorf("期望 ErrInvalidStartDate，实际: %v", err)
	}
}

func TestCreateSession_GenerationUnavailable(t *testing.T) {
	env := setupTestEnv(t)
	env.gen.configured = false

	_, err := env.svc.Internship.CreateSession(context.Background(), subscriber(), createRequest(2))
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Errorf("期望 ErrGenerationUnavailable，实际: %v", err)
	}
	if n := len(env.sessions.sessions); n != 0 {
		t.Errorf("生成服务未配置时不应写入会话，实际=%d", n)
	}
}

func TestCreateSession_Cooldown(t *testing.T) {
	env := setupTestEnv(t)
	env.gen.replies[systemPlanner] = planReply

	if _, err := env.svc.Internship.CreateSession(context.Background(), subscriber(), createRequest(2)); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}
	_, err := env.svc.Internship.CreateSession(context.Background(), subscriber(), createRequest(2))
	if !errors.Is(err, ErrCooldown) {
		t.Errorf("冷却期内期望 ErrCooldown，实际: %v", err)
	}

	env.clock.Advance(11 * time.Second)
	if _, err := env.svc.Internship.CreateSession(context.Background(), subscriber(), createRequest(2)); err != nil {
		t.Errorf("冷却结束后应成功: %v", err)
	}
}

func TestCreateSession_FallbackPlan(t *testing.T) {
	env := setupTestEnv(t)
	env.gen.err = errMockStore

	resp, err := env.svc.Internship.CreateSession(context.Background(), subscriber(), createRequest(4))
	if err != nil {
		t.Fatalf("生成失败时应降级成功: %v", err)
	}
	if !strings.HasPrefix(resp.Message, msgCreatedWithWarning) {
		t.Errorf("降级时 message 应包含提示，实际=%q", resp.Message)
	}

	tasks, _ := env.tasks.ListBySession(context.Background(), resp.SessionID)
	if len(tasks) != 4 {
		t.Fatalf("默认计划每周一个任务，期望 4，实际=%d", len(tasks))
	}
	fridays := []string{"2024-01-05", "2024-01-12", "2024-01-19", "2024-01-26"}
	for i, task := range tasks {
		if got := task.DueDate.Format(timeline.DateLayout); got != fridays[i] {
			t.Errorf("第 %d 周截止日期望=%s，实际=%s", i+1, fridays[i], got)
		}
		if task.WeekNumber != i+1 {
			t.Errorf("任务 %d 周次期望=%d，实际=%d", task.TaskOrder, i+1, task.WeekNumber)
		}
	}

	members, _ := env.team.ListBySession(context.Background(), resp.SessionID)
	if len(members) == 0 || !timeline.IsManagerRole(members[0].Role) {
		t.Errorf("默认团队应包含管理者，实际=%+v", members)
	}
}

func TestCreateSession_TaskSaveFailure(t *testing.T) {
	env := setupTestEnv(t)
	env.gen.replies[systemPlanner] = planReply
	env.tasks.batchErr = errMockStore

	resp, err := env.svc.Internship.CreateSession(context.Background(), subscriber(), createRequest(2))
	if err != nil {
		t.Fatalf("会话写入后失败应降级而非报错: %v", err)
	}
	if !resp.Success || !strings.Contains(resp.Message, "tasks could not be saved") {
		t.Errorf("期望 message 提示任务保存失败，实际=%q", resp.Message)
	}
	if n := len(env.messages.byType(resp.SessionID, model.MessageTypeTaskAssigned)); n != 0 {
		t.Errorf("任务未保存时不应排期下发消息，实际=%d", n)
	}
}

// ── 查询测试 ──

func TestGetSession_OtherUser(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 2)

	_, err := env.svc.Internship.GetSession(context.Background(), &auth.AuthContext{UserID: otherUserID, Plan: "pro"}, sessionID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("他人会话期望 ErrSessionNotFound，实际: %v", err)
	}

	resp, err := env.svc.Internship.GetSession(context.Background(), subscriber(), sessionID)
	if err != nil {
		t.Fatalf("GetSession 应成功: %v", err)
	}
	if resp.StartDate != "2024-01-01" || resp.CurrentPhase != 1 {
		t.Errorf("会话详情不正确: %+v", resp)
	}
	if len(resp.TeamMembers) == 0 {
		t.Error("会话详情应包含团队成员")
	}
}

func TestListTasks_HidesFutureTasks(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 4)

	visible, err := env.svc.Internship.ListTasks(context.Background(), subscriber(), sessionID, false)
	if err != nil {
		t.Fatalf("ListTasks 应成功: %v", err)
	}
	if len(visible) != 2 {
		t.Errorf("开始日只开放前两个任务，实际=%d", len(visible))
	}

	all, _ := env.svc.Internship.ListTasks(context.Background(), subscriber(), sessionID, true)
	if len(all) != 4 {
		t.Fatalf("includeHidden 应返回全部任务，实际=%d", len(all))
	}
	if all[2].Visible {
		t.Error("第三个任务在第二周前不可见")
	}

	env.clock.Advance(7 * 24 * time.Hour)
	visible, _ = env.svc.Internship.ListTasks(context.Background(), subscriber(), sessionID, false)
	if len(visible) != 4 {
		t.Errorf("一周后应开放全部 4 个任务，实际=%d", len(visible))
	}
}

// ── 任务状态流转测试 ──

func TestStartTask(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 2)
	tasks, _ := env.tasks.ListBySession(context.Background(), sessionID)

	resp, err := env.svc.Internship.StartTask(context.Background(), subscriber(), sessionID, tasks[0].TaskID)
	if err != nil {
		t.Fatalf("StartTask 应成功: %v", err)
	}
	if resp.Status != model.TaskStatusInProgress {
		t.Errorf("期望 in_progress，实际=%s", resp.Status)
	}

	// 重复开始不报错
	resp, err = env.svc.Internship.StartTask(context.Background(), subscriber(), sessionID, tasks[0].TaskID)
	if err != nil || resp.Status != model.TaskStatusInProgress {
		t.Errorf("重复开始应保持 in_progress，实际=%v, %v", resp, err)
	}

	_, err = env.svc.Internship.StartTask(context.Background(), subscriber(), sessionID, "missing")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("期望 ErrTaskNotFound，实际: %v", err)
	}
}

func TestSubmitDeliverable_CompletesWithFeedback(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 2)
	tasks, _ := env.tasks.ListBySession(context.Background(), sessionID)
	env.gen.replies[systemReviewer] = `{"ratings":{"quality":5,"timeliness":9,"communication":0},"text":"Clear and well structured."}`

	resp, err := env.svc.Internship.SubmitDeliverable(context.Background(), subscriber(), sessionID, tasks[0].TaskID,
		&dto.SubmitDeliverableRequest{Content: "My market analysis"})
	if err != nil {
		t.Fatalf("SubmitDeliverable 应成功: %v", err)
	}
	if resp.TaskStatus != model.TaskStatusFeedbackPending {
		t.Errorf("提交后响应状态应为 feedback_pending，实际=%s", resp.TaskStatus)
	}

	if got := env.tasks.status(tasks[0].TaskID); got != model.TaskStatusCompleted {
		t.Errorf("反馈完成后任务应为 completed，实际=%s", got)
	}

	fb, err := env.feedbacks.GetLatestByDeliverable(context.Background(), resp.DeliverableID)
	if err != nil {
		t.Fatalf("应保存反馈: %v", err)
	}
	want := map[string]int{"quality": 5, "timeliness": 5, "communication": 3}
	for k, v := range want {
		if fb.Ratings[k] != v {
			t.Errorf("评分 %s 期望=%d，实际=%d", k, v, fb.Ratings[k])
		}
	}

	followups := env.messages.byType(sessionID, model.MessageTypeFeedbackFollowup)
	if len(followups) != 1 {
		t.Fatalf("期望 1 条反馈跟进消息，实际=%d", len(followups))
	}
	if want := testNow.Add(2 * time.Minute); !followups[0].ScheduledFor.Equal(want) {
		t.Errorf("跟进消息时间期望=%v，实际=%v", want, followups[0].ScheduledFor)
	}

	if phase := env.sessions.phase(sessionID); phase != 2 {
		t.Errorf("第一周任务完成后阶段应推进到 2，实际=%d", phase)
	}

	list, _ := env.svc.Internship.ListTasks(context.Background(), subscriber(), sessionID, false)
	if list[0].Deliverable == nil || list[0].Deliverable.Feedback == nil {
		t.Fatalf("已完成任务应携带提交物与反馈: %+v", list[0])
	}
	if list[0].Deliverable.Feedback.Text != "Clear and well structured." {
		t.Errorf("反馈内容不正确: %q", list[0].Deliverable.Feedback.Text)
	}
}

func TestSubmitDeliverable_DefaultFeedback(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 2)
	tasks, _ := env.tasks.ListBySession(context.Background(), sessionID)
	env.gen.replies[systemReviewer] = "I could not review this."

	resp, err := env.svc.Internship.SubmitDeliverable(context.Background(), subscriber(), sessionID, tasks[0].TaskID,
		&dto.SubmitDeliverableRequest{Content: "draft"})
	if err != nil {
		t.Fatalf("SubmitDeliverable 应成功: %v", err)
	}
	fb, err := env.feedbacks.GetLatestByDeliverable(context.Background(), resp.DeliverableID)
	if err != nil {
		t.Fatalf("解析失败时应保存默认反馈: %v", err)
	}
	if fb.Ratings["quality"] != 3 || fb.Text == "" {
		t.Errorf("默认反馈不正确: %+v", fb)
	}
}

func TestSubmitDeliverable_NotVisible(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 4)
	tasks, _ := env.tasks.ListBySession(context.Background(), sessionID)

	_, err := env.svc.Internship.SubmitDeliverable(context.Background(), subscriber(), sessionID, tasks[2].TaskID,
		&dto.SubmitDeliverableRequest{Content: "early"})
	if !errors.Is(err, ErrTaskNotVisible) {
		t.Errorf("期望 ErrTaskNotVisible，实际: %v", err)
	}
}

func TestSubmitDeliverable_ReopenAndResubmit(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 2)
	tasks, _ := env.tasks.ListBySession(context.Background(), sessionID)
	taskID := tasks[0].TaskID

	first, err := env.svc.Internship.SubmitDeliverable(context.Background(), subscriber(), sessionID, taskID,
		&dto.SubmitDeliverableRequest{Content: "v1"})
	if err != nil {
		t.Fatalf("首次提交应成功: %v", err)
	}

	_, err = env.svc.Internship.SubmitDeliverable(context.Background(), subscriber(), sessionID, taskID,
		&dto.SubmitDeliverableRequest{Content: "v2"})
	if !errors.Is(err, ErrTaskAlreadyCompleted) {
		t.Errorf("已完成任务期望 ErrTaskAlreadyCompleted，实际: %v", err)
	}

	reopened, err := env.svc.Internship.ReopenTask(context.Background(), subscriber(), sessionID, taskID)
	if err != nil {
		t.Fatalf("ReopenTask 应成功: %v", err)
	}
	if reopened.Status != model.TaskStatusInProgress {
		t.Errorf("重新打开后应为 in_progress，实际=%s", reopened.Status)
	}

	second, err := env.svc.Internship.SubmitDeliverable(context.Background(), subscriber(), sessionID, taskID,
		&dto.SubmitDeliverableRequest{Content: "v2"})
	if err != nil {
		t.Fatalf("重新打开后提交应成功: %v", err)
	}
	if second.DeliverableID != first.DeliverableID {
		t.Error("同一任务应只保留一条提交物")
	}
	d, _ := env.deliverables.GetByTask(context.Background(), taskID)
	if d.Content != "v2" {
		t.Errorf("提交物内容应被覆盖，实际=%q", d.Content)
	}
}

func TestReopenTask_NotReopenable(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 2)
	tasks, _ := env.tasks.ListBySession(context.Background(), sessionID)

	_, err := env.svc.Internship.ReopenTask(context.Background(), subscriber(), sessionID, tasks[0].TaskID)
	if !errors.Is(err, ErrTaskNotReopenable) {
		t.Errorf("未开始任务期望 ErrTaskNotReopenable，实际: %v", err)
	}
}

func TestReviewDeliverable_SkipsReopenedTask(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 2)
	tasks, _ := env.tasks.ListBySession(context.Background(), sessionID)
	taskID := tasks[0].TaskID

	// 挂起异步反馈，先重新打开任务
	var pending func()
	env.internship.spawn = func(f func()) { pending = f }

	if _, err := env.svc.Internship.SubmitDeliverable(context.Background(), subscriber(), sessionID, taskID,
		&dto.SubmitDeliverableRequest{Content: "v1"}); err != nil {
		t.Fatalf("提交应成功: %v", err)
	}
	if _, err := env.svc.Internship.ReopenTask(context.Background(), subscriber(), sessionID, taskID); err != nil {
		t.Fatalf("feedback_pending 应可重新打开: %v", err)
	}
	pending()

	if got := env.tasks.status(taskID); got != model.TaskStatusInProgress {
		t.Errorf("反馈期间被重新打开的任务不应被完成，实际=%s", got)
	}
	if n := len(env.messages.byType(sessionID, model.MessageTypeFeedbackFollowup)); n != 0 {
		t.Errorf("不应排期跟进消息，实际=%d", n)
	}
}

func TestReviewDeliverable_InterleavedReviewsAdvancePhase(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 3)
	tasks, _ := env.tasks.ListBySession(context.Background(), sessionID)
	env.gen.replies[systemReviewer] = `{"ratings":{"quality":4,"timeliness":4,"communication":4},"text":"Good work."}`
	env.clock.Advance(21 * 24 * time.Hour)

	// 三份提交都持有同一版本的会话，评审在全部提交之后依次执行
	var pending []func()
	env.internship.spawn = func(f func()) { pending = append(pending, f) }
	for _, task := range tasks {
		if _, err := env.svc.Internship.SubmitDeliverable(context.Background(), subscriber(), sessionID, task.TaskID,
			&dto.SubmitDeliverableRequest{Content: "week work"}); err != nil {
			t.Fatalf("提交应成功: %v", err)
		}
	}
	for _, f := range pending {
		f()
	}

	for _, task := range tasks {
		if got := env.tasks.status(task.TaskID); got != model.TaskStatusCompleted {
			t.Errorf("第 %d 周任务应为 completed，实际=%s", task.WeekNumber, got)
		}
	}
	if phase := env.sessions.phase(sessionID); phase != 3 {
		t.Errorf("全部任务完成后阶段应为 3，实际=%d", phase)
	}
}

func TestSubmitDeliverable_ResponseDetachedFromReview(t *testing.T) {
	env := setupTestEnv(t)
	sessionID := createFallbackSession(t, env, 2)
	tasks, _ := env.tasks.ListBySession(context.Background(), sessionID)

	done := make(chan struct{})
	env.internship.spawn = func(f func()) {
		go func() {
			defer close(done)
			f()
		}()
	}

	resp, err := env.svc.Internship.SubmitDeliverable(context.Background(), subscriber(), sessionID, tasks[0].TaskID,
		&dto.SubmitDeliverableRequest{Content: "analysis"})
	if err != nil {
		t.Fatalf("提交应成功: %v", err)
	}
	<-done

	if resp.TaskStatus != model.TaskStatusFeedbackPending {
		t.Errorf("响应状态应为 feedback_pending，实际=%s", resp.TaskStatus)
	}
	if got := env.tasks.status(tasks[0].TaskID); got != model.TaskStatusCompleted {
		t.Errorf("评审完成后任务应为 completed，实际=%s", got)
	}
}

// ── 阶段推进 ──

func TestNextPhase(t *testing.T) {
	task := func(week int, status string) model.Task {
		return model.Task{WeekNumber: week, Status: status}
	}
	cases := []struct {
		name  string
		tasks []model.Task
		weeks int
		want  int
	}{
		{"全部未完成", []model.Task{task(1, model.TaskStatusNotStarted), task(2, model.TaskStatusNotStarted)}, 2, 1},
		{"第一周完成", []model.Task{task(1, model.TaskStatusCompleted), task(2, model.TaskStatusInProgress)}, 2, 2},
		{"全部完成", []model.Task{task(1, model.TaskStatusCompleted), task(3, model.TaskStatusCompleted)}, 3, 3},
		{"中间周未完成", []model.Task{task(1, model.TaskStatusCompleted), task(2, model.TaskStatusFeedbackPending), task(3, model.TaskStatusNotStarted)}, 3, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextPhase(tc.tasks, tc.weeks); got != tc.want {
				t.Errorf("期望=%d，实际=%d", tc.want, got)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	env := setupTestEnv(t)
	createFallbackSession(t, env, 2)

	list, err := env.svc.Internship.ListSessions(context.Background(), subscriber())
	if err != nil {
		t.Fatalf("ListSessions 应成功: %v", err)
	}
	if len(list) != 1 || list[0].DurationWeeks != 2 {
		t.Errorf("期望 1 个会话，实际=%+v", list)
	}

	other, _ := env.svc.Internship.ListSessions(context.Background(), &auth.AuthContext{UserID: otherUserID})
	if len(other) != 0 {
		t.Errorf("不应返回他人会话，实际=%d", len(other))
	}
}
