package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/JoshH2S/tuterra-sub001/config"
	"github.com/JoshH2S/tuterra-sub001/internal/auth"
	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/internal/repository"
	"github.com/JoshH2S/tuterra-sub001/pkg/clock"
)

// ── 测试辅助 ──

// 2024-01-01 是周一
var testNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

const (
	testUserID  = "11111111-1111-1111-1111-111111111111"
	otherUserID = "22222222-2222-2222-2222-222222222222"
	testPromo   = "SPRING24"
)

type testEnv struct {
	clock *clock.Fake
	gen   *mockGenerator
	cfg   *config.Config

	sessions     *mockSessionRepo
	tasks        *mockTaskRepo
	deliverables *mockDeliverableRepo
	feedbacks    *mockFeedbackRepo
	team         *mockTeamMemberRepo
	messages     *mockMessageRepo
	interviews   *mockInterviewRepo

	svc          *Service
	internship   *internshipService
	supervisor   *supervisorService
	dispatch     *dispatchService
	interview    *interviewService
	notification *notificationService
	export       *exportService
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret-key-for-unit-testing",
			PromoCodes: []string{testPromo},
		},
		LLM: config.LLMConfig{MaxRetries: 1},
		Scheduler: config.SchedulerConfig{
			DispatchSpec:          "@every 10m",
			DispatchBatchSize:     100,
			FeedbackFollowupDelay: 2 * time.Minute,
			ReminderWindow:        48 * time.Hour,
			ReminderLead:          24 * time.Hour,
			CheckInInterval:       72 * time.Hour,
			TeamIntroWindow:       36 * time.Hour,
			TeamIntroJitter:       2 * time.Hour,
			TeamIntroMax:          3,
			TeamInteractionMin:    30 * time.Minute,
			TeamInteractionMax:    3 * time.Hour,
		},
		RateLimit: config.RateLimitConfig{SessionCooldown: 10 * time.Second},
	}
}

func setupTestEnv(t *testing.T, opts ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	team := newMockTeamMemberRepo()
	env := &testEnv{
		clock:        clock.NewFake(testNow),
		gen:          newMockGenerator(),
		cfg:          cfg,
		sessions:     newMockSessionRepo(team),
		tasks:        newMockTaskRepo(),
		deliverables: newMockDeliverableRepo(),
		feedbacks:    newMockFeedbackRepo(),
		team:         team,
		messages:     newMockMessageRepo(),
		interviews:   newMockInterviewRepo(),
	}
	repo := &repository.Repository{
		Session:          env.sessions,
		Task:             env.tasks,
		Deliverable:      env.deliverables,
		Feedback:         env.feedbacks,
		TeamMember:       env.team,
		ScheduledMessage: env.messages,
		Interview:        env.interviews,
	}

	env.svc = NewService(cfg, repo, env.gen, nil, env.clock, zap.NewNop())
	env.internship = env.svc.Internship.(*internshipService)
	env.supervisor = env.svc.Supervisor.(*supervisorService)
	env.dispatch = env.svc.Dispatch.(*dispatchService)
	env.interview = env.svc.Interview.(*interviewService)
	env.notification = env.svc.Notification.(*notificationService)
	env.export = env.svc.Export.(*exportService)

	// 异步反馈在测试中同步执行
	env.internship.spawn = func(f func()) { f() }
	return env
}

func subscriber() *auth.AuthContext {
	return &auth.AuthContext{UserID: testUserID, Plan: "pro"}
}

func freeUser() *auth.AuthContext {
	return &auth.AuthContext{UserID: testUserID, Plan: auth.PlanFree}
}

func createRequest(weeks int) *dto.CreateInternshipRequest {
	return &dto.CreateInternshipRequest{
		JobTitle:      "Data Analyst",
		Industry:      "Healthcare",
		DurationWeeks: weeks,
		StartDate:     "2024-01-01",
	}
}

// createFallbackSession 生成服务出错，使用默认计划（每周一个任务，截止日为周五）
func createFallbackSession(t *testing.T, env *testEnv, weeks int) string {
	t.Helper()
	env.gen.err = errMockStore
	defer func() { env.gen.err = nil }()

	resp, err := env.svc.Internship.CreateSession(context.Background(), subscriber(), createRequest(weeks))
	if err != nil {
		t.Fatalf("CreateSession 应成功: %v", err)
	}
	return resp.SessionID
}
