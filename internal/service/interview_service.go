package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoshH2S/tuterra-sub001/internal/auth"
	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/internal/model"
	"github.com/JoshH2S/tuterra-sub001/internal/repository"
	"github.com/JoshH2S/tuterra-sub001/pkg/clock"
)

const maxInterviewQuestions = 12

// InterviewService 面试题生成业务接口
type InterviewService interface {
	// Generate 生成面试题；生成失败时返回固定题目
	Generate(ctx context.Context, ac *auth.AuthContext, req *dto.InterviewQuestionsRequest) (*dto.InterviewQuestionsResponse, error)
}

type interviewService struct {
	repo     *repository.Repository
	composer *composer
	clock    clock.Clock
	logger   *zap.Logger
}

func newInterviewService(repo *repository.Repository, composer *composer, clk clock.Clock, logger *zap.Logger) *interviewService {
	return &interviewService{repo: repo, composer: composer, clock: clk, logger: logger}
}

type interviewContent struct {
	Questions []string `json:"questions"`
}

type interviewPromptData struct {
	JobTitle       string
	Industry       string
	JobDescription string
}

// fallbackQuestions 通用面试题
func fallbackQuestions(jobTitle, industry string) []string {
	r := strings.NewReplacer("{role}", jobTitle, "{industry}", industry)
	templates := []string{
		"Tell me about yourself and why you are interested in this {role} position.",
		"What do you know about the {industry} industry and the challenges it faces today?",
		"Describe a project you are proud of. What was your role and what was the outcome?",
		"Tell me about a time you had to learn something new quickly. How did you approach it?",
		"Describe a situation where you disagreed with a teammate. How did you resolve it?",
		"How do you prioritize your work when you have several deadlines at once?",
		"What skills do you think are most important for a {role}, and how have you developed them?",
		"Where do you see yourself professionally in the next three years?",
	}
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = r.Replace(t)
	}
	return out
}

func (s *interviewService) Generate(ctx context.Context, ac *auth.AuthContext, req *dto.InterviewQuestionsRequest) (*dto.InterviewQuestionsResponse, error) {
	if !ac.Authenticated() {
		return nil, ErrUserMismatch
	}
	jobTitle, industry := strings.TrimSpace(req.JobTitle), strings.TrimSpace(req.Industry)

	content, err := generateJSON(ctx, s.composer, systemInterview, "interview", interviewPromptData{
		JobTitle:       jobTitle,
		Industry:       industry,
		JobDescription: strings.TrimSpace(req.JobDescription),
	}, func() interviewContent { return interviewContent{} })
	if err != nil {
		s.logger.Warn("生成面试题失败，使用固定题目", zap.String("session_id", req.SessionID), zap.Error(err))
	}

	questions := cleanQuestions(content.Questions)
	fallback := len(questions) == 0
	if fallback {
		questions = fallbackQuestions(jobTitle, industry)
	}

	set := &model.InterviewQuestionSet{
		SetID:     uuid.NewString(),
		SessionID: req.SessionID,
		UserID:    ac.UserID,
		Industry:  industry,
		JobTitle:  jobTitle,
		Questions: model.StringList(questions),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Interview.Create(ctx, set); err != nil {
		// 题目已生成，保存失败不影响返回
		s.logger.Error("保存面试题失败", zap.String("session_id", req.SessionID), zap.Error(err))
	}

	return &dto.InterviewQuestionsResponse{
		Success:   true,
		SessionID: req.SessionID,
		Questions: questions,
		Fallback:  fallback,
	}, nil
}

func cleanQuestions(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == maxInterviewQuestions {
			break
		}
	}
	return out
}
