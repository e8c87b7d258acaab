package service

import (
	"time"

	"github.com/JoshH2S/tuterra-sub001/internal/dto"
	"github.com/JoshH2S/tuterra-sub001/internal/model"
	"github.com/JoshH2S/tuterra-sub001/internal/timeline"
)

func formatDate(t time.Time) string { return t.Format(timeline.DateLayout) }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func toSessionResponse(s *model.InternshipSession) *dto.SessionResponse {
	w := timeline.NewWindow(s.StartDate, s.DurationWeeks)
	resp := &dto.SessionResponse{
		ID:             s.SessionID,
		JobTitle:       s.JobTitle,
		Industry:       s.Industry,
		JobDescription: s.JobDescription,
		DurationWeeks:  s.DurationWeeks,
		StartDate:      formatDate(w.Start),
		EndDate:        formatDate(w.End()),
		CurrentPhase:   s.CurrentPhase,
		IsPromotional:  s.IsPromotional,
		TeamMembers:    make([]dto.TeamMemberResponse, 0, len(s.TeamMembers)),
		CreatedAt:      formatTime(s.CreatedAt),
	}
	for _, m := range s.TeamMembers {
		resp.TeamMembers = append(resp.TeamMembers, dto.TeamMemberResponse{
			ID:          m.MemberID,
			Name:        m.Name,
			Role:        m.Role,
			Personality: m.Personality,
		})
	}
	return resp
}

func toTaskResponse(t *model.Task, now time.Time) dto.TaskResponse {
	return dto.TaskResponse{
		ID:           t.TaskID,
		Title:        t.Title,
		Description:  t.Description,
		DueDate:      formatDate(t.DueDate),
		TaskOrder:    t.TaskOrder,
		WeekNumber:   t.WeekNumber,
		Status:       t.Status,
		VisibleAfter: formatTime(t.VisibleAfter),
		Visible:      timeline.IsVisible(t.VisibleAfter, now),
	}
}

func toDeliverableBrief(d *model.Deliverable, f *model.Feedback) *dto.DeliverableBrief {
	brief := &dto.DeliverableBrief{
		ID:             d.DeliverableID,
		Content:        d.Content,
		AttachmentName: d.AttachmentName,
		AttachmentURL:  d.AttachmentURL,
		SubmittedAt:    formatTime(d.SubmittedAt),
	}
	if f != nil {
		brief.Feedback = &dto.FeedbackResponse{
			Ratings:    f.Ratings,
			Text:       f.Text,
			ProvidedAt: formatTime(f.ProvidedAt),
		}
	}
	return brief
}

// ToMessageResponse 计划消息转为响应结构（HTTP 层推送事件时复用）
func ToMessageResponse(m *model.ScheduledMessage) dto.MessageResponse {
	resp := dto.MessageResponse{
		ID:            m.MessageID,
		SessionID:     m.SessionID,
		Type:          m.Type,
		Content:       m.Content,
		ScheduledFor:  formatTime(m.ScheduledFor),
		Status:        m.Status,
		SenderName:    m.SenderName,
		SenderRole:    m.SenderRole,
		RelatedTaskID: m.RelatedTaskID,
	}
	if m.SentAt != nil {
		s := formatTime(*m.SentAt)
		resp.SentAt = &s
	}
	return resp
}

func toMessageResponses(msgs []model.ScheduledMessage) []dto.MessageResponse {
	out := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, ToMessageResponse(&msgs[i]))
	}
	return out
}
