package service

import (
	"strings"
	"time"

	"github.com/JoshH2S/tuterra-sub001/internal/model"
	"github.com/JoshH2S/tuterra-sub001/internal/timeline"
)

// planContent 生成服务返回的实习计划
type planContent struct {
	Tasks []generatedTask   `json:"tasks"`
	Team  []generatedMember `json:"team"`
}

type generatedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Order       int    `json:"order"`
}

type generatedMember struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Personality string `json:"personality"`
}

type planPromptData struct {
	JobTitle       string
	Industry       string
	JobDescription string
	DurationWeeks  int
	MaxTasks       int
	StartDate      string
	EndDate        string
}

var fallbackTaskTemplates = []struct{ title, description string }{
	{"Research the {industry} landscape", "Identify three major players in the {industry} industry and summarize how each one creates value for its customers."},
	{"Draft a project plan", "Outline the goals, milestones and risks for a small project your team could deliver as a {role}."},
	{"Analyze a real-world problem", "Pick a challenge a {role} commonly faces, gather supporting data, and propose two possible approaches."},
	{"Prepare a stakeholder update", "Write a one-page update for your manager covering progress, blockers and next steps on your current work."},
	{"Build a working prototype", "Produce a first version of a deliverable a {role} would typically own and describe how you tested it."},
	{"Present your findings", "Create a short presentation summarizing what you learned during the internship and your recommendations."},
}

// fallbackTasks 生成服务不可用时的通用任务，每周一个
func fallbackTasks(jobTitle, industry string, weeks int) []timeline.PlannedTask {
	r := strings.NewReplacer("{role}", jobTitle, "{industry}", industry)
	tasks := make([]timeline.PlannedTask, 0, weeks)
	for i := 0; i < weeks; i++ {
		tpl := fallbackTaskTemplates[i%len(fallbackTaskTemplates)]
		tasks = append(tasks, timeline.PlannedTask{
			Title:       r.Replace(tpl.title),
			Description: r.Replace(tpl.description),
		})
	}
	return tasks
}

// defaultTeam 生成服务不可用时的默认团队
func defaultTeam() []generatedMember {
	return []generatedMember{
		{Name: "Alex Morgan", Role: "Internship Manager", Personality: "organized and encouraging"},
		{Name: "Jordan Lee", Role: "Senior Team Member", Personality: "practical and detail oriented"},
		{Name: "Sam Rivera", Role: "Peer Associate", Personality: "friendly and curious"},
	}
}

// toPlannedTasks 生成结果转为待分配任务，空标题丢弃
func toPlannedTasks(generated []generatedTask) []timeline.PlannedTask {
	out := make([]timeline.PlannedTask, 0, len(generated))
	for _, g := range generated {
		title := strings.TrimSpace(g.Title)
		if title == "" {
			continue
		}
		pt := timeline.PlannedTask{
			Title:       title,
			Description: strings.TrimSpace(g.Description),
			Order:       g.Order,
		}
		if g.DueDate != "" {
			if d, err := time.Parse(timeline.DateLayout, strings.TrimSpace(g.DueDate)); err == nil {
				pt.DueDate = &d
			}
		}
		out = append(out, pt)
	}
	return out
}

// toTeamMembers 生成结果转为团队成员，保证至少有一名管理者
func toTeamMembers(sessionID string, generated []generatedMember, newID func() string) []model.TeamMember {
	members := make([]model.TeamMember, 0, len(generated))
	hasManager := false
	for _, g := range generated {
		name, role := strings.TrimSpace(g.Name), strings.TrimSpace(g.Role)
		if name == "" || role == "" {
			continue
		}
		if timeline.IsManagerRole(role) {
			hasManager = true
		}
		members = append(members, model.TeamMember{
			MemberID:    newID(),
			SessionID:   sessionID,
			Name:        name,
			Role:        role,
			Personality: strings.TrimSpace(g.Personality),
			SortOrder:   len(members),
		})
	}
	if len(members) == 0 {
		return toTeamMembers(sessionID, defaultTeam(), newID)
	}
	if !hasManager {
		lead := defaultTeam()[0]
		members = append([]model.TeamMember{{
			MemberID:    newID(),
			SessionID:   sessionID,
			Name:        lead.Name,
			Role:        lead.Role,
			Personality: lead.Personality,
		}}, members...)
		for i := range members {
			members[i].SortOrder = i
		}
	}
	return members
}

// persona 消息发送人
type persona struct {
	Name string
	Role string
}

var defaultSupervisor = persona{Name: "Alex Morgan", Role: "Internship Manager"}

// supervisorOf 取团队中第一位管理者作为导师
func supervisorOf(members []model.TeamMember) persona {
	for _, m := range members {
		if timeline.IsManagerRole(m.Role) {
			return persona{Name: m.Name, Role: m.Role}
		}
	}
	return defaultSupervisor
}
