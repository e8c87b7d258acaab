package service

import (
	"bytes"
	"fmt"
	"text/template"
)

// 系统提示词
const (
	systemPlanner    = "You design realistic virtual internship programs. Reply with JSON only."
	systemSupervisor = "You are a supportive internship supervisor at a company. Write short, warm, specific messages in plain text without a subject line."
	systemTeammate   = "You are a member of an intern's team at a company. Write short, natural workplace chat messages in plain text."
	systemReviewer   = "You review intern deliverables. Reply with JSON only."
	systemInterview  = "You are an experienced hiring manager. Reply with JSON only."
)

var prompts = template.Must(template.New("prompts").Parse(`
{{define "plan"}}Create a {{.DurationWeeks}}-week virtual internship for a "{{.JobTitle}}" in the {{.Industry}} industry starting {{.StartDate}}.
{{if .JobDescription}}Job description: {{.JobDescription}}
{{end}}Return JSON: {"tasks":[{"title":"","description":"","due_date":"YYYY-MM-DD","order":1}],"team":[{"name":"","role":"","personality":""}]}
Provide between {{.DurationWeeks}} and {{.MaxTasks}} tasks with due dates between {{.StartDate}} and {{.EndDate}}, and 3 to 4 team members including one manager.{{end}}

{{define "onboarding"}}Write a welcome message from {{.SenderName}} ({{.SenderRole}}) to a new {{.JobTitle}} intern joining the {{.Industry}} team for {{.DurationWeeks}} weeks.
{{if .FirstTask}}Their first task is "{{.FirstTask}}" due {{.FirstDue}}.{{end}} Keep it under 120 words.{{end}}

{{define "check_in"}}Write a brief check-in from {{.SenderName}} to the {{.JobTitle}} intern.
The next open task is "{{.TaskTitle}}", due in {{.DaysUntil}} day(s). Ask how it is going and offer help. Under 80 words.{{end}}

{{define "feedback_followup"}}Write a short follow-up from {{.SenderName}} after the intern received feedback on "{{.TaskTitle}}".
{{if .Feedback}}Feedback summary: {{.Feedback}}
{{end}}Encourage them to apply the feedback to the next task. Under 80 words.{{end}}

{{define "deadline_reminder"}}Write a friendly reminder from {{.SenderName}} that the task "{{.TaskTitle}}" is due on {{.DueDate}} ({{.DaysUntil}} day(s) away). Under 60 words.{{end}}

{{define "team_intro"}}You are {{.MemberName}}, {{.MemberRole}}{{if .Personality}} ({{.Personality}}){{end}}.
{{if .IsManager}}Write a welcoming but professional introduction to the new {{.JobTitle}} intern who will report to you. Mention what you expect in the first week.{{else}}Write a casual, friendly hello to the new {{.JobTitle}} intern you will be working alongside. Offer to help with questions.{{end}} Under 70 words.{{end}}

{{define "team_interaction"}}You are {{.MemberName}}, {{.MemberRole}}{{if .Personality}} ({{.Personality}}){{end}}.
Write a short chat message to the {{.JobTitle}} intern about their task "{{.TaskTitle}}": share a tip, a resource, or ask about progress. Under 60 words.{{end}}

{{define "feedback"}}Evaluate this deliverable for the task "{{.TaskTitle}}" ({{.TaskDescription}}) by a {{.JobTitle}} intern.
Deliverable:
{{.Content}}
Return JSON: {"ratings":{"quality":1-5,"timeliness":1-5,"communication":1-5},"text":"specific feedback under 150 words"}{{end}}

{{define "interview"}}Write 8 interview questions for a {{.JobTitle}} candidate in the {{.Industry}} industry.
{{if .JobDescription}}Job description: {{.JobDescription}}
{{end}}Mix behavioral and role-specific questions. Return JSON: {"questions":["..."]}{{end}}
`))

// renderPrompt 渲染指定模板
func renderPrompt(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("渲染提示词 %s 失败: %w", name, err)
	}
	return buf.String(), nil
}
