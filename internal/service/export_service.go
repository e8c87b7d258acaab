package service

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/JoshH2S/tuterra-sub001/internal/auth"
	"github.com/JoshH2S/tuterra-sub001/internal/repository"
	"github.com/JoshH2S/tuterra-sub001/internal/timeline"
	"github.com/JoshH2S/tuterra-sub001/pkg/clock"
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出实习时间线为 Excel (.xlsx)，以 bytes.Buffer 返回，由 Handler 层设置响应头
//   - Sheet "Timeline"：每个任务一行（周次、序号、标题、截止日、开放时间、状态）
//   - Sheet "Messages"：会话内全部计划消息（类型、发送人、计划时间、状态）
type ExportService interface {
	// ExportTimeline 导出实习时间线
	ExportTimeline(ctx context.Context, ac *auth.AuthContext, sessionID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

func newExportService(repo *repository.Repository, clk clock.Clock, logger *zap.Logger) *exportService {
	return &exportService{repo: repo, clock: clk, logger: logger}
}

const (
	sheetTimeline = "Timeline"
	sheetMessages = "Messages"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *exportService) ExportTimeline(ctx context.Context, ac *auth.AuthContext, sessionID string) (*bytes.Buffer, string, error) {
	// 1. 会话与数据
	session, err := loadOwnedSession(ctx, s.repo, s.logger, ac, sessionID)
	if err != nil {
		return nil, "", err
	}
	tasks, err := s.repo.Task.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询任务失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, "", err
	}
	msgs, err := s.repo.ScheduledMessage.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询计划消息失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, "", err
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(sheetTimeline)
	f.SetActiveSheet(idx)
	f.NewSheet(sheetMessages)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	window := timeline.NewWindow(session.StartDate, session.DurationWeeks)
	f.SetCellValue(sheetTimeline, "A1", fmt.Sprintf("%s (%s) %s to %s",
		session.JobTitle, session.Industry, formatDate(window.Start), formatDate(window.End())))
	f.MergeCell(sheetTimeline, "A1", "F1")
	f.SetCellStyle(sheetTimeline, "A1", "A1", headerStyle)

	// Timeline 表头与数据
	writeRow(f, sheetTimeline, 2, "Week", "Order", "Title", "Due Date", "Visible After", "Status")
	f.SetCellStyle(sheetTimeline, "A2", "F2", headerStyle)
	for i, t := range tasks {
		writeRow(f, sheetTimeline, 3+i, t.WeekNumber, t.TaskOrder, t.Title, formatDate(t.DueDate), formatTime(t.VisibleAfter), t.Status)
	}
	f.SetColWidth(sheetTimeline, "A", "B", 8)
	f.SetColWidth(sheetTimeline, "C", "C", 48)
	f.SetColWidth(sheetTimeline, "D", "F", 22)

	// Messages 表头与数据
	writeRow(f, sheetMessages, 1, "Type", "Sender", "Role", "Scheduled For", "Status", "Content")
	f.SetCellStyle(sheetMessages, "A1", "F1", headerStyle)
	for i, m := range msgs {
		writeRow(f, sheetMessages, 2+i, m.Type, m.SenderName, m.SenderRole, formatTime(m.ScheduledFor), m.Status, m.Content)
	}
	f.SetColWidth(sheetMessages, "A", "E", 22)
	f.SetColWidth(sheetMessages, "F", "F", 80)

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	name := strings.Trim(unsafeFilename.ReplaceAllString(session.JobTitle, "_"), "_")
	if name == "" {
		name = "internship"
	}
	filename := fmt.Sprintf("%s_timeline_%s.xlsx", name, formatDate(s.clock.Now()))
	return buf, filename, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}
