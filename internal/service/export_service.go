package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"academic-mesh/backend/internal/calendar"
	"academic-mesh/backend/internal/dto"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoData       = errors.New("所选范围内没有可导出的考勤数据")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportAttendance 出勤汇总 + 出勤最差排名，两个 Sheet
	ExportAttendance(ctx context.Context, lectureIDs []int64, topN int, r calendar.DateRange) (*bytes.Buffer, string, error)
	// ExportGroupReport 班级学时报告
	ExportGroupReport(ctx context.Context, groupID int64, r calendar.DateRange) (*bytes.Buffer, string, error)
}

type exportService struct {
	analytics AnalyticsService
	logger    *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(analytics AnalyticsService, logger *zap.Logger) ExportService {
	return &exportService{analytics: analytics, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportAttendance，出勤统计导出
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "出勤汇总"：全部学生，按姓名排序
//   - Sheet "出勤最差"：按出勤率升序，最多 topN 行
//   - 列：学号 / 姓名 / 出勤 / 应到 / 出勤率(%)

func (s *exportService) ExportAttendance(ctx context.Context, lectureIDs []int64, topN int, r calendar.DateRange) (*bytes.Buffer, string, error) {
	summary, err := s.analytics.Summarize(ctx, lectureIDs, r)
	if err != nil {
		return nil, "", err
	}
	if len(summary) == 0 {
		return nil, "", ErrExportNoData
	}
	worst, err := s.analytics.RankWorst(ctx, lectureIDs, topN, r)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	styles := newSheetStyles(f)
	title := fmt.Sprintf("出勤统计 %s", rangeLabel(r))
	writeStatSheet(f, "出勤汇总", title, summary, styles)
	writeStatSheet(f, "出勤最差", title, worst, styles)

	f.DeleteSheet("Sheet1")
	idx, _ := f.GetSheetIndex("出勤汇总")
	f.SetActiveSheet(idx)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, "出勤统计.xlsx", nil
}

func writeStatSheet(f *excelize.File, sheet, title string, stats []dto.AttendanceStat, st sheetStyles) {
	f.NewSheet(sheet)

	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", "B", 20)
	f.SetColWidth(sheet, "C", "E", 12)

	f.SetCellValue(sheet, "A1", title)
	f.MergeCell(sheet, "A1", "E1")
	f.SetCellStyle(sheet, "A1", "A1", st.title)

	headers := []string{"学号", "姓名", "出勤", "应到", "出勤率(%)"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheet, "A2", "E2", st.header)

	row := 3
	for _, stat := range stats {
		f.SetCellValue(sheet, cell("A", row), stat.StudentID)
		f.SetCellValue(sheet, cell("B", row), stat.Name)
		f.SetCellValue(sheet, cell("C", row), stat.Attended)
		f.SetCellValue(sheet, cell("D", row), stat.Total)
		f.SetCellValue(sheet, cell("E", row), stat.Percentage)
		row++
	}
	if row > 3 {
		f.SetCellStyle(sheet, "E3", cell("E", row-1), st.percent)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportGroupReport，班级学时报告导出
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：系 / 班级 / 时间范围
//   - 摘要行：课次数 × 每课次学时
//   - 列：学号 / 姓名 / 计划学时 / 已修学时 / 剩余学时

func (s *exportService) ExportGroupReport(ctx context.Context, groupID int64, r calendar.DateRange) (*bytes.Buffer, string, error) {
	report, err := s.analytics.GenerateGroupReport(ctx, groupID, r)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "学时报告"
	f.NewSheet(sheet)
	f.DeleteSheet("Sheet1")
	idx, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(idx)

	st := newSheetStyles(f)
	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", "B", 20)
	f.SetColWidth(sheet, "C", "E", 12)

	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s %s 学时报告 %s",
		report.Group.DepartmentName, report.Group.Name, rangeLabel(r)))
	f.MergeCell(sheet, "A1", "E1")
	f.SetCellStyle(sheet, "A1", "A1", st.title)

	f.SetCellValue(sheet, "A2", fmt.Sprintf("课次 %d，每课次 %d 学时", report.Sessions, report.HoursPerSession))
	f.MergeCell(sheet, "A2", "E2")

	headers := []string{"学号", "姓名", "计划学时", "已修学时", "剩余学时"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 3), h)
	}
	f.SetCellStyle(sheet, "A3", "E3", st.header)

	row := 4
	for _, rr := range report.Rows {
		f.SetCellValue(sheet, cell("A", row), rr.StudentID)
		f.SetCellValue(sheet, cell("B", row), rr.StudentName)
		f.SetCellValue(sheet, cell("C", row), rr.PlannedHours)
		f.SetCellValue(sheet, cell("D", row), rr.AttendedHours)
		f.SetCellValue(sheet, cell("E", row), rr.RemainingHours)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("学时报告_%s.xlsx", report.Group.Name)
	return buf, filename, nil
}

// ── 辅助函数 ──

type sheetStyles struct {
	title   int
	header  int
	percent int
}

func newSheetStyles(f *excelize.File) sheetStyles {
	title, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	header, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	numFmt := "0.00"
	percent, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	return sheetStyles{title: title, header: header, percent: percent}
}

func rangeLabel(r calendar.DateRange) string {
	from, to := "不限", "不限"
	if r.From != nil {
		from = r.From.Format("2006-01-02")
	}
	if r.To != nil {
		to = r.To.Format("2006-01-02")
	}
	return fmt.Sprintf("(%s ~ %s)", from, to)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
