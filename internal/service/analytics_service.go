package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"academic-mesh/backend/internal/calendar"
	"academic-mesh/backend/internal/dto"
	"academic-mesh/backend/internal/graph"
	"academic-mesh/backend/internal/repository"
)

// HoursPerSession 每个课次计入的学时
const HoursPerSession = 2

// ── 分析模块业务错误 ──

var ErrGroupNotFound = errors.New("班级不存在")

// GraphReader 分析所需的图查询，*graph.Reader 满足该接口
type GraphReader interface {
	RosterForLectures(ctx context.Context, lectureIDs []int64) ([]graph.StudentRef, error)
	ScheduledStudents(ctx context.Context, sessionID int64) ([]graph.StudentRef, error)
	GroupTopology(ctx context.Context, groupID int64) (*graph.GroupTopology, error)
	AudienceReport(ctx context.Context, from, to time.Time) ([]graph.AudienceRow, error)
	GroupTimetable(ctx context.Context, groupID int64) ([]graph.ScheduledSession, error)
}

// AnalyticsService 跨存储考勤分析接口
type AnalyticsService interface {
	// RankWorst 出勤率最低的 topN 名学生，topN <= 0 不截断
	RankWorst(ctx context.Context, lectureIDs []int64, topN int, r calendar.DateRange) ([]dto.AttendanceStat, error)
	// Summarize 全部学生出勤率，按姓名排序
	Summarize(ctx context.Context, lectureIDs []int64, r calendar.DateRange) ([]dto.AttendanceStat, error)
	GenerateGroupReport(ctx context.Context, groupID int64, r calendar.DateRange) (*dto.GroupReport, error)
	AudienceReport(ctx context.Context, year int, half calendar.Half) ([]dto.AudienceRow, error)
	ScheduledStudents(ctx context.Context, sessionID int64) ([]dto.StudentBrief, error)
}

type analyticsService struct {
	repo       *repository.Repository
	attendance AttendanceService
	graph      GraphReader
	logger     *zap.Logger
}

// NewAnalyticsService 创建 AnalyticsService 实例
func NewAnalyticsService(repo *repository.Repository, attendance AttendanceService, reader GraphReader, logger *zap.Logger) AnalyticsService {
	return &analyticsService{
		repo:       repo,
		attendance: attendance,
		graph:      reader,
		logger:     logger,
	}
}

// ────────────────────── RankWorst / Summarize ──────────────────────

func (s *analyticsService) RankWorst(ctx context.Context, lectureIDs []int64, topN int, r calendar.DateRange) ([]dto.AttendanceStat, error) {
	stats, err := s.computeAttendance(ctx, lectureIDs, r)
	if err != nil {
		return nil, err
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Percentage != stats[j].Percentage {
			return stats[i].Percentage < stats[j].Percentage
		}
		if stats[i].Name != stats[j].Name {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].StudentID < stats[j].StudentID
	})
	if topN > 0 && len(stats) > topN {
		stats = stats[:topN]
	}
	return stats, nil
}

func (s *analyticsService) Summarize(ctx context.Context, lectureIDs []int64, r calendar.DateRange) ([]dto.AttendanceStat, error) {
	stats, err := s.computeAttendance(ctx, lectureIDs, r)
	if err != nil {
		return nil, err
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Name != stats[j].Name {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].StudentID < stats[j].StudentID
	})
	return stats, nil
}

// computeAttendance 图中取名单，关系库取课次与事实，按学生合并
// 无任何事实的学生不出现在结果中
func (s *analyticsService) computeAttendance(ctx context.Context, lectureIDs []int64, r calendar.DateRange) ([]dto.AttendanceStat, error) {
	stats := make([]dto.AttendanceStat, 0)
	if err := r.Validate(); err != nil {
		return nil, ErrInvalidDateRange
	}
	if len(lectureIDs) == 0 {
		return stats, nil
	}

	roster, err := s.graph.RosterForLectures(ctx, lectureIDs)
	if err != nil {
		s.logger.Error("查询讲次名单失败", zap.Int64s("lecture_ids", lectureIDs), zap.Error(err))
		return nil, err
	}
	if len(roster) == 0 {
		return stats, nil
	}

	sessions, err := s.repo.Session.ListByLectures(ctx, lectureIDs, r.Lower(), r.UpperExclusive())
	if err != nil {
		s.logger.Error("查询课次失败", zap.Int64s("lecture_ids", lectureIDs), zap.Error(err))
		return nil, err
	}
	if len(sessions) == 0 {
		return stats, nil
	}

	sessionIDs := make([]int64, 0, len(sessions))
	dates := make([]time.Time, 0, len(sessions))
	for _, sess := range sessions {
		sessionIDs = append(sessionIDs, sess.ID)
		dates = append(dates, sess.Date)
	}
	studentIDs := make([]int64, 0, len(roster))
	for _, st := range roster {
		studentIDs = append(studentIDs, st.ID)
	}

	aggs, err := s.attendance.QueryAggregate(ctx, AggregateQuery{
		StudentIDs: studentIDs,
		SessionIDs: sessionIDs,
		Buckets:    calendar.Distinct(dates),
	})
	if err != nil {
		return nil, err
	}

	for _, st := range roster {
		agg, ok := aggs[st.ID]
		if !ok || agg.Total == 0 {
			continue
		}
		stats = append(stats, dto.AttendanceStat{
			StudentID:  st.ID,
			Name:       st.Name,
			Attended:   agg.Attended,
			Total:      agg.Total,
			Percentage: percentage(agg.Attended, agg.Total),
		})
	}
	return stats, nil
}

// percentage 保留两位小数
func percentage(attended, total int64) float64 {
	return math.Round(float64(attended)/float64(total)*100*100) / 100
}

// ────────────────────── GenerateGroupReport ──────────────────────

func (s *analyticsService) GenerateGroupReport(ctx context.Context, groupID int64, r calendar.DateRange) (*dto.GroupReport, error) {
	if err := r.Validate(); err != nil {
		return nil, ErrInvalidDateRange
	}

	topo, err := s.graph.GroupTopology(ctx, groupID)
	if err != nil {
		s.logger.Error("查询班级拓扑失败", zap.Int64("group_id", groupID), zap.Error(err))
		return nil, err
	}
	if topo == nil {
		return nil, ErrGroupNotFound
	}

	report := &dto.GroupReport{
		Group: dto.GroupInfo{
			ID:             topo.GroupID,
			Name:           topo.GroupName,
			DepartmentID:   topo.DepartmentID,
			DepartmentName: topo.DepartmentName,
		},
		HoursPerSession: HoursPerSession,
		Rows:            make([]dto.GroupReportRow, 0, len(topo.Students)),
	}

	// 图中的课次日期可能早于最近一次改期，分桶与区间以关系库为准
	graphIDs := make([]int64, 0, len(topo.Sessions))
	for _, sess := range topo.Sessions {
		graphIDs = append(graphIDs, sess.SessionID)
	}
	sessions, err := s.repo.Session.ListByIDs(ctx, graphIDs)
	if err != nil {
		s.logger.Error("查询课次失败", zap.Int64("group_id", groupID), zap.Error(err))
		return nil, err
	}

	sessionIDs := make([]int64, 0, len(sessions))
	dates := make([]time.Time, 0, len(sessions))
	for _, sess := range sessions {
		if !r.Contains(sess.Date) {
			continue
		}
		sessionIDs = append(sessionIDs, sess.ID)
		dates = append(dates, sess.Date)
	}
	report.Sessions = len(sessionIDs)
	if len(topo.Students) == 0 || len(sessionIDs) == 0 {
		return report, nil
	}

	studentIDs := make([]int64, 0, len(topo.Students))
	for _, st := range topo.Students {
		studentIDs = append(studentIDs, st.ID)
	}
	aggs, err := s.attendance.QueryAggregate(ctx, AggregateQuery{
		StudentIDs: studentIDs,
		SessionIDs: sessionIDs,
		Buckets:    calendar.Distinct(dates),
	})
	if err != nil {
		return nil, err
	}

	planned := int64(HoursPerSession * len(sessionIDs))
	students := append([]graph.StudentRef(nil), topo.Students...)
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
	for _, st := range students {
		attended := HoursPerSession * aggs[st.ID].Attended
		report.Rows = append(report.Rows, dto.GroupReportRow{
			StudentID:      st.ID,
			StudentName:    st.Name,
			PlannedHours:   planned,
			AttendedHours:  attended,
			RemainingHours: planned - attended,
		})
	}
	return report, nil
}

// ────────────────────── AudienceReport ──────────────────────

func (s *analyticsService) AudienceReport(ctx context.Context, year int, half calendar.Half) ([]dto.AudienceRow, error) {
	from, to := calendar.TeachingWindow(year, half)
	rows, err := s.graph.AudienceReport(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("查询受众报告失败", zap.Int("year", year), zap.String("half", string(half)), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AudienceRow, 0, len(rows))
	for _, row := range rows {
		materials := row.Materials
		if materials == nil {
			materials = []string{}
		}
		result = append(result, dto.AudienceRow{
			SessionID:     row.SessionID,
			Date:          row.Date.Format("2006-01-02 15:04"),
			CourseName:    row.CourseName,
			LectureName:   row.LectureName,
			Materials:     materials,
			TotalStudents: row.TotalStudents,
		})
	}
	return result, nil
}

// ────────────────────── ScheduledStudents ──────────────────────

func (s *analyticsService) ScheduledStudents(ctx context.Context, sessionID int64) ([]dto.StudentBrief, error) {
	refs, err := s.graph.ScheduledStudents(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询课次学生失败", zap.Int64("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.StudentBrief, 0, len(refs))
	for _, ref := range refs {
		result = append(result, dto.StudentBrief{ID: ref.ID, Name: ref.Name})
	}
	return result, nil
}
