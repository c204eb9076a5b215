package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"academic-mesh/backend/internal/calendar"
	"academic-mesh/backend/internal/graph"
)

// ── 测试辅助 ──

func setupTestAnalyticsService(w *mockWorld) (AnalyticsService, *fakeGraph) {
	repo := w.repository()
	logger := zap.NewNop()
	attendance := NewAttendanceService(repo, NewPartitionManager(repo, logger), logger)
	g := &fakeGraph{w: w}
	return NewAnalyticsService(repo, attendance, g, logger), g
}

// ── Summarize / RankWorst 测试 ──

func TestAnalyticsService_Summarize_Scenario(t *testing.T) {
	svc, _ := setupTestAnalyticsService(newScenarioWorld())

	stats, err := svc.Summarize(context.Background(), []int64{100}, calendar.DateRange{})
	if err != nil {
		t.Fatalf("Summarize 应成功: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("期望 2 名学生（无事实的学生被排除），实际 %d", len(stats))
	}
	if stats[0].StudentID != 1 || stats[0].Percentage != 100.00 {
		t.Errorf("学生 1 期望 100.00%%，实际 %+v", stats[0])
	}
	if stats[1].StudentID != 2 || stats[1].Percentage != 50.00 {
		t.Errorf("学生 2 期望 50.00%%，实际 %+v", stats[1])
	}
	for _, s := range stats {
		if s.StudentID == 3 {
			t.Error("学生 3 应被排除")
		}
	}
}

func TestAnalyticsService_RankWorst_TopOne(t *testing.T) {
	svc, _ := setupTestAnalyticsService(newScenarioWorld())

	stats, err := svc.RankWorst(context.Background(), []int64{100}, 1, calendar.DateRange{})
	if err != nil {
		t.Fatalf("RankWorst 应成功: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("topN=1 期望 1 条，实际 %d", len(stats))
	}
	if stats[0].StudentID != 2 {
		t.Errorf("出勤率最低的应为学生 2，实际 %d", stats[0].StudentID)
	}
}

func TestAnalyticsService_RankWorst_NoTruncation(t *testing.T) {
	svc, _ := setupTestAnalyticsService(newScenarioWorld())

	stats, err := svc.RankWorst(context.Background(), []int64{100}, 0, calendar.DateRange{})
	if err != nil {
		t.Fatalf("RankWorst 应成功: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("topN<=0 不应截断，期望 2 条，实际 %d", len(stats))
	}
	if stats[0].StudentID != 2 || stats[1].StudentID != 1 {
		t.Errorf("应按出勤率升序: %+v", stats)
	}
}

func TestAnalyticsService_RankWorst_TiesByName(t *testing.T) {
	w := newScenarioWorld()
	w.addStudent(4, "Aaron", 10)
	w.putFact(4, 1000, "2024_spring", true)
	w.putFact(4, 1001, "2024_spring", false)
	svc, _ := setupTestAnalyticsService(w)

	stats, err := svc.RankWorst(context.Background(), []int64{100}, 0, calendar.DateRange{})
	if err != nil {
		t.Fatalf("RankWorst 应成功: %v", err)
	}
	if len(stats) != 3 || stats[0].Name != "Aaron" || stats[1].Name != "Bob" {
		t.Errorf("同出勤率应按姓名排序: %+v", stats)
	}
}

func TestAnalyticsService_Percentage_Rounded(t *testing.T) {
	if got := percentage(1, 3); got != 33.33 {
		t.Errorf("1/3 期望 33.33，实际 %v", got)
	}
	if got := percentage(2, 3); got != 66.67 {
		t.Errorf("2/3 期望 66.67，实际 %v", got)
	}
}

func TestAnalyticsService_EmptyInputs(t *testing.T) {
	svc, _ := setupTestAnalyticsService(newScenarioWorld())
	ctx := context.Background()

	stats, err := svc.Summarize(ctx, nil, calendar.DateRange{})
	if err != nil || len(stats) != 0 {
		t.Errorf("空讲次列表应返回空结果: %v %v", stats, err)
	}
	stats, err = svc.Summarize(ctx, []int64{404}, calendar.DateRange{})
	if err != nil || len(stats) != 0 {
		t.Errorf("无名单的讲次应返回空结果: %v %v", stats, err)
	}

	future := date(2030, time.January, 1)
	stats, err = svc.Summarize(ctx, []int64{100}, calendar.DateRange{From: &future})
	if err != nil || len(stats) != 0 {
		t.Errorf("区间内无课次应返回空结果: %v %v", stats, err)
	}
}

func TestAnalyticsService_Summarize_DateRangeInclusive(t *testing.T) {
	svc, _ := setupTestAnalyticsService(newScenarioWorld())

	// 结束日当天 10:00 的课次应计入
	day := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	stats, err := svc.Summarize(context.Background(), []int64{100}, calendar.DateRange{From: &day, To: &day})
	if err != nil {
		t.Fatalf("Summarize 应成功: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("期望 2 名学生，实际 %d", len(stats))
	}
	if stats[1].StudentID != 2 || stats[1].Percentage != 0 || stats[1].Total != 1 {
		t.Errorf("学生 2 在 3/11 缺勤，期望 0/1，实际 %+v", stats[1])
	}
}

func TestAnalyticsService_GraphError(t *testing.T) {
	svc, g := setupTestAnalyticsService(newScenarioWorld())
	g.err = errors.New("neo4j unavailable")

	if _, err := svc.Summarize(context.Background(), []int64{100}, calendar.DateRange{}); err == nil {
		t.Error("图查询失败应返回错误")
	}
}

// ── GenerateGroupReport 测试 ──

func TestAnalyticsService_GenerateGroupReport(t *testing.T) {
	svc, _ := setupTestAnalyticsService(newScenarioWorld())

	report, err := svc.GenerateGroupReport(context.Background(), 10, calendar.DateRange{})
	if err != nil {
		t.Fatalf("GenerateGroupReport 应成功: %v", err)
	}
	if report.Group.Name != "G-101" || report.Group.DepartmentName != "计算机系" {
		t.Errorf("班级信息错误: %+v", report.Group)
	}
	if report.Sessions != 2 || report.HoursPerSession != HoursPerSession {
		t.Errorf("期望 2 个课次每次 %d 学时，实际 %+v", HoursPerSession, report)
	}

	want := []struct {
		name                        string
		planned, attended, remained int64
	}{
		{"Alice", 4, 4, 0},
		{"Bob", 4, 2, 2},
		{"Carol", 4, 0, 4},
	}
	if len(report.Rows) != len(want) {
		t.Fatalf("期望 %d 行，实际 %d", len(want), len(report.Rows))
	}
	for i, w := range want {
		r := report.Rows[i]
		if r.StudentName != w.name || r.PlannedHours != w.planned || r.AttendedHours != w.attended || r.RemainingHours != w.remained {
			t.Errorf("第 %d 行期望 %+v，实际 %+v", i, w, r)
		}
	}
}

func TestAnalyticsService_GenerateGroupReport_RangeFilter(t *testing.T) {
	svc, _ := setupTestAnalyticsService(newScenarioWorld())

	day := date(2024, time.March, 11)
	report, err := svc.GenerateGroupReport(context.Background(), 10, calendar.DateRange{From: &day, To: &day})
	if err != nil {
		t.Fatalf("GenerateGroupReport 应成功: %v", err)
	}
	if report.Sessions != 1 {
		t.Fatalf("区间内期望 1 个课次，实际 %d", report.Sessions)
	}
	if report.Rows[1].StudentName != "Bob" || report.Rows[1].AttendedHours != 0 || report.Rows[1].RemainingHours != 2 {
		t.Errorf("Bob 在 3/11 缺勤，实际 %+v", report.Rows[1])
	}
}

func TestAnalyticsService_GenerateGroupReport_StaleGraphDates(t *testing.T) {
	w := newScenarioWorld()
	svc, g := setupTestAnalyticsService(w)
	ctx := context.Background()

	// 图中保留改期前的课次日期
	stale, err := g.GroupTopology(ctx, 10)
	if err != nil {
		t.Fatalf("GroupTopology 应成功: %v", err)
	}
	g.topology = stale

	repo := w.repository()
	attendance := NewAttendanceService(repo, NewPartitionManager(repo, zap.NewNop()), zap.NewNop())
	if _, err := attendance.RescheduleSession(ctx, 1001, date(2024, time.September, 9)); err != nil {
		t.Fatalf("RescheduleSession 应成功: %v", err)
	}

	report, err := svc.GenerateGroupReport(ctx, 10, calendar.DateRange{})
	if err != nil {
		t.Fatalf("GenerateGroupReport 应成功: %v", err)
	}
	alice := report.Rows[0]
	if alice.StudentName != "Alice" || alice.PlannedHours != 4 || alice.AttendedHours != 4 || alice.RemainingHours != 0 {
		t.Errorf("Alice 两次出勤应计 4 学时，实际 %+v", alice)
	}

	// 区间按关系库中的新日期过滤
	day := date(2024, time.September, 9)
	report, err = svc.GenerateGroupReport(ctx, 10, calendar.DateRange{From: &day, To: &day})
	if err != nil {
		t.Fatalf("GenerateGroupReport 应成功: %v", err)
	}
	if report.Sessions != 1 || report.Rows[0].AttendedHours != 2 {
		t.Errorf("9/9 区间期望 1 个课次且 Alice 计 2 学时，实际 %+v", report)
	}
}

func TestAnalyticsService_GenerateGroupReport_NotFound(t *testing.T) {
	svc, _ := setupTestAnalyticsService(newScenarioWorld())

	_, err := svc.GenerateGroupReport(context.Background(), 999, calendar.DateRange{})
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("期望 ErrGroupNotFound，实际: %v", err)
	}
}

func TestAnalyticsService_GenerateGroupReport_NoSessions(t *testing.T) {
	w := newScenarioWorld()
	w.addGroup(20, "G-201", 6, "数学系")
	w.addStudent(7, "Dave", 20)
	svc, _ := setupTestAnalyticsService(w)

	report, err := svc.GenerateGroupReport(context.Background(), 20, calendar.DateRange{})
	if err != nil {
		t.Fatalf("GenerateGroupReport 应成功: %v", err)
	}
	if report.Sessions != 0 || len(report.Rows) != 0 {
		t.Errorf("无课次时应返回空报告: %+v", report)
	}
}

// ── AudienceReport / ScheduledStudents 测试 ──

func TestAnalyticsService_AudienceReport_TeachingWindow(t *testing.T) {
	svc, g := setupTestAnalyticsService(newScenarioWorld())
	g.audience = []graph.AudienceRow{{
		SessionID:     1,
		Date:          time.Date(2024, time.October, 1, 9, 30, 0, 0, time.UTC),
		CourseName:    "操作系统",
		LectureName:   "进程调度",
		TotalStudents: 30,
	}}

	rows, err := svc.AudienceReport(context.Background(), 2024, calendar.Fall)
	if err != nil {
		t.Fatalf("AudienceReport 应成功: %v", err)
	}
	if !g.audienceFrom.Equal(time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("窗口起点错误: %v", g.audienceFrom)
	}
	if !g.audienceTo.Equal(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("窗口终点应为 1/31 次日零点: %v", g.audienceTo)
	}
	if len(rows) != 1 || rows[0].Date != "2024-10-01 09:30" || rows[0].Materials == nil {
		t.Errorf("受众报告行不符合预期: %+v", rows)
	}
}

func TestAnalyticsService_ScheduledStudents(t *testing.T) {
	svc, _ := setupTestAnalyticsService(newScenarioWorld())

	students, err := svc.ScheduledStudents(context.Background(), 1000)
	if err != nil {
		t.Fatalf("ScheduledStudents 应成功: %v", err)
	}
	if len(students) != 3 || students[0].Name != "Alice" {
		t.Errorf("课次 1000 应面向 3 名学生: %+v", students)
	}
}
