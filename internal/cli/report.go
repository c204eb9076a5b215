package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"academic-mesh/backend/internal/bootstrap"
	"academic-mesh/backend/internal/calendar"
	"academic-mesh/backend/internal/dto"
)

// ReportOptions report 子命令参数
type ReportOptions struct {
	*RootOptions
	LectureIDs []int64
	Top        int
	GroupID    int64
	From       string
	To         string
}

// NewReportCommand 考勤报表
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "考勤报表（worst / summary / group）",
	}
	cmd.PersistentFlags().StringVar(&opts.From, "from", "", "起始日期 YYYY-MM-DD（含）")
	cmd.PersistentFlags().StringVar(&opts.To, "to", "", "结束日期 YYYY-MM-DD（含）")

	worst := &cobra.Command{
		Use:   "worst",
		Short: "出勤率最低的学生",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.dateRange()
			if err != nil {
				return err
			}
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, app *bootstrap.App) error {
				stats, err := app.Service.Analytics.RankWorst(ctx, opts.LectureIDs, opts.Top, r)
				if err != nil {
					return WrapExitError(ExitFailure, "生成报表失败", err)
				}
				return formatter(cmd, opts.RootOptions).Success(stats, func(w io.Writer) { writeStats(w, stats) })
			})
		},
	}
	worst.Flags().Int64SliceVar(&opts.LectureIDs, "lectures", nil, "课程 ID，逗号分隔")
	worst.Flags().IntVar(&opts.Top, "top", 10, "返回人数，<=0 不截断")
	_ = worst.MarkFlagRequired("lectures")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "全部学生出勤率",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.dateRange()
			if err != nil {
				return err
			}
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, app *bootstrap.App) error {
				stats, err := app.Service.Analytics.Summarize(ctx, opts.LectureIDs, r)
				if err != nil {
					return WrapExitError(ExitFailure, "生成报表失败", err)
				}
				return formatter(cmd, opts.RootOptions).Success(stats, func(w io.Writer) { writeStats(w, stats) })
			})
		},
	}
	summary.Flags().Int64SliceVar(&opts.LectureIDs, "lectures", nil, "课程 ID，逗号分隔")
	_ = summary.MarkFlagRequired("lectures")

	group := &cobra.Command{
		Use:   "group",
		Short: "班级学时报告",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.dateRange()
			if err != nil {
				return err
			}
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, app *bootstrap.App) error {
				report, err := app.Service.Analytics.GenerateGroupReport(ctx, opts.GroupID, r)
				if err != nil {
					return WrapExitError(ExitFailure, "生成报表失败", err)
				}
				return formatter(cmd, opts.RootOptions).Success(report, func(w io.Writer) { writeGroupReport(w, report) })
			})
		},
	}
	group.Flags().Int64Var(&opts.GroupID, "group", 0, "班级 ID")
	_ = group.MarkFlagRequired("group")

	cmd.AddCommand(worst, summary, group)
	return cmd
}

func (o *ReportOptions) dateRange() (calendar.DateRange, error) {
	r, err := calendar.ParseDateRange(o.From, o.To)
	if err != nil {
		return r, WrapExitError(ExitCommandError, "日期参数无效", err)
	}
	return r, nil
}

func writeStats(w io.Writer, stats []dto.AttendanceStat) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "学号\t姓名\t出勤\t应到\t出勤率")
	for _, s := range stats {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.2f%%\n", s.StudentID, s.Name, s.Attended, s.Total, s.Percentage)
	}
	tw.Flush()
}

func writeGroupReport(w io.Writer, report *dto.GroupReport) {
	fmt.Fprintf(w, "%s（%s）课次 %d，每课次 %d 学时\n",
		report.Group.Name, report.Group.DepartmentName, report.Sessions, report.HoursPerSession)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "学号\t姓名\t计划学时\t已修学时\t剩余学时")
	for _, row := range report.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", row.StudentID, row.StudentName, row.PlannedHours, row.AttendedHours, row.RemainingHours)
	}
	tw.Flush()
}
