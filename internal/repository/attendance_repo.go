package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"academic-mesh/backend/internal/calendar"
	"academic-mesh/backend/internal/model"
)

// ErrSemesterChanged 写入事务内锁定的课次分桶与 fact.Semester 不一致，
// 此时 fact.Semester 已改为课次当前分桶，调用方确保分区后重试
var ErrSemesterChanged = errors.New("课次分桶已变化")

// AggregateFilter 考勤聚合条件
// Buckets 为分区裁剪提示，为空时不限制；From/To 按关联课次日期过滤，To 不含
type AggregateFilter struct {
	StudentIDs []int64
	SessionIDs []int64
	Buckets    []string
	From       *time.Time
	To         *time.Time
}

// StudentAggregate 单个学生的聚合结果
type StudentAggregate struct {
	StudentID int64
	Attended  int64
	Total     int64
}

// AttendanceRepository 考勤事实数据访问接口
type AttendanceRepository interface {
	// Upsert 写入或覆盖 (student, session) 的唯一事实；先清除其他分桶中的残留事实，
	// 返回被清除的行数。事务内以共享锁读取课次，与改期互斥
	Upsert(ctx context.Context, fact *model.Attendance) (int64, error)
	Get(ctx context.Context, studentID, sessionID int64) (*model.Attendance, error)
	Aggregate(ctx context.Context, filter AggregateFilter) ([]StudentAggregate, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Upsert(ctx context.Context, fact *model.Attendance) (int64, error) {
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session model.Session
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id", "date").
			Where("id = ?", fact.SessionID).
			First(&session).Error
		if err != nil {
			return err
		}
		if current := calendar.BucketOf(session.Date).String(); current != fact.Semester {
			fact.Semester = current
			return ErrSemesterChanged
		}

		res := tx.Where("student_id = ? AND session_id = ? AND semester <> ?",
			fact.StudentID, fact.SessionID, fact.Semester).
			Delete(&model.Attendance{})
		if res.Error != nil {
			return res.Error
		}
		moved = res.RowsAffected

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "session_id"}, {Name: "semester"}},
			DoUpdates: clause.AssignmentColumns([]string{"attended"}),
		}).Create(fact).Error
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func (r *attendanceRepo) Get(ctx context.Context, studentID, sessionID int64) (*model.Attendance, error) {
	var fact model.Attendance
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		First(&fact).Error
	if err != nil {
		return nil, err
	}
	return &fact, nil
}

func (r *attendanceRepo) Aggregate(ctx context.Context, filter AggregateFilter) ([]StudentAggregate, error) {
	if len(filter.StudentIDs) == 0 || len(filter.SessionIDs) == 0 {
		return nil, nil
	}

	q := r.db.WithContext(ctx).
		Table("attendance AS a").
		Select("a.student_id, COUNT(*) FILTER (WHERE a.attended) AS attended, COUNT(*) AS total").
		Where("a.student_id IN ? AND a.session_id IN ?", filter.StudentIDs, filter.SessionIDs)

	if len(filter.Buckets) > 0 {
		q = q.Where("a.semester IN ?", filter.Buckets)
	}
	if filter.From != nil || filter.To != nil {
		q = q.Joins("JOIN sessions s ON s.id = a.session_id")
		if filter.From != nil {
			q = q.Where("s.date >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("s.date < ?", *filter.To)
		}
	}

	var rows []StudentAggregate
	err := q.Group("a.student_id").Scan(&rows).Error
	return rows, err
}
