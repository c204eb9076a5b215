package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"academic-mesh/backend/internal/calendar"
	"academic-mesh/backend/internal/model"
	"academic-mesh/backend/internal/repository"
)

// ── 考勤模块业务错误 ──

var (
	ErrSessionNotFound  = errors.New("课次不存在")
	ErrStudentNotFound  = errors.New("学生不存在")
	ErrInvalidDateRange = calendar.ErrInvalidRange
)

// maxUpsertAttempts 写入期间课次连续改期时的最大尝试次数
const maxUpsertAttempts = 5

// AggregateQuery 考勤聚合条件
// Buckets 只是分区裁剪提示，为空表示扫描全部分区；提示过期会静默少计
type AggregateQuery struct {
	StudentIDs []int64
	SessionIDs []int64
	Buckets    []calendar.BucketKey
	Range      calendar.DateRange
}

// Aggregate 单个学生的出勤计数
type Aggregate struct {
	Attended int64
	Total    int64
}

// AttendanceService 考勤事实业务接口
type AttendanceService interface {
	// UpsertFact 记录考勤，同一 (学生, 课次) 至多一条事实
	UpsertFact(ctx context.Context, studentID, sessionID int64, attended bool) error
	QueryAggregate(ctx context.Context, q AggregateQuery) (map[int64]Aggregate, error)
	// CheckAttendance 无事实记录视为缺勤
	CheckAttendance(ctx context.Context, studentID, sessionID int64) (bool, error)
	// RescheduleSession 改期并将该课次的事实迁移到新分桶
	RescheduleSession(ctx context.Context, sessionID int64, date time.Time) (*model.Session, error)
	DeleteSession(ctx context.Context, sessionID int64) error
	DeleteStudent(ctx context.Context, studentID int64) error
}

type attendanceService struct {
	repo       *repository.Repository
	partitions PartitionManager
	logger     *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, partitions PartitionManager, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, partitions: partitions, logger: logger}
}

// ────────────────────── UpsertFact ──────────────────────

func (s *attendanceService) UpsertFact(ctx context.Context, studentID, sessionID int64, attended bool) error {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.Int64("session_id", sessionID), zap.Error(err))
		return err
	}
	if _, err := s.repo.Student.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.Int64("student_id", studentID), zap.Error(err))
		return err
	}

	fact := &model.Attendance{
		StudentID: studentID,
		SessionID: sessionID,
		Semester:  calendar.BucketOf(session.Date).String(),
		Attended:  attended,
	}
	for attempt := 1; ; attempt++ {
		bucket, err := calendar.ParseBucketKey(fact.Semester)
		if err != nil {
			return err
		}
		if err := s.partitions.EnsurePartition(ctx, bucket); err != nil {
			return err
		}

		moved, err := s.repo.Attendance.Upsert(ctx, fact)
		switch {
		case err == nil:
			if moved > 0 {
				s.logger.Warn("考勤事实分桶已过期，迁移到课次当前分桶",
					zap.Int64("student_id", studentID),
					zap.Int64("session_id", sessionID),
					zap.String("to", fact.Semester),
				)
			}
			return nil
		case errors.Is(err, repository.ErrSemesterChanged) && attempt < maxUpsertAttempts:
			// 课次在读取后被改期，按新分桶重试
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrSessionNotFound
		default:
			s.logger.Error("写入考勤失败",
				zap.Int64("student_id", studentID),
				zap.Int64("session_id", sessionID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
	}
}

// ────────────────────── QueryAggregate ──────────────────────

func (s *attendanceService) QueryAggregate(ctx context.Context, q AggregateQuery) (map[int64]Aggregate, error) {
	result := make(map[int64]Aggregate)
	if len(q.StudentIDs) == 0 || len(q.SessionIDs) == 0 {
		return result, nil
	}
	if err := q.Range.Validate(); err != nil {
		return nil, ErrInvalidDateRange
	}

	filter := repository.AggregateFilter{
		StudentIDs: q.StudentIDs,
		SessionIDs: q.SessionIDs,
		From:       q.Range.Lower(),
		To:         q.Range.UpperExclusive(),
	}
	for _, b := range q.Buckets {
		filter.Buckets = append(filter.Buckets, b.String())
	}

	rows, err := s.repo.Attendance.Aggregate(ctx, filter)
	if err != nil {
		s.logger.Error("聚合考勤失败", zap.Error(err))
		return nil, err
	}
	for _, r := range rows {
		result[r.StudentID] = Aggregate{Attended: r.Attended, Total: r.Total}
	}
	return result, nil
}

// ────────────────────── CheckAttendance ──────────────────────

func (s *attendanceService) CheckAttendance(ctx context.Context, studentID, sessionID int64) (bool, error) {
	fact, err := s.repo.Attendance.Get(ctx, studentID, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		s.logger.Error("查询考勤失败", zap.Error(err))
		return false, err
	}
	return fact.Attended, nil
}

// ────────────────────── RescheduleSession ──────────────────────

func (s *attendanceService) RescheduleSession(ctx context.Context, sessionID int64, date time.Time) (*model.Session, error) {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.Int64("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	// 先建好目标分区，事实行才能在事务内移动过去
	if err := s.partitions.EnsurePartition(ctx, calendar.BucketOf(date)); err != nil {
		return nil, err
	}

	previous := session.Semester
	session.Date = date
	if err := s.repo.Session.Reschedule(ctx, session); err != nil {
		s.logger.Error("课次改期失败", zap.Int64("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("课次改期失败: %w", err)
	}

	s.logger.Info("课次已改期",
		zap.Int64("session_id", sessionID),
		zap.Time("date", date),
		zap.String("from", previous),
		zap.String("to", session.Semester),
	)
	return session, nil
}

// ────────────────────── Delete ──────────────────────

func (s *attendanceService) DeleteSession(ctx context.Context, sessionID int64) error {
	if err := s.repo.Session.DeleteWithFacts(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		s.logger.Error("删除课次失败", zap.Int64("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}

func (s *attendanceService) DeleteStudent(ctx context.Context, studentID int64) error {
	if err := s.repo.Student.DeleteWithFacts(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		s.logger.Error("删除学生失败", zap.Int64("student_id", studentID), zap.Error(err))
		return err
	}
	return nil
}
