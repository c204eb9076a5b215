package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"academic-mesh/backend/internal/dto"
	"academic-mesh/backend/internal/model"
	"academic-mesh/backend/internal/repository"
	"academic-mesh/backend/pkg/redis"
)

// ── 学生缓存业务错误 ──

var ErrProfileNotCached = errors.New("学生档案未缓存")

// StudentCache 学生档案缓存，*redis.Client 满足该接口
type StudentCache interface {
	PutStudents(ctx context.Context, students []redis.StudentEntry) error
	GetStudent(ctx context.Context, id int64) (*redis.StudentEntry, error)
	SearchByName(ctx context.Context, fragment string) ([]int64, error)
}

// StudentService 学生档案缓存同步与查询
type StudentService interface {
	// SyncCache 将全部学生写入缓存，返回写入数量
	SyncCache(ctx context.Context) (int, error)
	GetProfile(ctx context.Context, id int64) (*dto.StudentProfile, error)
	SearchByName(ctx context.Context, fragment string) ([]dto.StudentProfile, error)
}

type studentService struct {
	repo   *repository.Repository
	cache  StudentCache
	logger *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, cache StudentCache, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, cache: cache, logger: logger}
}

func (s *studentService) SyncCache(ctx context.Context) (int, error) {
	rec := startRun(ctx, s.repo, model.SyncJobStudents, s.logger)

	students, err := s.repo.Student.ListWithGroup(ctx)
	if err != nil {
		s.logger.Error("查询学生失败", zap.Error(err))
		rec.finish(ctx, nil, err)
		return 0, err
	}

	entries := make([]redis.StudentEntry, 0, len(students))
	for _, st := range students {
		entry := redis.StudentEntry{
			ID:   st.ID,
			Name: st.Name,
			Age:  st.Age,
			Mail: st.Mail,
		}
		if st.Group != nil {
			entry.Group = st.Group.Name
		}
		entries = append(entries, entry)
	}

	stats := map[string]int{"students": len(entries)}
	if err := s.cache.PutStudents(ctx, entries); err != nil {
		s.logger.Error("写入学生缓存失败", zap.Error(err))
		rec.finish(ctx, stats, err)
		return 0, err
	}

	s.logger.Info("学生缓存已同步", zap.Int("students", len(entries)))
	rec.finish(ctx, stats, nil)
	return len(entries), nil
}

func (s *studentService) GetProfile(ctx context.Context, id int64) (*dto.StudentProfile, error) {
	entry, err := s.cache.GetStudent(ctx, id)
	if err != nil {
		s.logger.Error("读取学生缓存失败", zap.Int64("student_id", id), zap.Error(err))
		return nil, err
	}
	if entry == nil {
		return nil, ErrProfileNotCached
	}
	return toStudentProfile(entry), nil
}

func (s *studentService) SearchByName(ctx context.Context, fragment string) ([]dto.StudentProfile, error) {
	ids, err := s.cache.SearchByName(ctx, fragment)
	if err != nil {
		s.logger.Error("检索学生缓存失败", zap.String("fragment", fragment), zap.Error(err))
		return nil, err
	}

	result := make([]dto.StudentProfile, 0, len(ids))
	for _, id := range ids {
		entry, err := s.cache.GetStudent(ctx, id)
		if err != nil {
			return nil, err
		}
		// 索引残留但档案已失效
		if entry == nil {
			continue
		}
		result = append(result, *toStudentProfile(entry))
	}
	return result, nil
}

func toStudentProfile(e *redis.StudentEntry) *dto.StudentProfile {
	return &dto.StudentProfile{
		ID:    e.ID,
		Name:  e.Name,
		Age:   e.Age,
		Mail:  e.Mail,
		Group: e.Group,
	}
}
