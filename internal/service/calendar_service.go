package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"academic-mesh/backend/internal/calendar"
)

const icsProductID = "-//academic-mesh//timetable//CN"

// CalendarService 班级课表导出（iCalendar）
type CalendarService interface {
	// GroupTimetable 返回 .ics 内容与文件名；每个课次为一个持续 HoursPerSession 小时的事件
	GroupTimetable(ctx context.Context, groupID int64, r calendar.DateRange) ([]byte, string, error)
}

type calendarService struct {
	graph  GraphReader
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(reader GraphReader, logger *zap.Logger) CalendarService {
	return &calendarService{graph: reader, logger: logger}
}

func (s *calendarService) GroupTimetable(ctx context.Context, groupID int64, r calendar.DateRange) ([]byte, string, error) {
	if err := r.Validate(); err != nil {
		return nil, "", ErrInvalidDateRange
	}

	topo, err := s.graph.GroupTopology(ctx, groupID)
	if err != nil {
		s.logger.Error("查询班级拓扑失败", zap.Int64("group_id", groupID), zap.Error(err))
		return nil, "", err
	}
	if topo == nil {
		return nil, "", ErrGroupNotFound
	}

	sessions, err := s.graph.GroupTimetable(ctx, groupID)
	if err != nil {
		s.logger.Error("查询班级课表失败", zap.Int64("group_id", groupID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(fmt.Sprintf("%s 课表", topo.GroupName))

	stamp := time.Now().UTC()
	for _, sess := range sessions {
		if !r.Contains(sess.Date) {
			continue
		}
		event := cal.AddEvent(fmt.Sprintf("session-%d@academic-mesh", sess.SessionID))
		event.SetDtStampTime(stamp)
		event.SetStartAt(sess.Date)
		event.SetEndAt(sess.Date.Add(HoursPerSession * time.Hour))
		event.SetSummary(fmt.Sprintf("%s · %s", sess.CourseName, sess.LectureName))
		event.SetDescription(fmt.Sprintf("%s / %s", topo.DepartmentName, topo.GroupName))
	}

	filename := fmt.Sprintf("课表_%s.ics", topo.GroupName)
	return []byte(cal.Serialize()), filename, nil
}
