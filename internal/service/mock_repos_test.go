package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"academic-mesh/backend/internal/graph"
	"academic-mesh/backend/internal/model"
	"academic-mesh/backend/internal/repository"
	"academic-mesh/backend/pkg/redis"
)

// ── 内存世界：模拟关系库与分区行为 ──

// errNoPartition 对应 Postgres 写入缺失分区时的报错
var errNoPartition = errors.New("no partition of relation \"attendance\" found for row")

type factKey struct {
	StudentID int64
	SessionID int64
	Semester  string
}

type mockWorld struct {
	mu sync.Mutex

	groups   map[int64]*model.Group
	students map[int64]*model.Student
	sessions map[int64]*model.Session
	facts    map[factKey]*model.Attendance

	partitions  map[string]bool
	createCalls map[string]int
	createErr   map[string]error
	createDelay time.Duration

	// 图侧元数据
	deptOf      map[int64]int64 // group → department
	deptNames   map[int64]string
	lectureDept map[int64]int64 // lecture → department
	lectureName map[int64]string

	runs []*model.SyncRun
}

func newMockWorld() *mockWorld {
	return &mockWorld{
		groups:      make(map[int64]*model.Group),
		students:    make(map[int64]*model.Student),
		sessions:    make(map[int64]*model.Session),
		facts:       make(map[factKey]*model.Attendance),
		partitions:  make(map[string]bool),
		createCalls: make(map[string]int),
		createErr:   make(map[string]error),
		deptOf:      make(map[int64]int64),
		deptNames:   make(map[int64]string),
		lectureDept: make(map[int64]int64),
		lectureName: make(map[int64]string),
	}
}

func (w *mockWorld) addGroup(id int64, name string, deptID int64, deptName string) {
	w.groups[id] = &model.Group{ID: id, Name: name}
	w.deptOf[id] = deptID
	w.deptNames[deptID] = deptName
}

func (w *mockWorld) addStudent(id int64, name string, groupID int64) {
	w.students[id] = &model.Student{ID: id, Name: name, Age: 20, Mail: fmt.Sprintf("s%d@uni.test", id), GroupID: groupID}
}

func (w *mockWorld) addLecture(id int64, name string, deptID int64) {
	w.lectureDept[id] = deptID
	w.lectureName[id] = name
}

func (w *mockWorld) addSession(id, lectureID, groupID int64, date time.Time) {
	s := &model.Session{ID: id, Date: date, LectureID: lectureID, GroupID: groupID}
	_ = s.BeforeSave(nil)
	w.sessions[id] = s
}

// putFact 绕过服务层直接写入事实，用于构造过期分桶
func (w *mockWorld) putFact(studentID, sessionID int64, semester string, attended bool) {
	w.partitions[semester] = true
	w.facts[factKey{studentID, sessionID, semester}] = &model.Attendance{
		StudentID: studentID, SessionID: sessionID, Semester: semester, Attended: attended,
	}
}

func (w *mockWorld) factsFor(studentID, sessionID int64) []model.Attendance {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []model.Attendance
	for k, f := range w.facts {
		if k.StudentID == studentID && k.SessionID == sessionID {
			out = append(out, *f)
		}
	}
	return out
}

func (w *mockWorld) repository() *repository.Repository {
	return &repository.Repository{
		Session:    &mockSessionRepo{w: w},
		Student:    &mockStudentRepo{w: w},
		Attendance: &mockAttendanceRepo{w: w},
		Partition:  &mockPartitionRepo{w: w},
		SyncRun:    &mockSyncRunRepo{w: w},
	}
}

// ── Mock SessionRepository ──

type mockSessionRepo struct{ w *mockWorld }

func (m *mockSessionRepo) GetByID(_ context.Context, id int64) (*model.Session, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if s, ok := m.w.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) ListByLectures(_ context.Context, lectureIDs []int64, from, to *time.Time) ([]model.Session, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	wanted := make(map[int64]bool, len(lectureIDs))
	for _, id := range lectureIDs {
		wanted[id] = true
	}
	var out []model.Session
	for _, s := range m.w.sessions {
		if !wanted[s.LectureID] {
			continue
		}
		if from != nil && s.Date.Before(*from) {
			continue
		}
		if to != nil && !s.Date.Before(*to) {
			continue
		}
		out = append(out, *s)
	}
	sortSessions(out)
	return out, nil
}

func (m *mockSessionRepo) ListByIDs(_ context.Context, ids []int64) ([]model.Session, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var out []model.Session
	for _, id := range ids {
		if s, ok := m.w.sessions[id]; ok {
			out = append(out, *s)
		}
	}
	sortSessions(out)
	return out, nil
}

func (m *mockSessionRepo) Reschedule(_ context.Context, session *model.Session) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	_ = session.BeforeSave(nil)
	if !m.w.partitions[session.Semester] {
		for k := range m.w.facts {
			if k.SessionID == session.ID && k.Semester != session.Semester {
				return errNoPartition
			}
		}
	}
	cp := *session
	m.w.sessions[session.ID] = &cp
	for k, f := range m.w.facts {
		if k.SessionID != session.ID || k.Semester == session.Semester {
			continue
		}
		delete(m.w.facts, k)
		moved := *f
		moved.Semester = session.Semester
		m.w.facts[factKey{k.StudentID, k.SessionID, session.Semester}] = &moved
	}
	return nil
}

func (m *mockSessionRepo) DeleteWithFacts(_ context.Context, id int64) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if _, ok := m.w.sessions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for k := range m.w.facts {
		if k.SessionID == id {
			delete(m.w.facts, k)
		}
	}
	delete(m.w.sessions, id)
	return nil
}

func sortSessions(s []model.Session) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].Date.Equal(s[j].Date) {
			return s[i].Date.Before(s[j].Date)
		}
		return s[i].ID < s[j].ID
	})
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	w       *mockWorld
	listErr error
}

func (m *mockStudentRepo) GetByID(_ context.Context, id int64) (*model.Student, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if s, ok := m.w.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListWithGroup(_ context.Context) ([]model.Student, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var out []model.Student
	for _, s := range m.w.students {
		cp := *s
		cp.Group = m.w.groups[s.GroupID]
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStudentRepo) DeleteWithFacts(_ context.Context, id int64) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	if _, ok := m.w.students[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for k := range m.w.facts {
		if k.StudentID == id {
			delete(m.w.facts, k)
		}
	}
	delete(m.w.students, id)
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	w          *mockWorld
	aggregates []repository.AggregateFilter

	// beforeUpsert 在写入事务开始前执行一次，用于插入并发改期
	beforeUpsert func()
	upserts      int
}

func (m *mockAttendanceRepo) Upsert(_ context.Context, fact *model.Attendance) (int64, error) {
	if hook := m.beforeUpsert; hook != nil {
		m.beforeUpsert = nil
		hook()
	}

	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	m.upserts++
	session, ok := m.w.sessions[fact.SessionID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	if session.Semester != fact.Semester {
		fact.Semester = session.Semester
		return 0, repository.ErrSemesterChanged
	}
	if !m.w.partitions[fact.Semester] {
		return 0, errNoPartition
	}
	var moved int64
	for k := range m.w.facts {
		if k.StudentID == fact.StudentID && k.SessionID == fact.SessionID && k.Semester != fact.Semester {
			delete(m.w.facts, k)
			moved++
		}
	}
	cp := *fact
	m.w.facts[factKey{fact.StudentID, fact.SessionID, fact.Semester}] = &cp
	return moved, nil
}

func (m *mockAttendanceRepo) Get(_ context.Context, studentID, sessionID int64) (*model.Attendance, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	for k, f := range m.w.facts {
		if k.StudentID == studentID && k.SessionID == sessionID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) Aggregate(_ context.Context, filter repository.AggregateFilter) ([]repository.StudentAggregate, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	m.aggregates = append(m.aggregates, filter)

	students := toSet(filter.StudentIDs)
	sessions := toSet(filter.SessionIDs)
	buckets := make(map[string]bool, len(filter.Buckets))
	for _, b := range filter.Buckets {
		buckets[b] = true
	}

	byStudent := make(map[int64]*repository.StudentAggregate)
	for k, f := range m.w.facts {
		if !students[k.StudentID] || !sessions[k.SessionID] {
			continue
		}
		if len(buckets) > 0 && !buckets[k.Semester] {
			continue
		}
		if filter.From != nil || filter.To != nil {
			s, ok := m.w.sessions[k.SessionID]
			if !ok {
				continue
			}
			if filter.From != nil && s.Date.Before(*filter.From) {
				continue
			}
			if filter.To != nil && !s.Date.Before(*filter.To) {
				continue
			}
		}
		agg, ok := byStudent[k.StudentID]
		if !ok {
			agg = &repository.StudentAggregate{StudentID: k.StudentID}
			byStudent[k.StudentID] = agg
		}
		agg.Total++
		if f.Attended {
			agg.Attended++
		}
	}

	out := make([]repository.StudentAggregate, 0, len(byStudent))
	for _, agg := range byStudent {
		out = append(out, *agg)
	}
	return out, nil
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// ── Mock PartitionRepository ──

type mockPartitionRepo struct{ w *mockWorld }

func (m *mockPartitionRepo) Create(_ context.Context, bucket string) error {
	m.w.mu.Lock()
	m.w.createCalls[bucket]++
	err := m.w.createErr[bucket]
	delay := m.w.createDelay
	m.w.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return err
	}

	m.w.mu.Lock()
	m.w.partitions[bucket] = true
	m.w.mu.Unlock()
	return nil
}

func (m *mockPartitionRepo) List(_ context.Context) ([]string, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	out := make([]string, 0, len(m.w.partitions))
	for b := range m.w.partitions {
		out = append(out, b)
	}
	sort.Strings(out)
	return out, nil
}

// ── Mock SyncRunRepository ──

type mockSyncRunRepo struct{ w *mockWorld }

func (m *mockSyncRunRepo) Start(_ context.Context, job string) (*model.SyncRun, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	run := &model.SyncRun{
		ID:        fmt.Sprintf("run-%d", len(m.w.runs)+1),
		Job:       job,
		Status:    model.SyncStatusRunning,
		StartedAt: time.Now(),
	}
	m.w.runs = append(m.w.runs, run)
	return run, nil
}

func (m *mockSyncRunRepo) Finish(_ context.Context, id string, status string, stats datatypes.JSON, errMsg string) error {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	for _, r := range m.w.runs {
		if r.ID == id {
			now := time.Now()
			r.Status = status
			r.Stats = stats
			r.Error = errMsg
			r.FinishedAt = &now
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockSyncRunRepo) List(_ context.Context, job string, offset, limit int) ([]model.SyncRun, int64, error) {
	m.w.mu.Lock()
	defer m.w.mu.Unlock()
	var all []model.SyncRun
	for i := len(m.w.runs) - 1; i >= 0; i-- {
		if job == "" || m.w.runs[i].Job == job {
			all = append(all, *m.w.runs[i])
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return []model.SyncRun{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Fake 图查询：由内存世界推导拓扑 ──

type fakeGraph struct {
	w            *mockWorld
	audience     []graph.AudienceRow
	audienceFrom time.Time
	audienceTo   time.Time
	counts       graph.Counts
	err          error

	// topology 非空时原样返回，模拟尚未重新同步的图
	topology *graph.GroupTopology
}

func (g *fakeGraph) RosterForLectures(_ context.Context, lectureIDs []int64) ([]graph.StudentRef, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.w.mu.Lock()
	defer g.w.mu.Unlock()
	lectures := toSet(lectureIDs)
	groups := make(map[int64]bool)
	for _, s := range g.w.sessions {
		if lectures[s.LectureID] {
			groups[s.GroupID] = true
		}
	}
	var out []graph.StudentRef
	for _, st := range g.w.students {
		if groups[st.GroupID] {
			out = append(out, graph.StudentRef{ID: st.ID, Name: st.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *fakeGraph) ScheduledStudents(_ context.Context, sessionID int64) ([]graph.StudentRef, error) {
	g.w.mu.Lock()
	defer g.w.mu.Unlock()
	s, ok := g.w.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return g.groupStudents(s.GroupID), nil
}

func (g *fakeGraph) GroupTopology(_ context.Context, groupID int64) (*graph.GroupTopology, error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.topology != nil {
		return g.topology, nil
	}
	g.w.mu.Lock()
	defer g.w.mu.Unlock()
	grp, ok := g.w.groups[groupID]
	if !ok {
		return nil, nil
	}
	deptID := g.w.deptOf[groupID]
	topo := &graph.GroupTopology{
		GroupID:        grp.ID,
		GroupName:      grp.Name,
		DepartmentID:   deptID,
		DepartmentName: g.w.deptNames[deptID],
		Students:       g.groupStudents(groupID),
	}
	for _, s := range g.w.sessions {
		if g.w.lectureDept[s.LectureID] != deptID {
			continue
		}
		topo.Sessions = append(topo.Sessions, graph.ScheduledSession{
			SessionID:   s.ID,
			LectureID:   s.LectureID,
			LectureName: g.w.lectureName[s.LectureID],
			CourseName:  "课程",
			Date:        s.Date,
		})
	}
	sort.Slice(topo.Sessions, func(i, j int) bool { return topo.Sessions[i].SessionID < topo.Sessions[j].SessionID })
	return topo, nil
}

func (g *fakeGraph) GroupTimetable(_ context.Context, groupID int64) ([]graph.ScheduledSession, error) {
	g.w.mu.Lock()
	defer g.w.mu.Unlock()
	var out []graph.ScheduledSession
	for _, s := range g.w.sessions {
		if s.GroupID != groupID {
			continue
		}
		out = append(out, graph.ScheduledSession{
			SessionID:   s.ID,
			LectureID:   s.LectureID,
			LectureName: g.w.lectureName[s.LectureID],
			CourseName:  "课程",
			Date:        s.Date,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (g *fakeGraph) AudienceReport(_ context.Context, from, to time.Time) ([]graph.AudienceRow, error) {
	g.audienceFrom, g.audienceTo = from, to
	return g.audience, g.err
}

func (g *fakeGraph) Counts(_ context.Context) (graph.Counts, error) {
	return g.counts, nil
}

// groupStudents 调用方持有锁
func (g *fakeGraph) groupStudents(groupID int64) []graph.StudentRef {
	var out []graph.StudentRef
	for _, st := range g.w.students {
		if st.GroupID == groupID {
			out = append(out, graph.StudentRef{ID: st.ID, Name: st.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ── Fake 学生缓存 ──

type fakeStudentCache struct {
	entries map[int64]redis.StudentEntry
	putErr  error
}

func newFakeStudentCache() *fakeStudentCache {
	return &fakeStudentCache{entries: make(map[int64]redis.StudentEntry)}
}

func (c *fakeStudentCache) PutStudents(_ context.Context, students []redis.StudentEntry) error {
	if c.putErr != nil {
		return c.putErr
	}
	for _, s := range students {
		c.entries[s.ID] = s
	}
	return nil
}

func (c *fakeStudentCache) GetStudent(_ context.Context, id int64) (*redis.StudentEntry, error) {
	e, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (c *fakeStudentCache) SearchByName(_ context.Context, fragment string) ([]int64, error) {
	var ids []int64
	for id, e := range c.entries {
		if strings.Contains(strings.ToLower(e.Name), strings.ToLower(fragment)) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ── 场景数据 ──

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

// newScenarioWorld 一个班级 3 名学生，讲次 100 的两个课次：
// 学生 1 两次出勤；学生 2 一次出勤一次缺勤；学生 3 无记录
func newScenarioWorld() *mockWorld {
	w := newMockWorld()
	w.addGroup(10, "G-101", 5, "计算机系")
	w.addStudent(1, "Alice", 10)
	w.addStudent(2, "Bob", 10)
	w.addStudent(3, "Carol", 10)
	w.addLecture(100, "并发基础", 5)
	w.addSession(1000, 100, 10, date(2024, time.March, 4))
	w.addSession(1001, 100, 10, date(2024, time.March, 11))

	sem := "2024_spring"
	w.putFact(1, 1000, sem, true)
	w.putFact(1, 1001, sem, true)
	w.putFact(2, 1000, sem, true)
	w.putFact(2, 1001, sem, false)
	return w
}
