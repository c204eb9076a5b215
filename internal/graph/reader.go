package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// StudentRef 图中的学生
type StudentRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ScheduledSession 系开设课程下的一次课次
type ScheduledSession struct {
	SessionID   int64     `json:"session_id"`
	CourseID    int64     `json:"course_id"`
	CourseName  string    `json:"course_name"`
	LectureID   int64     `json:"lecture_id"`
	LectureName string    `json:"lecture_name"`
	Date        time.Time `json:"date"`
}

// GroupTopology 班级、所属系、学生及系开设课程的全部课次
type GroupTopology struct {
	GroupID        int64              `json:"group_id"`
	GroupName      string             `json:"group_name"`
	DepartmentID   int64              `json:"department_id"`
	DepartmentName string             `json:"department_name"`
	Students       []StudentRef       `json:"students"`
	Sessions       []ScheduledSession `json:"sessions"`
}

// AudienceRow 受众报告的一行：一个课次的课程、讲次、资料与学生人数
type AudienceRow struct {
	SessionID     int64     `json:"session_id"`
	Date          time.Time `json:"date"`
	CourseName    string    `json:"course_name"`
	LectureName   string    `json:"lecture_name"`
	Materials     []string  `json:"materials"`
	TotalStudents int64     `json:"total_students"`
}

// Counts 图中节点与边的总数
type Counts struct {
	Nodes int64 `json:"nodes"`
	Edges int64 `json:"edges"`
}

// Reader 图侧只读查询
type Reader struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewReader 创建只读查询器
func NewReader(driver neo4j.DriverWithContext, database string) *Reader {
	return &Reader{driver: driver, database: database}
}

func (r *Reader) session(ctx context.Context) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: r.database})
}

// RosterForLectures 讲次 → 课次 → 班级 → 学生，按 id 去重
func (r *Reader) RosterForLectures(ctx context.Context, lectureIDs []int64) ([]StudentRef, error) {
	if len(lectureIDs) == 0 {
		return nil, nil
	}
	session := r.session(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (l:Lecture)-[:SCHEDULED_AT]->(:Session)-[:FOR_GROUP]->(:Group)-[:HAS_STUDENT]->(s:Student)
		WHERE l.id IN $lectureIds
		RETURN DISTINCT s.id AS id, s.name AS name
		ORDER BY id
	`
	result, err := session.Run(ctx, query, map[string]interface{}{
		"lectureIds": lectureIDs,
	})
	if err != nil {
		return nil, err
	}
	return collectStudents(ctx, result)
}

// ScheduledStudents 某课次面向的全部学生
func (r *Reader) ScheduledStudents(ctx context.Context, sessionID int64) ([]StudentRef, error) {
	session := r.session(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (:Session {id: $sessionId})-[:FOR_GROUP]->(:Group)-[:HAS_STUDENT]->(s:Student)
		RETURN s.id AS id, s.name AS name
		ORDER BY name, id
	`
	result, err := session.Run(ctx, query, map[string]interface{}{
		"sessionId": sessionID,
	})
	if err != nil {
		return nil, err
	}
	return collectStudents(ctx, result)
}

// GroupTopology 班级拓扑；班级不存在或未挂在任何系下时返回 (nil, nil)
func (r *Reader) GroupTopology(ctx context.Context, groupID int64) (*GroupTopology, error) {
	session := r.session(ctx)
	defer session.Close(ctx)

	headQuery := `
		MATCH (g:Group {id: $groupId})<-[:HAS_GROUP]-(:Specialty)<-[:HAS_SPECIALTY]-(d:Department)
		RETURN g.id AS group_id, g.name AS group_name, d.id AS dept_id, d.name AS dept_name
		LIMIT 1
	`
	result, err := session.Run(ctx, headQuery, map[string]interface{}{"groupId": groupID})
	if err != nil {
		return nil, err
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	head := result.Record()
	topo := &GroupTopology{
		GroupID:        getInt64FromRecord(head, "group_id"),
		GroupName:      getStringFromRecord(head, "group_name"),
		DepartmentID:   getInt64FromRecord(head, "dept_id"),
		DepartmentName: getStringFromRecord(head, "dept_name"),
	}

	studentQuery := `
		MATCH (:Group {id: $groupId})-[:HAS_STUDENT]->(s:Student)
		RETURN s.id AS id, s.name AS name
		ORDER BY name, id
	`
	result, err = session.Run(ctx, studentQuery, map[string]interface{}{"groupId": groupID})
	if err != nil {
		return nil, err
	}
	if topo.Students, err = collectStudents(ctx, result); err != nil {
		return nil, err
	}

	sessionQuery := `
		MATCH (:Department {id: $deptId})-[:OFFERS]->(c:Course)-[:HAS_LECTURE]->(l:Lecture)-[:SCHEDULED_AT]->(sch:Session)
		RETURN sch.id AS session_id, c.id AS course_id, c.name AS course_name,
		       l.id AS lecture_id, l.name AS lecture_name, sch.date AS date
		ORDER BY date, session_id
	`
	result, err = session.Run(ctx, sessionQuery, map[string]interface{}{"deptId": topo.DepartmentID})
	if err != nil {
		return nil, err
	}
	for result.Next(ctx) {
		rec := result.Record()
		topo.Sessions = append(topo.Sessions, ScheduledSession{
			SessionID:   getInt64FromRecord(rec, "session_id"),
			CourseID:    getInt64FromRecord(rec, "course_id"),
			CourseName:  getStringFromRecord(rec, "course_name"),
			LectureID:   getInt64FromRecord(rec, "lecture_id"),
			LectureName: getStringFromRecord(rec, "lecture_name"),
			Date:        getTimeFromRecord(rec, "date"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return topo, nil
}

// AudienceReport 时间窗 [from, to) 内每个课次的课程、讲次、资料和学生人数
func (r *Reader) AudienceReport(ctx context.Context, from, to time.Time) ([]AudienceRow, error) {
	session := r.session(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (sch:Session)
		WHERE sch.date >= $from AND sch.date < $to
		MATCH (sch)-[:FOR_GROUP]->(:Group)-[:HAS_STUDENT]->(s:Student)
		WITH sch, count(DISTINCT s) AS total_students
		MATCH (l:Lecture)-[:SCHEDULED_AT]->(sch)
		MATCH (c:Course)-[:HAS_LECTURE]->(l)
		OPTIONAL MATCH (l)-[:HAS_MATERIAL]->(m:Material)
		RETURN sch.id AS session_id, sch.date AS date, c.name AS course_name, l.name AS lecture_name,
		       collect(DISTINCT m.name) AS materials, total_students
		ORDER BY course_name, lecture_name, date
	`
	result, err := session.Run(ctx, query, map[string]interface{}{
		"from": from.UTC(),
		"to":   to.UTC(),
	})
	if err != nil {
		return nil, err
	}

	var rows []AudienceRow
	for result.Next(ctx) {
		rec := result.Record()
		rows = append(rows, AudienceRow{
			SessionID:     getInt64FromRecord(rec, "session_id"),
			Date:          getTimeFromRecord(rec, "date"),
			CourseName:    getStringFromRecord(rec, "course_name"),
			LectureName:   getStringFromRecord(rec, "lecture_name"),
			Materials:     getStringSliceFromRecord(rec, "materials"),
			TotalStudents: getInt64FromRecord(rec, "total_students"),
		})
	}
	return rows, result.Err()
}

// GroupTimetable 某班级的全部课次，按时间排序
func (r *Reader) GroupTimetable(ctx context.Context, groupID int64) ([]ScheduledSession, error) {
	session := r.session(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (c:Course)-[:HAS_LECTURE]->(l:Lecture)-[:SCHEDULED_AT]->(sch:Session)-[:FOR_GROUP]->(:Group {id: $groupId})
		RETURN sch.id AS session_id, c.id AS course_id, c.name AS course_name,
		       l.id AS lecture_id, l.name AS lecture_name, sch.date AS date
		ORDER BY date, session_id
	`
	result, err := session.Run(ctx, query, map[string]interface{}{"groupId": groupID})
	if err != nil {
		return nil, err
	}

	var sessions []ScheduledSession
	for result.Next(ctx) {
		rec := result.Record()
		sessions = append(sessions, ScheduledSession{
			SessionID:   getInt64FromRecord(rec, "session_id"),
			CourseID:    getInt64FromRecord(rec, "course_id"),
			CourseName:  getStringFromRecord(rec, "course_name"),
			LectureID:   getInt64FromRecord(rec, "lecture_id"),
			LectureName: getStringFromRecord(rec, "lecture_name"),
			Date:        getTimeFromRecord(rec, "date"),
		})
	}
	return sessions, result.Err()
}

// Counts 节点与边总数，用于校验复制幂等
func (r *Reader) Counts(ctx context.Context) (Counts, error) {
	session := r.session(ctx)
	defer session.Close(ctx)

	var c Counts
	result, err := session.Run(ctx, "MATCH (n) RETURN count(n) AS total", nil)
	if err != nil {
		return c, err
	}
	rec, err := result.Single(ctx)
	if err != nil {
		return c, err
	}
	c.Nodes = getInt64FromRecord(rec, "total")

	result, err = session.Run(ctx, "MATCH ()-[r]->() RETURN count(r) AS total", nil)
	if err != nil {
		return c, err
	}
	rec, err = result.Single(ctx)
	if err != nil {
		return c, err
	}
	c.Edges = getInt64FromRecord(rec, "total")
	return c, nil
}

func collectStudents(ctx context.Context, result neo4j.ResultWithContext) ([]StudentRef, error) {
	var students []StudentRef
	for result.Next(ctx) {
		rec := result.Record()
		students = append(students, StudentRef{
			ID:   getInt64FromRecord(rec, "id"),
			Name: getStringFromRecord(rec, "name"),
		})
	}
	return students, result.Err()
}
