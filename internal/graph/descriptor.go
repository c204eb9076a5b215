// Package graph 将关系型学术模型按依赖顺序幂等复制到 Neo4j，并提供图侧查询。
package graph

import "fmt"

// ParentRef 指向父实体的一条边
// Outgoing 为 true 时边方向为 父 → 子，否则为 子 → 父（Session -FOR_GROUP-> Group）
type ParentRef struct {
	Label    string
	Edge     string
	FK       string
	Outgoing bool
}

// Descriptor 实体类别描述：标签、来源表、标量属性与父引用
type Descriptor struct {
	Label   string
	Table   string
	Attrs   []string
	Parents []ParentRef
}

// Columns 读取来源表所需的列
func (d Descriptor) Columns() []string {
	cols := make([]string, 0, 1+len(d.Attrs)+len(d.Parents))
	cols = append(cols, "id")
	cols = append(cols, d.Attrs...)
	for _, p := range d.Parents {
		cols = append(cols, p.FK)
	}
	return cols
}

// 节点标签
const (
	LabelUniversity = "University"
	LabelInstitute  = "Institute"
	LabelDepartment = "Department"
	LabelSpecialty  = "Specialty"
	LabelGroup      = "Group"
	LabelCourse     = "Course"
	LabelLecture    = "Lecture"
	LabelMaterial   = "Material"
	LabelSession    = "Session"
	LabelStudent    = "Student"
)

// 边类型
const (
	EdgeHasInstitute   = "HAS_INSTITUTE"
	EdgeHasDepartment  = "HAS_DEPARTMENT"
	EdgeHasSpecialty   = "HAS_SPECIALTY"
	EdgeHasGroup       = "HAS_GROUP"
	EdgeOffers         = "OFFERS"
	EdgeIncludesCourse = "INCLUDES_COURSE"
	EdgeHasLecture     = "HAS_LECTURE"
	EdgeHasMaterial    = "HAS_MATERIAL"
	EdgeScheduledAt    = "SCHEDULED_AT"
	EdgeForGroup       = "FOR_GROUP"
	EdgeHasStudent     = "HAS_STUDENT"
)

// Descriptors 十类实体的描述表，按依赖顺序排列
var Descriptors = []Descriptor{
	{Label: LabelUniversity, Table: "universities", Attrs: []string{"name", "location"}},
	{Label: LabelInstitute, Table: "institutes", Attrs: []string{"name"},
		Parents: []ParentRef{{Label: LabelUniversity, Edge: EdgeHasInstitute, FK: "university_id", Outgoing: true}}},
	{Label: LabelDepartment, Table: "departments", Attrs: []string{"name"},
		Parents: []ParentRef{{Label: LabelInstitute, Edge: EdgeHasDepartment, FK: "institute_id", Outgoing: true}}},
	{Label: LabelSpecialty, Table: "specialties", Attrs: []string{"name"},
		Parents: []ParentRef{{Label: LabelDepartment, Edge: EdgeHasSpecialty, FK: "department_id", Outgoing: true}}},
	{Label: LabelGroup, Table: "student_groups", Attrs: []string{"name"},
		Parents: []ParentRef{{Label: LabelSpecialty, Edge: EdgeHasGroup, FK: "specialty_id", Outgoing: true}}},
	{Label: LabelCourse, Table: "courses", Attrs: []string{"name"},
		Parents: []ParentRef{
			{Label: LabelDepartment, Edge: EdgeOffers, FK: "department_id", Outgoing: true},
			{Label: LabelSpecialty, Edge: EdgeIncludesCourse, FK: "specialty_id", Outgoing: true},
		}},
	{Label: LabelLecture, Table: "lectures", Attrs: []string{"name"},
		Parents: []ParentRef{{Label: LabelCourse, Edge: EdgeHasLecture, FK: "course_id", Outgoing: true}}},
	{Label: LabelMaterial, Table: "materials", Attrs: []string{"name"},
		Parents: []ParentRef{{Label: LabelLecture, Edge: EdgeHasMaterial, FK: "lecture_id", Outgoing: true}}},
	{Label: LabelSession, Table: "sessions", Attrs: []string{"date", "semester"},
		Parents: []ParentRef{
			{Label: LabelLecture, Edge: EdgeScheduledAt, FK: "lecture_id", Outgoing: true},
			{Label: LabelGroup, Edge: EdgeForGroup, FK: "group_id", Outgoing: false},
		}},
	{Label: LabelStudent, Table: "students", Attrs: []string{"name", "age", "mail"},
		Parents: []ParentRef{{Label: LabelGroup, Edge: EdgeHasStudent, FK: "group_id", Outgoing: true}}},
}

// Levels 按依赖深度分层：层内互不依赖可并行，层间严格串行
// 父标签必须出现在更早的位置，否则返回错误
func Levels(descs []Descriptor) ([][]Descriptor, error) {
	depth := make(map[string]int, len(descs))
	var levels [][]Descriptor

	for _, d := range descs {
		lvl := 0
		for _, p := range d.Parents {
			pd, ok := depth[p.Label]
			if !ok {
				return nil, fmt.Errorf("实体 %s 的父实体 %s 未在其之前声明", d.Label, p.Label)
			}
			if pd+1 > lvl {
				lvl = pd + 1
			}
		}
		depth[d.Label] = lvl
		for len(levels) <= lvl {
			levels = append(levels, nil)
		}
		levels[lvl] = append(levels[lvl], d)
	}
	return levels, nil
}
