package snapshot

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// UniversityDoc 文档存储中的一棵组织树
type UniversityDoc struct {
	Name       string         `bson:"name"       json:"name"`
	Location   string         `bson:"location"   json:"location"`
	Institutes []InstituteDoc `bson:"institutes" json:"institutes"`
}

// InstituteDoc 学院节点
type InstituteDoc struct {
	Name        string          `bson:"name"        json:"name"`
	Departments []DepartmentDoc `bson:"departments" json:"departments"`
}

// DepartmentDoc 系节点，专业以名称列表内嵌
type DepartmentDoc struct {
	Name            string   `bson:"name"            json:"name"`
	Specializations []string `bson:"specializations" json:"specializations"`
}

// Stats 缓存状态计数
type Stats struct {
	Applied      int `json:"applied"`
	Dropped      int `json:"dropped"`
	Universities int `json:"universities"`
	Institutes   int `json:"institutes"`
	Departments  int `json:"departments"`
	Specialties  int `json:"specialties"`
}

// Cache 变更流归约状态
// 同一实体的事件按到达顺序串行应用；一把互斥锁保护全部映射
type Cache struct {
	mu           sync.Mutex
	universities map[int64]universityRecord
	institutes   map[int64]instituteRecord
	departments  map[int64]departmentRecord
	specialties  map[int64][]string // department id → 专业名称（到达顺序，去重）

	applied int
	dropped int
	logger  *zap.Logger
}

// NewCache 创建空缓存
func NewCache(logger *zap.Logger) *Cache {
	return &Cache{
		universities: make(map[int64]universityRecord),
		institutes:   make(map[int64]instituteRecord),
		departments:  make(map[int64]departmentRecord),
		specialties:  make(map[int64][]string),
		logger:       logger,
	}
}

// Apply 应用一条事件；格式错误的事件被记录并丢弃，返回 false
func (c *Cache) Apply(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.apply(ev); err != nil {
		c.dropped++
		c.logger.Warn("丢弃变更事件",
			zap.String("kind", string(ev.Kind)),
			zap.String("op", string(ev.Op)),
			zap.Any("data", ev.Data()),
			zap.Error(err),
		)
		return false
	}
	c.applied++
	return true
}

// MarkDropped 记录在解码阶段即被丢弃的事件
func (c *Cache) MarkDropped() {
	c.mu.Lock()
	c.dropped++
	c.mu.Unlock()
}

func (c *Cache) apply(ev Event) error {
	data := ev.Data()
	if len(data) == 0 {
		return fmt.Errorf("%w: before 与 after 均为空", ErrMalformedEvent)
	}
	switch ev.Op {
	case OpCreate, OpRead, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, ev.Op)
	}

	switch ev.Kind {
	case KindUniversity:
		rec, err := toUniversity(data)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if ev.Op == OpDelete {
			delete(c.universities, rec.ID)
		} else {
			c.universities[rec.ID] = rec
		}

	case KindInstitute:
		rec, err := toInstitute(data)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if ev.Op == OpDelete {
			delete(c.institutes, rec.ID)
		} else {
			c.institutes[rec.ID] = rec
		}

	case KindDepartment:
		rec, err := toDepartment(data)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if ev.Op == OpDelete {
			delete(c.departments, rec.ID)
			delete(c.specialties, rec.ID)
		} else {
			c.departments[rec.ID] = rec
		}

	case KindSpecialty:
		return c.applySpecialty(ev)

	default:
		return fmt.Errorf("%w: 未知类别 %q", ErrMalformedEvent, ev.Kind)
	}
	return nil
}

func (c *Cache) applySpecialty(ev Event) error {
	rec, err := toSpecialty(ev.Data())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if ev.Op == OpDelete {
		c.removeSpecialty(rec.DepartmentID, rec.Name)
		return nil
	}

	// 改名或换系：before 中的旧条目先移除
	if ev.Op == OpUpdate && len(ev.Before) > 0 && len(ev.After) > 0 {
		if prev, err := toSpecialty(ev.Before); err == nil && prev != rec {
			c.removeSpecialty(prev.DepartmentID, prev.Name)
		}
	}

	for _, n := range c.specialties[rec.DepartmentID] {
		if n == rec.Name {
			return nil
		}
	}
	c.specialties[rec.DepartmentID] = append(c.specialties[rec.DepartmentID], rec.Name)
	return nil
}

func (c *Cache) removeSpecialty(departmentID int64, name string) {
	names := c.specialties[departmentID]
	kept := names[:0]
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}
	if len(kept) == 0 {
		delete(c.specialties, departmentID)
		return
	}
	c.specialties[departmentID] = kept
}

// Assemble 组装嵌套文档：大学 / 学院 / 系按 id 升序，专业名按到达顺序
// 父 id 不存在的学院或系不会出现在任何文档中
func (c *Cache) Assemble() []UniversityDoc {
	c.mu.Lock()
	defer c.mu.Unlock()

	instByUni := make(map[int64][]instituteRecord)
	for _, in := range c.institutes {
		instByUni[in.UniversityID] = append(instByUni[in.UniversityID], in)
	}
	deptByInst := make(map[int64][]departmentRecord)
	for _, d := range c.departments {
		deptByInst[d.InstituteID] = append(deptByInst[d.InstituteID], d)
	}

	uniIDs := make([]int64, 0, len(c.universities))
	for id := range c.universities {
		uniIDs = append(uniIDs, id)
	}
	sort.Slice(uniIDs, func(i, j int) bool { return uniIDs[i] < uniIDs[j] })

	docs := make([]UniversityDoc, 0, len(uniIDs))
	for _, uid := range uniIDs {
		uni := c.universities[uid]
		insts := instByUni[uid]
		sort.Slice(insts, func(i, j int) bool { return insts[i].ID < insts[j].ID })

		doc := UniversityDoc{
			Name:       uni.Name,
			Location:   uni.Location,
			Institutes: make([]InstituteDoc, 0, len(insts)),
		}
		for _, in := range insts {
			depts := deptByInst[in.ID]
			sort.Slice(depts, func(i, j int) bool { return depts[i].ID < depts[j].ID })

			instDoc := InstituteDoc{
				Name:        in.Name,
				Departments: make([]DepartmentDoc, 0, len(depts)),
			}
			for _, d := range depts {
				specs := make([]string, len(c.specialties[d.ID]))
				copy(specs, c.specialties[d.ID])
				instDoc.Departments = append(instDoc.Departments, DepartmentDoc{
					Name:            d.Name,
					Specializations: specs,
				})
			}
			doc.Institutes = append(doc.Institutes, instDoc)
		}
		docs = append(docs, doc)
	}
	return docs
}

// Stats 返回当前计数
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	specs := 0
	for _, names := range c.specialties {
		specs += len(names)
	}
	return Stats{
		Applied:      c.applied,
		Dropped:      c.dropped,
		Universities: len(c.universities),
		Institutes:   len(c.institutes),
		Departments:  len(c.departments),
		Specialties:  specs,
	}
}
