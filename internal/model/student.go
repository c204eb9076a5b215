package model

// Student 学生，对应 students
type Student struct {
	ID      int64  `gorm:"primaryKey"                json:"id"`
	Name    string `gorm:"type:varchar(100);not null" json:"name"`
	Age     int    `json:"age"`
	Mail    string `gorm:"type:varchar(100)"         json:"mail"`
	GroupID int64  `gorm:"not null"                  json:"group_id"`

	// 关联
	Group *Group `gorm:"foreignKey:GroupID;references:ID" json:"group,omitempty"`
}

func (Student) TableName() string { return "students" }

// Attendance 考勤事实，对应分区父表 attendance
// 主键 (student_id, session_id, semester)，Semester 决定落入的物理分区
type Attendance struct {
	StudentID int64  `gorm:"primaryKey;autoIncrement:false" json:"student_id"`
	SessionID int64  `gorm:"primaryKey;autoIncrement:false" json:"session_id"`
	Semester  string `gorm:"primaryKey;type:text"           json:"semester"`
	Attended  bool   `gorm:"not null"                       json:"attended"`
}

func (Attendance) TableName() string { return "attendance" }
