package model

// University 大学，对应 universities
type University struct {
	ID       int64  `gorm:"primaryKey"                json:"id"`
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	Location string `gorm:"type:varchar(100)"         json:"location"`
}

func (University) TableName() string { return "universities" }

// Institute 学院，对应 institutes
type Institute struct {
	ID           int64  `gorm:"primaryKey"                json:"id"`
	Name         string `gorm:"type:varchar(100);not null" json:"name"`
	UniversityID int64  `gorm:"not null"                  json:"university_id"`
}

func (Institute) TableName() string { return "institutes" }

// Department 系，对应 departments
type Department struct {
	ID          int64  `gorm:"primaryKey"                json:"id"`
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	InstituteID int64  `gorm:"not null"                  json:"institute_id"`
}

func (Department) TableName() string { return "departments" }

// Specialty 专业，对应 specialties
type Specialty struct {
	ID           int64  `gorm:"primaryKey"                json:"id"`
	Name         string `gorm:"type:varchar(100);not null" json:"name"`
	DepartmentID int64  `gorm:"not null"                  json:"department_id"`
}

func (Specialty) TableName() string { return "specialties" }

// Group 学生班级，对应 student_groups
type Group struct {
	ID          int64  `gorm:"primaryKey"                json:"id"`
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	SpecialtyID int64  `gorm:"not null"                  json:"specialty_id"`
}

func (Group) TableName() string { return "student_groups" }
