package model

import (
	"time"

	"gorm.io/gorm"

	"academic-mesh/backend/internal/calendar"
)

// Course 课程，对应 courses
// 课程由 DepartmentID 开设，同时归属 SpecialtyID 的培养方案
type Course struct {
	ID           int64  `gorm:"primaryKey"                json:"id"`
	Name         string `gorm:"type:varchar(100);not null" json:"name"`
	DepartmentID int64  `gorm:"not null"                  json:"department_id"`
	SpecialtyID  int64  `gorm:"not null"                  json:"specialty_id"`
}

func (Course) TableName() string { return "courses" }

// Lecture 讲次，对应 lectures
type Lecture struct {
	ID       int64  `gorm:"primaryKey"                json:"id"`
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	CourseID int64  `gorm:"not null"                  json:"course_id"`
}

func (Lecture) TableName() string { return "lectures" }

// Material 讲次资料，对应 materials
type Material struct {
	ID        int64  `gorm:"primaryKey"                json:"id"`
	Name      string `gorm:"type:varchar(100);not null" json:"name"`
	LectureID int64  `gorm:"not null"                  json:"lecture_id"`
}

func (Material) TableName() string { return "materials" }

// Session 课次，对应 sessions
// Semester 是 Date 的派生值，只能由 BeforeSave 写入
type Session struct {
	ID        int64     `gorm:"primaryKey"    json:"id"`
	Date      time.Time `gorm:"not null"      json:"date"`
	LectureID int64     `gorm:"not null"      json:"lecture_id"`
	GroupID   int64     `gorm:"not null"      json:"group_id"`
	Semester  string    `gorm:"type:text;not null" json:"semester"`
}

func (Session) TableName() string { return "sessions" }

// BeforeSave 按日期重新计算学期分桶
func (s *Session) BeforeSave(tx *gorm.DB) error {
	s.Semester = calendar.BucketOf(s.Date).String()
	return nil
}

// Bucket 返回课次所属学期分桶
func (s *Session) Bucket() calendar.BucketKey {
	return calendar.BucketOf(s.Date)
}
