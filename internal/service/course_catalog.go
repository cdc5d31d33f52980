package service

import (
	"context"

	"github.com/nsxzhou1114/lms-forum-api/internal/model"
	"gorm.io/gorm"
)

// CourseCatalog 课程/课时存在性查询，返回负责讲师ID
type CourseCatalog interface {
	CourseInstructor(ctx context.Context, courseID uint) (uint, error)
	LessonInstructor(ctx context.Context, lessonID uint) (uint, error)
}

type gormCourseCatalog struct {
	db *gorm.DB
}

// NewCourseCatalog 基于课程表的只读实现
func NewCourseCatalog(db *gorm.DB) CourseCatalog {
	return &gormCourseCatalog{db: db}
}

func (c *gormCourseCatalog) CourseInstructor(ctx context.Context, courseID uint) (uint, error) {
	var course model.Course
	err := c.db.WithContext(ctx).Select("id", "instructor_id").First(&course, courseID).Error
	if err != nil {
		return 0, dbError(err, "课程不存在", "查询课程失败")
	}
	return course.InstructorID, nil
}

func (c *gormCourseCatalog) LessonInstructor(ctx context.Context, lessonID uint) (uint, error) {
	var row struct {
		InstructorID uint
	}
	res := c.db.WithContext(ctx).
		Table("lessons").
		Select("courses.instructor_id AS instructor_id").
		Joins("JOIN courses ON courses.id = lessons.course_id").
		Where("lessons.id = ?", lessonID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, dbError(res.Error, "课时不存在", "查询课时失败")
	}
	if res.RowsAffected == 0 {
		return 0, dbError(gorm.ErrRecordNotFound, "课时不存在", "查询课时失败")
	}
	return row.InstructorID, nil
}
