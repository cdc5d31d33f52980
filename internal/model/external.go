package model

// 以下模型由LMS其他模块维护，本服务只读

// User 用户只读投影
type User struct {
	Base
	Username string `gorm:"type:varchar(50);not null" json:"username"`
	Nickname string `gorm:"type:varchar(50)" json:"nickname"`
	Avatar   string `gorm:"type:varchar(255)" json:"avatar"`
	Role     string `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Course 课程只读投影
type Course struct {
	Base
	Title        string `gorm:"type:varchar(200);not null" json:"title"`
	InstructorID uint   `gorm:"not null;index" json:"instructorId"`
}

// TableName 指定表名
func (Course) TableName() string {
	return "courses"
}

// Lesson 课时只读投影
type Lesson struct {
	Base
	Title    string `gorm:"type:varchar(200);not null" json:"title"`
	CourseID uint   `gorm:"not null;index" json:"courseId"`
}

// TableName 指定表名
func (Lesson) TableName() string {
	return "lessons"
}
