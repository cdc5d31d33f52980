package model

// Tag 标签，名称已规范化为小写
type Tag struct {
	Base
	Name        string `gorm:"type:varchar(30);not null;uniqueIndex" json:"name"`
	Slug        string `gorm:"type:varchar(60);not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:varchar(255)" json:"description"`
	Color       string `gorm:"type:varchar(20)" json:"color"`
	UsageCount  int    `gorm:"not null;default:0;index" json:"usageCount"`
}

// TableName 指定表名
func (Tag) TableName() string {
	return "tags"
}
