package dto

// PopularTagsQuery 热门标签请求
type PopularTagsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
