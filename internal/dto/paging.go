package dto

// PageQuery binds the paging parameters shared by every list endpoint.
// size, sort and direction are accepted as aliases.
type PageQuery struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Size      int    `form:"size"`
	SortBy    string `form:"sort_by"`
	Sort      string `form:"sort"`
	SortOrder string `form:"sort_order"`
	Direction string `form:"direction"`
}

// Resolve folds aliases into canonical values.
func (q PageQuery) Resolve() (page, pageSize int, sortBy, sortOrder string) {
	page = q.Page
	if page < 1 {
		page = 1
	}
	pageSize = q.PageSize
	if pageSize <= 0 {
		pageSize = q.Size
	}
	sortBy = q.SortBy
	if sortBy == "" {
		sortBy = q.Sort
	}
	sortOrder = q.SortOrder
	if sortOrder == "" {
		sortOrder = q.Direction
	}
	return page, pageSize, sortBy, sortOrder
}
