package repository

const (
	DefaultPage      = 1
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Pagination 页码从 1 开始
type Pagination struct {
	Page  int
	Limit int
}

// NewPagination 校正非法的页码与每页条数
func NewPagination(page, limit int) Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Pagination{Page: page, Limit: limit}
}

// Skip is the number of records before the requested page
func (p Pagination) Skip() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages = ceil(total / limit), 0 when there is nothing to show
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
