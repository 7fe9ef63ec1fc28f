package repository

import "time"

// RecordListFilter 查询唱片列表的过滤条件
type RecordListFilter struct {
	Page                int
	PageSize            int
	GenreID             uint
	RecordGroupID       uint
	Search              string
	IncludeDiscontinued bool
	OnlyInStock         bool
	WithGenre           bool
	WithGroup           bool
	CreatedFrom         *time.Time
	CreatedTo           *time.Time
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Role        string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
