package repository

// CourseListFilter 课程列表筛选
type CourseListFilter struct {
	CategoryID  uint
	Keyword     string
	IsPublished *bool
	Page        int
	PageSize    int
}

// OrderListFilter 订单列表筛选
type OrderListFilter struct {
	UserID   uint
	Status   string
	OrderNo  string
	Page     int
	PageSize int
}

// CouponListFilter 优惠券列表筛选
type CouponListFilter struct {
	Code     string
	IsActive *bool
	Page     int
	PageSize int
}
