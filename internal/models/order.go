package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（一个订单对应一门课程）
type Order struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                         // 主键
	OrderNo        string         `gorm:"uniqueIndex;not null" json:"order_no"`                         // 订单编号
	UserID         uint           `gorm:"index;not null" json:"user_id"`                                // 用户ID
	CourseID       uint           `gorm:"index;not null" json:"course_id"`                              // 课程ID
	Status         string         `gorm:"index;not null" json:"status"`                                 // 订单状态（pending/completed/failed）
	Provider       string         `gorm:"not null" json:"provider"`                                     // 下单时选定的支付提供方
	Currency       string         `gorm:"not null" json:"currency"`                                     // 币种
	Amount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`          // 原始金额
	DiscountAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	FinalAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"final_amount"`    // 实付金额
	CouponID       *uint          `gorm:"index" json:"coupon_id,omitempty"`                             // 优惠券ID
	CouponCode     string         `gorm:"type:varchar(64)" json:"coupon_code,omitempty"`                // 下单时使用的优惠码
	GatewayOrderID *string        `gorm:"uniqueIndex" json:"gateway_order_id,omitempty"`                // 网关订单号（购物车订单仅首单持有）
	FailureReason  string         `gorm:"type:varchar(200)" json:"failure_reason,omitempty"`            // 失败原因
	PaidAt         *time.Time     `gorm:"index" json:"paid_at"`                                         // 支付时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"` // 关联课程
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
