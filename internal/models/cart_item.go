package models

import (
	"time"

	"gorm.io/gorm"
)

// CartItem 购物车项（用户与课程唯一，数量恒为 1）
type CartItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                      // 主键
	UserID    uint           `gorm:"not null;uniqueIndex:idx_cart_user_course" json:"user_id"`  // 用户ID
	CourseID  uint           `gorm:"not null;uniqueIndex:idx_cart_user_course" json:"course_id"` // 课程ID
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"` // 关联课程
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
