package models

import (
	"time"
)

// Enrollment 报名记录（用户与课程唯一）
type Enrollment struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                          // 主键
	UserID    uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"` // 用户ID
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"course_id"` // 课程ID
	OrderID   uint      `gorm:"index;not null" json:"order_id"`                                // 来源订单ID
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                       // 创建时间

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"` // 关联课程
}

// TableName 指定表名
func (Enrollment) TableName() string {
	return "enrollments"
}
