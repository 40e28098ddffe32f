package models

import (
	"time"

	"gorm.io/gorm"
)

// Course 课程表
type Course struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                        // 主键
	CategoryID    *uint          `gorm:"index" json:"category_id,omitempty"`                          // 分类ID
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"`                            // 唯一标识
	Title         string         `gorm:"not null" json:"title"`                                       // 课程标题
	Description   string         `gorm:"type:text" json:"description"`                                // 课程简介
	CoverImage    string         `gorm:"type:varchar(500)" json:"cover_image"`                        // 封面图
	Instructor    string         `gorm:"type:varchar(200)" json:"instructor"`                         // 讲师
	PriceAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"`   // 售价
	PriceCurrency string         `gorm:"type:varchar(8);not null;default:'INR'" json:"price_currency"` // 币种
	IsPublished   bool           `gorm:"not null;default:false;index" json:"is_published"`            // 是否上架
	SortOrder     int            `gorm:"default:0;index" json:"sort_order"`                           // 排序权重
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                                     // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"` // 关联分类
}

// TableName 指定表名
func (Course) TableName() string {
	return "courses"
}
