package repository

import (
	"github.com/coursemart/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	Add(item *models.CartItem) error
	ListByUser(userID uint) ([]models.CartItem, error)
	DeleteByUserAndCourse(userID, courseID uint) error
	ClearByUser(userID uint) error
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// Add 添加购物车项（(user, course) 唯一，冲突由调用方按已存在处理）
func (r *GormCartRepository) Add(item *models.CartItem) error {
	return r.db.Create(item).Error
}

// ListByUser 获取用户购物车
func (r *GormCartRepository) ListByUser(userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.Preload("Course").
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteByUserAndCourse 移除单个课程
func (r *GormCartRepository) DeleteByUserAndCourse(userID, courseID uint) error {
	return r.db.Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&models.CartItem{}).Error
}

// ClearByUser 清空用户购物车
func (r *GormCartRepository) ClearByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
