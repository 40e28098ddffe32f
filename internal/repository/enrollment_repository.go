package repository

import (
	"errors"

	"github.com/coursemart/internal/models"

	"gorm.io/gorm"
)

// EnrollmentRepository 报名记录数据访问接口
type EnrollmentRepository interface {
	Create(enrollment *models.Enrollment) error
	GetByUserAndCourse(userID, courseID uint) (*models.Enrollment, error)
	ExistsByUserAndCourse(userID, courseID uint) (bool, error)
	ListByUser(userID uint) ([]models.Enrollment, error)
	WithTx(tx *gorm.DB) *GormEnrollmentRepository
}

// GormEnrollmentRepository GORM 实现
type GormEnrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository 创建报名仓库
func NewEnrollmentRepository(db *gorm.DB) *GormEnrollmentRepository {
	return &GormEnrollmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormEnrollmentRepository) WithTx(tx *gorm.DB) *GormEnrollmentRepository {
	if tx == nil {
		return r
	}
	return &GormEnrollmentRepository{db: tx}
}

// Create 创建报名记录（(user, course) 唯一，冲突由调用方按已报名处理）
func (r *GormEnrollmentRepository) Create(enrollment *models.Enrollment) error {
	return r.db.Create(enrollment).Error
}

// GetByUserAndCourse 获取用户在某课程上的报名记录
func (r *GormEnrollmentRepository) GetByUserAndCourse(userID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

// ExistsByUserAndCourse 判断用户是否已报名课程
func (r *GormEnrollmentRepository) ExistsByUserAndCourse(userID, courseID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser 获取用户报名列表
func (r *GormEnrollmentRepository) ListByUser(userID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.Preload("Course").
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}
