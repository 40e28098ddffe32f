package repository

import (
	"errors"

	"github.com/coursemart/internal/models"

	"gorm.io/gorm"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	GetByID(id uint) (*models.Course, error)
	GetBySlug(slug string) (*models.Course, error)
	ListByIDs(ids []uint) ([]models.Course, error)
	List(filter CourseListFilter) ([]models.Course, int64, error)
	Create(course *models.Course) error
	Update(course *models.Course) error
	Delete(id uint) error
}

// GormCourseRepository GORM 实现
type GormCourseRepository struct {
	db *gorm.DB
}

// NewCourseRepository 创建课程仓库
func NewCourseRepository(db *gorm.DB) *GormCourseRepository {
	return &GormCourseRepository{db: db}
}

// GetByID 根据ID获取课程
func (r *GormCourseRepository) GetByID(id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.Preload("Category").First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &course, nil
}

// GetBySlug 根据标识获取课程
func (r *GormCourseRepository) GetBySlug(slug string) (*models.Course, error) {
	var course models.Course
	if err := r.db.Preload("Category").Where("slug = ?", slug).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &course, nil
}

// ListByIDs 批量获取课程
func (r *GormCourseRepository) ListByIDs(ids []uint) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	var courses []models.Course
	if err := r.db.Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

// List 获取课程列表
func (r *GormCourseRepository) List(filter CourseListFilter) ([]models.Course, int64, error) {
	query := r.db.Model(&models.Course{})

	if filter.CategoryID > 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Keyword != "" {
		query = query.Where("title LIKE ?", "%"+filter.Keyword+"%")
	}
	if filter.IsPublished != nil {
		query = query.Where("is_published = ?", *filter.IsPublished)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var courses []models.Course
	if err := query.Preload("Category").Order("sort_order asc, id desc").Find(&courses).Error; err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// Create 创建课程
func (r *GormCourseRepository) Create(course *models.Course) error {
	return r.db.Create(course).Error
}

// Update 更新课程
func (r *GormCourseRepository) Update(course *models.Course) error {
	return r.db.Save(course).Error
}

// Delete 删除课程
func (r *GormCourseRepository) Delete(id uint) error {
	return r.db.Delete(&models.Course{}, id).Error
}
