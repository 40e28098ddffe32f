package service

import (
	"strings"

	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/repository"
)

// CourseService 课程服务
type CourseService struct {
	courseRepo     repository.CourseRepository
	categoryRepo   repository.CategoryRepository
	enrollmentRepo repository.EnrollmentRepository
}

// NewCourseService 创建课程服务
func NewCourseService(courseRepo repository.CourseRepository, categoryRepo repository.CategoryRepository, enrollmentRepo repository.EnrollmentRepository) *CourseService {
	return &CourseService{
		courseRepo:     courseRepo,
		categoryRepo:   categoryRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// ListPublished 获取上架课程列表（面向学员目录）
func (s *CourseService) ListPublished(filter repository.CourseListFilter) ([]models.Course, int64, error) {
	published := true
	filter.IsPublished = &published
	return s.courseRepo.List(filter)
}

// GetPublishedBySlug 获取上架课程详情
func (s *CourseService) GetPublishedBySlug(slug string) (*models.Course, error) {
	course, err := s.courseRepo.GetBySlug(strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	if course == nil || !course.IsPublished {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// ListCategories 获取分类列表
func (s *CourseService) ListCategories() ([]models.Category, error) {
	return s.categoryRepo.List()
}

// ListEnrollments 获取学员已报名课程
func (s *CourseService) ListEnrollments(userID uint) ([]models.Enrollment, error) {
	return s.enrollmentRepo.ListByUser(userID)
}

// IsEnrolled 判断学员是否已报名
func (s *CourseService) IsEnrolled(userID, courseID uint) (bool, error) {
	return s.enrollmentRepo.ExistsByUserAndCourse(userID, courseID)
}

// AdminList 管理端课程列表（含未上架）
func (s *CourseService) AdminList(filter repository.CourseListFilter) ([]models.Course, int64, error) {
	return s.courseRepo.List(filter)
}

// AdminGetByID 管理端获取课程
func (s *CourseService) AdminGetByID(id uint) (*models.Course, error) {
	course, err := s.courseRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// AdminCreate 管理端创建课程
func (s *CourseService) AdminCreate(course *models.Course) error {
	course.Slug = strings.TrimSpace(course.Slug)
	return s.courseRepo.Create(course)
}

// AdminUpdate 管理端更新课程
func (s *CourseService) AdminUpdate(course *models.Course) error {
	return s.courseRepo.Update(course)
}

// AdminDelete 管理端删除课程
func (s *CourseService) AdminDelete(id uint) error {
	return s.courseRepo.Delete(id)
}
