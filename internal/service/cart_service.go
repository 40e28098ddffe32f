package service

import (
	"errors"

	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/repository"

	"gorm.io/gorm"
)

// CartService 购物车服务
type CartService struct {
	cartRepo       repository.CartRepository
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, courseRepo repository.CourseRepository, enrollmentRepo repository.EnrollmentRepository) *CartService {
	return &CartService{
		cartRepo:       cartRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// Add 添加课程到购物车。未上架课程与已报名课程不入车，
// 重复添加按唯一约束冲突识别。
func (s *CartService) Add(userID, courseID uint) (*models.CartItem, error) {
	course, err := s.courseRepo.GetByID(courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	if !course.IsPublished {
		return nil, ErrCourseNotPublished
	}
	enrolled, err := s.enrollmentRepo.ExistsByUserAndCourse(userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	item := &models.CartItem{UserID: userID, CourseID: courseID}
	if err := s.cartRepo.Add(item); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCartItemExists
		}
		return nil, err
	}
	item.Course = course
	return item, nil
}

// List 获取购物车及合计金额
func (s *CartService) List(userID uint) ([]models.CartItem, models.Money, error) {
	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, models.ZeroMoney(), err
	}
	total := models.ZeroMoney()
	for _, item := range items {
		if item.Course != nil {
			total = models.NewMoneyFromDecimal(total.Decimal.Add(item.Course.PriceAmount.Decimal))
		}
	}
	return items, total, nil
}

// Remove 移除购物车课程
func (s *CartService) Remove(userID, courseID uint) error {
	return s.cartRepo.DeleteByUserAndCourse(userID, courseID)
}

// Clear 清空购物车
func (s *CartService) Clear(userID uint) error {
	return s.cartRepo.ClearByUser(userID)
}
