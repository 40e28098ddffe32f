package service

import (
	"errors"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/repository"

	"gorm.io/gorm"
)

// ErrCouponCodeExists 优惠码已存在
var ErrCouponCodeExists = errors.New("coupon code exists")

// ErrCouponTypeInvalid 优惠券类型不合法
var ErrCouponTypeInvalid = errors.New("coupon type invalid")

// AdminList 管理端优惠券列表
func (s *CouponService) AdminList(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	if filter.Code != "" {
		filter.Code = NormalizeCode(filter.Code)
	}
	return s.couponRepo.List(filter)
}

// AdminGetByID 管理端获取优惠券
func (s *CouponService) AdminGetByID(id uint) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponInvalid
	}
	return coupon, nil
}

// AdminCreate 管理端创建优惠券（优惠码统一大写存储）
func (s *CouponService) AdminCreate(coupon *models.Coupon) error {
	coupon.Code = NormalizeCode(coupon.Code)
	if coupon.Code == "" {
		return ErrCouponInvalid
	}
	if coupon.Type != constants.CouponTypePercentage && coupon.Type != constants.CouponTypeFixed {
		return ErrCouponTypeInvalid
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrCouponCodeExists
		}
		return err
	}
	return nil
}

// AdminUpdate 管理端更新优惠券
func (s *CouponService) AdminUpdate(coupon *models.Coupon) error {
	coupon.Code = NormalizeCode(coupon.Code)
	if coupon.Type != constants.CouponTypePercentage && coupon.Type != constants.CouponTypeFixed {
		return ErrCouponTypeInvalid
	}
	return s.couponRepo.Update(coupon)
}

// AdminDelete 管理端删除优惠券
func (s *CouponService) AdminDelete(id uint) error {
	return s.couponRepo.Delete(id)
}
