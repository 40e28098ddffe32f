package repository

import (
	"errors"
	"time"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDAndUser(id uint, userID uint) (*models.Order, error)
	GetByGatewayOrderID(gatewayOrderID string) (*models.Order, error)
	GetLatestPendingByUserAndCourse(userID, courseID uint) (*models.Order, error)
	ListByGatewayOrderID(gatewayOrderID string, userID uint) ([]models.Order, error)
	ListPendingByIDsAndUser(ids []uint, userID uint) ([]models.Order, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	SetGatewayOrderID(id uint, gatewayOrderID string) error
	TransitionStatus(id uint, from, to string, updates map[string]interface{}) (bool, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 根据ID获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Course").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDAndUser 获取用户订单详情
func (r *GormOrderRepository) GetByIDAndUser(id uint, userID uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Course").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByGatewayOrderID 根据网关订单号获取订单（验签入口唯一的查找方式）
func (r *GormOrderRepository) GetByGatewayOrderID(gatewayOrderID string) (*models.Order, error) {
	if gatewayOrderID == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Course").
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetLatestPendingByUserAndCourse 获取用户对某课程最近的待支付订单
func (r *GormOrderRepository) GetLatestPendingByUserAndCourse(userID, courseID uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, constants.OrderStatusPending).
		Order("id desc").
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListByGatewayOrderID 获取同一网关订单号关联的同批订单。
// 购物车结算只在首单上存网关订单号，其余同批订单按创建批次关联不到，
// 由调用方回退到客户端订单ID列表。
func (r *GormOrderRepository) ListByGatewayOrderID(gatewayOrderID string, userID uint) ([]models.Order, error) {
	if gatewayOrderID == "" {
		return []models.Order{}, nil
	}
	var orders []models.Order
	if err := r.db.Preload("Course").
		Where("gateway_order_id = ? AND user_id = ?", gatewayOrderID, userID).
		Order("id asc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListPendingByIDsAndUser 按ID列表获取用户待支付订单（回退路径，重新校验归属与状态）
func (r *GormOrderRepository) ListPendingByIDsAndUser(ids []uint, userID uint) ([]models.Order, error) {
	if len(ids) == 0 {
		return []models.Order{}, nil
	}
	var orders []models.Order
	if err := r.db.Preload("Course").
		Where("id IN ? AND user_id = ? AND status = ?", ids, userID, constants.OrderStatusPending).
		Order("id asc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListByUser 获取用户订单列表
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Where("user_id = ?", filter.UserID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no LIKE ?", "%"+filter.OrderNo+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var orders []models.Order
	if err := query.Preload("Course").Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// List 管理端订单列表（UserID 为 0 时不过滤用户）
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})

	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no LIKE ?", "%"+filter.OrderNo+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var orders []models.Order
	if err := query.Preload("Course").Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// SetGatewayOrderID 回填网关订单号
func (r *GormOrderRepository) SetGatewayOrderID(id uint, gatewayOrderID string) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Update("gateway_order_id", gatewayOrderID).Error
}

// TransitionStatus 带前置状态守卫的状态转移。
// 返回 false 表示订单已不处于 from 状态（并发竞争的输家据此降级处理）。
func (r *GormOrderRepository) TransitionStatus(id uint, from, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
