package provider

import (
	"github.com/coursemart/internal/cache"
	"github.com/coursemart/internal/config"
	"github.com/coursemart/internal/logger"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/payment"
	"github.com/coursemart/internal/payment/paypal"
	"github.com/coursemart/internal/payment/razorpay"
	"github.com/coursemart/internal/payment/stripe"
	"github.com/coursemart/internal/queue"
	"github.com/coursemart/internal/repository"
	"github.com/coursemart/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo       repository.AdminRepository
	UserRepo        repository.UserRepository
	CategoryRepo    repository.CategoryRepository
	CourseRepo      repository.CourseRepository
	EnrollmentRepo  repository.EnrollmentRepository
	CartRepo        repository.CartRepository
	OrderRepo       repository.OrderRepository
	PaymentRepo     repository.PaymentRepository
	CouponRepo      repository.CouponRepository
	CouponUsageRepo repository.CouponUsageRepository
	SettingRepo     repository.SettingRepository

	// Services
	AuthService      *service.AuthService
	UserAuthService  *service.UserAuthService
	EmailService     *service.EmailService
	CourseService    *service.CourseService
	CartService      *service.CartService
	CouponService    *service.CouponService
	SettingService   *service.SettingService
	OrderService     *service.OrderService
	ProviderSelector *service.ProviderSelector
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.CourseRepo = repository.NewCourseRepository(db)
	c.EnrollmentRepo = repository.NewEnrollmentRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

func (c *Container) initServices() {
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.CourseService = service.NewCourseService(c.CourseRepo, c.CategoryRepo, c.EnrollmentRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.CourseRepo, c.EnrollmentRepo)
	c.CouponService = service.NewCouponService(c.Config.Coupon.Enabled, c.CouponRepo, c.CouponUsageRepo)

	c.ProviderSelector = service.NewProviderSelector(
		c.SettingRepo,
		c.Config.Payment.DefaultProvider,
		c.buildPaymentProviders()...,
	)
	c.SettingService = service.NewSettingService(c.SettingRepo, c.ProviderSelector)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.CourseRepo,
		c.EnrollmentRepo,
		c.PaymentRepo,
		c.CartRepo,
		c.UserRepo,
		c.CouponService,
		c.ProviderSelector,
		c.QueueClient,
		c.Config.Order.PendingRetrySeconds,
		c.Config.Order.GatewayTimeoutSeconds,
		c.Config.Payment.Currency,
	)
}

func (c *Container) buildPaymentProviders() []payment.Provider {
	return []payment.Provider{
		razorpay.New(razorpay.Config{
			KeyID:     c.Config.Payment.Razorpay.KeyID,
			KeySecret: c.Config.Payment.Razorpay.KeySecret,
			BaseURL:   c.Config.Payment.Razorpay.BaseURL,
		}),
		stripe.New(),
		paypal.New(),
	}
}
