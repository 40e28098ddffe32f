package router

import (
	"fmt"
	"strings"

	"github.com/coursemart/internal/cache"
	"github.com/coursemart/internal/config"
	adminhandlers "github.com/coursemart/internal/http/handlers/admin"
	publichandlers "github.com/coursemart/internal/http/handlers/public"
	"github.com/coursemart/internal/logger"
	"github.com/coursemart/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "cm"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口：课程目录无需登录，携带 token 时附带已购标记
		public := apiV1.Group("/public")
		public.Use(OptionalUserJWTMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			public.GET("/courses", publicHandler.ListCourses)
			public.GET("/courses/:slug", publicHandler.GetCourse)
			public.GET("/categories", publicHandler.ListCategories)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.Register)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.Login)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.Me)
			user.GET("/enrollments", publicHandler.ListEnrollments)

			user.GET("/cart", publicHandler.ListCart)
			user.POST("/cart/items", publicHandler.AddToCart)
			user.DELETE("/cart/items/:course_id", publicHandler.RemoveFromCart)
			user.DELETE("/cart", publicHandler.ClearCart)
			user.POST("/cart/checkout", publicHandler.CheckoutCart)

			user.POST("/orders", publicHandler.CreateOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.POST("/orders/:id/cancel", publicHandler.CancelOrder)

			user.POST("/payments/verify", publicHandler.VerifyPayment)
			user.POST("/payments/cart/verify", publicHandler.VerifyCartPayment)

			user.POST("/coupons/validate", publicHandler.ValidateCoupon)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.Login)

			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authorized.GET("/me", adminHandler.Me)

				authorized.GET("/courses", adminHandler.ListCourses)
				authorized.GET("/courses/:id", adminHandler.GetCourse)
				authorized.POST("/courses", adminHandler.CreateCourse)
				authorized.PUT("/courses/:id", adminHandler.UpdateCourse)
				authorized.DELETE("/courses/:id", adminHandler.DeleteCourse)

				authorized.GET("/coupons", adminHandler.ListCoupons)
				authorized.POST("/coupons", adminHandler.CreateCoupon)
				authorized.PUT("/coupons/:id", adminHandler.UpdateCoupon)
				authorized.DELETE("/coupons/:id", adminHandler.DeleteCoupon)

				authorized.GET("/orders", adminHandler.ListOrders)

				authorized.GET("/settings/site", adminHandler.GetSiteConfig)
				authorized.PUT("/settings/site", adminHandler.UpdateSiteConfig)
				authorized.GET("/settings/payment", adminHandler.GetPaymentConfig)
				authorized.PUT("/settings/payment", adminHandler.UpdateActiveProvider)
			}
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
