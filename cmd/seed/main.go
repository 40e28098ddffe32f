package main

import (
	"time"

	"github.com/coursemart/internal/config"
	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/logger"
	"github.com/coursemart/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to bootstrap default admin: %v", err)
	}

	// 添加分类
	categories := []models.Category{
		{Name: "Programming", Slug: "programming", SortOrder: 1},
		{Name: "Design", Slug: "design", SortOrder: 2},
		{Name: "Business", Slug: "business", SortOrder: 3},
	}
	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}

	categoryIDs := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Where("slug IN ?", []string{"programming", "design", "business"}).Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
	}
	for _, cat := range categoryList {
		categoryIDs[cat.Slug] = cat.ID
	}
	programmingID := categoryIDs["programming"]
	designID := categoryIDs["design"]
	businessID := categoryIDs["business"]

	// 添加课程
	courses := []models.Course{
		{
			CategoryID:    &programmingID,
			Slug:          "go-backend-bootcamp",
			Title:         "Go Backend Bootcamp",
			Description:   "Build production HTTP services in Go: routing, databases, background jobs and deployment.",
			Instructor:    "Priya Raman",
			PriceAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(499)),
			PriceCurrency: "INR",
			IsPublished:   true,
			SortOrder:     1,
		},
		{
			CategoryID:    &programmingID,
			Slug:          "sql-for-developers",
			Title:         "SQL for Developers",
			Description:   "Schema design, indexing and query tuning for application developers.",
			Instructor:    "Arjun Mehta",
			PriceAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(299)),
			PriceCurrency: "INR",
			IsPublished:   true,
			SortOrder:     2,
		},
		{
			CategoryID:    &designID,
			Slug:          "ui-design-fundamentals",
			Title:         "UI Design Fundamentals",
			Description:   "Layout, typography and color for product interfaces.",
			Instructor:    "Sneha Kulkarni",
			PriceAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(399)),
			PriceCurrency: "INR",
			IsPublished:   true,
			SortOrder:     3,
		},
		{
			CategoryID:    &businessID,
			Slug:          "freelance-starter-kit",
			Title:         "Freelance Starter Kit",
			Description:   "Free introduction to pricing, contracts and finding your first clients.",
			Instructor:    "Rahul Nair",
			PriceAmount:   models.NewMoneyFromDecimal(decimal.Zero),
			PriceCurrency: "INR",
			IsPublished:   true,
			SortOrder:     4,
		},
		{
			CategoryID:    &programmingID,
			Slug:          "distributed-systems-draft",
			Title:         "Distributed Systems (Draft)",
			Description:   "Work in progress, not yet published.",
			Instructor:    "Priya Raman",
			PriceAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(899)),
			PriceCurrency: "INR",
			IsPublished:   false,
			SortOrder:     5,
		},
	}
	for _, course := range courses {
		var existing models.Course
		if err := models.DB.Where("slug = ?", course.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&course).Error; err != nil {
				stdLog.Printf("Failed to create course %s: %v", course.Slug, err)
			} else {
				stdLog.Printf("Created course: %s", course.Slug)
			}
		} else {
			stdLog.Printf("Course already exists: %s", course.Slug)
		}
	}

	// 添加优惠券
	now := time.Now()
	monthEnd := now.AddDate(0, 1, 0)
	coupons := []models.Coupon{
		{
			Code:         "WELCOME10",
			Type:         constants.CouponTypePercentage,
			Value:        models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			MaxDiscount:  models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
			UsageLimit:   0,
			PerUserLimit: 1,
			StartsAt:     &now,
			EndsAt:       &monthEnd,
			IsActive:     true,
		},
		{
			Code:       "FLAT50",
			Type:       constants.CouponTypeFixed,
			Value:      models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
			MinAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(300)),
			UsageLimit: 100,
			StartsAt:   &now,
			EndsAt:     &monthEnd,
			IsActive:   true,
		},
	}
	for _, coupon := range coupons {
		var existing models.Coupon
		if err := models.DB.Where("code = ?", coupon.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&coupon).Error; err != nil {
				stdLog.Printf("Failed to create coupon %s: %v", coupon.Code, err)
			} else {
				stdLog.Printf("Created coupon: %s", coupon.Code)
			}
		} else {
			stdLog.Printf("Coupon already exists: %s", coupon.Code)
		}
	}

	stdLog.Println("Seed completed")
}
