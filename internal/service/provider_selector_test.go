package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupSelectorTest(t *testing.T) (*ProviderSelector, repository.SettingRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		t.Fatalf("迁移测试表失败: %v", err)
	}
	settingRepo := repository.NewSettingRepository(db)
	selector := NewProviderSelector(settingRepo, constants.PaymentProviderRazorpay,
		&fakeProvider{name: constants.PaymentProviderRazorpay, valid: true},
		&fakeProvider{name: constants.PaymentProviderStripe, valid: true},
	)
	return selector, settingRepo
}

func setActiveProvider(t *testing.T, repo repository.SettingRepository, name string) {
	t.Helper()
	if _, err := repo.Upsert(constants.SettingKeyPaymentConfig, models.JSON{
		constants.SettingFieldActiveProvider: name,
	}); err != nil {
		t.Fatalf("写入支付配置失败: %v", err)
	}
}

func TestActiveDefaultsWhenSettingMissing(t *testing.T) {
	selector, _ := setupSelectorTest(t)
	p := selector.Active()
	if p == nil || p.Name() != constants.PaymentProviderRazorpay {
		t.Fatalf("设置缺失应回退默认提供方")
	}
}

func TestActiveFollowsSetting(t *testing.T) {
	selector, settingRepo := setupSelectorTest(t)
	setActiveProvider(t, settingRepo, constants.PaymentProviderStripe)

	p := selector.Active()
	if p == nil || p.Name() != constants.PaymentProviderStripe {
		t.Fatalf("应选中设置指定的提供方")
	}
}

func TestActiveUnknownNameFallsBack(t *testing.T) {
	selector, settingRepo := setupSelectorTest(t)
	setActiveProvider(t, settingRepo, "alipay")

	p := selector.Active()
	if p == nil || p.Name() != constants.PaymentProviderRazorpay {
		t.Fatalf("未注册提供方应回退默认")
	}
}

func TestByNamePinsProvider(t *testing.T) {
	selector, settingRepo := setupSelectorTest(t)

	p, err := selector.ByName(constants.PaymentProviderStripe)
	if err != nil {
		t.Fatalf("按名称获取失败: %v", err)
	}
	if p.Name() != constants.PaymentProviderStripe {
		t.Fatalf("应返回指定提供方")
	}

	// 切换激活设置不影响按名称固定的路径
	setActiveProvider(t, settingRepo, constants.PaymentProviderRazorpay)
	p, err = selector.ByName(constants.PaymentProviderStripe)
	if err != nil || p.Name() != constants.PaymentProviderStripe {
		t.Fatalf("ByName 不应受激活设置影响")
	}
}

func TestByNameUnknown(t *testing.T) {
	selector, _ := setupSelectorTest(t)
	if _, err := selector.ByName("epay"); !errors.Is(err, ErrProviderNotSupported) {
		t.Fatalf("未注册提供方期望 ErrProviderNotSupported, 实际 %v", err)
	}
}
