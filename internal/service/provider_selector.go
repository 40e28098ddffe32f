package service

import (
	"strings"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/logger"
	"github.com/coursemart/internal/payment"
	"github.com/coursemart/internal/repository"
)

// ProviderSelector 支付提供方选择器。
// 下单使用 Active()（后台可切换）；验签使用 ByName() 固定回到下单时的提供方，
// 避免管理员中途切换导致用错密钥验签。
type ProviderSelector struct {
	settingRepo     repository.SettingRepository
	providers       map[string]payment.Provider
	defaultProvider string
}

// NewProviderSelector 创建选择器
func NewProviderSelector(settingRepo repository.SettingRepository, defaultProvider string, providers ...payment.Provider) *ProviderSelector {
	registry := make(map[string]payment.Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		registry[p.Name()] = p
	}
	defaultProvider = strings.ToLower(strings.TrimSpace(defaultProvider))
	if defaultProvider == "" {
		defaultProvider = constants.DefaultPaymentProvider
	}
	return &ProviderSelector{
		settingRepo:     settingRepo,
		providers:       registry,
		defaultProvider: defaultProvider,
	}
}

// Active 解析当前激活的提供方。设置缺失或读取失败时回退默认值，不阻断结算。
func (s *ProviderSelector) Active() payment.Provider {
	name := s.activeName()
	if p, ok := s.providers[name]; ok {
		return p
	}
	logger.Warnw("active_provider_unknown_fallback", "provider", name, "fallback", s.defaultProvider)
	return s.providers[s.defaultProvider]
}

// ByName 按名称获取提供方（验签固定路径）
func (s *ProviderSelector) ByName(name string) (payment.Provider, error) {
	p, ok := s.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return p, nil
}

func (s *ProviderSelector) activeName() string {
	if s.settingRepo == nil {
		return s.defaultProvider
	}
	setting, err := s.settingRepo.GetByKey(constants.SettingKeyPaymentConfig)
	if err != nil {
		logger.Warnw("active_provider_setting_read_failed", "error", err)
		return s.defaultProvider
	}
	if setting == nil {
		return s.defaultProvider
	}
	name := strings.ToLower(strings.TrimSpace(setting.ValueJSON.String(constants.SettingFieldActiveProvider)))
	if name == "" {
		return s.defaultProvider
	}
	return name
}
