package service

import (
	"strings"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/logger"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/repository"
)

// SettingService 系统设置服务
type SettingService struct {
	settingRepo repository.SettingRepository
	selector    *ProviderSelector
}

// NewSettingService 创建设置服务
func NewSettingService(settingRepo repository.SettingRepository, selector *ProviderSelector) *SettingService {
	return &SettingService{settingRepo: settingRepo, selector: selector}
}

// GetSiteConfig 获取站点配置
func (s *SettingService) GetSiteConfig() (models.JSON, error) {
	setting, err := s.settingRepo.GetByKey(constants.SettingKeySiteConfig)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return models.JSON{}, nil
	}
	return setting.ValueJSON, nil
}

// UpdateSiteConfig 更新站点配置
func (s *SettingService) UpdateSiteConfig(value models.JSON) (models.JSON, error) {
	setting, err := s.settingRepo.Upsert(constants.SettingKeySiteConfig, value)
	if err != nil {
		return nil, err
	}
	return setting.ValueJSON, nil
}

// GetActiveProvider 获取当前激活的支付提供方名称
func (s *SettingService) GetActiveProvider() (string, error) {
	setting, err := s.settingRepo.GetByKey(constants.SettingKeyPaymentConfig)
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(setting.ValueJSON.String(constants.SettingFieldActiveProvider))), nil
}

// UpdateActiveProvider 切换激活的支付提供方。只接受已注册的提供方，
// 切换只影响后续下单，已建订单验签仍用下单时的提供方。
func (s *SettingService) UpdateActiveProvider(name string) error {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if _, err := s.selector.ByName(normalized); err != nil {
		return err
	}

	setting, err := s.settingRepo.GetByKey(constants.SettingKeyPaymentConfig)
	if err != nil {
		return err
	}
	value := models.JSON{}
	if setting != nil && setting.ValueJSON != nil {
		value = setting.ValueJSON
	}
	value[constants.SettingFieldActiveProvider] = normalized
	if _, err := s.settingRepo.Upsert(constants.SettingKeyPaymentConfig, value); err != nil {
		return err
	}
	logger.Infow("active_provider_updated", "provider", normalized)
	return nil
}
