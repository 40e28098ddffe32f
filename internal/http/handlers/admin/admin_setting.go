package admin

import (
	"errors"

	"github.com/coursemart/internal/http/response"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/service"

	"github.com/gin-gonic/gin"
)

// ActiveProviderRequest 切换激活支付提供方请求
type ActiveProviderRequest struct {
	Provider string `json:"provider" binding:"required"`
}

// GetSiteConfig 获取站点配置
func (h *Handler) GetSiteConfig(c *gin.Context) {
	value, err := h.SettingService.GetSiteConfig()
	if err != nil {
		respondError(c, response.CodeInternal, "fetch site config failed", err)
		return
	}
	response.Success(c, value)
}

// UpdateSiteConfig 更新站点配置
func (h *Handler) UpdateSiteConfig(c *gin.Context) {
	var value models.JSON
	if err := c.ShouldBindJSON(&value); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}
	updated, err := h.SettingService.UpdateSiteConfig(value)
	if err != nil {
		respondError(c, response.CodeInternal, "update site config failed", err)
		return
	}
	response.Success(c, updated)
}

// GetPaymentConfig 获取支付配置
func (h *Handler) GetPaymentConfig(c *gin.Context) {
	active, err := h.SettingService.GetActiveProvider()
	if err != nil {
		respondError(c, response.CodeInternal, "fetch payment config failed", err)
		return
	}
	if active == "" {
		active = h.Config.Payment.DefaultProvider
	}
	response.Success(c, gin.H{"active_provider": active})
}

// UpdateActiveProvider 切换激活的支付提供方
func (h *Handler) UpdateActiveProvider(c *gin.Context) {
	var req ActiveProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}
	if err := h.SettingService.UpdateActiveProvider(req.Provider); err != nil {
		if errors.Is(err, service.ErrProviderNotSupported) {
			respondError(c, response.CodeBadRequest, "payment provider not supported", nil)
			return
		}
		respondError(c, response.CodeInternal, "update payment config failed", err)
		return
	}
	requestLog(c).Infow("payment_provider_switched", "provider", req.Provider)
	response.Success(c, nil)
}
