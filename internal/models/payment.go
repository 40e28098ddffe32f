package models

import (
	"time"
)

// Payment 支付凭证（订单唯一，作为完成支付的幂等锚点）
type Payment struct {
	ID               uint      `gorm:"primarykey" json:"id"`                          // 主键
	OrderID          uint      `gorm:"uniqueIndex;not null" json:"order_id"`          // 订单ID
	UserID           uint      `gorm:"index;not null" json:"user_id"`                 // 用户ID
	Provider         string    `gorm:"not null" json:"provider"`                      // 支付提供方
	Amount           Money     `gorm:"type:decimal(20,2);not null" json:"amount"`     // 支付金额
	Currency         string    `gorm:"not null" json:"currency"`                      // 币种
	GatewayOrderID   string    `gorm:"index;not null" json:"gateway_order_id"`        // 网关订单号
	GatewayPaymentID string    `gorm:"index;not null" json:"gateway_payment_id"`      // 网关支付流水号
	Signature        string    `gorm:"type:text" json:"-"`                            // 回调签名原文
	CreatedAt        time.Time `gorm:"index" json:"created_at"`                       // 创建时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
