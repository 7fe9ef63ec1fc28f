package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
// 创建后不可变，行项金额均为下单时刻的快照
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                     // 主键
	OrderNo       string         `gorm:"uniqueIndex;not null" json:"order_no"`                     // 订单编号
	UserID        uint           `gorm:"index;not null" json:"user_id"`                            // 用户ID
	CartID        uint           `gorm:"index" json:"cart_id"`                                     // 来源购物车ID（仅记录出处）
	PaymentMethod string         `gorm:"type:varchar(20);not null" json:"payment_method"`          // 支付方式
	TotalPrice    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 订单总额
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间

	Lines []OrderLine `gorm:"foreignKey:OrderID" json:"lines,omitempty"` // 订单行项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
