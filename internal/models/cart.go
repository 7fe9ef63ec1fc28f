package models

import (
	"time"
)

// Cart 购物车表
// 部分唯一索引保证每个用户最多一个启用中的购物车；购物车只停用/启用，从不删除
type Cart struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                                      // 主键
	UserID     uint      `gorm:"not null;index;uniqueIndex:idx_carts_user_active,where:enabled" json:"user_id"` // 用户ID
	Enabled    bool      `gorm:"not null;default:true;index" json:"enabled"`                                // 是否启用
	TotalPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"`                  // 缓存总价（随行项增量维护）
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                                                   // 创建时间
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`                                                   // 更新时间（闲置判定依据）

	Lines []CartLine `gorm:"foreignKey:CartID" json:"lines,omitempty"` // 行项
}

// TableName 指定表名
func (Cart) TableName() string {
	return "carts"
}
