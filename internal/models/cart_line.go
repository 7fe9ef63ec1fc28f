package models

import (
	"time"
)

// CartLine 购物车行项表
// Price 为首次加购时的快照价，合并数量时不刷新；行项为硬删除（归零/转订单/停用）
type CartLine struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                          // 主键
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_lines_cart_record" json:"cart_id"`   // 购物车ID
	RecordID  uint      `gorm:"not null;uniqueIndex:idx_cart_lines_cart_record" json:"record_id"` // 唱片ID
	Amount    int       `gorm:"not null" json:"amount"`                                        // 数量（>= 1）
	Price     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"`           // 快照单价
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                                       // 更新时间

	Record *Record `gorm:"foreignKey:RecordID" json:"record,omitempty"` // 关联唱片
}

// TableName 指定表名
func (CartLine) TableName() string {
	return "cart_lines"
}
