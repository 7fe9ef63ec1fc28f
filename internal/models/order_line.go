package models

import (
	"time"
)

// OrderLine 订单行项表
// 标题与单价为转换时刻从购物车行项复制的快照，创建后不可变
type OrderLine struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID    uint      `gorm:"index;not null" json:"order_id"`                           // 订单ID
	RecordID   uint      `gorm:"index;not null" json:"record_id"`                          // 唱片ID
	Title      string    `gorm:"not null" json:"title"`                                    // 唱片标题快照
	Artist     string    `json:"artist"`                                                   // 演出者快照
	UnitPrice  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`  // 单价快照
	Amount     int       `gorm:"not null" json:"amount"`                                   // 数量
	TotalPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 小计
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                                  // 创建时间
}

// TableName 指定表名
func (OrderLine) TableName() string {
	return "order_lines"
}
