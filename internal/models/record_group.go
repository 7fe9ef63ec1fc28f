package models

import (
	"time"

	"gorm.io/gorm"
)

// RecordGroup 唱片系列表（乐队/厂牌的发行系列）
type RecordGroup struct {
	ID        uint           `gorm:"primarykey" json:"id"`              // 主键
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"`  // 唯一标识
	Name      string         `gorm:"uniqueIndex;not null" json:"name"`  // 系列名称
	SortOrder int            `gorm:"default:0;index" json:"sort_order"` // 排序权重
	CreatedAt time.Time      `gorm:"index" json:"created_at"`           // 创建时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                    // 软删除时间
}

// TableName 指定表名
func (RecordGroup) TableName() string {
	return "record_groups"
}
