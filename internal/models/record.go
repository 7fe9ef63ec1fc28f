package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// StringArray 字符串数组类型，用于存储 tags 等
type StringArray []string

// Value 实现 driver.Valuer 接口
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner 接口
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Record 唱片库存表
// Stock 非负由预占协议保证（条件 UPDATE + RowsAffected 校验），不依赖数据库 CHECK
type Record struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                   // 主键
	GenreID       uint           `gorm:"not null;index" json:"genre_id"`                         // 流派ID
	RecordGroupID *uint          `gorm:"index" json:"record_group_id,omitempty"`                 // 系列ID（可空）
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"`                       // 唯一标识
	Title         string         `gorm:"not null" json:"title"`                                  // 唱片标题
	Artist        string         `gorm:"index" json:"artist"`                                    // 演出者
	ReleaseYear   int            `gorm:"default:0" json:"release_year"`                          // 发行年份
	Price         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`     // 单价
	Stock         int            `gorm:"not null;default:0" json:"stock"`                        // 库存（>= 0）
	Discontinued  bool           `gorm:"not null;default:false;index" json:"discontinued"`       // 是否停售（停售不可加购）
	Tags          StringArray    `gorm:"type:json" json:"tags"`                                  // 标签数组
	CoverURL      string         `gorm:"type:varchar(500)" json:"cover_url"`                     // 封面图片
	SortOrder     int            `gorm:"default:0;index" json:"sort_order"`                      // 排序权重
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                             // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                         // 软删除时间

	// 关联
	Genre Genre        `gorm:"foreignKey:GenreID" json:"genre,omitempty"`        // 流派信息
	Group *RecordGroup `gorm:"foreignKey:RecordGroupID" json:"group,omitempty"` // 系列信息
}

// TableName 指定表名
func (Record) TableName() string {
	return "records"
}
