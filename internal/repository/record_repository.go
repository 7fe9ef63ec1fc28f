package repository

import (
	"errors"
	"strings"

	"github.com/spinshop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordRepository 唱片数据访问接口
type RecordRepository interface {
	List(filter RecordListFilter) ([]models.Record, int64, error)
	GetByID(id uint) (*models.Record, error)
	GetBySlug(slug string, onlyAvailable bool) (*models.Record, error)
	GetByIDForUpdate(id uint) (*models.Record, error)
	ListByIDsForUpdate(ids []uint) ([]models.Record, error)
	Create(record *models.Record) error
	Update(record *models.Record) error
	Delete(id uint) error
	CountBySlug(slug string, excludeID *uint) (int64, error)
	ReserveStock(recordID uint, amount int) (int64, error)
	ReleaseStock(recordID uint, amount int) (int64, error)
	AdjustStock(recordID uint, delta int) (int64, error)
	CountCartLines(recordID uint) (int64, error)
	CountOrderLines(recordID uint) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) RecordRepository
}

// GormRecordRepository GORM 实现
type GormRecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository 创建唱片仓库
func NewRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRecordRepository) WithTx(tx *gorm.DB) RecordRepository {
	if tx == nil {
		return r
	}
	return &GormRecordRepository{db: tx}
}

// Transaction 执行事务
func (r *GormRecordRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// List 唱片列表
func (r *GormRecordRepository) List(filter RecordListFilter) ([]models.Record, int64, error) {
	var records []models.Record

	query := r.db.Model(&models.Record{})
	if filter.WithGenre {
		query = query.Preload("Genre")
	}
	if filter.WithGroup {
		query = query.Preload("Group")
	}
	if !filter.IncludeDiscontinued {
		query = query.Where("discontinued = ?", false)
	}
	if filter.OnlyInStock {
		query = query.Where("stock > 0")
	}
	if filter.GenreID != 0 {
		query = query.Where("genre_id = ?", filter.GenreID)
	}
	if filter.RecordGroupID != 0 {
		query = query.Where("record_group_id = ?", filter.RecordGroupID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		condition, argCount := buildSearchLikeCondition(r.db, []string{"title", "artist", "slug"})
		query = query.Where(condition, repeatLikeArgs(like, argCount)...)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("sort_order DESC, created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// GetByID 根据 ID 获取唱片
func (r *GormRecordRepository) GetByID(id uint) (*models.Record, error) {
	var record models.Record
	if err := r.db.Preload("Genre").Preload("Group").First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetBySlug 根据 slug 获取唱片
func (r *GormRecordRepository) GetBySlug(slug string, onlyAvailable bool) (*models.Record, error) {
	query := r.db.Preload("Genre").Preload("Group").Where("slug = ?", slug)
	if onlyAvailable {
		query = query.Where("discontinued = ?", false)
	}

	var record models.Record
	if err := query.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByIDForUpdate 按 ID 加锁获取唱片
func (r *GormRecordRepository) GetByIDForUpdate(id uint) (*models.Record, error) {
	if id == 0 {
		return nil, nil
	}
	var record models.Record
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListByIDsForUpdate 按 ID 升序批量加锁获取唱片
// 升序加锁与单条加锁路径保持一致的全局顺序，避免互相死锁
func (r *GormRecordRepository) ListByIDsForUpdate(ids []uint) ([]models.Record, error) {
	if len(ids) == 0 {
		return []models.Record{}, nil
	}
	var records []models.Record
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Create 创建唱片
func (r *GormRecordRepository) Create(record *models.Record) error {
	return r.db.Create(record).Error
}

// Update 更新唱片
func (r *GormRecordRepository) Update(record *models.Record) error {
	return r.db.Save(record).Error
}

// Delete 删除唱片
func (r *GormRecordRepository) Delete(id uint) error {
	return r.db.Delete(&models.Record{}, id).Error
}

// CountBySlug 统计 slug 数量
func (r *GormRecordRepository) CountBySlug(slug string, excludeID *uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Record{}).Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ReserveStock 预占库存
// 条件更新保证并发下库存不会减为负数，调用方须校验 RowsAffected
func (r *GormRecordRepository) ReserveStock(recordID uint, amount int) (int64, error) {
	if recordID == 0 || amount <= 0 {
		return 0, errors.New("invalid stock reserve params")
	}
	result := r.db.Model(&models.Record{}).
		Where("id = ? AND stock >= ?", recordID, amount).
		Updates(map[string]interface{}{
			"stock": gorm.Expr("stock - ?", amount),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseStock 释放库存预占
func (r *GormRecordRepository) ReleaseStock(recordID uint, amount int) (int64, error) {
	if recordID == 0 || amount <= 0 {
		return 0, errors.New("invalid stock release params")
	}
	result := r.db.Model(&models.Record{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"stock": gorm.Expr("stock + ?", amount),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AdjustStock 调整库存（正负均可，结果不允许为负）
func (r *GormRecordRepository) AdjustStock(recordID uint, delta int) (int64, error) {
	if recordID == 0 || delta == 0 {
		return 0, errors.New("invalid stock adjust params")
	}
	result := r.db.Model(&models.Record{}).
		Where("id = ? AND stock + ? >= 0", recordID, delta).
		Updates(map[string]interface{}{
			"stock": gorm.Expr("stock + ?", delta),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountCartLines 统计引用该唱片的购物车行项数
func (r *GormRecordRepository) CountCartLines(recordID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.CartLine{}).Where("record_id = ?", recordID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountOrderLines 统计引用该唱片的订单行项数
func (r *GormRecordRepository) CountOrderLines(recordID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.OrderLine{}).Where("record_id = ?", recordID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
