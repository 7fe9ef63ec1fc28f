package repository

import (
	"errors"

	"github.com/spinshop/internal/models"

	"gorm.io/gorm"
)

// RecordGroupRepository 唱片系列数据访问接口
type RecordGroupRepository interface {
	List() ([]models.RecordGroup, error)
	GetByID(id uint) (*models.RecordGroup, error)
	Create(group *models.RecordGroup) error
	Update(group *models.RecordGroup) error
	Delete(id uint) error
	CountBySlug(slug string, excludeID *uint) (int64, error)
	CountByName(name string, excludeID *uint) (int64, error)
	CountRecords(groupID uint) (int64, error)
}

// GormRecordGroupRepository GORM 实现
type GormRecordGroupRepository struct {
	db *gorm.DB
}

// NewRecordGroupRepository 创建唱片系列仓库
func NewRecordGroupRepository(db *gorm.DB) *GormRecordGroupRepository {
	return &GormRecordGroupRepository{db: db}
}

// List 系列列表
func (r *GormRecordGroupRepository) List() ([]models.RecordGroup, error) {
	var groups []models.RecordGroup
	if err := r.db.Order("sort_order DESC, id ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// GetByID 根据 ID 获取系列
func (r *GormRecordGroupRepository) GetByID(id uint) (*models.RecordGroup, error) {
	var group models.RecordGroup
	if err := r.db.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// Create 创建系列
func (r *GormRecordGroupRepository) Create(group *models.RecordGroup) error {
	return r.db.Create(group).Error
}

// Update 更新系列
func (r *GormRecordGroupRepository) Update(group *models.RecordGroup) error {
	return r.db.Save(group).Error
}

// Delete 删除系列
func (r *GormRecordGroupRepository) Delete(id uint) error {
	return r.db.Delete(&models.RecordGroup{}, id).Error
}

// CountBySlug 统计 slug 数量
func (r *GormRecordGroupRepository) CountBySlug(slug string, excludeID *uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.RecordGroup{}).Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByName 统计同名系列数量
func (r *GormRecordGroupRepository) CountByName(name string, excludeID *uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.RecordGroup{}).Where("name = ?", name)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountRecords 统计某系列下唱片数
func (r *GormRecordGroupRepository) CountRecords(groupID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Record{}).Where("record_group_id = ?", groupID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
