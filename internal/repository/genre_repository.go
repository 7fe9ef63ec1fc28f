package repository

import (
	"errors"

	"github.com/spinshop/internal/models"

	"gorm.io/gorm"
)

// GenreRepository 流派数据访问接口
type GenreRepository interface {
	List() ([]models.Genre, error)
	GetByID(id uint) (*models.Genre, error)
	Create(genre *models.Genre) error
	Update(genre *models.Genre) error
	Delete(id uint) error
	CountBySlug(slug string, excludeID *uint) (int64, error)
	CountByName(name string, excludeID *uint) (int64, error)
	CountRecords(genreID uint) (int64, error)
}

// GormGenreRepository GORM 实现
type GormGenreRepository struct {
	db *gorm.DB
}

// NewGenreRepository 创建流派仓库
func NewGenreRepository(db *gorm.DB) *GormGenreRepository {
	return &GormGenreRepository{db: db}
}

// List 流派列表
func (r *GormGenreRepository) List() ([]models.Genre, error) {
	var genres []models.Genre
	if err := r.db.Order("sort_order DESC, id ASC").Find(&genres).Error; err != nil {
		return nil, err
	}
	return genres, nil
}

// GetByID 根据 ID 获取流派
func (r *GormGenreRepository) GetByID(id uint) (*models.Genre, error) {
	var genre models.Genre
	if err := r.db.First(&genre, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &genre, nil
}

// Create 创建流派
func (r *GormGenreRepository) Create(genre *models.Genre) error {
	return r.db.Create(genre).Error
}

// Update 更新流派
func (r *GormGenreRepository) Update(genre *models.Genre) error {
	return r.db.Save(genre).Error
}

// Delete 删除流派
func (r *GormGenreRepository) Delete(id uint) error {
	return r.db.Delete(&models.Genre{}, id).Error
}

// CountBySlug 统计 slug 数量
func (r *GormGenreRepository) CountBySlug(slug string, excludeID *uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Genre{}).Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByName 统计同名流派数量
func (r *GormGenreRepository) CountByName(name string, excludeID *uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Genre{}).Where("name = ?", name)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountRecords 统计某流派下唱片数
func (r *GormGenreRepository) CountRecords(genreID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Record{}).Where("genre_id = ?", genreID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
