package repository

import (
	"errors"
	"time"

	"github.com/spinshop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	GetActiveByUserID(userID uint) (*models.Cart, error)
	GetActiveByUserIDForUpdate(userID uint) (*models.Cart, error)
	GetByIDForUpdate(cartID uint) (*models.Cart, error)
	GetLatestDisabledByUserIDForUpdate(userID uint) (*models.Cart, error)
	ListIdleEnabled(before time.Time, limit int) ([]models.Cart, error)
	CreateActive(cart *models.Cart) error
	UpdateCart(cart *models.Cart) error
	GetLine(cartID, recordID uint) (*models.CartLine, error)
	GetLineForUpdate(cartID, recordID uint) (*models.CartLine, error)
	ListLines(cartID uint) ([]models.CartLine, error)
	ListLinesForUpdate(cartID uint) ([]models.CartLine, error)
	CreateLine(line *models.CartLine) error
	UpdateLine(line *models.CartLine) error
	DeleteLine(cartID, recordID uint) error
	DeleteLines(cartID uint) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCartRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetActiveByUserID 获取用户启用中的购物车
func (r *GormCartRepository) GetActiveByUserID(userID uint) (*models.Cart, error) {
	if userID == 0 {
		return nil, nil
	}
	var cart models.Cart
	if err := r.db.Where("user_id = ? AND enabled = ?", userID, true).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// GetActiveByUserIDForUpdate 加锁获取用户启用中的购物车
func (r *GormCartRepository) GetActiveByUserIDForUpdate(userID uint) (*models.Cart, error) {
	if userID == 0 {
		return nil, nil
	}
	var cart models.Cart
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND enabled = ?", userID, true).
		First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// GetByIDForUpdate 按 ID 加锁获取购物车
func (r *GormCartRepository) GetByIDForUpdate(cartID uint) (*models.Cart, error) {
	if cartID == 0 {
		return nil, nil
	}
	var cart models.Cart
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", cartID).
		First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// GetLatestDisabledByUserIDForUpdate 加锁获取用户最近停用的购物车
func (r *GormCartRepository) GetLatestDisabledByUserIDForUpdate(userID uint) (*models.Cart, error) {
	if userID == 0 {
		return nil, nil
	}
	var cart models.Cart
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND enabled = ?", userID, false).
		Order("updated_at DESC, id DESC").
		First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// ListIdleEnabled 获取在指定时间之前未被触达的启用中购物车
// 不加锁，只做候选筛选，停用本身由带锁事务复核
func (r *GormCartRepository) ListIdleEnabled(before time.Time, limit int) ([]models.Cart, error) {
	if limit <= 0 {
		limit = 100
	}
	var carts []models.Cart
	if err := r.db.Where("enabled = ? AND updated_at < ?", true, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}

// CreateActive 原子创建启用中的购物车
// 依赖 carts(user_id) WHERE enabled 的部分唯一索引做冲突目标：
// 并发下最多一条插入成功，落选方 RowsAffected 为 0，调用方随后加锁重读
func (r *GormCartRepository) CreateActive(cart *models.Cart) error {
	if cart == nil {
		return nil
	}
	cart.Enabled = true
	return r.db.Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "user_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{gorm.Expr("enabled")}},
		DoNothing:   true,
	}).Create(cart).Error
}

// UpdateCart 更新购物车
func (r *GormCartRepository) UpdateCart(cart *models.Cart) error {
	return r.db.Save(cart).Error
}

// GetLine 获取购物车行项
func (r *GormCartRepository) GetLine(cartID, recordID uint) (*models.CartLine, error) {
	var line models.CartLine
	if err := r.db.Where("cart_id = ? AND record_id = ?", cartID, recordID).First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

// GetLineForUpdate 加锁获取购物车行项
func (r *GormCartRepository) GetLineForUpdate(cartID, recordID uint) (*models.CartLine, error) {
	var line models.CartLine
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ? AND record_id = ?", cartID, recordID).
		First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

// ListLines 获取购物车全部行项
func (r *GormCartRepository) ListLines(cartID uint) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.db.Preload("Record").
		Where("cart_id = ?", cartID).
		Order("record_id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// ListLinesForUpdate 按唱片 ID 升序加锁获取购物车全部行项
func (r *GormCartRepository) ListLinesForUpdate(cartID uint) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cartID).
		Order("record_id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// CreateLine 创建购物车行项
func (r *GormCartRepository) CreateLine(line *models.CartLine) error {
	return r.db.Create(line).Error
}

// UpdateLine 更新购物车行项
func (r *GormCartRepository) UpdateLine(line *models.CartLine) error {
	return r.db.Save(line).Error
}

// DeleteLine 删除购物车行项（硬删除）
func (r *GormCartRepository) DeleteLine(cartID, recordID uint) error {
	return r.db.Where("cart_id = ? AND record_id = ?", cartID, recordID).Delete(&models.CartLine{}).Error
}

// DeleteLines 删除购物车全部行项（硬删除）
func (r *GormCartRepository) DeleteLines(cartID uint) error {
	return r.db.Where("cart_id = ?", cartID).Delete(&models.CartLine{}).Error
}
