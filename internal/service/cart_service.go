package service

import (
	"errors"
	"time"

	"github.com/spinshop/internal/config"
	"github.com/spinshop/internal/constants"
	"github.com/spinshop/internal/logger"
	"github.com/spinshop/internal/models"
	"github.com/spinshop/internal/queue"
	"github.com/spinshop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// errCartStateChanged 停用流程加锁后发现行项集合已变化，本次事务放弃并重试
var errCartStateChanged = errors.New("cart lines changed under lock")

// CartService 购物车交易服务
// 所有写操作都在单个事务内完成，加锁顺序固定为 唱片 → 购物车 → 行项，
// 任何校验都在持锁之后、写入之前执行
type CartService struct {
	cfg         *config.Config
	userRepo    repository.UserRepository
	recordRepo  repository.RecordRepository
	cartRepo    repository.CartRepository
	queueClient *queue.Client
}

// NewCartService 创建购物车服务
func NewCartService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	recordRepo repository.RecordRepository,
	cartRepo repository.CartRepository,
	queueClient *queue.Client,
) *CartService {
	return &CartService{
		cfg:         cfg,
		userRepo:    userRepo,
		recordRepo:  recordRepo,
		cartRepo:    cartRepo,
		queueClient: queueClient,
	}
}

// CartAddResult 加入购物车结果
type CartAddResult struct {
	CartID       uint `json:"cart_id"`
	UpdatedStock int  `json:"updated_stock"`
}

// CartRemoveResult 移出购物车结果
type CartRemoveResult struct {
	UpdatedStock    int `json:"updated_stock"`
	RemainingInCart int `json:"remaining_in_cart"`
}

// CartContentLine 购物车内容行
type CartContentLine struct {
	RecordID  uint         `json:"record_id"`
	Title     string       `json:"title"`
	Artist    string       `json:"artist"`
	Amount    int          `json:"amount"`
	UnitPrice models.Money `json:"unit_price"`
	LineTotal models.Money `json:"line_total"`
}

// CartContents 购物车内容
type CartContents struct {
	CartID     uint              `json:"cart_id"`
	Lines      []CartContentLine `json:"lines"`
	TotalPrice models.Money      `json:"total_price"`
}

// AddItem 加入购物车并预占库存
// 同一唱片重复加入时合并行项，价格快照保持首次加入时的值
func (s *CartService) AddItem(userEmail string, recordID uint, amount int) (*CartAddResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if recordID == 0 {
		return nil, ErrInvalidCartItem
	}
	user, err := s.resolveCartOwner(userEmail)
	if err != nil {
		return nil, err
	}

	var result CartAddResult
	var cartTouchedAt time.Time
	if err := s.cartRepo.Transaction(func(tx *gorm.DB) error {
		recordRepo := s.recordRepo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		record, err := recordRepo.GetByIDForUpdate(recordID)
		if err != nil {
			return err
		}
		if record == nil {
			return ErrRecordNotFound
		}
		if record.Discontinued {
			return ErrRecordDiscontinued
		}
		if record.Stock < amount {
			return &StockInsufficientError{RecordID: recordID, Requested: amount, Available: record.Stock}
		}

		cart, err := s.ensureActiveCartForUpdate(cartRepo, user.ID)
		if err != nil {
			return err
		}

		line, err := cartRepo.GetLineForUpdate(cart.ID, recordID)
		if err != nil {
			return err
		}

		affected, err := recordRepo.ReserveStock(recordID, amount)
		if err != nil {
			return err
		}
		if affected == 0 {
			return &StockInsufficientError{RecordID: recordID, Requested: amount, Available: record.Stock}
		}

		var unitPrice models.Money
		if line != nil {
			unitPrice = line.Price
			line.Amount += amount
			if err := cartRepo.UpdateLine(line); err != nil {
				return err
			}
		} else {
			unitPrice = record.Price
			line = &models.CartLine{
				CartID:   cart.ID,
				RecordID: recordID,
				Amount:   amount,
				Price:    record.Price,
			}
			if err := cartRepo.CreateLine(line); err != nil {
				return err
			}
		}

		cart.TotalPrice = cart.TotalPrice.AddMoney(unitPrice.MulInt(amount))
		if err := cartRepo.UpdateCart(cart); err != nil {
			return err
		}

		result = CartAddResult{
			CartID:       cart.ID,
			UpdatedStock: record.Stock - amount,
		}
		cartTouchedAt = cart.UpdatedAt
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Infow("cart_event",
		"event", constants.CartEventAdd,
		"cart_id", result.CartID,
		"record_id", recordID,
		"amount", amount,
	)
	s.scheduleIdleDisable(result.CartID, cartTouchedAt)
	return &result, nil
}

// RemoveItem 移出购物车并归还库存
// 移除数量大于持有数量时拒绝，不做截断
func (s *CartService) RemoveItem(userEmail string, recordID uint, amount int) (*CartRemoveResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if recordID == 0 {
		return nil, ErrInvalidCartItem
	}
	user, err := s.resolveCartOwner(userEmail)
	if err != nil {
		return nil, err
	}

	var result CartRemoveResult
	var cartID uint
	if err := s.cartRepo.Transaction(func(tx *gorm.DB) error {
		recordRepo := s.recordRepo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		record, err := recordRepo.GetByIDForUpdate(recordID)
		if err != nil {
			return err
		}
		if record == nil {
			return ErrRecordNotFound
		}

		cart, err := cartRepo.GetActiveByUserIDForUpdate(user.ID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartNotFound
		}
		cartID = cart.ID

		line, err := cartRepo.GetLineForUpdate(cart.ID, recordID)
		if err != nil {
			return err
		}
		if line == nil {
			return ErrCartLineNotFound
		}
		if amount > line.Amount {
			return &RemovalExceededError{RecordID: recordID, Requested: amount, InCart: line.Amount}
		}

		remaining := line.Amount - amount
		if remaining == 0 {
			if err := cartRepo.DeleteLine(cart.ID, recordID); err != nil {
				return err
			}
		} else {
			line.Amount = remaining
			if err := cartRepo.UpdateLine(line); err != nil {
				return err
			}
		}

		if _, err := recordRepo.ReleaseStock(recordID, amount); err != nil {
			return err
		}

		cart.TotalPrice = cart.TotalPrice.SubMoney(line.Price.MulInt(amount))
		if err := cartRepo.UpdateCart(cart); err != nil {
			return err
		}

		result = CartRemoveResult{
			UpdatedStock:    record.Stock + amount,
			RemainingInCart: remaining,
		}
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Infow("cart_event",
		"event", constants.CartEventRemove,
		"cart_id", cartID,
		"record_id", recordID,
		"amount", amount,
	)
	return &result, nil
}

// Contents 获取购物车内容，只读不加锁
// 没有启用中的购物车时返回空内容而不是错误
func (s *CartService) Contents(userEmail string) (*CartContents, error) {
	user, err := s.resolveCartOwner(userEmail)
	if err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.GetActiveByUserID(user.ID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &CartContents{
			Lines:      []CartContentLine{},
			TotalPrice: models.NewMoneyFromDecimal(decimal.Zero),
		}, nil
	}

	lines, err := s.cartRepo.ListLines(cart.ID)
	if err != nil {
		return nil, err
	}

	contents := &CartContents{
		CartID:     cart.ID,
		Lines:      make([]CartContentLine, 0, len(lines)),
		TotalPrice: cart.TotalPrice,
	}
	for _, line := range lines {
		content := CartContentLine{
			RecordID:  line.RecordID,
			Amount:    line.Amount,
			UnitPrice: line.Price,
			LineTotal: line.Price.MulInt(line.Amount),
		}
		if line.Record != nil {
			content.Title = line.Record.Title
			content.Artist = line.Record.Artist
		}
		contents.Lines = append(contents.Lines, content)
	}
	return contents, nil
}

// Disable 停用当前启用中的购物车，归还全部预占库存并清空行项
func (s *CartService) Disable(userEmail string) (uint, error) {
	user, err := s.resolveCartOwner(userEmail)
	if err != nil {
		return 0, err
	}

	cart, err := s.cartRepo.GetActiveByUserID(user.ID)
	if err != nil {
		return 0, err
	}
	if cart == nil {
		return 0, ErrCartNotFound
	}

	for attempt := 0; attempt < constants.CartLockRetryLimit; attempt++ {
		err := s.disableCartOnce(cart.ID, nil)
		if errors.Is(err, errCartStateChanged) {
			continue
		}
		if err != nil {
			return 0, err
		}
		logger.Infow("cart_event", "event", constants.CartEventDisable, "cart_id", cart.ID)
		return cart.ID, nil
	}
	return 0, ErrCartConflict
}

// DisableIdleCart 停用闲置购物车，由队列 worker 调用
// idleSince 为任务入队时购物车 updated_at 的 Unix 秒，
// 购物车在那之后被触达过则任务过期，直接作废
func (s *CartService) DisableIdleCart(cartID uint, idleSince int64) error {
	if cartID == 0 {
		return nil
	}
	for attempt := 0; attempt < constants.CartLockRetryLimit; attempt++ {
		err := s.disableCartOnce(cartID, &idleSince)
		if errors.Is(err, errCartStateChanged) {
			continue
		}
		return err
	}
	return ErrCartConflict
}

// SweepIdleCarts 兜底扫描并停用闲置购物车
// 排期任务可能因队列未启用或消息丢失而没有送达，worker 周期性补扫
func (s *CartService) SweepIdleCarts(now time.Time) error {
	if s.cfg == nil || s.cfg.Cart.IdleDisableMinutes <= 0 {
		return nil
	}
	cutoff := now.Add(-time.Duration(s.cfg.Cart.IdleDisableMinutes) * time.Minute)
	carts, err := s.cartRepo.ListIdleEnabled(cutoff, constants.CartIdleSweepBatchSize)
	if err != nil {
		return err
	}
	for _, cart := range carts {
		if err := s.DisableIdleCart(cart.ID, cart.UpdatedAt.Unix()); err != nil {
			logger.Warnw("cart_idle_sweep_disable_failed",
				"cart_id", cart.ID,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// Enable 重新启用最近停用的购物车
// 只翻转启用标记，不恢复行项也不重新预占库存
func (s *CartService) Enable(userEmail string) (*models.Cart, error) {
	user, err := s.resolveCartOwner(userEmail)
	if err != nil {
		return nil, err
	}

	var enabled *models.Cart
	if err := s.cartRepo.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		active, err := cartRepo.GetActiveByUserIDForUpdate(user.ID)
		if err != nil {
			return err
		}
		if active != nil {
			return ErrCartAlreadyActive
		}

		cart, err := cartRepo.GetLatestDisabledByUserIDForUpdate(user.ID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartNotFound
		}

		cart.Enabled = true
		if err := cartRepo.UpdateCart(cart); err != nil {
			return err
		}
		enabled = cart
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Infow("cart_event", "event", constants.CartEventEnable, "cart_id", enabled.ID)
	return enabled, nil
}

// disableCartOnce 单次停用事务
// 固定加锁顺序要求先锁唱片，但涉及哪些唱片只有读过行项才知道：
// 先无锁快照行项集合，按唱片 ID 升序加锁后再锁购物车与行项，
// 持锁后发现行项集合与快照不一致则返回 errCartStateChanged 由调用方重试
func (s *CartService) disableCartOnce(cartID uint, idleSince *int64) error {
	return s.cartRepo.Transaction(func(tx *gorm.DB) error {
		recordRepo := s.recordRepo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		snapshot, err := cartRepo.ListLines(cartID)
		if err != nil {
			return err
		}
		snapshotIDs := make(map[uint]struct{}, len(snapshot))
		recordIDs := make([]uint, 0, len(snapshot))
		for _, line := range snapshot {
			snapshotIDs[line.RecordID] = struct{}{}
			recordIDs = append(recordIDs, line.RecordID)
		}

		if len(recordIDs) > 0 {
			if _, err := recordRepo.ListByIDsForUpdate(recordIDs); err != nil {
				return err
			}
		}

		cart, err := cartRepo.GetByIDForUpdate(cartID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartNotFound
		}
		if !cart.Enabled {
			// 已被其他路径停用，视为幂等成功
			return nil
		}
		if idleSince != nil && cart.UpdatedAt.Unix() > *idleSince {
			// 入队之后购物车又被触达过，任务过期
			return nil
		}

		lines, err := cartRepo.ListLinesForUpdate(cart.ID)
		if err != nil {
			return err
		}
		if len(lines) != len(snapshot) {
			return errCartStateChanged
		}
		for _, line := range lines {
			if _, ok := snapshotIDs[line.RecordID]; !ok {
				return errCartStateChanged
			}
		}

		for _, line := range lines {
			if _, err := recordRepo.ReleaseStock(line.RecordID, line.Amount); err != nil {
				return err
			}
		}
		if err := cartRepo.DeleteLines(cart.ID); err != nil {
			return err
		}

		cart.Enabled = false
		cart.TotalPrice = models.NewMoneyFromDecimal(decimal.Zero)
		return cartRepo.UpdateCart(cart)
	})
}

// ensureActiveCartForUpdate 持锁获取启用中的购物车，不存在则原子创建后重读
func (s *CartService) ensureActiveCartForUpdate(cartRepo *repository.GormCartRepository, userID uint) (*models.Cart, error) {
	cart, err := cartRepo.GetActiveByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	if err := cartRepo.CreateActive(&models.Cart{UserID: userID}); err != nil {
		return nil, err
	}
	cart, err = cartRepo.GetActiveByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartConflict
	}
	return cart, nil
}

// resolveCartOwner 解析购物车归属用户
func (s *CartService) resolveCartOwner(userEmail string) (*models.User, error) {
	return resolveCartOwnerByEmail(s.userRepo, userEmail)
}

// resolveCartOwnerByEmail 按邮箱解析购物车归属用户，管理员不持有购物车
func resolveCartOwnerByEmail(userRepo repository.UserRepository, userEmail string) (*models.User, error) {
	normalized, err := normalizeEmail(userEmail)
	if err != nil {
		return nil, err
	}
	user, err := userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Role == constants.RoleAdmin {
		return nil, ErrCartRoleNotAllowed
	}
	return user, nil
}

// scheduleIdleDisable 购物车被触达后重新排期闲置停用任务
func (s *CartService) scheduleIdleDisable(cartID uint, touchedAt time.Time) {
	if s.cfg == nil || s.cfg.Cart.IdleDisableMinutes <= 0 {
		return
	}
	delay := time.Duration(s.cfg.Cart.IdleDisableMinutes) * time.Minute
	payload := queue.CartIdleDisablePayload{
		CartID:    cartID,
		IdleSince: touchedAt.Unix(),
	}
	if err := s.queueClient.EnqueueCartIdleDisable(payload, delay); err != nil {
		logger.Warnw("cart_idle_task_enqueue_failed",
			"cart_id", cartID,
			"error", err.Error(),
		)
	}
}
