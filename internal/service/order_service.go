package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spinshop/internal/constants"
	"github.com/spinshop/internal/logger"
	"github.com/spinshop/internal/models"
	"github.com/spinshop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单服务
type OrderService struct {
	orderRepo  repository.OrderRepository
	cartRepo   repository.CartRepository
	recordRepo repository.RecordRepository
	userRepo   repository.UserRepository
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	recordRepo repository.RecordRepository,
	userRepo repository.UserRepository,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		cartRepo:   cartRepo,
		recordRepo: recordRepo,
		userRepo:   userRepo,
	}
}

// CreateFromCart 将当前购物车转为订单
// 库存在加入购物车时已预占，转换只做快照落单并清空购物车，
// 购物车本身保留且仍处于启用状态
func (s *OrderService) CreateFromCart(userEmail, paymentMethod string) (*models.Order, error) {
	user, err := resolveCartOwnerByEmail(s.userRepo, userEmail)
	if err != nil {
		return nil, err
	}
	method, err := normalizePaymentMethod(paymentMethod)
	if err != nil {
		return nil, err
	}
	orderNo, err := s.resolveOrderNo()
	if err != nil {
		return nil, err
	}

	var created *models.Order
	if err := s.cartRepo.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		recordRepo := s.recordRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		cart, err := cartRepo.GetActiveByUserIDForUpdate(user.ID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartNotFound
		}

		lines, err := cartRepo.ListLinesForUpdate(cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 || cart.TotalPrice.Decimal.LessThanOrEqual(decimal.Zero) {
			return ErrCartEmpty
		}

		now := time.Now()
		order := &models.Order{
			OrderNo:       orderNo,
			UserID:        user.ID,
			CartID:        cart.ID,
			PaymentMethod: method,
			TotalPrice:    cart.TotalPrice,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		orderLines := make([]models.OrderLine, 0, len(lines))
		for _, line := range lines {
			orderLine := models.OrderLine{
				RecordID:   line.RecordID,
				UnitPrice:  line.Price,
				Amount:     line.Amount,
				TotalPrice: line.Price.MulInt(line.Amount),
				CreatedAt:  now,
			}
			record, err := recordRepo.GetByID(line.RecordID)
			if err != nil {
				return err
			}
			if record != nil {
				orderLine.Title = record.Title
				orderLine.Artist = record.Artist
			}
			orderLines = append(orderLines, orderLine)
		}

		if err := orderRepo.Create(order, orderLines); err != nil {
			return err
		}

		if err := cartRepo.DeleteLines(cart.ID); err != nil {
			return err
		}
		cart.TotalPrice = models.NewMoneyFromDecimal(decimal.Zero)
		if err := cartRepo.UpdateCart(cart); err != nil {
			return err
		}

		order.Lines = orderLines
		created = order
		return nil
	}); err != nil {
		return nil, err
	}
	logger.Infow("cart_event", "event", constants.CartEventConvert, "cart_id", created.CartID, "order_no", created.OrderNo)
	return created, nil
}

// ListByUser 用户订单列表
func (s *OrderService) ListByUser(userEmail, orderNo string, page, pageSize int) ([]models.Order, int64, error) {
	user, err := resolveCartOwnerByEmail(s.userRepo, userEmail)
	if err != nil {
		return nil, 0, err
	}
	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   user.ID,
		OrderNo:  strings.TrimSpace(orderNo),
	}
	return s.orderRepo.ListByUser(filter)
}

// GetByOrderNo 用户订单详情
func (s *OrderService) GetByOrderNo(userEmail, orderNo string) (*models.Order, error) {
	user, err := resolveCartOwnerByEmail(s.userRepo, userEmail)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByOrderNoAndUser(strings.TrimSpace(orderNo), user.ID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListAdmin 管理端订单列表
func (s *OrderService) ListAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// GetAdminByID 管理端订单详情
func (s *OrderService) GetAdminByID(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// resolveOrderNo 生成未占用的订单号，极小概率的碰撞通过重试规避
func (s *OrderService) resolveOrderNo() (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		orderNo := generateOrderNo()
		count, err := s.orderRepo.CountByOrderNo(orderNo)
		if err != nil {
			return "", err
		}
		if count == 0 {
			return orderNo, nil
		}
	}
	return "", ErrOrderNoExhausted
}

func normalizePaymentMethod(method string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(method))
	if normalized == "" {
		return constants.PaymentMethodCash, nil
	}
	switch normalized {
	case constants.PaymentMethodCash, constants.PaymentMethodCard, constants.PaymentMethodTransfer:
		return normalized, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s%s%s", constants.OrderNoPrefix, now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
