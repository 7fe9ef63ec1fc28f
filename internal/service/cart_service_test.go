package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spinshop/internal/config"
	"github.com/spinshop/internal/constants"
	"github.com/spinshop/internal/models"
	"github.com/spinshop/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupCartServiceTest(t *testing.T) (*CartService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Genre{},
		&models.RecordGroup{},
		&models.Record{},
		&models.Cart{},
		&models.CartLine{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	cfg := &config.Config{}
	userRepo := repository.NewUserRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	cartRepo := repository.NewCartRepository(db)
	return NewCartService(cfg, userRepo, recordRepo, cartRepo, nil), db
}

func createCartTestUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		DisplayName:  "测试用户",
		Role:         role,
		Status:       constants.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func createCartTestRecord(t *testing.T, db *gorm.DB, slug, price string, stock int) *models.Record {
	t.Helper()
	now := time.Now()
	genre := models.Genre{
		Slug:      "genre-" + slug,
		Name:      "流派-" + slug,
		CreatedAt: now,
	}
	if err := db.Create(&genre).Error; err != nil {
		t.Fatalf("create genre failed: %v", err)
	}
	record := &models.Record{
		GenreID:   genre.ID,
		Slug:      slug,
		Title:     "唱片-" + slug,
		Artist:    "测试乐手",
		Price:     mustMoney(t, price),
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("create record failed: %v", err)
	}
	return record
}

func mustMoney(t *testing.T, value string) models.Money {
	t.Helper()
	m, err := models.NewMoneyFromString(value)
	if err != nil {
		t.Fatalf("parse money failed: %v", err)
	}
	return m
}

func TestCartServiceAddItem(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "kind-of-blue", "3.00", 10)

	result, err := svc.AddItem("buyer@example.com", record.ID, 4)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if result.CartID == 0 {
		t.Fatalf("expected cart id, got zero")
	}
	if result.UpdatedStock != 6 {
		t.Fatalf("expected updated stock 6, got %d", result.UpdatedStock)
	}

	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 6 {
		t.Fatalf("expected stored stock 6, got %d", stored.Stock)
	}

	var cart models.Cart
	if err := db.First(&cart, result.CartID).Error; err != nil {
		t.Fatalf("load cart failed: %v", err)
	}
	if !cart.Enabled {
		t.Fatalf("expected cart enabled")
	}
	if !cart.TotalPrice.EqualMoney(mustMoney(t, "12.00")) {
		t.Fatalf("unexpected cart total: %s", cart.TotalPrice.String())
	}

	var line models.CartLine
	if err := db.Where("cart_id = ? AND record_id = ?", cart.ID, record.ID).First(&line).Error; err != nil {
		t.Fatalf("load cart line failed: %v", err)
	}
	if line.Amount != 4 {
		t.Fatalf("expected line amount 4, got %d", line.Amount)
	}
	if !line.Price.EqualMoney(mustMoney(t, "3.00")) {
		t.Fatalf("unexpected line price: %s", line.Price.String())
	}
}

func TestCartServiceAddItemMergeKeepsFirstPrice(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "blue-train", "10.00", 20)

	if _, err := svc.AddItem("buyer@example.com", record.ID, 2); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	// 行项已持有旧价快照，改价不影响已在购物车中的数量
	if err := db.Model(&models.Record{}).Where("id = ?", record.ID).
		Update("price", mustMoney(t, "12.50")).Error; err != nil {
		t.Fatalf("update price failed: %v", err)
	}

	result, err := svc.AddItem("buyer@example.com", record.ID, 3)
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if result.UpdatedStock != 15 {
		t.Fatalf("expected updated stock 15, got %d", result.UpdatedStock)
	}

	var line models.CartLine
	if err := db.Where("cart_id = ? AND record_id = ?", result.CartID, record.ID).First(&line).Error; err != nil {
		t.Fatalf("load cart line failed: %v", err)
	}
	if line.Amount != 5 {
		t.Fatalf("expected merged amount 5, got %d", line.Amount)
	}
	if !line.Price.EqualMoney(mustMoney(t, "10.00")) {
		t.Fatalf("expected snapshot price 10.00, got %s", line.Price.String())
	}

	var cart models.Cart
	if err := db.First(&cart, result.CartID).Error; err != nil {
		t.Fatalf("load cart failed: %v", err)
	}
	if !cart.TotalPrice.EqualMoney(mustMoney(t, "50.00")) {
		t.Fatalf("expected cart total 50.00, got %s", cart.TotalPrice.String())
	}
}

func TestCartServiceAddItemInsufficientStock(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "rare-pressing", "42.00", 3)

	_, err := svc.AddItem("buyer@example.com", record.ID, 5)
	if !errors.Is(err, ErrStockInsufficient) {
		t.Fatalf("expected stock insufficient, got: %v", err)
	}
	var stockErr *StockInsufficientError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected typed stock error, got: %v", err)
	}
	if stockErr.RecordID != record.ID || stockErr.Requested != 5 || stockErr.Available != 3 {
		t.Fatalf("unexpected stock error payload: %+v", stockErr)
	}

	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 3 {
		t.Fatalf("expected stock unchanged at 3, got %d", stored.Stock)
	}

	var cartCount int64
	if err := db.Model(&models.Cart{}).Count(&cartCount).Error; err != nil {
		t.Fatalf("count carts failed: %v", err)
	}
	if cartCount != 0 {
		t.Fatalf("expected no cart created, got %d", cartCount)
	}
}

func TestCartServiceAddItemValidation(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "abbey-road", "36.00", 10)

	if _, err := svc.AddItem("buyer@example.com", record.ID, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for zero, got: %v", err)
	}
	if _, err := svc.AddItem("buyer@example.com", record.ID, -2); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for negative, got: %v", err)
	}
	if _, err := svc.AddItem("buyer@example.com", 0, 1); !errors.Is(err, ErrInvalidCartItem) {
		t.Fatalf("expected invalid cart item, got: %v", err)
	}
	if _, err := svc.AddItem("buyer@example.com", record.ID+100, 1); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected record not found, got: %v", err)
	}
	if _, err := svc.AddItem("ghost@example.com", record.ID, 1); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found, got: %v", err)
	}
}

func TestCartServiceAddItemDiscontinued(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "out-of-print", "18.00", 5)
	if err := db.Model(&models.Record{}).Where("id = ?", record.ID).
		Update("discontinued", true).Error; err != nil {
		t.Fatalf("mark discontinued failed: %v", err)
	}

	if _, err := svc.AddItem("buyer@example.com", record.ID, 1); !errors.Is(err, ErrRecordDiscontinued) {
		t.Fatalf("expected record discontinued, got: %v", err)
	}

	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 5 {
		t.Fatalf("expected stock unchanged at 5, got %d", stored.Stock)
	}
}

func TestCartServiceAddItemRejectsAdmin(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "admin@example.com", constants.RoleAdmin)
	record := createCartTestRecord(t, db, "staff-pick", "20.00", 10)

	if _, err := svc.AddItem("admin@example.com", record.ID, 1); !errors.Is(err, ErrCartRoleNotAllowed) {
		t.Fatalf("expected role not allowed, got: %v", err)
	}
}

func TestCartServiceRemoveItem(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "giant-steps", "3.00", 10)

	added, err := svc.AddItem("buyer@example.com", record.ID, 5)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	result, err := svc.RemoveItem("buyer@example.com", record.ID, 2)
	if err != nil {
		t.Fatalf("remove item failed: %v", err)
	}
	if result.UpdatedStock != 7 {
		t.Fatalf("expected updated stock 7, got %d", result.UpdatedStock)
	}
	if result.RemainingInCart != 3 {
		t.Fatalf("expected remaining 3, got %d", result.RemainingInCart)
	}

	var cart models.Cart
	if err := db.First(&cart, added.CartID).Error; err != nil {
		t.Fatalf("load cart failed: %v", err)
	}
	if !cart.TotalPrice.EqualMoney(mustMoney(t, "9.00")) {
		t.Fatalf("expected cart total 9.00, got %s", cart.TotalPrice.String())
	}

	// 全部移除后行项硬删除，购物车保持启用
	result, err = svc.RemoveItem("buyer@example.com", record.ID, 3)
	if err != nil {
		t.Fatalf("remove rest failed: %v", err)
	}
	if result.RemainingInCart != 0 {
		t.Fatalf("expected remaining 0, got %d", result.RemainingInCart)
	}
	if result.UpdatedStock != 10 {
		t.Fatalf("expected updated stock 10, got %d", result.UpdatedStock)
	}

	var lineCount int64
	if err := db.Model(&models.CartLine{}).Where("cart_id = ?", added.CartID).Count(&lineCount).Error; err != nil {
		t.Fatalf("count lines failed: %v", err)
	}
	if lineCount != 0 {
		t.Fatalf("expected line removed, got %d lines", lineCount)
	}

	if err := db.First(&cart, added.CartID).Error; err != nil {
		t.Fatalf("reload cart failed: %v", err)
	}
	if !cart.Enabled {
		t.Fatalf("expected cart still enabled after emptying")
	}
	if !cart.TotalPrice.EqualMoney(mustMoney(t, "0.00")) {
		t.Fatalf("expected cart total 0.00, got %s", cart.TotalPrice.String())
	}
}

func TestCartServiceRemoveItemExceedsHolding(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "headhunters", "25.00", 10)

	added, err := svc.AddItem("buyer@example.com", record.ID, 2)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	_, err = svc.RemoveItem("buyer@example.com", record.ID, 5)
	if !errors.Is(err, ErrCartRemovalExceeded) {
		t.Fatalf("expected removal exceeded, got: %v", err)
	}
	var removalErr *RemovalExceededError
	if !errors.As(err, &removalErr) {
		t.Fatalf("expected typed removal error, got: %v", err)
	}
	if removalErr.RecordID != record.ID || removalErr.Requested != 5 || removalErr.InCart != 2 {
		t.Fatalf("unexpected removal error payload: %+v", removalErr)
	}

	// 拒绝而非截断，购物车与库存均不变
	var line models.CartLine
	if err := db.Where("cart_id = ? AND record_id = ?", added.CartID, record.ID).First(&line).Error; err != nil {
		t.Fatalf("load cart line failed: %v", err)
	}
	if line.Amount != 2 {
		t.Fatalf("expected line amount unchanged at 2, got %d", line.Amount)
	}
	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 8 {
		t.Fatalf("expected stock unchanged at 8, got %d", stored.Stock)
	}
}

func TestCartServiceRemoveItemMissingTargets(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "maiden-voyage", "22.00", 10)
	other := createCartTestRecord(t, db, "speak-no-evil", "24.00", 10)

	if _, err := svc.RemoveItem("buyer@example.com", record.ID, 1); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected cart not found, got: %v", err)
	}

	if _, err := svc.AddItem("buyer@example.com", record.ID, 1); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := svc.RemoveItem("buyer@example.com", other.ID, 1); !errors.Is(err, ErrCartLineNotFound) {
		t.Fatalf("expected cart line not found, got: %v", err)
	}
}

func TestCartServiceContents(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	first := createCartTestRecord(t, db, "moanin", "3.00", 10)
	second := createCartTestRecord(t, db, "somethin-else", "28.50", 10)

	// 尚无启用中的购物车时返回空内容
	empty, err := svc.Contents("buyer@example.com")
	if err != nil {
		t.Fatalf("contents before first add failed: %v", err)
	}
	if empty.CartID != 0 || len(empty.Lines) != 0 || !empty.TotalPrice.IsZero() {
		t.Fatalf("expected empty contents, got: %+v", empty)
	}

	if _, err := svc.AddItem("buyer@example.com", first.ID, 2); err != nil {
		t.Fatalf("add first failed: %v", err)
	}
	if _, err := svc.AddItem("buyer@example.com", second.ID, 1); err != nil {
		t.Fatalf("add second failed: %v", err)
	}

	contents, err := svc.Contents("buyer@example.com")
	if err != nil {
		t.Fatalf("contents failed: %v", err)
	}
	if contents.CartID == 0 {
		t.Fatalf("expected cart id, got zero")
	}
	if len(contents.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(contents.Lines))
	}
	if contents.Lines[0].RecordID != first.ID || contents.Lines[1].RecordID != second.ID {
		t.Fatalf("unexpected line order: %+v", contents.Lines)
	}
	if contents.Lines[0].Title != first.Title || contents.Lines[0].Artist != first.Artist {
		t.Fatalf("unexpected line snapshot: %+v", contents.Lines[0])
	}
	if !contents.Lines[0].LineTotal.EqualMoney(mustMoney(t, "6.00")) {
		t.Fatalf("expected line total 6.00, got %s", contents.Lines[0].LineTotal.String())
	}
	if !contents.Lines[1].UnitPrice.EqualMoney(mustMoney(t, "28.50")) {
		t.Fatalf("expected unit price 28.50, got %s", contents.Lines[1].UnitPrice.String())
	}
	if !contents.TotalPrice.EqualMoney(mustMoney(t, "34.50")) {
		t.Fatalf("expected total 34.50, got %s", contents.TotalPrice.String())
	}
}

func TestCartServiceDisableReleasesStock(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	first := createCartTestRecord(t, db, "mingus-ah-um", "30.00", 10)
	second := createCartTestRecord(t, db, "time-out", "27.00", 6)

	added, err := svc.AddItem("buyer@example.com", first.ID, 4)
	if err != nil {
		t.Fatalf("add first failed: %v", err)
	}
	if _, err := svc.AddItem("buyer@example.com", second.ID, 2); err != nil {
		t.Fatalf("add second failed: %v", err)
	}

	cartID, err := svc.Disable("buyer@example.com")
	if err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if cartID != added.CartID {
		t.Fatalf("expected cart id %d, got %d", added.CartID, cartID)
	}

	var cart models.Cart
	if err := db.First(&cart, cartID).Error; err != nil {
		t.Fatalf("load cart failed: %v", err)
	}
	if cart.Enabled {
		t.Fatalf("expected cart disabled")
	}
	if !cart.TotalPrice.EqualMoney(mustMoney(t, "0.00")) {
		t.Fatalf("expected total 0.00 after disable, got %s", cart.TotalPrice.String())
	}

	var lineCount int64
	if err := db.Model(&models.CartLine{}).Where("cart_id = ?", cartID).Count(&lineCount).Error; err != nil {
		t.Fatalf("count lines failed: %v", err)
	}
	if lineCount != 0 {
		t.Fatalf("expected lines removed, got %d", lineCount)
	}

	var storedFirst, storedSecond models.Record
	if err := db.First(&storedFirst, first.ID).Error; err != nil {
		t.Fatalf("load first record failed: %v", err)
	}
	if err := db.First(&storedSecond, second.ID).Error; err != nil {
		t.Fatalf("load second record failed: %v", err)
	}
	if storedFirst.Stock != 10 || storedSecond.Stock != 6 {
		t.Fatalf("expected stock released, got %d and %d", storedFirst.Stock, storedSecond.Stock)
	}

	if _, err := svc.Disable("buyer@example.com"); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected cart not found on second disable, got: %v", err)
	}
}

func TestCartServiceEnableRestoresNothing(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "a-love-supreme", "33.00", 10)

	added, err := svc.AddItem("buyer@example.com", record.ID, 3)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := svc.Disable("buyer@example.com"); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	cart, err := svc.Enable("buyer@example.com")
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if cart.ID != added.CartID {
		t.Fatalf("expected cart id %d, got %d", added.CartID, cart.ID)
	}
	if !cart.Enabled {
		t.Fatalf("expected cart enabled")
	}
	if !cart.TotalPrice.EqualMoney(mustMoney(t, "0.00")) {
		t.Fatalf("expected empty total after enable, got %s", cart.TotalPrice.String())
	}

	// 重新启用不恢复行项，也不重新预占库存
	var lineCount int64
	if err := db.Model(&models.CartLine{}).Where("cart_id = ?", cart.ID).Count(&lineCount).Error; err != nil {
		t.Fatalf("count lines failed: %v", err)
	}
	if lineCount != 0 {
		t.Fatalf("expected no lines after enable, got %d", lineCount)
	}
	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 10 {
		t.Fatalf("expected stock untouched at 10, got %d", stored.Stock)
	}
}

func TestCartServiceEnableConflicts(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "waltz-for-debby", "29.00", 10)

	if _, err := svc.Enable("buyer@example.com"); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected cart not found without history, got: %v", err)
	}

	added, err := svc.AddItem("buyer@example.com", record.ID, 1)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := svc.Enable("buyer@example.com"); !errors.Is(err, ErrCartAlreadyActive) {
		t.Fatalf("expected already active, got: %v", err)
	}

	if _, err := svc.Disable("buyer@example.com"); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	// 停用后再次加购会新建购物车，旧车只能在没有启用车时恢复
	fresh, err := svc.AddItem("buyer@example.com", record.ID, 1)
	if err != nil {
		t.Fatalf("add after disable failed: %v", err)
	}
	if fresh.CartID == added.CartID {
		t.Fatalf("expected a new cart, got same id %d", fresh.CartID)
	}
	if _, err := svc.Enable("buyer@example.com"); !errors.Is(err, ErrCartAlreadyActive) {
		t.Fatalf("expected already active with fresh cart, got: %v", err)
	}
}

func TestCartServiceDisableIdleCartStaleTask(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	createCartTestUser(t, db, "buyer@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "the-shape-of-jazz", "26.00", 10)

	added, err := svc.AddItem("buyer@example.com", record.ID, 2)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	var cart models.Cart
	if err := db.First(&cart, added.CartID).Error; err != nil {
		t.Fatalf("load cart failed: %v", err)
	}

	// 入队之后购物车又被触达过，任务过期，不得停用
	if err := svc.DisableIdleCart(cart.ID, cart.UpdatedAt.Add(-time.Hour).Unix()); err != nil {
		t.Fatalf("stale disable failed: %v", err)
	}
	if err := db.First(&cart, added.CartID).Error; err != nil {
		t.Fatalf("reload cart failed: %v", err)
	}
	if !cart.Enabled {
		t.Fatalf("expected cart still enabled after stale task")
	}
	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 8 {
		t.Fatalf("expected stock still reserved, got %d", stored.Stock)
	}

	if err := svc.DisableIdleCart(cart.ID, cart.UpdatedAt.Unix()); err != nil {
		t.Fatalf("idle disable failed: %v", err)
	}
	if err := db.First(&cart, added.CartID).Error; err != nil {
		t.Fatalf("reload cart failed: %v", err)
	}
	if cart.Enabled {
		t.Fatalf("expected cart disabled")
	}
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("reload record failed: %v", err)
	}
	if stored.Stock != 10 {
		t.Fatalf("expected stock released, got %d", stored.Stock)
	}

	// 已停用后重复投递视为幂等成功
	if err := svc.DisableIdleCart(cart.ID, cart.UpdatedAt.Unix()); err != nil {
		t.Fatalf("repeat idle disable failed: %v", err)
	}
	if err := svc.DisableIdleCart(cart.ID+100, time.Now().Unix()); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected cart not found for unknown id, got: %v", err)
	}
}

func TestCartServiceSweepIdleCarts(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	svc.cfg.Cart.IdleDisableMinutes = 30
	createCartTestUser(t, db, "idle@example.com", constants.RoleUser)
	createCartTestUser(t, db, "active@example.com", constants.RoleUser)
	record := createCartTestRecord(t, db, "bitches-brew", "35.00", 10)

	idle, err := svc.AddItem("idle@example.com", record.ID, 2)
	if err != nil {
		t.Fatalf("idle add failed: %v", err)
	}
	active, err := svc.AddItem("active@example.com", record.ID, 1)
	if err != nil {
		t.Fatalf("active add failed: %v", err)
	}

	past := time.Now().Add(-2 * time.Hour)
	if err := db.Model(&models.Cart{}).Where("id = ?", idle.CartID).
		UpdateColumn("updated_at", past).Error; err != nil {
		t.Fatalf("backdate cart failed: %v", err)
	}

	if err := svc.SweepIdleCarts(time.Now()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	var idleCart, activeCart models.Cart
	if err := db.First(&idleCart, idle.CartID).Error; err != nil {
		t.Fatalf("load idle cart failed: %v", err)
	}
	if err := db.First(&activeCart, active.CartID).Error; err != nil {
		t.Fatalf("load active cart failed: %v", err)
	}
	if idleCart.Enabled {
		t.Fatalf("expected idle cart disabled")
	}
	if !activeCart.Enabled {
		t.Fatalf("expected active cart untouched")
	}

	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 9 {
		t.Fatalf("expected only idle reservation released, got stock %d", stored.Stock)
	}
}

func TestCartServiceConcurrentAddStockGuard(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// 共享内存库的并发写入走单连接串行
	sqlDB.SetMaxOpenConns(1)

	record := createCartTestRecord(t, db, "limited-press", "19.90", 3)
	const buyers = 8
	emails := make([]string, 0, buyers)
	for i := 0; i < buyers; i++ {
		email := fmt.Sprintf("buyer_%d@example.com", i)
		createCartTestUser(t, db, email, constants.RoleUser)
		emails = append(emails, email)
	}

	var wg sync.WaitGroup
	results := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := svc.AddItem(emails[idx], record.ID, 1)
			results[idx] = err
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, ErrStockInsufficient) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 3 {
		t.Fatalf("expected exactly 3 successful adds, got %d", succeeded)
	}

	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 0 {
		t.Fatalf("expected stock drained to 0, got %d", stored.Stock)
	}

	var reserved int64
	if err := db.Model(&models.CartLine{}).Select("COALESCE(SUM(amount), 0)").Scan(&reserved).Error; err != nil {
		t.Fatalf("sum cart lines failed: %v", err)
	}
	if reserved != 3 {
		t.Fatalf("expected 3 reserved across carts, got %d", reserved)
	}
}
