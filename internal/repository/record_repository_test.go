package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/spinshop/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRecordRepositoryTest(t *testing.T) (*GormRecordRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:record_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Genre{},
		&models.RecordGroup{},
		&models.Record{},
		&models.Cart{},
		&models.CartLine{},
		&models.Order{},
		&models.OrderLine{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewRecordRepository(db), db
}

func TestRecordRepositoryReserveAndReleaseStock(t *testing.T) {
	repo, db := setupRecordRepositoryTest(t)
	record := createRepoTestRecord(t, db, "kind-of-blue", 5)

	affected, err := repo.ReserveStock(record.ID, 3)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}

	// 余量不足时条件不命中，库存保持不变
	affected, err = repo.ReserveStock(record.ID, 3)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected guard to reject, got %d rows", affected)
	}
	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 2 {
		t.Fatalf("expected stock 2, got %d", stored.Stock)
	}

	affected, err = repo.ReserveStock(record.ID, 2)
	if err != nil || affected != 1 {
		t.Fatalf("expected drain to succeed, got %d err %v", affected, err)
	}

	affected, err = repo.ReleaseStock(record.ID, 4)
	if err != nil || affected != 1 {
		t.Fatalf("release failed: %d err %v", affected, err)
	}
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 4 {
		t.Fatalf("expected stock 4 after release, got %d", stored.Stock)
	}

	if _, err := repo.ReserveStock(record.ID, 0); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if _, err := repo.ReserveStock(0, 1); err == nil {
		t.Fatalf("expected error for zero record id")
	}
}

func TestRecordRepositoryAdjustStockFloor(t *testing.T) {
	repo, db := setupRecordRepositoryTest(t)
	record := createRepoTestRecord(t, db, "blue-train", 2)

	affected, err := repo.AdjustStock(record.ID, -3)
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected floor to reject, got %d rows", affected)
	}

	affected, err = repo.AdjustStock(record.ID, -2)
	if err != nil || affected != 1 {
		t.Fatalf("expected adjust to zero, got %d err %v", affected, err)
	}
	affected, err = repo.AdjustStock(record.ID, 6)
	if err != nil || affected != 1 {
		t.Fatalf("expected restock, got %d err %v", affected, err)
	}

	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 6 {
		t.Fatalf("expected stock 6, got %d", stored.Stock)
	}
}

func TestRecordRepositoryCountBySlug(t *testing.T) {
	repo, db := setupRecordRepositoryTest(t)
	record := createRepoTestRecord(t, db, "abbey-road", 10)

	count, err := repo.CountBySlug("abbey-road", nil)
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d err %v", count, err)
	}
	count, err = repo.CountBySlug("abbey-road", &record.ID)
	if err != nil || count != 0 {
		t.Fatalf("expected count 0 with exclusion, got %d err %v", count, err)
	}
	count, err = repo.CountBySlug("unknown", nil)
	if err != nil || count != 0 {
		t.Fatalf("expected count 0 for unknown, got %d err %v", count, err)
	}
}

func TestRecordRepositoryListFilters(t *testing.T) {
	repo, db := setupRecordRepositoryTest(t)
	jazz := createRepoTestRecord(t, db, "kind-of-blue", 10)
	rock := createRepoTestRecord(t, db, "abbey-road", 0)

	gone := createRepoTestRecord(t, db, "out-of-print", 3)
	if err := db.Model(&models.Record{}).Where("id = ?", gone.ID).
		Update("discontinued", true).Error; err != nil {
		t.Fatalf("mark discontinued failed: %v", err)
	}

	records, total, err := repo.List(RecordListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Fatalf("expected discontinued hidden by default, got %d", total)
	}

	records, total, err = repo.List(RecordListFilter{IncludeDiscontinued: true})
	if err != nil || total != 3 {
		t.Fatalf("expected all 3 with discontinued, got %d err %v", total, err)
	}

	records, total, err = repo.List(RecordListFilter{OnlyInStock: true})
	if err != nil {
		t.Fatalf("list in stock failed: %v", err)
	}
	if total != 1 || records[0].ID != jazz.ID {
		t.Fatalf("expected only stocked record, got %d", total)
	}

	records, total, err = repo.List(RecordListFilter{GenreID: rock.GenreID})
	if err != nil || total != 1 || records[0].ID != rock.ID {
		t.Fatalf("expected genre filter match, got %d err %v", total, err)
	}

	// 标题模糊搜索大小写不敏感
	records, total, err = repo.List(RecordListFilter{Search: "BLUE"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 || records[0].ID != jazz.ID {
		t.Fatalf("expected search match, got %d", total)
	}

	records, total, err = repo.List(RecordListFilter{IncludeDiscontinued: true, Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("paged list failed: %v", err)
	}
	if total != 3 || len(records) != 1 {
		t.Fatalf("expected second page with 1 record, got total %d len %d", total, len(records))
	}
}

func TestRecordRepositoryListByIDsForUpdate(t *testing.T) {
	repo, db := setupRecordRepositoryTest(t)
	first := createRepoTestRecord(t, db, "first", 1)
	second := createRepoTestRecord(t, db, "second", 1)

	records, err := repo.ListByIDsForUpdate([]uint{second.ID, first.ID})
	if err != nil {
		t.Fatalf("list by ids failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != first.ID || records[1].ID != second.ID {
		t.Fatalf("expected ascending id order, got %+v", records)
	}

	records, err = repo.ListByIDsForUpdate(nil)
	if err != nil || len(records) != 0 {
		t.Fatalf("expected empty result for no ids, got %+v err %v", records, err)
	}
}

func TestRecordRepositoryUsageCounts(t *testing.T) {
	repo, db := setupRecordRepositoryTest(t)
	record := createRepoTestRecord(t, db, "in-use", 10)

	cart := models.Cart{UserID: 1, Enabled: true}
	if err := db.Create(&cart).Error; err != nil {
		t.Fatalf("create cart failed: %v", err)
	}
	if err := db.Create(&models.CartLine{CartID: cart.ID, RecordID: record.ID, Amount: 2, Price: record.Price}).Error; err != nil {
		t.Fatalf("create cart line failed: %v", err)
	}
	order := models.Order{OrderNo: "SS202608230000000009", UserID: 1, PaymentMethod: "cash", TotalPrice: record.Price}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := db.Create(&models.OrderLine{OrderID: order.ID, RecordID: record.ID, Title: record.Title, UnitPrice: record.Price, Amount: 1, TotalPrice: record.Price}).Error; err != nil {
		t.Fatalf("create order line failed: %v", err)
	}

	cartCount, err := repo.CountCartLines(record.ID)
	if err != nil || cartCount != 1 {
		t.Fatalf("expected 1 cart line, got %d err %v", cartCount, err)
	}
	orderCount, err := repo.CountOrderLines(record.ID)
	if err != nil || orderCount != 1 {
		t.Fatalf("expected 1 order line, got %d err %v", orderCount, err)
	}
}
