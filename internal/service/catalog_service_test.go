package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spinshop/internal/models"
	"github.com/spinshop/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCatalogServiceTest(t *testing.T) (*CatalogService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:catalog_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	models.DB = db
	svc := NewCatalogService(
		repository.NewGenreRepository(db),
		repository.NewRecordGroupRepository(db),
		repository.NewRecordRepository(db),
	)
	return svc, db
}

func makeRecordInput(genreID uint, slug, title string) CreateRecordInput {
	stock := 12
	return CreateRecordInput{
		GenreID:     genreID,
		Slug:        slug,
		Title:       title,
		Artist:      "Miles Davis",
		ReleaseYear: 1959,
		Price:       decimal.RequireFromString("32.00"),
		Stock:       &stock,
		Tags:        []string{"mono", "first-press"},
	}
}

func TestCatalogServiceGenreLifecycle(t *testing.T) {
	svc, _ := setupCatalogServiceTest(t)

	jazz, err := svc.CreateGenre(CreateGenreInput{Slug: "jazz", Name: "爵士", SortOrder: 10})
	if err != nil {
		t.Fatalf("create genre failed: %v", err)
	}
	if jazz.ID == 0 || jazz.Slug != "jazz" {
		t.Fatalf("unexpected genre: %+v", jazz)
	}

	if _, err := svc.CreateGenre(CreateGenreInput{Slug: "jazz", Name: "另一个"}); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected slug exists, got: %v", err)
	}
	if _, err := svc.CreateGenre(CreateGenreInput{Slug: "jazz-2", Name: "爵士"}); !errors.Is(err, ErrNameExists) {
		t.Fatalf("expected name exists, got: %v", err)
	}

	rock, err := svc.CreateGenre(CreateGenreInput{Slug: "rock", Name: "摇滚", SortOrder: 20})
	if err != nil {
		t.Fatalf("create rock failed: %v", err)
	}

	if _, err := svc.UpdateGenre(rock.ID, CreateGenreInput{Slug: "jazz", Name: "摇滚"}); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected slug exists on update, got: %v", err)
	}
	updated, err := svc.UpdateGenre(rock.ID, CreateGenreInput{Slug: "rock-n-roll", Name: "摇滚乐", SortOrder: 30})
	if err != nil {
		t.Fatalf("update genre failed: %v", err)
	}
	if updated.Slug != "rock-n-roll" || updated.Name != "摇滚乐" || updated.SortOrder != 30 {
		t.Fatalf("unexpected updated genre: %+v", updated)
	}

	genres, err := svc.ListGenres()
	if err != nil {
		t.Fatalf("list genres failed: %v", err)
	}
	if len(genres) != 2 {
		t.Fatalf("expected 2 genres, got %d", len(genres))
	}

	// 被唱片引用的流派不可删除
	if _, err := svc.CreateRecord(makeRecordInput(jazz.ID, "kind-of-blue", "Kind of Blue")); err != nil {
		t.Fatalf("create record failed: %v", err)
	}
	if err := svc.DeleteGenre(jazz.ID); !errors.Is(err, ErrGenreInUse) {
		t.Fatalf("expected genre in use, got: %v", err)
	}
	if err := svc.DeleteGenre(rock.ID); err != nil {
		t.Fatalf("delete genre failed: %v", err)
	}
	if err := svc.DeleteGenre(rock.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got: %v", err)
	}
}

func TestCatalogServiceRecordGroupLifecycle(t *testing.T) {
	svc, _ := setupCatalogServiceTest(t)
	genre, err := svc.CreateGenre(CreateGenreInput{Slug: "jazz", Name: "爵士"})
	if err != nil {
		t.Fatalf("create genre failed: %v", err)
	}

	group, err := svc.CreateRecordGroup(CreateRecordGroupInput{Slug: "blue-note", Name: "Blue Note 经典", SortOrder: 5})
	if err != nil {
		t.Fatalf("create group failed: %v", err)
	}
	if _, err := svc.CreateRecordGroup(CreateRecordGroupInput{Slug: "blue-note", Name: "重复"}); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected slug exists, got: %v", err)
	}

	input := makeRecordInput(genre.ID, "blue-train", "Blue Train")
	input.RecordGroupID = &group.ID
	if _, err := svc.CreateRecord(input); err != nil {
		t.Fatalf("create record failed: %v", err)
	}
	if err := svc.DeleteRecordGroup(group.ID); !errors.Is(err, ErrRecordGroupInUse) {
		t.Fatalf("expected group in use, got: %v", err)
	}

	free, err := svc.CreateRecordGroup(CreateRecordGroupInput{Slug: "impulse", Name: "Impulse!"})
	if err != nil {
		t.Fatalf("create free group failed: %v", err)
	}
	if err := svc.DeleteRecordGroup(free.ID); err != nil {
		t.Fatalf("delete group failed: %v", err)
	}

	groups, err := svc.ListRecordGroups()
	if err != nil {
		t.Fatalf("list groups failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
}

func TestCatalogServiceCreateRecordValidation(t *testing.T) {
	svc, _ := setupCatalogServiceTest(t)
	genre, err := svc.CreateGenre(CreateGenreInput{Slug: "jazz", Name: "爵士"})
	if err != nil {
		t.Fatalf("create genre failed: %v", err)
	}

	input := makeRecordInput(genre.ID, "kind-of-blue", "Kind of Blue")
	input.Price = decimal.Zero
	if _, err := svc.CreateRecord(input); !errors.Is(err, ErrRecordPriceInvalid) {
		t.Fatalf("expected price invalid, got: %v", err)
	}

	input = makeRecordInput(genre.ID, "   ", "Kind of Blue")
	if _, err := svc.CreateRecord(input); !errors.Is(err, ErrRecordInvalid) {
		t.Fatalf("expected record invalid for blank slug, got: %v", err)
	}

	input = makeRecordInput(genre.ID+100, "kind-of-blue", "Kind of Blue")
	if _, err := svc.CreateRecord(input); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown genre, got: %v", err)
	}

	missingGroup := uint(999)
	input = makeRecordInput(genre.ID, "kind-of-blue", "Kind of Blue")
	input.RecordGroupID = &missingGroup
	if _, err := svc.CreateRecord(input); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown group, got: %v", err)
	}

	negative := -1
	input = makeRecordInput(genre.ID, "kind-of-blue", "Kind of Blue")
	input.Stock = &negative
	if _, err := svc.CreateRecord(input); !errors.Is(err, ErrStockAdjustInvalid) {
		t.Fatalf("expected stock invalid, got: %v", err)
	}

	record, err := svc.CreateRecord(makeRecordInput(genre.ID, "kind-of-blue", "Kind of Blue"))
	if err != nil {
		t.Fatalf("create record failed: %v", err)
	}
	if record.Stock != 12 || record.Artist != "Miles Davis" || len(record.Tags) != 2 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if !record.Price.EqualMoney(mustMoney(t, "32.00")) {
		t.Fatalf("unexpected price: %s", record.Price.String())
	}

	if _, err := svc.CreateRecord(makeRecordInput(genre.ID, "kind-of-blue", "复刻")); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected slug exists, got: %v", err)
	}
}

func TestCatalogServiceUpdateRecordKeepsStock(t *testing.T) {
	svc, db := setupCatalogServiceTest(t)
	genre, err := svc.CreateGenre(CreateGenreInput{Slug: "jazz", Name: "爵士"})
	if err != nil {
		t.Fatalf("create genre failed: %v", err)
	}
	record, err := svc.CreateRecord(makeRecordInput(genre.ID, "kind-of-blue", "Kind of Blue"))
	if err != nil {
		t.Fatalf("create record failed: %v", err)
	}

	// 库存只能走增量调整接口，全量更新不碰库存字段
	bumped := 99
	discontinued := true
	input := makeRecordInput(genre.ID, "kind-of-blue", "Kind of Blue (Remaster)")
	input.Price = decimal.RequireFromString("35.50")
	input.Stock = &bumped
	input.Discontinued = &discontinued
	input.Tags = []string{"remaster"}

	updated, err := svc.UpdateRecord(record.ID, input)
	if err != nil {
		t.Fatalf("update record failed: %v", err)
	}
	if updated.Title != "Kind of Blue (Remaster)" || !updated.Discontinued {
		t.Fatalf("unexpected updated record: %+v", updated)
	}
	if !updated.Price.EqualMoney(mustMoney(t, "35.50")) {
		t.Fatalf("unexpected price: %s", updated.Price.String())
	}

	var stored models.Record
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Stock != 12 {
		t.Fatalf("expected stock untouched at 12, got %d", stored.Stock)
	}
}

func TestCatalogServiceAdjustStock(t *testing.T) {
	svc, _ := setupCatalogServiceTest(t)
	genre, err := svc.CreateGenre(CreateGenreInput{Slug: "jazz", Name: "爵士"})
	if err != nil {
		t.Fatalf("create genre failed: %v", err)
	}
	record, err := svc.CreateRecord(makeRecordInput(genre.ID, "kind-of-blue", "Kind of Blue"))
	if err != nil {
		t.Fatalf("create record failed: %v", err)
	}

	adjusted, err := svc.AdjustStock(record.ID, 5)
	if err != nil {
		t.Fatalf("adjust +5 failed: %v", err)
	}
	if adjusted.Stock != 17 {
		t.Fatalf("expected stock 17, got %d", adjusted.Stock)
	}

	same, err := svc.AdjustStock(record.ID, 0)
	if err != nil {
		t.Fatalf("adjust 0 failed: %v", err)
	}
	if same.Stock != 17 {
		t.Fatalf("expected stock unchanged at 17, got %d", same.Stock)
	}

	drained, err := svc.AdjustStock(record.ID, -17)
	if err != nil {
		t.Fatalf("adjust -17 failed: %v", err)
	}
	if drained.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", drained.Stock)
	}

	// 调整结果不允许为负
	if _, err := svc.AdjustStock(record.ID, -1); !errors.Is(err, ErrStockAdjustInvalid) {
		t.Fatalf("expected stock adjust invalid, got: %v", err)
	}
	if _, err := svc.AdjustStock(record.ID+100, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

func TestCatalogServiceDeleteRecordGuards(t *testing.T) {
	svc, db := setupCatalogServiceTest(t)
	genre, err := svc.CreateGenre(CreateGenreInput{Slug: "jazz", Name: "爵士"})
	if err != nil {
		t.Fatalf("create genre failed: %v", err)
	}
	inCart, err := svc.CreateRecord(makeRecordInput(genre.ID, "in-cart", "In Cart"))
	if err != nil {
		t.Fatalf("create record failed: %v", err)
	}
	inOrder, err := svc.CreateRecord(makeRecordInput(genre.ID, "in-order", "In Order"))
	if err != nil {
		t.Fatalf("create record failed: %v", err)
	}
	free, err := svc.CreateRecord(makeRecordInput(genre.ID, "free", "Free"))
	if err != nil {
		t.Fatalf("create record failed: %v", err)
	}

	cart := models.Cart{UserID: 1, Enabled: true}
	if err := db.Create(&cart).Error; err != nil {
		t.Fatalf("create cart failed: %v", err)
	}
	if err := db.Create(&models.CartLine{CartID: cart.ID, RecordID: inCart.ID, Amount: 1, Price: inCart.Price}).Error; err != nil {
		t.Fatalf("create cart line failed: %v", err)
	}
	order := models.Order{OrderNo: "SS20260823000000000001", UserID: 1, PaymentMethod: "cash", TotalPrice: inOrder.Price}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := db.Create(&models.OrderLine{OrderID: order.ID, RecordID: inOrder.ID, Title: inOrder.Title, UnitPrice: inOrder.Price, Amount: 1, TotalPrice: inOrder.Price}).Error; err != nil {
		t.Fatalf("create order line failed: %v", err)
	}

	if err := svc.DeleteRecord(inCart.ID); !errors.Is(err, ErrRecordInUse) {
		t.Fatalf("expected record in use for cart, got: %v", err)
	}
	if err := svc.DeleteRecord(inOrder.ID); !errors.Is(err, ErrRecordInUse) {
		t.Fatalf("expected record in use for order, got: %v", err)
	}
	if err := svc.DeleteRecord(free.ID); err != nil {
		t.Fatalf("delete free record failed: %v", err)
	}
	if _, err := svc.GetAdminRecordByID(free.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got: %v", err)
	}
}

func TestCatalogServicePublicVisibility(t *testing.T) {
	svc, _ := setupCatalogServiceTest(t)
	genre, err := svc.CreateGenre(CreateGenreInput{Slug: "jazz", Name: "爵士"})
	if err != nil {
		t.Fatalf("create genre failed: %v", err)
	}

	if _, err := svc.CreateRecord(makeRecordInput(genre.ID, "blue-train", "Blue Train")); err != nil {
		t.Fatalf("create active failed: %v", err)
	}
	gone := true
	input := makeRecordInput(genre.ID, "out-of-print", "Out of Print")
	input.Discontinued = &gone
	if _, err := svc.CreateRecord(input); err != nil {
		t.Fatalf("create discontinued failed: %v", err)
	}

	records, total, err := svc.ListPublicRecords(0, 0, "", 1, 10)
	if err != nil {
		t.Fatalf("public list failed: %v", err)
	}
	if total != 1 || len(records) != 1 || records[0].Slug != "blue-train" {
		t.Fatalf("expected only active record, got total %d", total)
	}
	if records[0].Genre.ID != genre.ID {
		t.Fatalf("expected genre preloaded, got %+v", records[0].Genre)
	}

	records, total, err = svc.ListPublicRecords(0, 0, "blue", 1, 10)
	if err != nil {
		t.Fatalf("public search failed: %v", err)
	}
	if total != 1 || records[0].Slug != "blue-train" {
		t.Fatalf("expected search match, got total %d", total)
	}

	all, adminTotal, err := svc.ListAdminRecords(repository.RecordListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if adminTotal != 2 || len(all) != 2 {
		t.Fatalf("expected both records for admin, got %d", adminTotal)
	}

	if _, err := svc.GetPublicBySlug("out-of-print"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for discontinued slug, got: %v", err)
	}
	record, err := svc.GetPublicBySlug("blue-train")
	if err != nil {
		t.Fatalf("get by slug failed: %v", err)
	}
	if record.Title != "Blue Train" {
		t.Fatalf("unexpected record: %+v", record)
	}
}
