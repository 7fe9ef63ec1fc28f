package service

import (
	"context"
	"strings"
	"time"

	"github.com/spinshop/internal/cache"
	"github.com/spinshop/internal/constants"
	"github.com/spinshop/internal/models"
	"github.com/spinshop/internal/repository"

	"github.com/shopspring/decimal"
)

const taxonomyCacheTTL = 10 * time.Minute

// CatalogService 目录业务服务，管理流派、专辑系列与唱片
type CatalogService struct {
	genreRepo  repository.GenreRepository
	groupRepo  repository.RecordGroupRepository
	recordRepo repository.RecordRepository
}

// NewCatalogService 创建目录服务
func NewCatalogService(genreRepo repository.GenreRepository, groupRepo repository.RecordGroupRepository, recordRepo repository.RecordRepository) *CatalogService {
	return &CatalogService{
		genreRepo:  genreRepo,
		groupRepo:  groupRepo,
		recordRepo: recordRepo,
	}
}

// CreateGenreInput 创建/更新流派输入
type CreateGenreInput struct {
	Slug      string
	Name      string
	SortOrder int
}

// CreateRecordGroupInput 创建/更新专辑系列输入
type CreateRecordGroupInput struct {
	Slug      string
	Name      string
	SortOrder int
}

// CreateRecordInput 创建/更新唱片输入
type CreateRecordInput struct {
	GenreID       uint
	RecordGroupID *uint
	Slug          string
	Title         string
	Artist        string
	ReleaseYear   int
	Price         decimal.Decimal
	Stock         *int
	Discontinued  *bool
	Tags          []string
	CoverURL      string
	SortOrder     int
}

// ListGenres 获取流派列表（带缓存）
func (s *CatalogService) ListGenres() ([]models.Genre, error) {
	var cached []models.Genre
	if hit, err := cache.GetJSON(context.Background(), constants.CacheKeyGenreList, &cached); err == nil && hit {
		return cached, nil
	}
	genres, err := s.genreRepo.List()
	if err != nil {
		return nil, err
	}
	_ = cache.SetJSON(context.Background(), constants.CacheKeyGenreList, genres, taxonomyCacheTTL)
	return genres, nil
}

// CreateGenre 创建流派
func (s *CatalogService) CreateGenre(input CreateGenreInput) (*models.Genre, error) {
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, ErrTaxonomyInvalid
	}
	count, err := s.genreRepo.CountBySlug(slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}
	count, err = s.genreRepo.CountByName(name, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrNameExists
	}

	genre := models.Genre{
		Slug:      slug,
		Name:      name,
		SortOrder: input.SortOrder,
	}
	if err := s.genreRepo.Create(&genre); err != nil {
		return nil, err
	}
	s.invalidateGenreCache()
	return &genre, nil
}

// UpdateGenre 更新流派
func (s *CatalogService) UpdateGenre(id uint, input CreateGenreInput) (*models.Genre, error) {
	genre, err := s.genreRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if genre == nil {
		return nil, ErrNotFound
	}

	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, ErrTaxonomyInvalid
	}
	count, err := s.genreRepo.CountBySlug(slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}
	count, err = s.genreRepo.CountByName(name, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrNameExists
	}

	genre.Slug = slug
	genre.Name = name
	genre.SortOrder = input.SortOrder

	if err := s.genreRepo.Update(genre); err != nil {
		return nil, err
	}
	s.invalidateGenreCache()
	return genre, nil
}

// DeleteGenre 删除流派，仍被唱片引用时拒绝
func (s *CatalogService) DeleteGenre(id uint) error {
	genre, err := s.genreRepo.GetByID(id)
	if err != nil {
		return err
	}
	if genre == nil {
		return ErrNotFound
	}

	count, err := s.genreRepo.CountRecords(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrGenreInUse
	}
	if err := s.genreRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateGenreCache()
	return nil
}

// ListRecordGroups 获取专辑系列列表（带缓存）
func (s *CatalogService) ListRecordGroups() ([]models.RecordGroup, error) {
	var cached []models.RecordGroup
	if hit, err := cache.GetJSON(context.Background(), constants.CacheKeyRecordGroupList, &cached); err == nil && hit {
		return cached, nil
	}
	groups, err := s.groupRepo.List()
	if err != nil {
		return nil, err
	}
	_ = cache.SetJSON(context.Background(), constants.CacheKeyRecordGroupList, groups, taxonomyCacheTTL)
	return groups, nil
}

// CreateRecordGroup 创建专辑系列
func (s *CatalogService) CreateRecordGroup(input CreateRecordGroupInput) (*models.RecordGroup, error) {
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, ErrTaxonomyInvalid
	}
	count, err := s.groupRepo.CountBySlug(slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}
	count, err = s.groupRepo.CountByName(name, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrNameExists
	}

	group := models.RecordGroup{
		Slug:      slug,
		Name:      name,
		SortOrder: input.SortOrder,
	}
	if err := s.groupRepo.Create(&group); err != nil {
		return nil, err
	}
	s.invalidateRecordGroupCache()
	return &group, nil
}

// UpdateRecordGroup 更新专辑系列
func (s *CatalogService) UpdateRecordGroup(id uint, input CreateRecordGroupInput) (*models.RecordGroup, error) {
	group, err := s.groupRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrNotFound
	}

	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, ErrTaxonomyInvalid
	}
	count, err := s.groupRepo.CountBySlug(slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}
	count, err = s.groupRepo.CountByName(name, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrNameExists
	}

	group.Slug = slug
	group.Name = name
	group.SortOrder = input.SortOrder

	if err := s.groupRepo.Update(group); err != nil {
		return nil, err
	}
	s.invalidateRecordGroupCache()
	return group, nil
}

// DeleteRecordGroup 删除专辑系列，仍被唱片引用时拒绝
func (s *CatalogService) DeleteRecordGroup(id uint) error {
	group, err := s.groupRepo.GetByID(id)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrNotFound
	}

	count, err := s.groupRepo.CountRecords(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRecordGroupInUse
	}
	if err := s.groupRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateRecordGroupCache()
	return nil
}

// ListPublicRecords 获取公开唱片列表，默认隐藏停售
func (s *CatalogService) ListPublicRecords(genreID, groupID uint, search string, page, pageSize int) ([]models.Record, int64, error) {
	filter := repository.RecordListFilter{
		Page:          page,
		PageSize:      pageSize,
		GenreID:       genreID,
		RecordGroupID: groupID,
		Search:        search,
		WithGenre:     true,
		WithGroup:     true,
	}
	return s.recordRepo.List(filter)
}

// GetPublicBySlug 获取公开唱片详情
func (s *CatalogService) GetPublicBySlug(slug string) (*models.Record, error) {
	record, err := s.recordRepo.GetBySlug(slug, true)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

// ListAdminRecords 获取后台唱片列表
func (s *CatalogService) ListAdminRecords(filter repository.RecordListFilter) ([]models.Record, int64, error) {
	filter.IncludeDiscontinued = true
	filter.WithGenre = true
	filter.WithGroup = true
	return s.recordRepo.List(filter)
}

// GetAdminRecordByID 获取后台唱片详情
func (s *CatalogService) GetAdminRecordByID(id uint) (*models.Record, error) {
	record, err := s.recordRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

// CreateRecord 创建唱片
func (s *CatalogService) CreateRecord(input CreateRecordInput) (*models.Record, error) {
	price := input.Price.Round(2)
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrRecordPriceInvalid
	}
	slug := strings.TrimSpace(input.Slug)
	title := strings.TrimSpace(input.Title)
	if slug == "" || title == "" {
		return nil, ErrRecordInvalid
	}

	genre, err := s.genreRepo.GetByID(input.GenreID)
	if err != nil {
		return nil, err
	}
	if genre == nil {
		return nil, ErrNotFound
	}
	if input.RecordGroupID != nil {
		group, err := s.groupRepo.GetByID(*input.RecordGroupID)
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, ErrNotFound
		}
	}

	count, err := s.recordRepo.CountBySlug(slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	stock := 0
	if input.Stock != nil {
		stock = *input.Stock
	}
	if stock < 0 {
		return nil, ErrStockAdjustInvalid
	}
	discontinued := false
	if input.Discontinued != nil {
		discontinued = *input.Discontinued
	}

	record := models.Record{
		GenreID:       input.GenreID,
		RecordGroupID: input.RecordGroupID,
		Slug:          slug,
		Title:         title,
		Artist:        strings.TrimSpace(input.Artist),
		ReleaseYear:   input.ReleaseYear,
		Price:         models.NewMoneyFromDecimal(price),
		Stock:         stock,
		Discontinued:  discontinued,
		Tags:          models.StringArray(input.Tags),
		CoverURL:      strings.TrimSpace(input.CoverURL),
		SortOrder:     input.SortOrder,
	}
	if err := s.recordRepo.Create(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateRecord 更新唱片，库存走 AdjustStock 不在此处修改
func (s *CatalogService) UpdateRecord(id uint, input CreateRecordInput) (*models.Record, error) {
	price := input.Price.Round(2)
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrRecordPriceInvalid
	}
	record, err := s.recordRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}

	slug := strings.TrimSpace(input.Slug)
	title := strings.TrimSpace(input.Title)
	if slug == "" || title == "" {
		return nil, ErrRecordInvalid
	}

	genre, err := s.genreRepo.GetByID(input.GenreID)
	if err != nil {
		return nil, err
	}
	if genre == nil {
		return nil, ErrNotFound
	}
	if input.RecordGroupID != nil {
		group, err := s.groupRepo.GetByID(*input.RecordGroupID)
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, ErrNotFound
		}
	}

	count, err := s.recordRepo.CountBySlug(slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	record.GenreID = input.GenreID
	record.RecordGroupID = input.RecordGroupID
	record.Slug = slug
	record.Title = title
	record.Artist = strings.TrimSpace(input.Artist)
	record.ReleaseYear = input.ReleaseYear
	record.Price = models.NewMoneyFromDecimal(price)
	record.Tags = models.StringArray(input.Tags)
	record.CoverURL = strings.TrimSpace(input.CoverURL)
	record.SortOrder = input.SortOrder
	if input.Discontinued != nil {
		record.Discontinued = *input.Discontinued
	}

	if err := s.recordRepo.Update(record); err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteRecord 删除唱片，仍被购物车或订单引用时拒绝
func (s *CatalogService) DeleteRecord(id uint) error {
	record, err := s.recordRepo.GetByID(id)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrNotFound
	}

	cartCount, err := s.recordRepo.CountCartLines(id)
	if err != nil {
		return err
	}
	orderCount, err := s.recordRepo.CountOrderLines(id)
	if err != nil {
		return err
	}
	if cartCount > 0 || orderCount > 0 {
		return ErrRecordInUse
	}
	return s.recordRepo.Delete(id)
}

// AdjustStock 按增量调整库存，结果不允许为负
func (s *CatalogService) AdjustStock(id uint, delta int) (*models.Record, error) {
	record, err := s.recordRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	if delta == 0 {
		return record, nil
	}

	affected, err := s.recordRepo.AdjustStock(id, delta)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrStockAdjustInvalid
	}
	return s.recordRepo.GetByID(id)
}

func (s *CatalogService) invalidateGenreCache() {
	_ = cache.Del(context.Background(), constants.CacheKeyGenreList)
}

func (s *CatalogService) invalidateRecordGroupCache() {
	_ = cache.Del(context.Background(), constants.CacheKeyRecordGroupList)
}
