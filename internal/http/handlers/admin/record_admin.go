package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spinshop/internal/http/response"
	"github.com/spinshop/internal/repository"
	"github.com/spinshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateRecordRequest 创建/更新唱片请求
type CreateRecordRequest struct {
	GenreID       uint     `json:"genre_id" binding:"required"`
	RecordGroupID *uint    `json:"record_group_id"`
	Slug          string   `json:"slug" binding:"required"`
	Title         string   `json:"title" binding:"required"`
	Artist        string   `json:"artist"`
	ReleaseYear   int      `json:"release_year"`
	Price         float64  `json:"price"`
	Stock         *int     `json:"stock"`
	Discontinued  *bool    `json:"discontinued"`
	Tags          []string `json:"tags"`
	CoverURL      string   `json:"cover_url"`
	SortOrder     int      `json:"sort_order"`
}

// AdjustRecordStockRequest 库存增量调整请求
type AdjustRecordStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// GetAdminRecords 获取唱片列表 (Admin)
func (h *Handler) GetAdminRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	genreID := parseQueryUint(c, "genre_id")
	groupID := parseQueryUint(c, "group_id")
	search := strings.TrimSpace(c.Query("search"))

	records, total, err := h.CatalogService.ListAdminRecords(repository.RecordListFilter{
		Page:          page,
		PageSize:      pageSize,
		GenreID:       genreID,
		RecordGroupID: groupID,
		Search:        search,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取唱片列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, records, pagination)
}

// GetAdminRecord 获取唱片详情 (Admin)
func (h *Handler) GetAdminRecord(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	record, err := h.CatalogService.GetAdminRecordByID(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "唱片不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取唱片详情失败", err)
		return
	}

	response.Success(c, record)
}

// CreateRecord 创建唱片
func (h *Handler) CreateRecord(c *gin.Context) {
	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	record, err := h.CatalogService.CreateRecord(service.CreateRecordInput{
		GenreID:       req.GenreID,
		RecordGroupID: req.RecordGroupID,
		Slug:          req.Slug,
		Title:         req.Title,
		Artist:        req.Artist,
		ReleaseYear:   req.ReleaseYear,
		Price:         decimal.NewFromFloat(req.Price),
		Stock:         req.Stock,
		Discontinued:  req.Discontinued,
		Tags:          req.Tags,
		CoverURL:      req.CoverURL,
		SortOrder:     req.SortOrder,
	})
	if err != nil {
		respondRecordWriteError(c, err, "创建唱片失败")
		return
	}

	response.Success(c, record)
}

// UpdateRecord 更新唱片
// 库存不走该入口，使用增量调整接口
func (h *Handler) UpdateRecord(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	record, err := h.CatalogService.UpdateRecord(id, service.CreateRecordInput{
		GenreID:       req.GenreID,
		RecordGroupID: req.RecordGroupID,
		Slug:          req.Slug,
		Title:         req.Title,
		Artist:        req.Artist,
		ReleaseYear:   req.ReleaseYear,
		Price:         decimal.NewFromFloat(req.Price),
		Discontinued:  req.Discontinued,
		Tags:          req.Tags,
		CoverURL:      req.CoverURL,
		SortOrder:     req.SortOrder,
	})
	if err != nil {
		respondRecordWriteError(c, err, "更新唱片失败")
		return
	}

	response.Success(c, record)
}

// DeleteRecord 删除唱片（软删除）
// 仍被购物车或订单引用的唱片拒绝删除
func (h *Handler) DeleteRecord(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.CatalogService.DeleteRecord(id); err != nil {
		if errors.Is(err, service.ErrRecordInUse) {
			respondError(c, response.CodeBadRequest, "唱片仍被购物车或订单引用", nil)
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "唱片不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "删除唱片失败", err)
		return
	}

	response.Success(c, nil)
}

// AdjustRecordStock 按增量调整唱片库存
func (h *Handler) AdjustRecordStock(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req AdjustRecordStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	record, err := h.CatalogService.AdjustStock(id, req.Delta)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "唱片不存在", nil)
			return
		}
		if errors.Is(err, service.ErrStockAdjustInvalid) {
			respondError(c, response.CodeBadRequest, "库存调整会导致负库存", nil)
			return
		}
		respondError(c, response.CodeInternal, "库存调整失败", err)
		return
	}

	response.Success(c, gin.H{
		"record_id": record.ID,
		"stock":     record.Stock,
	})
}

func respondRecordWriteError(c *gin.Context, err error, fallbackMsg string) {
	if errors.Is(err, service.ErrNotFound) {
		respondError(c, response.CodeNotFound, "唱片或关联的流派/系列不存在", nil)
		return
	}
	if errors.Is(err, service.ErrSlugExists) {
		respondError(c, response.CodeBadRequest, "slug 已被占用", nil)
		return
	}
	if errors.Is(err, service.ErrRecordInvalid) {
		respondError(c, response.CodeBadRequest, "唱片信息不完整", nil)
		return
	}
	if errors.Is(err, service.ErrRecordPriceInvalid) {
		respondError(c, response.CodeBadRequest, "唱片价格无效", nil)
		return
	}
	if errors.Is(err, service.ErrStockAdjustInvalid) {
		respondError(c, response.CodeBadRequest, "库存数量无效", nil)
		return
	}
	respondError(c, response.CodeInternal, fallbackMsg, err)
}

func parseQueryUint(c *gin.Context, key string) uint {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}
