package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spinshop/internal/http/response"
	"github.com/spinshop/internal/service"

	"github.com/gin-gonic/gin"
)

// GetGenres 获取流派列表
func (h *Handler) GetGenres(c *gin.Context) {
	genres, err := h.CatalogService.ListGenres()
	if err != nil {
		respondError(c, response.CodeInternal, "获取流派列表失败", err)
		return
	}

	response.Success(c, genres)
}

// GetRecordGroups 获取唱片系列列表
func (h *Handler) GetRecordGroups(c *gin.Context) {
	groups, err := h.CatalogService.ListRecordGroups()
	if err != nil {
		respondError(c, response.CodeInternal, "获取系列列表失败", err)
		return
	}

	response.Success(c, groups)
}

// GetRecords 获取唱片列表
func (h *Handler) GetRecords(c *gin.Context) {
	// 获取分页参数
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	// 获取筛选参数
	genreID := parseQueryUint(c, "genre_id")
	groupID := parseQueryUint(c, "group_id")
	search := strings.TrimSpace(c.Query("search"))

	records, total, err := h.CatalogService.ListPublicRecords(genreID, groupID, search, page, pageSize)
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

// GetRecordBySlug 根据 slug 获取唱片详情
func (h *Handler) GetRecordBySlug(c *gin.Context) {
	slug := c.Param("slug")

	record, err := h.CatalogService.GetPublicBySlug(slug)
	if err != nil {
		if errors.Is(err, service.ErrRecordNotFound) || errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "唱片不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取唱片详情失败", err)
		return
	}

	response.Success(c, record)
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
