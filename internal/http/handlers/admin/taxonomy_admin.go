package admin

import (
	"errors"
	"strconv"

	"github.com/spinshop/internal/http/response"
	"github.com/spinshop/internal/service"

	"github.com/gin-gonic/gin"
)

// ====================  流派管理  ====================

// CreateGenreRequest 创建流派请求
type CreateGenreRequest struct {
	Slug      string `json:"slug" binding:"required"`
	Name      string `json:"name" binding:"required"`
	SortOrder int    `json:"sort_order"`
}

// GetAdminGenres 获取流派列表 (Admin)
func (h *Handler) GetAdminGenres(c *gin.Context) {
	genres, err := h.CatalogService.ListGenres()
	if err != nil {
		respondError(c, response.CodeInternal, "获取流派列表失败", err)
		return
	}

	response.Success(c, genres)
}

// CreateGenre 创建流派
func (h *Handler) CreateGenre(c *gin.Context) {
	var req CreateGenreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	genre, err := h.CatalogService.CreateGenre(service.CreateGenreInput{
		Slug:      req.Slug,
		Name:      req.Name,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, service.ErrTaxonomyInvalid) {
			respondError(c, response.CodeBadRequest, "流派信息不完整", nil)
			return
		}
		if errors.Is(err, service.ErrSlugExists) {
			respondError(c, response.CodeBadRequest, "slug 已存在", nil)
			return
		}
		if errors.Is(err, service.ErrNameExists) {
			respondError(c, response.CodeBadRequest, "名称已存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "创建流派失败", err)
		return
	}

	response.Success(c, genre)
}

// UpdateGenre 更新流派
func (h *Handler) UpdateGenre(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req CreateGenreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	genre, err := h.CatalogService.UpdateGenre(id, service.CreateGenreInput{
		Slug:      req.Slug,
		Name:      req.Name,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "流派不存在", nil)
			return
		}
		if errors.Is(err, service.ErrTaxonomyInvalid) {
			respondError(c, response.CodeBadRequest, "流派信息不完整", nil)
			return
		}
		if errors.Is(err, service.ErrSlugExists) {
			respondError(c, response.CodeBadRequest, "slug 已被占用", nil)
			return
		}
		if errors.Is(err, service.ErrNameExists) {
			respondError(c, response.CodeBadRequest, "名称已被占用", nil)
			return
		}
		respondError(c, response.CodeInternal, "更新流派失败", err)
		return
	}

	response.Success(c, genre)
}

// DeleteGenre 删除流派（软删除）
func (h *Handler) DeleteGenre(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.CatalogService.DeleteGenre(id); err != nil {
		if errors.Is(err, service.ErrGenreInUse) {
			respondError(c, response.CodeBadRequest, "流派仍被唱片引用", nil)
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "流派不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "删除流派失败", err)
		return
	}

	response.Success(c, nil)
}

// ====================  系列管理  ====================

// CreateRecordGroupRequest 创建唱片系列请求
type CreateRecordGroupRequest struct {
	Slug      string `json:"slug" binding:"required"`
	Name      string `json:"name" binding:"required"`
	SortOrder int    `json:"sort_order"`
}

// GetAdminRecordGroups 获取系列列表 (Admin)
func (h *Handler) GetAdminRecordGroups(c *gin.Context) {
	groups, err := h.CatalogService.ListRecordGroups()
	if err != nil {
		respondError(c, response.CodeInternal, "获取系列列表失败", err)
		return
	}

	response.Success(c, groups)
}

// CreateRecordGroup 创建系列
func (h *Handler) CreateRecordGroup(c *gin.Context) {
	var req CreateRecordGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	group, err := h.CatalogService.CreateRecordGroup(service.CreateRecordGroupInput{
		Slug:      req.Slug,
		Name:      req.Name,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, service.ErrTaxonomyInvalid) {
			respondError(c, response.CodeBadRequest, "系列信息不完整", nil)
			return
		}
		if errors.Is(err, service.ErrSlugExists) {
			respondError(c, response.CodeBadRequest, "slug 已存在", nil)
			return
		}
		if errors.Is(err, service.ErrNameExists) {
			respondError(c, response.CodeBadRequest, "名称已存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "创建系列失败", err)
		return
	}

	response.Success(c, group)
}

// UpdateRecordGroup 更新系列
func (h *Handler) UpdateRecordGroup(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req CreateRecordGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	group, err := h.CatalogService.UpdateRecordGroup(id, service.CreateRecordGroupInput{
		Slug:      req.Slug,
		Name:      req.Name,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "系列不存在", nil)
			return
		}
		if errors.Is(err, service.ErrTaxonomyInvalid) {
			respondError(c, response.CodeBadRequest, "系列信息不完整", nil)
			return
		}
		if errors.Is(err, service.ErrSlugExists) {
			respondError(c, response.CodeBadRequest, "slug 已被占用", nil)
			return
		}
		if errors.Is(err, service.ErrNameExists) {
			respondError(c, response.CodeBadRequest, "名称已被占用", nil)
			return
		}
		respondError(c, response.CodeInternal, "更新系列失败", err)
		return
	}

	response.Success(c, group)
}

// DeleteRecordGroup 删除系列（软删除）
func (h *Handler) DeleteRecordGroup(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.CatalogService.DeleteRecordGroup(id); err != nil {
		if errors.Is(err, service.ErrRecordGroupInUse) {
			respondError(c, response.CodeBadRequest, "系列仍被唱片引用", nil)
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "系列不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "删除系列失败", err)
		return
	}

	response.Success(c, nil)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || raw == 0 {
		respondError(c, response.CodeBadRequest, "ID 无效", nil)
		return 0, false
	}
	return uint(raw), true
}
