package admin

import (
	"errors"
	"strconv"

	handlershared "github.com/coursemart/internal/http/handlers/shared"
	"github.com/coursemart/internal/http/response"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/repository"
	"github.com/coursemart/internal/service"

	"github.com/gin-gonic/gin"
)

// CourseRequest 课程创建/更新请求
type CourseRequest struct {
	CategoryID  *uint        `json:"category_id"`
	Slug        string       `json:"slug" binding:"required"`
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description"`
	CoverImage  string       `json:"cover_image"`
	Instructor  string       `json:"instructor"`
	PriceAmount models.Money `json:"price_amount"`
	Currency    string       `json:"price_currency"`
	IsPublished bool         `json:"is_published"`
	SortOrder   int          `json:"sort_order"`
}

// ListCourses 管理端课程列表
func (h *Handler) ListCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	categoryID, _ := strconv.ParseUint(c.Query("category_id"), 10, 64)

	filter := repository.CourseListFilter{
		CategoryID: uint(categoryID),
		Keyword:    c.Query("keyword"),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := c.Query("is_published"); raw != "" {
		published := raw == "true" || raw == "1"
		filter.IsPublished = &published
	}

	courses, total, err := h.CourseService.AdminList(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch courses failed", err)
		return
	}
	response.SuccessWithPage(c, courses, handlershared.BuildPagination(page, pageSize, total))
}

// GetCourse 管理端课程详情
func (h *Handler) GetCourse(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "course id invalid", err)
		return
	}
	course, err := h.CourseService.AdminGetByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			respondError(c, response.CodeNotFound, "course not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "fetch course failed", err)
		return
	}
	response.Success(c, course)
}

// CreateCourse 创建课程
func (h *Handler) CreateCourse(c *gin.Context) {
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	course := &models.Course{
		CategoryID:    req.CategoryID,
		Slug:          req.Slug,
		Title:         req.Title,
		Description:   req.Description,
		CoverImage:    req.CoverImage,
		Instructor:    req.Instructor,
		PriceAmount:   req.PriceAmount,
		PriceCurrency: req.Currency,
		IsPublished:   req.IsPublished,
		SortOrder:     req.SortOrder,
	}
	if err := h.CourseService.AdminCreate(course); err != nil {
		respondError(c, response.CodeInternal, "create course failed", err)
		return
	}
	requestLog(c).Infow("course_created", "course_id", course.ID, "slug", course.Slug)
	response.Success(c, course)
}

// UpdateCourse 更新课程
func (h *Handler) UpdateCourse(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "course id invalid", err)
		return
	}
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	course, err := h.CourseService.AdminGetByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			respondError(c, response.CodeNotFound, "course not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "fetch course failed", err)
		return
	}

	course.CategoryID = req.CategoryID
	course.Slug = req.Slug
	course.Title = req.Title
	course.Description = req.Description
	course.CoverImage = req.CoverImage
	course.Instructor = req.Instructor
	course.PriceAmount = req.PriceAmount
	course.PriceCurrency = req.Currency
	course.IsPublished = req.IsPublished
	course.SortOrder = req.SortOrder

	if err := h.CourseService.AdminUpdate(course); err != nil {
		respondError(c, response.CodeInternal, "update course failed", err)
		return
	}
	response.Success(c, course)
}

// DeleteCourse 删除课程
func (h *Handler) DeleteCourse(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "course id invalid", err)
		return
	}
	if err := h.CourseService.AdminDelete(uint(id)); err != nil {
		respondError(c, response.CodeInternal, "delete course failed", err)
		return
	}
	response.Success(c, nil)
}
