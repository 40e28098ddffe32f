package public

import (
	"strconv"

	handlershared "github.com/coursemart/internal/http/handlers/shared"
	"github.com/coursemart/internal/http/response"
	"github.com/coursemart/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListCourses 上架课程目录
func (h *Handler) ListCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	categoryID, _ := strconv.ParseUint(c.Query("category_id"), 10, 64)

	courses, total, err := h.CourseService.ListPublished(repository.CourseListFilter{
		CategoryID: uint(categoryID),
		Keyword:    c.Query("keyword"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch courses failed", err)
		return
	}
	response.SuccessWithPage(c, courses, handlershared.BuildPagination(page, pageSize, total))
}

// GetCourse 课程详情
func (h *Handler) GetCourse(c *gin.Context) {
	course, err := h.CourseService.GetPublishedBySlug(c.Param("slug"))
	if err != nil {
		respondWithMappedError(c, err, orderCommonErrorRules, response.CodeInternal, "fetch course failed")
		return
	}

	enrolled := false
	if value, ok := c.Get("user_id"); ok {
		if userID, ok := value.(uint); ok {
			enrolled, _ = h.CourseService.IsEnrolled(userID, course.ID)
		}
	}
	response.Success(c, gin.H{
		"course":   course,
		"enrolled": enrolled,
	})
}

// ListCategories 分类列表
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.CourseService.ListCategories()
	if err != nil {
		respondError(c, response.CodeInternal, "fetch categories failed", err)
		return
	}
	response.Success(c, categories)
}

// ListEnrollments 我的课程
func (h *Handler) ListEnrollments(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	enrollments, err := h.CourseService.ListEnrollments(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch enrollments failed", err)
		return
	}
	response.Success(c, enrollments)
}
