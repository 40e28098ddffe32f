package public

import (
	"strconv"

	"github.com/coursemart/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CartAddRequest 添加购物车请求
type CartAddRequest struct {
	CourseID uint `json:"course_id" binding:"required"`
}

// ListCart 获取购物车
func (h *Handler) ListCart(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	items, total, err := h.CartService.List(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch cart failed", err)
		return
	}
	response.Success(c, gin.H{
		"items": items,
		"total": total,
	})
}

// AddToCart 添加课程到购物车
func (h *Handler) AddToCart(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CartAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	item, err := h.CartService.Add(userID, req.CourseID)
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "add to cart failed")
		return
	}
	response.Success(c, item)
}

// RemoveFromCart 移除购物车课程
func (h *Handler) RemoveFromCart(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	courseID, err := strconv.ParseUint(c.Param("course_id"), 10, 64)
	if err != nil || courseID == 0 {
		respondError(c, response.CodeBadRequest, "course id invalid", err)
		return
	}
	if err := h.CartService.Remove(userID, uint(courseID)); err != nil {
		respondError(c, response.CodeInternal, "remove from cart failed", err)
		return
	}
	response.Success(c, nil)
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.CartService.Clear(userID); err != nil {
		respondError(c, response.CodeInternal, "clear cart failed", err)
		return
	}
	response.Success(c, nil)
}
