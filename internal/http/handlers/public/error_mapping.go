package public

import (
	"errors"

	"github.com/coursemart/internal/http/response"
	"github.com/coursemart/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	// 带动态内容的错误直接透出自身消息
	var retryErr *service.RetryAfterError
	if errors.As(err, &retryErr) {
		response.ErrorWithRetryAfter(c, retryErr.Error(), int(retryErr.After.Seconds()))
		return
	}
	var cartErr *service.CartValidationError
	if errors.As(err, &cartErr) {
		response.ErrorWithData(c, response.CodeBadRequest, "some courses are not purchasable", gin.H{
			"titles": cartErr.Titles,
		})
		return
	}

	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var orderCommonErrorRules = []mappedHandlerError{
	{target: service.ErrCourseNotFound, code: response.CodeNotFound, msg: "course not found"},
	{target: service.ErrCourseNotPublished, code: response.CodeBadRequest, msg: "course is not available"},
	{target: service.ErrCourseFreeNoPayment, code: response.CodeBadRequest, msg: "free course does not require payment"},
	{target: service.ErrAlreadyEnrolled, code: response.CodeBadRequest, msg: "already enrolled in this course"},
	{target: service.ErrCouponInvalid, code: response.CodeBadRequest, msg: "coupon is not usable"},
	{target: service.ErrNothingToCharge, code: response.CodeBadRequest, msg: "order total is fully discounted, nothing to charge"},
	{target: service.ErrProviderNotSupported, code: response.CodeBadRequest, msg: "payment provider not supported"},
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, msg: "cart is empty"},
}

var paymentVerifyErrorRules = []mappedHandlerError{
	{target: service.ErrCallbackIncomplete, code: response.CodeBadRequest, msg: "payment callback payload incomplete"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, msg: "order can no longer be paid"},
	{target: service.ErrPaymentVerificationFailed, code: response.CodeBadRequest, msg: "payment verification failed"},
	{target: service.ErrProviderNotSupported, code: response.CodeBadRequest, msg: "payment provider not supported"},
}

var userAuthErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, msg: "email is invalid"},
	{target: service.ErrPasswordTooShort, code: response.CodeBadRequest, msg: "password must be at least 8 characters"},
	{target: service.ErrEmailExists, code: response.CodeBadRequest, msg: "email already registered"},
	{target: service.ErrInvalidCredentials, code: response.CodeUnauthorized, msg: "invalid email or password"},
	{target: service.ErrUserDisabled, code: response.CodeForbidden, msg: "account disabled"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, msg: "user not found"},
}

var cartErrorRules = []mappedHandlerError{
	{target: service.ErrCourseNotFound, code: response.CodeNotFound, msg: "course not found"},
	{target: service.ErrCourseNotPublished, code: response.CodeBadRequest, msg: "course is not available"},
	{target: service.ErrAlreadyEnrolled, code: response.CodeBadRequest, msg: "already enrolled in this course"},
	{target: service.ErrCartItemExists, code: response.CodeBadRequest, msg: "course already in cart"},
}
