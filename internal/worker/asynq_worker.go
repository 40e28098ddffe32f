package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/coursemart/internal/logger"
	"github.com/coursemart/internal/provider"
	"github.com/coursemart/internal/queue"
	"github.com/coursemart/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskEnrollmentEmail, c.handleEnrollmentEmail)
}

func (c *Consumer) handleEnrollmentEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_enrollment_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.EnrollmentEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_enrollment_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_enrollment_email_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}

	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_enrollment_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_enrollment_email_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}

	user, err := c.UserRepo.GetByID(order.UserID)
	if err != nil {
		logger.Warnw("worker_enrollment_email_fetch_user_failed", "order_id", order.ID, "user_id", order.UserID, "error", err)
		return err
	}
	if user == nil || strings.TrimSpace(user.Email) == "" {
		logger.Debugw("worker_enrollment_email_skip_empty_receiver", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_enrollment_email_skip_email_service_nil", "order_id", order.ID)
		return nil
	}

	courseTitle := ""
	if order.Course != nil {
		courseTitle = order.Course.Title
	}
	input := service.EnrollmentEmailInput{
		OrderNo:     order.OrderNo,
		CourseTitle: courseTitle,
		Amount:      order.FinalAmount,
		Currency:    order.Currency,
	}
	if err := c.EmailService.SendEnrollmentEmail(user.Email, input); err != nil {
		if err == service.ErrEmailDisabled {
			logger.Debugw("worker_enrollment_email_skip_disabled", "order_id", order.ID)
			return nil
		}
		logger.Warnw("worker_enrollment_email_send_failed", "order_id", order.ID, "error", err)
		return err
	}

	logger.Infow("worker_enrollment_email_sent",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", user.ID,
	)
	return nil
}
