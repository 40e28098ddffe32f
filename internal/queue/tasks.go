package queue

import (
	"encoding/json"

	"github.com/coursemart/internal/constants"

	"github.com/hibiken/asynq"
)

// TaskEnrollmentEmail 报名确认邮件任务
const TaskEnrollmentEmail = constants.TaskEnrollmentEmail

// EnrollmentEmailPayload 报名确认邮件任务载荷
type EnrollmentEmailPayload struct {
	OrderID      uint `json:"order_id"`
	EnrollmentID uint `json:"enrollment_id"`
}

// NewEnrollmentEmailTask 创建报名确认邮件任务
func NewEnrollmentEmailTask(payload EnrollmentEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEnrollmentEmail, body), nil
}
