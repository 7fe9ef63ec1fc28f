package queue

import (
	"encoding/json"

	"github.com/spinshop/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCartIdleDisable 闲置购物车停用任务
	TaskCartIdleDisable = constants.TaskCartIdleDisable
)

// CartIdleDisablePayload 闲置购物车停用任务载荷
// IdleSince 为入队时购物车 updated_at 的 Unix 秒，
// 消费时购物车若已被再次触达则任务过期作废
type CartIdleDisablePayload struct {
	CartID    uint  `json:"cart_id"`
	IdleSince int64 `json:"idle_since"`
}

// NewCartIdleDisableTask 创建闲置购物车停用任务
func NewCartIdleDisableTask(payload CartIdleDisablePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartIdleDisable, body), nil
}
