package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spinshop/internal/logger"
	"github.com/spinshop/internal/provider"
	"github.com/spinshop/internal/queue"
	"github.com/spinshop/internal/service"

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
	mux.HandleFunc(queue.TaskCartIdleDisable, c.handleCartIdleDisable)
}

func (c *Consumer) handleCartIdleDisable(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_cart_idle_disable_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CartIdleDisablePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_cart_idle_disable_unmarshal_failed", "error", err)
		return err
	}
	if payload.CartID == 0 {
		logger.Debugw("worker_cart_idle_disable_skip_invalid_payload", "cart_id", payload.CartID)
		return nil
	}
	if c.CartService == nil {
		logger.Warnw("worker_cart_idle_disable_skip_cart_service_nil", "cart_id", payload.CartID)
		return nil
	}
	if err := c.CartService.DisableIdleCart(payload.CartID, payload.IdleSince); err != nil {
		switch {
		case errors.Is(err, service.ErrCartNotFound):
			logger.Debugw("worker_cart_idle_disable_skip_cart_not_found", "cart_id", payload.CartID)
			return nil
		case errors.Is(err, service.ErrCartConflict):
			logger.Warnw("worker_cart_idle_disable_conflict", "cart_id", payload.CartID, "error", err)
			return err
		default:
			logger.Warnw("worker_cart_idle_disable_failed", "cart_id", payload.CartID, "error", err)
			return err
		}
	}
	return nil
}
