package reminder

import (
	"context"
	"errors"
	"fmt"

	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
)

// TriggerRequest запрос на запуск workflow.
// Retries число повторов всего запуска при его падении, 0 означает без повторов.
type TriggerRequest struct {
	Workflow string
	Body     Input
	Retries  int
}

// Trigger запускает workflow напоминаний в Temporal.
type Trigger struct {
	tc        temporalclient.Client
	taskQueue string
}

// NewTrigger создаёт Trigger для указанной очереди задач.
func NewTrigger(tc temporalclient.Client, taskQueue string) *Trigger {
	return &Trigger{tc: tc, taskQueue: taskQueue}
}

// Trigger стартует workflow и возвращает идентификатор запуска.
// Если для подписки уже идёт запуск, возвращается его идентификатор.
func (t *Trigger) Trigger(ctx context.Context, req TriggerRequest) (string, error) {
	const op = "reminder.Trigger"
	if req.Body.SubscriptionID == "" {
		return "", fmt.Errorf("%s: %w", op, errors.New("subscription id is required"))
	}
	if req.Retries < 0 {
		return "", fmt.Errorf("%s: retries must not be negative", op)
	}
	name := req.Workflow
	if name == "" {
		name = WorkflowName
	}

	run, err := t.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        WorkflowID(req.Body.SubscriptionID),
		TaskQueue: t.taskQueue,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: int32(req.Retries + 1),
		},
	}, name, req.Body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return run.GetRunID(), nil
}
