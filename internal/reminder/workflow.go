package reminder

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// State состояние запуска напоминаний.
type State string

// Состояния запуска. Scheduling, Waiting и Due проходятся внутри цикла по смещениям.
const (
	StateFetching   State = "fetching"
	StateValidating State = "validating"
	StateAborted    State = "aborted"
	StateScheduling State = "scheduling"
	StateWaiting    State = "waiting"
	StateDue        State = "due"
	StateCompleted  State = "completed"
)

// Outcome итог по одному смещению.
type Outcome struct {
	DaysBefore int    `json:"daysBefore"`
	Dispatched bool   `json:"dispatched"`
	Label      string `json:"label"`
}

// Result итог запуска workflow.
type Result struct {
	State    State     `json:"state"`
	Reason   string    `json:"reason,omitempty"`
	Outcomes []Outcome `json:"outcomes,omitempty"`
}

func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    5,
			InitialInterval:    5 * time.Second,
			MaximumInterval:    30 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
}

// SubscriptionReminderWorkflow отправляет напоминания за 7, 5, 2 и 1 день до продления подписки.
// Отсутствующая, неактивная или просроченная подписка завершает запуск без ошибки.
// Смещения, день которых уже прошёл, пропускаются без догоняющей отправки.
func SubscriptionReminderWorkflow(ctx workflow.Context, in Input) (Result, error) {
	logger := workflow.GetLogger(ctx)
	if in.SubscriptionID == "" {
		return Result{State: StateAborted}, temporal.NewNonRetryableApplicationError(
			"subscription id is required", "InvalidInput", nil)
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	sub, err := fetch(ctx, in.SubscriptionID)
	if err != nil {
		return Result{State: StateFetching}, err
	}
	if reason := Check(sub, workflow.Now(ctx)); reason != "" {
		logger.Info("reminder run aborted", "subscription_id", in.SubscriptionID, "reason", reason)
		return Result{State: StateAborted, Reason: reason}, nil
	}

	res := Result{State: StateScheduling}
	for _, days := range Offsets {
		at := ReminderAt(sub.RenewalDate, days)

		if now := workflow.Now(ctx); at.After(now) {
			logger.Info(WaitLabel(days), "subscription_id", in.SubscriptionID, "until", at)
			res.State = StateWaiting
			if err := workflow.Sleep(ctx, at.Sub(now)); err != nil {
				return res, err
			}
		}

		now := workflow.Now(ctx)
		if !SameDay(now, at) {
			res.Outcomes = append(res.Outcomes, Outcome{DaysBefore: days, Label: DispatchLabel(days)})
			continue
		}

		current, err := fetch(ctx, in.SubscriptionID)
		if err != nil {
			return res, err
		}
		if reason := Check(current, now); reason != "" {
			logger.Info("reminder run aborted", "subscription_id", in.SubscriptionID, "reason", reason)
			res.State = StateAborted
			res.Reason = reason
			return res, nil
		}

		res.State = StateDue
		reminder := models.Reminder{
			To:           current.Owner.Email,
			Label:        DispatchLabel(days),
			DaysBefore:   days,
			Subscription: *current,
		}
		if err := workflow.ExecuteActivity(ctx, "SendReminder", reminder).Get(ctx, nil); err != nil {
			return res, err
		}
		res.Outcomes = append(res.Outcomes, Outcome{DaysBefore: days, Dispatched: true, Label: reminder.Label})
	}

	res.State = StateCompleted
	return res, nil
}

func fetch(ctx workflow.Context, id string) (*models.Subscription, error) {
	var sub *models.Subscription
	if err := workflow.ExecuteActivity(ctx, "FetchSubscription", id).Get(ctx, &sub); err != nil {
		return nil, err
	}
	return sub, nil
}
