// Package reminder планирует письма-напоминания о продлении подписки.
//
// Для каждой новой подписки запускается один Temporal workflow. Он загружает подписку,
// проверяет, что она активна, и для каждого смещения из Offsets спит на durable-таймере
// до дня напоминания. Перед каждой отправкой подписка перечитывается заново: отменённая
// или просроченная подписка завершает запуск без дальнейших писем.
package reminder

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// WorkflowName имя workflow напоминаний, под которым он регистрируется в воркере.
const WorkflowName = "SubscriptionReminderWorkflow"

// Offsets за сколько дней до продления отправляются напоминания, по убыванию.
var Offsets = []int{7, 5, 2, 1}

// Input входные данные запуска workflow.
type Input struct {
	SubscriptionID string `json:"subscriptionId"`
}

// WorkflowID возвращает идентификатор workflow для подписки.
// Повторный запуск для той же подписки попадает в уже идущий run.
func WorkflowID(subscriptionID string) string {
	return "subscription-reminder-" + subscriptionID
}

// ReminderAt момент напоминания за days дней до даты продления.
func ReminderAt(renewalDate time.Time, days int) time.Time {
	return renewalDate.AddDate(0, 0, -days)
}

// SameDay сообщает, приходятся ли a и b на один календарный день UTC.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// DispatchLabel метка отправляемого напоминания.
func DispatchLabel(days int) string {
	return fmt.Sprintf("%d days before reminder", days)
}

// WaitLabel метка ожидания до дня напоминания.
func WaitLabel(days int) string {
	return fmt.Sprintf("Reminder %d days before", days)
}

// Причины, по которым запуск завершается без отправки.
const (
	ReasonMissing  = "subscription not found"
	ReasonInactive = "subscription is not active"
	ReasonPastDue  = "renewal date has passed"
	ReasonNoOwner  = "subscription owner has no email"
)

// Check проверяет, можно ли ещё напоминать о подписке в момент now.
// Возвращает пустую строку, если можно, иначе причину отказа.
func Check(sub *models.Subscription, now time.Time) string {
	switch {
	case sub == nil:
		return ReasonMissing
	case sub.Status != models.StatusActive:
		return ReasonInactive
	case sub.RenewalDate.Before(now):
		return ReasonPastDue
	case sub.Owner == nil || sub.Owner.Email == "":
		return ReasonNoOwner
	}
	return ""
}
