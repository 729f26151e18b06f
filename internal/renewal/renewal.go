// Package renewal вычисляет дату продления подписки и приводит её статус
// в соответствие с текущим временем.
//
// Смещения фиксированы в днях (месяц = 30 дней, год = 365 дней) и не учитывают календарь.
package renewal

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

var offsets = map[models.Frequency]int{
	models.FrequencyDaily:   1,
	models.FrequencyWeekly:  7,
	models.FrequencyMonthly: 30,
	models.FrequencyYearly:  365,
}

// OffsetDays возвращает количество дней между списаниями для периодичности.
func OffsetDays(f models.Frequency) (int, error) {
	days, ok := offsets[f]
	if !ok {
		return 0, apperr.Validation(fmt.Sprintf("unknown frequency %q", f))
	}
	return days, nil
}

// Date возвращает дату продления: дата начала плюс фиксированное смещение периодичности.
func Date(start time.Time, f models.Frequency) (time.Time, error) {
	days, err := OffsetDays(f)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, days), nil
}

// Apply проверяет даты подписки относительно now, при необходимости вычисляет дату продления
// и переводит подписку в expired, если дата продления уже прошла.
func Apply(sub *models.Subscription, now time.Time) error {
	if sub.StartDate.IsZero() {
		return apperr.Validation("start date is required")
	}
	if sub.StartDate.After(now) {
		return apperr.Validation("start date must be in the past")
	}

	if sub.RenewalDate.IsZero() {
		if sub.Frequency == "" {
			return apperr.Validation("frequency is required when renewal date is not set")
		}
		date, err := Date(sub.StartDate, sub.Frequency)
		if err != nil {
			return err
		}
		sub.RenewalDate = date
	}

	if !sub.RenewalDate.After(sub.StartDate) {
		return apperr.Validation("renewal date must be after the start date")
	}

	if Elapsed(sub.RenewalDate, now) {
		sub.Status = models.StatusExpired
	}
	return nil
}

// Elapsed сообщает, прошла ли дата продления к моменту now.
func Elapsed(renewalDate, now time.Time) bool {
	return renewalDate.Before(now)
}
