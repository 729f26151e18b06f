package models

// Reminder сообщение-напоминание о скором продлении подписки.
// Публикуется воркером в RabbitMQ и обрабатывается сервисом отправки писем.
type Reminder struct {
	To           string       `json:"to"`
	Label        string       `json:"label"`
	DaysBefore   int          `json:"daysBefore"`
	Subscription Subscription `json:"subscription"`
}
