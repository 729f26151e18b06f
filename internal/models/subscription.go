// Package models содержит доменные структуры подписки, пользователя и напоминания,
// а также типы для приёма данных из JSON-запросов.
package models

import (
	"slices"
	"time"
)

// Frequency периодичность списания по подписке.
type Frequency string

// Допустимые значения Frequency.
const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Currency валюта цены подписки.
type Currency string

// Допустимые значения Currency.
const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyDHS Currency = "DHS"
)

// Status состояние подписки.
type Status string

// Допустимые значения Status.
const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Category закрытый список категорий подписки.
type Category string

// Допустимые значения Category.
const (
	CategorySports        Category = "Sports"
	CategoryNews          Category = "News"
	CategoryEntertainment Category = "Entertainment"
	CategoryLifestyle     Category = "Lifestyle"
	CategoryTechnology    Category = "Technology"
	CategoryFinance       Category = "Finance"
	CategoryPolitics      Category = "Politics"
	CategoryOther         Category = "Other"
)

var categories = []Category{
	CategorySports, CategoryNews, CategoryEntertainment, CategoryLifestyle,
	CategoryTechnology, CategoryFinance, CategoryPolitics, CategoryOther,
}

// Valid сообщает, входит ли категория в закрытый список.
func (c Category) Valid() bool {
	return slices.Contains(categories, c)
}

// Valid сообщает, является ли значение известной периодичностью.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Valid сообщает, является ли значение поддерживаемой валютой.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyINR, CurrencyUSD, CurrencyEUR, CurrencyDHS:
		return true
	}
	return false
}

// Valid сообщает, является ли значение известным статусом.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Subscription основная модель подписки, используемая в бизнес-логике и хранилище.
// Дата продления всегда строго позже даты начала.
type Subscription struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Price         float64            `json:"price"`
	Currency      Currency           `json:"currency"`
	Frequency     Frequency          `json:"frequency,omitempty"`
	Category      Category           `json:"category"`
	PaymentMethod string             `json:"paymentMethod"`
	Status        Status             `json:"status"`
	StartDate     time.Time          `json:"startDate"`
	RenewalDate   time.Time          `json:"renewalDate"`
	UserID        string             `json:"user"`
	Owner         *SubscriptionOwner `json:"owner,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// SubscriptionOwner минимальная проекция владельца подписки, нужная для рассылки.
type SubscriptionOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DummySubscription используется для приёма данных из JSON-запроса на создание подписки.
// Даты приходят в RFC 3339 или в формате 2006-01-02, поэтому принимаются строкой.
type DummySubscription struct {
	Name          string   `json:"name" validate:"required,min=2,max=100"`
	Price         *float64 `json:"price" validate:"required,min=0"`
	Currency      string   `json:"currency" validate:"omitempty,oneof=INR USD EUR DHS"`
	Frequency     string   `json:"frequency" validate:"omitempty,oneof=daily weekly monthly yearly"`
	Category      string   `json:"category" validate:"required,oneof=Sports News Entertainment Lifestyle Technology Finance Politics Other"`
	PaymentMethod string   `json:"paymentMethod" validate:"required"`
	Status        string   `json:"status" validate:"omitempty,oneof=active cancelled expired"`
	StartDate     string   `json:"startDate" validate:"required"`
	RenewalDate   string   `json:"renewalDate"`
}

// CreatedSubscription ответ на создание подписки: запись и идентификатор запуска напоминаний.
type CreatedSubscription struct {
	Subscription  *Subscription `json:"subscription"`
	WorkflowRunID string        `json:"workflowRunId"`
}
