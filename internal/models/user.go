package models

import "time"

// User зарегистрированный пользователь системы. Хэш пароля никогда не сериализуется.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DummyUser тело запроса на регистрацию.
type DummyUser struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,min=4"`
}

// Credentials тело запроса на вход.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult токен доступа вместе с данными пользователя.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
