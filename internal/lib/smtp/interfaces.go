// Package smtp открывает аутентифицированную STARTTLS-сессию с почтовым сервером.
package smtp

import (
	"context"
	"io"
)

// Client команды SMTP-сессии, нужные для отправки одного письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface интерфейс для SMTP транспорта.
type TransportInterface interface {
	Connect(ctx context.Context) (Client, error)
	GetSMTPUser() string
}
