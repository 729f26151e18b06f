// Package sl содержит вспомогательные функции для структурированного логирования через slog.
package sl

import "log/slog"

// Err возвращает атрибут "error" с текстом ошибки. Для nil возвращает пустой атрибут,
// поэтому его можно безопасно передавать в логгер без дополнительной проверки.
//
//	log.Error("failed to create subscription", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Op возвращает атрибут "op" с именем операции.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
