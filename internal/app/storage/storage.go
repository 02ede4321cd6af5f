package storage

import (
	"context"

	"croissants/internal/app/form"
)

// Store хранит состояние формы по id сессии и блокировку отправки
type Store interface {
	form.SubmitGuard

	Load(ctx context.Context, sessionID string) (*form.State, error)
	Save(ctx context.Context, sessionID string, st *form.State) error
}
