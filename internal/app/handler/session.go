package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"croissants/internal/app/form"
	"croissants/internal/app/middleware"
	"croissants/internal/app/storage"
)

var errNoSession = errors.New("session is not initialised")

// loadState достаёт состояние формы текущей сессии
func loadState(ctx *gin.Context, store storage.Store) (string, *form.State, error) {
	sessionID := middleware.GetSessionID(ctx)
	if sessionID == "" {
		return "", nil, errNoSession
	}

	st, err := store.Load(ctx.Request.Context(), sessionID)
	if err != nil {
		return "", nil, err
	}
	return sessionID, st, nil
}

// bindingError превращает ошибки валидатора в читаемое сообщение
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("неверные данные: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return fmt.Errorf("неверные данные: %s", strings.Join(msgs, "; "))
}
