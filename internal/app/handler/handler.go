package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"croissants/internal/app/dto"
	"croissants/internal/app/form"
	"croissants/internal/app/middleware"
	"croissants/internal/app/storage"
	"croissants/internal/app/templates"
)

// Handler — HTML-форма заявок (POST → redirect → GET)
type Handler struct {
	Controller *form.Controller
	Store      storage.Store
}

func NewHandler(c *form.Controller, s storage.Store) *Handler {
	return &Handler{Controller: c, Store: s}
}

// Регистрация шаблонов страницы
func (h *Handler) RegisterTemplates(router *gin.Engine) error {
	tmpl, err := templates.Parse()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	return nil
}

// Регистрация маршрутов
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	// GET маршруты
	router.GET("/", h.GetIndex)

	// POST маршруты
	router.POST("/draft", h.SaveDraft)
	router.POST("/building", h.SelectBuilding)
	router.POST("/requests", h.SubmitRequest)
	router.POST("/requests/:id/delete", h.DeleteRequest)
}

// Централизованная обработка ошибок
func (h *Handler) errorHandler(ctx *gin.Context, errorStatusCode int, err error) {
	middleware.RequestLogger(ctx).Error(err.Error())
	ctx.JSON(errorStatusCode, gin.H{
		"status":      "error",
		"description": err.Error(),
	})
}

type pageStatus struct {
	Buildings form.Outcome
	Requests  form.Outcome
	Submit    form.Outcome
	Delete    form.Outcome
}

// 1. Страница: загрузка зданий и заявок, форма и список
func (h *Handler) GetIndex(ctx *gin.Context) {
	sessionID, st, err := loadState(ctx, h.Store)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	// ошибки загрузки уже записаны в st и показываются на странице
	_ = h.Controller.Refresh(ctx.Request.Context(), st)

	if err := h.Store.Save(ctx.Request.Context(), sessionID, st); err != nil {
		middleware.RequestLogger(ctx).WithError(err).Error("failed to save session")
	}

	ctx.HTML(http.StatusOK, "index.html", gin.H{
		"buildings":      st.Buildings,
		"current":        st.CurrentBuilding,
		"maxFloor":       st.MaxFloor(),
		"draft":          st.Draft,
		"requests":       st.SortedRequests(),
		"stale":          st.Stale(),
		"fetchedAt":      st.RequestsFetchedAt,
		"submitInFlight": h.Controller.SubmitInFlight(ctx.Request.Context(), sessionID),
		"status": pageStatus{
			Buildings: st.BuildingsStatus,
			Requests:  st.RequestsStatus,
			Submit:    st.SubmitStatus,
			Delete:    st.DeleteStatus,
		},
	})
}

// 2. Сохранение черновика; blur=floor нормализует этаж
func (h *Handler) SaveDraft(ctx *gin.Context) {
	h.withState(ctx, func(sessionID string, st *form.State) error {
		applyDraftForm(ctx, st)
		if ctx.PostForm("blur") == string(form.FieldFloor) {
			st.NormalizeFloor()
		}
		return nil
	})
}

// 3. Выбор здания
func (h *Handler) SelectBuilding(ctx *gin.Context) {
	h.withState(ctx, func(sessionID string, st *form.State) error {
		st.SelectBuilding(ctx.PostForm("building"))
		return nil
	})
}

// 4. Отправка заявки
func (h *Handler) SubmitRequest(ctx *gin.Context) {
	h.withState(ctx, func(sessionID string, st *form.State) error {
		applyDraftForm(ctx, st)
		// результат записан в st.SubmitStatus
		return h.Controller.Submit(ctx.Request.Context(), sessionID, st)
	})
}

// 5. Удаление заявки
func (h *Handler) DeleteRequest(ctx *gin.Context) {
	var uri dto.RequestURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, bindingError(err))
		return
	}

	h.withState(ctx, func(sessionID string, st *form.State) error {
		return h.Controller.DeleteRequest(ctx.Request.Context(), st, uri.ID)
	})
}

// withState загружает состояние сессии, применяет fn, сохраняет и возвращает на страницу.
// Ошибки операций уже записаны в st и показываются на странице
func (h *Handler) withState(ctx *gin.Context, fn func(sessionID string, st *form.State) error) {
	sessionID, st, err := loadState(ctx, h.Store)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	if err := fn(sessionID, st); skipSave(err) {
		ctx.Redirect(http.StatusFound, "/")
		return
	}

	if err := h.Store.Save(ctx.Request.Context(), sessionID, st); err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.Redirect(http.StatusFound, "/")
}

// skipSave: отправку уже ведёт другой запрос этой сессии, он и сохранит
// результат. Своё состояние не пишем, иначе вернём очищенный им черновик
func skipSave(err error) bool {
	return errors.Is(err, form.ErrSubmitInFlight)
}

// applyDraftForm переносит в черновик только присланные поля формы.
// Здание выбирается первым, чтобы этаж сравнивался с его границей.
// Форма всегда шлёт все поля, пустое числовое поле значит «не задано», а не NaN
func applyDraftForm(ctx *gin.Context, st *form.State) {
	if id, ok := ctx.GetPostForm("building"); ok {
		st.SelectBuilding(id)
	}
	for _, field := range []form.Field{form.FieldAmount, form.FieldFloor, form.FieldRequester} {
		raw, ok := ctx.GetPostForm(string(field))
		if !ok {
			continue
		}
		if field != form.FieldRequester && strings.TrimSpace(raw) == "" {
			st.ClearDraftField(field)
			continue
		}
		st.UpdateDraftField(field, raw)
	}
}
