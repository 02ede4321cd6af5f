package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"croissants/internal/app/dto"
	"croissants/internal/app/form"
	"croissants/internal/app/middleware"
	"croissants/internal/app/repository"
	"croissants/internal/app/storage"
)

// APIHandler — та же форма в виде JSON API
type APIHandler struct {
	Controller *form.Controller
	Store      storage.Store
}

func NewAPIHandler(c *form.Controller, s storage.Store) *APIHandler {
	return &APIHandler{Controller: c, Store: s}
}

// ============ Вспомогательные функции ============

func (h *APIHandler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.ErrorResponse{
		Status:  "fail",
		Message: message,
	})
}

func (h *APIHandler) successResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	response := dto.SuccessResponse{
		Status:  "success",
		Message: message,
	}
	if data != nil {
		response.Data = data
	}
	c.JSON(statusCode, response)
}

// upstreamStatus — код ответа для ошибки удалённого API
func upstreamStatus(err error) int {
	var apiErr *repository.APIError
	switch {
	case errors.Is(err, form.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// mutate загружает состояние, применяет fn и сохраняет его независимо от результата fn,
// кроме отказа из-за уже идущей отправки. Ошибка fn отдаётся клиенту вместе с кодом upstreamStatus
func (h *APIHandler) mutate(c *gin.Context, successCode int, message string, fn func(sessionID string, st *form.State) error) {
	sessionID, st, err := loadState(c, h.Store)
	if err != nil {
		middleware.RequestLogger(c).WithError(err).Error("failed to load session")
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка загрузки сессии")
		return
	}

	opErr := fn(sessionID, st)
	if skipSave(opErr) {
		h.errorResponse(c, upstreamStatus(opErr), opErr.Error())
		return
	}

	if err := h.Store.Save(c.Request.Context(), sessionID, st); err != nil {
		middleware.RequestLogger(c).WithError(err).Error("failed to save session")
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка сохранения сессии")
		return
	}

	if opErr != nil {
		h.errorResponse(c, upstreamStatus(opErr), opErr.Error())
		return
	}
	h.successResponse(c, successCode, message, h.stateResponse(c, sessionID, st))
}

func (h *APIHandler) stateResponse(c *gin.Context, sessionID string, st *form.State) dto.StateResponse {
	resp := dto.StateResponse{
		Buildings:       st.Buildings,
		CurrentBuilding: st.CurrentBuilding,
		Draft:           draftResponse(st.Draft),
		Requests:        st.SortedRequests(),
		Stale:           st.Stale(),
		SubmitInFlight:  h.Controller.SubmitInFlight(c.Request.Context(), sessionID),
		Status: map[string]dto.OutcomeResponse{
			"buildings": outcomeResponse(st.BuildingsStatus),
			"requests":  outcomeResponse(st.RequestsStatus),
			"submit":    outcomeResponse(st.SubmitStatus),
			"delete":    outcomeResponse(st.DeleteStatus),
		},
	}
	if !st.RequestsFetchedAt.IsZero() {
		at := st.RequestsFetchedAt
		resp.RequestsFetchedAt = &at
	}
	return resp
}

func draftResponse(d form.Draft) dto.DraftResponse {
	resp := dto.DraftResponse{Requester: d.Requester}
	if d.Amount.IsSet() {
		v := d.Amount.Value
		resp.Amount = &v
	} else if d.Amount.Kind == form.NaN {
		resp.Invalid = append(resp.Invalid, string(form.FieldAmount))
	}
	if d.Floor.IsSet() {
		v := d.Floor.Value
		resp.Floor = &v
	} else if d.Floor.Kind == form.NaN {
		resp.Invalid = append(resp.Invalid, string(form.FieldFloor))
	}
	return resp
}

func outcomeResponse(o form.Outcome) dto.OutcomeResponse {
	if !o.Done() {
		return dto.OutcomeResponse{}
	}
	at := o.At
	return dto.OutcomeResponse{OK: o.OK, Reason: o.Reason, At: &at}
}

// ============ Состояние формы ============

// GetState загружает здания и заявки и возвращает состояние формы
// @Summary Состояние формы
// @Description Перезагружает каталог зданий и список заявок, возвращает черновик и статусы операций
// @Tags Form
// @Produce json
// @Success 200 {object} dto.StateResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/state [get]
func (h *APIHandler) GetState(c *gin.Context) {
	sessionID, st, err := loadState(c, h.Store)
	if err != nil {
		middleware.RequestLogger(c).WithError(err).Error("failed to load session")
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка загрузки сессии")
		return
	}

	// частичный отказ виден в status, ответ всё равно 200
	_ = h.Controller.Refresh(c.Request.Context(), st)

	if err := h.Store.Save(c.Request.Context(), sessionID, st); err != nil {
		middleware.RequestLogger(c).WithError(err).Error("failed to save session")
	}

	c.JSON(http.StatusOK, h.stateResponse(c, sessionID, st))
}

// UpdateDraftField меняет поле черновика
// @Summary Изменение поля черновика
// @Tags Form
// @Accept json
// @Produce json
// @Param field path string true "amount, floor или requester"
// @Param request body dto.DraftValueRequest true "Сырое значение поля"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/draft/{field} [put]
func (h *APIHandler) UpdateDraftField(c *gin.Context) {
	var uri dto.DraftFieldURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.errorResponse(c, http.StatusBadRequest, bindingError(err).Error())
		return
	}
	var req dto.DraftValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, bindingError(err).Error())
		return
	}
	field, _ := form.ParseField(uri.Field)

	h.mutate(c, http.StatusOK, "черновик обновлён", func(_ string, st *form.State) error {
		st.UpdateDraftField(field, *req.Value)
		return nil
	})
}

// NormalizeFloor приводит этаж к границам здания (потеря фокуса полем)
// @Summary Нормализация этажа
// @Tags Form
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Router /api/draft/floor/blur [post]
func (h *APIHandler) NormalizeFloor(c *gin.Context) {
	h.mutate(c, http.StatusOK, "этаж нормализован", func(_ string, st *form.State) error {
		st.NormalizeFloor()
		return nil
	})
}

// SelectBuilding выбирает здание; неизвестный id игнорируется
// @Summary Выбор здания
// @Tags Form
// @Produce json
// @Param id path string true "ID здания"
// @Success 200 {object} dto.SuccessResponse
// @Router /api/building/{id} [put]
func (h *APIHandler) SelectBuilding(c *gin.Context) {
	var uri dto.BuildingURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.errorResponse(c, http.StatusBadRequest, bindingError(err).Error())
		return
	}

	h.mutate(c, http.StatusOK, "здание выбрано", func(_ string, st *form.State) error {
		st.SelectBuilding(uri.ID)
		return nil
	})
}

// ============ Заявки ============

// SubmitRequest отправляет черновик
// @Summary Отправка заявки
// @Description Нормализует этаж, создаёт заявку, очищает черновик и перезагружает список
// @Tags Requests
// @Produce json
// @Success 201 {object} dto.SuccessResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/requests [post]
func (h *APIHandler) SubmitRequest(c *gin.Context) {
	h.mutate(c, http.StatusCreated, "заявка отправлена", func(sessionID string, st *form.State) error {
		return h.Controller.Submit(c.Request.Context(), sessionID, st)
	})
}

// DeleteRequest удаляет заявку
// @Summary Удаление заявки
// @Tags Requests
// @Produce json
// @Param id path int true "ID заявки"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/requests/{id} [delete]
func (h *APIHandler) DeleteRequest(c *gin.Context) {
	var uri dto.RequestURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.errorResponse(c, http.StatusBadRequest, bindingError(err).Error())
		return
	}

	h.mutate(c, http.StatusOK, "заявка удалена", func(_ string, st *form.State) error {
		return h.Controller.DeleteRequest(c.Request.Context(), st, uri.ID)
	})
}
