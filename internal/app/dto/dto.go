package dto

import (
	"time"

	"croissants/internal/app/ds"
)

// ============ Общие структуры ============

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ============ Черновик ============

type DraftValueRequest struct {
	Value *string `json:"value" binding:"required"`
}

type DraftFieldURI struct {
	Field string `uri:"field" binding:"required,oneof=amount floor requester"`
}

type DraftResponse struct {
	Amount    *int     `json:"amount"` // null, если не задано или не число
	Floor     *int     `json:"floor"`
	Requester *string  `json:"requester"`
	Invalid   []string `json:"invalid,omitempty"` // поля со значением NaN
}

// ============ Здания и заявки ============

type BuildingURI struct {
	ID string `uri:"id" binding:"required"`
}

type RequestURI struct {
	ID int64 `uri:"id" binding:"min=0"`
}

type OutcomeResponse struct {
	OK     bool       `json:"ok"`
	Reason string     `json:"reason,omitempty"`
	At     *time.Time `json:"at,omitempty"`
}

type StateResponse struct {
	Buildings         []ds.Building              `json:"buildings"`
	CurrentBuilding   *ds.Building               `json:"current_building"`
	Draft             DraftResponse              `json:"draft"`
	Requests          []ds.CroissantRequest      `json:"requests"` // новые первыми
	RequestsFetchedAt *time.Time                 `json:"requests_fetched_at,omitempty"`
	Stale             bool                       `json:"stale"`
	SubmitInFlight    bool                       `json:"submit_in_flight"`
	Status            map[string]OutcomeResponse `json:"status"`
}
