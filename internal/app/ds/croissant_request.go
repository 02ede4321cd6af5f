package ds

import (
	"encoding/json"
	"strings"
	"time"
)

// TimeLayout совпадает с Date.toISOString(): UTC, миллисекунды, суффикс Z
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Куда доставить круассаны
type Location struct {
	Building string `json:"building"` // Building.ID
	Floor    int    `json:"floor"`
}

// Заявка на круассаны в том виде, в котором её хранит сервер
type CroissantRequest struct {
	ID        int64     `json:"id"`
	Amount    int       `json:"amount"`
	Location  Location  `json:"location"`
	Requester string    `json:"requester"`
	Time      time.Time `json:"time"`
}

// Тело POST /croissants (без id, время строкой)
type NewCroissantRequest struct {
	Amount    int      `json:"amount"`
	Location  Location `json:"location"`
	Requester string   `json:"requester"`
	Time      string   `json:"time"`
}

// Ответ GET /croissants
type RequestsResponse struct {
	Requests []CroissantRequest `json:"requests"`
}

// Форматы поля time, которые принимаем от сервера. Время без смещения считается UTC
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON разбирает time в любом из timeLayouts.
// Нераспознанное время остаётся нулевым, такая заявка оказывается в конце списка
func (r *CroissantRequest) UnmarshalJSON(data []byte) error {
	type plain CroissantRequest
	var aux struct {
		plain
		Time json.RawMessage `json:"time"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = CroissantRequest(aux.plain)
	r.Time = parseTime(aux.Time)
	return nil
}

// parseTime — время из JSON-значения; null, не строка или неизвестный формат дают нулевое время
func parseTime(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
