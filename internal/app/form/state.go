package form

import (
	"sort"
	"time"

	"croissants/internal/app/ds"
)

// Outcome — результат последнего вызова операции.
// Нулевое значение: операция ещё не выполнялась
type Outcome struct {
	OK     bool      `json:"ok"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

func (o Outcome) Done() bool {
	return !o.At.IsZero()
}

func (o Outcome) Failed() bool {
	return o.Done() && !o.OK
}

func succeeded(at time.Time) Outcome {
	return Outcome{OK: true, At: at}
}

func failed(at time.Time, err error) Outcome {
	return Outcome{Reason: err.Error(), At: at}
}

// State — всё клиентское состояние формы одной сессии
type State struct {
	Buildings         []ds.Building         `json:"buildings"`
	CurrentBuilding   *ds.Building          `json:"current_building,omitempty"`
	Draft             Draft                 `json:"draft"`
	Requests          []ds.CroissantRequest `json:"requests"`
	RequestsFetchedAt time.Time             `json:"requests_fetched_at"`

	BuildingsStatus Outcome `json:"buildings_status"`
	RequestsStatus  Outcome `json:"requests_status"`
	SubmitStatus    Outcome `json:"submit_status"`
	DeleteStatus    Outcome `json:"delete_status"`
}

func NewState() *State {
	return &State{}
}

// Ready — обе начальные загрузки завершились хотя бы раз, в любом порядке
func (s *State) Ready() bool {
	return s.BuildingsStatus.Done() && s.RequestsStatus.Done()
}

// Stale — последняя загрузка списка не удалась, показываем прежние данные
func (s *State) Stale() bool {
	return s.RequestsStatus.Failed()
}

// SelectBuilding выбирает здание по id; неизвестный id игнорируется
func (s *State) SelectBuilding(id string) bool {
	for i := range s.Buildings {
		if s.Buildings[i].ID == id {
			b := s.Buildings[i]
			s.CurrentBuilding = &b
			return true
		}
	}
	return false
}

// UpdateDraftField сохраняет сырое значение поля без проверки диапазона
func (s *State) UpdateDraftField(field Field, raw string) bool {
	switch field {
	case FieldAmount:
		s.Draft.Amount = ParseInt(raw)
	case FieldFloor:
		s.Draft.Floor = ParseInt(raw)
	case FieldRequester:
		v := raw
		s.Draft.Requester = &v
	default:
		return false
	}
	return true
}

// ClearDraftField возвращает поле в состояние «не задано»
func (s *State) ClearDraftField(field Field) bool {
	switch field {
	case FieldAmount:
		s.Draft.Amount = Number{}
	case FieldFloor:
		s.Draft.Floor = Number{}
	case FieldRequester:
		s.Draft.Requester = nil
	default:
		return false
	}
	return true
}

// NormalizeFloor приводит этаж к [0, max_floors] текущего здания.
// Это подсказка для пользователя, окончательную проверку делает сервер
func (s *State) NormalizeFloor() {
	floor := s.Draft.Floor
	switch {
	case floor.Kind != Valid:
		s.Draft.Floor = Int(0)
	case floor.Value < 0:
		s.Draft.Floor = Int(0)
	case s.CurrentBuilding != nil && floor.Value > s.CurrentBuilding.MaxFloors:
		s.Draft.Floor = Int(s.CurrentBuilding.MaxFloors)
	}
}

// MaxFloor — верхняя граница поля этажа для формы
func (s *State) MaxFloor() int {
	if s.CurrentBuilding == nil {
		return 0
	}
	return s.CurrentBuilding.MaxFloors
}

// SortedRequests — копия списка, самые свежие заявки первыми
func (s *State) SortedRequests() []ds.CroissantRequest {
	out := make([]ds.CroissantRequest, len(s.Requests))
	copy(out, s.Requests)
	sortByTimeDesc(out)
	return out
}

// newRequest собирает тело создания заявки; незаданные поля отправляются нулями
func (s *State) newRequest(now time.Time) ds.NewCroissantRequest {
	building := ""
	if s.CurrentBuilding != nil {
		building = s.CurrentBuilding.ID
	}
	return ds.NewCroissantRequest{
		Amount: s.Draft.Amount.OrZero(),
		Location: ds.Location{
			Building: building,
			Floor:    s.Draft.Floor.OrZero(),
		},
		Requester: s.Draft.RequesterOrEmpty(),
		Time:      ds.FormatTime(now),
	}
}

func sortByTimeDesc(requests []ds.CroissantRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].Time.After(requests[j].Time)
	})
}
