package form

type Field string

const (
	FieldAmount    Field = "amount"
	FieldFloor     Field = "floor"
	FieldRequester Field = "requester"
)

// ParseField возвращает поле черновика по имени из формы
func ParseField(name string) (Field, bool) {
	switch f := Field(name); f {
	case FieldAmount, FieldFloor, FieldRequester:
		return f, true
	}
	return "", false
}

// Draft — несохранённая заявка. Нулевое значение означает, что ни одно поле не задано
type Draft struct {
	Amount    Number  `json:"amount"`
	Floor     Number  `json:"floor"`
	Requester *string `json:"requester,omitempty"`
}

func (d Draft) IsEmpty() bool {
	return d.Amount.Kind == Unset && d.Floor.Kind == Unset && d.Requester == nil
}

func (d Draft) RequesterOrEmpty() string {
	if d.Requester == nil {
		return ""
	}
	return *d.Requester
}
