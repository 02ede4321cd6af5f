package form

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

type NumberKind uint8

const (
	Unset NumberKind = iota
	NaN
	Valid
)

// Number — числовое поле черновика: не задано, не число или значение
type Number struct {
	Kind  NumberKind `json:"kind"`
	Value int        `json:"value,omitempty"`
}

func Int(v int) Number {
	return Number{Kind: Valid, Value: v}
}

// ParseInt разбирает строку как parseInt(raw, 10): пропускает ведущие пробелы,
// допускает знак и берёт самый длинный префикс из цифр. Без цифр результат NaN.
// Значения за пределами int насыщаются до math.MaxInt / math.MinInt.
func ParseInt(raw string) Number {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)

	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return Number{Kind: NaN}
	}

	digits := s[:end]
	if negative {
		digits = "-" + digits
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		// единственная возможная ошибка здесь — переполнение
		if negative {
			return Int(math.MinInt)
		}
		return Int(math.MaxInt)
	}
	return Int(v)
}

func (n Number) IsSet() bool {
	return n.Kind == Valid
}

// OrZero — значение, а для незаданного поля или NaN ноль
func (n Number) OrZero() int {
	if n.Kind != Valid {
		return 0
	}
	return n.Value
}

// String — значение для input: пусто, если поле не задано, NaN или 0
func (n Number) String() string {
	if n.Kind != Valid || n.Value == 0 {
		return ""
	}
	return strconv.Itoa(n.Value)
}
