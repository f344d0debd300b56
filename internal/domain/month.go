package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// MonthLayout - текстовое представление месяца
const MonthLayout = "2006-01"

// Month - календарный месяц, закодированный как year*12 + (month-1).
// Все сравнения диапазонов дат выполняются с точностью до месяца.
type Month int

// NewMonth создаёт Month из года и месяца
func NewMonth(year int, month time.Month) Month {
	return Month(year*12 + int(month) - 1)
}

// MonthOf усекает время до содержащего его месяца (в UTC)
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return NewMonth(t.Year(), t.Month())
}

// ParseMonth разбирает строку формата "2006-01"
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// ToMonth приводит «сырое» значение first_seen/last_seen к месяцу.
// Числа трактуются как epoch в миллисекундах, строки - как "2006-01",
// дата или RFC3339.
func ToMonth(raw interface{}) (Month, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("empty date value")
	case Month:
		return v, nil
	case time.Time:
		return MonthOf(v), nil
	case float64:
		return MonthOf(time.UnixMilli(int64(v))), nil
	case int64:
		return MonthOf(time.UnixMilli(v)), nil
	case int:
		return MonthOf(time.UnixMilli(int64(v))), nil
	case string:
		if m, err := ParseMonth(v); err == nil {
			return m, nil
		}
	}

	t, err := cast.ToTimeInDefaultLocationE(raw, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid date value %v: %w", raw, err)
	}
	return MonthOf(t), nil
}

func (m Month) Year() int {
	return int(m) / 12
}

func (m Month) Month() time.Month {
	return time.Month(int(m)%12 + 1)
}

// Time возвращает первое число месяца, 00:00 UTC
func (m Month) Time() time.Time {
	return time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) String() string {
	return m.Time().Format(MonthLayout)
}

// Within - проверка попадания в [min, max] включительно
func (m Month) Within(min, max Month) bool {
	return m >= min && m <= max
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ToMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
