package domain

import (
	"bytes"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

var mesLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	DateLayout,
}

// MesLocation часовой пояс, в котором МЭШ отдаёт даты без зоны
var MesLocation = mustLoadMoscow()

func mustLoadMoscow() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// MesTime время из ответов МЭШ, понимает несколько форматов
type MesTime struct {
	time.Time
}

func ParseMesTime(s string) (time.Time, error) {
	for _, layout := range mesLayouts {
		if t, err := time.ParseInLocation(layout, s, MesLocation); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported mes time format: %q", s)
}

func (t *MesTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		t.Time = time.Time{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' {
		return fmt.Errorf("mes time must be a string: %s", data)
	}
	parsed, err := ParseMesTime(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t MesTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

// Day начало дня в поясе МЭШ
func Day(t time.Time) time.Time {
	local := t.In(MesLocation)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, MesLocation)
}

func FormatDate(t time.Time) string {
	return t.In(MesLocation).Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, MesLocation)
}
