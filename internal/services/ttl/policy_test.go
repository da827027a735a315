package ttl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
)

func testPolicy() *Policy {
	return NewPolicy(&Config{Short: time.Minute, Medium: 15 * time.Minute, Long: 6 * time.Hour}, clock.Moscow())
}

func TestPolicy_Classes(t *testing.T) {
	msk := clock.Moscow()
	p := testPolicy()

	// 2024-09-02 понедельник, 2024-09-07 суббота
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"weekday before school", time.Date(2024, 9, 2, 7, 29, 59, 0, msk), ClassLong},
		{"weekday school starts", time.Date(2024, 9, 2, 7, 30, 0, 0, msk), ClassShort},
		{"weekday lessons", time.Date(2024, 9, 2, 12, 0, 0, 0, msk), ClassShort},
		{"weekday lessons end", time.Date(2024, 9, 2, 16, 30, 0, 0, msk), ClassMedium},
		{"weekday evening", time.Date(2024, 9, 2, 22, 59, 0, 0, msk), ClassMedium},
		{"weekday night", time.Date(2024, 9, 2, 23, 0, 0, 0, msk), ClassLong},
		{"saturday day", time.Date(2024, 9, 7, 12, 0, 0, 0, msk), ClassMedium},
		{"saturday morning", time.Date(2024, 9, 7, 7, 30, 0, 0, msk), ClassMedium},
		{"sunday night", time.Date(2024, 9, 8, 2, 0, 0, 0, msk), ClassLong},
		{"utc input converted", time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC), ClassShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Class(tt.at))
		})
	}
}

func TestPolicy_ConstantWithinInterval(t *testing.T) {
	msk := clock.Moscow()
	p := testPolicy()

	start := time.Date(2024, 9, 2, 7, 30, 0, 0, msk)
	end := time.Date(2024, 9, 2, 16, 30, 0, 0, msk)
	for at := start; at.Before(end); at = at.Add(7 * time.Minute) {
		assert.Equal(t, time.Minute, p.TTL(at), at.String())
	}

	assert.Equal(t, 15*time.Minute, p.TTL(end))
	assert.Equal(t, 6*time.Hour, p.TTL(time.Date(2024, 9, 3, 3, 0, 0, 0, msk)))
}
