package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTriggers(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		moscow = time.FixedZone("MSK", 3*60*60)
	}
	now := time.Date(2024, 9, 2, 12, 0, 0, 0, moscow)

	t.Run("date fires once", func(t *testing.T) {
		tr := DateTrigger{At: now.Add(-time.Minute)}
		assert.Equal(t, now.Add(-time.Minute), tr.NextRun(time.Time{}, now))
		assert.True(t, tr.NextRun(now, now).IsZero())
	})

	t.Run("interval coalesces missed ticks", func(t *testing.T) {
		tr := IntervalTrigger{Every: time.Minute}
		assert.Equal(t, now.Add(time.Minute), tr.NextRun(time.Time{}, now))
		assert.Equal(t, now.Add(time.Minute), tr.NextRun(now, now.Add(30*time.Second)))
		assert.Equal(t, now.Add(10*time.Minute), tr.NextRun(now, now.Add(10*time.Minute)))
	})

	t.Run("daily at 10:00", func(t *testing.T) {
		tr := DailyTrigger{Hour: 10, Minute: 0, Location: moscow}
		assert.Equal(t, time.Date(2024, 9, 3, 10, 0, 0, 0, moscow), tr.NextRun(time.Time{}, now))

		morning := time.Date(2024, 9, 2, 9, 0, 0, 0, moscow)
		assert.Equal(t, time.Date(2024, 9, 2, 10, 0, 0, 0, moscow), tr.NextRun(time.Time{}, morning))

		fired := time.Date(2024, 9, 2, 10, 0, 0, 0, moscow)
		assert.Equal(t, time.Date(2024, 9, 3, 10, 0, 0, 0, moscow), tr.NextRun(fired, fired))
	})
}
