package ttl

import (
	"time"
)

type Config struct {
	Short  time.Duration `envconfig:"TTL_SHORT" default:"60s"`
	Medium time.Duration `envconfig:"TTL_MEDIUM" default:"15m"`
	Long   time.Duration `envconfig:"TTL_LONG" default:"6h"`
}

// Классы ttl
const (
	ClassShort  = "short"
	ClassMedium = "medium"
	ClassLong   = "long"
)

const (
	dayStart   = 7*60 + 30  // 07:30
	lessonsEnd = 16*60 + 30 // 16:30
	eveningEnd = 23 * 60    // 23:00
)

// Policy время жизни кэша зависит от местного времени: днём в будни данные
// меняются чаще всего, ночью почти никогда
type Policy struct {
	Short    time.Duration
	Medium   time.Duration
	Long     time.Duration
	Location *time.Location
}

func NewPolicy(cfg *Config, loc *time.Location) *Policy {
	return &Policy{
		Short:    cfg.Short,
		Medium:   cfg.Medium,
		Long:     cfg.Long,
		Location: loc,
	}
}

// Class будни 07:30-16:30 short, будни 16:30-23:00 и выходные 07:30-23:00 medium, иначе long
func (p *Policy) Class(now time.Time) string {
	local := now
	if p.Location != nil {
		local = now.In(p.Location)
	}
	minute := local.Hour()*60 + local.Minute()
	weekend := local.Weekday() == time.Saturday || local.Weekday() == time.Sunday

	switch {
	case minute < dayStart || minute >= eveningEnd:
		return ClassLong
	case !weekend && minute < lessonsEnd:
		return ClassShort
	default:
		return ClassMedium
	}
}

func (p *Policy) TTL(now time.Time) time.Duration {
	switch p.Class(now) {
	case ClassShort:
		return p.Short
	case ClassMedium:
		return p.Medium
	default:
		return p.Long
	}
}
