package results

import (
	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/cache"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
	"github.com/admin/tg-bots/learnify-bot/internal/services/ttl"
)

// subjectFetchLimit сколько предметов запрашивается из МЭШ одновременно
const subjectFetchLimit = 4

// Service итоги учебного периода
type Service struct {
	Mes    service.IMesAPI
	Cache  cache.Cache
	Policy *ttl.Policy
	Clock  clock.Clock
	Log    *slog.Logger
}

func New(mes service.IMesAPI, c cache.Cache, policy *ttl.Policy, clk clock.Clock, log *slog.Logger) *Service {
	return &Service{
		Mes:    mes,
		Cache:  c,
		Policy: policy,
		Clock:  clk,
		Log:    log,
	}
}

// Options параметры построения отчёта
type Options struct {
	// CacheBypass пересчитать, даже если отчёт есть в кэше
	CacheBypass bool
	// NoCache настройка use_cache выключена: кэш не читается и не пишется
	NoCache bool
	// WithRank добавить место в рейтинге класса
	WithRank bool
}
