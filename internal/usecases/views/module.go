package views

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/cache"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
	"github.com/admin/tg-bots/learnify-bot/internal/services/ttl"
)

// MaxSkipDays сколько дней подряд проверяется при пропуске пустых
const MaxSkipDays = 14

// Direction направление навигации по дням
type Direction int

const (
	Exact Direction = iota
	Left
	Right
	Today
)

func (d Direction) step() int {
	switch d {
	case Left:
		return -1
	case Right, Today:
		return 1
	default:
		return 0
	}
}

// View готовое представление дня или недели
type View struct {
	Date  time.Time
	Text  string
	Empty bool
}

// Service представления домашки, расписания, оценок и посещений
type Service struct {
	Mes          service.IMesAPI
	Cache        cache.Cache
	SettingsRepo repository.ISettingsRepo
	Policy       *ttl.Policy
	Clock        clock.Clock
	Log          *slog.Logger
}

func New(
	mes service.IMesAPI,
	c cache.Cache,
	settingsRepo repository.ISettingsRepo,
	policy *ttl.Policy,
	clk clock.Clock,
	log *slog.Logger,
) *Service {
	return &Service{
		Mes:          mes,
		Cache:        c,
		SettingsRepo: settingsRepo,
		Policy:       policy,
		Clock:        clk,
		Log:          log,
	}
}

func (s *Service) settings(ctx context.Context, userID int64) *domain.Settings {
	st, err := s.SettingsRepo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.Log.Warn("failed to load settings, defaults used", "user_id", userID, "error", err)
		}
		return domain.DefaultSettings(userID)
	}
	return st
}

// cachedView то, что лежит в кэше под ключом представления
type cachedView struct {
	Text  string `json:"text"`
	Empty bool   `json:"empty"`
}

func (s *Service) lookup(ctx context.Context, view, key string) (*cachedView, bool) {
	cached, err := cache.GetJSON[cachedView](ctx, s.Cache, key)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues(view, "hit").Inc()
		return cached, true
	case errors.Is(err, domain.ErrCacheMiss):
		metrics.CacheLookups.WithLabelValues(view, "miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues(view, "error").Inc()
		s.Log.Warn("cache read failed", "key", key, "error", err)
	}
	return nil, false
}

func (s *Service) store(ctx context.Context, key string, v *View) {
	value := &cachedView{Text: v.Text, Empty: v.Empty}
	if err := cache.SetJSON(ctx, s.Cache, key, s.Policy.TTL(s.Clock.Now()), value); err != nil {
		s.Log.Warn("cache write failed", "key", key, "error", err)
	}
}

// loader строит текст представления из МЭШ
type loader func(ctx context.Context, day time.Time) (text string, empty bool, err error)

type probe struct {
	view   *View
	key    string
	cached bool
}

// load кэш, при промахе МЭШ. В кэш ничего не пишет
func (s *Service) load(ctx context.Context, view string, useCache bool, key string, day time.Time, fn loader) (*probe, error) {
	if useCache {
		if c, ok := s.lookup(ctx, view, key); ok {
			return &probe{view: &View{Date: day, Text: c.Text, Empty: c.Empty}, key: key, cached: true}, nil
		}
	}

	text, empty, err := fn(ctx, day)
	if err != nil {
		return nil, err
	}
	return &probe{view: &View{Date: day, Text: text, Empty: empty}, key: key}, nil
}

func (s *Service) save(ctx context.Context, useCache bool, p *probe) {
	if useCache && !p.cached {
		s.store(ctx, p.key, p.view)
	}
}

// walk идёт от start с шагом step не больше MaxSkipDays дней, пока не найдёт непустой день.
// Если все пустые, возвращается start. В кэш пишется только день, на котором остановились
func (s *Service) walk(ctx context.Context, view string, user *domain.User, useCache bool, start time.Time, step int, fn loader) (*View, error) {
	key := func(day time.Time) string { return cache.Key(view, user.UserID, domain.FormatDate(day)) }

	first, err := s.load(ctx, view, useCache, key(start), start, fn)
	if err != nil {
		return nil, err
	}
	if step == 0 || !first.view.Empty {
		s.save(ctx, useCache, first)
		return first.view, nil
	}

	for i := 1; i < MaxSkipDays; i++ {
		day := start.AddDate(0, 0, i*step)
		p, err := s.load(ctx, view, useCache, key(day), day, fn)
		if err != nil {
			return nil, err
		}
		if !p.view.Empty {
			s.save(ctx, useCache, p)
			return p.view, nil
		}
	}

	s.save(ctx, useCache, first)
	return first.view, nil
}

// today начало текущего дня в поясе МЭШ
func (s *Service) today() time.Time {
	return domain.Day(s.Clock.Now())
}

// lessonsEnded последний урок сегодня уже закончился
func (s *Service) lessonsEnded(ctx context.Context, user *domain.User) (bool, error) {
	now := s.Clock.Now()
	today := domain.Day(now)

	events, err := s.Mes.GetEvents(ctx, user.Token, user.PersonID, today, today)
	if err != nil {
		return false, err
	}

	var last time.Time
	for i := range events {
		if events[i].Cancelled {
			continue
		}
		if events[i].FinishAt.After(last) {
			last = events[i].FinishAt.Time
		}
	}
	return !last.IsZero() && last.Before(now), nil
}

// resolveStart день, с которого начинается поиск
func (s *Service) resolveStart(ctx context.Context, user *domain.User, date time.Time, dir Direction, nextDayIfEnded bool) (time.Time, error) {
	if dir != Today {
		return domain.Day(date), nil
	}

	start := s.today()
	if !nextDayIfEnded {
		return start, nil
	}
	ended, err := s.lessonsEnded(ctx, user)
	if err != nil {
		return time.Time{}, err
	}
	if ended {
		start = start.AddDate(0, 0, 1)
	}
	return start, nil
}
