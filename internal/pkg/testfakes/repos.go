package testfakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
)

// Users IUserRepo, IAuthRepo и ISettingsRepo в одном хранилище
type Users struct {
	mu       sync.Mutex
	Users    map[int64]*domain.User
	Auth     map[int64]*domain.AuthData
	Settings map[int64]*domain.Settings
	Txs      int
}

func NewUsers() *Users {
	return &Users{
		Users:    make(map[int64]*domain.User),
		Auth:     make(map[int64]*domain.AuthData),
		Settings: make(map[int64]*domain.Settings),
	}
}

func (r *Users) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.Users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *Users) Upsert(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.Users[user.UserID] = &cp
	return nil
}

func (r *Users) UpsertTx(ctx context.Context, tx persistence.Querier, user *domain.User) error {
	return r.Upsert(ctx, user)
}

func (r *Users) list(active bool) []domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.Users))
	for _, u := range r.Users {
		if active && !u.Active {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (r *Users) ListAll(ctx context.Context) ([]domain.User, error) {
	return r.list(false), nil
}

func (r *Users) ListActive(ctx context.Context) ([]domain.User, error) {
	return r.list(true), nil
}

func (r *Users) SetActive(ctx context.Context, userID int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.Users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Active = active
	return nil
}

func (r *Users) Delete(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Users, userID)
	delete(r.Auth, userID)
	delete(r.Settings, userID)
	return nil
}

func (r *Users) UpdateTokenTx(ctx context.Context, tx persistence.Querier, userID int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.Users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Token = token
	return nil
}

func (r *Users) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	r.mu.Lock()
	r.Txs++
	r.mu.Unlock()
	return withTx(ctx, fn)
}

// AuthRepo вид на Users как IAuthRepo
func (r *Users) AuthRepo() *AuthRepo { return &AuthRepo{r} }

// SettingsRepo вид на Users как ISettingsRepo
func (r *Users) SettingsRepo() *SettingsRepo { return &SettingsRepo{r} }

type AuthRepo struct{ u *Users }

func (a *AuthRepo) Get(ctx context.Context, userID int64) (*domain.AuthData, error) {
	a.u.mu.Lock()
	defer a.u.mu.Unlock()
	d, ok := a.u.Auth[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (a *AuthRepo) ListByMethod(ctx context.Context, method domain.AuthMethod) ([]domain.AuthData, error) {
	a.u.mu.Lock()
	defer a.u.mu.Unlock()
	var out []domain.AuthData
	for _, d := range a.u.Auth {
		if d.AuthMethod == method {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (a *AuthRepo) UpsertTx(ctx context.Context, tx persistence.Querier, auth *domain.AuthData) error {
	a.u.mu.Lock()
	defer a.u.mu.Unlock()
	cp := *auth
	a.u.Auth[auth.UserID] = &cp
	return nil
}

func (a *AuthRepo) UpdateRefreshTx(ctx context.Context, tx persistence.Querier, userID int64, refreshToken string, expiredAt time.Time) error {
	a.u.mu.Lock()
	defer a.u.mu.Unlock()
	d, ok := a.u.Auth[userID]
	if !ok {
		return domain.ErrNotFound
	}
	d.TokenForRefresh = &refreshToken
	d.TokenExpiredAt = expiredAt
	return nil
}

type SettingsRepo struct{ u *Users }

func (s *SettingsRepo) Get(ctx context.Context, userID int64) (*domain.Settings, error) {
	s.u.mu.Lock()
	defer s.u.mu.Unlock()
	st, ok := s.u.Settings[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *SettingsRepo) Update(ctx context.Context, settings *domain.Settings) error {
	s.u.mu.Lock()
	defer s.u.mu.Unlock()
	cp := *settings
	s.u.Settings[settings.UserID] = &cp
	return nil
}

func (s *SettingsRepo) CreateDefaultTx(ctx context.Context, tx persistence.Querier, userID int64) error {
	s.u.mu.Lock()
	defer s.u.mu.Unlock()
	if _, ok := s.u.Settings[userID]; !ok {
		s.u.Settings[userID] = domain.DefaultSettings(userID)
	}
	return nil
}

// Events IEventRepo с уникальным ключом как в events_dedup_key
type Events struct {
	mu     sync.Mutex
	rows   []domain.Event
	nextID int64
}

func NewEvents() *Events { return &Events{} }

type eventKey struct {
	student int64
	key     domain.DedupKey
}

func (r *Events) ListByStudent(ctx context.Context, studentID int64) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.rows {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *Events) InsertBatchTx(ctx context.Context, tx persistence.Querier, events []domain.Event) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[eventKey]bool, len(r.rows))
	for _, e := range r.rows {
		seen[eventKey{e.StudentID, e.Key()}] = true
	}
	var inserted []domain.Event
	for _, e := range events {
		k := eventKey{e.StudentID, e.Key()}
		if seen[k] {
			continue
		}
		seen[k] = true
		r.nextID++
		e.ID = r.nextID
		e.Date = domain.CanonicalDate(e.Date)
		e.CreatedAt = time.Now()
		r.rows = append(r.rows, e)
		inserted = append(inserted, e)
	}
	return inserted, nil
}

func (r *Events) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	var deleted int64
	for _, e := range r.rows {
		if e.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.rows = kept
	return deleted, nil
}

func (r *Events) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return withTx(ctx, fn)
}

func (r *Events) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// Notifications INotificationRepo
type Notifications struct {
	mu     sync.Mutex
	Rows   []domain.BotNotification
	nextID int64
}

func NewNotifications() *Notifications { return &Notifications{} }

func (r *Notifications) Create(ctx context.Context, n *domain.BotNotification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.DedupKey != "" {
		for _, row := range r.Rows {
			if row.UserID == n.UserID && row.Type == n.Type && row.DedupKey == n.DedupKey {
				return false, nil
			}
		}
	}
	r.nextID++
	n.ID = r.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.Rows = append(r.Rows, *n)
	return true, nil
}

func (r *Notifications) ListPending(ctx context.Context, userID int64) ([]domain.BotNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.BotNotification
	for _, n := range r.Rows {
		if n.UserID == userID && n.SentAt == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *Notifications) MarkSent(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.Rows {
		if r.Rows[i].ID == id && r.Rows[i].SentAt == nil {
			sent := at
			r.Rows[i].SentAt = &sent
		}
	}
	return nil
}

func (r *Notifications) DeleteOlderThan(ctx context.Context, userID int64, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.Rows[:0]
	var deleted int64
	for _, n := range r.Rows {
		if n.UserID == userID && n.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	r.Rows = kept
	return deleted, nil
}

// Premium IPremiumRepo и IPaymentRepo
type Premium struct {
	mu            sync.Mutex
	Plans         map[string]*domain.PremiumSubscriptionPlan
	Subscriptions map[int64]*domain.PremiumSubscription
	Transactions  []domain.Transaction
	Payments      map[uuid.UUID]*domain.Payment
	// FailGrant ошибка на UpsertSubscriptionTx для проверки автоматического возврата
	FailGrant error
}

func NewPremium() *Premium {
	return &Premium{
		Plans:         make(map[string]*domain.PremiumSubscriptionPlan),
		Subscriptions: make(map[int64]*domain.PremiumSubscription),
		Payments:      make(map[uuid.UUID]*domain.Payment),
	}
}

func (r *Premium) GetPlan(ctx context.Context, id string) (*domain.PremiumSubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *Premium) ListPlans(ctx context.Context) ([]domain.PremiumSubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PremiumSubscriptionPlan, 0, len(r.Plans))
	for _, p := range r.Plans {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (r *Premium) UpsertPlan(ctx context.Context, plan *domain.PremiumSubscriptionPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *plan
	r.Plans[plan.ID] = &cp
	return nil
}

func (r *Premium) GetSubscription(ctx context.Context, userID int64) (*domain.PremiumSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.Subscriptions[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *Premium) GetSubscriptionTx(ctx context.Context, tx persistence.Querier, userID int64) (*domain.PremiumSubscription, error) {
	return r.GetSubscription(ctx, userID)
}

func (r *Premium) UpsertSubscriptionTx(ctx context.Context, tx persistence.Querier, sub *domain.PremiumSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailGrant != nil {
		return r.FailGrant
	}
	cp := *sub
	r.Subscriptions[sub.UserID] = &cp
	return nil
}

func (r *Premium) DeactivateExpired(ctx context.Context, now time.Time) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for id, s := range r.Subscriptions {
		if s.IsActive && !s.ExpiresAt.After(now) {
			s.IsActive = false
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *Premium) Balance(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b int64
	for _, t := range r.Transactions {
		if t.UserID != userID {
			continue
		}
		if t.Type == domain.TransactionCredit {
			b += t.Amount
		} else {
			b -= t.Amount
		}
	}
	return b, nil
}

func (r *Premium) BalanceTx(ctx context.Context, tx persistence.Querier, userID int64) (int64, error) {
	return r.Balance(ctx, userID)
}

func (r *Premium) AddTransactionTx(ctx context.Context, tx persistence.Querier, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Transactions = append(r.Transactions, *t)
	return nil
}

// WithTransaction при ошибке fn откатывает журнал, подписки и платежи
func (r *Premium) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	r.mu.Lock()
	transactions := append([]domain.Transaction(nil), r.Transactions...)
	subscriptions := make(map[int64]domain.PremiumSubscription, len(r.Subscriptions))
	for k, v := range r.Subscriptions {
		subscriptions[k] = *v
	}
	payments := make(map[uuid.UUID]domain.Payment, len(r.Payments))
	for k, v := range r.Payments {
		payments[k] = *v
	}
	r.mu.Unlock()

	if err := withTx(ctx, fn); err != nil {
		r.mu.Lock()
		r.Transactions = transactions
		r.Subscriptions = make(map[int64]*domain.PremiumSubscription, len(subscriptions))
		for k, v := range subscriptions {
			v := v
			r.Subscriptions[k] = &v
		}
		r.Payments = make(map[uuid.UUID]*domain.Payment, len(payments))
		for k, v := range payments {
			v := v
			r.Payments[k] = &v
		}
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *Premium) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *payment
	r.Payments[payment.ID] = &cp
	return nil
}

func (r *Premium) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *Premium) GetByChargeID(ctx context.Context, chargeID string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Payments {
		if p.TelegramPaymentChargeID != nil && *p.TelegramPaymentChargeID == chargeID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *Premium) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, at time.Time, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	switch status {
	case domain.PaymentStatusSucceeded:
		p.SucceededAt = &at
	case domain.PaymentStatusFailed:
		p.FailedAt = &at
	}
	if errorMessage != nil {
		p.ErrorMessage = errorMessage
	}
	return nil
}

func (r *Premium) MarkSucceededTx(ctx context.Context, tx persistence.Querier, id uuid.UUID, chargeID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != domain.PaymentStatusPending {
		return &domain.PaymentDisputeError{Reason: "payment is not pending"}
	}
	p.Status = domain.PaymentStatusSucceeded
	p.TelegramPaymentChargeID = &chargeID
	p.SucceededAt = &at
	return nil
}
