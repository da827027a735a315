package payment

import (
	"log/slog"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	paymentPort "github.com/admin/tg-bots/learnify-bot/internal/ports/payment"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

type Service struct {
	PaymentRepo     repository.IPaymentRepo
	PremiumRepo     repository.IPremiumRepo
	UserRepo        repository.IUserRepo
	PaymentProvider paymentPort.IPaymentProvider // Telegram Stars провайдер
	Outbound        service.IOutbound
	AlerterService  service.IAlerterService
	Clock           clock.Clock
	Log             *slog.Logger
}

func New(
	paymentRepo repository.IPaymentRepo,
	premiumRepo repository.IPremiumRepo,
	userRepo repository.IUserRepo,
	paymentProvider paymentPort.IPaymentProvider,
	outbound service.IOutbound,
	alerterService service.IAlerterService,
	clk clock.Clock,
	log *slog.Logger,
) *Service {
	return &Service{
		PaymentRepo:     paymentRepo,
		PremiumRepo:     premiumRepo,
		UserRepo:        userRepo,
		PaymentProvider: paymentProvider,
		Outbound:        outbound,
		AlerterService:  alerterService,
		Clock:           clk,
		Log:             log,
	}
}

func stringPtr(s string) *string {
	return &s
}
