package app

import (
	starsProvider "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/payment/telegram_stars"
	tgAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
	paymentUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/payment"
)

// initPayment создаёт payment use case поверх Telegram Stars провайдера
func (a *App) initPayment(
	tgClient *tgAdapter.Client,
	repos *repositories,
	alerterSvc service.IAlerterService,
) *paymentUsecase.Service {
	paymentProvider := starsProvider.NewProvider(tgClient, a.Log)

	paymentUseCase := paymentUsecase.New(
		repos.Payment,
		repos.Premium,
		repos.User,
		paymentProvider,
		tgClient,
		alerterSvc,
		a.Clock,
		a.Log,
	)

	a.Log.Info("payment system initialized successfully")
	return paymentUseCase
}
