package telegram

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/clock"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/cache"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	authUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/auth"
	eventsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/events"
	paymentUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/payment"
	resultsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/results"
	textbooksUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/textbooks"
	tokensUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/tokens"
	viewsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/views"
)

// DialogTTL сколько бот ждёт ответа на свой вопрос
const DialogTTL = 10 * time.Minute

// Bot методы Bot API, которые нужны роутеру
type Bot interface {
	SendMessage(ctx context.Context, msg domain.OutgoingMessage) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *domain.Keyboard) error
	AnswerCallbackQuery(ctx context.Context, callbackID string, text string, showAlert bool) error
	DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, int64, error)
	IsChannelMember(ctx context.Context, channelID string, userID int64) (bool, error)
}

// Options ограничения доступа к боту
type Options struct {
	// ChannelID канал с обязательной подпиской, пусто если проверка выключена
	ChannelID string
	// AdminIDs telegram id администраторов
	AdminIDs []int64
}

// Service роутинг обновлений Telegram в usecase
type Service struct {
	Bot          Bot
	Auth         *authUsecase.Service
	Tokens       *tokensUsecase.Service
	Views        *viewsUsecase.Service
	Results      *resultsUsecase.Service
	Events       *eventsUsecase.Service
	Payment      *paymentUsecase.Service
	Textbooks    *textbooksUsecase.Service
	UserRepo     repository.IUserRepo
	SettingsRepo repository.ISettingsRepo
	Dialogs      cache.Cache
	FollowUps    *inmemory.FollowUps
	Options      Options
	Clock        clock.Clock
	Log          *slog.Logger
}

// Usecases сценарии, в которые роутятся обновления
type Usecases struct {
	Auth      *authUsecase.Service
	Tokens    *tokensUsecase.Service
	Views     *viewsUsecase.Service
	Results   *resultsUsecase.Service
	Events    *eventsUsecase.Service
	Payment   *paymentUsecase.Service
	Textbooks *textbooksUsecase.Service
}

func New(
	bot Bot,
	uc Usecases,
	userRepo repository.IUserRepo,
	settingsRepo repository.ISettingsRepo,
	dialogs cache.Cache,
	followUps *inmemory.FollowUps,
	opts Options,
	clk clock.Clock,
	log *slog.Logger,
) *Service {
	return &Service{
		Bot:          bot,
		Auth:         uc.Auth,
		Tokens:       uc.Tokens,
		Views:        uc.Views,
		Results:      uc.Results,
		Events:       uc.Events,
		Payment:      uc.Payment,
		Textbooks:    uc.Textbooks,
		UserRepo:     userRepo,
		SettingsRepo: settingsRepo,
		Dialogs:      dialogs,
		FollowUps:    followUps,
		Options:      opts,
		Clock:        clk,
		Log:          log,
	}
}
