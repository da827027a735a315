package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"

	server "github.com/admin/tg-bots/learnify-bot/internal/adapters/primary/http"
	adminController "github.com/admin/tg-bots/learnify-bot/internal/adapters/primary/http/controllers/admin"
	alerterController "github.com/admin/tg-bots/learnify-bot/internal/adapters/primary/http/controllers/alerter"
	healthcheckController "github.com/admin/tg-bots/learnify-bot/internal/adapters/primary/http/controllers/healthcheck"
	telegramController "github.com/admin/tg-bots/learnify-bot/internal/adapters/primary/http/controllers/telegram"
	kafkaConsumerAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/primary/kafka"
	aiAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/ai"
	alerterAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/alerter"
	kafkaAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/kafka"
	mesAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/mes"
	"github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/storage/redis"
	"github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/storage/s3"
	tgAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/queue"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/repository"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
	authRepo "github.com/admin/tg-bots/learnify-bot/internal/repository/auth"
	catalogRepo "github.com/admin/tg-bots/learnify-bot/internal/repository/catalog"
	eventRepo "github.com/admin/tg-bots/learnify-bot/internal/repository/event"
	gdzRepo "github.com/admin/tg-bots/learnify-bot/internal/repository/gdz"
	notificationRepo "github.com/admin/tg-bots/learnify-bot/internal/repository/notification"
	paymentRepo "github.com/admin/tg-bots/learnify-bot/internal/repository/payment"
	premiumRepo "github.com/admin/tg-bots/learnify-bot/internal/repository/premium"
	settingsRepo "github.com/admin/tg-bots/learnify-bot/internal/repository/settings"
	userRepo "github.com/admin/tg-bots/learnify-bot/internal/repository/user"
	alerterService "github.com/admin/tg-bots/learnify-bot/internal/services/alerter"
	"github.com/admin/tg-bots/learnify-bot/internal/services/invalidation"
	jobScheduler "github.com/admin/tg-bots/learnify-bot/internal/services/jobs"
	telegramService "github.com/admin/tg-bots/learnify-bot/internal/services/telegram"
	"github.com/admin/tg-bots/learnify-bot/internal/services/ttl"
	authUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/auth"
	birthdayUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/birthday"
	catalogUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/catalog"
	eventsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/events"
	paymentUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/payment"
	resultsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/results"
	textbooksUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/textbooks"
	tokensUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/tokens"
	viewsUsecase "github.com/admin/tg-bots/learnify-bot/internal/usecases/views"
)

type Dependencies struct {
	DB                 *sqlx.DB
	Cache              *redisAdapter.Client
	HTTPServer         *http.Server
	TelegramClient     *tgAdapter.Client
	TelegramPoller     *tgAdapter.Poller
	TelegramService    *telegramService.Service
	Tokens             *tokensUsecase.Service
	Catalog            *catalogUsecase.Service
	FollowUps          *inmemory.FollowUps
	InvalidationWorker *invalidation.Worker
	KafkaProducers     map[string]*kafkaAdapter.Producer
	KafkaConsumers     map[string]*kafkaConsumerAdapter.Consumer
	JobScheduler       *jobScheduler.Scheduler
}

// initDependencies инициализирует все зависимости приложения
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	db, err := a.initPostgres()
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	repos := a.initRepositories(db)

	cacheClient, err := a.initRedis()
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	blob, err := a.initBlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to init s3: %w", err)
	}

	tgClient := tgAdapter.NewClient(a.Cfg.Telegram, a.Log)
	if err := a.registerBotCommands(ctx, tgClient); err != nil {
		a.Log.Warn("failed to register bot commands", "error", err)
	}

	alerter := alerterService.New(
		alerterAdapter.NewClient(a.Cfg.Alerter, tgClient, a.Log),
		alerterService.DefaultWindow,
		a.Clock,
		a.Log,
	)
	scheduler := jobScheduler.NewScheduler(a.Log, alerter, a.Clock)

	worker, producers, consumers := a.initInvalidation(cacheClient)

	uc := a.initUseCases(repos, cacheClient, blob, tgClient, alerter, scheduler, worker)

	followUps := inmemory.NewFollowUps()
	tgService := telegramService.New(
		tgClient,
		telegramService.Usecases{
			Auth:      uc.Auth,
			Tokens:    uc.Tokens,
			Views:     uc.Views,
			Results:   uc.Results,
			Events:    uc.Events,
			Payment:   uc.Payment,
			Textbooks: uc.Textbooks,
		},
		repos.User,
		repos.Settings,
		cacheClient,
		followUps,
		telegramService.Options{
			ChannelID: a.Cfg.Bot.ChannelID,
			AdminIDs:  a.Cfg.Bot.AdminIDs,
		},
		a.Clock,
		a.Log,
	)

	if err := a.registerJobs(scheduler, repos, uc, tgClient); err != nil {
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	httpServer := a.initHTTP(db, cacheClient, tgService, alerter, uc, scheduler)

	var poller *tgAdapter.Poller
	if a.Cfg.Telegram.UseWebhook {
		if err := a.setupWebhook(ctx, tgClient); err != nil {
			return nil, fmt.Errorf("failed to setup webhook: %w", err)
		}
	} else {
		a.Log.Warn("polling mode enabled - this should only be used for local development")
		poller = tgAdapter.NewPoller(tgClient, a.Cfg.Telegram, tgService.HandleUpdate, a.Log)
	}

	return &Dependencies{
		DB:                 db,
		Cache:              cacheClient,
		HTTPServer:         httpServer,
		TelegramClient:     tgClient,
		TelegramPoller:     poller,
		TelegramService:    tgService,
		Tokens:             uc.Tokens,
		Catalog:            uc.Catalog,
		FollowUps:          followUps,
		InvalidationWorker: worker,
		KafkaProducers:     producers,
		KafkaConsumers:     consumers,
		JobScheduler:       scheduler,
	}, nil
}

// repositories содержит инициализированные репозитории
type repositories struct {
	User         repository.IUserRepo
	Auth         repository.IAuthRepo
	Settings     repository.ISettingsRepo
	Event        repository.IEventRepo
	Notification repository.INotificationRepo
	Textbook     repository.ITextbookRepo
	Catalog      repository.ICatalogRepo
	Payment      repository.IPaymentRepo
	Premium      repository.IPremiumRepo
}

// initRepositories инициализирует репозитории для работы с БД
func (a *App) initRepositories(db *sqlx.DB) *repositories {
	persistenceLayer := pg.NewDB(db)
	return &repositories{
		User:         userRepo.New(persistenceLayer, a.Log),
		Auth:         authRepo.New(persistenceLayer, a.Log),
		Settings:     settingsRepo.New(persistenceLayer, a.Log),
		Event:        eventRepo.New(persistenceLayer, a.Log),
		Notification: notificationRepo.New(persistenceLayer, a.Log),
		Textbook:     gdzRepo.New(persistenceLayer, a.Log),
		Catalog:      catalogRepo.New(persistenceLayer, a.Log),
		Payment:      paymentRepo.New(persistenceLayer, a.Log),
		Premium:      premiumRepo.New(persistenceLayer, a.Log),
	}
}

// useCases содержит сценарии бота
type useCases struct {
	Auth      *authUsecase.Service
	Tokens    *tokensUsecase.Service
	Views     *viewsUsecase.Service
	Results   *resultsUsecase.Service
	Events    *eventsUsecase.Service
	Payment   *paymentUsecase.Service
	Textbooks *textbooksUsecase.Service
	Catalog   *catalogUsecase.Service
	Birthday  *birthdayUsecase.Service
}

// initUseCases инициализирует UseCases приложения
func (a *App) initUseCases(
	repos *repositories,
	cacheClient *redisAdapter.Client,
	blob *s3.Client,
	tgClient *tgAdapter.Client,
	alerter service.IAlerterService,
	scheduler *jobScheduler.Scheduler,
	invalidations queue.IInvalidationQueue,
) *useCases {
	mes := mesAdapter.NewClient(a.Cfg.Mes, a.Log)
	policy := ttl.NewPolicy(a.Cfg.Cache, domain.MesLocation)

	tokens := tokensUsecase.New(a.Cfg.Tokens, repos.User, repos.Auth, mes, scheduler, tgClient, a.Clock, a.Log)

	// без ключа поздравления собираются по шаблону
	var ai service.IAIProvider
	if a.Cfg.AI.Enabled() {
		ai = aiAdapter.NewClient(a.Cfg.AI, a.Log)
	} else {
		a.Log.Info("ai provider is not configured, birthday greetings use template")
	}

	return &useCases{
		Auth:      authUsecase.New(mes, repos.User, repos.Auth, repos.Settings, cacheClient, tokens, a.Clock, a.Log),
		Tokens:    tokens,
		Views:     viewsUsecase.New(mes, cacheClient, repos.Settings, policy, a.Clock, a.Log),
		Results:   resultsUsecase.New(mes, cacheClient, policy, a.Clock, a.Log),
		Events:    eventsUsecase.New(repos.Event, repos.Notification, repos.Settings, mes, invalidations, a.Clock, a.Log),
		Payment:   a.initPayment(tgClient, repos, alerter),
		Textbooks: textbooksUsecase.New(repos.Textbook, blob, a.Cfg.Bot.BookLinkTTL, a.Log),
		Catalog:   catalogUsecase.New(repos.Catalog, repos.Premium, a.Log),
		Birthday:  birthdayUsecase.New(repos.User, ai, tgClient, a.Clock, a.Log),
	}
}

// initInvalidation локальная очередь сброса кэша. С kafka конфигом "invalidations"
// очередь публикует задачи в топик, а применяет их consumer group
func (a *App) initInvalidation(cacheClient *redisAdapter.Client) (
	*invalidation.Worker,
	map[string]*kafkaAdapter.Producer,
	map[string]*kafkaConsumerAdapter.Consumer,
) {
	producers := make(map[string]*kafkaAdapter.Producer)
	consumers := make(map[string]*kafkaConsumerAdapter.Consumer)

	invalidator := invalidation.NewInvalidator(cacheClient, a.Log)
	var applier invalidation.Applier = invalidator

	for _, kafkaCfg := range a.Cfg.Kafka.List {
		if kafkaCfg.Config == nil {
			continue
		}
		if kafkaCfg.Name != kafkaAdapter.TopicInvalidations {
			a.Log.Warn("unknown kafka config, skipping", "name", kafkaCfg.Name)
			continue
		}

		if kafkaCfg.Config.Topic != "" {
			prod, err := kafkaAdapter.NewProducer(kafkaCfg.Config, a.Log)
			if err != nil {
				a.Log.Warn("failed to create kafka producer, invalidations stay local", "error", err, "name", kafkaCfg.Name)
			} else {
				producers[kafkaCfg.Name] = prod
				applier = invalidation.ApplierFunc(prod.PublishInvalidation)
			}
		}

		if kafkaCfg.Config.ConsumerGroup != "" {
			consumer, err := kafkaConsumerAdapter.NewConsumer(kafkaCfg.Config, invalidator, a.Log)
			if err != nil {
				a.Log.Warn("failed to create kafka consumer", "error", err, "name", kafkaCfg.Name)
				continue
			}
			consumers[kafkaCfg.Name] = consumer
		}
	}

	return invalidation.NewWorker(applier, a.Cfg.Bot.InvalidationQueueSize, a.Log), producers, consumers
}

// registerJobs регистрирует периодические задачи. Обновления токенов добавляются
// отдельно из tokens.RestoreOnStartup и после каждого входа
func (a *App) registerJobs(
	scheduler *jobScheduler.Scheduler,
	repos *repositories,
	uc *useCases,
	tgClient *tgAdapter.Client,
) error {
	list := []jobScheduler.Job{
		jobScheduler.NewNotificationsChecker(repos.User, uc.Events, uc.Tokens, tgClient, a.Cfg.Telegram.SendRate, a.Clock, a.Log),
		jobScheduler.NewReplacementsChecker(repos.User, uc.Events, a.Log),
		jobScheduler.NewBirthdayChecker(uc.Birthday, a.Log),
		jobScheduler.NewSubscriptionExpirer(uc.Payment),
	}
	if days := a.Cfg.Bot.EventsRetentionDays; days > 0 {
		list = append(list, jobScheduler.NewEventsPruner(uc.Events, days, a.Log))
	}

	if err := scheduler.Register(list...); err != nil {
		return err
	}
	for _, j := range list {
		a.Log.Info("job registered", "name", j.Name())
	}
	return nil
}

// initHTTP инициализирует HTTP сервер и контроллеры
func (a *App) initHTTP(
	db *sqlx.DB,
	cacheClient *redisAdapter.Client,
	tgService *telegramService.Service,
	alerter service.IAlerterService,
	uc *useCases,
	scheduler *jobScheduler.Scheduler,
) *http.Server {
	checks := map[string]healthcheckController.Pinger{
		"postgres": healthcheckController.PingFunc(db.PingContext),
		"redis":    cacheClient,
	}

	controllers := []server.Controller{
		healthcheckController.New(checks, a.Log),
		telegramController.New(tgService, a.Cfg.Telegram.WebhookSecret, a.Log),
		alerterController.New(alerter, a.Log),
		adminController.New(uc.Payment, scheduler, uc.Catalog, a.Cfg.Bot.CatalogPath, a.Cfg.Bot.AdminToken, a.Log),
	}

	return server.NewHTTPServer(a.Cfg.Server, a.Log, controllers...)
}

// setupWebhook устанавливает webhook бота
func (a *App) setupWebhook(ctx context.Context, client *tgAdapter.Client) error {
	webhookURL := fmt.Sprintf("%s/webhook/", a.Cfg.Telegram.WebhookURL)

	if err := client.SetWebhook(ctx, webhookURL, a.Cfg.Telegram.WebhookSecret); err != nil {
		a.Log.Error("failed to set webhook", "error", err, "webhook_url", webhookURL)
		return err
	}

	a.Log.Info("webhook set successfully", "webhook_url", webhookURL)
	return nil
}

// registerBotCommands регистрирует команды бота в Telegram
func (a *App) registerBotCommands(ctx context.Context, client *tgAdapter.Client) error {
	commands := []tgAdapter.BotCommand{
		{Command: "start", Description: "Начать работу с ботом"},
		{Command: "homework", Description: "Домашнее задание"},
		{Command: "schedule", Description: "Расписание"},
		{Command: "marks", Description: "Оценки"},
		{Command: "visits", Description: "Посещения за неделю"},
		{Command: "results", Description: "Итоги периода"},
		{Command: "notifications", Description: "Новые уведомления"},
		{Command: "subjects", Description: "Решебники и учебники"},
		{Command: "settings", Description: "Настройки"},
		{Command: "premium", Description: "Премиум подписка"},
		{Command: "balance", Description: "Баланс звёзд"},
		{Command: "login", Description: "Войти в МЭШ"},
		{Command: "logout", Description: "Выйти"},
		{Command: "help", Description: "Показать справку"},
	}

	return client.SetMyCommands(ctx, commands)
}

// initPostgres инициализирует подключение к PostgreSQL и запускает миграции
func (a *App) initPostgres() (*sqlx.DB, error) {
	db, err := a.Cfg.Postgres.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	a.Log.Info("postgres connected successfully")

	if !a.Cfg.Bot.UseMigrations {
		a.Log.Info("migrations disabled")
		return db, nil
	}

	if err := pg.RunMigrations(db, a.Log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func (a *App) initRedis() (*redisAdapter.Client, error) {
	client, err := a.Cfg.Redis.NewConnection()
	if err != nil {
		return nil, err
	}
	a.Log.Info("redis connected successfully", "host", a.Cfg.Redis.Host)
	return redisAdapter.NewClient(client), nil
}

func (a *App) initBlobStore() (*s3.Client, error) {
	client, err := a.Cfg.S3.NewClient()
	if err != nil {
		return nil, err
	}
	a.Log.Info("s3 connected successfully", "host", a.Cfg.S3.Host, "bucket", a.Cfg.S3.Bucket)
	return s3.NewClient(client, a.Cfg.S3.Bucket, a.Log), nil
}
