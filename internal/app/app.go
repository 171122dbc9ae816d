package app

import (
	"errors"

	"github.com/qs-lzh/eventpro/config"
	"github.com/qs-lzh/eventpro/internal/auth"
	"github.com/qs-lzh/eventpro/internal/cache"
	"github.com/qs-lzh/eventpro/internal/database"
	"github.com/qs-lzh/eventpro/internal/mq"
	"github.com/qs-lzh/eventpro/internal/repository"
	"github.com/qs-lzh/eventpro/internal/service/domain"
	"github.com/qs-lzh/eventpro/internal/service/workflow"
	"github.com/qs-lzh/eventpro/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config

	DB     *gorm.DB
	Cache  *cache.RedisCache
	Logger *zap.Logger
	MQConn *amqp.Connection
	Clock  util.Clock

	UserRepo        repository.UserRepo
	EventRepo       repository.EventRepo
	ReservationRepo repository.ReservationRepo

	EventService       domain.EventService
	ReservationService domain.ReservationService
	UserService        domain.UserService

	Tokens *auth.Tokens

	ReservationWorkflow  *workflow.ReservationWorkflow
	EventWorkflow        *workflow.EventWorkflow
	NotificationWorkflow *workflow.NotificationWorkflow
}

// New wires repositories, services and workflows. cache and mqConn may be nil:
// without a cache every read goes to the database, without a broker nothing
// is published.
func New(config *config.Config, db *gorm.DB, redisCache *cache.RedisCache, mqConn *amqp.Connection,
	logger *zap.Logger, clock util.Clock) *App {
	userRepo := repository.NewUserRepoGorm(db)
	eventRepo := repository.NewEventRepoGorm(db)
	reservationRepo := repository.NewReservationRepoGorm(db)

	// keep the interfaces nil rather than holding a nil pointer
	var places domain.PlacesCache
	var locker workflow.Locker
	if redisCache != nil {
		places = redisCache
		locker = redisCache
	}
	var publisher workflow.Publisher
	if mqConn != nil {
		publisher = mq.NewProducer(mqConn)
	}

	eventService := domain.NewEventService(db, eventRepo, reservationRepo, places, clock, logger)
	reservationService := domain.NewReservationService(db, reservationRepo, eventRepo, userRepo,
		util.NewCodeGenerator(), places, clock, logger)
	userService := domain.NewUserService(db, userRepo, eventRepo, reservationRepo,
		util.NewPasswordEncoder(config.BcryptCost), clock, logger)

	return &App{
		Config:               config,
		DB:                   db,
		Cache:                redisCache,
		Logger:               logger,
		MQConn:               mqConn,
		Clock:                clock,
		UserRepo:             userRepo,
		EventRepo:            eventRepo,
		ReservationRepo:      reservationRepo,
		EventService:         eventService,
		ReservationService:   reservationService,
		UserService:          userService,
		Tokens:               auth.NewTokens(config.JWTSecret, auth.TokenDuration, clock),
		ReservationWorkflow:  workflow.NewReservationWorkflow(reservationService, publisher, clock, logger),
		EventWorkflow:        workflow.NewEventWorkflow(eventService, publisher, locker, clock, logger),
		NotificationWorkflow: workflow.NewNotificationWorkflow(workflow.NewLogNotifier(logger), logger),
	}
}

// Init declares the queues and starts the notification consumers.
func (app *App) Init() error {
	if app.MQConn == nil {
		app.Logger.Warn("no message broker configured, domain messages are not published")
		return nil
	}

	// init rabbit mq
	if err := mq.InitQueues(app.MQConn); err != nil {
		return err
	}

	return app.NotificationWorkflow.Start(app.MQConn)
}

func (app *App) Close() error {
	var errs []error
	if app.MQConn != nil {
		errs = append(errs, app.MQConn.Close())
	}
	if app.Cache != nil {
		errs = append(errs, app.Cache.Close())
	}
	errs = append(errs, database.Close(app.DB))
	return errors.Join(errs...)
}
