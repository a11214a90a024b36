package app

import (
	"context"

	"eyeshield/config"
	"eyeshield/internal/database"
	"eyeshield/internal/events"
	"eyeshield/internal/handlers/middleware"
	"eyeshield/internal/logger"
	"eyeshield/internal/repositories"
	"eyeshield/internal/services"
	"eyeshield/internal/websockets"

	recordsController "eyeshield/internal/controllers/records"
	screeningController "eyeshield/internal/controllers/screening"
	usersController "eyeshield/internal/controllers/users"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	EventBus   *events.EventBus
	Config     config.Config

	// Services
	TransactionService        *services.TransactionService
	RecordNotificationService *services.RecordNotificationService

	// Repositories
	ScreeningRecordRepo repositories.ScreeningRecordRepository
	PatientSequenceRepo repositories.PatientSequenceRepository
	UserRepo            repositories.UserRepository

	// Controllers
	RecordStore         *recordsController.RecordStore
	ScreeningController *screeningController.ScreeningController
	UsersController     *usersController.UsersController
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	logger.Init(config.GeneralEnvironment, config.LogLevel)

	return NewWithConfig(config)
}

// NewWithConfig wires every component from config and loads the record
// view. A load failure is fatal; serving an empty view would hide records.
func NewWithConfig(config config.Config) (*App, error) {
	log := logger.New("app").Function("NewWithConfig")

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events, config)

	// Initialize services
	transactionService := services.NewTransactionService(db)
	recordNotificationService := services.NewRecordNotificationService(eventBus)

	// Initialize repositories
	screeningRecordRepo := repositories.NewScreeningRecord(db)
	patientSequenceRepo := repositories.NewPatientSequence(db, transactionService)
	userRepo := repositories.NewUser(db)

	// Initialize controllers with repositories and services
	middleware := middleware.New(config)
	recordStore := recordsController.New(screeningRecordRepo, recordNotificationService)
	screeningController := screeningController.New(
		recordStore,
		patientSequenceRepo,
		screeningController.StubAnalyzer{},
		config,
	)
	usersController := usersController.New(userRepo)

	websocket, err := websockets.New(eventBus, recordStore, config)
	if err != nil {
		_ = db.Close()
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	app := &App{
		Database:                  db,
		Config:                    config,
		Middleware:                middleware,
		TransactionService:        transactionService,
		RecordNotificationService: recordNotificationService,
		ScreeningRecordRepo:       screeningRecordRepo,
		PatientSequenceRepo:       patientSequenceRepo,
		UserRepo:                  userRepo,
		RecordStore:               recordStore,
		ScreeningController:       screeningController,
		UsersController:           usersController,
		Websocket:                 websocket,
		EventBus:                  eventBus,
	}

	if err := app.validate(); err != nil {
		_ = app.Close()
		return &App{}, log.Err("failed to validate app", err)
	}

	if _, err := recordStore.LoadAll(context.Background()); err != nil {
		_ = app.Close()
		return &App{}, log.Err("failed to load screening records", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Websocket,
		a.EventBus,
		a.TransactionService,
		a.RecordNotificationService,
		a.ScreeningRecordRepo,
		a.PatientSequenceRepo,
		a.UserRepo,
		a.RecordStore,
		a.ScreeningController,
		a.UsersController,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.Websocket != nil {
		a.Websocket.Close()
	}

	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
