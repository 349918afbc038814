package router

import (
	"context"
	"database/sql"
	"net/http"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/queue"
	"app/internal/repository"
	"app/internal/service"
	"app/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New opens the database, wires repositories, services and handlers, and
// returns the assembled HTTP handler together with the DB handle so the
// caller can close it on shutdown.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, *sql.DB, error) {
	db, err := repository.Open(ctx, cfg.DBConnectionString)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("Database connection established")

	store, err := storage.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	queueClient := queue.New(db)

	userRepo := repository.NewUserRepo(db)
	fileRepo := repository.NewFileRepo(db)

	userSvc := service.NewUserService(userRepo, queueClient, cfg.JobQueueName, cfg.SignupCreditGrant, logger)
	fileSvc := service.NewFileService(db, fileRepo, userRepo, store, queueClient, cfg.JobQueueName, logger)
	checkoutSvc := service.NewCheckoutService(cfg, userRepo, logger)

	userHandler := handler.NewUserHandler(userSvc, logger)
	fileHandler := handler.NewFileHandler(fileSvc, validate, logger)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc, validate, logger)

	authMw := middleware.AuthMiddleware(cfg.JWTSecret, logger)

	mux := http.NewServeMux()
	userHandler.RegisterRoutes(mux, authMw)
	fileHandler.RegisterRoutes(mux, authMw)
	checkoutHandler.RegisterRoutes(mux, authMw)

	var root http.Handler = mux
	root = middleware.LoggerMiddleware(logger)(root)
	root = cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(root)

	return root, db, nil
}
