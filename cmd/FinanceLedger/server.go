package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/auth"
	database "github.com/sebuszqo/FinanceLedger/internal/db"
	"github.com/sebuszqo/FinanceLedger/internal/email"
	"github.com/sebuszqo/FinanceLedger/internal/finance/application"
	"github.com/sebuszqo/FinanceLedger/internal/finance/infrastructure"
	"github.com/sebuszqo/FinanceLedger/internal/finance/interfaces"
	"github.com/sebuszqo/FinanceLedger/internal/logger"
	"github.com/sebuszqo/FinanceLedger/internal/user"
)

const shutdownTimeout = 10 * time.Second

type Response struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, details ...[]string) {
	payload := map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	}
	if len(details) > 0 && len(details[0]) > 0 {
		payload["errors"] = details[0]
	}
	respondJSON(w, status, payload)
}

type Server struct {
	router *http.ServeMux
	db     *database.DBService

	authHandler        *auth.Handler
	userHandler        *user.Handler
	authService        auth.Service
	categoryHandler    *interfaces.CategoryHandler
	currencyHandler    *interfaces.CurrencyHandler
	accountHandler     *interfaces.AccountHandler
	transactionHandler *interfaces.TransactionHandler
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	stats := s.db.Health(ctx)
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, stats)
}

func (s *Server) RegisterRoutes() {
	protect := s.authService.JWTAccessTokenMiddleware()

	// Public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("POST /api/register", http.HandlerFunc(s.userHandler.HandleRegister))
	publicRoutes.Handle("POST /api/verify-email", http.HandlerFunc(s.userHandler.HandleVerifyEmail))
	publicRoutes.Handle("POST /api/verify-email/resend", http.HandlerFunc(s.userHandler.HandleResendVerificationEmail))
	publicRoutes.Handle("POST /api/auth/login", http.HandlerFunc(s.authHandler.HandleLogin))
	publicRoutes.Handle("POST /api/auth/2fa/verify", http.HandlerFunc(s.authHandler.HandleVerifyTwoFactor))
	publicRoutes.Handle("POST /api/auth/logout", http.HandlerFunc(s.authHandler.HandleLogout))
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))
	publicRoutes.Handle("GET /api/health", http.HandlerFunc(s.handleHealth))

	// Protected routes (using JWT Access Token Middleware)
	protectedRoutes := http.NewServeMux()
	protectedRoutes.Handle("GET /api/protected/profile", protect(http.HandlerFunc(s.userHandler.HandleGetUserProfile)))
	protectedRoutes.Handle("PUT /api/protected/profile", protect(http.HandlerFunc(s.userHandler.HandleUpdateUserProfile)))
	protectedRoutes.Handle("DELETE /api/protected/profile", protect(http.HandlerFunc(s.userHandler.HandleDeleteUser)))
	protectedRoutes.Handle("POST /api/protected/change-password", protect(http.HandlerFunc(s.userHandler.HandleChangePassword)))

	protectedRoutes.Handle("POST /api/protected/2fa/register", protect(http.HandlerFunc(s.authHandler.HandleRegisterTwoFactor)))
	protectedRoutes.Handle("POST /api/protected/2fa/confirm", protect(http.HandlerFunc(s.authHandler.HandleConfirmTwoFactor)))
	protectedRoutes.Handle("DELETE /api/protected/2fa", protect(http.HandlerFunc(s.authHandler.HandleDisableTwoFactor)))

	// CATEGORIES API
	protectedRoutes.Handle("GET /api/protected/categories", protect(http.HandlerFunc(s.categoryHandler.GetCategories)))
	protectedRoutes.Handle("POST /api/protected/categories", protect(http.HandlerFunc(s.categoryHandler.CreateCategory)))
	protectedRoutes.Handle("PUT /api/protected/categories/{id}", protect(http.HandlerFunc(s.categoryHandler.RenameCategory)))
	protectedRoutes.Handle("DELETE /api/protected/categories/{id}", protect(http.HandlerFunc(s.categoryHandler.DeleteCategory)))

	// CURRENCIES API
	protectedRoutes.Handle("GET /api/protected/currencies", protect(http.HandlerFunc(s.currencyHandler.GetCurrencies)))
	protectedRoutes.Handle("POST /api/protected/currencies", protect(http.HandlerFunc(s.currencyHandler.CreateCurrency)))
	protectedRoutes.Handle("PUT /api/protected/currencies/{id}", protect(http.HandlerFunc(s.currencyHandler.RenameCurrency)))
	protectedRoutes.Handle("DELETE /api/protected/currencies/{id}", protect(http.HandlerFunc(s.currencyHandler.DeleteCurrency)))

	// ACCOUNTS API
	protectedRoutes.Handle("GET /api/protected/accounts", protect(http.HandlerFunc(s.accountHandler.GetAccounts)))
	protectedRoutes.Handle("POST /api/protected/accounts", protect(http.HandlerFunc(s.accountHandler.CreateAccount)))
	protectedRoutes.Handle("GET /api/protected/accounts/{id}", protect(http.HandlerFunc(s.accountHandler.GetAccount)))
	protectedRoutes.Handle("PUT /api/protected/accounts/{id}", protect(http.HandlerFunc(s.accountHandler.UpdateAccount)))
	protectedRoutes.Handle("DELETE /api/protected/accounts/{id}", protect(http.HandlerFunc(s.accountHandler.DeleteAccount)))

	// TRANSACTIONS API
	protectedRoutes.Handle("GET /api/protected/transactions", protect(http.HandlerFunc(s.transactionHandler.GetUserTransactions)))
	protectedRoutes.Handle("POST /api/protected/transactions", protect(http.HandlerFunc(s.transactionHandler.CreateTransaction)))
	protectedRoutes.Handle("POST /api/protected/transactions/bulk", protect(http.HandlerFunc(s.transactionHandler.CreateTransactionsBulk)))
	protectedRoutes.Handle("GET /api/protected/transactions/summary", protect(http.HandlerFunc(s.transactionHandler.GetTransactionSummary)))
	protectedRoutes.Handle("GET /api/protected/transactions/summary/categories", protect(http.HandlerFunc(s.transactionHandler.GetTransactionSummaryByCategory)))
	protectedRoutes.Handle("GET /api/protected/transactions/{id}", protect(http.HandlerFunc(s.transactionHandler.GetTransaction)))
	protectedRoutes.Handle("PUT /api/protected/transactions/{id}", protect(http.HandlerFunc(s.transactionHandler.UpdateTransaction)))
	protectedRoutes.Handle("DELETE /api/protected/transactions/{id}", protect(http.HandlerFunc(s.transactionHandler.DeleteTransaction)))

	// Refresh token routes
	refreshTokenRoutes := http.NewServeMux()
	refreshTokenRoutes.Handle("PUT /api/refresh/token", s.authService.JWTRefreshTokenMiddleware()(http.HandlerFunc(s.authHandler.RefreshAccessToken)))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/protected/", protectedRoutes)
	mainRouter.Handle("/api/refresh/", refreshTokenRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

// newServer wires repositories, services and handlers for the HTTP API.
func newServer(a *app, mailer email.EmailSender) (*Server, *auth.SessionManager, *application.Reconciler, error) {
	db := a.db.DB
	txManager := database.NewTxManager(db, a.log)

	userService := a.userService(mailer)
	userHandler := user.NewHandler(userService, a.log.WithField("component", "user"))

	jwtManager, err := auth.NewJWTManager(a.cfg.Auth)
	if err != nil {
		return nil, nil, nil, err
	}
	sessionManager := auth.NewSessionManager(a.cfg.Auth.SessionTokenTTL)
	authService := auth.NewAuthService(
		auth.NewTwoFactorRepository(db),
		userService,
		sessionManager,
		jwtManager,
		auth.NewAuthenticator(a.cfg.Auth.TOTPIssuer),
		a.log.WithField("component", "auth"),
	)
	authHandler := auth.NewHandler(authService, a.cfg.Auth.SecureCookies, jwtManager.RefreshTTL(), a.log.WithField("component", "auth"))

	financeLog := a.log.WithField("component", "finance")
	categoryRepo := infrastructure.NewCategoryRepository(db)
	currencyRepo := infrastructure.NewCurrencyRepository(db)
	accountRepo := infrastructure.NewAccountRepository(db)
	transactionRepo := infrastructure.NewTransactionRepository(db)

	categoryService := application.NewCategoryService(categoryRepo, financeLog)
	currencyService := application.NewCurrencyService(currencyRepo, financeLog)
	accountService := application.NewAccountService(accountRepo, currencyRepo, categoryRepo, transactionRepo, txManager, financeLog)
	transactionService := application.NewTransactionService(transactionRepo, accountRepo, categoryRepo, txManager, financeLog)
	reconciler := application.NewReconciler(accountRepo, txManager, financeLog)

	server := &Server{
		router:             http.NewServeMux(),
		db:                 a.db,
		authHandler:        authHandler,
		userHandler:        userHandler,
		authService:        authService,
		categoryHandler:    interfaces.NewCategoryHandler(categoryService, respondJSON, respondError, financeLog),
		currencyHandler:    interfaces.NewCurrencyHandler(currencyService, respondJSON, respondError, financeLog),
		accountHandler:     interfaces.NewAccountHandler(accountService, respondJSON, respondError, financeLog),
		transactionHandler: interfaces.NewTransactionHandler(transactionService, respondJSON, respondError, financeLog),
	}
	server.RegisterRoutes()
	return server, sessionManager, reconciler, nil
}

type schemaMigrator interface {
	Up(ctx context.Context) error
	HasPending(ctx context.Context) (bool, error)
}

// prepareSchema applies pending migrations, or only warns about them when
// automatic migration is off.
func prepareSchema(ctx context.Context, m schemaMigrator, autoMigrate bool, log logrus.FieldLogger) error {
	if autoMigrate {
		if err := m.Up(ctx); err != nil {
			return fmt.Errorf("could not apply migrations: %w", err)
		}
		return nil
	}

	pending, err := m.HasPending(ctx)
	if err != nil {
		return fmt.Errorf("could not check migrations: %w", err)
	}
	if pending {
		log.Warn("Database schema has pending migrations, run `financeledger migrate up`")
	}
	return nil
}

func runServer(ctx context.Context, a *app) error {
	m, err := a.migrator()
	if err != nil {
		return err
	}
	if err := prepareSchema(ctx, m, a.cfg.AutoMigrate, a.log); err != nil {
		return err
	}

	mailer, err := email.NewEmailService(a.cfg.Email, a.log.WithField("component", "email"))
	if err != nil {
		return err
	}
	mailer.Start()
	defer mailer.Close()

	server, sessionManager, reconciler, err := newServer(a, mailer)
	if err != nil {
		return err
	}

	scheduler, err := StartScheduler(a.log, a.cfg.ReconcileSchedule, reconciler, sessionManager)
	if err != nil {
		a.log.WithError(err).Error("Scheduler didn't start, stopping the app ...")
		return err
	}
	defer func() {
		<-scheduler.Stop().Done()
	}()

	httpServer := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           logger.Middleware(a.log, server.router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.cfg.HTTPAddr).Info("Server starting")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
