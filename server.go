package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/campodata/agroledger_backend/config"
	"bitbucket.org/campodata/agroledger_backend/middlewares"
	"bitbucket.org/campodata/agroledger_backend/models"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"bitbucket.org/campodata/agroledger_backend/workflow"
	"github.com/bsm/redislock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// PubSubMessage is the push-delivery envelope Pub/Sub wraps around the
// published payload.
type PubSubMessage struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func ledgerPubSubHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var msg PubSubMessage
		logger := config.GetLogger()

		// Redis lock is a best-effort optimization.
		// Reliability must not depend on Redis: the consumer also has an
		// idempotency key per message and runs in one transaction.
		redisLock := config.GetRedisLock()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "server.go", "ledgerPubSubHandler", "io.ReadAll", nil, err)
			// Malformed request body: ack/drop to avoid infinite retries.
			c.Status(http.StatusNoContent)
			return
		}

		// byte slice unmarshalling handles base64 decoding.
		if err := json.Unmarshal(body, &msg); err != nil {
			config.LogError(logger, "server.go", "ledgerPubSubHandler", "Unmarshal body", body, err)
			c.Status(http.StatusNoContent)
			return
		}

		var event config.LedgerEvent
		if err := json.Unmarshal(msg.Message.Data, &event); err != nil {
			config.LogError(logger, "server.go", "ledgerPubSubHandler", "Unmarshal ledger event", msg.Message.Data, err)
			c.Status(http.StatusNoContent)
			return
		}

		// Basic validation to avoid retry loops on poisoned messages.
		if event.FirmId == "" || event.ReferenceType == "" {
			config.LogError(logger, "server.go", "ledgerPubSubHandler", "Invalid ledger event (missing required fields)", event, fmt.Errorf("firm_id/reference_type required"))
			c.Status(http.StatusNoContent)
			return
		}

		// Correlation ID propagation: prefer payload correlation_id; fall back to Pub/Sub message ID.
		correlationID := event.CorrelationId
		if correlationID == "" {
			correlationID = msg.Message.ID
		}

		// Best-effort: lock on the firm to avoid concurrent folding of the same
		// tenant's events. If Redis is unavailable, continue anyway.
		var lock *redislock.Lock
		if redisLock == nil {
			logger.WithFields(logrus.Fields{
				"field":          "ledgerPubSubHandler",
				"firm_id":        event.FirmId,
				"reference_type": event.ReferenceType,
				"reference_id":   event.ReferenceId,
				"message_id":     msg.Message.ID,
			}).Warn("redis lock not ready; proceeding without redis lock")
		} else {
			lock, err = redisLock.Obtain(c.Request.Context(), fmt.Sprintf("lock:%s", event.FirmId), 30*time.Second, nil)
			if err == redislock.ErrNotObtained {
				logger.WithFields(logrus.Fields{
					"field":          "ledgerPubSubHandler",
					"firm_id":        event.FirmId,
					"reference_type": event.ReferenceType,
					"reference_id":   event.ReferenceId,
					"message_id":     msg.Message.ID,
				}).Warn("could not obtain redis lock; proceeding without redis lock")
				lock = nil
			} else if err != nil {
				logger.WithFields(logrus.Fields{
					"field":          "ledgerPubSubHandler",
					"firm_id":        event.FirmId,
					"reference_type": event.ReferenceType,
					"reference_id":   event.ReferenceId,
					"message_id":     msg.Message.ID,
				}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
				lock = nil
			}
		}
		defer func() {
			if lock == nil {
				return
			}
			if releaseErr := lock.Release(c.Request.Context()); releaseErr != nil {
				logger.WithFields(logrus.Fields{
					"field":        "ledgerPubSubHandler",
					"firm_id":      event.FirmId,
					"reference_id": event.ReferenceId,
					"message_id":   msg.Message.ID,
				}).Warn("failed to release redis lock: " + releaseErr.Error())
			}
		}()

		ctx := utils.SetFirmIdInContext(c.Request.Context(), event.FirmId)
		ctx = utils.SetUserIdInContext(ctx, 0)
		ctx = utils.SetUserNameInContext(ctx, "System")
		ctx = utils.SetCorrelationIdInContext(ctx, correlationID)
		if err := workflow.ProcessLedgerEvent(ctx, event); err != nil {
			logger.WithFields(logrus.Fields{
				"field":          "ledgerPubSubHandler",
				"firm_id":        event.FirmId,
				"reference_type": event.ReferenceType,
				"reference_id":   event.ReferenceId,
				"message_id":     msg.Message.ID,
				"correlation_id": correlationID,
			}).Error("pubsub processing failed: " + err.Error())
			// Non-2xx tells Pub/Sub to retry (and potentially route to DLQ).
			c.Status(http.StatusInternalServerError)
			return
		}

		// Success: ack.
		c.Status(http.StatusNoContent)
	}
}

type outboxReplayRequest struct {
	FirmId   string `json:"firm_id"`
	RecordId int    `json:"record_id"`
}

// outboxReplayHandler resets a DEAD/FAILED outbox row so the dispatcher picks
// it up again. Ops tooling only; the route lives under /internal.
func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.FirmId == "" || req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "firm_id and record_id are required"})
			return
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		now := time.Now().UTC()
		if err := db.WithContext(c.Request.Context()).
			Model(&models.LedgerEventRecord{}).
			Where("id = ? AND firm_id = ?", req.RecordId, req.FirmId).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusFailed,
				"next_attempt_at":    &now,
				"locked_at":          nil,
				"locked_by":          nil,
				"last_publish_error": nil,
			}).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"firm_id":         req.FirmId,
			"record_id":       req.RecordId,
			"publish_status":  models.OutboxPublishStatusFailed,
			"next_attempt_at": now.Format(time.RFC3339Nano),
		})
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that accumulated gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func registerAPIRoutes(api *gin.RouterGroup) {
	expenses := api.Group("/expenses")
	{
		expenses.POST("", createExpenseHandler())
		expenses.GET("", listExpensesHandler())
		expenses.GET("/:id", getExpenseHandler())
		expenses.PUT("/:id", updateExpenseHandler())
		expenses.DELETE("/:id", deleteExpenseHandler())
		expenses.POST("/:id/confirm", confirmExpenseHandler())
		expenses.POST("/:id/cancel", cancelExpenseHandler())
		expenses.POST("/:id/payments", applyExpensePaymentHandler())
		expenses.GET("/:id/payments", listExpensePaymentsHandler())
	}

	incomes := api.Group("/incomes")
	{
		incomes.POST("", createIncomeHandler())
		incomes.GET("", listIncomesHandler())
		incomes.GET("/:id", getIncomeHandler())
		incomes.PUT("/:id", updateIncomeHandler())
		incomes.DELETE("/:id", deleteIncomeHandler())
		incomes.POST("/:id/confirm", confirmIncomeHandler())
		incomes.POST("/:id/cancel", cancelIncomeHandler())
		incomes.POST("/:id/collections", applyIncomeCollectionHandler())
		incomes.GET("/:id/collections", listIncomeCollectionsHandler())
	}

	api.POST("/payment-terms/preview", paymentTermsPreviewHandler())

	orders := api.Group("/payment-orders")
	{
		orders.POST("", createPaymentOrderHandler())
		orders.GET("", listPaymentOrdersHandler())
		orders.GET("/:id", getPaymentOrderHandler())
		orders.POST("/:id/approve", approvePaymentOrderHandler())
		orders.POST("/:id/cancel", cancelPaymentOrderHandler())
		orders.POST("/:id/execute", executePaymentOrderHandler())
	}

	accounts := api.Group("/accounts")
	{
		accounts.POST("", createAccountHandler())
		accounts.GET("", listAccountsHandler())
		accounts.GET("/:id", getAccountHandler())
		accounts.PUT("/:id", updateAccountHandler())
		accounts.POST("/:id/deactivate", deactivateAccountHandler())
		accounts.POST("/:id/adjustments", adjustAccountHandler())
		accounts.GET("/:id/daily-balances", listDailyBalancesHandler())
		accounts.POST("/:id/daily-balances/rebuild", rebuildDailyBalancesHandler())
	}

	alerts := api.Group("/alerts")
	{
		alerts.GET("", listAlertsHandler())
		alerts.POST("/:id/resolve", resolveAlertHandler())
		alerts.POST("/:id/dismiss", dismissAlertHandler())
		alerts.POST("/sweep", runAlertSweepHandler())
	}

	providers := api.Group("/providers")
	{
		providers.POST("", createProviderHandler())
		providers.GET("", listProvidersHandler())
		providers.GET("/outstanding", listProviderOutstandingHandler())
		providers.GET("/:id", getProviderHandler())
		providers.PUT("/:id", updateProviderHandler())
		providers.DELETE("/:id", deleteProviderHandler())
	}

	clients := api.Group("/clients")
	{
		clients.POST("", createClientHandler())
		clients.GET("", listClientsHandler())
		clients.GET("/outstanding", listClientOutstandingHandler())
		clients.GET("/:id", getClientHandler())
		clients.PUT("/:id", updateClientHandler())
		clients.DELETE("/:id", deleteClientHandler())
	}

	currencies := api.Group("/currencies")
	{
		currencies.POST("", createCurrencyHandler())
		currencies.GET("", listCurrenciesHandler())
		currencies.PUT("/:id", updateCurrencyHandler())
	}

	personnel := api.Group("/personnel")
	{
		personnel.POST("", createPersonnelHandler())
		personnel.GET("", listPersonnelHandler())
		personnel.GET("/:id", getPersonnelHandler())
		personnel.PUT("/:id", updatePersonnelHandler())
		personnel.POST("/:id/deactivate", deactivatePersonnelHandler())
	}

	paddocks := api.Group("/paddocks")
	{
		paddocks.POST("", createPaddockHandler())
		paddocks.GET("", listPaddocksHandler())
		paddocks.GET("/:id", getPaddockHandler())
		paddocks.PUT("/:id", updatePaddockHandler())
	}

	rainfall := api.Group("/rainfall-records")
	{
		rainfall.POST("", createRainfallHandler())
		rainfall.GET("", listRainfallHandler())
		rainfall.GET("/monthly", monthlyRainfallHandler())
		rainfall.PUT("/:id", updateRainfallHandler())
		rainfall.DELETE("/:id", deleteRainfallHandler())
	}

	soilSamples := api.Group("/soil-samples")
	{
		soilSamples.POST("", createSoilSampleHandler())
		soilSamples.GET("", listSoilSamplesHandler())
		soilSamples.GET("/:id", getSoilSampleHandler())
	}

	pasture := api.Group("/pasture-measurements")
	{
		pasture.POST("", createPastureMeasurementHandler())
		pasture.GET("", listPastureMeasurementsHandler())
		pasture.DELETE("/:id", deletePastureMeasurementHandler())
	}

	purchaseOrders := api.Group("/purchase-orders")
	{
		purchaseOrders.POST("", createPurchaseOrderHandler())
		purchaseOrders.GET("", listPurchaseOrdersHandler())
		purchaseOrders.GET("/:id", getPurchaseOrderHandler())
		purchaseOrders.POST("/:id/transition", transitionPurchaseOrderHandler())
	}

	remittances := api.Group("/remittances")
	{
		remittances.POST("", createRemittanceHandler())
		remittances.GET("", listRemittancesHandler())
		remittances.GET("/:id", getRemittanceHandler())
		remittances.DELETE("/:id", deleteRemittanceHandler())
	}

	api.POST("/documents/:referenceType/:referenceId", attachDocumentHandler())
	api.DELETE("/documents/:id", deleteDocumentHandler())
	api.POST("/upload", uploadFileHandler())
	api.GET("/history/:referenceType/:referenceId", listHistoryHandler())

	reportsGroup := api.Group("/reports")
	{
		reportsGroup.GET("/payable-aging", payableAgingHandler())
		reportsGroup.GET("/receivable-aging", receivableAgingHandler())
		reportsGroup.GET("/cash-position", cashPositionHandler())
		reportsGroup.GET("/outstanding-balances.xlsx", exportOutstandingHandler())
	}
}

func rebuildDailyBalancesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		firmId, _ := utils.GetFirmIdFromContext(c.Request.Context())
		if err := models.RebuildDailyBalances(c.Request.Context(), firmId, id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("firm-id", "user-id", "user-name", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "x-correlation-id")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/pubsub", ledgerPubSubHandler())
	// Ops tooling: replay outbox messages that were marked DEAD/FAILED.
	r.POST("/internal/ops/outbox/replay", outboxReplayHandler())

	r.POST("/firms", createFirmHandler())
	r.GET("/firms/:id", getFirmHandler())
	r.PUT("/firms/:id", updateFirmHandler())

	api := r.Group("/api", middlewares.FirmMiddleware())
	registerAPIRoutes(api)

	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow disabling migrations on
	// startup and running them as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while draining.
	cancelDispatcher()

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
