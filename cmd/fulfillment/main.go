package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jcmexdev/order-fulfillment/internal/httpx"
	"github.com/jcmexdev/order-fulfillment/internal/inventory"
	invmemory "github.com/jcmexdev/order-fulfillment/internal/inventory/memory"
	invredis "github.com/jcmexdev/order-fulfillment/internal/inventory/redis"
	ordersqlite "github.com/jcmexdev/order-fulfillment/internal/order/sqlite"
	"github.com/jcmexdev/order-fulfillment/internal/pkg/telemetry"
	"github.com/jcmexdev/order-fulfillment/internal/saga"
	sagalogsqlite "github.com/jcmexdev/order-fulfillment/internal/saga/sagalog/sqlite"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "fulfillment"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	// Inventory store: Redis when configured, in-memory otherwise so the
	// binary runs standalone.
	var invStore inventory.Store
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		invStore = invredis.NewStore(addr)
		slog.Info("using redis inventory store", "addr", addr)
	} else {
		invStore = invmemory.NewStore()
		slog.Warn("REDIS_ADDR not set, using in-memory inventory store")
	}

	orderStore, err := ordersqlite.Open(getEnv("ORDERS_DB", "./data/orders.db"))
	if err != nil {
		slog.Error("failed to open order store", "error", err)
		os.Exit(1)
	}
	defer orderStore.Close()

	sagaLog, err := sagalogsqlite.Open(getEnv("SAGALOG_DB", "./data/sagalog.db"))
	if err != nil {
		slog.Error("failed to open saga log", "error", err)
		os.Exit(1)
	}
	defer sagaLog.Close()

	orch := saga.NewOrchestrator(invStore, orderStore,
		saga.WithSagaLog(sagaLog),
		saga.WithCallTimeout(getEnvDuration("SAGA_CALL_TIMEOUT", 5*time.Second)),
		saga.WithFanoutLimit(getEnvInt64("SAGA_FANOUT_LIMIT", 16)),
		saga.WithReservationMode(reservationMode()),
	)

	handler := httpx.NewHandler(orch, invStore, orderStore)
	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8080"),
		Handler: httpx.NewRouter(handler),
	}

	go func() {
		slog.Info("fulfillment service running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
}

func reservationMode() saga.ReservationMode {
	if getEnv("SAGA_RESERVATION_MODE", "conditional") == string(saga.ModeUnconditional) {
		return saga.ModeUnconditional
	}
	return saga.ModeConditional
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("invalid duration, using fallback", "key", key, "value", value)
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
			return n
		}
		slog.Warn("invalid integer, using fallback", "key", key, "value", value)
	}
	return fallback
}
