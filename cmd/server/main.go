package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/commerce-hub/internal/adapter/handler"
	"github.com/rl1809/commerce-hub/internal/adapter/messaging"
	"github.com/rl1809/commerce-hub/internal/adapter/storage"
	"github.com/rl1809/commerce-hub/internal/config"
	"github.com/rl1809/commerce-hub/internal/core/service"
	"github.com/rl1809/commerce-hub/internal/logging"
)

func main() {
	cfg := config.Load()

	logger := logging.New()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.MySQLMaxOpen)
	db.SetMaxIdleConns(cfg.MySQLMaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: cfg.RedisPoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters
	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	publisher := messaging.NewKafkaPublisher(cfg.KafkaBrokers)

	// Services
	orderService := service.NewOrderService(mysqlAdapter, mysqlAdapter, publisher, logger)
	productService := service.NewProductService(mysqlAdapter, logger)

	// HTTP server
	httpHandler := handler.NewHTTPHandler(orderService, productService, redisAdapter, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Routes(),
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	if err := publisher.Close(); err != nil {
		logger.Error("failed to close kafka writer", zap.Error(err))
	}
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}
