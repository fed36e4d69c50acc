package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	kafka_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/kafka"
	memory_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/mysql"
	redis_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/redis"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/internal/logger"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

func main() {
	configPath := flag.String("c", "config/config.yaml", "config file path")
	flag.Parse()

	// 啟動用 logger，讓設定載入失敗也有輸出
	if err := logger.Initialize("info", false); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	// 1. 載入設定
	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		logger.Log.Fatalw("failed to load config", "path", *configPath, "error", err)
	}
	if err := logger.Initialize(cfg.Log.Level, cfg.Log.Development); err != nil {
		logger.Log.Fatalw("failed to init logger", "level", cfg.Log.Level, "error", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	// 2. 儲存層
	var store usecase.Store
	switch cfg.Store {
	case config.StoreMySQL:
		dbClient, err := mysql.NewClient(cfg.MySQL, mysql.WithLogger(logger.Log))
		if err != nil {
			logger.Log.Fatalw("failed to connect to mysql", "error", err)
		}
		closers = append(closers, dbClient)
		mysqlStore := mysql_adapter.NewStore(dbClient)
		if err := mysqlStore.Migrate(ctx); err != nil {
			logger.Log.Fatalw("failed to migrate schema", "error", err)
		}
		store = mysqlStore
		logger.Log.Infow("using mysql store", "host", cfg.MySQL.Host, "db", cfg.MySQL.DBName)
	default:
		walFile, err := wal.Open(cfg.WAL.Path)
		if err != nil {
			logger.Log.Fatalw("failed to open wal", "path", cfg.WAL.Path, "error", err)
		}
		memStore, err := memory_adapter.NewStore(walFile)
		if err != nil {
			logger.Log.Fatalw("failed to recover from wal", "path", cfg.WAL.Path, "error", err)
		}
		closers = append(closers, memStore)
		store = memStore
		logger.Log.Infow("using memory store", "wal", cfg.WAL.Path, "wal_bytes", walFile.Size())
	}

	// 3. 帳戶鎖
	var locker usecase.Locker
	switch cfg.Locker {
	case config.LockerRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Log.Fatalw("redis connection error", "addr", cfg.Redis.Addr, "error", err)
		}
		closers = append(closers, rdb)
		locker = redis_adapter.NewLocker(rdb, redis_adapter.WithLease(cfg.Redis.LockLease))
	default:
		locker = memory_adapter.NewLocker()
	}

	// 4. 初始化 UseCase
	opts := []usecase.Option{
		usecase.WithLockTimeout(cfg.Ledger.LockTimeout),
		usecase.WithHistoryLimit(cfg.Ledger.HistoryLimit),
		usecase.WithInterestWorkers(cfg.Ledger.InterestWorkers),
	}
	if cfg.Kafka.Enabled {
		publisher := kafka_adapter.NewPublisher(kafka_adapter.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		closers = append(closers, publisher)
		opts = append(opts, usecase.WithPublisher(publisher))
		logger.Log.Infow("publishing ledger events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	coreUseCase := usecase.NewCoreUseCase(store, locker, opts...)

	// 5. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		logger.Log.Fatalw("failed to listen", "addr", cfg.GRPC.Addr, "error", err)
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.LoggingInterceptor))
	grpc_adapter.RegisterLedgerServiceServer(s, grpc_adapter.NewGrpcServer(coreUseCase))

	go func() {
		logger.Log.Infow("starting grpc server", "addr", cfg.GRPC.Addr)
		if err := s.Serve(lis); err != nil {
			logger.Log.Errorw("grpc server stopped", "error", err)
		}
	}()

	// 6. Metrics
	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Log.Infow("starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Errorw("metrics server stopped", "error", err)
			}
		}()
	}

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Infow("shutting down server")

	s.GracefulStop()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	logger.Log.Infow("server exited")
}
