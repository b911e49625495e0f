package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xela07ax/netwatch-dashboard/internal/domain"
	"github.com/xela07ax/netwatch-dashboard/internal/infra"
	"github.com/xela07ax/netwatch-dashboard/internal/stream"
	"github.com/xela07ax/netwatch-dashboard/internal/web"
)

func main() {
	// 1. Инфраструктура
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Контекст жизненного цикла фоновых горутин.
	// cancel() останавливает клиента анализатора и hub: сокет закрывается,
	// отложенный реконнект не срабатывает, поздних обновлений не будет.
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Метрики
	reg := prometheus.NewRegistry()
	metrics := stream.NewMetrics(reg)

	// 2. Состояние и раздача браузерам
	state := stream.NewTelemetryState(cfg.Analyzer.WindowSize)
	hub := web.NewHub(logger)
	go hub.Run(appCtx)

	// 3. Прием телеметрии: каждое применённое обновление уходит браузерам
	client := stream.NewClient(
		cfg.Analyzer.URL,
		cfg.Analyzer.ReconnectDelay,
		state,
		metrics,
		logger,
		func(snap domain.Snapshot) { hub.Broadcast(snap) },
	)
	go client.Run(appCtx)

	// 4. HTTP Server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      web.NewServer(logger, state, hub, reg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 5. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Dashboard started on http://%s (analyzer feed: %s)", srv.Addr, cfg.Analyzer.URL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-stop // Ждем сигнал
	log.Print("Dashboard stopping...")
	cancel() // Гасим клиента и hub до остановки HTTP

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server Shutdown Failed: %+v", err)
	}
	log.Print("Dashboard exited properly")
}
