package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"masochat/masochat/config"
	"masochat/masochat/controllers"
	"masochat/masochat/routes"
	"masochat/masochat/services/llm"
	"masochat/masochat/utils/logging"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	if err := logging.InitLogger(cfg.LogDir); err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer logging.Sync()

	streamer, err := llm.NewStreamer(cfg)
	if err != nil {
		logging.ErrorLogger.Error("llm provider error", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	chatCtrl := controllers.NewChatController(streamer, cfg.LLMModel)
	healthCtrl := controllers.NewHealthController(cfg.LLMProvider, chatCtrl.Model())

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           routes.NewRouter(chatCtrl, healthCtrl),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.AppLogger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("provider", cfg.LLMProvider),
			zap.String("model", cfg.LLMModel),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
			fmt.Fprintln(os.Stderr, "server listen error:", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
