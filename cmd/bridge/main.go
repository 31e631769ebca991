package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/openterm/pinpad-bridge/internal/api/rest"
	"github.com/openterm/pinpad-bridge/internal/api/websocket"
	"github.com/openterm/pinpad-bridge/internal/auth"
	"github.com/openterm/pinpad-bridge/internal/bridge"
	"github.com/openterm/pinpad-bridge/internal/config"
	"github.com/openterm/pinpad-bridge/internal/profile"
	"github.com/openterm/pinpad-bridge/internal/terminal"
	"github.com/openterm/pinpad-bridge/internal/transport"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Config loaded successfully")

	loader, err := profile.NewLoader(cfg.Profiles.SearchPaths)
	if err != nil {
		logger.Fatal("Failed to create profile loader", zap.Error(err))
	}

	var activeProf *profile.Profile
	if cfg.Profiles.Active != "" {
		activeProf, err = loader.Load(cfg.Profiles.Active)
		if err != nil {
			logger.Fatal("Failed to load terminal profile", zap.Error(err))
		}
		logger.Info("Terminal profile loaded",
			zap.String("vendor", activeProf.Vendor),
			zap.String("model", activeProf.Model))
	}

	pinpad := transport.NewTCP(logger, cfg.Terminal.Addr(), cfg.Terminal.DialTimeout)
	if err := pinpad.Connect(); err != nil {
		logger.Fatal("Failed to connect to PIN pad", zap.Error(err))
	}
	defer pinpad.Close()

	executor := terminal.NewExecutor(logger, pinpad)
	manager := terminal.NewManager(logger, executor, cfg.Terminal.Wire())

	authService := auth.NewService(logger, cfg.Auth.PairingKey(), cfg.Auth.JWTSecret(), cfg.Auth.SessionTTL)

	wsHub := websocket.NewHub(logger, authService)
	go wsHub.Run()

	forwarder := bridge.NewForwarder(logger, wsHub)
	manager.RegisterListener(forwarder, forwarder)
	manager.SetStateObserver(forwarder.ObserveState())
	defer manager.ClearTransactionListener()

	server := rest.NewServer(cfg, manager, activeProf, logger, wsHub, authService)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start REST server", zap.Error(err))
	}

	logger.Info("pinpad-bridge started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		os.Exit(1)
	}

	wsHub.Stop()

	logger.Info("pinpad-bridge stopped successfully")
}
