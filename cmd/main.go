package main

import (
	"fmt"
	"os"

	"github.com/tokenmesh/marketplace-backend/internal/app"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	application, err := app.New(log)
	if err != nil {
		log.Error("App init failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	log.Info("Server listening", "port", application.Cfg.Port)
	if err := application.Run(); err != nil {
		log.Error("Server failed", "error", err)
	}
}
