package main

import (
	"fmt"
	"os"

	"github.com/live-server/backend/internal/config"
	"github.com/live-server/backend/internal/logger"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		l, logErr := logger.New(config.LogConfig{Level: "info", Format: "console"})
		if logErr != nil {
			fmt.Fprintln(os.Stderr, err)
		} else {
			l.Error("Startup failed", zap.Error(err))
			_ = l.Sync()
		}
		os.Exit(1)
	}
}
