package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/hexacore/hexacore/internal/config"
	"github.com/hexacore/hexacore/internal/server"
	"github.com/hexacore/hexacore/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", os.Getenv("HEXACORE_CONFIG"), "path to the server config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := telemetry.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	h, err := server.NewHandlerWithOptions(server.HandlerOptions{Config: cfg, Logger: log})
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	log.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := http.ListenAndServe(cfg.HTTP.Addr, h); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
