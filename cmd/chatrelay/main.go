package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viabilitychat/chatrelay/internal/config"
	"github.com/viabilitychat/chatrelay/internal/logger"
	"github.com/viabilitychat/chatrelay/internal/logger/zap"
	"github.com/viabilitychat/chatrelay/internal/provider/openrouter"
	"github.com/viabilitychat/chatrelay/internal/server/web/relay"
	"github.com/viabilitychat/chatrelay/internal/telemetry"
)

func main() {
	modePtr := flag.String("m", "dev", "select the mode that chatrelay runs in")
	flag.Parse()

	log := zap.NewLogger(*modePtr)
	var lg logger.Logger = log.Sugar()
	defer log.Sync()

	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.ParseEnvVariables()
	if err != nil {
		lg.Fatalf("cannot parse environment variables: %v", err)
	}

	if len(cfg.OpenRouterKey) == 0 {
		lg.Warnf("OPENROUTER_API_KEY is not set, every chat request will fail with a configuration error")
	}

	pc, err := telemetry.Init(cfg)
	if err != nil {
		lg.Fatalf("cannot initialize telemetry: %v", err)
	}

	var metrics http.Handler
	if pc != nil {
		metrics = pc.Handler()
	}

	otelShutdown, err := telemetry.SetupOTelSDK(context.Background(), cfg)
	if err != nil {
		lg.Fatalf("cannot set up open telemetry: %v", err)
	}

	tc, err := openrouter.NewTokenCounter()
	if err != nil {
		lg.Fatalf("error creating token counter: %v", err)
	}

	client := openrouter.NewClient(relay.NewProviderHttpClient(), cfg)

	rs, err := relay.NewRelayServer(log, *modePtr, cfg, client, tc, metrics)
	if err != nil {
		lg.Fatalf("error creating relay http server: %v", err)
	}

	rs.Run()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Infof("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rs.Shutdown(ctx); err != nil {
		lg.Debugf("relay server shutdown: %v", err)
	}

	if err := otelShutdown(ctx); err != nil {
		lg.Debugf("open telemetry shutdown: %v", err)
	}

	lg.Infof("server exited")
}
