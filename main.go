package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calstore/src-server/metric"
	"calstore/src-server/route"
	"calstore/src-server/scheduler"
	"calstore/src-server/utils"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Info(err.Error())
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func main() {
	as := utils.NewAppState()

	// touch the store once so the seed document exists before any request
	collection, err := as.Store.Load()
	if err != nil {
		slog.Error("can't initialize event store", "error", err)
		os.Exit(1)
	}
	slog.Info("event store ready",
		"file", as.Config.GetDataFile(),
		"events", len(collection.Events),
		"lastUpdated", collection.LastUpdated,
	)

	metric.Init(as)
	scheduler.Backup(as)

	// http server
	go func() {
		muxer := http.NewServeMux()
		muxer.Handle("GET /metrics", promhttp.Handler())
		route.Events(muxer, as)
		route.Ical(muxer, as)
		handler := route.CORS(as, route.Logging(muxer))
		if err := http.ListenAndServe(":"+as.Config.GetPort(), handler); err != nil {
			slog.Error("cannot start HTTP server", "error", err)
			as.AppCloseSignalChan <- syscall.SIGTERM
		}
	}()

	slog.Info("app is now running, press Ctrl+C to exit", "port", as.Config.GetPort())

	signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-as.AppCloseSignalChan
	as.GracefulShutdown()

	slog.Info("Gracefully shutting down...")
}
