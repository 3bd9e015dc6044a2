package main

import (
	"context"
	"errors"
	"invitation/src-server/content"
	"invitation/src-server/hub"
	"invitation/src-server/metric"
	"invitation/src-server/model"
	"invitation/src-server/route"
	"invitation/src-server/utils"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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

	// remote store, local storage keeps working when this fails
	if !as.Gateway.Initialize(as.Ctx) {
		slog.Warn("remote store unavailable, running on local storage only")
	}

	go as.Hub.Run(as.Ctx)
	go as.AdminHub.Run(as.Ctx)
	go as.LivePage.Run(as.Ctx)

	// content saved by other instances sharing the local store
	watcher := content.NewWatcher(as.Content, as.Config.GetContentPollInterval(), func(ctx context.Context) {
		overrides, _ := as.Content.Load(ctx)
		as.Hub.Broadcast(hub.MessageTypeContentUpdate, overrides)
	})
	go watcher.Run(as.Ctx)

	// remote inserts, from this and every other instance; renewed on reconnect
	feed := as.Gateway.Follow(as.Ctx, func(msg model.GuestbookMessage) {
		as.Hub.Broadcast(hub.MessageTypeGuestbookNew, msg)
		as.AdminHub.Broadcast(hub.MessageTypeGuestbookNew, msg)
	}, func(rec model.AttendeeRecord) {
		as.AdminHub.Broadcast(hub.MessageTypeRSVPNew, rec)
	})

	go metric.Init(as)

	// http server
	muxer := http.NewServeMux()
	muxer.Handle("GET /metrics", promhttp.Handler())
	route.Auth(muxer, as)
	route.Guest(muxer, as)
	route.QR(muxer, as)
	route.Admin(muxer, as)
	route.Scan(muxer, as)
	server := &http.Server{
		Addr:              ":" + as.Config.GetPort(),
		Handler:           muxer,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("cannot start HTTP server", "error", err)
			as.AppCloseSignalChan <- syscall.SIGTERM
		}
	}()

	slog.Info("app is now running, press Ctrl+C to exit", "port", as.Config.GetPort(), "remote", as.Gateway.IsConnected())

	signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-as.AppCloseSignalChan

	slog.Info("Gracefully shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Warn("can't shut the HTTP server down cleanly", "error", err)
	}
	feed.Close()
	as.GracefulShutdown()
}
