package utils

import (
	"context"
	"database/sql"
	"invitation/src-server/admin"
	"invitation/src-server/content"
	"invitation/src-server/guest"
	"invitation/src-server/hub"
	"invitation/src-server/model"
	"invitation/src-server/notify"
	"invitation/src-server/qr"
	"invitation/src-server/remote"
	"invitation/src-server/storage"
	"invitation/src-server/upload"
	"invitation/src-server/web"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type AppState struct {
	Config      *Config
	RawDb       *sql.DB
	BunDb       *bun.DB
	When        *when.Parser
	MetricChans *Metric

	Store    *storage.Adapter
	Gateway  *remote.Gateway
	Notifier *notify.Discord
	Uploads  upload.ObjectStore

	// guest pages
	Hub *hub.Hub
	// admin dashboards; AdminClients addresses one admin's sockets
	AdminHub     *hub.Hub
	AdminClients *hub.Group

	Sessions  *admin.Sessions
	Dashboard *admin.Dashboard
	Consoles  *admin.Consoles
	Guests    *guest.Service
	Content   *content.Engine
	LivePage  *content.LivePage
	Generator *qr.Generator
	Scanner   *qr.Scanner

	Ctx                context.Context
	cancel             context.CancelFunc
	AppCloseSignalChan chan os.Signal

	shutdownMu            sync.Mutex
	gracefulShutdownChans []*chan struct{}
}

func NewAppState() *AppState {
	as := &AppState{}
	as.Ctx, as.cancel = context.WithCancel(context.Background())
	as.AppCloseSignalChan = make(chan os.Signal, 1)
	as.MetricChans = NewMetric()

	// date parser
	as.When = when.New(nil)
	as.When.Add(en.All...)
	as.When.Add(common.All...)

	// env
	as.Config = NewConfig()

	// database
	var err error
	as.RawDb, err = sql.Open(sqliteshim.ShimName, as.Config.GetSQLitePath()+"?mode=rwc")
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}
	as.RawDb.SetMaxIdleConns(8)

	as.BunDb = bun.NewDB(as.RawDb, sqlitedialect.New())
	as.BunDb.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))

	if err := model.CreateSchema(as.Ctx, as.BunDb); err != nil {
		slog.Error("can't create database schema", "error", err)
		os.Exit(1)
	}
	if err := model.SeedAdmins(as.Ctx, as.BunDb, as.Config.GetAdminAccounts()); err != nil {
		slog.Error("can't seed admin accounts", "error", err)
		os.Exit(1)
	}

	// local store
	var backend storage.Backend = storage.NewBunBackend(as.BunDb)
	if as.Config.GetStorageDriver() == "badger" {
		if backend, err = storage.OpenBadger(as.Config.GetBadgerDir()); err != nil {
			slog.Error("can't open badger", "dir", as.Config.GetBadgerDir(), "error", err)
			os.Exit(1)
		}
	}
	as.Store = storage.NewAdapter(backend)
	as.Store.ObserveLatency(Microsec(as.MetricChans.DatabaseRead), Microsec(as.MetricChans.DatabaseWrite))

	// remote store
	as.Gateway = remote.NewGateway(as.openRemote(), as.openRealtime(), as.Config.GetRemoteTimeout())
	as.Gateway.ObserveLatency(Microsec(as.MetricChans.RemoteWrite), as.MetricChans.ObserveConnected)

	as.Notifier, err = notify.NewDiscord(as.Config.GetDiscordWebhookID(), as.Config.GetDiscordWebhookToken())
	if err != nil {
		slog.Warn("discord notifications disabled", "error", err)
		as.Notifier = &notify.Discord{}
	}
	as.Notifier.ObserveLatency(Microsec(as.MetricChans.DiscordSendMessage))

	as.Uploads = as.openUploads()

	// live views
	as.Hub = hub.New()
	as.Hub.ObserveCount(as.MetricChans.ObserveLiveClients)
	as.AdminHub = hub.New()
	as.AdminClients = hub.NewGroup()

	// domain services
	as.Guests = guest.NewService(as.Store, as.Gateway, as.Notifier)
	as.Content = content.NewEngine(as.Store, as.Gateway, as.Hub, web.IndexHTML)
	as.LivePage = content.NewLivePage(as.Content, as.Hub)
	as.Generator = qr.NewGenerator(as.Store, as.Gateway, qr.DefaultChain())
	as.Scanner = qr.NewScanner(qr.ZXingDecoder{}, as.Config.GetScanSampleInterval())
	as.Sessions = admin.NewSessions(as.BunDb, as.Store, as.Config.GetJWTSecret(), as.Config.GetSessionTTL())
	as.Dashboard = admin.NewDashboard(as.Store, as.Gateway, as.Generator)
	as.Consoles = admin.NewConsoles(as.newConsole)

	return as
}

func (as *AppState) openRemote() remote.Backend {
	dsn := as.Config.GetRemoteDSN()
	switch dsn {
	case "":
		return nil
	case "memory://":
		return remote.NewMemoryBackend()
	}
	backend, err := remote.OpenGorm(dsn)
	if err != nil {
		slog.Error("can't open remote store, running on local storage only", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(as.Ctx, as.Config.GetRemoteTimeout())
	defer cancel()
	if err := backend.Migrate(ctx); err != nil {
		slog.Warn("can't migrate remote schema", "error", err)
	}
	return backend
}

func (as *AppState) openRealtime() remote.Realtime {
	if addr := as.Config.GetRedisAddr(); addr != "" {
		return remote.NewRedisRealtime(addr, as.Config.GetRedisPassword())
	}
	return remote.NewMemoryRealtime()
}

func (as *AppState) openUploads() upload.ObjectStore {
	if endpoint := as.Config.GetMinioEndpoint(); endpoint != "" {
		store, err := upload.NewMinioStore(endpoint, as.Config.GetMinioAccessKey(), as.Config.GetMinioSecretKey(), as.Config.GetMinioBucket(), as.Config.GetMinioUseSSL())
		if err == nil {
			return store
		}
		slog.Warn("can't reach minio, storing uploads on disk", "error", err)
	}
	store, err := upload.NewFileStore(as.Config.GetUploadDir())
	if err != nil {
		slog.Error("can't create upload dir", "error", err)
		os.Exit(1)
	}
	return store
}

func (as *AppState) newConsole(adminID string) *admin.Console {
	desk := qr.NewDesk(as.Store, as.Gateway)
	return admin.NewConsole(adminID, admin.ConsoleOptions{
		Loaders:         as.Dashboard.Loaders(desk, as.Content),
		Desk:            desk,
		Scanner:         as.Scanner,
		RefreshInterval: as.Config.GetDashboardRefreshInterval(),
		OnRefresh: func(section admin.Section, data any) {
			as.AdminClients.Send(adminID, hub.MessageTypeStatsUpdate, map[string]any{
				"section": section,
				"data":    data,
			})
		},
	})
}

// CreateGracefulShutdownChan returns a channel closed by GracefulShutdown.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	ch := make(chan struct{})
	as.shutdownMu.Lock()
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, &ch)
	as.shutdownMu.Unlock()
	return &ch
}

// GracefulShutdown stops every background loop, then closes the stores.
func (as *AppState) GracefulShutdown() {
	as.shutdownMu.Lock()
	for _, ch := range as.gracefulShutdownChans {
		close(*ch)
	}
	as.gracefulShutdownChans = nil
	as.shutdownMu.Unlock()

	as.Consoles.Close()
	as.cancel()
	// let metric goroutines unregister before the stores go away
	time.Sleep(100 * time.Millisecond)

	if err := as.Gateway.Close(); err != nil {
		slog.Warn("can't close remote gateway", "error", err)
	}
	if err := as.Store.Close(); err != nil {
		slog.Error("can't close local store", "error", err)
	}
	if err := as.BunDb.Close(); err != nil {
		slog.Error("can't close database", "error", err)
	}
}
