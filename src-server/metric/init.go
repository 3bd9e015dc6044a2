package metric

import (
	"errors"
	"invitation/src-server/utils"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func register(name, help string) prometheus.Gauge {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	if err := prometheus.Register(gauge); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
				gauge = existing
			}
		} else {
			slog.Error("can't register metric", "name", name, "error", err)
		}
	}
	slog.Debug("metric registered", "name", name)
	gauge.Set(0)
	return gauge
}

func unregister(name string, gauge prometheus.Gauge) {
	switch prometheus.Unregister(gauge) {
	case true:
		slog.Debug("metric unregistered", "name", name)
	case false:
		slog.Warn("metric not registered", "name", name)
	}
}

// polled samples fn on every tick.
func polled(as *utils.AppState, name, help string, tickerInterval time.Duration, fn func() (float64, error)) {
	gauge := register(name, help)
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(name, gauge)
				return
			case <-ticker.C:
				v, err := fn()
				if err != nil {
					slog.Error("can't sample metric", "name", name, "error", err)
					continue
				}
				gauge.Set(v)
			}
		}
	}()
}

// fed sets the gauge from ch. Latency gauges fall back to 0 when no sample
// arrived for clearInterval; state gauges pass 0 to keep their value.
func fed(as *utils.AppState, name, help string, ch <-chan float64, clearInterval time.Duration) {
	gauge := register(name, help)
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		var clearC <-chan time.Time
		var clearTicker *time.Ticker
		if clearInterval > 0 {
			clearTicker = time.NewTicker(clearInterval)
			defer clearTicker.Stop()
			clearC = clearTicker.C
		}
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(name, gauge)
				return
			case v := <-ch:
				gauge.Set(v)
				if clearTicker != nil {
					clearTicker.Reset(clearInterval)
				}
			case <-clearC:
				gauge.Set(0)
			}
		}
	}()
}

func Init(as *utils.AppState) {
	tickerInterval := as.Config.GetMetricCollectionInterval()
	clearTickerInterval := tickerInterval * 2

	polled(as, "invitation_admin_lookup_microsec", "The latency of an admin account lookup in microseconds", tickerInterval, func() (float64, error) {
		latency, _, err := AdminLookup(as.Ctx, as.BunDb)
		return float64(latency.Microseconds()), err
	})
	polled(as, "invitation_admin_accounts", "Admin accounts able to sign in", tickerInterval, func() (float64, error) {
		_, n, err := AdminLookup(as.Ctx, as.BunDb)
		return float64(n), err
	})
	fed(as, "invitation_database_read_microsec", "The latency of a local store read in microseconds", as.MetricChans.DatabaseRead, clearTickerInterval)
	fed(as, "invitation_database_write_microsec", "The latency of a local store write in microseconds", as.MetricChans.DatabaseWrite, clearTickerInterval)
	fed(as, "invitation_remote_write_microsec", "The latency of a remote store write in microseconds", as.MetricChans.RemoteWrite, clearTickerInterval)
	fed(as, "invitation_discord_send_message_microsec", "The latency of a discord webhook call in microseconds", as.MetricChans.DiscordSendMessage, clearTickerInterval)
	fed(as, "invitation_remote_connected", "1 while the remote store is reachable", as.MetricChans.RemoteConnected, 0)
	fed(as, "invitation_live_clients", "Open guest page websockets", as.MetricChans.LiveClients, 0)
}
