package utils

import "time"

// Metric carries samples from the components to the metric goroutines.
// Sends never block; a sample arriving while the previous one is still
// queued is dropped.
type Metric struct {
	DatabaseRead       chan float64
	DatabaseWrite      chan float64
	RemoteWrite        chan float64
	RemoteConnected    chan float64
	LiveClients        chan float64
	DiscordSendMessage chan float64
}

func NewMetric() *Metric {
	return &Metric{
		DatabaseRead:       make(chan float64, 1),
		DatabaseWrite:      make(chan float64, 1),
		RemoteWrite:        make(chan float64, 1),
		RemoteConnected:    make(chan float64, 1),
		LiveClients:        make(chan float64, 1),
		DiscordSendMessage: make(chan float64, 1),
	}
}

func send(ch chan float64, v float64) {
	select {
	case ch <- v:
	default:
	}
}

// Microsec returns a latency hook feeding ch.
func Microsec(ch chan float64) func(time.Duration) {
	return func(d time.Duration) { send(ch, float64(d.Microseconds())) }
}

func (m *Metric) ObserveConnected(connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	send(m.RemoteConnected, v)
}

func (m *Metric) ObserveLiveClients(n int) {
	send(m.LiveClients, float64(n))
}
