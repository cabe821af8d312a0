package client

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ConnectivitySignal delivers a tick whenever the network comes back after
// being down. The retry sweep consumes it, so tests can drive reconnects
// without a real network stack.
type ConnectivitySignal interface {
	Online() <-chan struct{}
}

const DefaultProbeInterval = 10 * time.Second

// Prober derives connectivity from the server health endpoint: it probes on
// an interval and emits on each offline-to-online transition.
type Prober struct {
	healthURL  string
	interval   time.Duration
	httpClient *http.Client
	online     chan struct{}
	wasOnline  bool
}

func NewProber(healthURL string, interval time.Duration, httpClient *http.Client) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Prober{
		healthURL:  healthURL,
		interval:   interval,
		httpClient: httpClient,
		online:     make(chan struct{}, 1),
		wasOnline:  true,
	}
}

func (p *Prober) Online() <-chan struct{} {
	return p.online
}

// Run probes until the context is cancelled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL, nil)
	if err != nil {
		return
	}

	resp, err := p.httpClient.Do(req)
	nowOnline := err == nil && resp.StatusCode < http.StatusInternalServerError
	if resp != nil {
		resp.Body.Close()
	}

	if nowOnline && !p.wasOnline {
		slog.Info("connectivity restored", "component", "prober")
		select {
		case p.online <- struct{}{}:
		default:
		}
	}
	p.wasOnline = nowOnline
}
