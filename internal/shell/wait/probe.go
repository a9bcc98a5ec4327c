package wait

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/artpar/swarmup/internal/core/stack"
	"github.com/hashicorp/go-cleanhttp"
)

// ProberConfig configures a Prober.
type ProberConfig struct {
	// VerifyTLS enables certificate verification. The proxy serves its
	// default certificate until ACME issuance completes.
	// Default: false.
	VerifyTLS bool

	// RequestTimeout bounds a single request.
	// Default: 10 seconds.
	RequestTimeout time.Duration
}

// Prober polls HTTPS endpoints until they answer with an expected status.
type Prober struct {
	client *http.Client
	sleep  SleepFunc
	logger *slog.Logger
}

// NewProber creates a Prober backed by a pooled cleanhttp client.
func NewProber(config ProberConfig, logger *slog.Logger) *Prober {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := cleanhttp.DefaultPooledClient()
	client.Timeout = config.RequestTimeout
	if transport, ok := client.Transport.(*http.Transport); ok {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: !config.VerifyTLS, //nolint:gosec // see ProberConfig.VerifyTLS
		}
	}

	return &Prober{
		client: client,
		sleep:  Sleep,
		logger: logger.With("component", "prober"),
	}
}

// Probe reports whether check.URL answered with check.ExpectedStatus within
// check.Attempts tries. Transport errors and other statuses mean "not ready
// yet"; the first matching answer returns true immediately.
func (p *Prober) Probe(ctx context.Context, check stack.ReadinessCheck) bool {
	attempts := check.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		status, err := p.get(ctx, check.URL)
		if err == nil && status == check.ExpectedStatus {
			p.logger.Info("endpoint ready", "url", check.URL, "attempt", attempt)
			return true
		}
		p.logger.Debug("endpoint not ready",
			"url", check.URL,
			"attempt", attempt,
			"max_attempts", attempts,
			"status", status,
			"error", err,
		)

		if attempt == attempts {
			break
		}
		if err := p.sleep(ctx, check.Interval); err != nil {
			return false
		}
	}
	return false
}

func (p *Prober) get(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
