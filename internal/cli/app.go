package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	"github.com/yolodolo42/deskpilot/internal/agent"
	"github.com/yolodolo42/deskpilot/internal/auth"
	"github.com/yolodolo42/deskpilot/internal/computer"
	"github.com/yolodolo42/deskpilot/internal/device"
	"github.com/yolodolo42/deskpilot/internal/llm"
	"github.com/yolodolo42/deskpilot/internal/observability"
)

// app holds what every command needs: settings, logging, metrics and
// credentials. Build it with newApp and release it with Close.
type app struct {
	settings *Settings
	logger   *slog.Logger
	metrics  *observability.Metrics
	auth     *auth.Manager

	registry *prometheus.Registry
	server   *http.Server
	history  *agent.HistoryStore

	// newDevice is swapped in tests.
	newDevice func(device.Config) (computer.Device, error)
}

func newApp() (*app, error) {
	dataDir, err := defaultDataDir()
	if err != nil {
		return nil, err
	}
	return newAppIn(viper.GetViper(), dataDir)
}

func newAppIn(v *viper.Viper, dataDir string) (*app, error) {
	settings, err := loadSettings(v, dataDir)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(settings.LogLevel)
	if err != nil {
		return nil, err
	}
	mgr, err := auth.NewManager(dataDir)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	a := &app{
		settings:  settings,
		logger:    logger,
		metrics:   observability.NewMetrics(reg),
		auth:      mgr,
		registry:  reg,
		newDevice: device.New,
	}
	if settings.MetricsAddr != "" {
		a.serveMetrics(settings.MetricsAddr)
	}
	return a, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	a.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", addr)
}

// Close stops the metrics server and closes the history store.
func (a *app) Close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.server.Shutdown(ctx)
		cancel()
	}
	if a.history != nil {
		_ = a.history.Close()
	}
}

// providerID is the flag/config provider, else the stored default.
func (a *app) providerID() llm.ProviderID {
	if a.settings.Provider != "" {
		return a.settings.Provider
	}
	return a.auth.GetDefaultProvider()
}

// createProvider builds a client for id with the configured model.
func (a *app) createProvider(ctx context.Context, id llm.ProviderID, model string) (llm.Provider, error) {
	retries := option.WithMaxRetries(max(0, a.settings.MaxRetries))
	if auth.UsesCloudCredentials(id) {
		cloud, err := a.auth.GetCloudSettings(id)
		if err != nil {
			return nil, fmt.Errorf("%w (run 'deskpilot auth connect %s')", err, id)
		}
		if id == llm.ProviderBedrock {
			return llm.NewBedrockProvider(ctx, cloud.Region, model, retries)
		}
		return llm.NewVertexProvider(ctx, cloud.Region, cloud.Project, model, retries)
	}

	apiKey, err := a.auth.GetAPIKey(id)
	if err != nil {
		return nil, fmt.Errorf("%w (set %s or run 'deskpilot auth connect %s')", err, llm.EnvVarForProvider(id), id)
	}
	switch id {
	case llm.ProviderAnthropic:
		return llm.NewAnthropicProvider(apiKey, model, retries)
	case llm.ProviderOpenAI:
		return llm.NewOpenAIProvider(apiKey, model, "")
	case llm.ProviderOpenRouter:
		return llm.NewOpenRouterProvider(apiKey, model)
	case llm.ProviderGemini:
		return llm.NewGeminiProvider(ctx, apiKey, model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", id)
	}
}

// providerRegistry builds a client for every connected provider, for
// listings. The selected provider is the registry default and the only one
// given the configured model. Providers that fail to build are skipped.
func (a *app) providerRegistry(ctx context.Context) (*llm.ProviderRegistry, error) {
	selected := a.providerID()
	reg := llm.NewProviderRegistry()
	for _, id := range a.auth.ListConnected() {
		model := ""
		if id == selected {
			model = a.settings.Model
		}
		p, err := a.createProvider(ctx, id, model)
		if err != nil {
			if id == selected {
				return nil, err
			}
			a.logger.Warn("skipping provider", "provider", id, "error", err)
			continue
		}
		reg.Register(p)
	}
	if err := reg.SetDefault(selected); err != nil {
		return nil, fmt.Errorf("provider %s is not connected (run 'deskpilot auth connect %s')", selected, selected)
	}
	return reg, nil
}

// computerTool opens the desktop backend and wraps it in the computer tool.
func (a *app) computerTool(ctx context.Context) (*computer.Tool, error) {
	dev, err := a.newDevice(device.Config{
		Backend:       a.settings.Backend,
		DisplayNumber: a.settings.DisplayNumber,
	})
	if err != nil {
		return nil, err
	}
	cfg := a.settings.computerConfig(a.logger)
	cfg.Metrics = a.metrics
	return computer.New(ctx, dev, cfg)
}

// historyStore opens the action history once; it returns nil when disabled.
func (a *app) historyStore() (*agent.HistoryStore, error) {
	if !a.settings.HistoryEnabled {
		return nil, nil
	}
	if a.history != nil {
		return a.history, nil
	}
	store, err := agent.OpenHistoryStore(a.settings.DataDir)
	if err != nil {
		return nil, err
	}
	a.history = store
	return store, nil
}

// newAgent assembles provider, computer tool and recorders. extra options
// are applied last.
func (a *app) newAgent(ctx context.Context, extra ...agent.Option) (*agent.Agent, error) {
	id := a.providerID()
	model := a.settings.Model
	if model == "" {
		model = a.auth.PreferredModel(id)
	}
	provider, err := a.createProvider(ctx, id, model)
	if err != nil {
		return nil, err
	}
	tool, err := a.computerTool(ctx)
	if err != nil {
		closeProvider(provider)
		return nil, fmt.Errorf("desktop unavailable: %w", err)
	}

	cfg := a.settings.Agent
	if provider.ID() == llm.ProviderOpenRouter {
		if key, err := a.auth.GetAPIKey(llm.ProviderOpenRouter); err == nil {
			cfg.OpenRouterAPIKey = key
		}
	}

	opts := []agent.Option{
		agent.WithLogger(a.logger),
		agent.WithMetrics(a.metrics),
	}
	store, err := a.historyStore()
	if err != nil {
		a.logger.Warn("action history disabled", "error", err)
	} else if store != nil {
		opts = append(opts, agent.WithHistory(store))
	}
	if a.settings.SessionLog {
		opts = append(opts, agent.WithSessionLog(a.settings.DataDir))
	}
	opts = append(opts, extra...)

	return agent.New(provider, agent.NewToolCollection(agent.NewComputerTool(tool)), cfg, opts...)
}

func closeProvider(p llm.Provider) {
	if gemini, ok := p.(*llm.GeminiProvider); ok {
		_ = gemini.Close()
	}
}
