package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quietcore/gateway/pkg/adapter/reference/cloudstore"
	"github.com/quietcore/gateway/pkg/adapter/reference/connector"
	"github.com/quietcore/gateway/pkg/adapter/reference/reminder"
	"github.com/quietcore/gateway/pkg/adapter/reference/stub"
	"github.com/quietcore/gateway/pkg/adapter/reference/webfetch"
	"github.com/quietcore/gateway/pkg/allowlist"
	"github.com/quietcore/gateway/pkg/anomaly"
	"github.com/quietcore/gateway/pkg/artifacts"
	"github.com/quietcore/gateway/pkg/audit"
	"github.com/quietcore/gateway/pkg/auth"
	"github.com/quietcore/gateway/pkg/config"
	"github.com/quietcore/gateway/pkg/credentials"
	"github.com/quietcore/gateway/pkg/pipeline"
	"github.com/quietcore/gateway/pkg/protocol"
	"github.com/quietcore/gateway/pkg/ratelimit"
	"github.com/quietcore/gateway/pkg/registry"
	"github.com/quietcore/gateway/pkg/schema"
	"github.com/quietcore/gateway/pkg/schema/kinds"
	"github.com/quietcore/gateway/pkg/signing"
	"github.com/quietcore/gateway/pkg/telemetry"
	"github.com/quietcore/gateway/pkg/transport"
)

const connectorTokenTTL = 1 * time.Hour

// startServer is a variable to allow mocking in tests.
var startServer = runServer

func runServer(stdout, stderr io.Writer) {
	cfg := config.Load()

	logLevel := slog.LevelInfo
	_ = logLevel.UnmarshalText([]byte(cfg.LogLevel))
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))

	fmt.Fprintf(stdout, "quietcore-gateway starting (socket %s)\n", cfg.SocketPath)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key, err := signing.LoadKeyFile(cfg.SigningKeyPath)
	if err != nil {
		logger.Error("failed to load signing key", "error", err)
		os.Exit(1)
	}

	adapters, err := buildAdapters(cfg, key)
	if err != nil {
		logger.Error("failed to build adapters", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := adapters.Shutdown(context.Background()); err != nil {
			logger.Warn("adapter shutdown reported an error", "error", err)
		}
	}()

	p, err := buildPipeline(cfg, key, adapters, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	otel, err := telemetry.New(ctx, telemetry.DefaultConfig())
	if err != nil {
		logger.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	defer otel.Shutdown(ctx)

	t := transport.New(cfg.SocketPath, makeHandler(p, otel, logger), logger,
		transport.WithOnConnection(func(connID string) {
			logger.Info("core connected", "conn", connID)
		}),
		transport.WithOnDisconnection(func(connID string, err error) {
			logger.Info("core disconnected", "conn", connID, "error", err)
		}),
		transport.WithOnAcceptError(func(err error) {
			logger.Warn("accept error", "error", err)
		}),
	)

	if err := t.Start(ctx); err != nil {
		logger.Error("failed to start transport", "error", err)
		os.Exit(1)
	}

	logger.Info("ready", "socket", cfg.SocketPath)
	fmt.Fprintln(stdout, "press ctrl+c to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	_ = t.Stop()
}

// makeHandler adapts the pipeline to transport.Handler: decode the
// frame as an ActionRequest, run it through the pipeline, encode the
// response back. The source identity is always "core" today (Open
// Question 2) since only one local client connects over this socket.
func makeHandler(p *pipeline.Pipeline, otel *telemetry.Provider, logger *slog.Logger) transport.Handler {
	return func(ctx context.Context, connID string, frame []byte) ([]byte, error) {
		var req protocol.ActionRequest
		if err := json.Unmarshal(frame, &req); err != nil {
			return nil, fmt.Errorf("gateway: decode request: %w", err)
		}

		ctx = auth.WithSource(ctx, "core")
		ctx, finish := otel.TrackOperation(ctx, "gateway.dispatch",
			telemetry.RequestOperation(req.ID, req.Action, req.Source)...)

		resp := p.Process(ctx, req)

		var respErr error
		if resp.Status == protocol.StatusError {
			respErr = fmt.Errorf("%s", resp.Error.Message)
		}
		finish(respErr)

		out, err := json.Marshal(resp)
		if err != nil {
			logger.Error("failed to encode response", "conn", connID, "error", err)
			return nil, fmt.Errorf("gateway: encode response: %w", err)
		}
		return out, nil
	}
}

// buildPipeline wires every collaborator package into a Pipeline, the
// same dependency-injection shape as the teacher's runServer but scoped
// to this module's ten-stage state machine rather than an HTTP mux.
// The signing key and adapter registry are built by the caller so their
// lifetimes (key material held in memory, adapter shutdown hooks) stay
// visible to runServer instead of being buried inside this function.
func buildPipeline(cfg *config.Config, key []byte, adapters *registry.Registry, logger *slog.Logger) (*pipeline.Pipeline, error) {
	schemas := schema.NewRegistry()
	if err := schemas.LoadAll(kinds.All()); err != nil {
		return nil, fmt.Errorf("gateway: load schemas: %w", err)
	}

	signer, err := signing.NewSigner(key)
	if err != nil {
		return nil, fmt.Errorf("gateway: init signer: %w", err)
	}

	auditLog, err := audit.NewSQLiteStore(cfg.AuditDBPath)
	if err != nil {
		return nil, fmt.Errorf("gateway: init audit store: %w", err)
	}

	allowed := allowlist.New(allowlist.NewMemoryStore())

	// The profile's threshold overrides must reach cfg before the limiter
	// and detector below read it.
	profile, perr := loadProfile(cfg)
	if perr == nil && profile != nil {
		profile.Apply(cfg)
	}

	limiter := ratelimit.New(ratelimit.Config{
		GlobalLimit: cfg.GlobalRateLimit,
		WindowMs:    cfg.RateLimitWindowMs,
	}, ratelimit.NewMemoryStore())

	detector := anomaly.New(anomaly.Config{
		BurstWindowMs:   cfg.RateLimitWindowMs,
		BurstThreshold:  cfg.AnomalyBurstThreshold,
		MaxPayloadBytes: cfg.AnomalyMaxPayloadBytes,
	})

	if perr == nil && profile != nil {
		for _, entry := range profile.Allowlist {
			if _, err := allowed.AddService(context.Background(), protocol.AllowedService{
				ServiceName: entry.ServiceName,
				Domain:      entry.Domain,
				Protocol:    entry.Protocol,
				Rule:        entry.Rule,
				AddedBy:     protocol.AddedBySystem,
			}); err != nil {
				logger.Warn("failed to seed allowlist entry from profile", "domain", entry.Domain, "error", err)
				continue
			}
			detector.MarkDomainSeen(entry.Domain)
		}
	}

	return pipeline.New(
		pipeline.Config{
			ReplayWindow:    time.Duration(cfg.ReplaySeconds) * time.Second,
			DispatchTimeout: time.Duration(cfg.DispatchTimeoutMs) * time.Millisecond,
		},
		schemas,
		signer,
		auditLog,
		allowed,
		limiter,
		detector,
		adapters,
	), nil
}

// buildAdapters registers the reference adapters that demonstrate the
// dispatch contract: reminder (local only), web.fetch (resilient HTTP
// client), cloud.*/model.* (content-addressed blob store), connector.*
// (JWT token-exchange lifecycle). Every other recognized action kind
// falls back to the stub adapter, so a real deployment can swap in a
// concrete implementation one action kind at a time without the
// pipeline ever seeing an unbound kind.
func buildAdapters(cfg *config.Config, signingKey []byte) (*registry.Registry, error) {
	reg := registry.New()

	fallback := stub.New()
	for kind := range kinds.All() {
		reg.Register(kind, fallback)
	}

	rem := reminder.New()
	for _, kind := range []string{"reminder.create", "reminder.update", "reminder.delete", "reminder.list"} {
		reg.Register(kind, rem)
	}

	reg.Register("web.fetch", webfetch.New())

	blobDir := cfg.AuditDBPath + ".blobs"
	blobs, err := artifacts.NewFileStore(blobDir)
	if err != nil {
		return nil, fmt.Errorf("init blob store: %w", err)
	}
	cs := cloudstore.New(blobs)
	for _, kind := range []string{"cloud.save", "cloud.load", "cloud.delete", "cloud.list",
		"model.download", "model.list", "model.delete", "model.get_info"} {
		reg.Register(kind, cs)
	}

	credStore, err := openCredentialStore(cfg, signingKey)
	if err != nil {
		return nil, fmt.Errorf("init credential store: %w", err)
	}
	conn := connector.New(signingKey, connectorTokenTTL, credStore)
	for _, kind := range []string{"connector.authorize", "connector.refresh_token", "connector.revoke", "connector.list_connections"} {
		reg.Register(kind, conn)
	}

	return reg, nil
}

// openCredentialStore opens (and migrates, if needed) the encrypted
// credential database connector.* tokens are persisted to across
// restarts. The AES-256 key is derived from the gateway's own signing
// key so there is no second secret to provision on first run.
func openCredentialStore(cfg *config.Config, signingKey []byte) (*credentials.Store, error) {
	db, err := sql.Open("sqlite", cfg.AuditDBPath+".credentials")
	if err != nil {
		return nil, fmt.Errorf("open credentials db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := credentials.Migrate(context.Background(), db); err != nil {
		return nil, err
	}

	encKey := sha256.Sum256(append([]byte("quietcore-gateway-credentials:"), signingKey...))
	return credentials.NewStore(db, encKey[:])
}

func loadProfile(cfg *config.Config) (*config.Profile, error) {
	if cfg.ProfilePath == "" {
		return nil, nil
	}
	return config.LoadProfile(cfg.ProfilePath)
}
