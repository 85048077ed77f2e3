// Command attestd runs the attestation-response agent: it serves TPM
// quotes over HTTP and runs the revocation loop over an in-process
// MemorySubscriber. No network transport is wired up here, so nothing
// publishes revocation messages to that subscriber.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/meridianhost/attest-agent/internal/config"
	"github.com/meridianhost/attest-agent/internal/httpapi"
	"github.com/meridianhost/attest-agent/internal/quote"
	"github.com/meridianhost/attest-agent/internal/revocation"
	"github.com/meridianhost/attest-agent/internal/service"
	"github.com/meridianhost/attest-agent/internal/tpm"
	"github.com/meridianhost/attest-agent/internal/transport"
	"github.com/meridianhost/attest-agent/internal/util"
)

func main() {
	configPath := flag.String("config", "/etc/attestd/agent.json", "path to the agent configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := util.ConfigureLogger(cfg.Logging.Level)

	facade, err := tpm.OpenHardwareFacade()
	if err != nil {
		return fmt.Errorf("open tpm: %w", err)
	}
	defer facade.Close()

	assembler := quote.NewAssembler(facade, cfg.IMAMLPath, cfg.MeasuredBootMLPath, logger)
	router := httpapi.NewRouter(assembler, logger)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	certPath, err := revocation.ResolveCertPath(cfg.WorkDir, cfg.RevocationCert)
	if err != nil {
		logger.Warn("revocation certificate not configured; revocation messages will be dropped", "error", err)
	}
	var verifier *revocation.Verifier
	if certPath != "" {
		verifier, err = revocation.LoadVerifier(certPath)
		if err != nil {
			logger.Warn("failed to load revocation certificate; revocation messages will be dropped", "error", err)
		}
	}

	executor := revocation.NewExecutor(
		verifier,
		util.PayloadDir(cfg.WorkDir),
		cfg.RevocationActionsDir,
		cfg.WorkDir,
		util.ActionListPath(cfg.WorkDir),
		cfg.RevocationActions,
		cfg.AllowPayloadRevocationActions,
		logger,
	)

	subscriber := transport.NewMemorySubscriber(16)
	svc := service.New(httpServer, subscriber, executor, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("attestd starting", "listen_addr", cfg.ListenAddr)
	return svc.Run(ctx)
}
