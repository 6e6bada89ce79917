// Command licensecheck runs the host-side license and trial gate. With
// -fingerprint it prints the hardware id an operator needs to issue a
// license; otherwise it prints the access decision as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/config"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/infrastructure"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/license"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/security"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/services"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/trial"
)

const (
	exitGranted = 0
	exitError   = 1
	exitBlocked = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("licensecheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fingerprintOnly := fs.Bool("fingerprint", false, "print this machine's hardware id and exit")
	configFile := fs.String("config", "", "YAML config file (default: EDEFTER_CONFIG or edefter.yaml)")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	var (
		cfg *config.Config
		err error
	)
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(stderr, "licensecheck: %v\n", err)
		return exitError
	}

	// stdout carries the result; logs go to stderr
	ctx = infrastructure.EnsureTraceID(ctx)
	logger := infrastructure.NewLogger(stderr, infrastructure.ParseLogLevel(cfg.Logging.Level), false)

	fp := security.NewFingerprintGenerator(security.NewSystemProber(logger))
	if *fingerprintOnly {
		fmt.Fprintln(stdout, fp.Compute())
		return exitGranted
	}

	paths, err := cfg.HostPaths()
	if err != nil {
		logger.ErrorContext(ctx, "failed to resolve paths", slog.String("error", err.Error()))
		return exitError
	}
	if err := paths.EnsureDirectories(); err != nil {
		logger.ErrorContext(ctx, "failed to create directories", slog.String("error", err.Error()))
		return exitError
	}
	paths.LogPathResolution(logger)

	validator := license.NewValidator(fp, license.NewKeyResolver(paths.PublicKeyFile, logger),
		paths.LicenseCandidates(), logger)

	store := trial.NewFileStore(paths.TrialFile, paths.TrialMirrorFile, []byte(cfg.Trial.Secret), logger)
	manager := trial.NewManager(store, fp, cfg.Trial.PurchaseURL, logger)
	defer func() {
		if err := manager.Close(); err != nil {
			logger.WarnContext(ctx, "failed to close trial store", slog.String("error", err.Error()))
		}
	}()

	decision := services.NewAccessService(validator, manager, logger).Evaluate(ctx)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(decision); err != nil {
		logger.ErrorContext(ctx, "failed to write decision", slog.String("error", err.Error()))
		return exitError
	}

	if !decision.Granted {
		return exitBlocked
	}
	return exitGranted
}
