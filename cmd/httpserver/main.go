package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/cmd/flags"
	"github.com/ruteri/namespace-registry/common"
	"github.com/ruteri/namespace-registry/cryptoutils"
	"github.com/ruteri/namespace-registry/deploy"
	"github.com/ruteri/namespace-registry/dnsgateway"
	"github.com/ruteri/namespace-registry/httpserver"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/metrics"
	"github.com/ruteri/namespace-registry/snapshot"
	"github.com/ruteri/namespace-registry/storage"
	"github.com/urfave/cli/v2"
)

var serverFlags = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.DNSAddrFlag,
	flags.DNSTextKeysFlag,
	flags.StorageFlag,
	flags.StorageTLSCertFlag,
	flags.StorageTLSKeyFlag,
	flags.RestoreSnapshotFlag,
	flags.SnapshotOnShutdownFlag,
	flags.DeployerKeyFlag,
	flags.BaseLabelFlag,
	flags.GracePeriodV1Flag,
	flags.GracePeriodV2Flag,
	flags.MinDurationFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:   "registry-server",
		Usage:  "Serve the hierarchical namespace registry",
		Flags:  serverFlags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	deployerKey, err := flags.PrivateKey(cCtx, flags.DeployerKeyFlag.Name)
	if err != nil {
		return err
	}
	deployer := crypto.PubkeyToAddress(deployerKey.PublicKey)

	opts := deploy.DefaultOptions()
	opts.BaseLabel = cCtx.String(flags.BaseLabelFlag.Name)
	opts.GracePeriodV1 = cCtx.Duration(flags.GracePeriodV1Flag.Name)
	opts.GracePeriodV2 = cCtx.Duration(flags.GracePeriodV2Flag.Name)
	opts.MinDuration = cCtx.Duration(flags.MinDurationFlag.Name)

	c := chain.New(chain.SystemClock{}, logger)
	d, err := deploy.Deploy(c, deployer, opts)
	if err != nil {
		logger.Error("Failed to deploy contracts", "err", err)
		return err
	}
	logger.Info("Contracts deployed", "deployer", deployer.Hex(), "registry", d.Registry.Address().Hex())

	backend, err := setupStorage(cCtx, logger)
	if err != nil {
		return err
	}

	metricsSrv, err := metrics.New(common.PackageName, cCtx.String(flags.MetricsAddrFlag.Name))
	if err != nil {
		logger.Error("Failed to create metrics server", "err", err)
		return err
	}

	if raw := cCtx.String(flags.RestoreSnapshotFlag.Name); raw != "" {
		if err := restore(cCtx.Context, d, backend, raw, metricsSrv.Metrics, logger); err != nil {
			logger.Error("Failed to restore snapshot", "id", raw, "err", err)
			return err
		}
	}

	handler := httpserver.NewHandler(d, backend, metricsSrv.Metrics, logger)
	server := httpserver.New(flags.ConfigureServer(cCtx, logger), handler, metricsSrv)
	server.RunInBackground()

	var gateway *dnsgateway.Gateway
	if addr := cCtx.String(flags.DNSAddrFlag.Name); addr != "" {
		cfg := dnsgateway.DefaultConfig()
		cfg.Zone = opts.BaseLabel
		cfg.TextKeys = cCtx.StringSlice(flags.DNSTextKeysFlag.Name)
		gateway, err = dnsgateway.New(c, d.Registry, cfg, metricsSrv.Metrics, logger)
		if err != nil {
			logger.Error("Failed to create DNS gateway", "err", err)
			return err
		}
		go func() {
			logger.Info("Starting DNS gateway", "listenAddress", addr, "zone", cfg.Zone)
			if err := gateway.ListenAndServe(addr); err != nil {
				logger.Error("DNS gateway failed", "err", err)
			}
		}()
	}

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	if gateway != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := gateway.Shutdown(ctx); err != nil {
			logger.Error("DNS gateway shutdown failed", "err", err)
		}
		cancel()
	}

	if backend != nil && cCtx.Bool(flags.SnapshotOnShutdownFlag.Name) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		doc, err := snapshot.Take(c)
		if err == nil {
			_, err = snapshot.Save(ctx, backend, doc, logger)
		}
		metricsSrv.ObserveSnapshot("save", err)
		if err != nil {
			logger.Error("Failed to store shutdown snapshot", "err", err)
			return err
		}
	}

	logger.Info("Server shutdown complete")
	return nil
}

func setupStorage(cCtx *cli.Context, logger *slog.Logger) (interfaces.StorageBackend, error) {
	uris := cCtx.StringSlice(flags.StorageFlag.Name)
	if len(uris) == 0 {
		if cCtx.String(flags.RestoreSnapshotFlag.Name) != "" {
			return nil, errors.New("--restore-snapshot requires at least one --storage")
		}
		logger.Warn("No storage configured, snapshots are disabled")
		return nil, nil
	}

	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			logger.Error("Invalid storage URI", "uri", uri, "err", err)
			return nil, err
		}
		locations = append(locations, location)
	}
	var factory interfaces.StorageBackendFactory = storage.NewStorageBackendFactory(logger)
	if certFile := cCtx.String(flags.StorageTLSCertFlag.Name); certFile != "" {
		factory = factory.WithTLSAuth(cryptoutils.ClientCertificate(certFile, cCtx.String(flags.StorageTLSKeyFlag.Name)))
	}
	backend, err := factory.CreateMultiBackend(locations)
	if err != nil {
		logger.Error("Failed to create storage backends", "err", err)
		return nil, err
	}
	return backend, nil
}

func restore(ctx context.Context, d *deploy.Deployment, backend interfaces.StorageBackend, raw string, m *metrics.Metrics, logger *slog.Logger) error {
	id, err := interfaces.NewContentIDFromHex(raw)
	if err != nil {
		return fmt.Errorf("invalid snapshot id: %w", err)
	}
	doc, err := snapshot.Load(ctx, backend, id)
	if err == nil {
		err = snapshot.Apply(d, doc)
	}
	m.ObserveSnapshot("restore", err)
	if err != nil {
		return err
	}
	logger.Info("Snapshot restored", "id", id.String(), "taken", doc.Taken, "slots", len(doc.Slots))
	return nil
}
