package flags

import (
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/namespace-registry/common"
	"github.com/ruteri/namespace-registry/cryptoutils"
	"github.com/ruteri/namespace-registry/httpserver"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// PrivateKey loads the key named by flag name, given as hex or as a key file
// path. An empty flag yields nil.
func PrivateKey(cCtx *cli.Context, name string) (*ecdsa.PrivateKey, error) {
	raw := cCtx.String(name)
	if raw == "" {
		return nil, nil
	}
	key, err := cryptoutils.LoadKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return key, nil
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var DNSAddrFlag = &cli.StringFlag{
	Name:  "dns-addr",
	Value: "",
	Usage: "UDP address for the DNS TXT gateway, disabled if empty",
}

var DNSTextKeysFlag = &cli.StringSliceFlag{
	Name:  "dns-text-key",
	Value: cli.NewStringSlice("url", "email", "description", "avatar"),
	Usage: "text record keys served by the DNS gateway",
}

var StorageFlag = &cli.StringSliceFlag{
	Name:  "storage",
	Usage: "snapshot storage URI (file://, s3://, ipfs://, vault://), may be repeated",
}

var RestoreSnapshotFlag = &cli.StringFlag{
	Name:  "restore-snapshot",
	Usage: "hex id of a stored snapshot to load before serving",
}

var SnapshotOnShutdownFlag = &cli.BoolFlag{
	Name:  "snapshot-on-shutdown",
	Value: true,
	Usage: "store a snapshot when the server stops, requires --storage",
}

var DeployerKeyFlag = &cli.StringFlag{
	Name:     "deployer-key",
	Required: true,
	EnvVars:  []string{"DEPLOYER_KEY"},
	Usage:    "hex secp256k1 key, or key file, of the account that deploys and administers the contracts",
}

var StorageTLSCertFlag = &cli.StringFlag{
	Name:  "storage-tls-cert",
	Usage: "PEM client certificate presented to vault:// storage",
}

var StorageTLSKeyFlag = &cli.StringFlag{
	Name:  "storage-tls-key",
	Usage: "PEM key of --storage-tls-cert",
}

var BaseLabelFlag = &cli.StringFlag{
	Name:  "base-label",
	Value: "web3",
	Usage: "top-level label managed by the registrar",
}

var GracePeriodV1Flag = &cli.DurationFlag{
	Name:  "grace-period-v1",
	Value: 90 * 24 * time.Hour,
	Usage: "grace period of the first registrar generation",
}

var GracePeriodV2Flag = &cli.DurationFlag{
	Name:  "grace-period-v2",
	Value: 30 * 24 * time.Hour,
	Usage: "grace period of the registrar installed by the controller upgrade",
}

var MinDurationFlag = &cli.DurationFlag{
	Name:  "min-registration",
	Value: 24 * time.Hour,
	Usage: "shortest registration or renewal accepted",
}

var ServerAddrFlag = &cli.StringFlag{
	Name:  "server-addr",
	Value: "http://127.0.0.1:8080",
	Usage: "registry server address to request",
}

var KeyFlag = &cli.StringFlag{
	Name:    "key",
	EnvVars: []string{"REGISTRY_KEY"},
	Usage:   "hex secp256k1 key, or key file, used to sign writes",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "namespace-registry",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
