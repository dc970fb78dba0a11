package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

// NewClient dials the frontend that hosts the day generation queue. It
// returns a nil client when no address is configured.
func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (temporalsdkclient.Client, error) {
	if !cfg.Enabled() {
		log.Warn("TEMPORAL_ADDRESS not set; day generation runs in process")
		return nil, nil
	}
	opts, err := clientOptions(log, cfg, cfg.Namespace)
	if err != nil {
		return nil, err
	}

	var c temporalsdkclient.Client
	err = cfg.Dial.Retry(ctx, func(attempt int) (bool, error) {
		dialCtx, cancel := context.WithTimeout(ctx, positive(cfg.DialTimeout, 5*time.Second))
		defer cancel()
		dialed, err := temporalsdkclient.DialContext(dialCtx, opts)
		if err != nil {
			return true, err
		}
		if attempt > 1 {
			log.Info("Connected to Temporal", "address", cfg.Address, "namespace", cfg.Namespace, "attempts", attempt)
		}
		c = dialed
		return false, nil
	}, func(attempt int, err error) {
		log.Warn("Temporal not reachable; retrying", "address", cfg.Address, "attempt", attempt, "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial failed (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
	}

	if cfg.AutoRegisterNamespace {
		if err := EnsureNamespace(ctx, log, cfg); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// EnsureNamespace registers cfg.Namespace when the frontend does not know it.
// Meant for local and self-hosted clusters; cloud namespaces are provisioned
// up front.
func EnsureNamespace(ctx context.Context, log *logger.Logger, cfg Config) error {
	namespace := strings.TrimSpace(cfg.Namespace)
	if !cfg.Enabled() || namespace == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, positive(cfg.NamespaceEnsure.MaxWait, 10*time.Second))
	defer cancel()

	// The namespace client sends no namespace header, so it works before the namespace exists.
	opts, err := clientOptions(log, cfg, "")
	if err != nil {
		return err
	}
	nsClient, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace ensure: init namespace client: %w", err)
	}
	defer nsClient.Close()

	return cfg.NamespaceEnsure.Retry(ctx, func(int) (bool, error) {
		_, err := nsClient.Describe(ctx, namespace)
		if err == nil {
			return false, nil
		}
		var nfe *serviceerror.NamespaceNotFound
		if !errors.As(err, &nfe) {
			return IsRetryableRPC(err), fmt.Errorf("temporal namespace ensure: describe %s: %w", namespace, err)
		}
		err = nsClient.Register(ctx, &workflowservice.RegisterNamespaceRequest{
			Namespace:                        namespace,
			Description:                      "gitguide day generation",
			WorkflowExecutionRetentionPeriod: durationpb.New(cfg.NamespaceRetention),
		})
		var exists *serviceerror.NamespaceAlreadyExists
		if err == nil || errors.As(err, &exists) {
			log.Info("Registered Temporal namespace", "namespace", namespace, "retention", cfg.NamespaceRetention.String())
			return false, nil
		}
		return IsRetryableRPC(err), fmt.Errorf("temporal namespace ensure: register %s: %w", namespace, err)
	}, func(attempt int, err error) {
		log.Warn("Temporal namespace ensure retrying", "namespace", namespace, "attempt", attempt, "error", err)
	})
}

func positive(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func clientOptions(log *logger.Logger, cfg Config, namespace string) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{
		HostPort:  cfg.Address,
		Namespace: namespace,
		Logger:    log.With("component", "temporal"),
	}
	if cfg.mtls() {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return opts, err
		}
		opts.ConnectionOptions.TLS = tlsCfg
	}
	return opts, nil
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, fmt.Errorf("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH must be set together")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: load client cert/key: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath == "" {
		return tlsCfg, nil
	}
	pem, err := os.ReadFile(cfg.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: read CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("temporal tls: %s holds no PEM certificates", cfg.ClientCAPath)
	}
	tlsCfg.RootCAs = pool
	return tlsCfg, nil
}
