package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DirectoryMetrics records the directory's business events: token issuance,
// account registration and heartbeat traffic.
type DirectoryMetrics interface {
	// RecordTokenIssued counts issued tokens labeled by scope set.
	RecordTokenIssued(ctx context.Context, scope string)
	// RecordAccountCreated counts account registrations.
	RecordAccountCreated(ctx context.Context)
	// RecordHeartbeat counts heartbeat updates labeled by entity kind
	// ("account" or "domain").
	RecordHeartbeat(ctx context.Context, kind string)
}

type directoryMetrics struct {
	tokenCounter     metric.Int64Counter
	accountCounter   metric.Int64Counter
	heartbeatCounter metric.Int64Counter
}

// NewDirectoryMetrics creates the business metric instruments under the
// given namespace.
func NewDirectoryMetrics(meterProvider metric.MeterProvider, namespace string) (DirectoryMetrics, error) {
	meter := meterProvider.Meter(namespace)

	tokenCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_tokens_issued_total", namespace),
		metric.WithDescription("Total number of tokens issued"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token counter: %w", err)
	}

	accountCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_accounts_created_total", namespace),
		metric.WithDescription("Total number of accounts created"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account counter: %w", err)
	}

	heartbeatCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_heartbeats_total", namespace),
		metric.WithDescription("Total number of heartbeat updates"),
		metric.WithUnit("{heartbeat}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create heartbeat counter: %w", err)
	}

	return &directoryMetrics{
		tokenCounter:     tokenCounter,
		accountCounter:   accountCounter,
		heartbeatCounter: heartbeatCounter,
	}, nil
}

func (d *directoryMetrics) RecordTokenIssued(ctx context.Context, scope string) {
	d.tokenCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}

func (d *directoryMetrics) RecordAccountCreated(ctx context.Context) {
	d.accountCounter.Add(ctx, 1)
}

func (d *directoryMetrics) RecordHeartbeat(ctx context.Context, kind string) {
	d.heartbeatCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
