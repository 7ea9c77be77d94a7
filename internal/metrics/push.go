// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push publishes the default registry to a Prometheus Pushgateway.
//
// Archivarius invocations are short-lived batch jobs driven by cron, so
// there is no process alive long enough for Prometheus to scrape. The CLI
// calls Push once at the end of a run when metrics publication is
// configured. Failure to push is reported to the caller but must never
// fail the backup operation that produced the metrics.
func Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return fmt.Errorf("pushgateway URL is empty")
	}

	pusher := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}

	return nil
}
