// Package metrics publishes run-level telemetry for the ingestion
// pipeline to AWS CloudWatch. Publishing is strictly best-effort: a
// metrics outage must never fail a run that already persisted data.
package metrics

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"reefcast/internal/types"
)

// Metric names emitted per run.
const (
	MetricLocationsUpdated = "LocationsUpdated"
	MetricLocationsFailed  = "LocationsFailed"
	MetricUpstreamCalls    = "UpstreamCalls"
	MetricRunDuration      = "RunDuration"
)

// CloudWatchAPI abstracts the PutMetricData operation for testability.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRecorder publishes run summaries as CloudWatch metrics.
type CloudWatchRecorder struct {
	client    CloudWatchAPI
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchRecorder creates a recorder publishing to the given
// namespace.
func NewCloudWatchRecorder(client CloudWatchAPI, namespace string, logger *slog.Logger) *CloudWatchRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRun emits the run counters in a single PutMetricData call.
// Failures are logged and swallowed.
func (r *CloudWatchRecorder) RecordRun(ctx context.Context, summary types.RunSummary) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(r.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(MetricLocationsUpdated),
				Value:      aws.Float64(float64(summary.LocationsUpdated)),
				Unit:       cwtypes.StandardUnitCount,
			},
			{
				MetricName: aws.String(MetricLocationsFailed),
				Value:      aws.Float64(float64(summary.LocationsFailed)),
				Unit:       cwtypes.StandardUnitCount,
			},
			{
				MetricName: aws.String(MetricUpstreamCalls),
				Value:      aws.Float64(float64(summary.APICalls)),
				Unit:       cwtypes.StandardUnitCount,
			},
			{
				MetricName: aws.String(MetricRunDuration),
				Value:      aws.Float64(summary.ExecutionTimeSeconds),
				Unit:       cwtypes.StandardUnitSeconds,
			},
		},
	}

	if _, err := r.client.PutMetricData(ctx, input); err != nil {
		r.logger.ErrorContext(ctx, "failed to publish run metrics",
			"namespace", r.namespace,
			"error", err,
		)
	}
}

// NoopRecorder discards metrics. Used for local runs and tests.
type NoopRecorder struct{}

// RecordRun does nothing.
func (NoopRecorder) RecordRun(context.Context, types.RunSummary) {}
