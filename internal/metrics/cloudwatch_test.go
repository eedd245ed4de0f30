package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reefcast/internal/types"
)

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatch) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestRecordRun_PublishesAllCounters(t *testing.T) {
	cw := &mockCloudWatch{}
	rec := NewCloudWatchRecorder(cw, "Reefcast/Test", nil)

	rec.RecordRun(context.Background(), types.RunSummary{
		LocationsUpdated:     44,
		LocationsFailed:      2,
		APICalls:             92,
		ExecutionTimeSeconds: 73.5,
	})

	require.Len(t, cw.inputs, 1, "one run is one PutMetricData call")
	input := cw.inputs[0]
	assert.Equal(t, "Reefcast/Test", *input.Namespace)
	require.Len(t, input.MetricData, 4)

	values := map[string]float64{}
	for _, d := range input.MetricData {
		values[*d.MetricName] = *d.Value
	}
	assert.Equal(t, 44.0, values[MetricLocationsUpdated])
	assert.Equal(t, 2.0, values[MetricLocationsFailed])
	assert.Equal(t, 92.0, values[MetricUpstreamCalls])
	assert.Equal(t, 73.5, values[MetricRunDuration])
}

func TestRecordRun_SwallowsPublishErrors(t *testing.T) {
	cw := &mockCloudWatch{err: errors.New("throttled")}
	rec := NewCloudWatchRecorder(cw, "Reefcast/Test", nil)

	// Must not panic or propagate; a metrics outage never fails a run.
	rec.RecordRun(context.Background(), types.RunSummary{LocationsUpdated: 1})
	require.Len(t, cw.inputs, 1)
}

func TestNoopRecorder(t *testing.T) {
	NoopRecorder{}.RecordRun(context.Background(), types.RunSummary{})
}
