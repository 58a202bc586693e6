// Package influx exports link events to InfluxDB as points.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	fb "github.com/open-teleop/operator/pkg/flatbuffers/teleop/telemetry"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/telemetry"
)

// Options configures a Writer.
type Options struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	BatchSize   uint
	// FlushInterval in milliseconds.
	FlushInterval uint
}

// Writer batches link events through the non-blocking write API.
type Writer struct {
	client      influxdb2.Client
	writeAPI    influxdb2_api.WriteAPI
	measurement string
	logger      customlog.Logger
	errorsDone  chan struct{}
}

// NewWriter creates the client and write API. It does not contact the
// server; use Ping to check reachability.
func NewWriter(opts Options, logger customlog.Logger) (*Writer, error) {
	if opts.URL == "" || opts.Org == "" || opts.Bucket == "" {
		return nil, errors.New("influx url, org and bucket are required")
	}
	if opts.Measurement == "" {
		opts.Measurement = "teleop_link"
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 500
	}
	if opts.FlushInterval == 0 {
		opts.FlushInterval = 1000
	}

	client := influxdb2.NewClientWithOptions(opts.URL, opts.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(opts.BatchSize).
			SetFlushInterval(opts.FlushInterval))

	w := &Writer{
		client:      client,
		writeAPI:    client.WriteAPI(opts.Org, opts.Bucket),
		measurement: opts.Measurement,
		logger:      logger,
		errorsDone:  make(chan struct{}),
	}

	errorsCh := w.writeAPI.Errors()
	go func() {
		defer close(w.errorsDone)
		for writeErr := range errorsCh {
			logger.Errorf("Error sending link events to InfluxDB bucket %s: %v", opts.Bucket, writeErr)
		}
	}()

	logger.Infof("InfluxDB writer initialized for %s (org=%s bucket=%s)", opts.URL, opts.Org, opts.Bucket)
	return w, nil
}

// Ping reports whether the server is reachable.
func (w *Writer) Ping(ctx context.Context) error {
	ok, err := w.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influx ping failed: %w", err)
	}
	if !ok {
		return errors.New("influx server not ready")
	}
	return nil
}

// WriteLinkEvent queues one point for ev.
func (w *Writer) WriteLinkEvent(ev *fb.LinkEvent) error {
	w.writeAPI.WritePoint(Point(w.measurement, telemetry.Decode(ev)))
	return nil
}

// Flush writes any buffered points.
func (w *Writer) Flush() {
	w.writeAPI.Flush()
}

// Close flushes and releases the client.
func (w *Writer) Close() {
	w.client.Close()
	select {
	case <-w.errorsDone:
	case <-time.After(time.Second):
	}
}

// Point converts a link event into an InfluxDB point.
func Point(measurement string, e telemetry.Event) *influxdb2_write.Point {
	p := influxdb2.NewPointWithMeasurement(measurement).
		AddTag("kind", e.Kind.String()).
		SetTime(e.At)
	if e.Device != "" {
		p.AddTag("device", e.Device)
	}

	switch e.Kind {
	case fb.LinkEventKindCommandSent, fb.LinkEventKindCommandAck:
		if e.Drive != nil {
			p.AddField("drive", *e.Drive)
		}
		if e.Steer != nil {
			p.AddField("steer", *e.Steer)
		}
		if e.Kind == fb.LinkEventKindCommandAck && e.RTT > 0 {
			p.AddField("rtt_ms", float64(e.RTT)/float64(time.Millisecond))
		}
		p.AddField("count", 1)
	case fb.LinkEventKindSuppressionChanged:
		p.AddField("suppressed", e.Flag)
		p.AddField("rtt_ms", float64(e.RTT)/float64(time.Millisecond))
	case fb.LinkEventKindIdleChanged:
		p.AddField("idle", e.Flag)
	default:
		p.AddField("count", 1)
	}
	return p
}
