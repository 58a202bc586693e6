package main

import (
	"fmt"

	"github.com/open-teleop/operator/domain/teleop"
	"github.com/open-teleop/operator/pkg/config"
	"github.com/open-teleop/operator/pkg/influx"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/processing"
	"github.com/open-teleop/operator/pkg/telemetry"
	"github.com/open-teleop/operator/pkg/zeromq"
)

// telemetryPipeline owns the export side of link events: the recorder
// feeds the pool, whose workers publish on ZeroMQ and write to InfluxDB.
type telemetryPipeline struct {
	recorder  *telemetry.Recorder
	pool      *processing.ProcessingPool
	publisher *zeromq.Publisher
	writer    *influx.Writer
	logger    customlog.Logger
}

// newTelemetryPipeline returns nil when neither sink is enabled.
func newTelemetryPipeline(cfg *config.Config, clock telemetry.Clock, logger customlog.Logger) (*telemetryPipeline, error) {
	if !cfg.Telemetry.Enabled && !cfg.Influx.Enabled {
		logger.Infof("Telemetry export disabled")
		return nil, nil
	}

	p := &telemetryPipeline{logger: logger}

	var publisher processing.MessagePublisher
	if cfg.Telemetry.Enabled {
		pub, err := zeromq.NewPublisher(cfg.Telemetry.PublishBindAddress, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to start telemetry publisher: %w", err)
		}
		p.publisher = pub
		publisher = pub
	}

	var writers []processing.EventWriter
	if cfg.Influx.Enabled {
		w, err := influx.NewWriter(influx.Options{
			URL:         cfg.Influx.URL,
			Token:       cfg.Influx.Token,
			Org:         cfg.Influx.Org,
			Bucket:      cfg.Influx.Bucket,
			Measurement: cfg.Influx.Measurement,
		}, logger)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to start influx writer: %w", err)
		}
		p.writer = w
		writers = append(writers, w)
	}

	p.pool = processing.NewProcessingPool("telemetry", cfg.Telemetry.Workers, cfg.Telemetry.QueueSize, logger)
	p.pool.SetProcessor(processing.NewFanoutProcessor(publisher, cfg.Telemetry.Topic, writers...))
	p.pool.SetResultHandler(processing.NewLoggingResultHandler(logger).CreateHandlerFunc())
	p.pool.Start()

	p.recorder = telemetry.NewRecorder(p.pool, clock, teleop.ModeVehicle, logger)
	return p, nil
}

// Close drains the pool and releases both sinks.
func (p *telemetryPipeline) Close() {
	if p.pool != nil {
		p.pool.Stop()
	}
	if p.writer != nil {
		p.writer.Close()
	}
	if p.publisher != nil {
		p.publisher.Close()
	}
	if p.recorder != nil {
		p.logger.Infof("Telemetry recorder: %d events submitted, %d dropped", p.recorder.Submitted(), p.recorder.Dropped())
	}
}
