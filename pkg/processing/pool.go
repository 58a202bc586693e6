package processing

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	telemetry "github.com/open-teleop/operator/pkg/flatbuffers/teleop/telemetry"
	customlog "github.com/open-teleop/operator/pkg/log"
)

// ProcessResult is the outcome of exporting one link event
type ProcessResult struct {
	Kind      telemetry.LinkEventKind
	Size      int
	Timestamp int64
	Error     error
}

// ResultHandler is called by a worker after each event
type ResultHandler func(result *ProcessResult)

// EventProcessor exports one encoded link event. It runs on a worker
// goroutine and may block.
type EventProcessor func(ev *telemetry.LinkEvent) error

// PoolMetrics is a snapshot of a pool's counters
type PoolMetrics struct {
	ProcessedCount    int64
	ErrorCount        int64
	QueuedCount       int64
	DroppedCount      int64
	ProcessedBytes    int64
	LastProcessedTime int64
	ProcessingTimeAvg int64 // in microseconds
	ProcessingTimeMax int64 // in microseconds
}

type poolCounters struct {
	processed, errors, queued, dropped, bytes atomic.Int64
	lastProcessed                             atomic.Int64

	// avg is an exponential moving average, max a high-water mark; both
	// are updated together.
	timingMu sync.Mutex
	avgUs    int64
	maxUs    int64
}

func (c *poolCounters) observe(took time.Duration, size int, failed bool) {
	c.processed.Add(1)
	c.bytes.Add(int64(size))
	c.lastProcessed.Store(time.Now().UnixNano())
	if failed {
		c.errors.Add(1)
	}

	us := took.Microseconds()
	c.timingMu.Lock()
	if c.avgUs == 0 {
		c.avgUs = us
	} else {
		c.avgUs += (us - c.avgUs) / 8
	}
	if us > c.maxUs {
		c.maxUs = us
	}
	c.timingMu.Unlock()
}

// ProcessingPool hands encoded link events to a fixed set of workers. The
// producer side never blocks: Submit drops the event when the queue is full.
type ProcessingPool struct {
	name        string
	workerCount int
	logger      customlog.Logger

	mu            sync.Mutex
	running       bool
	eventQueue    chan *telemetry.LinkEvent
	processor     EventProcessor
	resultHandler ResultHandler

	wg       sync.WaitGroup
	counters poolCounters
}

// NewProcessingPool creates a stopped pool
func NewProcessingPool(name string, workerCount, queueSize int, logger customlog.Logger) *ProcessingPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &ProcessingPool{
		name:        name,
		workerCount: workerCount,
		logger:      logger,
		eventQueue:  make(chan *telemetry.LinkEvent, queueSize),
	}
}

// SetProcessor sets the export function used by every worker
func (p *ProcessingPool) SetProcessor(processor EventProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processor = processor
}

// SetResultHandler sets the callback invoked after each event
func (p *ProcessingPool) SetResultHandler(handler ResultHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resultHandler = handler
}

// Submit offers ev to the workers. It returns false, discarding ev, when
// the pool is not running or the queue is full.
func (p *ProcessingPool) Submit(ev *telemetry.LinkEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		p.counters.dropped.Add(1)
		return false
	}

	select {
	case p.eventQueue <- ev:
		p.counters.queued.Add(1)
		return true
	default:
		p.counters.dropped.Add(1)
		p.logger.Debugf("%s pool queue is full, discarding %s event", p.name, ev.Kind())
		return false
	}
}

// Start launches the workers
func (p *ProcessingPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.logger.Infof("Starting %s pool with %d workers", p.name, p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop lets the workers finish what is queued, then returns. A stopped
// pool cannot be restarted.
func (p *ProcessingPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	// Submit sends under mu, so no send can race the close.
	close(p.eventQueue)
	p.mu.Unlock()

	p.logger.Infof("Stopping %s pool", p.name)
	p.wg.Wait()
	p.logMetrics()
}

func (p *ProcessingPool) worker(id int) {
	defer p.wg.Done()
	p.logger.Debugf("%s pool worker %d started", p.name, id)

	for ev := range p.eventQueue {
		p.mu.Lock()
		processor, resultHandler := p.processor, p.resultHandler
		p.mu.Unlock()

		if processor == nil {
			p.logger.Errorf("No event processor set for %s pool", p.name)
			continue
		}

		start := time.Now()
		err := processor(ev)
		size := len(ev.Table().Bytes)
		p.counters.observe(time.Since(start), size, err != nil)

		if resultHandler != nil {
			resultHandler(&ProcessResult{
				Kind:      ev.Kind(),
				Size:      size,
				Timestamp: ev.TimestampNs(),
				Error:     err,
			})
		}
	}

	p.logger.Debugf("%s pool worker %d stopped", p.name, id)
}

// GetMetrics returns a snapshot of the counters
func (p *ProcessingPool) GetMetrics() PoolMetrics {
	c := &p.counters
	c.timingMu.Lock()
	avg, peak := c.avgUs, c.maxUs
	c.timingMu.Unlock()

	return PoolMetrics{
		ProcessedCount:    c.processed.Load(),
		ErrorCount:        c.errors.Load(),
		QueuedCount:       c.queued.Load(),
		DroppedCount:      c.dropped.Load(),
		ProcessedBytes:    c.bytes.Load(),
		LastProcessedTime: c.lastProcessed.Load(),
		ProcessingTimeAvg: avg,
		ProcessingTimeMax: peak,
	}
}

func (p *ProcessingPool) logMetrics() {
	m := p.GetMetrics()
	p.logger.Infof("%s pool stopped: exported=%s (%s), dropped=%s, errors=%s, avg_time=%dµs, max_time=%dµs",
		p.name,
		humanize.Comma(m.ProcessedCount),
		humanize.Bytes(uint64(m.ProcessedBytes)),
		humanize.Comma(m.DroppedCount),
		humanize.Comma(m.ErrorCount),
		m.ProcessingTimeAvg, m.ProcessingTimeMax)
}

// GetName returns the pool name
func (p *ProcessingPool) GetName() string {
	return p.name
}

// GetQueueLength returns the number of queued events
func (p *ProcessingPool) GetQueueLength() int {
	return len(p.eventQueue)
}

// GetQueueCapacity returns the queue size
func (p *ProcessingPool) GetQueueCapacity() int {
	return cap(p.eventQueue)
}
