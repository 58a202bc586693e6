package diagnostic

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/operator/domain/teleop"
)

// LinkMetrics represents vehicle link diagnostics
type LinkMetrics struct {
	Timestamp      time.Time         `json:"timestamp"`
	StartedAt      time.Time         `json:"started_at"`
	Uptime         string            `json:"uptime"`
	Connected      bool              `json:"connected"`
	Connects       int64             `json:"connects"`
	Dropped        int64             `json:"dropped_frames"`
	Disconnects    int64             `json:"disconnects"`
	LastLinkError  string            `json:"last_link_error,omitempty"`
	CommandsSent   int64             `json:"commands_sent"`
	Acks           int64             `json:"acks"`
	MeasuredAcks   int64             `json:"measured_acks"`
	LastRTTMs      float64           `json:"last_rtt_ms"`
	AvgRTTMs       float64           `json:"avg_rtt_ms"`
	MaxRTTMs       float64           `json:"max_rtt_ms"`
	Suppressed     bool              `json:"suppressed"`
	Suppressions   int64             `json:"suppressions"`
	Idle           bool              `json:"idle"`
	Mode           teleop.DeviceMode `json:"mode"`
	LastCommandAt  *time.Time        `json:"last_command_at,omitempty"`
	LastCommandAgo string            `json:"last_command_ago,omitempty"`
}

// LinkStats is implemented by the transport client
type LinkStats interface {
	Connected() bool
	Connects() int64
	Dropped() int64
}

// DiagnosticService collects link diagnostics from session events
type DiagnosticService struct {
	mu       sync.RWMutex
	metrics  LinkMetrics
	totalRTT time.Duration
	link     LinkStats
	now      func() time.Time
}

var _ teleop.Observer = (*DiagnosticService)(nil)

// NewDiagnosticService creates a new diagnostic service instance
func NewDiagnosticService(link LinkStats) *DiagnosticService {
	now := time.Now()
	return &DiagnosticService{
		metrics: LinkMetrics{
			Timestamp: now,
			StartedAt: now,
			Mode:      teleop.ModeVehicle,
		},
		link: link,
		now:  time.Now,
	}
}

// GetMetricsHandler handles API requests for link metrics
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"metrics": s.GetMetrics(),
	})
}

// GetMetrics returns a snapshot of the current link metrics
func (s *DiagnosticService) GetMetrics() LinkMetrics {
	s.mu.RLock()
	m := s.metrics
	s.mu.RUnlock()

	now := s.now()
	m.Timestamp = now
	m.Uptime = humanize.RelTime(m.StartedAt, now, "", "")
	if m.LastCommandAt != nil {
		at := *m.LastCommandAt
		m.LastCommandAt = &at
		m.LastCommandAgo = humanize.RelTime(at, now, "ago", "from now")
	}
	if s.link != nil {
		m.Connected = s.link.Connected()
		m.Connects = s.link.Connects()
		m.Dropped = s.link.Dropped()
	}
	return m
}

func (s *DiagnosticService) CommandSent(_ teleop.CommandMessage, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.CommandsSent++
	s.metrics.LastCommandAt = &at
}

func (s *DiagnosticService) CommandAcknowledged(_ teleop.CommandStatus, rtt time.Duration, measured bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Acks++
	if !measured {
		return
	}
	s.metrics.MeasuredAcks++
	s.totalRTT += rtt
	s.metrics.LastRTTMs = toMs(rtt)
	s.metrics.AvgRTTMs = toMs(s.totalRTT / time.Duration(s.metrics.MeasuredAcks))
	if ms := toMs(rtt); ms > s.metrics.MaxRTTMs {
		s.metrics.MaxRTTMs = ms
	}
}

func (s *DiagnosticService) SuppressionChanged(suppressed bool, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Suppressed = suppressed
	if suppressed {
		s.metrics.Suppressions++
	}
}

func (s *DiagnosticService) IdleChanged(idle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Idle = idle
}

func (s *DiagnosticService) ModeChanged(mode teleop.DeviceMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Mode = mode
}

// LinkDropped records a lost vehicle connection.
func (s *DiagnosticService) LinkDropped(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Disconnects++
	if err != nil {
		s.metrics.LastLinkError = err.Error()
	}
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
