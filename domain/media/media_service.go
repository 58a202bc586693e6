package media

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"github.com/open-teleop/operator/pkg/eventloop"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/transport"
)

// DefaultFlashDuration is how long the console shows the photo-taken flash.
const DefaultFlashDuration = 500 * time.Millisecond

// frameLogEvery controls how often frame throughput is logged.
const frameLogEvery = 250

var (
	ErrMissingImage = errors.New("video frame has no image")
	ErrEmptyPhotoID = errors.New("photo id is empty")
)

// Channel is the outbound vehicle link.
type Channel interface {
	Send(event string, payload interface{}) error
}

// Broadcaster fans events out to every connected console.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Stats summarises the video stream.
type Stats struct {
	Frames     int64  `json:"frames"`
	Bytes      int64  `json:"bytes"`
	BytesHuman string `json:"bytes_human"`
	AlbumSize  int    `json:"album_size"`
}

// MediaService relays the vehicle's video frames and photo album to the
// console and forwards photo requests back to the vehicle.
type MediaService struct {
	runner  eventloop.Runner
	channel Channel
	console Broadcaster
	logger  customlog.Logger
	flashOn time.Duration

	// flash is only touched on the runner goroutine.
	flash eventloop.Slot

	mu    sync.RWMutex
	album []string

	frames atomic.Int64
	bytes  atomic.Int64
}

// NewMediaService creates a media service. A non-positive flash duration
// uses DefaultFlashDuration.
func NewMediaService(runner eventloop.Runner, channel Channel, console Broadcaster, logger customlog.Logger, flash time.Duration) *MediaService {
	if flash <= 0 {
		flash = DefaultFlashDuration
	}
	return &MediaService{
		runner:  runner,
		channel: channel,
		console: console,
		logger:  logger,
		flashOn: flash,
		album:   []string{},
	}
}

// HandleVideoFrame forwards a video_frame payload to the console unchanged.
func (s *MediaService) HandleVideoFrame(data []byte) error {
	image := gjson.GetBytes(data, "image")
	if image.Type != gjson.String || image.Str == "" {
		return ErrMissingImage
	}

	n := s.frames.Add(1)
	total := s.bytes.Add(int64(base64.StdEncoding.DecodedLen(len(image.Str))))
	if n%frameLogEvery == 0 {
		s.logger.Debugf("Relayed %d video frames (%s)", n, humanize.Bytes(uint64(total)))
	}

	s.console.Broadcast(transport.EventVideoFrame, json.RawMessage(data))
	return nil
}

// HandleAlbum replaces the album with the vehicle's list of photo ids.
func (s *MediaService) HandleAlbum(data []byte) error {
	var album []string
	if err := json.Unmarshal(data, &album); err != nil {
		return fmt.Errorf("failed to decode album: %w", err)
	}
	if album == nil {
		album = []string{}
	}

	s.mu.Lock()
	s.album = album
	s.mu.Unlock()

	s.logger.Infof("Album updated: %d photos", len(album))
	s.console.Broadcast(transport.EventAlbum, album)
	return nil
}

// Album returns a copy of the current photo ids.
func (s *MediaService) Album() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.album))
	copy(out, s.album)
	return out
}

// TakePhoto asks the vehicle for a photo and flashes the console. A second
// request during the flash restarts it.
func (s *MediaService) TakePhoto() {
	if err := s.channel.Send(transport.EventPhoto, nil); err != nil {
		s.logger.Debugf("Photo request dropped: %v", err)
	}
	s.runner.Post(func() {
		s.console.Broadcast(transport.EventPhotoTaken, true)
		s.flash.Replace(s.runner.AfterFunc(s.flashOn, func() {
			s.console.Broadcast(transport.EventPhotoTaken, false)
		}))
	})
}

// DeletePhoto asks the vehicle to delete one photo. The album refresh comes
// back from the vehicle.
func (s *MediaService) DeletePhoto(id string) error {
	if id == "" {
		return ErrEmptyPhotoID
	}
	if err := s.channel.Send(transport.EventDeletePhoto, id); err != nil {
		return fmt.Errorf("failed to request deletion of %s: %w", id, err)
	}
	s.logger.Infof("Requested deletion of photo %s", id)
	return nil
}

// Stats returns the stream counters.
func (s *MediaService) Stats() Stats {
	b := s.bytes.Load()
	return Stats{
		Frames:     s.frames.Load(),
		Bytes:      b,
		BytesHuman: humanize.Bytes(uint64(b)),
		AlbumSize:  len(s.Album()),
	}
}

// AlbumHandler returns the current album
func (s *MediaService) AlbumHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "success",
		"album":  s.Album(),
		"stats":  s.Stats(),
	})
}
