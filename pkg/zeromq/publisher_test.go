package zeromq

import (
	"fmt"
	"testing"
	"time"

	"github.com/pebbe/zmq4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customlog "github.com/open-teleop/operator/pkg/log"
)

// TestPublisherDeliversTopicFrames subscribes over inproc and publishes
// until the subscription has joined.
func TestPublisherDeliversTopicFrames(t *testing.T) {
	address := fmt.Sprintf("inproc://telemetry-%d", time.Now().UnixNano())
	pub, err := NewPublisher(address, customlog.Discard())
	require.NoError(t, err)
	defer pub.Close()

	sub, err := zmq4.NewSocket(zmq4.SUB)
	require.NoError(t, err)
	defer sub.Close()
	require.NoError(t, sub.Connect(address))
	require.NoError(t, sub.SetSubscribe("teleop.link"))
	require.NoError(t, sub.SetRcvtimeo(50*time.Millisecond))

	var frames [][]byte
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, pub.PublishMessage("ignored.topic", []byte("nope")))
		require.NoError(t, pub.PublishMessage("teleop.link", []byte{0x01, 0x02}))
		frames, err = sub.RecvMessageBytes(0)
		if err == nil {
			break
		}
	}

	require.Len(t, frames, 2)
	assert.Equal(t, "teleop.link", string(frames[0]))
	assert.Equal(t, []byte{0x01, 0x02}, frames[1])
}

func TestPublisherClosed(t *testing.T) {
	pub, err := NewPublisher(fmt.Sprintf("inproc://closed-%d", time.Now().UnixNano()), customlog.Discard())
	require.NoError(t, err)

	pub.Close()
	pub.Close()
	assert.ErrorIs(t, pub.PublishMessage("teleop.link", nil), ErrPublisherClosed)
}

func TestPublisherBindError(t *testing.T) {
	_, err := NewPublisher("not-an-endpoint", customlog.Discard())
	assert.Error(t, err)
}
