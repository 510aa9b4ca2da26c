package cluster

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string, func()) {
	t.Helper()
	hub := NewHub("testtoken")
	srv := httptest.NewServer(hub.Handler())
	hubUrl := strings.TrimPrefix(srv.URL, "http://")
	return hub, hubUrl, srv.Close
}

func connectedBus(t *testing.T, hubUrl, windowID string, topics []string) *Bus {
	t.Helper()
	bus := NewBus(hubUrl, "testtoken", windowID, topics)
	require.NoError(t, bus.Connect())
	return bus
}

func receive(t *testing.T, bus *Bus) Message {
	t.Helper()
	select {
	case msg := <-bus.Incoming():
		return msg
	case <-time.After(time.Second * 2):
		t.Fatal("timed out waiting for a bus message")
		return Message{}
	}
}

func assertSilent(t *testing.T, bus *Bus) {
	t.Helper()
	select {
	case msg := <-bus.Incoming():
		t.Fatal("unexpected message:", msg.Command)
	case <-time.After(time.Millisecond * 200):
	}
}

func TestPublishReachesOtherSubscribersOnly(t *testing.T) {
	_, hubUrl, stop := startHub(t)
	defer stop()

	sender := connectedBus(t, hubUrl, "win-1", []string{TopicPlayer})
	defer sender.Close()
	receiver := connectedBus(t, hubUrl, "win-2", []string{TopicPlayer})
	defer receiver.Close()

	require.NoError(t, sender.Publish(TopicPlayer, "PLAY_SONG", map[string]string{"song_id": "a"}))

	msg := receive(t, receiver)
	assert.Equal(t, "win-1", msg.WindowID)
	assert.Equal(t, TopicPlayer, msg.Topic)
	assert.Equal(t, "PLAY_SONG", msg.Command)

	// never echoed back to the sender
	assertSilent(t, sender)
}

func TestTopicsAreIsolated(t *testing.T) {
	_, hubUrl, stop := startHub(t)
	defer stop()

	sender := connectedBus(t, hubUrl, "win-1", []string{TopicPlayer, TopicPresentation})
	defer sender.Close()
	playerOnly := connectedBus(t, hubUrl, "win-2", []string{TopicPlayer})
	defer playerOnly.Close()

	require.NoError(t, sender.Publish(TopicPresentation, "PRES_NEXT", nil))
	assertSilent(t, playerOnly)

	require.NoError(t, sender.Publish(TopicPlayer, "PLAY_NEXT", nil))
	msg := receive(t, playerOnly)
	assert.Equal(t, "PLAY_NEXT", msg.Command)
}

func TestHubRejectsBadToken(t *testing.T) {
	_, hubUrl, stop := startHub(t)
	defer stop()

	bus := NewBus(hubUrl, "wrongtoken", "win-1", []string{TopicPlayer})
	assert.Error(t, bus.Connect())
}

func TestHubLivenessRoundTrip(t *testing.T) {
	_, hubUrl, stop := startHub(t)
	defer stop()

	liveness := NewHubLiveness(hubUrl, "testtoken")
	assert.False(t, liveness.Probe(time.Second*3))

	liveness.MarkActive()
	assert.True(t, liveness.Probe(time.Second*3))

	liveness.MarkInactive()
	assert.False(t, liveness.Probe(time.Second*3))
}

func TestHubLivenessStaleness(t *testing.T) {
	_, hubUrl, stop := startHub(t)
	defer stop()

	liveness := NewHubLiveness(hubUrl, "testtoken")
	var now = time.Now().UnixNano() / int64(time.Millisecond)
	liveness.nowMillis = func() int64 { return now }

	liveness.MarkActive()
	require.True(t, liveness.Probe(time.Second*3))

	// a coordinator that died between heartbeats reads alive until
	// the threshold elapses
	now += 2999
	assert.True(t, liveness.Probe(time.Second*3))
	now += 1
	assert.False(t, liveness.Probe(time.Second*3))
}

func TestHubLivenessUnreachableMeansDead(t *testing.T) {
	liveness := NewHubLiveness("127.0.0.1:1", "testtoken")
	assert.False(t, liveness.Probe(time.Second * 3))
}

func TestSweepClearsStaleRecord(t *testing.T) {
	hub, hubUrl, stop := startHub(t)
	defer stop()

	liveness := NewHubLiveness(hubUrl, "testtoken")
	liveness.nowMillis = func() int64 {
		// a heartbeat far in the past
		return time.Now().UnixNano()/int64(time.Millisecond) - 10000
	}
	liveness.MarkActive()

	go hub.SweepStaleLiveness(time.Millisecond*100, time.Millisecond*10)
	time.Sleep(time.Millisecond * 100)

	assert.False(t, NewHubLiveness(hubUrl, "testtoken").Probe(time.Hour))
}
