package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chordcast/chordcast-backend/cluster"
)

func testSong(id string) Song {
	return Song{SongID: id, Title: "song " + id, AudioURL: "/audio/" + id + ".mp3"}
}

func recordingOpener(opened *[]string) WindowOpener {
	return func(songID string) error {
		*opened = append(*opened, songID)
		return nil
	}
}

func TestRequesterOpensWindowWhenNoCoordinator(t *testing.T) {
	var opened []string
	rq := NewRequester(
		cluster.NewBus("", "", "w1", nil),
		cluster.NewSharedMem(),
		cluster.DefaultConfig(),
		recordingOpener(&opened),
		nil,
	)

	require.NoError(t, rq.RequestPlay(testSong("a")))
	assert.Equal(t, []string{"a"}, opened)
}

func TestRequesterPublishesWhenCoordinatorAlive(t *testing.T) {
	hub := cluster.NewHub("tok")
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()
	hubUrl := strings.TrimPrefix(srv.URL, "http://")

	meta := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"song_id": "a",
			"title":   "song a",
			"lyric":   "la la la",
		})
	}))
	defer meta.Close()

	liveness := cluster.NewSharedMem()
	liveness.MarkActive()

	sender := cluster.NewBus(hubUrl, "tok", "w1", []string{cluster.TopicPlayer})
	require.NoError(t, sender.Connect())
	defer sender.Close()
	receiver := cluster.NewBus(hubUrl, "tok", "w2", []string{cluster.TopicPlayer})
	require.NoError(t, receiver.Connect())
	defer receiver.Close()

	var opened []string
	rq := NewRequester(sender, liveness, cluster.DefaultConfig(),
		recordingOpener(&opened), NewMetadataClient(meta.URL))

	require.NoError(t, rq.RequestPlay(testSong("a")))

	select {
	case msg := <-receiver.Incoming():
		assert.Equal(t, CmdPlaySong, msg.Command)
		var item PlayableItem
		require.NoError(t, json.Unmarshal(msg.Content, &item))
		assert.Equal(t, "a", item.SongID)
		// lyric was prefetched so the coordinator needs no second trip
		assert.Equal(t, "la la la", item.Lyric)
	case <-time.After(time.Second * 2):
		t.Fatal("timed out waiting for the published command")
	}

	assert.Len(t, opened, 0)
}

func TestRequesterSurvivesLyricFetchFailure(t *testing.T) {
	liveness := cluster.NewSharedMem()
	liveness.MarkActive()

	hub := cluster.NewHub("tok")
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()
	hubUrl := strings.TrimPrefix(srv.URL, "http://")

	sender := cluster.NewBus(hubUrl, "tok", "w1", []string{cluster.TopicPlayer})
	require.NoError(t, sender.Connect())
	defer sender.Close()
	receiver := cluster.NewBus(hubUrl, "tok", "w2", []string{cluster.TopicPlayer})
	require.NoError(t, receiver.Connect())
	defer receiver.Close()

	var opened []string
	rq := NewRequester(sender, liveness, cluster.DefaultConfig(),
		recordingOpener(&opened), NewMetadataClient("http://127.0.0.1:1"))

	// playback proceeds without lyrics rather than failing
	require.NoError(t, rq.RequestEnqueue(testSong("a")))

	select {
	case msg := <-receiver.Incoming():
		assert.Equal(t, CmdAddToQueue, msg.Command)
		var item PlayableItem
		require.NoError(t, json.Unmarshal(msg.Content, &item))
		assert.Equal(t, "", item.Lyric)
	case <-time.After(time.Second * 2):
		t.Fatal("timed out waiting for the published command")
	}
}

func TestRequestReplaceWithNothingToPlay(t *testing.T) {
	var opened []string
	rq := NewRequester(
		cluster.NewBus("", "", "w1", nil),
		cluster.NewSharedMem(),
		cluster.DefaultConfig(),
		recordingOpener(&opened),
		nil,
	)

	require.NoError(t, rq.RequestReplace(nil))
	assert.Len(t, opened, 0)
}
