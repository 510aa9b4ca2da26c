// this file implements the requesting-client side of playback:
// probe liveness, then either open a coordinator window or publish
package main

import (
	"log"
	"time"

	"github.com/chordcast/chordcast-backend/cluster"
)

// WindowOpener opens a fresh coordinator window, handing it the
// initial song id via the player URL path segment. The opened window
// self-registers as live and starts that song on its own.
type WindowOpener func(songID string) error

// Requester is stateless with respect to playback; it only probes and
// publishes. There is no acknowledgment that the coordinator applied
// a published command.
type Requester struct {
	bus        *cluster.Bus
	liveness   cluster.LivenessStore
	cfg        cluster.Config
	openWindow WindowOpener
	meta       *MetadataClient
}

func NewRequester(bus *cluster.Bus, liveness cluster.LivenessStore, cfg cluster.Config,
	openWindow WindowOpener, meta *MetadataClient) *Requester {
	return &Requester{
		bus:        bus,
		liveness:   liveness,
		cfg:        cfg,
		openWindow: openWindow,
		meta:       meta,
	}
}

// buildItem fetches the lyric text up front so the coordinator does
// not need a second round trip. Playback proceeds without lyrics if
// the fetch fails.
func (rq *Requester) buildItem(song Song) PlayableItem {
	item := PlayableItem{
		SongID:   song.SongID,
		Title:    song.Title,
		Artist:   song.Artist,
		CoverURL: song.CoverURL,
		AudioURL: song.AudioURL,
		Lyric:    song.Lyric,
	}
	if item.Lyric == "" && rq.meta != nil {
		lyric, err := rq.meta.FetchLyric(song.SongID)
		if err != nil {
			log.Println("lyric fetch failed for", song.SongID, "err:", err)
		} else {
			item.Lyric = lyric
		}
	}
	return item
}

func (rq *Requester) RequestPlay(song Song) error {
	return rq.request(CmdPlaySong, song)
}

func (rq *Requester) RequestEnqueue(song Song) error {
	return rq.request(CmdAddToQueue, song)
}

func (rq *Requester) RequestReplace(songs []Song) error {
	if !rq.liveness.Probe(rq.cfg.StaleAfter) {
		if len(songs) == 0 {
			return nil
		}
		return rq.openWindow(songs[0].SongID)
	}

	items := make([]PlayableItem, 0, len(songs))
	for _, s := range songs {
		items = append(items, rq.buildItem(s))
	}
	return rq.bus.Publish(cluster.TopicPlayer, CmdReplacePlaylist, items)
}

func (rq *Requester) request(command string, song Song) error {
	if !rq.liveness.Probe(rq.cfg.StaleAfter) {
		log.Println("no live coordinator, opening a player window for", song.SongID)
		return rq.openWindow(song.SongID)
	}
	return rq.bus.Publish(cluster.TopicPlayer, command, rq.buildItem(song))
}

// RequestPlayWithFallback is the best-effort answer to a coordinator
// that reads alive but is gone: publish, wait out the staleness
// window, and open a window ourselves if the record died meanwhile.
func (rq *Requester) RequestPlayWithFallback(song Song) error {
	if err := rq.request(CmdPlaySong, song); err != nil {
		return err
	}
	time.Sleep(rq.cfg.StaleAfter)
	if !rq.liveness.Probe(rq.cfg.StaleAfter) {
		log.Println("coordinator went stale after publish, opening window")
		return rq.openWindow(song.SongID)
	}
	return nil
}
