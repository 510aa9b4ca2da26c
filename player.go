// this file deals with the playback state owned by the coordinator window
package main

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/chordcast/chordcast-backend/cluster"
)

// commands understood by the coordinator over the player topic
const (
	CmdPlaySong        = "PLAY_SONG"
	CmdAddToQueue      = "ADD_TO_QUEUE"
	CmdReplacePlaylist = "REPLACE_PLAYLIST"
	CmdPlayNext        = "PLAY_NEXT"
	CmdPlayPrev        = "PLAY_PREV"
	CmdPause           = "PAUSE"
	CmdResume          = "RESUME"
	CmdSeek            = "SEEK"
	CmdSetVolume       = "SET_VOLUME"
)

type PlayMode int

const (
	ModeSequence PlayMode = iota
	ModeShuffle
	ModeSingle
)

func (m PlayMode) String() string {
	switch m {
	case ModeSequence:
		return "sequence"
	case ModeShuffle:
		return "shuffle"
	case ModeSingle:
		return "single"
	default:
		return "unknown"
	}
}

// ErrAutoplayBlocked is returned by an AudioOutput whose backend
// refuses to start playback without a user gesture.
var ErrAutoplayBlocked = errors.New("playback blocked pending user interaction")

// AudioOutput is the audio element behind the coordinator. The real
// one lives outside this repository; tests plug in a fake.
type AudioOutput interface {
	Play(item PlayableItem) error
	Pause()
	Seek(seconds float64)
	SetVolume(v float64)
}

type PlaybackState struct {
	CurrentSongID  string   `json:"current_song_id"`
	IsPlaying      bool     `json:"is_playing"`
	CurrentTimeSec float64  `json:"current_time_sec"`
	DurationSec    float64  `json:"duration_sec"`
	Volume         float64  `json:"volume"`
	Mode           PlayMode `json:"mode"`
}

// Player is the coordinator's authoritative playlist and cursor.
// State lives only here and is never persisted; a fresh window starts
// empty and gets rebuilt via commands. All mutations arrive on the
// window service's dispatch goroutine, so there is no lock.
type Player struct {
	playlist []PlayableItem
	state    PlaybackState
	out      AudioOutput
	rng      *rand.Rand

	// true while parked in the waiting-for-interaction sub-state
	waitingForGesture bool
}

func NewPlayer(out AudioOutput) *Player {
	return &Player{
		playlist: make([]PlayableItem, 0),
		state: PlaybackState{
			Volume: 1,
			Mode:   ModeSequence,
		},
		out: out,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *Player) State() PlaybackState {
	return p.state
}

func (p *Player) Playlist() []PlayableItem {
	return p.playlist
}

func (p *Player) WaitingForGesture() bool {
	return p.waitingForGesture
}

func (p *Player) indexOf(songID string) int {
	for i, item := range p.playlist {
		if item.SongID == songID {
			return i
		}
	}
	return -1
}

// appendIfAbsent ignores duplicate ids; the id is the sole identity key.
func (p *Player) appendIfAbsent(item PlayableItem) {
	if p.indexOf(item.SongID) == -1 {
		p.playlist = append(p.playlist, item)
	}
}

// PlaySong appends the item and makes it current, except when a track
// is already in progress: then it is only enqueued. Never yank audio
// away from a live presentation.
func (p *Player) PlaySong(item PlayableItem) {
	p.appendIfAbsent(item)
	if p.state.IsPlaying {
		log.Println("already playing, enqueued", item.SongID)
		return
	}
	p.startPlayback(item)
}

// AddToQueue appends the item; playback starts only if nothing is
// currently playing.
func (p *Player) AddToQueue(item PlayableItem) {
	p.appendIfAbsent(item)
	if !p.state.IsPlaying {
		p.startPlayback(item)
	}
}

// ReplacePlaylist atomically installs the new list and plays its first
// element. An empty list stops playback and clears the cursor.
func (p *Player) ReplacePlaylist(items []PlayableItem) {
	p.playlist = make([]PlayableItem, 0, len(items))
	for _, item := range items {
		p.appendIfAbsent(item)
	}

	if len(p.playlist) == 0 {
		p.out.Pause()
		p.state.IsPlaying = false
		p.state.CurrentSongID = ""
		p.state.CurrentTimeSec = 0
		p.waitingForGesture = false
		return
	}
	p.startPlayback(p.playlist[0])
}

func (p *Player) startPlayback(item PlayableItem) {
	p.state.CurrentSongID = item.SongID
	p.state.CurrentTimeSec = 0

	err := p.out.Play(item)
	if err == ErrAutoplayBlocked {
		// park until the next user gesture; no retry loop
		log.Println("autoplay blocked, waiting for a user gesture")
		p.waitingForGesture = true
		p.state.IsPlaying = false
		return
	}
	if err != nil {
		log.Println("failed to start playback of", item.SongID, "err:", err)
		p.state.IsPlaying = false
		return
	}
	p.waitingForGesture = false
	p.state.IsPlaying = true
}

// Gesture retries a blocked play call. Called on the first user
// interaction of any kind after the block; if the retry is rejected
// again we keep waiting for the next gesture.
func (p *Player) Gesture() {
	if !p.waitingForGesture {
		return
	}
	idx := p.indexOf(p.state.CurrentSongID)
	if idx == -1 {
		p.waitingForGesture = false
		return
	}
	p.startPlayback(p.playlist[idx])
}

func (p *Player) PlayNext() {
	p.step(+1)
}

func (p *Player) PlayPrev() {
	p.step(-1)
}

func (p *Player) step(dir int) {
	if len(p.playlist) == 0 {
		return
	}

	switch p.state.Mode {
	case ModeSingle:
		// restart the current track, cursor untouched
		idx := p.indexOf(p.state.CurrentSongID)
		if idx != -1 {
			p.out.Seek(0)
			p.startPlayback(p.playlist[idx])
		}
		return

	case ModeShuffle:
		// uniformly random, repeats allowed
		p.startPlayback(p.playlist[p.rng.Intn(len(p.playlist))])
		return

	default:
		idx := p.indexOf(p.state.CurrentSongID)
		next := (idx + dir + len(p.playlist)) % len(p.playlist)
		p.startPlayback(p.playlist[next])
	}
}

func (p *Player) Pause() {
	p.out.Pause()
	p.state.IsPlaying = false
}

func (p *Player) Resume() {
	idx := p.indexOf(p.state.CurrentSongID)
	if idx == -1 {
		return
	}
	p.startPlayback(p.playlist[idx])
}

func (p *Player) Seek(seconds float64) {
	p.out.Seek(seconds)
	p.state.CurrentTimeSec = seconds
}

func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.out.SetVolume(v)
	p.state.Volume = v
}

func (p *Player) SetMode(mode PlayMode) {
	p.state.Mode = mode
}

// SetProgress is fed by the audio element's time updates.
func (p *Player) SetProgress(currentSec, durationSec float64) {
	p.state.CurrentTimeSec = currentSec
	p.state.DurationSec = durationSec
}

// OnTrackEnded advances playback when the audio element reports the
// end of the current track.
func (p *Player) OnTrackEnded() {
	p.PlayNext()
}

// Apply decodes and executes one command received over the player
// topic. Unknown commands and malformed payloads are dropped.
func (p *Player) Apply(msg cluster.Message) {
	switch msg.Command {
	case CmdPlaySong, CmdAddToQueue:
		var item PlayableItem
		if err := json.Unmarshal(msg.Content, &item); err != nil {
			log.Println("cannot understand", msg.Command, "payload err:", err)
			return
		}
		if msg.Command == CmdPlaySong {
			p.PlaySong(item)
		} else {
			p.AddToQueue(item)
		}

	case CmdReplacePlaylist:
		var items []PlayableItem
		if err := json.Unmarshal(msg.Content, &items); err != nil {
			log.Println("cannot understand playlist payload err:", err)
			return
		}
		p.ReplacePlaylist(items)

	case CmdPlayNext:
		p.PlayNext()

	case CmdPlayPrev:
		p.PlayPrev()

	case CmdPause:
		p.Pause()

	case CmdResume:
		p.Resume()

	case CmdSeek:
		var seconds float64
		if err := json.Unmarshal(msg.Content, &seconds); err != nil {
			return
		}
		p.Seek(seconds)

	case CmdSetVolume:
		var v float64
		if err := json.Unmarshal(msg.Content, &v); err != nil {
			return
		}
		p.SetVolume(v)

	default:
		log.Println("unknown player command", msg.Command)
	}
}
