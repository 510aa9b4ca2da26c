// this file builds the presentation queue, resolving multi-sheet songs
package main

import (
	"log"
	"strings"

	"github.com/chordcast/chordcast-backend/cluster"
)

const shmSheetPrefsKey = "sheet_preferences"

// SheetClassifier decides whether an image path is a chord sheet. The
// real heuristic lives with the upload pipeline; this default only
// looks at the filename.
type SheetClassifier func(path string) bool

func DefaultSheetClassifier(path string) bool {
	name := strings.ToLower(path)
	return strings.Contains(name, "chord")
}

// SheetConflict is a song whose chord-sheet choice needs a one-time
// user decision.
type SheetConflict struct {
	SongID     string   `json:"song_id"`
	Title      string   `json:"title"`
	Candidates []string `json:"candidates"`
}

// SheetResolver picks exactly one chord sheet per song, remembering
// choices per device. Conflicts are resolved strictly one at a time,
// in order; there is no bulk resolution.
type SheetResolver struct {
	shm      *cluster.SharedMem
	prefRepo PreferenceRepository
	classify SheetClassifier

	queue     []PresentationItem
	conflicts []SheetConflict
}

func NewSheetResolver(shm *cluster.SharedMem, prefRepo PreferenceRepository, classify SheetClassifier) *SheetResolver {
	if classify == nil {
		classify = DefaultSheetClassifier
	}
	sr := &SheetResolver{
		shm:      shm,
		prefRepo: prefRepo,
		classify: classify,
	}

	// warm the device-local cache from the repository
	if prefRepo != nil {
		sr.shm.WriteVar(shmSheetPrefsKey, prefRepo.GetAllPreferences())
	}
	return sr
}

func (sr *SheetResolver) preferences() map[string]string {
	if prefs, ok := sr.shm.ReadVar(shmSheetPrefsKey).(map[string]string); ok {
		return prefs
	}
	return map[string]string{}
}

func (sr *SheetResolver) preference(songID string) (string, bool) {
	path, ok := sr.preferences()[songID]
	return path, ok
}

func (sr *SheetResolver) setPreference(songID, path string) {
	prefs := sr.preferences()
	updated := make(map[string]string, len(prefs)+1)
	for k, v := range prefs {
		updated[k] = v
	}
	updated[songID] = path
	sr.shm.WriteVar(shmSheetPrefsKey, updated)

	if sr.prefRepo != nil {
		if err := sr.prefRepo.SetPreference(songID, path); err != nil {
			log.Println("failed to persist sheet preference err:", err)
		}
	}
}

func (sr *SheetResolver) ClearPreference(songID string) {
	prefs := sr.preferences()
	updated := make(map[string]string, len(prefs))
	for k, v := range prefs {
		if k != songID {
			updated[k] = v
		}
	}
	sr.shm.WriteVar(shmSheetPrefsKey, updated)

	if sr.prefRepo != nil {
		if err := sr.prefRepo.ClearPreference(songID); err != nil {
			log.Println("failed to clear sheet preference err:", err)
		}
	}
}

// Build walks the songs in order. Zero candidates drops the song
// silently, one is used directly, several defer to the cached choice
// or queue a conflict.
func (sr *SheetResolver) Build(songs []Song) {
	sr.queue = make([]PresentationItem, 0, len(songs))
	sr.conflicts = make([]SheetConflict, 0)

	for _, song := range songs {
		candidates := make([]string, 0, len(song.Sheets))
		for _, path := range song.Sheets {
			if sr.classify(path) {
				candidates = append(candidates, path)
			}
		}

		switch {
		case len(candidates) == 0:
			// silent skip, not an error

		case len(candidates) == 1:
			sr.queue = append(sr.queue, PresentationItem{
				SongID:        song.SongID,
				Title:         song.Title,
				SheetImageURL: candidates[0],
			})

		default:
			if chosen, ok := sr.preference(song.SongID); ok && contains(candidates, chosen) {
				sr.queue = append(sr.queue, PresentationItem{
					SongID:        song.SongID,
					Title:         song.Title,
					SheetImageURL: chosen,
				})
				continue
			}
			sr.conflicts = append(sr.conflicts, SheetConflict{
				SongID:     song.SongID,
				Title:      song.Title,
				Candidates: candidates,
			})
		}
	}
}

func contains(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}

// CurrentConflict returns the one conflict the user may act on now.
func (sr *SheetResolver) CurrentConflict() (SheetConflict, bool) {
	if len(sr.conflicts) == 0 {
		return SheetConflict{}, false
	}
	return sr.conflicts[0], true
}

// Resolve settles the current conflict with the chosen path: stores
// the preference for future builds, appends the item to the queue and
// advances to the next conflict.
func (sr *SheetResolver) Resolve(choice string) {
	conflict, ok := sr.CurrentConflict()
	if !ok {
		return
	}
	if !contains(conflict.Candidates, choice) {
		log.Println(choice, "is not a candidate for", conflict.SongID)
		return
	}

	sr.setPreference(conflict.SongID, choice)
	sr.queue = append(sr.queue, PresentationItem{
		SongID:        conflict.SongID,
		Title:         conflict.Title,
		SheetImageURL: choice,
	})
	sr.conflicts = sr.conflicts[1:]
}

// Done reports whether the caller may proceed to the viewer.
func (sr *SheetResolver) Done() bool {
	return len(sr.conflicts) == 0
}

func (sr *SheetResolver) Queue() []PresentationItem {
	return sr.queue
}
