package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chordcast/chordcast-backend/cluster"
)

func newTestEngine(t *testing.T, ids ...string) (*PresentationEngine, *ParamStore) {
	t.Helper()
	queue := make([]PresentationItem, 0, len(ids))
	for _, id := range ids {
		queue = append(queue, PresentationItem{
			SongID:        id,
			Title:         "song " + id,
			SheetImageURL: id + "-chords.png",
		})
	}
	store := NewParamStore(cluster.NewSharedMem(), "", "")
	return NewPresentationEngine(queue, store), store
}

func hideBottom(store *ParamStore, songID string) {
	store.Mutate(songID, func(vp *ViewportParams) {
		vp.HideBottom = true
	})
}

func TestNextWalksHalvesThenItems(t *testing.T) {
	e, _ := newTestEngine(t, "a", "b")

	item, half := e.Current()
	require.Equal(t, "a", item.SongID)
	require.Equal(t, HalfTop, half)

	e.Next()
	item, half = e.Current()
	assert.Equal(t, "a", item.SongID)
	assert.Equal(t, HalfBottom, half)

	e.Next()
	item, half = e.Current()
	assert.Equal(t, "b", item.SongID)
	assert.Equal(t, HalfTop, half)
}

func TestNextSkipsHiddenBottom(t *testing.T) {
	e, store := newTestEngine(t, "a", "b")
	hideBottom(store, "a")

	e.Next()
	item, half := e.Current()
	assert.Equal(t, "b", item.SongID)
	assert.Equal(t, HalfTop, half)
}

func TestNextWrapsPastEnd(t *testing.T) {
	e, store := newTestEngine(t, "a", "b")
	hideBottom(store, "a")
	hideBottom(store, "b")

	e.Next()
	e.Next()
	item, half := e.Current()
	assert.Equal(t, "a", item.SongID)
	assert.Equal(t, HalfTop, half)
}

func TestPrevWrapsToLastBottom(t *testing.T) {
	e, _ := newTestEngine(t, "a", "b", "c")

	e.Prev()
	item, half := e.Current()
	assert.Equal(t, "c", item.SongID)
	assert.Equal(t, HalfBottom, half)
}

func TestPrevWrapsToLastTopWhenBottomHidden(t *testing.T) {
	e, store := newTestEngine(t, "a", "b", "c")
	hideBottom(store, "c")

	e.Prev()
	item, half := e.Current()
	assert.Equal(t, "c", item.SongID)
	assert.Equal(t, HalfTop, half)
}

func TestPrevFromBottomGoesToTopOfSameItem(t *testing.T) {
	e, _ := newTestEngine(t, "a", "b")
	e.Next() // (a, bottom)

	e.Prev()
	item, half := e.Current()
	assert.Equal(t, "a", item.SongID)
	assert.Equal(t, HalfTop, half)
}

func TestToggleHideBottomForcesTop(t *testing.T) {
	e, _ := newTestEngine(t, "a")
	e.Next() // (a, bottom)

	e.ToggleHideBottom()
	_, half := e.Current()
	assert.Equal(t, HalfTop, half)
}

func TestZoomAlwaysClamped(t *testing.T) {
	e, store := newTestEngine(t, "a")

	for i := 0; i < 1000; i++ {
		e.AdjustZoom(+zoomStep)
	}
	assert.InDelta(t, zoomMax, store.Get("a").Top.Zoom, 1e-9)

	for i := 0; i < 2000; i++ {
		e.AdjustZoom(-zoomStep)
	}
	assert.InDelta(t, zoomMin, store.Get("a").Top.Zoom, 1e-9)
}

func TestViewportMath(t *testing.T) {
	e, store := newTestEngine(t, "a")
	store.Mutate("a", func(vp *ViewportParams) {
		vp.Top = HalfParams{OffsetVh: 3, Zoom: 1.5}
		vp.Bottom = HalfParams{OffsetVh: -2, Zoom: 2}
	})

	assert.InDelta(t, 3.0, e.VisibleStartVh(), 1e-9)
	assert.InDelta(t, 1.5, e.Scale(), 1e-9)

	e.Next() // bottom half
	// -100*zoom + offsetVh
	assert.InDelta(t, -202.0, e.VisibleStartVh(), 1e-9)
	assert.InDelta(t, 2.0, e.Scale(), 1e-9)
}

func TestHalvesPanIndependently(t *testing.T) {
	e, store := newTestEngine(t, "a")

	e.AdjustOffset(+offsetStepVh)
	e.Next()
	e.AdjustOffset(-offsetStepVh)

	vp := store.Get("a")
	assert.InDelta(t, 0.5, vp.Top.OffsetVh, 1e-9)
	assert.InDelta(t, -0.5, vp.Bottom.OffsetVh, 1e-9)
}

func TestEmptyQueueIsTerminal(t *testing.T) {
	e, _ := newTestEngine(t)
	require.True(t, e.Empty())

	e.Next()
	e.Prev()
	e.HandleKey(Key{Name: "ArrowRight"})
	assert.False(t, e.Exited())

	// only exit works
	e.HandleKey(Key{Name: "Escape"})
	assert.True(t, e.Exited())
}

func TestKeyboardContract(t *testing.T) {
	e, store := newTestEngine(t, "a", "b")

	e.HandleKey(Key{Name: " "})
	_, half := e.Current()
	assert.Equal(t, HalfBottom, half)

	e.HandleKey(Key{Name: "ArrowLeft"})
	_, half = e.Current()
	assert.Equal(t, HalfTop, half)

	e.HandleKey(Key{Name: "ArrowUp"})
	e.HandleKey(Key{Name: "w"})
	assert.InDelta(t, 1.0, store.Get("a").Top.OffsetVh, 1e-9)

	e.HandleKey(Key{Name: "s"})
	assert.InDelta(t, 0.5, store.Get("a").Top.OffsetVh, 1e-9)

	e.HandleKey(Key{Name: "+"})
	e.HandleKey(Key{Name: "="})
	assert.InDelta(t, 1.02, store.Get("a").Top.Zoom, 1e-9)
	e.HandleKey(Key{Name: "-"})
	assert.InDelta(t, 1.01, store.Get("a").Top.Zoom, 1e-9)

	e.HandleKey(Key{Name: "r"})
	assert.Equal(t, HalfParams{OffsetVh: 0, Zoom: 1}, store.Get("a").Top)

	e.HandleKey(Key{Name: "f"})
	assert.True(t, e.Fullscreen())
	// escape leaves fullscreen first, exits only after
	e.HandleKey(Key{Name: "Escape"})
	assert.False(t, e.Fullscreen())
	assert.False(t, e.Exited())
	e.HandleKey(Key{Name: "Escape"})
	assert.True(t, e.Exited())
}

func TestApplyPresentationCommands(t *testing.T) {
	e, _ := newTestEngine(t, "a", "b")

	e.Apply(cluster.Message{Topic: cluster.TopicPresentation, Command: CmdPresNext})
	_, half := e.Current()
	assert.Equal(t, HalfBottom, half)

	e.Apply(cluster.Message{Topic: cluster.TopicPresentation, Command: CmdPresPrev})
	_, half = e.Current()
	assert.Equal(t, HalfTop, half)

	e.Apply(cluster.Message{Topic: cluster.TopicPresentation, Command: CmdPresToggleHide})
	e.Apply(cluster.Message{Topic: cluster.TopicPresentation, Command: CmdPresNext})
	item, half := e.Current()
	assert.Equal(t, "b", item.SongID)
	assert.Equal(t, HalfTop, half)
}
