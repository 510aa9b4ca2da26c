// this file implements the full-screen sheet viewer and its navigation
package main

import (
	"log"

	"github.com/chordcast/chordcast-backend/cluster"
)

// commands understood over the presentation topic, so a second
// operator window can drive the viewer
const (
	CmdPresNext       = "PRES_NEXT"
	CmdPresPrev       = "PRES_PREV"
	CmdPresToggleHide = "PRES_TOGGLE_HIDE"
	CmdPresSave       = "PRES_SAVE"
)

type Half int

const (
	HalfTop Half = iota
	HalfBottom
)

func (h Half) String() string {
	if h == HalfBottom {
		return "bottom"
	}
	return "top"
}

const (
	// the source image is laid out at a fixed logical height of 200vh
	// so exactly one half is visible at a time
	sheetHeightVh = 200

	offsetStepVh = 0.5
	zoomStep     = 0.01
	zoomMin      = 0.1
	zoomMax      = 5.0
)

// Key is one keyboard input while the viewer has focus.
type Key struct {
	Name string
	Ctrl bool
}

// PresentationEngine walks an ordered queue of sheet images, two
// independently pannable halves per image. Viewport params live in the
// ParamStore so they survive reloads.
type PresentationEngine struct {
	queue  []PresentationItem
	params *ParamStore

	index      int
	half       Half
	fullscreen bool
	exited     bool
}

func NewPresentationEngine(queue []PresentationItem, params *ParamStore) *PresentationEngine {
	return &PresentationEngine{
		queue:  queue,
		params: params,
		index:  0,
		half:   HalfTop,
	}
}

// Empty reports the terminal no-content state; only exit works then.
func (e *PresentationEngine) Empty() bool {
	return len(e.queue) == 0
}

func (e *PresentationEngine) Exited() bool {
	return e.exited
}

func (e *PresentationEngine) Fullscreen() bool {
	return e.fullscreen
}

func (e *PresentationEngine) Current() (PresentationItem, Half) {
	if e.Empty() {
		return PresentationItem{}, HalfTop
	}
	return e.queue[e.index], e.half
}

func (e *PresentationEngine) currentParams() ViewportParams {
	if e.Empty() {
		return DefaultViewportParams()
	}
	return e.params.Get(e.queue[e.index].SongID)
}

// Next moves to the bottom half first, then to the top of the next
// item, wrapping past the end. A hidden bottom half is skipped.
func (e *PresentationEngine) Next() {
	if e.Empty() {
		return
	}
	vp := e.currentParams()
	if e.half == HalfTop && !vp.HideBottom {
		e.half = HalfBottom
		return
	}
	e.index = (e.index + 1) % len(e.queue)
	e.half = HalfTop
}

// Prev mirrors Next: up to the top half, else back to the previous
// item, landing on its bottom half unless that half is hidden.
func (e *PresentationEngine) Prev() {
	if e.Empty() {
		return
	}
	if e.half == HalfBottom {
		e.half = HalfTop
		return
	}
	e.index = (e.index - 1 + len(e.queue)) % len(e.queue)
	if e.params.Get(e.queue[e.index].SongID).HideBottom {
		e.half = HalfTop
	} else {
		e.half = HalfBottom
	}
}

// ToggleHideBottom flips the current item's hideBottom. If the viewer
// is sitting on the bottom half it is forced back to top, since that
// half is no longer reachable.
func (e *PresentationEngine) ToggleHideBottom() {
	if e.Empty() {
		return
	}
	songID := e.queue[e.index].SongID
	e.params.Mutate(songID, func(vp *ViewportParams) {
		vp.HideBottom = !vp.HideBottom
	})
	if e.params.Get(songID).HideBottom && e.half == HalfBottom {
		e.half = HalfTop
	}
}

func (e *PresentationEngine) mutateHalf(fn func(*HalfParams)) {
	if e.Empty() {
		return
	}
	half := e.half
	e.params.Mutate(e.queue[e.index].SongID, func(vp *ViewportParams) {
		if half == HalfBottom {
			fn(&vp.Bottom)
		} else {
			fn(&vp.Top)
		}
	})
}

func (e *PresentationEngine) AdjustOffset(deltaVh float64) {
	e.mutateHalf(func(hp *HalfParams) {
		hp.OffsetVh += deltaVh
	})
}

func (e *PresentationEngine) AdjustZoom(delta float64) {
	e.mutateHalf(func(hp *HalfParams) {
		hp.Zoom += delta
		if hp.Zoom < zoomMin {
			hp.Zoom = zoomMin
		}
		if hp.Zoom > zoomMax {
			hp.Zoom = zoomMax
		}
	})
}

func (e *PresentationEngine) ResetHalf() {
	e.mutateHalf(func(hp *HalfParams) {
		hp.OffsetVh = 0
		hp.Zoom = 1
	})
}

// VisibleStartVh is where the visible window starts inside the 200vh
// source: offsetVh for the top half, -100*zoom+offsetVh for the
// bottom, with Scale() applied uniformly on top.
func (e *PresentationEngine) VisibleStartVh() float64 {
	vp := e.currentParams()
	if e.half == HalfBottom {
		return -100*vp.Bottom.Zoom + vp.Bottom.OffsetVh
	}
	return vp.Top.OffsetVh
}

func (e *PresentationEngine) Scale() float64 {
	vp := e.currentParams()
	if e.half == HalfBottom {
		return vp.Bottom.Zoom
	}
	return vp.Top.Zoom
}

func (e *PresentationEngine) ToggleFullscreen() {
	e.fullscreen = !e.fullscreen
}

// Save pushes the whole params mapping to the remote store. Failure is
// reported to the caller; local state stays as-is either way.
func (e *PresentationEngine) Save() error {
	return e.params.Save()
}

// Apply executes one command received over the presentation topic.
func (e *PresentationEngine) Apply(msg cluster.Message) {
	switch msg.Command {
	case CmdPresNext:
		e.Next()
	case CmdPresPrev:
		e.Prev()
	case CmdPresToggleHide:
		e.ToggleHideBottom()
	case CmdPresSave:
		if err := e.Save(); err != nil {
			log.Println("failed to save presentation params err:", err)
		}
	default:
		log.Println("unknown presentation command", msg.Command)
	}
}

// HandleKey implements the keyboard contract of the viewer. In the
// empty state only escape does anything.
func (e *PresentationEngine) HandleKey(k Key) {
	if e.Empty() {
		if k.Name == "Escape" {
			if e.fullscreen {
				e.fullscreen = false
			} else {
				e.exited = true
			}
		}
		return
	}

	if k.Ctrl && (k.Name == "s" || k.Name == "S") {
		if err := e.Save(); err != nil {
			log.Println("failed to save presentation params err:", err)
		}
		return
	}

	switch k.Name {
	case "ArrowRight", " ":
		e.Next()
	case "ArrowLeft":
		e.Prev()
	case "Escape":
		if e.fullscreen {
			e.fullscreen = false
		} else {
			e.exited = true
		}
	case "f":
		e.ToggleFullscreen()
	case "ArrowUp", "w":
		e.AdjustOffset(+offsetStepVh)
	case "ArrowDown", "s":
		e.AdjustOffset(-offsetStepVh)
	case "+", "=":
		e.AdjustZoom(+zoomStep)
	case "-":
		e.AdjustZoom(-zoomStep)
	case "0", "r":
		e.ResetHalf()
	}
}
