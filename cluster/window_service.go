package cluster

import (
	"log"
	"sync"
	"time"
)

type WindowRole int

const (
	RoleCoordinator WindowRole = iota
	RoleRequester
)

func (r WindowRole) String() string {
	switch r {
	case RoleCoordinator:
		return "coordinator"
	case RoleRequester:
		return "requester"
	default:
		return "unknown"
	}
}

// WindowService ties one window to the shared primitives: it decides
// the window's role exactly once at startup via the liveness probe,
// emits heartbeats while this window is the coordinator, and fans
// incoming bus messages out per topic. The role is never re-evaluated
// mid-session.
type WindowService struct {
	bus      *Bus
	liveness LivenessStore
	cfg      Config

	Role     WindowRole
	WindowID string

	// decisions based on current state
	ShouldStartPlayer chan bool

	PlayerCommands       chan Message
	PresentationCommands chan Message

	stopChan chan interface{}
}

func NewWindowService(bus *Bus, liveness LivenessStore, cfg Config, windowID string) *WindowService {
	return &WindowService{
		bus:      bus,
		liveness: liveness,
		cfg:      cfg,

		WindowID: windowID,

		ShouldStartPlayer: make(chan bool, 1),

		PlayerCommands:       make(chan Message, 10),
		PresentationCommands: make(chan Message, 10),

		stopChan: make(chan interface{}, 1),
	}
}

// Start decides the role and runs the dispatch loop until Shutdown.
// wantCoordinator is set by a window opened through the player URL:
// such a window claims ownership regardless of the probe, because it
// was opened precisely to become the coordinator.
func (this *WindowService) Start(wantCoordinator bool, parentwg *sync.WaitGroup) {
	defer parentwg.Done()

	if wantCoordinator || !this.liveness.Probe(this.cfg.StaleAfter) {
		this.Role = RoleCoordinator
		this.liveness.MarkActive()
		this.ShouldStartPlayer <- true
		log.Println("I proclaim myself as the player coordinator.")
	} else {
		this.Role = RoleRequester
		this.ShouldStartPlayer <- false
		log.Println("Someone else is already the coordinator.")
	}

	ticker := time.NewTicker(this.cfg.HeartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if this.Role == RoleCoordinator {
				this.liveness.MarkActive()
			}

		case msg, ok := <-this.bus.Incoming():
			if !ok {
				log.Println("bus connection lost, dispatch ends here")
				return
			}
			this.route(msg)

		case <-this.stopChan:
			// clear the flag best-effort; a window killed abruptly
			// never gets here and is only discovered via staleness
			if this.Role == RoleCoordinator {
				this.liveness.MarkInactive()
			}
			return
		}
	}
}

func (this *WindowService) route(msg Message) {
	switch msg.Topic {
	case TopicPlayer:
		this.PlayerCommands <- msg
	case TopicPresentation:
		this.PresentationCommands <- msg
	default:
		log.Println("message for unknown topic", msg.Topic)
	}
}

func (this *WindowService) Shutdown() {
	this.bus.Close()

	select {
	case this.stopChan <- true:
	default:
	}
}
