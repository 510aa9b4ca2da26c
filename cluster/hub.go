package cluster

// The hub is the rendezvous point for all windows of one device. It
// fans broadcast messages out to topic subscribers and holds the
// authoritative liveness record. Run it via cmd/bus_hub.

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader websocket.Upgrader

type hubWindow struct {
	windowID string
	topics   map[string]bool

	outgoingChan  chan Message
	interruptChan chan interface{}
}

type Hub struct {
	authToken string

	connMutex *sync.Mutex
	windows   map[string]*hubWindow

	livenessLock *sync.Mutex
	liveness     LivenessRecord
}

func NewHub(authToken string) *Hub {
	return &Hub{
		authToken: authToken,

		connMutex: &sync.Mutex{},
		windows:   make(map[string]*hubWindow),

		livenessLock: &sync.Mutex{},
	}
}

func (this *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", this.healthCheckHandler)
	mux.HandleFunc("/liveness", this.livenessHandler)
	mux.HandleFunc("/ws", this.handleWindowConn)
	return mux
}

func (this *Hub) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "Hub is up and running!")
}

func (this *Hub) livenessHandler(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("auth_token")
	if token != this.authToken {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "Missing/incorrect auth_token header")
		return
	}

	switch r.Method {
	case "GET":
		this.livenessLock.Lock()
		rec := this.liveness
		this.livenessLock.Unlock()
		json.NewEncoder(w).Encode(rec)

	case "POST":
		var rec LivenessRecord
		decoder := json.NewDecoder(r.Body)
		if err := decoder.Decode(&rec); err != nil {
			log.Println("livenessHandler: decode failed")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Bad request")
			return
		}
		this.livenessLock.Lock()
		this.liveness = rec
		this.livenessLock.Unlock()
		fmt.Fprintf(w, "Done")

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (this *Hub) handleWindowConn(w http.ResponseWriter, r *http.Request) {
	var token, windowID string
	token = r.Header.Get("auth_token")
	windowID = r.Header.Get("window_id")

	if token != this.authToken {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "Missing/incorrect auth_token header")
		return
	}

	if _, exists := this.windows[windowID]; exists {
		w.WriteHeader(http.StatusAlreadyReported)
		fmt.Fprint(w, "Already connected")
		return
	}

	topics := make(map[string]bool)
	for _, t := range strings.Split(r.Header.Get("topics"), ",") {
		if t != "" {
			topics[t] = true
		}
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("failed to upgrade ws", err)
		return
	}
	defer ws.Close()

	win := this.registerWindow(windowID, topics)
	defer this.unregisterWindow(windowID)
	log.Println("new window:", windowID, "topics:", r.Header.Get("topics"))

	// receive messages
	go func() {
		for {
			var msg Message
			if err := ws.ReadJSON(&msg); err != nil {
				win.interruptChan <- true
				return
			}
			msg.WindowID = windowID
			this.broadcast(windowID, msg)
		}
	}()

	// send messages
	for {
		select {
		case msg := <-win.outgoingChan:
			if err := ws.WriteJSON(msg); err != nil {
				log.Println("hub failed to send message to", windowID, " err:", err)
				return
			}

		case <-win.interruptChan:
			return
		}
	}
}

// broadcast delivers msg to every subscriber of msg.Topic except the
// sender itself.
func (this *Hub) broadcast(from string, msg Message) {
	this.connMutex.Lock()
	defer this.connMutex.Unlock()

	for windowID, win := range this.windows {
		if windowID == from {
			continue
		}
		if !win.topics[msg.Topic] {
			continue
		}
		select {
		case win.outgoingChan <- msg:
		default:
			// slow window, drop rather than block everyone
			log.Println("dropping message for slow window", windowID)
		}
	}
}

func (this *Hub) registerWindow(windowID string, topics map[string]bool) *hubWindow {
	this.connMutex.Lock()
	defer this.connMutex.Unlock()

	win := &hubWindow{
		windowID:      windowID,
		topics:        topics,
		outgoingChan:  make(chan Message, 10),
		interruptChan: make(chan interface{}, 1),
	}
	this.windows[windowID] = win
	return win
}

func (this *Hub) unregisterWindow(windowID string) {
	this.connMutex.Lock()
	delete(this.windows, windowID)
	this.connMutex.Unlock()

	log.Println("connection closed for", windowID)
}

// SweepStaleLiveness clears the active flag once the heartbeat goes
// stale, so a crashed coordinator stops reading as alive forever. The
// record still reads alive for up to `stale` after a crash; that is
// the documented bounded-staleness window, not a bug.
func (this *Hub) SweepStaleLiveness(stale time.Duration, every time.Duration) {
	ticker := time.NewTicker(every)
	for range ticker.C {
		nowMs := time.Now().UnixNano() / int64(time.Millisecond)

		this.livenessLock.Lock()
		if this.liveness.IsActive &&
			nowMs-this.liveness.LastHeartbeatMillis >= int64(stale/time.Millisecond) {
			log.Println("liveness record went stale, clearing")
			this.liveness.IsActive = false
		}
		this.livenessLock.Unlock()
	}
}
