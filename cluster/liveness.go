package cluster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// LivenessRecord tells whether some window currently owns playback.
// There is exactly one logical record per device; whoever heartbeats
// last wins.
type LivenessRecord struct {
	IsActive            bool  `json:"is_active"`
	LastHeartbeatMillis int64 `json:"last_heartbeat_millis"`
}

type LivenessStore interface {
	MarkActive()
	MarkInactive()
	Probe(stale time.Duration) bool
}

type Config struct {
	HeartbeatEvery time.Duration
	StaleAfter     time.Duration
}

// The original had ~2s and ~5s staleness checks at different places.
// One canonical threshold, configurable.
func DefaultConfig() Config {
	return Config{
		HeartbeatEvery: time.Second * 1,
		StaleAfter:     time.Millisecond * 3000,
	}
}

type UpdateEvent struct {
	Ts      time.Time
	Varname string
}

// SharedMem is the device-local shared state visible to every window:
// the liveness record plus free-form cached vars (sheet preferences,
// presentation params). Last writer wins, no versioning.
type SharedMem struct {
	Shm           map[string]interface{}
	LastUpdatedAt time.Time
	ShmLock       *sync.Mutex

	liveness LivenessRecord

	// UpdateChan notifies the receiver that some var changed,
	// so it can be transmitted to concerned windows
	UpdateChan chan UpdateEvent

	// injectable for tests
	nowMillis func() int64
}

func NewSharedMem() *SharedMem {
	return &SharedMem{
		Shm:           make(map[string]interface{}),
		LastUpdatedAt: time.Now(),
		ShmLock:       &sync.Mutex{},
		UpdateChan:    make(chan UpdateEvent, 5),
		nowMillis: func() int64 {
			return time.Now().UnixNano() / int64(time.Millisecond)
		},
	}
}

func (this *SharedMem) MarkActive() {
	this.ShmLock.Lock()
	this.liveness.IsActive = true
	this.liveness.LastHeartbeatMillis = this.nowMillis()
	this.ShmLock.Unlock()
}

func (this *SharedMem) MarkInactive() {
	this.ShmLock.Lock()
	this.liveness.IsActive = false
	this.ShmLock.Unlock()
}

// Probe reports whether a coordinator window looks alive. Boundary is
// strict: a heartbeat exactly `stale` old counts as dead.
func (this *SharedMem) Probe(stale time.Duration) bool {
	this.ShmLock.Lock()
	defer this.ShmLock.Unlock()

	if !this.liveness.IsActive {
		return false
	}
	return this.nowMillis()-this.liveness.LastHeartbeatMillis < int64(stale/time.Millisecond)
}

func (this *SharedMem) Record() LivenessRecord {
	this.ShmLock.Lock()
	defer this.ShmLock.Unlock()
	return this.liveness
}

func (this *SharedMem) WriteVar(varname string, value interface{}) {
	this.ShmLock.Lock()
	this.Shm[varname] = value
	this.LastUpdatedAt = time.Now()
	this.ShmLock.Unlock()

	select {
	case this.UpdateChan <- UpdateEvent{Ts: time.Now(), Varname: varname}:
	default:
		// nobody listening, that's fine
	}
}

func (this *SharedMem) ReadVar(varname string) interface{} {
	this.ShmLock.Lock()
	defer this.ShmLock.Unlock()
	if value, exists := this.Shm[varname]; exists {
		return value
	}
	return nil
}

func (this *SharedMem) DeleteVar(varname string) {
	this.ShmLock.Lock()
	delete(this.Shm, varname)
	this.LastUpdatedAt = time.Now()
	this.ShmLock.Unlock()
}

// HubLiveness reads and writes the liveness record held by the bus hub,
// so that separate player processes on the same device agree on it.
type HubLiveness struct {
	hubUrl    string
	authToken string
	client    *http.Client

	nowMillis func() int64
}

func NewHubLiveness(hubUrl, authToken string) *HubLiveness {
	return &HubLiveness{
		hubUrl:    hubUrl,
		authToken: authToken,
		client:    &http.Client{Timeout: time.Second * 2},
		nowMillis: func() int64 {
			return time.Now().UnixNano() / int64(time.Millisecond)
		},
	}
}

func (this *HubLiveness) post(rec LivenessRecord) {
	b, _ := json.Marshal(rec)
	req, err := http.NewRequest("POST", fmt.Sprint("http://", this.hubUrl, "/liveness"), bytes.NewBuffer(b))
	if err != nil {
		log.Println("liveness: failed to create request err:", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("auth_token", this.authToken)

	res, err := this.client.Do(req)
	if err != nil {
		// heartbeat is best-effort; the next tick retries
		log.Println("liveness: hub unreachable err:", err)
		return
	}
	res.Body.Close()
}

func (this *HubLiveness) MarkActive() {
	this.post(LivenessRecord{IsActive: true, LastHeartbeatMillis: this.nowMillis()})
}

func (this *HubLiveness) MarkInactive() {
	this.post(LivenessRecord{IsActive: false, LastHeartbeatMillis: this.nowMillis()})
}

func (this *HubLiveness) Probe(stale time.Duration) bool {
	req, err := http.NewRequest("GET", fmt.Sprint("http://", this.hubUrl, "/liveness"), nil)
	if err != nil {
		return false
	}
	req.Header.Set("auth_token", this.authToken)

	res, err := this.client.Do(req)
	if err != nil {
		// no hub means no coordinator either
		return false
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return false
	}

	var rec LivenessRecord
	if err := json.NewDecoder(res.Body).Decode(&rec); err != nil {
		log.Println("liveness: cannot understand hub response err:", err)
		return false
	}

	if !rec.IsActive {
		return false
	}
	return this.nowMillis()-rec.LastHeartbeatMillis < int64(stale/time.Millisecond)
}
