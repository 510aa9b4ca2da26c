// this file keeps presentation viewport params in sync between the
// local shared cache and the remote store
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/chordcast/chordcast-backend/cluster"
)

const (
	shmParamsKey = "presentation_params"

	// built-in fallback shown behind every page
	DefaultBackgroundURL = "/static/presentation-background.jpg"
)

var ErrRemoteSave = errors.New("failed to save presentation params to the remote store")

// ParamStore is the gateway between the in-session params mapping, the
// device-local cache and the remote store. Every mutation lands in the
// local cache immediately; only an explicit Save reaches the remote.
type ParamStore struct {
	shm       *cluster.SharedMem
	remoteUrl string // empty means no remote configured
	token     string
	client    *http.Client

	doc ParamsDocument
}

func NewParamStore(shm *cluster.SharedMem, remoteUrl, token string) *ParamStore {
	ps := &ParamStore{
		shm:       shm,
		remoteUrl: remoteUrl,
		token:     token,
		client:    &http.Client{Timeout: time.Second * 5},
		doc:       ParamsDocument{Items: make(map[string]ViewportParams)},
	}

	// local cache is the baseline
	if cached, ok := shm.ReadVar(shmParamsKey).(ParamsDocument); ok {
		ps.doc = cloneDocument(cached)
	}
	return ps
}

func cloneDocument(doc ParamsDocument) ParamsDocument {
	out := ParamsDocument{
		Items:         make(map[string]ViewportParams, len(doc.Items)),
		BackgroundURL: doc.BackgroundURL,
	}
	for id, vp := range doc.Items {
		out.Items[id] = vp
	}
	return out
}

// Load merges the remote document over the local baseline: remote wins
// per item present in both, but the background keeps local > remote >
// built-in precedence. A failed fetch degrades to local-only.
func (ps *ParamStore) Load() {
	if ps.remoteUrl == "" {
		return
	}

	req, err := http.NewRequest("GET", fmt.Sprint(ps.remoteUrl, "/api/presentation/params"), nil)
	if err != nil {
		return
	}
	ps.authorize(req)

	res, err := ps.client.Do(req)
	if err != nil {
		log.Println("remote params fetch failed, staying local err:", err)
		return
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		log.Println("remote params fetch replied", res.Status)
		return
	}

	var remote ParamsDocument
	if err := json.NewDecoder(res.Body).Decode(&remote); err != nil {
		log.Println("cannot understand remote params err:", err)
		return
	}

	for id, vp := range remote.Items {
		ps.doc.Items[id] = vp
	}
	if ps.doc.BackgroundURL == "" {
		ps.doc.BackgroundURL = remote.BackgroundURL
	}
	ps.writeLocal()
}

func (ps *ParamStore) Get(songID string) ViewportParams {
	if vp, ok := ps.doc.Items[songID]; ok {
		return vp
	}
	return DefaultViewportParams()
}

// Mutate applies fn to the item's params and updates the local cache
// right away, reachable remote or not.
func (ps *ParamStore) Mutate(songID string, fn func(*ViewportParams)) {
	vp, ok := ps.doc.Items[songID]
	if !ok {
		vp = DefaultViewportParams()
	}
	fn(&vp)
	ps.doc.Items[songID] = vp
	ps.writeLocal()
}

func (ps *ParamStore) SetBackground(url string) {
	ps.doc.BackgroundURL = url
	ps.writeLocal()
}

func (ps *ParamStore) Background() string {
	if ps.doc.BackgroundURL != "" {
		return ps.doc.BackgroundURL
	}
	return DefaultBackgroundURL
}

func (ps *ParamStore) Document() ParamsDocument {
	return cloneDocument(ps.doc)
}

func (ps *ParamStore) writeLocal() {
	ps.shm.WriteVar(shmParamsKey, cloneDocument(ps.doc))
}

// Save serializes the whole mapping plus background in one request.
// On failure nothing is rolled back; the local cache stays the most
// recent truth and the caller may retry.
func (ps *ParamStore) Save() error {
	if ps.remoteUrl == "" {
		return ErrRemoteSave
	}

	b, err := json.Marshal(ps.doc)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", fmt.Sprint(ps.remoteUrl, "/api/presentation/params"), bytes.NewBuffer(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	ps.authorize(req)

	res, err := ps.client.Do(req)
	if err != nil {
		log.Println("remote save failed err:", err)
		return ErrRemoteSave
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		log.Println("remote save replied", res.Status)
		return ErrRemoteSave
	}

	ack := struct {
		SavedAt int64 `json:"saved_at"`
	}{}
	if err := json.NewDecoder(res.Body).Decode(&ack); err == nil {
		log.Println("params saved remotely at", ack.SavedAt)
	}
	return nil
}

func (ps *ParamStore) authorize(req *http.Request) {
	if ps.token != "" {
		req.Header.Set("Authorization", "Bearer "+ps.token)
	}
}
