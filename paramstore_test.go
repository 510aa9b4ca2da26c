package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chordcast/chordcast-backend/cluster"
)

func paramsServer(t *testing.T, doc ParamsDocument, saveStatus int, saved *ParamsDocument) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/presentation/params" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case "GET":
			json.NewEncoder(w).Encode(doc)
		case "POST":
			if saved != nil {
				json.NewDecoder(r.Body).Decode(saved)
			}
			w.WriteHeader(saveStatus)
			if saveStatus == http.StatusOK {
				json.NewEncoder(w).Encode(map[string]int64{"saved_at": 1234})
			}
		}
	}))
}

func vpWithTopOffset(offset float64) ViewportParams {
	vp := DefaultViewportParams()
	vp.Top.OffsetVh = offset
	return vp
}

func TestGetReturnsDefaultsForUnknownSong(t *testing.T) {
	ps := NewParamStore(cluster.NewSharedMem(), "", "")
	vp := ps.Get("nope")
	assert.Equal(t, DefaultViewportParams(), vp)
}

func TestLoadMergesRemoteOverLocal(t *testing.T) {
	remote := ParamsDocument{Items: map[string]ViewportParams{
		"shared": vpWithTopOffset(7),
		"remote": vpWithTopOffset(9),
	}}
	srv := paramsServer(t, remote, http.StatusOK, nil)
	defer srv.Close()

	shm := cluster.NewSharedMem()
	ps := NewParamStore(shm, srv.URL, "")
	ps.Mutate("shared", func(vp *ViewportParams) { vp.Top.OffsetVh = 1 })
	ps.Mutate("local", func(vp *ViewportParams) { vp.Top.OffsetVh = 2 })

	ps.Load()

	// remote wins for items present in both, local-only survives
	assert.InDelta(t, 7, ps.Get("shared").Top.OffsetVh, 1e-9)
	assert.InDelta(t, 9, ps.Get("remote").Top.OffsetVh, 1e-9)
	assert.InDelta(t, 2, ps.Get("local").Top.OffsetVh, 1e-9)
}

func TestLoadSurvivesUnreachableRemote(t *testing.T) {
	shm := cluster.NewSharedMem()
	ps := NewParamStore(shm, "http://127.0.0.1:1", "")
	ps.Mutate("a", func(vp *ViewportParams) { vp.Top.OffsetVh = 4 })

	ps.Load()
	assert.InDelta(t, 4, ps.Get("a").Top.OffsetVh, 1e-9)
}

func TestBackgroundPrecedence(t *testing.T) {
	remote := ParamsDocument{
		Items:         map[string]ViewportParams{},
		BackgroundURL: "remote.jpg",
	}
	srv := paramsServer(t, remote, http.StatusOK, nil)
	defer srv.Close()

	// no local value: remote wins over the built-in default
	ps := NewParamStore(cluster.NewSharedMem(), srv.URL, "")
	require.Equal(t, DefaultBackgroundURL, ps.Background())
	ps.Load()
	assert.Equal(t, "remote.jpg", ps.Background())

	// a local value overrides the remote one
	ps2 := NewParamStore(cluster.NewSharedMem(), srv.URL, "")
	ps2.SetBackground("local.jpg")
	ps2.Load()
	assert.Equal(t, "local.jpg", ps2.Background())
}

func TestMutateUpdatesLocalCacheImmediately(t *testing.T) {
	shm := cluster.NewSharedMem()
	ps := NewParamStore(shm, "", "")

	ps.Mutate("a", func(vp *ViewportParams) { vp.Top.Zoom = 2 })

	cached, ok := shm.ReadVar(shmParamsKey).(ParamsDocument)
	require.True(t, ok)
	assert.InDelta(t, 2, cached.Items["a"].Top.Zoom, 1e-9)

	// a fresh store on the same device picks the cache up as baseline
	ps2 := NewParamStore(shm, "", "")
	assert.InDelta(t, 2, ps2.Get("a").Top.Zoom, 1e-9)
}

func TestSaveSendsFullDocument(t *testing.T) {
	var saved ParamsDocument
	srv := paramsServer(t, ParamsDocument{Items: map[string]ViewportParams{}}, http.StatusOK, &saved)
	defer srv.Close()

	ps := NewParamStore(cluster.NewSharedMem(), srv.URL, "")
	ps.Mutate("a", func(vp *ViewportParams) { vp.HideBottom = true })
	ps.Mutate("b", func(vp *ViewportParams) { vp.Bottom.Zoom = 3 })
	ps.SetBackground("bg.jpg")

	require.NoError(t, ps.Save())
	assert.Len(t, saved.Items, 2)
	assert.True(t, saved.Items["a"].HideBottom)
	assert.InDelta(t, 3, saved.Items["b"].Bottom.Zoom, 1e-9)
	assert.Equal(t, "bg.jpg", saved.BackgroundURL)
}

func TestSaveFailureKeepsLocalState(t *testing.T) {
	srv := paramsServer(t, ParamsDocument{Items: map[string]ViewportParams{}}, http.StatusInternalServerError, nil)
	defer srv.Close()

	ps := NewParamStore(cluster.NewSharedMem(), srv.URL, "")
	ps.Mutate("a", func(vp *ViewportParams) { vp.Top.OffsetVh = 5 })

	err := ps.Save()
	assert.Equal(t, ErrRemoteSave, err)
	// nothing rolled back, the user may retry
	assert.InDelta(t, 5, ps.Get("a").Top.OffsetVh, 1e-9)
}
