package main

import (
	"flag"
	"log"
	"net/url"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/chordcast/chordcast-backend/cluster"
)

// consoleAudioOutput stands in for the real audio element when none is
// attached; it only logs what would be played.
type consoleAudioOutput struct{}

func (consoleAudioOutput) Play(item PlayableItem) error {
	log.Println("audio: playing", item.SongID, "-", item.Title)
	return nil
}
func (consoleAudioOutput) Pause()              { log.Println("audio: paused") }
func (consoleAudioOutput) Seek(sec float64)    { log.Println("audio: seek to", sec) }
func (consoleAudioOutput) SetVolume(v float64) { log.Println("audio: volume", v) }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {

	var (
		userRepo   UserRepository
		songRepo   SongRepository
		paramsRepo ParamsRepository
		prefRepo   PreferenceRepository

		dbUrl    string
		pgdb     *PostgresRepository
		sqlitedb *SQLiteRepository

		service *ServiceImpl
		wg      sync.WaitGroup
	)

	// a window opened via the player URL carries the initial song id
	var playSongID string
	flag.StringVar(&playSongID, "play", "", "song id to start playing as coordinator")
	flag.Parse()

	dbUrl = envOr("DB_URL", "sqlite://db.sqlite3")
	log.Println("database url", dbUrl)
	if u, err := url.Parse(dbUrl); err == nil {
		switch u.Scheme {
		case "sqlite":
			sqlitedb = NewSQLiteRepository(u.Hostname())
			userRepo = sqlitedb
			songRepo = sqlitedb
			paramsRepo = sqlitedb
			prefRepo = sqlitedb

		case "postgres":
			pgdb = NewPostgresRepository(dbUrl)
			userRepo = pgdb
			songRepo = pgdb
			paramsRepo = pgdb
			prefRepo = pgdb
		}
	}

	service = &ServiceImpl{
		userRepo:   userRepo,
		songRepo:   songRepo,
		paramsRepo: paramsRepo,
		prefRepo:   prefRepo,
	}
	defer service.close()

	var (
		hubUrl    = envOr("HUB_URL", "127.0.0.1:9090")
		authToken = envOr("HUB_TOKEN", "secrettoken")
		apiUrl    = envOr("API_URL", "http://127.0.0.1:3000")
		windowID  = uuid.New().String()
		cfg       = cluster.DefaultConfig()
	)

	bus := cluster.NewBus(hubUrl, authToken, windowID,
		[]string{cluster.TopicPlayer, cluster.TopicPresentation})
	if err := bus.Connect(); err != nil {
		log.Println("cannot reach the hub, running standalone err:", err)
	}

	liveness := cluster.NewHubLiveness(hubUrl, authToken)
	windowService := cluster.NewWindowService(bus, liveness, cfg, windowID)

	wg.Add(1)
	go windowService.Start(playSongID != "", &wg)
	defer windowService.Shutdown()

	meta := NewMetadataClient(apiUrl)
	player := NewPlayer(consoleAudioOutput{})

	// presentation session shared across operator windows
	shm := cluster.NewSharedMem()
	paramStore := NewParamStore(shm, apiUrl, os.Getenv("API_TOKEN"))
	paramStore.Load()

	resolver := NewSheetResolver(shm, prefRepo, DefaultSheetClassifier)
	resolver.Build(service.GetAllSongs())
	engine := NewPresentationEngine(resolver.Queue(), paramStore)

	go func() {
		isCoordinator := <-windowService.ShouldStartPlayer
		if isCoordinator && playSongID != "" {
			item := PlayableItem{SongID: playSongID}
			if err := meta.FillSongMeta(&item); err != nil {
				log.Println("metadata fetch failed, playing bare item err:", err)
			}
			player.PlaySong(item)
		}

		for {
			select {
			case msg := <-windowService.PlayerCommands:
				if isCoordinator {
					player.Apply(msg)
				}
			case msg := <-windowService.PresentationCommands:
				engine.Apply(msg)
			}
		}
	}()

	// requester logic for this window; a catalog click lands on the
	// playback endpoints and goes through here
	openWindow := func(songID string) error {
		cmd := exec.Command(os.Args[0], "-play", songID)
		cmd.Env = os.Environ()
		return cmd.Start()
	}
	windowRequester := NewRequester(bus, liveness, cfg, openWindow, meta)

	echoRouter := NewHTTPRouter(service, windowRequester)
	if err := echoRouter.Start(envOr("API_ADDR", ":3000")); err != nil {
		log.Println("api server stopped err:", err)
	}
	wg.Wait()
}
