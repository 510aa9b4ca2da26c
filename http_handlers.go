package main

// this file contains implementation of HTTP handlers - REST API
// it is the server side of the parameter remote store and the
// audio/metadata source consumed by player windows

import (
	"log"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
)

var (
	jwtSecret = []byte("secret")
	service   Service
	requester *Requester
)

func NewHTTPRouter(_service Service, _requester *Requester) *echo.Echo {
	service = _service
	requester = _requester

	r := echo.New()
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}\n",
	}))
	router := r.Group("/api")
	router.GET("/health", healthCheckHandler)
	router.POST("/login", loginHandler)

	songGroup := router.Group("/song")
	songGroup.Use(middleware.JWT(jwtSecret))
	{
		songGroup.GET("/:id", songByIdHandler)
		songGroup.GET("/:id/sheets", songSheetsHandler)
		songGroup.GET("", allSongsHandler)
		songGroup.POST("/new", newSongHandler)
	}

	presentationGroup := router.Group("/presentation")
	presentationGroup.Use(middleware.JWT(jwtSecret))
	{
		presentationGroup.GET("/params", getParamsHandler)
		presentationGroup.POST("/params", saveParamsHandler)
	}

	playbackGroup := router.Group("/playback")
	playbackGroup.Use(middleware.JWT(jwtSecret))
	{
		playbackGroup.POST("/play/:id", playSongHandler)
		playbackGroup.POST("/enqueue/:id", enqueueSongHandler)
		playbackGroup.POST("/replace", replacePlaylistHandler)
	}

	return r
}

func playSongHandler(c echo.Context) error {
	return requestPlayback(c, requester.RequestPlay)
}

func enqueueSongHandler(c echo.Context) error {
	return requestPlayback(c, requester.RequestEnqueue)
}

// requestPlayback routes a catalog click through the requesting-client
// logic: probe liveness, then message or open the coordinator.
func requestPlayback(c echo.Context, request func(Song) error) error {
	song, err := service.GetSongByID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"message": "no such song",
		})
	}
	if err := request(*song); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Done",
	})
}

func replacePlaylistHandler(c echo.Context) error {
	form := struct {
		SongIDs []string `json:"song_ids"`
	}{}
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Missing song_ids",
		})
	}

	songs := make([]Song, 0, len(form.SongIDs))
	for _, id := range form.SongIDs {
		song, err := service.GetSongByID(id)
		if err != nil {
			log.Println("skipping unknown song", id)
			continue
		}
		songs = append(songs, *song)
	}
	if err := requester.RequestReplace(songs); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Done",
	})
}

func healthCheckHandler(c echo.Context) error {
	return c.String(http.StatusOK, "I am up and running!")
}

func loginHandler(c echo.Context) error {
	u := User{}
	if err := c.Bind(&u); err != nil {
		return err
	}
	service.CreateOrUpdateUser(u)

	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["user_id"] = u.UserID
	claims["exp"] = time.Now().Add(time.Hour * 72).Unix()
	t, err := token.SignedString(jwtSecret)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token": t,
	})
}

func songByIdHandler(c echo.Context) error {
	song, err := service.GetSongByID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"message": "no such song",
		})
	}
	return c.JSON(http.StatusOK, song)
}

func songSheetsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"sheets": service.GetSheetsForSong(c.Param("id")),
	})
}

func allSongsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, service.GetAllSongs())
}

func newSongHandler(c echo.Context) error {
	song := Song{}
	if err := c.Bind(&song); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Missing song data",
		})
	}
	if song.SongID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Missing song_id",
		})
	}
	if err := service.SubmitSong(song); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, song)
}

func getParamsHandler(c echo.Context) error {
	doc, err := service.GetParamsDocument()
	if err != nil {
		log.Println("failed to load params document err:", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": "cannot load presentation params",
		})
	}
	return c.JSON(http.StatusOK, doc)
}

func saveParamsHandler(c echo.Context) error {
	doc := ParamsDocument{}
	if err := c.Bind(&doc); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "Missing params document",
		})
	}
	if doc.Items == nil {
		doc.Items = make(map[string]ViewportParams)
	}
	if err := service.SaveParamsDocument(doc); err != nil {
		log.Println("failed to save params document err:", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": "cannot save presentation params",
		})
	}
	log.Println("params saved by", getUserIDFromContext(c))
	return c.JSON(http.StatusOK, echo.Map{
		"saved_at": time.Now().Unix(),
	})
}

func getUserIDFromContext(c echo.Context) string {
	return c.Get("user").(*jwt.Token).Claims.(jwt.MapClaims)["user_id"].(string)
}
