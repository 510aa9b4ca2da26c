// this file talks to the audio/metadata source for song details
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"
)

type MetadataClient struct {
	baseUrl string
	client  *http.Client
}

func NewMetadataClient(baseUrl string) *MetadataClient {
	return &MetadataClient{
		baseUrl: baseUrl,
		client:  &http.Client{Timeout: time.Second * 5},
	}
}

// FillSongMeta completes an item with audio URL, cover and lyric from
// the metadata source. Existing fields are overwritten.
func (mc *MetadataClient) FillSongMeta(item *PlayableItem) error {
	response := struct {
		SongID   string `json:"song_id"`
		Title    string `json:"title"`
		Artist   string `json:"artist"`
		CoverURL string `json:"cover_url"`
		AudioURL string `json:"audio_url"`
		Lyric    string `json:"lyric"`
	}{}

	req, err := http.NewRequest("GET", fmt.Sprint(mc.baseUrl, "/api/song/", item.SongID), nil)
	if err != nil {
		return err
	}

	resp, err := mc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respText, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return errors.New("metadata source replied " + resp.Status)
	}

	if err := json.Unmarshal(respText, &response); err != nil {
		return err
	}

	item.Title = response.Title
	item.Artist = response.Artist
	item.CoverURL = response.CoverURL
	item.AudioURL = response.AudioURL
	item.Lyric = response.Lyric
	return nil
}

func (mc *MetadataClient) FetchLyric(songID string) (string, error) {
	item := PlayableItem{SongID: songID}
	if err := mc.FillSongMeta(&item); err != nil {
		return "", err
	}
	return item.Lyric, nil
}
