package main

import (
	"database/sql"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(filePath string) *SQLiteRepository {
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		log.Fatal("failed to open sqlite db err:", err)
	}

	// make sure the required tables exist
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY, firstname TEXT, lastname TEXT, email TEXT);`,
		`CREATE TABLE IF NOT EXISTS songs (
			song_id TEXT PRIMARY KEY, title TEXT, artist TEXT,
			cover_url TEXT, audio_url TEXT, lyric TEXT);`,
		`CREATE TABLE IF NOT EXISTS sheets (song_id TEXT, path TEXT);`,
		`CREATE TABLE IF NOT EXISTS presentation_params (
			song_id TEXT PRIMARY KEY,
			top_offset_vh REAL, top_zoom REAL,
			bottom_offset_vh REAL, bottom_zoom REAL,
			hide_bottom INTEGER);`,
		`CREATE TABLE IF NOT EXISTS presentation_background (
			id INTEGER PRIMARY KEY, background_url TEXT);`,
		`CREATE TABLE IF NOT EXISTS sheet_prefs (song_id TEXT PRIMARY KEY, path TEXT);`,
	}
	for _, query := range schema {
		if _, err := db.Exec(query); err != nil {
			log.Fatal("failed to create table err:", err)
		}
	}

	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateOrUpdateUser(user User) error {
	_, err := r.db.Exec(`insert or replace into users (user_id, firstname, lastname, email)
		values (?, ?, ?, ?)`, user.UserID, user.FirstName, user.LastName, user.Email)
	return err
}

func (r *SQLiteRepository) GetUserByID(userID string) *User {
	user := &User{}
	err := r.db.QueryRow(`select user_id, firstname, lastname, email from users where user_id=?`,
		userID).Scan(&user.UserID, &user.FirstName, &user.LastName, &user.Email)
	if err != nil {
		return nil
	}
	return user
}

func (r *SQLiteRepository) InsertSong(song Song) error {
	if _, err := r.db.Exec(`insert or replace into songs
		(song_id, title, artist, cover_url, audio_url, lyric) values (?, ?, ?, ?, ?, ?)`,
		song.SongID, song.Title, song.Artist, song.CoverURL, song.AudioURL, song.Lyric); err != nil {
		return err
	}

	if _, err := r.db.Exec(`delete from sheets where song_id=?`, song.SongID); err != nil {
		return err
	}
	for _, path := range song.Sheets {
		if _, err := r.db.Exec(`insert into sheets (song_id, path) values (?, ?)`,
			song.SongID, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) GetSongByID(songID string) (*Song, error) {
	s := Song{}
	err := r.db.QueryRow(`select song_id, title, artist, cover_url, audio_url, lyric
		from songs where song_id=?`, songID).
		Scan(&s.SongID, &s.Title, &s.Artist, &s.CoverURL, &s.AudioURL, &s.Lyric)
	if err != nil {
		return nil, err
	}
	s.Sheets = r.GetSheetsForSong(songID)
	return &s, nil
}

func (r *SQLiteRepository) GetAllSongs() []Song {
	rows, err := r.db.Query(`select song_id, title, artist, cover_url, audio_url, lyric
		from songs order by title`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	songs := make([]Song, 0)
	for rows.Next() {
		s := Song{}
		if err := rows.Scan(&s.SongID, &s.Title, &s.Artist,
			&s.CoverURL, &s.AudioURL, &s.Lyric); err != nil {
			continue
		}
		s.Sheets = r.GetSheetsForSong(s.SongID)
		songs = append(songs, s)
	}
	return songs
}

func (r *SQLiteRepository) GetSheetsForSong(songID string) []string {
	rows, err := r.db.Query(`select path from sheets where song_id=? order by path`, songID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	paths := make([]string, 0)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err == nil {
			paths = append(paths, path)
		}
	}
	return paths
}

func (r *SQLiteRepository) GetParamsDocument() (*ParamsDocument, error) {
	doc := ParamsDocument{Items: make(map[string]ViewportParams)}

	rows, err := r.db.Query(`select song_id, top_offset_vh, top_zoom,
		bottom_offset_vh, bottom_zoom, hide_bottom from presentation_params`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var songID string
		vp := ViewportParams{}
		if err := rows.Scan(&songID, &vp.Top.OffsetVh, &vp.Top.Zoom,
			&vp.Bottom.OffsetVh, &vp.Bottom.Zoom, &vp.HideBottom); err != nil {
			return nil, err
		}
		doc.Items[songID] = vp
	}

	err = r.db.QueryRow(`select background_url from presentation_background where id=1`).
		Scan(&doc.BackgroundURL)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return &doc, nil
}

func (r *SQLiteRepository) SaveParamsDocument(doc ParamsDocument) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	for songID, vp := range doc.Items {
		if _, err := tx.Exec(`insert or replace into presentation_params
			(song_id, top_offset_vh, top_zoom, bottom_offset_vh, bottom_zoom, hide_bottom)
			values (?, ?, ?, ?, ?, ?)`,
			songID, vp.Top.OffsetVh, vp.Top.Zoom,
			vp.Bottom.OffsetVh, vp.Bottom.Zoom, vp.HideBottom); err != nil {
			tx.Rollback()
			return err
		}
	}

	if doc.BackgroundURL != "" {
		if _, err := tx.Exec(`insert or replace into presentation_background
			(id, background_url) values (1, ?)`, doc.BackgroundURL); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) GetAllPreferences() map[string]string {
	prefs := make(map[string]string)

	rows, err := r.db.Query(`select song_id, path from sheet_prefs`)
	if err != nil {
		return prefs
	}
	defer rows.Close()

	for rows.Next() {
		var songID, path string
		if err := rows.Scan(&songID, &path); err == nil {
			prefs[songID] = path
		}
	}
	return prefs
}

func (r *SQLiteRepository) SetPreference(songID, sheetPath string) error {
	_, err := r.db.Exec(`insert or replace into sheet_prefs (song_id, path) values (?, ?)`,
		songID, sheetPath)
	return err
}

func (r *SQLiteRepository) ClearPreference(songID string) error {
	_, err := r.db.Exec(`delete from sheet_prefs where song_id=?`, songID)
	return err
}

func (r *SQLiteRepository) close() {
	r.db.Close()
}
