package main

import (
	"database/sql"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(dbUrl string) *PostgresRepository {
	db, err := sqlx.Connect("postgres", dbUrl)
	if err != nil {
		log.Fatal("failed to connect to postgres err:", err)
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateOrUpdateUser(user User) error {
	query := `
      insert into users (user_id, firstname, lastname, email)
      values ($1, $2, $3, $4)
      on conflict(user_id) do update
         set firstname = excluded.firstname,
             lastname = excluded.lastname,
             email = excluded.email;`

	_, err := r.db.Exec(query, user.UserID, user.FirstName, user.LastName, user.Email)
	if err != nil {
		log.Println("failed to upsert user err:", err)
	}
	return err
}

func (r *PostgresRepository) GetUserByID(userID string) *User {
	query := `
	  select user_id, firstname, lastname, email
	  from users where user_id=$1;`

	user := &User{}
	err := r.db.QueryRow(query, userID).Scan(&user.UserID, &user.FirstName, &user.LastName, &user.Email)
	if err != nil {
		log.Println("failed to find user", userID, "err:", err)
		return nil
	}
	return user
}

func (r *PostgresRepository) InsertSong(song Song) error {
	query := `
	  insert into songs (song_id, title, artist, cover_url, audio_url, lyric)
	  values ($1, $2, $3, $4, $5, $6)
      on conflict(song_id) do update
         set title = excluded.title,
             artist = excluded.artist,
             cover_url = excluded.cover_url,
             audio_url = excluded.audio_url,
             lyric = excluded.lyric;`

	if _, err := r.db.Exec(query, song.SongID, song.Title, song.Artist,
		song.CoverURL, song.AudioURL, song.Lyric); err != nil {
		return err
	}

	if _, err := r.db.Exec(`delete from sheets where song_id=$1;`, song.SongID); err != nil {
		return err
	}
	for _, path := range song.Sheets {
		if _, err := r.db.Exec(`insert into sheets (song_id, path) values ($1, $2);`,
			song.SongID, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) GetSongByID(songID string) (*Song, error) {
	query := `
	  select song_id, title, artist, cover_url, audio_url, lyric
	  from songs where song_id=$1;`

	s := Song{}
	err := r.db.QueryRow(query, songID).Scan(&s.SongID, &s.Title, &s.Artist,
		&s.CoverURL, &s.AudioURL, &s.Lyric)
	if err != nil {
		return nil, err
	}
	s.Sheets = r.GetSheetsForSong(songID)
	return &s, nil
}

func (r *PostgresRepository) GetAllSongs() []Song {
	query := `
	  select song_id, title, artist, cover_url, audio_url, lyric
	  from songs order by title;`

	rows, err := r.db.Query(query)
	if err != nil {
		log.Println("failed to list songs err:", err)
		return nil
	}
	defer rows.Close()

	songs := make([]Song, 0)
	for rows.Next() {
		s := Song{}
		if err := rows.Scan(&s.SongID, &s.Title, &s.Artist,
			&s.CoverURL, &s.AudioURL, &s.Lyric); err != nil {
			log.Println("failed to scan song err:", err)
			continue
		}
		s.Sheets = r.GetSheetsForSong(s.SongID)
		songs = append(songs, s)
	}
	return songs
}

func (r *PostgresRepository) GetSheetsForSong(songID string) []string {
	rows, err := r.db.Query(`select path from sheets where song_id=$1 order by path;`, songID)
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

func (r *PostgresRepository) GetParamsDocument() (*ParamsDocument, error) {
	doc := ParamsDocument{Items: make(map[string]ViewportParams)}

	rows, err := r.db.Query(`
	  select song_id, top_offset_vh, top_zoom, bottom_offset_vh, bottom_zoom, hide_bottom
	  from presentation_params;`)
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

	err = r.db.QueryRow(`select background_url from presentation_background where id=1;`).
		Scan(&doc.BackgroundURL)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return &doc, nil
}

func (r *PostgresRepository) SaveParamsDocument(doc ParamsDocument) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	query := `
	  insert into presentation_params
		(song_id, top_offset_vh, top_zoom, bottom_offset_vh, bottom_zoom, hide_bottom)
	  values ($1, $2, $3, $4, $5, $6)
      on conflict(song_id) do update
         set top_offset_vh = excluded.top_offset_vh,
             top_zoom = excluded.top_zoom,
             bottom_offset_vh = excluded.bottom_offset_vh,
             bottom_zoom = excluded.bottom_zoom,
             hide_bottom = excluded.hide_bottom;`

	for songID, vp := range doc.Items {
		if _, err := tx.Exec(query, songID, vp.Top.OffsetVh, vp.Top.Zoom,
			vp.Bottom.OffsetVh, vp.Bottom.Zoom, vp.HideBottom); err != nil {
			tx.Rollback()
			return err
		}
	}

	if doc.BackgroundURL != "" {
		if _, err := tx.Exec(`
		  insert into presentation_background (id, background_url) values (1, $1)
	      on conflict(id) do update set background_url = excluded.background_url;`,
			doc.BackgroundURL); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresRepository) GetAllPreferences() map[string]string {
	prefs := make(map[string]string)

	rows, err := r.db.Query(`select song_id, path from sheet_prefs;`)
	if err != nil {
		log.Println("failed to load sheet preferences err:", err)
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

func (r *PostgresRepository) SetPreference(songID, sheetPath string) error {
	query := `
	  insert into sheet_prefs (song_id, path) values ($1, $2)
      on conflict(song_id) do update set path = excluded.path;`

	_, err := r.db.Exec(query, songID, sheetPath)
	return err
}

func (r *PostgresRepository) ClearPreference(songID string) error {
	_, err := r.db.Exec(`delete from sheet_prefs where song_id=$1;`, songID)
	return err
}

func (r *PostgresRepository) close() {
	r.db.Close()
}
