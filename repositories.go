package main

type UserRepository interface {
	CreateOrUpdateUser(user User) error
	GetUserByID(userID string) *User
	close()
}

type SongRepository interface {
	GetSongByID(songID string) (*Song, error)
	GetAllSongs() []Song
	GetSheetsForSong(songID string) []string
	InsertSong(song Song) error
	close()
}

type ParamsRepository interface {
	GetParamsDocument() (*ParamsDocument, error)
	SaveParamsDocument(doc ParamsDocument) error
	close()
}

type PreferenceRepository interface {
	GetAllPreferences() map[string]string
	SetPreference(songID, sheetPath string) error
	ClearPreference(songID string) error
	close()
}
