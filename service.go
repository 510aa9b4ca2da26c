package main

type Service interface {
	CreateOrUpdateUser(user User) error
	GetUserByID(userID string) *User

	SubmitSong(song Song) error
	GetSongByID(songID string) (*Song, error)
	GetAllSongs() []Song
	GetSheetsForSong(songID string) []string

	GetParamsDocument() (*ParamsDocument, error)
	SaveParamsDocument(doc ParamsDocument) error

	close()
}

type ServiceImpl struct {
	userRepo   UserRepository
	songRepo   SongRepository
	paramsRepo ParamsRepository
	prefRepo   PreferenceRepository
}

func (s *ServiceImpl) CreateOrUpdateUser(user User) error {
	return s.userRepo.CreateOrUpdateUser(user)
}

func (s *ServiceImpl) GetUserByID(userID string) *User {
	return s.userRepo.GetUserByID(userID)
}

func (s *ServiceImpl) SubmitSong(song Song) error {
	return s.songRepo.InsertSong(song)
}

func (s *ServiceImpl) GetSongByID(songID string) (*Song, error) {
	return s.songRepo.GetSongByID(songID)
}

func (s *ServiceImpl) GetAllSongs() []Song {
	return s.songRepo.GetAllSongs()
}

func (s *ServiceImpl) GetSheetsForSong(songID string) []string {
	return s.songRepo.GetSheetsForSong(songID)
}

func (s *ServiceImpl) GetParamsDocument() (*ParamsDocument, error) {
	return s.paramsRepo.GetParamsDocument()
}

func (s *ServiceImpl) SaveParamsDocument(doc ParamsDocument) error {
	return s.paramsRepo.SaveParamsDocument(doc)
}

func (s *ServiceImpl) close() {
	s.userRepo.close()
	s.songRepo.close()
	s.paramsRepo.close()
	s.prefRepo.close()
}
