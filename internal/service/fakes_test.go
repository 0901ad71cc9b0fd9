package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sakif/soundshelf/internal/apperror"
	"github.com/sakif/soundshelf/internal/auth"
	"github.com/sakif/soundshelf/internal/model"
	"github.com/sakif/soundshelf/internal/repository"
	"github.com/sakif/soundshelf/internal/storage"
)

// =========================================================================
// FAKE STORE
// =========================================================================

// fakeStore is an in-memory repository.Store. Using a fake (not a mock
// framework) keeps tests easy to read: you can see exactly what it does.
// It follows the same error contract as the SQLite store.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int
	users     map[string]*model.User
	songs     []*model.Song
	playlists []*model.Playlist
	members   map[string][]string // playlistID → songIDs in insertion order
	sessions  map[string]*model.Session

	// set to a non-nil error to simulate a database failure
	createSongErr     error
	createPlaylistErr error
	updatePictureErr  error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*model.User),
		members:  make(map[string][]string),
		sessions: make(map[string]*model.Session),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.DuplicateUsername()
		}
		if user.GitHubID != 0 && u.GitHubID == user.GitHubID {
			return errors.New("UNIQUE constraint failed: users.github_id")
		}
	}
	user.ID = f.id("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if user.PicturePath == "" {
		user.PicturePath = model.DefaultProfilePicture
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (f *fakeStore) update(id string, fn func(*model.User) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	return fn(u)
}

func (f *fakeStore) UpdateUsername(_ context.Context, id, username string) error {
	return f.update(id, func(u *model.User) error {
		for _, other := range f.users {
			if other.ID != id && other.Username == username {
				return apperror.DuplicateUsername()
			}
		}
		u.Username = username
		return nil
	})
}

func (f *fakeStore) UpdatePassword(_ context.Context, id, hash string) error {
	return f.update(id, func(u *model.User) error { u.PasswordHash = hash; return nil })
}

func (f *fakeStore) UpdatePicture(_ context.Context, id, path string) error {
	if f.updatePictureErr != nil {
		return f.updatePictureErr
	}
	return f.update(id, func(u *model.User) error { u.PicturePath = path; return nil })
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)

	removed := make(map[string]bool)
	songs := f.songs[:0]
	for _, s := range f.songs {
		if s.ArtistID == id {
			removed[s.ID] = true
			continue
		}
		songs = append(songs, s)
	}
	f.songs = songs

	playlists := f.playlists[:0]
	for _, p := range f.playlists {
		if p.OwnerID == id {
			delete(f.members, p.ID)
			continue
		}
		playlists = append(playlists, p)
	}
	f.playlists = playlists

	for pid, ids := range f.members {
		kept := ids[:0]
		for _, sid := range ids {
			if !removed[sid] {
				kept = append(kept, sid)
			}
		}
		f.members[pid] = kept
	}

	for sid, s := range f.sessions {
		if s.UserID == id {
			delete(f.sessions, sid)
		}
	}
	return nil
}

func (f *fakeStore) CreateSong(_ context.Context, song *model.Song) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createSongErr != nil {
		return f.createSongErr
	}
	song.ID = f.id("song")
	song.CreatedAt = time.Now()
	copied := *song
	f.songs = append(f.songs, &copied)
	return nil
}

func (f *fakeStore) GetSongByID(_ context.Context, id string) (*model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.songs {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("song", id)
}

func (f *fakeStore) ListSongs(_ context.Context, filter repository.SongFilter) ([]model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	songs := []model.Song{}
	// newest first
	for i := len(f.songs) - 1; i >= 0; i-- {
		s := f.songs[i]
		if filter.Genre != "" && s.Genre != filter.Genre {
			continue
		}
		if filter.ArtistID != "" && s.ArtistID != filter.ArtistID {
			continue
		}
		songs = append(songs, *s)
	}
	return songs, nil
}

func (f *fakeStore) ListGenres(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	genres := []string{}
	for _, s := range f.songs {
		if !seen[s.Genre] {
			seen[s.Genre] = true
			genres = append(genres, s.Genre)
		}
	}
	sort.Strings(genres)
	return genres, nil
}

func (f *fakeStore) CreatePlaylist(_ context.Context, p *model.Playlist) error {
	if f.createPlaylistErr != nil {
		return f.createPlaylistErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id("playlist")
	p.CreatedAt = time.Now()
	if p.PicturePath == "" {
		p.PicturePath = model.DefaultPlaylistPicture
	}
	copied := *p
	f.playlists = append(f.playlists, &copied)
	return nil
}

func (f *fakeStore) playlistLocked(id string) (*model.Playlist, bool) {
	for _, p := range f.playlists {
		if p.ID == id {
			copied := *p
			copied.SongCount = len(f.members[id])
			return &copied, true
		}
	}
	return nil, false
}

func (f *fakeStore) GetPlaylistByID(_ context.Context, id string) (*model.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.playlistLocked(id)
	if !ok {
		return nil, apperror.NotFound("playlist", id)
	}
	return p, nil
}

func (f *fakeStore) ListPlaylistsByOwner(_ context.Context, ownerID string) ([]model.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	playlists := []model.Playlist{}
	for i := len(f.playlists) - 1; i >= 0; i-- {
		if f.playlists[i].OwnerID == ownerID {
			p, _ := f.playlistLocked(f.playlists[i].ID)
			playlists = append(playlists, *p)
		}
	}
	return playlists, nil
}

func (f *fakeStore) AddSongToPlaylist(_ context.Context, playlistID, songID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.members[playlistID] {
		if id == songID {
			return false, nil
		}
	}
	f.members[playlistID] = append(f.members[playlistID], songID)
	return true, nil
}

func (f *fakeStore) ListPlaylistSongs(_ context.Context, playlistID string) ([]model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	songs := []model.Song{}
	for _, id := range f.members[playlistID] {
		for _, s := range f.songs {
			if s.ID == id {
				songs = append(songs, *s)
			}
		}
	}
	return songs, nil
}

func (f *fakeStore) CreateSession(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		s.ID = f.id("session")
	}
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.Expired(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// =========================================================================
// FAKE FILE STORE
// =========================================================================

// memFiles is an in-memory storage.FileStore.
type memFiles struct {
	mu      sync.Mutex
	n       int
	files   map[string][]byte
	removed []string
	saveErr error
	// removeErr makes Remove fail and keep the file.
	removeErr error
}

var _ storage.FileStore = (*memFiles)(nil)

func newMemFiles() *memFiles {
	return &memFiles{files: make(map[string][]byte)}
}

func (m *memFiles) Save(_ context.Context, bucket storage.Bucket, ext string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	path := fmt.Sprintf("/media/%s/file-%d%s", bucket, m.n, ext)
	m.files[path] = data
	return path, nil
}

func (m *memFiles) Remove(_ context.Context, path string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return nil
	}
	delete(m.files, path)
	m.removed = append(m.removed, path)
	return nil
}

func (m *memFiles) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

// =========================================================================
// HELPERS
// =========================================================================

type testServices struct {
	store     *fakeStore
	files     *memFiles
	auth      *AuthService
	catalog   *CatalogService
	playlists *PlaylistService
	profile   *ProfileService
	// logs holds everything the services logged, for warning checks.
	logs *bytes.Buffer
}

// newTestServices wires every service against the same fakes.
func newTestServices(t *testing.T) *testServices {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	// Cost 4 is the bcrypt minimum; it keeps tests fast.
	passwords := auth.NewPasswordServiceWithCost(4)
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	store := newFakeStore()
	files := newMemFiles()
	return &testServices{
		store:     store,
		files:     files,
		auth:      NewAuthService(store, store, tokens, passwords, logger),
		catalog:   NewCatalogService(store, store, files, logger),
		playlists: NewPlaylistService(store, store, files, logger),
		profile:   NewProfileService(store, passwords, files, logger),
		logs:      logs,
	}
}

func (ts *testServices) signup(t *testing.T, username, password string, artist bool) *model.User {
	t.Helper()
	u, err := ts.auth.Signup(context.Background(), username, password, artist)
	if err != nil {
		t.Fatalf("Signup(%q) error = %v", username, err)
	}
	return u
}

func (ts *testServices) upload(t *testing.T, artist *model.User, title, genre string) *model.Song {
	t.Helper()
	song, err := ts.catalog.UploadSong(context.Background(), artist.ID, title, genre, title+".mp3",
		bytes.NewReader([]byte("ID3 fake audio")))
	if err != nil {
		t.Fatalf("UploadSong(%q) error = %v", title, err)
	}
	return song
}

// wantErr fails unless errors.Is(err, target).
func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
