// Package session persists playback state between runs: the position per
// URL, the volume, and the last URL opened.
package session

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "reel"
	dbFileName   = "reel.db"
	saveDebounce = 500 * time.Millisecond
)

type Store struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *Progress
}

// Progress is the saved position for one URL.
type Progress struct {
	URL      string
	Position time.Duration
	Duration time.Duration
}

// Volume is the saved audio level.
type Volume struct {
	Level float64
	Muted bool
}

func Open() (*Store, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.saveMu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	pending := s.pending
	s.pending = nil
	s.saveMu.Unlock()

	// Flush pending progress
	if pending != nil {
		_ = saveProgress(s.db, *pending)
	}

	return s.db.Close()
}

// GetProgress returns the saved position for a URL, or nil when the URL
// has never been played.
func (s *Store) GetProgress(url string) (*Progress, error) {
	return getProgress(s.db, url)
}

// SaveProgress records a position, debounced so frequent time updates do
// not hammer the database. The last value wins; Close flushes it.
func (s *Store) SaveProgress(p Progress) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.pending = &p

	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}

	s.saveTimer = time.AfterFunc(saveDebounce, func() {
		s.saveMu.Lock()
		pending := s.pending
		s.pending = nil
		s.saveMu.Unlock()

		if pending != nil {
			_ = saveProgress(s.db, *pending)
		}
	})
}

// ClearProgress forgets the saved position for a URL, used once playback
// reaches the end.
func (s *Store) ClearProgress(url string) error {
	_, err := s.db.Exec(`DELETE FROM progress WHERE url = ?`, url)
	return err
}

// GetVolume returns the saved volume, defaulting to full and unmuted.
func (s *Store) GetVolume() (*Volume, error) {
	var level float64
	var muted bool

	row := s.db.QueryRow(`SELECT volume, muted FROM settings WHERE id = 1`)
	err := row.Scan(&level, &muted)
	if err == sql.ErrNoRows {
		return &Volume{Level: 1.0, Muted: false}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Volume{Level: level, Muted: muted}, nil
}

// SaveVolume persists the volume level.
func (s *Store) SaveVolume(level float64, muted bool) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (id, volume, muted)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume,
			muted = excluded.muted
	`, level, muted)
	return err
}

// GetLastURL returns the URL opened in the previous run, or "" when none.
func (s *Store) GetLastURL() (string, error) {
	var url string
	row := s.db.QueryRow(`SELECT last_url FROM settings WHERE id = 1`)
	err := row.Scan(&url)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return url, nil
}

// SaveLastURL records the URL being played for the next run's prompt.
func (s *Store) SaveLastURL(url string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (id, last_url)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_url = excluded.last_url
	`, url)
	return err
}

func getProgress(db *sql.DB, url string) (*Progress, error) {
	var posMs, durMs int64
	row := db.QueryRow(`SELECT position_ms, duration_ms FROM progress WHERE url = ?`, url)
	err := row.Scan(&posMs, &durMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Progress{
		URL:      url,
		Position: time.Duration(posMs) * time.Millisecond,
		Duration: time.Duration(durMs) * time.Millisecond,
	}, nil
}

func saveProgress(db *sql.DB, p Progress) error {
	_, err := db.Exec(`
		INSERT INTO progress (url, position_ms, duration_ms, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			position_ms = excluded.position_ms,
			duration_ms = excluded.duration_ms,
			updated_at = excluded.updated_at
	`, p.URL, p.Position.Milliseconds(), p.Duration.Milliseconds(), time.Now().Unix())
	return err
}
