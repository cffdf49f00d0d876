package session

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite database with the schema initialized.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		t.Fatalf("failed to init schema: %v", err)
	}

	return db
}

func TestGetProgress_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}

	p, err := s.GetProgress("http://example.com/a.m3u8")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil progress on empty db, got %+v", p)
	}
}

func TestSaveAndGetProgress(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}

	in := Progress{
		URL:      "http://example.com/a.m3u8",
		Position: 90 * time.Second,
		Duration: 30 * time.Minute,
	}
	if err := saveProgress(db, in); err != nil {
		t.Fatalf("saveProgress failed: %v", err)
	}

	p, err := s.GetProgress(in.URL)
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil progress")
	}
	if p.Position != in.Position {
		t.Errorf("Position = %v, want %v", p.Position, in.Position)
	}
	if p.Duration != in.Duration {
		t.Errorf("Duration = %v, want %v", p.Duration, in.Duration)
	}
}

func TestSaveProgress_Update(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}
	url := "http://example.com/a.m3u8"

	_ = saveProgress(db, Progress{URL: url, Position: 10 * time.Second, Duration: time.Hour})
	_ = saveProgress(db, Progress{URL: url, Position: 20 * time.Second, Duration: time.Hour})

	p, _ := s.GetProgress(url)
	if p.Position != 20*time.Second {
		t.Errorf("expected updated position, got %v", p.Position)
	}
}

func TestProgress_PerURL(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}

	_ = saveProgress(db, Progress{URL: "http://a", Position: 5 * time.Second})
	_ = saveProgress(db, Progress{URL: "http://b", Position: 15 * time.Second})

	a, _ := s.GetProgress("http://a")
	b, _ := s.GetProgress("http://b")
	if a.Position != 5*time.Second || b.Position != 15*time.Second {
		t.Errorf("positions mixed up: a=%v b=%v", a.Position, b.Position)
	}
}

func TestClearProgress(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}
	url := "http://example.com/a.m3u8"

	_ = saveProgress(db, Progress{URL: url, Position: 10 * time.Second})

	if err := s.ClearProgress(url); err != nil {
		t.Fatalf("ClearProgress failed: %v", err)
	}

	p, _ := s.GetProgress(url)
	if p != nil {
		t.Errorf("expected nil progress after clear, got %+v", p)
	}
}

func TestClearProgress_Missing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}
	if err := s.ClearProgress("http://never-played"); err != nil {
		t.Errorf("ClearProgress on unknown url should not error: %v", err)
	}
}

func TestGetVolume_Default(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}

	v, err := s.GetVolume()
	if err != nil {
		t.Fatalf("GetVolume failed: %v", err)
	}
	if v.Level != 1.0 || v.Muted {
		t.Errorf("expected full unmuted default, got %+v", v)
	}
}

func TestSaveAndGetVolume(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}

	if err := s.SaveVolume(0.35, true); err != nil {
		t.Fatalf("SaveVolume failed: %v", err)
	}

	v, err := s.GetVolume()
	if err != nil {
		t.Fatalf("GetVolume failed: %v", err)
	}
	if v.Level != 0.35 {
		t.Errorf("Level = %v, want 0.35", v.Level)
	}
	if !v.Muted {
		t.Error("Muted = false, want true")
	}
}

func TestSaveVolume_Update(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}

	_ = s.SaveVolume(0.5, false)
	_ = s.SaveVolume(0.8, false)

	v, _ := s.GetVolume()
	if v.Level != 0.8 {
		t.Errorf("expected updated volume, got %v", v.Level)
	}
}

func TestLastURL(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}

	url, err := s.GetLastURL()
	if err != nil {
		t.Fatalf("GetLastURL failed: %v", err)
	}
	if url != "" {
		t.Errorf("expected empty last url on fresh db, got %q", url)
	}

	if err := s.SaveLastURL("http://example.com/show.mpd"); err != nil {
		t.Fatalf("SaveLastURL failed: %v", err)
	}

	url, _ = s.GetLastURL()
	if url != "http://example.com/show.mpd" {
		t.Errorf("GetLastURL = %q", url)
	}
}

func TestLastURL_SurvivesVolumeSave(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}

	_ = s.SaveLastURL("http://example.com/a")
	_ = s.SaveVolume(0.5, false)

	url, _ := s.GetLastURL()
	if url != "http://example.com/a" {
		t.Errorf("volume save clobbered last url, got %q", url)
	}
}

func TestSaveProgress_Debounced(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	s := &Store{db: db}
	url := "http://example.com/a.m3u8"

	// Rapid updates; only the last should land after the debounce window.
	s.SaveProgress(Progress{URL: url, Position: 1 * time.Second})
	s.SaveProgress(Progress{URL: url, Position: 2 * time.Second})
	s.SaveProgress(Progress{URL: url, Position: 3 * time.Second})

	time.Sleep(saveDebounce + 200*time.Millisecond)

	p, err := s.GetProgress(url)
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if p == nil {
		t.Fatal("expected progress after debounce")
	}
	if p.Position != 3*time.Second {
		t.Errorf("Position = %v, want 3s (last write wins)", p.Position)
	}
}

func TestClose_FlushesPending(t *testing.T) {
	path := t.TempDir() + "/reel.db"

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := initSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	s := &Store{db: db}
	url := "http://example.com/a.m3u8"

	s.SaveProgress(Progress{URL: url, Position: 7 * time.Second})

	// Close before the debounce fires; the pending write must land anyway.
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db.Close()

	p, err := getProgress(db, url)
	if err != nil {
		t.Fatalf("getProgress failed: %v", err)
	}
	if p == nil || p.Position != 7*time.Second {
		t.Errorf("pending progress not flushed on close: %+v", p)
	}
}
