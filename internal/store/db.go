package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/justyntemme/stockpile/internal/debug"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// KeyLastDestination holds the destination of the last successful operation
const KeyLastDestination = "last_destination"

// ErrNoManifest is returned when no cached manifest exists for a URL
var ErrNoManifest = errors.New("no cached manifest")

// CachedManifest is a manifest document as last fetched
type CachedManifest struct {
	URL       string
	Content   []byte
	FetchedAt time.Time
}

// DB caches manifests and remembers a few settings. Selections are never
// stored here; they live only for one session.
type DB struct {
	conn *sql.DB
}

// Open initializes the database connection and schema
func Open(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// WAL mode allows simultaneous readers and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, err
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, err
	}

	manifestQuery := `
	CREATE TABLE IF NOT EXISTS manifests (
		url TEXT PRIMARY KEY,
		content BLOB NOT NULL,
		fetched_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(manifestQuery); err != nil {
		db.Close()
		return nil, err
	}

	settingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(settingsQuery); err != nil {
		db.Close()
		return nil, err
	}

	debug.Log(debug.STORE, "opened %s", dbPath)
	return &DB{conn: db}, nil
}

// SaveManifest stores content as the cached copy for url, replacing any older copy
func (d *DB) SaveManifest(url string, content []byte, fetchedAt time.Time) error {
	_, err := d.conn.Exec(
		"INSERT OR REPLACE INTO manifests (url, content, fetched_at) VALUES (?, ?, ?)",
		url, content, fetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		log.Printf("Store Error saving manifest: %v", err)
		return fmt.Errorf("save manifest %s: %w", url, err)
	}
	debug.Log(debug.STORE, "cached manifest %s (%d bytes)", url, len(content))
	return nil
}

// LoadManifest returns the cached copy for url, or ErrNoManifest
func (d *DB) LoadManifest(url string) (CachedManifest, error) {
	var (
		content []byte
		fetched string
	)
	err := d.conn.QueryRow("SELECT content, fetched_at FROM manifests WHERE url = ?", url).Scan(&content, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedManifest{}, ErrNoManifest
	}
	if err != nil {
		return CachedManifest{}, fmt.Errorf("load manifest %s: %w", url, err)
	}

	at, err := time.Parse(time.RFC3339, fetched)
	if err != nil {
		debug.Log(debug.STORE, "bad fetched_at %q for %s: %v", fetched, url, err)
	}
	return CachedManifest{URL: url, Content: content, FetchedAt: at}, nil
}

// Settings returns every stored setting
func (d *DB) Settings() (map[string]string, error) {
	rows, err := d.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err == nil {
			settings[key] = value
		}
	}
	return settings, rows.Err()
}

// Setting returns a single setting and whether it was present
func (d *DB) Setting(key string) (string, bool) {
	var value string
	if err := d.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("Store Error reading setting %s: %v", key, err)
		}
		return "", false
	}
	return value, true
}

// SaveSetting upserts a setting
func (d *DB) SaveSetting(key, value string) error {
	_, err := d.conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		log.Printf("Store Error saving setting: %v", err)
	}
	return err
}

func (d *DB) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}
