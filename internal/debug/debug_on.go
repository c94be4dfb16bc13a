//go:build debug

// Package debug provides a centralized, categorized debug logging system.
// Build with -tags debug to enable logging.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	// Core categories
	APP      Category = "APP"      // Session lifecycle, operations, uninstall
	MANIFEST Category = "MANIFEST" // Manifest parsing
	CATALOG  Category = "CATALOG"  // Tree construction, size accounting
	SYNC     Category = "SYNC"     // Startup reconciliation, auto-download
	FS       Category = "FS"       // Metadata scans, path checks, sweeps
	STORE    Category = "STORE"    // Manifest cache and settings
	CONFIG   Category = "CONFIG"   // Configuration loading
	SEARCH   Category = "SEARCH"   // Filter query parsing

	// Detailed subcategories (use sparingly - can be verbose)
	FS_WALK Category = "FS_WALK" // Individual entries during scans and sweeps
	SELECT  Category = "SELECT"  // Every validate/commit of a selection toggle
)

var (
	// enabledCategories controls which categories are active
	// By default, all main categories are enabled
	enabledCategories = map[Category]bool{
		APP:      true,
		MANIFEST: true,
		CATALOG:  true,
		SYNC:     true,
		FS:       true,
		STORE:    true,
		CONFIG:   true,
		SEARCH:   true,
		// Verbose categories disabled by default
		FS_WALK: false,
		SELECT:  false,
	}
	categoryMu sync.RWMutex

	// Output destination
	logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
)

func init() {
	// Check environment variable for category overrides
	// Format: STOCKPILE_DEBUG=APP,FS,SYNC or STOCKPILE_DEBUG=all or STOCKPILE_DEBUG=none
	if env := os.Getenv("STOCKPILE_DEBUG"); env != "" {
		categoryMu.Lock()
		defer categoryMu.Unlock()

		env = strings.ToUpper(env)
		switch env {
		case "ALL":
			for cat := range enabledCategories {
				enabledCategories[cat] = true
			}
		case "NONE":
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
		default:
			// Disable all first, then enable specified
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
			for _, cat := range strings.Split(env, ",") {
				cat = strings.TrimSpace(cat)
				enabledCategories[Category(cat)] = true
			}
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}

	msg := fmt.Sprintf(format, args...)
	categoryMu.RLock()
	logger.Printf("[%s] %s", cat, msg)
	categoryMu.RUnlock()
}

// SetOutput redirects debug output, e.g. to a log file next to the destination
func SetOutput(w io.Writer) {
	categoryMu.Lock()
	logger.SetOutput(w)
	categoryMu.Unlock()
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

// EnableAll enables all debug categories including verbose ones
func EnableAll() {
	categoryMu.Lock()
	for cat := range enabledCategories {
		enabledCategories[cat] = true
	}
	categoryMu.Unlock()
}

// DisableAll disables all debug categories
func DisableAll() {
	categoryMu.Lock()
	for cat := range enabledCategories {
		enabledCategories[cat] = false
	}
	categoryMu.Unlock()
}

// SetCategories sets the enabled state for multiple categories
func SetCategories(cats map[Category]bool) {
	categoryMu.Lock()
	for cat, enabled := range cats {
		enabledCategories[cat] = enabled
	}
	categoryMu.Unlock()
}

// ListEnabled returns a slice of currently enabled categories
func ListEnabled() []Category {
	categoryMu.RLock()
	defer categoryMu.RUnlock()

	var enabled []Category
	for cat, on := range enabledCategories {
		if on {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}
