package fs

import (
	"bufio"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// RecordDir is the directory under a destination root that holds one
// metadata record per installed component.
const RecordDir = "Components"

const recordExt = ".txt"

// Record is one component's metadata record as found on disk.
type Record struct {
	ID    string
	Path  string
	Size  int64
	Label string
	Err   error // non-nil when the record exists but cannot be parsed
}

// MissingMetadataError means a component is believed installed but its record
// is absent or unreadable. The component should be reinstalled; nothing else
// about the session is affected.
type MissingMetadataError struct {
	ID   string
	Path string
	Err  error
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("metadata for %q (%s): %v", e.ID, e.Path, e.Err)
}

func (e *MissingMetadataError) Unwrap() error { return e.Err }

// RecordPath returns where the record for id lives under root.
func RecordPath(root, id string) string {
	return filepath.Join(root, RecordDir, id+recordExt)
}

// parseRecordLine reads "<bytes>[ label]".
func parseRecordLine(line string) (int64, string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, "", errors.New("empty first line")
	}
	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("leading token %q is not a byte count", fields[0])
	}
	if size < 0 {
		return 0, "", fmt.Errorf("negative byte count %d", size)
	}
	label := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	return size, label, nil
}

// ReadRecord parses the record at path. Failures come back as
// *MissingMetadataError.
func ReadRecord(id, path string) Record {
	rec := Record{ID: id, Path: path}

	f, err := os.Open(path)
	if err != nil {
		rec.Err = &MissingMetadataError{ID: id, Path: path, Err: err}
		return rec
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		err := sc.Err()
		if err == nil {
			err = errors.New("record is empty")
		}
		rec.Err = &MissingMetadataError{ID: id, Path: path, Err: err}
		return rec
	}

	size, label, err := parseRecordLine(sc.Text())
	if err != nil {
		rec.Err = &MissingMetadataError{ID: id, Path: path, Err: err}
		return rec
	}
	rec.Size = size
	rec.Label = label
	return rec
}

// WriteRecord creates or replaces the record for id. Orchestrators call this
// after a successful install or update.
func WriteRecord(root, id string, size int64, label string) error {
	if size < 0 {
		return fmt.Errorf("negative size %d for %q", size, id)
	}
	path := RecordPath(root, id)
	if err := os.MkdirAll(filepath.Dir(path), DirPermission); err != nil {
		return err
	}
	line := strconv.FormatInt(size, 10)
	if label != "" {
		line += " " + label
	}
	return os.WriteFile(path, []byte(line+"\n"), FilePermission)
}

// RemoveRecord deletes the record for id. A record that is already gone is
// not an error.
func RemoveRecord(root, id string) error {
	err := os.Remove(RecordPath(root, id))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	return err
}
