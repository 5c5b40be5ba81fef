package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/claybath/density_meter/internal/core"
)

// Store is the file-backed persistence layer: one settings.json rewritten
// whole on every change, plus append-only measurement logs partitioned by
// calendar day (data_YYYYMMDD.csv).
type Store struct {
	settingsPath string
	dataDir      string
}

// New creates a store rooted at the given paths. Directories are created
// lazily on first write.
func New(settingsPath, dataDir string) *Store {
	return &Store{settingsPath: settingsPath, dataDir: dataDir}
}

// LoadSettings reads settings.json. A missing or corrupt file is never
// fatal: the compiled defaults are returned and written back so the next
// boot finds a clean file.
func (s *Store) LoadSettings() core.Settings {
	data, err := os.ReadFile(s.settingsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store: reading %s: %v", s.settingsPath, err)
		}
		return s.resetSettings()
	}

	settings := core.DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		log.Printf("store: %s is corrupt (%v), rewriting defaults", s.settingsPath, err)
		return s.resetSettings()
	}
	return settings
}

func (s *Store) resetSettings() core.Settings {
	settings := core.DefaultSettings()
	if err := s.SaveSettings(settings); err != nil {
		log.Printf("store: writing default settings: %v", err)
	}
	return settings
}

// SaveSettings rewrites settings.json atomically (temp file + rename).
// The encoding is deterministic, so saving unchanged settings reproduces
// the file byte for byte.
func (s *Store) SaveSettings(settings core.Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.settingsPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp := s.settingsPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.settingsPath); err != nil {
		return fmt.Errorf("replacing %s: %w", s.settingsPath, err)
	}
	return nil
}

const dataPrefix = "data_"

func dataFileName(t time.Time) string {
	return dataPrefix + t.Format("20060102") + ".csv"
}

// AppendMeasurement appends one record to the day's data file.
func (s *Store) AppendMeasurement(t time.Time, density, angle float64) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.dataDir, err)
	}

	path := filepath.Join(s.dataDir, dataFileName(t))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s,%.4f,%.2f\n", t.Format("2006-01-02 15:04:05"), density, angle)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return nil
}

// Measurements returns all recorded measurements as CSV with a header,
// oldest day first.
func (s *Store) Measurements() (string, error) {
	names, err := s.dataFiles()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Timestamp,Density,Angle\n")
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dataDir, name))
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", name, err)
		}
		b.Write(data)
	}
	return b.String(), nil
}

// DeleteMeasurements removes every daily data file.
func (s *Store) DeleteMeasurements() error {
	names, err := s.dataFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.dataDir, name)); err != nil {
			return fmt.Errorf("deleting %s: %w", name, err)
		}
		log.Printf("store: deleted data file %s", name)
	}
	return nil
}

func (s *Store) dataFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.dataDir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, dataPrefix) && strings.HasSuffix(name, ".csv") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// FileInfo describes one stored data file for the maintenance API.
type FileInfo struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"lastModified"`
}

// Files lists the daily data files.
func (s *Store) Files() ([]FileInfo, error) {
	names, err := s.dataFiles()
	if err != nil {
		return nil, err
	}

	infos := []FileInfo{}
	for _, name := range names {
		fi, err := os.Stat(filepath.Join(s.dataDir, name))
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		infos = append(infos, FileInfo{
			Name:         name,
			Size:         fi.Size(),
			LastModified: fi.ModTime().Unix(),
		})
	}
	return infos, nil
}

// DeleteFile removes a single data file by name. Only plain data file
// names are accepted; anything resembling a path is rejected.
func (s *Store) DeleteFile(name string) error {
	if name != filepath.Base(name) || !strings.HasPrefix(name, dataPrefix) {
		return fmt.Errorf("invalid data file name %q", name)
	}
	if err := os.Remove(filepath.Join(s.dataDir, name)); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	log.Printf("store: deleted data file %s", name)
	return nil
}
