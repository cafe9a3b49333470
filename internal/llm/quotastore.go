package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// quotaRecord is the persisted daily usage for one provider.
type quotaRecord struct {
	LastResetDate string `json:"last_reset_date"`
	DailyUsage    int    `json:"daily_usage"`
}

// quotaStore persists daily request counts per provider in a single shared
// JSON file. Every save re-reads the file and merges, so a write for one
// provider never clobbers entries for its siblings.
type quotaStore struct {
	logger *slog.Logger
	path   string
	mu     sync.Mutex
}

func newQuotaStore(path string, logger *slog.Logger) *quotaStore {
	return &quotaStore{path: path, logger: logger}
}

// load returns the stored record for a provider. A missing file or missing
// provider entry is not an error; ok reports whether an entry was found.
func (s *quotaStore) load(provider string) (rec quotaRecord, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		s.logger.Error("failed to load rate limit state", "path", s.path, "error", err)
		return quotaRecord{}, false
	}

	rec, ok = data[provider]
	return rec, ok
}

// save writes the record for a provider, preserving all other entries.
func (s *quotaStore) save(provider string, rec quotaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		// Corrupt state is recoverable: start a fresh document rather than
		// losing the ability to persist at all.
		s.logger.Warn("rate limit state unreadable, starting fresh", "path", s.path, "error", err)
		data = make(map[string]quotaRecord)
	}

	data[provider] = rec

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rate limit state: %w", err)
	}

	if err := os.WriteFile(s.path, buf, 0o600); err != nil {
		return fmt.Errorf("failed to save rate limit state: %w", err)
	}

	return nil
}

// QuotaUsage reports the persisted daily usage for one provider.
type QuotaUsage struct {
	LastResetDate string
	DailyUsage    int
}

// ReadQuotaUsage loads the quota store file for inspection. A missing file
// yields an empty map.
func ReadQuotaUsage(path string) (map[string]QuotaUsage, error) {
	s := &quotaStore{path: path, logger: slog.Default()}
	data, err := s.read()
	if err != nil {
		return nil, err
	}

	usage := make(map[string]QuotaUsage, len(data))
	for provider, rec := range data {
		usage[provider] = QuotaUsage{
			DailyUsage:    rec.DailyUsage,
			LastResetDate: rec.LastResetDate,
		}
	}
	return usage, nil
}

// read parses the state file. A missing file yields an empty document.
func (s *quotaStore) read() (map[string]quotaRecord, error) {
	buf, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]quotaRecord), nil
	}
	if err != nil {
		return nil, err
	}

	data := make(map[string]quotaRecord)
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil, fmt.Errorf("failed to parse rate limit state: %w", err)
	}

	return data, nil
}
