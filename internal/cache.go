package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheVersion is bumped whenever the cached payload layout changes.
const CacheVersion = "2.0"

// CacheManager caches pipeline results keyed by document content and configuration
type CacheManager struct {
	cacheDir string
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	CacheVersion string    `json:"cache_version" yaml:"cache_version"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// CacheIndexEntry represents one cached document in the index
type CacheIndexEntry struct {
	Key          string    `yaml:"key"`
	Filename     string    `yaml:"filename,omitempty"`
	ContentHash  string    `yaml:"content_hash"`
	Fingerprint  string    `yaml:"fingerprint"`
	RowCount     int       `yaml:"row_count"`
	SessionCount int       `yaml:"session_count"`
	CreatedAt    time.Time `yaml:"created_at"`
}

// CacheIndex represents the YAML index of all cached documents
type CacheIndex struct {
	Entries  []CacheIndexEntry `yaml:"entries"`
	Metadata CacheMetadata     `yaml:"metadata"`
}

// cachedResult is the on-disk payload. Sessions are rebuilt on load so
// turns keep pointing at the loaded records.
type cachedResult struct {
	Document *ParsedDocument   `json:"document"`
	Profile  *StructureProfile `json:"profile"`
	Records  []*StandardRecord `json:"records"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
	}
}

// CacheKey combines the content hash and the configuration fingerprint
func CacheKey(content []byte, cfg Config) string {
	return ContentHash(content)[:16] + "-" + cfg.Fingerprint()
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetIndexPath returns the path to the cache index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "index.yaml")
}

// GetEntryPath returns the path to a cached result file
func (cm *CacheManager) GetEntryPath(key string) string {
	return filepath.Join(cm.cacheDir, fmt.Sprintf("result_%s.json", key))
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// IsCacheValid checks whether a result for key is indexed and present on disk
func (cm *CacheManager) IsCacheValid(key string) (bool, error) {
	if _, err := os.Stat(cm.GetIndexPath()); os.IsNotExist(err) {
		return false, nil
	}

	index, err := cm.LoadIndex()
	if err != nil {
		return false, nil
	}
	if index.Metadata.CacheVersion != CacheVersion {
		return false, nil
	}
	if cm.findEntry(index, key) < 0 {
		return false, nil
	}

	if _, err := os.Stat(cm.GetEntryPath(key)); err != nil {
		return false, nil
	}
	return true, nil
}

// LoadIndex loads the cache index
func (cm *CacheManager) LoadIndex() (*CacheIndex, error) {
	data, err := os.ReadFile(cm.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index CacheIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}

	return &index, nil
}

// SaveIndex saves the cache index
func (cm *CacheManager) SaveIndex(index *CacheIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	return os.WriteFile(cm.GetIndexPath(), data, 0644)
}

// Load reads a cached result and regroups its sessions
func (cm *CacheManager) Load(key string) (*Result, error) {
	data, err := os.ReadFile(cm.GetEntryPath(key))
	if err != nil {
		return nil, err
	}

	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	return &Result{
		Document: cached.Document,
		Profile:  cached.Profile,
		Records:  cached.Records,
		Sessions: GroupBySession(cached.Records),
	}, nil
}

// Save writes a result and updates the index
func (cm *CacheManager) Save(key, filename string, res *Result) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := json.Marshal(cachedResult{Document: res.Document, Profile: res.Profile, Records: res.Records})
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(cm.GetEntryPath(key), data, 0644); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	// Load existing index or create new one
	index, err := cm.LoadIndex()
	if err != nil || index.Metadata.CacheVersion != CacheVersion {
		index = &CacheIndex{
			Entries: make([]CacheIndexEntry, 0),
			Metadata: CacheMetadata{
				CacheVersion: CacheVersion,
				CreatedAt:    time.Now(),
			},
		}
	}
	index.Metadata.UpdatedAt = time.Now()

	entry := CacheIndexEntry{
		Key:          key,
		Filename:     filename,
		ContentHash:  contentHashOf(key),
		Fingerprint:  fingerprintOf(key),
		RowCount:     len(res.Records),
		SessionCount: len(res.Sessions),
		CreatedAt:    time.Now(),
	}

	if i := cm.findEntry(index, key); i >= 0 {
		index.Entries[i] = entry
	} else {
		index.Entries = append(index.Entries, entry)
	}

	return cm.SaveIndex(index)
}

// ClearCache clears the cache
func (cm *CacheManager) ClearCache() error {
	index, err := cm.LoadIndex()
	if err == nil {
		for _, entry := range index.Entries {
			_ = os.Remove(cm.GetEntryPath(entry.Key))
		}
	}

	if err := os.Remove(cm.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (cm *CacheManager) findEntry(index *CacheIndex, key string) int {
	for i, e := range index.Entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

func contentHashOf(key string) string {
	if len(key) < 16 {
		return key
	}
	return key[:16]
}

func fingerprintOf(key string) string {
	if len(key) <= 17 {
		return ""
	}
	return key[17:]
}
