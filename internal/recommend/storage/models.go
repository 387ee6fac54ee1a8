// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/papertrail/internal/recommend/ncf"
)

const (
	modelPrefix   = "ncf_model_"
	mappingPrefix = "id_mappings_"
	fileSuffix    = ".gob.gz"

	// LatestVersion names the alias files of the most recent save.
	LatestVersion = "latest"
)

var (
	// ErrSnapshotNotFound is returned when a model or mapping file is missing.
	ErrSnapshotNotFound = errors.New("model snapshot not found")

	// ErrMappingMismatch is returned when a model and mapping file do not
	// belong to the same training run.
	ErrMappingMismatch = errors.New("model and id mapping do not match")

	// ErrInvalidVersion is returned for version tags that cannot be used as
	// file name components.
	ErrInvalidVersion = errors.New("invalid model version")

	versionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)
)

// FileKind distinguishes the two halves of a stored version.
type FileKind string

// File kinds.
const (
	KindModel   FileKind = "model"
	KindMapping FileKind = "mapping"
)

// Metadata describes one stored file.
type Metadata struct {
	// Version is the training run tag, e.g. "v_20260101_120000".
	Version string `json:"version"`

	// Kind is the file kind.
	Kind FileKind `json:"kind"`

	// Architecture is the model architecture tag.
	Architecture string `json:"architecture"`

	// NumUsers is the number of mapped users.
	NumUsers int `json:"num_users"`

	// NumItems is the number of mapped items.
	NumItems int `json:"num_items"`

	// SavedAt is when the file was written.
	SavedAt time.Time `json:"saved_at"`

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`
}

// Mappings are the id bijections a model was trained against.
type Mappings struct {
	UserToIndex map[int]int
	IndexToUser []int
	ItemToIndex map[int]int
	IndexToItem []int
}

// Validate checks that both tables are consistent bijections.
func (m *Mappings) Validate() error {
	if err := checkBijection("user", m.UserToIndex, m.IndexToUser); err != nil {
		return err
	}
	return checkBijection("item", m.ItemToIndex, m.IndexToItem)
}

func checkBijection(name string, fwd map[int]int, rev []int) error {
	if len(fwd) != len(rev) {
		return fmt.Errorf("%s mapping: %d forward entries, %d reverse entries", name, len(fwd), len(rev))
	}
	for idx, id := range rev {
		if got, ok := fwd[id]; !ok || got != idx {
			return fmt.Errorf("%s mapping: id %d at index %d does not round-trip", name, id, idx)
		}
	}
	return nil
}

// Bundle is a loaded model together with its mapping.
type Bundle struct {
	Snapshot *ncf.Snapshot
	Mappings *Mappings
	Model    Metadata
	Mapping  Metadata
}

// storedFile is the on-disk envelope.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Store manages snapshot persistence in a single directory.
type Store struct {
	baseDir string
	mu      sync.RWMutex
}

// NewStore creates a store rooted at baseDir, creating the directory if needed.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.baseDir
}

// ModelPath returns the model file path for version.
func (s *Store) ModelPath(version string) string {
	return filepath.Join(s.baseDir, modelPrefix+version+fileSuffix)
}

// MappingPath returns the mapping file path for version.
func (s *Store) MappingPath(version string) string {
	return filepath.Join(s.baseDir, mappingPrefix+version+fileSuffix)
}

// ValidateVersion reports whether version can be used as a tag.
func ValidateVersion(version string) error {
	if version == LatestVersion || !versionPattern.MatchString(version) {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return nil
}

// Save writes the snapshot and mapping for version and then refreshes the
// latest aliases. It returns the model file metadata.
func (s *Store) Save(ctx context.Context, version string, snap *ncf.Snapshot, mappings *Mappings) (*Metadata, error) {
	meta, err := s.Stage(ctx, version, snap, mappings)
	if err != nil {
		return nil, err
	}
	if err := s.Promote(ctx, version); err != nil {
		return nil, err
	}
	return meta, nil
}

// Stage writes the snapshot and mapping for version without touching the
// latest aliases. It returns the model file metadata.
func (s *Store) Stage(ctx context.Context, version string, snap *ncf.Snapshot, mappings *Mappings) (*Metadata, error) {
	if err := ValidateVersion(version); err != nil {
		return nil, err
	}
	if snap == nil || mappings == nil {
		return nil, errors.New("snapshot and mappings are required")
	}
	if err := mappings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mappings: %w", err)
	}
	if snap.Config.NumUsers != len(mappings.IndexToUser) || snap.Config.NumItems != len(mappings.IndexToItem) {
		return nil, fmt.Errorf("%w: model is %dx%d, mapping is %dx%d", ErrMappingMismatch,
			snap.Config.NumUsers, snap.Config.NumItems, len(mappings.IndexToUser), len(mappings.IndexToItem))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	base := Metadata{
		Version:      version,
		Architecture: ncf.Architecture,
		NumUsers:     snap.Config.NumUsers,
		NumItems:     snap.Config.NumItems,
		SavedAt:      now,
	}

	modelMeta := base
	modelMeta.Kind = KindModel
	modelFile, err := encodeFile(snap, modelMeta)
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}

	mappingMeta := base
	mappingMeta.Kind = KindMapping
	mappingFile, err := encodeFile(mappings, mappingMeta)
	if err != nil {
		return nil, fmt.Errorf("encode mappings: %w", err)
	}

	writes := []struct {
		path string
		data []byte
	}{
		{s.ModelPath(version), modelFile.data},
		{s.MappingPath(version), mappingFile.data},
	}
	for _, w := range writes {
		if err := writeAtomic(w.path, w.data); err != nil {
			return nil, err
		}
	}

	meta := modelFile.meta
	return &meta, nil
}

// Promote points the latest aliases at a staged version. A reader that
// catches the aliases half-written fails the version check in Load.
func (s *Store) Promote(ctx context.Context, version string) error {
	if err := ValidateVersion(version); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	pairs := []struct{ from, to string }{
		{s.MappingPath(version), s.MappingPath(LatestVersion)},
		{s.ModelPath(version), s.ModelPath(LatestVersion)},
	}
	for _, p := range pairs {
		data, err := os.ReadFile(p.from) //nolint:gosec // path is built from a validated version tag
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("promote %s: %w", version, ErrSnapshotNotFound)
			}
			return fmt.Errorf("promote %s: %w", version, err)
		}
		if err := writeAtomic(p.to, data); err != nil {
			return err
		}
	}
	return nil
}

type encoded struct {
	meta Metadata
	data []byte
}

func encodeFile(payload any, meta Metadata) (*encoded, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(payload); err != nil {
		return nil, err
	}

	hash := sha256.Sum256(raw.Bytes())
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}
	meta.SizeBytes = int64(compressed.Len())

	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return nil, err
	}
	return &encoded{meta: meta, data: out.Bytes()}, nil
}

// writeAtomic writes data to a temporary file in the target directory and
// renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadLatest loads the latest model and mapping aliases.
func (s *Store) LoadLatest(ctx context.Context) (*Bundle, error) {
	return s.Load(ctx, LatestVersion)
}

// Load loads the model and mapping stored under version. Both files must
// exist and carry the same version tag.
func (s *Store) Load(ctx context.Context, version string) (*Bundle, error) {
	if version != LatestVersion {
		if err := ValidateVersion(version); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snap ncf.Snapshot
	modelMeta, err := readFile(s.ModelPath(version), &snap)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", version, err)
	}

	var mappings Mappings
	mappingMeta, err := readFile(s.MappingPath(version), &mappings)
	if err != nil {
		return nil, fmt.Errorf("load mappings %s: %w", version, err)
	}

	if modelMeta.Version != mappingMeta.Version {
		return nil, fmt.Errorf("%w: model %s, mapping %s", ErrMappingMismatch, modelMeta.Version, mappingMeta.Version)
	}
	if snap.Config.NumUsers != len(mappings.IndexToUser) || snap.Config.NumItems != len(mappings.IndexToItem) {
		return nil, fmt.Errorf("%w: model is %dx%d, mapping is %dx%d", ErrMappingMismatch,
			snap.Config.NumUsers, snap.Config.NumItems, len(mappings.IndexToUser), len(mappings.IndexToItem))
	}

	return &Bundle{
		Snapshot: &snap,
		Mappings: &mappings,
		Model:    *modelMeta,
		Mapping:  *mappingMeta,
	}, nil
}

func readFile(path string, target any) (*Metadata, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from a validated version tag
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if sum := hex.EncodeToString(hash[:]); sum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, sum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &sf.Metadata, nil
}

// ListVersions returns the stored version tags, newest first by save time.
// The latest aliases are not included.
func (s *Store) ListVersions(ctx context.Context) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listVersions(ctx)
}

func (s *Store) listVersions(ctx context.Context) ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var out []Metadata
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, modelPrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		version := strings.TrimSuffix(strings.TrimPrefix(name, modelPrefix), fileSuffix)
		if version == LatestVersion {
			continue
		}
		meta, err := readMetadata(filepath.Join(s.baseDir, name))
		if err != nil {
			continue
		}
		out = append(out, *meta)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].Version > out[j].Version
	})
	return out, nil
}

func readMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from a directory listing of the store
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, err
	}
	return &sf.Metadata, nil
}

// Delete removes both files of version. The latest aliases cannot be deleted.
func (s *Store) Delete(ctx context.Context, version string) error {
	if err := ValidateVersion(version); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.deleteVersion(version)
}

func (s *Store) deleteVersion(version string) error {
	var errs []error
	for _, p := range []string{s.ModelPath(version), s.MappingPath(version)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("delete %s: %w", version, errors.Join(errs...))
	}
	return nil
}

// Prune keeps the newest keep versions and deletes the rest. The version the
// latest alias points at is never removed. It returns the deleted tags.
func (s *Store) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.listVersions(ctx)
	if err != nil {
		return nil, err
	}

	active := ""
	if meta, err := readMetadata(s.ModelPath(LatestVersion)); err == nil {
		active = meta.Version
	}

	var removed []string
	for i, meta := range versions {
		if i < keep || meta.Version == active {
			continue
		}
		if err := s.deleteVersion(meta.Version); err != nil {
			return removed, err
		}
		removed = append(removed, meta.Version)
	}
	return removed, nil
}

//nolint:gochecknoinits // gob.Register must be called in init for type registration
func init() {
	gob.Register(storedFile{})
	gob.Register(Metadata{})
	gob.Register(Mappings{})
	gob.Register(ncf.Snapshot{})
}
