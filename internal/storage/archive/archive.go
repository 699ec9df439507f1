package archive

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

var magicBytes = []byte("WIARCHIV")

const (
	filePrefix    = "archive-"
	fileExtension = ".wia"
	checksumSize  = 32
	headerVersion = 1

	// DefaultRetentionCount is the number of archives Prune keeps.
	DefaultRetentionCount = 5
)

var (
	ErrInvalidMagic     = errors.New("archive: invalid magic bytes")
	ErrChecksumMismatch = errors.New("archive: checksum mismatch")
	ErrNotFound         = errors.New("archive: not found")
)

// Header is the metadata stored at the front of every archive.
type Header struct {
	Version      int    `json:"version"`
	CreatedAt    int64  `json:"created_at"`
	Source       string `json:"source,omitempty"`
	AuditEntries uint64 `json:"audit_entries"`
	Fingerprints uint64 `json:"fingerprints"`
}

// Config configures the archive manager.
type Config struct {
	Dir string
	// RetentionCount is how many archives Prune keeps. Zero means
	// DefaultRetentionCount.
	RetentionCount int
}

// Manager creates, lists, verifies and prunes archives in one directory.
type Manager struct {
	cfg Config
	now func() time.Time
}

// NewManager creates cfg.Dir if needed.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("archive: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("archive: create dir: %w", err)
	}
	if cfg.RetentionCount <= 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}
	return &Manager{cfg: cfg, now: time.Now}, nil
}

// Dir returns the archive directory.
func (m *Manager) Dir() string {
	return m.cfg.Dir
}

// Info describes one archive file.
type Info struct {
	ID           string    `json:"id" yaml:"id"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	AuditEntries uint64    `json:"audit_entries" yaml:"audit_entries"`
	Fingerprints uint64    `json:"fingerprints" yaml:"fingerprints"`
	Size         int64     `json:"size" yaml:"size"`
	Checksum     string    `json:"checksum,omitempty" yaml:"checksum,omitempty" table:"wide"`
	Path         string    `json:"path" yaml:"path" table:"wide"`
}

// Create writes a new archive. hdr.Version and hdr.CreatedAt are filled in;
// write streams the payload.
func (m *Manager) Create(hdr Header, write func(io.Writer) error) (*Info, error) {
	now := m.now()
	id := m.generateID(now)
	hdr.Version = headerVersion
	hdr.CreatedAt = now.UnixMilli()

	tempPath := filepath.Join(m.cfg.Dir, id+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("archive: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	buf := bufio.NewWriter(io.MultiWriter(file, hash))

	if err := writeHeader(buf, hdr); err != nil {
		file.Close()
		return nil, err
	}
	if err := write(buf); err != nil {
		file.Close()
		return nil, fmt.Errorf("archive: write payload: %w", err)
	}
	if err := buf.Flush(); err != nil {
		file.Close()
		return nil, fmt.Errorf("archive: flush: %w", err)
	}

	// Checksum trailer is not part of the hashed bytes.
	sum := hash.Sum(nil)
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("archive: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("archive: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("archive: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}
	finalPath := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("archive: rename: %w", err)
	}

	return &Info{
		ID:           id,
		CreatedAt:    time.UnixMilli(hdr.CreatedAt).UTC(),
		AuditEntries: hdr.AuditEntries,
		Fingerprints: hdr.Fingerprints,
		Size:         stat.Size(),
		Checksum:     hex.EncodeToString(sum),
		Path:         finalPath,
	}, nil
}

func writeHeader(w io.Writer, hdr Header) error {
	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("archive: marshal header: %w", err)
	}
	var hdrLen [4]byte
	binary.BigEndian.PutUint32(hdrLen[:], uint32(len(hdrJSON)))
	if _, err := w.Write(magicBytes); err != nil {
		return fmt.Errorf("archive: write magic: %w", err)
	}
	if _, err := w.Write(hdrLen[:]); err != nil {
		return fmt.Errorf("archive: write header length: %w", err)
	}
	if _, err := w.Write(hdrJSON); err != nil {
		return fmt.Errorf("archive: write header: %w", err)
	}
	return nil
}

// Resolve maps an archive ID or path to a path. Bare IDs are looked up in
// the archive directory.
func (m *Manager) Resolve(ref string) (string, error) {
	path := ref
	if !strings.ContainsRune(ref, os.PathSeparator) {
		path = filepath.Join(m.cfg.Dir, strings.TrimSuffix(ref, fileExtension)+fileExtension)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return "", err
	}
	return path, nil
}

// Verify checks the archive at path and returns its metadata.
func (m *Manager) Verify(path string) (*Info, error) {
	return m.Read(path, nil)
}

// Read verifies the archive at path and, when fn is non-nil, passes it the
// payload.
func (m *Manager) Read(path string, fn func(io.Reader) error) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() < int64(len(magicBytes))+4+checksumSize {
		return nil, ErrChecksumMismatch
	}

	// 1. Checksum
	dataLen := stat.Size() - checksumSize
	expected := make([]byte, checksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, dataLen, checksumSize), expected); err != nil {
		return nil, err
	}
	h := sha256.New()
	if _, err := io.Copy(h, io.NewSectionReader(f, 0, dataLen)); err != nil {
		return nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		return nil, ErrChecksumMismatch
	}

	// 2. Header
	br := bufio.NewReader(io.NewSectionReader(f, 0, dataLen))
	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, ErrInvalidMagic
	}
	var hdrLenBuf [4]byte
	if _, err := io.ReadFull(br, hdrLenBuf[:]); err != nil {
		return nil, err
	}
	hdrLen := binary.BigEndian.Uint32(hdrLenBuf[:])
	if hdrLen == 0 || int64(hdrLen) > dataLen {
		return nil, fmt.Errorf("archive: invalid header length %d", hdrLen)
	}
	hdrJSON := make([]byte, hdrLen)
	if _, err := io.ReadFull(br, hdrJSON); err != nil {
		return nil, err
	}
	var hdr Header
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, fmt.Errorf("archive: unmarshal header: %w", err)
	}
	if hdr.Version != headerVersion {
		return nil, fmt.Errorf("archive: unsupported version %d", hdr.Version)
	}

	// 3. Payload
	if fn != nil {
		if err := fn(br); err != nil {
			return nil, err
		}
	}

	return &Info{
		ID:           strings.TrimSuffix(filepath.Base(path), fileExtension),
		CreatedAt:    time.UnixMilli(hdr.CreatedAt).UTC(),
		AuditEntries: hdr.AuditEntries,
		Fingerprints: hdr.Fingerprints,
		Size:         stat.Size(),
		Checksum:     hex.EncodeToString(expected),
		Path:         path,
	}, nil
}

// List returns archive files oldest first, with metadata from the file name
// and size only.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			paths = append(paths, filepath.Join(m.cfg.Dir, name))
		}
	}
	sort.Strings(paths)

	infos := make([]*Info, 0, len(paths))
	for _, p := range paths {
		stat, err := os.Stat(p)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			ID:   strings.TrimSuffix(filepath.Base(p), fileExtension),
			Path: p,
			Size: stat.Size(),
		})
	}
	return infos, nil
}

// Prune removes all but the newest RetentionCount archives and returns the
// IDs it removed.
func (m *Manager) Prune() ([]string, error) {
	infos, err := m.List()
	if err != nil {
		return nil, err
	}
	excess := len(infos) - m.cfg.RetentionCount
	if excess <= 0 {
		return nil, nil
	}

	var removed []string
	for _, info := range infos[:excess] {
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("archive: remove %s: %w", info.ID, err)
		}
		removed = append(removed, info.ID)
	}
	return removed, nil
}

// generateID names an archive after t, numbering archives created within the
// same second after the highest existing sequence.
func (m *Manager) generateID(t time.Time) string {
	prefix := filePrefix + t.UTC().Format("20060102150405") + "-"
	seq := 0

	entries, _ := os.ReadDir(m.cfg.Dir)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileExtension))
		if err == nil && n > seq {
			seq = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1)
}
