package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
)

const (
	DefaultBlockSize int32 = 400

	tempPrefix = "temp"
)

type Config struct {
	BlockSize int32
	// Fs defaults to the operating system file system.
	Fs     afero.Fs
	Logger *slog.Logger
}

func (c *Config) withDefaults() Config {
	var res Config
	if c != nil {
		res = *c
	}
	if res.BlockSize == 0 {
		res.BlockSize = DefaultBlockSize
	}
	if res.Fs == nil {
		res.Fs = afero.NewOsFs()
	}
	if res.Logger == nil {
		res.Logger = slog.Default()
	}
	return res
}

// Manager moves pages between memory and the block-structured files of one database directory.
// Block n of a file occupies bytes [n*blockSize, (n+1)*blockSize).
type Manager struct {
	fs        afero.Fs
	logger    *slog.Logger
	dbDirPath string
	blockSize int32
	isNew     bool

	mu        sync.Mutex
	openFiles map[string]afero.File
	closed    bool
	kmu       keyedMutex
}

func NewManager(dbDirPath string, blockSize int32) (*Manager, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("invalid block size %d", blockSize)
	}
	return NewManagerWithConfig(dbDirPath, &Config{BlockSize: blockSize})
}

func NewManagerWithConfig(dbDirPath string, cfg *Config) (*Manager, error) {
	c := cfg.withDefaults()
	if c.BlockSize <= 0 {
		return nil, fmt.Errorf("invalid block size %d", c.BlockSize)
	}
	isNew := false
	fi, err := c.Fs.Stat(dbDirPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		isNew = true
		if err := c.Fs.MkdirAll(dbDirPath, 0755); err != nil {
			return nil, fmt.Errorf("could not create %s: %w", dbDirPath, err)
		}
		c.Logger.Info("Created database directory", "dir", dbDirPath)
	case err != nil:
		return nil, fmt.Errorf("could not stat %s: %w", dbDirPath, err)
	case !fi.IsDir():
		return nil, fmt.Errorf("%s: %w", dbDirPath, ErrNotDirectory)
	}
	m := &Manager{
		fs:        c.Fs,
		logger:    c.Logger,
		dbDirPath: dbDirPath,
		blockSize: c.BlockSize,
		isNew:     isNew,
		openFiles: make(map[string]afero.File),
	}
	// Leftover temp files are only swept when the directory is new; callers resuming an
	// existing database use RemoveTempFiles.
	if isNew {
		if _, err := m.RemoveTempFiles(); err != nil {
			return nil, fmt.Errorf("could not remove temp files: %w", err)
		}
	}
	return m, nil
}

// NewTempFilename returns a unique file name recognised as temporary by RemoveTempFiles.
func NewTempFilename() string {
	return fmt.Sprintf("%s_%s", tempPrefix, ulid.Make())
}

// RemoveTempFiles deletes every entry of the database directory whose name starts with "temp"
// and returns how many were removed.
func (m *Manager) RemoveTempFiles() (int, error) {
	entries, err := afero.ReadDir(m.fs, m.dbDirPath)
	if err != nil {
		return 0, fmt.Errorf("could not read %s: %w", m.dbDirPath, err)
	}
	removed := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		if err := m.removeFile(e.Name()); err != nil {
			return removed, err
		}
		removed++
		m.logger.Info("Removed temp file", "dir", m.dbDirPath, "name", e.Name())
	}
	return removed, nil
}

func (m *Manager) removeFile(filename string) error {
	unlock := m.kmu.lock(filename)
	defer unlock()
	m.mu.Lock()
	f, ok := m.openFiles[filename]
	delete(m.openFiles, filename)
	m.mu.Unlock()
	if ok {
		if err := f.Close(); err != nil {
			return fmt.Errorf("could not close %s: %w", filename, err)
		}
	}
	if err := m.fs.Remove(filepath.Join(m.dbDirPath, filename)); err != nil {
		return fmt.Errorf("could not remove %s: %w", filename, err)
	}
	return nil
}

// getFile locks filename and returns its cached handle, opening it on first use.
// The returned unlock must be called even when err is non-nil.
func (m *Manager) getFile(filename string) (afero.File, func(), error) {
	unlock := m.kmu.lock(filename)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, unlock, ErrClosed
	}
	if f, ok := m.openFiles[filename]; ok {
		return f, unlock, nil
	}
	f, err := m.fs.OpenFile(filepath.Join(m.dbDirPath, filename), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, unlock, fmt.Errorf("could not open %s: %w", filename, err)
	}
	m.openFiles[filename] = f
	m.logger.Debug("Opened file", "dir", m.dbDirPath, "name", filename)
	return f, unlock, nil
}

// Read fills p with block blk. On error p is left unchanged.
func (m *Manager) Read(blk BlockID, p *Page) error {
	if err := m.checkPage(p); err != nil {
		return err
	}
	f, unlock, err := m.getFile(blk.filename)
	defer unlock()
	if err != nil {
		return fmt.Errorf("could not get file: %w", err)
	}
	off := m.offset(blk)
	buf := make([]byte, len(p.bb))
	n, err := f.ReadAt(buf, off)
	if n == len(buf) {
		copy(p.bb, buf)
		return nil
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("could not read at %d: %w", off, err)
	}
	return fmt.Errorf("could not read %s: %w: got %d of %d bytes", blk, ErrShortRead, n, len(p.bb))
}

func (m *Manager) Write(blk BlockID, p *Page) error {
	if err := m.checkPage(p); err != nil {
		return err
	}
	f, unlock, err := m.getFile(blk.filename)
	defer unlock()
	if err != nil {
		return fmt.Errorf("could not get file: %w", err)
	}
	off := m.offset(blk)
	if _, err := f.WriteAt(p.bb, off); err != nil {
		return fmt.Errorf("could not write at %d: %w", off, err)
	}
	return nil
}

// Append extends filename by one zero-filled block.
func (m *Manager) Append(filename string) (BlockID, error) {
	f, unlock, err := m.getFile(filename)
	defer unlock()
	if err != nil {
		return BlockID{}, fmt.Errorf("could not get file: %w", err)
	}
	blkNum, err := m.lengthFromFile(f)
	if err != nil {
		return BlockID{}, fmt.Errorf("could not get lengthFromFile: %w", err)
	}
	blkID := NewBlockID(filename, blkNum)
	off := m.offset(blkID)
	if _, err := f.WriteAt(make([]byte, m.blockSize), off); err != nil {
		return BlockID{}, fmt.Errorf("could not write at %d: %w", off, err)
	}
	m.logger.Debug("Appended block", "block", blkID)
	return blkID, nil
}

// Length returns the number of whole blocks in filename.
func (m *Manager) Length(filename string) (int32, error) {
	f, unlock, err := m.getFile(filename)
	defer unlock()
	if err != nil {
		return 0, fmt.Errorf("could not get file: %w", err)
	}
	return m.lengthFromFile(f)
}

func (m *Manager) lengthFromFile(f afero.File) (int32, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("could not stat file: %w", err)
	}
	return int32(fi.Size() / int64(m.blockSize)), nil
}

// Close releases every cached file handle. Operations after Close fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	files := m.openFiles
	m.openFiles = make(map[string]afero.File)
	m.mu.Unlock()

	var errs []error
	for name, f := range files {
		unlock := m.kmu.lock(name)
		if err := f.Close(); err != nil {
			m.logger.Warn("Could not close file", "dir", m.dbDirPath, "name", name, "error", err)
			errs = append(errs, fmt.Errorf("could not close %s: %w", name, err))
		}
		unlock()
	}
	return errors.Join(errs...)
}

func (m *Manager) BlockSize() int32 {
	return m.blockSize
}

func (m *Manager) IsNew() bool {
	return m.isNew
}

func (m *Manager) Dir() string {
	return m.dbDirPath
}

func (m *Manager) offset(blk BlockID) int64 {
	return int64(blk.blkNum) * int64(m.blockSize)
}

func (m *Manager) checkPage(p *Page) error {
	if p.Size() != m.blockSize {
		return fmt.Errorf("%w: page has %d bytes, block size is %d", ErrPageSize, p.Size(), m.blockSize)
	}
	return nil
}

type keyedMutex struct {
	mutexes sync.Map
}

func (m *keyedMutex) lock(key string) func() {
	mu, _ := m.mutexes.LoadOrStore(key, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	return func() {
		mu.(*sync.Mutex).Unlock()
	}
}
