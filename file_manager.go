// Package simpledb exposes the block-structured file layer of SimpleDB: block ids, pages with
// typed field accessors, and the file manager that moves pages to and from disk.
package simpledb

import (
	"github.com/abekoh/simpledb-file/internal/file"
)

type (
	BlockID     = file.BlockID
	Page        = file.Page
	FileManager = file.Manager
	Config      = file.Config
	BoundsError = file.BoundsError
)

const DefaultBlockSize = file.DefaultBlockSize

var (
	ErrOutOfBounds  = file.ErrOutOfBounds
	ErrInvalidUTF8  = file.ErrInvalidUTF8
	ErrShortRead    = file.ErrShortRead
	ErrPageSize     = file.ErrPageSize
	ErrClosed       = file.ErrClosed
	ErrNotDirectory = file.ErrNotDirectory
)

func NewBlockID(filename string, blkNum int32) BlockID {
	return file.NewBlockID(filename, blkNum)
}

func NewPage(blockSize int32) *Page {
	return file.NewPage(blockSize)
}

func NewPageBytes(b []byte) *Page {
	return file.NewPageBytes(b)
}

func MaxLength(strlen int) int32 {
	return file.MaxLength(strlen)
}

func MaxEncodedLength(strlen int) int32 {
	return file.MaxEncodedLength(strlen)
}

func NewTempFilename() string {
	return file.NewTempFilename()
}

// NewFileManager opens dbDirPath on the operating system file system, creating it if needed.
func NewFileManager(dbDirPath string, blockSize int32) (*FileManager, error) {
	return file.NewManager(dbDirPath, blockSize)
}

func NewFileManagerWithConfig(dbDirPath string, cfg *Config) (*FileManager, error) {
	return file.NewManagerWithConfig(dbDirPath, cfg)
}
