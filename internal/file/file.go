package file

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

const int32Size = 4

type BlockID struct {
	filename string
	blkNum   int32
}

func NewBlockID(filename string, blkNum int32) BlockID {
	return BlockID{
		filename: filename,
		blkNum:   blkNum,
	}
}

func (b BlockID) Filename() string {
	return b.filename
}

func (b BlockID) Num() int32 {
	return b.blkNum
}

func (b BlockID) String() string {
	return fmt.Sprintf("[file %s, block %d]", b.filename, b.blkNum)
}

// Page is a fixed-size buffer holding one block. Integers are stored as 4 bytes big-endian,
// blobs and strings as a 4-byte length followed by the raw bytes.
type Page struct {
	bb []byte
}

// NewPage panics if blockSize is negative, like make.
func NewPage(blockSize int32) *Page {
	return &Page{
		bb: make([]byte, blockSize),
	}
}

// NewPageBytes wraps b without copying; len(b) becomes the page size.
func NewPageBytes(b []byte) *Page {
	return &Page{
		bb: b,
	}
}

func (p *Page) Size() int32 {
	return int32(len(p.bb))
}

func (p *Page) Int32(offset int32) (int32, error) {
	if err := p.checkBounds(offset, int32Size); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(p.bb[offset:])), nil
}

func (p *Page) SetInt32(offset int32, n int32) error {
	if err := p.checkBounds(offset, int32Size); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(p.bb[offset:], uint32(n))
	return nil
}

// Bytes returns a copy of the length-prefixed blob at offset.
func (p *Page) Bytes(offset int32) ([]byte, error) {
	n, err := p.Int32(offset)
	if err != nil {
		return nil, fmt.Errorf("could not read length: %w", err)
	}
	if n < 0 {
		return nil, &BoundsError{Offset: offset, Length: int32Size + int64(n), Size: p.Size()}
	}
	if err := p.checkBounds(offset, int32Size+int64(n)); err != nil {
		return nil, err
	}
	start := offset + int32Size
	b := make([]byte, n)
	copy(b, p.bb[start:start+n])
	return b, nil
}

func (p *Page) SetBytes(offset int32, b []byte) error {
	if err := p.checkBounds(offset, int32Size+int64(len(b))); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(p.bb[offset:], uint32(len(b)))
	copy(p.bb[offset+int32Size:], b)
	return nil
}

func (p *Page) Str(offset int32) (string, error) {
	b, err := p.Bytes(offset)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("could not decode string at offset %d: %w", offset, ErrInvalidUTF8)
	}
	return string(b), nil
}

func (p *Page) SetStr(offset int32, s string) error {
	return p.SetBytes(offset, []byte(s))
}

// Contents exposes the underlying buffer for whole-block transfer.
func (p *Page) Contents() []byte {
	return p.bb
}

func (p *Page) checkBounds(offset int32, length int64) error {
	if offset < 0 || length < 0 || int64(offset)+length > int64(len(p.bb)) {
		return &BoundsError{Offset: offset, Length: length, Size: p.Size()}
	}
	return nil
}

// MaxLength returns the footprint of a string field holding strlen characters,
// assuming one byte per character. Use MaxEncodedLength for text outside ASCII.
// Results saturate at math.MaxInt32.
func MaxLength(strlen int) int32 {
	const bytesPerChar = 1
	return fieldLength(strlen, bytesPerChar)
}

// MaxEncodedLength returns the footprint of a string field holding up to strlen
// characters of arbitrary UTF-8 text. Results saturate at math.MaxInt32.
func MaxEncodedLength(strlen int) int32 {
	return fieldLength(strlen, utf8.UTFMax)
}

func fieldLength(strlen int, bytesPerChar int) int32 {
	if strlen > (math.MaxInt32-int32Size)/bytesPerChar {
		return math.MaxInt32
	}
	return int32(int32Size + strlen*bytesPerChar)
}
