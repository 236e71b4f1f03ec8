package simpledb

import (
	"errors"
	"testing"
)

func TestFile(t *testing.T) {
	fm, err := NewFileManager(t.TempDir(), DefaultBlockSize)
	if err != nil {
		t.Fatal(err)
	}
	defer fm.Close()

	blk := NewBlockID("testfile", 2)
	p1 := NewPage(fm.BlockSize())
	var pos1 int32 = 88
	if err := p1.SetStr(pos1, "abcdefghijklmn"); err != nil {
		t.Fatal(err)
	}
	size := MaxLength(len("abcdefghijklmn"))
	pos2 := pos1 + size
	if err := p1.SetInt32(pos2, 345); err != nil {
		t.Fatal(err)
	}
	if err := fm.Write(blk, p1); err != nil {
		t.Fatal(err)
	}

	p2 := NewPage(fm.BlockSize())
	if err := fm.Read(blk, p2); err != nil {
		t.Fatal(err)
	}

	got1, err := p2.Int32(pos2)
	if err != nil {
		t.Fatal(err)
	}
	if got1 != 345 {
		t.Errorf("expected 345, got %d", got1)
	}

	got2, err := p2.Str(pos1)
	if err != nil {
		t.Fatal(err)
	}
	if got2 != "abcdefghijklmn" {
		t.Errorf("expected abcdefghijklmn, got %s", got2)
	}

	if err := p2.SetInt32(fm.BlockSize()-2, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
}
