package handler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var cursorController = common.HexToAddress("0x00000000000000000000000000000000000000c0")

func TestCursorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	cursor := NewCursor(path, true, cursorController)

	if _, ok, err := cursor.Resume(); err != nil || ok {
		t.Fatalf("resume before any advance: ok=%v err=%v", ok, err)
	}

	if err := cursor.Advance(12345); err != nil {
		t.Fatalf("advance: %v", err)
	}

	last, ok, err := cursor.Resume()
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !ok || last != 12345 {
		t.Fatalf("resume = (%d, %v), want (12345, true)", last, ok)
	}
}

func TestCursorOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	cursor := NewCursor(path, true, cursorController)

	if err := cursor.Advance(100); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := cursor.Advance(200); err != nil {
		t.Fatalf("advance: %v", err)
	}

	last, ok, err := cursor.Resume()
	if err != nil || !ok || last != 200 {
		t.Fatalf("resume = (%d, %v, %v), want (200, true, nil)", last, ok, err)
	}
}

func TestCursorIgnoresOtherDeployment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	if err := NewCursor(path, true, cursorController).Advance(777); err != nil {
		t.Fatalf("advance: %v", err)
	}

	other := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	cursor := NewCursor(path, true, other)
	if _, ok, err := cursor.Resume(); err != nil || ok {
		t.Fatalf("resume for another controller: ok=%v err=%v", ok, err)
	}

	// A fresh advance rebinds the file to the new deployment.
	if err := cursor.Advance(888); err != nil {
		t.Fatalf("advance: %v", err)
	}
	last, ok, err := cursor.Resume()
	if err != nil || !ok || last != 888 {
		t.Fatalf("resume = (%d, %v, %v), want (888, true, nil)", last, ok, err)
	}
}

func TestCursorDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	cursor := NewCursor(path, false, cursorController)

	if err := cursor.Advance(42); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("disabled cursor wrote a file: %v", err)
	}
	if _, ok, err := cursor.Resume(); err != nil || ok {
		t.Fatalf("disabled resume: ok=%v err=%v", ok, err)
	}
}

func TestCursorRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	cursor := NewCursor(path, true, cursorController)
	if _, _, err := cursor.Resume(); err == nil {
		t.Fatal("expected error for corrupt cursor file")
	}
}
