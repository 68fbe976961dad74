package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogpu/glowmap"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "snap.json", jsonSnapshot)

	got := make(chan *glowmap.Snapshot, 4)
	w, err := Watch(path, func(s *glowmap.Snapshot) { got <- s }, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	updated := `{"cells": [{"period": 2023, "tier": 1, "tracked_records": 9}]}`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-got:
		if len(s.Cells) != 1 || s.Cells[0].Period != 2023 {
			t.Errorf("reloaded cells = %+v", s.Cells)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "snap.json", jsonSnapshot)

	got := make(chan *glowmap.Snapshot, 4)
	w, err := Watch(path, func(s *glowmap.Snapshot) { got <- s }, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	writeFile(t, dir, "other.json", jsonSnapshot)
	select {
	case <-got:
		t.Error("reloaded after an unrelated file changed")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchReportsDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "snap.json", jsonSnapshot)

	errs := make(chan error, 4)
	w, err := Watch(path, func(*glowmap.Snapshot) {},
		WithDebounce(10*time.Millisecond),
		WithErrorHandler(func(err error) { errs <- err }))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-errs:
	case <-time.After(5 * time.Second):
		t.Fatal("decode error not reported")
	}
}

func TestWatchValidation(t *testing.T) {
	if _, err := Watch("snap.txt", nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
	if _, err := Watch(filepath.Join(t.TempDir(), "nope", "snap.json"), nil); err == nil {
		t.Error("watching a missing directory succeeded")
	}
}

func TestWatchCloseIdempotent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "snap.json", jsonSnapshot)
	w, err := Watch(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
