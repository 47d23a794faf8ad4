package srt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveNativeSRT(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.srt")
	if err := Save(path, f, map[int]string{1: "Bonjour."}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if !strings.Contains(string(data), "Bonjour.") {
		t.Fatalf("translation missing: %s", data)
	}
	if !strings.Contains(string(data), "00:00:01,000 --> 00:00:02,500") {
		t.Fatalf("timing line missing: %s", data)
	}
}

func TestSaveWebVTTConversion(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.vtt")
	if err := Save(path, f, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "WEBVTT") {
		t.Fatalf("expected WEBVTT header, got: %.40s", data)
	}
	if !strings.Contains(string(data), "Hello there.") {
		t.Fatalf("cue text missing: %s", data)
	}
}

func TestSaveRejectsUnknownFormat(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := Save(filepath.Join(t.TempDir(), "out.docx"), f, nil); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.srt")
	if err := os.WriteFile(path, []byte(sample), 0600); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(f.Cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(f.Cues))
	}
}
