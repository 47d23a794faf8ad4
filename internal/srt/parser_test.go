package srt

import (
	"strings"
	"testing"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/language"
)

const sample = `1
00:00:01,000 --> 00:00:02,500
Hello there.

2
00:00:03,000 --> 00:00:04,000
How are you?
Fine, thanks.

3
00:00:05,000 --> 00:00:06,000
Goodbye.
`

func TestParseBasic(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(f.Cues))
	}
	if f.Cues[0].Seq != 1 || f.Cues[2].Seq != 3 {
		t.Fatalf("unexpected sequence numbers: %d, %d", f.Cues[0].Seq, f.Cues[2].Seq)
	}
	if f.Cues[1].Text() != "How are you?\nFine, thanks." {
		t.Fatalf("unexpected cue 2 text: %q", f.Cues[1].Text())
	}
	if f.Cues[0].TimingLine != "00:00:01,000 --> 00:00:02,500" {
		t.Fatalf("timing line not preserved: %q", f.Cues[0].TimingLine)
	}
	if !f.TrailingNewline {
		t.Fatal("trailing newline not detected")
	}
}

func TestParseCRLFAndBOM(t *testing.T) {
	crlf := "\uFEFF" + strings.ReplaceAll(sample, "\n", "\r\n")
	f, err := Parse([]byte(crlf))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !f.BOM {
		t.Fatal("BOM not detected")
	}
	if f.Newline != "\r\n" {
		t.Fatalf("newline style not detected: %q", f.Newline)
	}
	if len(f.Cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(f.Cues))
	}
}

func TestParseMalformedIndexNamesCue(t *testing.T) {
	bad := "1\n00:00:01,000 --> 00:00:02,000\nHi.\n\nnot-a-number\n00:00:03,000 --> 00:00:04,000\nBye.\n"
	_, err := Parse([]byte(bad))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !apperrors.IsParse(err) {
		t.Fatalf("expected parse kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "cue 2") {
		t.Fatalf("error does not name the cue: %v", err)
	}
}

func TestParseMalformedTimestamp(t *testing.T) {
	cases := []string{
		"1\n00:00:01,000 00:00:02,000\nHi.\n",      // missing arrow
		"1\n00:00:01,00 --> 00:00:02,000\nHi.\n",   // bad millis
		"1\n00:00:05,000 --> 00:00:02,000\nHi.\n",  // end before start
		"1\n00:00:61,000 --> 00:01:02,000\nHi.\n",  // bad seconds
	}
	for _, src := range cases {
		_, err := Parse([]byte(src))
		if err == nil {
			t.Errorf("expected parse error for %q", src)
			continue
		}
		if !apperrors.IsParse(err) {
			t.Errorf("expected parse kind for %q, got %v", src, err)
		}
	}
}

func TestParseEmptyFile(t *testing.T) {
	if _, err := Parse([]byte("\n\n")); err == nil {
		t.Fatal("expected parse error for empty file")
	}
}

func TestParseTimestampHoursBeyond23(t *testing.T) {
	d, err := ParseTimestamp("25:00:00,000")
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	if d.Hours() != 25 {
		t.Fatalf("unexpected duration: %v", d)
	}
}

func TestExtract(t *testing.T) {
	src := "1\n00:00:01,000 --> 00:00:02,000\nHello.\n\n2\n00:00:03,000 --> 00:00:04,000\n \n\n3\n00:00:05,000 --> 00:00:06,000\nBye.\n"
	f, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ko, _ := language.GetLanguage("ko")
	doc := Extract(f, "in.srt", ko)

	if len(doc.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(doc.Segments))
	}
	if doc.Segments[1].Translatable {
		t.Fatal("whitespace-only cue must not be translatable")
	}
	if doc.Segments[0].ID != 1 || doc.Segments[2].ID != 3 {
		t.Fatalf("unexpected ids: %d, %d", doc.Segments[0].ID, doc.Segments[2].ID)
	}
	if doc.Segments[0].MaxLen != ko.MaxLineLen {
		t.Fatalf("length hint not propagated: %d", doc.Segments[0].MaxLen)
	}

	units := doc.Units()
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[1].ID != 3 {
		t.Fatalf("unit ids must be segment ids, got %d", units[1].ID)
	}
}
