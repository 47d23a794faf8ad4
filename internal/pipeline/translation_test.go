package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/backend"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,000
Hello there.

2
00:00:04,000 --> 00:00:06,000
How are you?

3
00:00:07,000 --> 00:00:09,000
Goodbye.
`

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "in.srt")
	if err := os.WriteFile(path, []byte(sampleSRT), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func baseConfig(in, out string, client backend.Client) Config {
	return Config{
		InputPath:   in,
		OutputPath:  out,
		Client:      client,
		Concurrency: 1,
		SourceLang:  "en",
		TargetLang:  "fr",
		NoRetrieval: true,
	}
}

func echoUpper(req backend.Request) (backend.Result, error) {
	result := make(backend.Result, len(req.Units))
	for _, u := range req.Units {
		result[u.ID] = strings.ToUpper(u.Text)
	}
	return result, nil
}

func TestRunTranslationSRTSuccess(t *testing.T) {
	dir := t.TempDir()
	in := writeSample(t, dir)
	out := filepath.Join(dir, "out.srt")

	mock := &backend.Mock{Responses: []func(backend.Request) (backend.Result, error){echoUpper}}
	result, err := RunTranslation(context.Background(), baseConfig(in, out, mock))
	if err != nil {
		t.Fatalf("RunTranslation: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s", result.Status)
	}
	if result.TotalUnits != 3 || result.FailedUnits != 0 {
		t.Fatalf("result = %+v", result)
	}
	if result.RunID == "" {
		t.Error("missing run id")
	}

	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	output := string(data)
	if !strings.Contains(output, "HELLO THERE.") || !strings.Contains(output, "GOODBYE.") {
		t.Errorf("translations missing:\n%s", output)
	}
	if !strings.Contains(output, "00:00:04,000 --> 00:00:06,000") {
		t.Errorf("timing lines must survive byte-for-byte:\n%s", output)
	}
}

func TestRunTranslationSRTPartialFailurePassthrough(t *testing.T) {
	dir := t.TempDir()
	in := writeSample(t, dir)
	out := filepath.Join(dir, "out.srt")

	failSecond := func(req backend.Request) (backend.Result, error) {
		for _, u := range req.Units {
			if u.ID == 2 {
				return nil, apperrors.BadRequest(errors.New("rejected"))
			}
		}
		return echoUpper(req)
	}
	mock := &backend.Mock{Responses: []func(backend.Request) (backend.Result, error){
		failSecond, failSecond, failSecond,
	}}

	cfg := baseConfig(in, out, mock)
	cfg.MaxBatchUnits = 1
	result, err := RunTranslation(context.Background(), cfg)
	if err != nil {
		t.Fatalf("RunTranslation: %v", err)
	}
	if result.Status != StatusPartialSuccess {
		t.Fatalf("status = %s", result.Status)
	}
	if result.FailedUnits != 1 || result.FailedBatches != 1 {
		t.Fatalf("result = %+v", result)
	}

	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	output := string(data)
	if !strings.Contains(output, "How are you?") {
		t.Errorf("failed unit must pass through source text:\n%s", output)
	}
	if !strings.Contains(output, "HELLO THERE.") {
		t.Errorf("successful units must be translated:\n%s", output)
	}
}

// Even a run where every batch fails emits a complete document, with every
// unit passed through as source text.
func TestRunTranslationTotalFailureWritesPassthrough(t *testing.T) {
	dir := t.TempDir()
	in := writeSample(t, dir)
	out := filepath.Join(dir, "out.srt")

	fail := func(backend.Request) (backend.Result, error) {
		return nil, apperrors.BadRequest(errors.New("rejected"))
	}
	mock := &backend.Mock{Responses: []func(backend.Request) (backend.Result, error){fail}}
	result, err := RunTranslation(context.Background(), baseConfig(in, out, mock))
	if err != nil {
		t.Fatalf("RunTranslation: %v", err)
	}
	if result.Status != StatusFailure {
		t.Fatalf("status = %s", result.Status)
	}
	if result.FailedUnits != 3 {
		t.Fatalf("failed units = %d, want 3", result.FailedUnits)
	}

	src, err := os.ReadFile(in)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatalf("passthrough output not written: %v", err)
	}
	if string(got) != string(src) {
		t.Errorf("total failure output must equal the source:\n--- want\n%s\n--- got\n%s", src, got)
	}
}

func TestRunTranslationReportsMismatches(t *testing.T) {
	dir := t.TempDir()
	in := writeSample(t, dir)
	out := filepath.Join(dir, "out.srt")

	drift := func(req backend.Request) (backend.Result, error) {
		res := backend.Result{}
		for _, u := range req.Units {
			res[u.ID] = u.Text
		}
		res[1] = "Bonjour 42."
		return res, nil
	}
	mock := &backend.Mock{Responses: []func(backend.Request) (backend.Result, error){drift}}
	result, err := RunTranslation(context.Background(), baseConfig(in, out, mock))
	if err != nil {
		t.Fatalf("RunTranslation: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s", result.Status)
	}
	if result.MismatchedUnits != 1 {
		t.Fatalf("mismatched units = %d, want 1", result.MismatchedUnits)
	}
	// The drifted unit still ships; mismatches are report-only.
	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Bonjour 42.") {
		t.Errorf("mismatched unit must still be written:\n%s", data)
	}
}

func TestRunTranslationSkipsWithoutOverwriteConsent(t *testing.T) {
	dir := t.TempDir()
	in := writeSample(t, dir)
	out := filepath.Join(dir, "out.srt")
	if err := os.WriteFile(out, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := baseConfig(in, out, &backend.Mock{})
	cfg.OnConfirmOverwrite = func(string) bool { return false }
	result, err := RunTranslation(context.Background(), cfg)
	if err != nil {
		t.Fatalf("RunTranslation: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Fatalf("status = %s", result.Status)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "existing" {
		t.Errorf("existing file must be untouched")
	}
}

func TestRunTranslationRejectsSameInputOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeSample(t, dir)
	if _, err := RunTranslation(context.Background(), baseConfig(in, in, &backend.Mock{})); err == nil {
		t.Fatal("expected error for identical input and output")
	}
}

func TestRunTranslationRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.docx")
	if err := os.WriteFile(in, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := baseConfig(in, filepath.Join(dir, "out.docx"), &backend.Mock{})
	if _, err := RunTranslation(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestRunTranslationRejectsSameLanguages(t *testing.T) {
	dir := t.TempDir()
	in := writeSample(t, dir)
	cfg := baseConfig(in, filepath.Join(dir, "out.srt"), &backend.Mock{})
	cfg.TargetLang = "en"
	if _, err := RunTranslation(context.Background(), cfg); err == nil {
		t.Fatal("expected error for identical languages")
	}
}

func TestRunTranslationEPUB(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.epub")
	if err := os.WriteFile(in, testEPUB(t), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.epub")

	translate := func(req backend.Request) (backend.Result, error) {
		result := make(backend.Result, len(req.Units))
		for _, u := range req.Units {
			switch strings.TrimSpace(u.Text) {
			case "Hello":
				result[u.ID] = strings.Replace(u.Text, "Hello", "Bonjour", 1)
			case "world":
				result[u.ID] = strings.Replace(u.Text, "world", "monde", 1)
			default:
				result[u.ID] = u.Text
			}
		}
		return result, nil
	}
	mock := &backend.Mock{Responses: []func(backend.Request) (backend.Result, error){translate}}
	result, err := RunTranslation(context.Background(), baseConfig(in, out, mock))
	if err != nil {
		t.Fatalf("RunTranslation: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s", result.Status)
	}

	zr, err := zip.OpenReader(result.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	var chapter string
	for _, f := range zr.File {
		if f.Name == "OEBPS/chapter1.xhtml" {
			rc, _ := f.Open()
			var buf bytes.Buffer
			buf.ReadFrom(rc)
			rc.Close()
			chapter = buf.String()
		}
	}
	if !strings.Contains(chapter, "<p>Bonjour <b>monde</b></p>") {
		t.Errorf("chapter = %s", chapter)
	}
}

func testEPUB(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("application/epub+zip"))

	entries := map[string]string{
		"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest><item id="ch1" href="chapter1.xhtml" media-type="application/xhtml+xml"/></manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`,
		"OEBPS/chapter1.xhtml": `<?xml version="1.0" encoding="utf-8"?>
<html><head><title>T</title></head><body><p>Hello <b>world</b></p></body></html>`,
	}
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(data))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNormalizeClampsConcurrency(t *testing.T) {
	cfg := Config{Concurrency: 99}
	normalized, notes := cfg.Normalize()
	if normalized.Concurrency != MaxConcurrency {
		t.Errorf("concurrency = %d", normalized.Concurrency)
	}
	if len(notes) == 0 {
		t.Error("expected a normalization note")
	}
	cfg = Config{Concurrency: 0}
	normalized, _ = cfg.Normalize()
	if normalized.Concurrency != MinConcurrency {
		t.Errorf("concurrency = %d", normalized.Concurrency)
	}
}

func TestValidateRequiresOpenRouterKey(t *testing.T) {
	cfg := Config{
		InputPath:   "a.srt",
		OutputPath:  "b.srt",
		Backend:     backend.NameOpenRouter,
		Model:       "m",
		Concurrency: 1,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing API key")
	}
	cfg.APIKey = "sk-or-x"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		failed, total int
		want          Status
	}{
		{0, 4, StatusSuccess},
		{1, 4, StatusPartialSuccess},
		{4, 4, StatusFailure},
		{0, 0, StatusSuccess},
	}
	for _, tc := range cases {
		if got := statusOf(tc.failed, tc.total); got != tc.want {
			t.Errorf("statusOf(%d, %d) = %s, want %s", tc.failed, tc.total, got, tc.want)
		}
	}
}
