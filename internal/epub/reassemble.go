package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/files"
)

// Reassemble substitutes translated text back into the chapter trees.
// Segments with no result keep their source text, so a partially failed run
// still yields a readable book.
func (b *Book) Reassemble(results map[int]string) {
	for _, ch := range b.chapters {
		for id, node := range ch.nodes {
			if translated, ok := results[id]; ok {
				node.Data = graftAffixes(node.Data, translated)
			}
		}
	}
}

// Leading indentation with an optional list marker ("  3) ", "1. "), the
// core, and trailing whitespace.
var affixRe = regexp.MustCompile(`^(\s*(?:\d+[.)]\s+)?)((?s).*?)(\s*)$`)

// graftAffixes keeps a text node's indentation, list numbering and trailing
// whitespace from the source around the translated core. When the source
// sentence ends in terminal punctuation and the model dropped it, the
// source's is restored.
func graftAffixes(source, translated string) string {
	core := strings.TrimSpace(translated)
	if core == "" {
		return source
	}
	m := affixRe.FindStringSubmatch(source)
	if m == nil {
		return translated
	}
	if p := terminalPunct(m[2]); p != "" && terminalPunct(core) == "" {
		core += p
	}
	return m[1] + core + m[3]
}

func terminalPunct(s string) string {
	if s == "" {
		return ""
	}
	switch r := s[len(s)-1]; r {
	case '.', '!', '?':
		return string(r)
	}
	return ""
}

// Write renders every chapter and rebuilds the container at path. Entries
// that are not spine documents are copied byte-for-byte; the mimetype entry
// stays first and uncompressed as the container format requires.
func (b *Book) Write(path string) error {
	rendered := make(map[string][]byte, len(b.chapters))
	for _, ch := range b.chapters {
		data, err := ch.render()
		if err != nil {
			return err
		}
		if err := validateChapter(ch, data); err != nil {
			return err
		}
		rendered[ch.Name] = data
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range b.entries {
		data := e.data
		if r, ok := rendered[e.name]; ok {
			data = r
		}
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.name == "mimetype" {
			hdr.Method = zip.Store
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("failed to write entry %s: %w", e.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write entry %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize epub archive: %w", err)
	}

	return files.AtomicWrite(path, buf.Bytes(), 0o644)
}

// validateChapter re-parses the rendered chapter and checks that the element
// structure survived substitution intact. A mismatch means a translation
// leaked markup into a text node.
func validateChapter(ch *Chapter, data []byte) error {
	content := string(data)
	content = strings.TrimPrefix(content, ch.Prolog)
	content = strings.TrimPrefix(content, ch.Doctype)
	reparsed, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("%s: rendered chapter failed to parse: %w", ch.Name, err)
	}
	want := countElements(ch.Root)
	got := countElements(reparsed)
	if len(want) != len(got) {
		return fmt.Errorf("%s: element structure changed during reassembly", ch.Name)
	}
	for tag, n := range want {
		if got[tag] != n {
			return fmt.Errorf("%s: element structure changed during reassembly: %d <%s> became %d", ch.Name, n, tag, got[tag])
		}
	}
	return nil
}

func countElements(root *html.Node) map[string]int {
	counts := make(map[string]int)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			counts[n.Data]++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return counts
}
