// Package epub extracts translatable text nodes from EPUB chapters and
// substitutes translations back without touching markup, container entries,
// or declaration headers.
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
)

// Package document structures inside the EPUB container.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfSpine struct {
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// entry is one zip member, kept in archive order. Non-chapter entries are
// written back byte-for-byte.
type entry struct {
	name string
	data []byte
}

// Chapter is one spine document: its parsed markup tree plus the declaration
// headers stripped before parsing and restored verbatim on output.
type Chapter struct {
	Name    string
	Prolog  string
	Doctype string
	Root    *html.Node

	nodes map[int]*html.Node // segment id -> text node
}

// Book is an opened EPUB: the raw container entries plus the parsed chapters
// in spine order.
type Book struct {
	Path     string
	entries  []entry
	chapters []*Chapter
}

// Open reads an EPUB file from disk.
func Open(p string) (*Book, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat epub: %w", err)
	}
	return Read(f, info.Size(), p)
}

// Read parses an EPUB container from a reader.
func Read(r io.ReaderAt, size int64, p string) (*Book, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, apperrors.Parse(fmt.Sprintf("%s: not a valid epub archive", p), err)
	}

	book := &Book{Path: p}
	byName := make(map[string][]byte, len(zr.File))
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			return nil, apperrors.Parse(fmt.Sprintf("%s: failed to read entry %s", p, zf.Name), err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, apperrors.Parse(fmt.Sprintf("%s: failed to read entry %s", p, zf.Name), err)
		}
		book.entries = append(book.entries, entry{name: zf.Name, data: data})
		byName[zf.Name] = data
	}

	chapterNames, err := spineChapters(p, byName)
	if err != nil {
		return nil, err
	}

	for _, name := range chapterNames {
		data, ok := byName[name]
		if !ok {
			return nil, apperrors.Parse(fmt.Sprintf("%s: spine references missing entry %s", p, name), nil)
		}
		ch, err := parseChapter(name, data)
		if err != nil {
			return nil, err
		}
		book.chapters = append(book.chapters, ch)
	}
	if len(book.chapters) == 0 {
		return nil, apperrors.Parse(fmt.Sprintf("%s: no spine documents found", p), nil)
	}
	return book, nil
}

// spineChapters resolves META-INF/container.xml and the OPF package to the
// ordered list of chapter entry names.
func spineChapters(p string, byName map[string][]byte) ([]string, error) {
	containerData, ok := byName["META-INF/container.xml"]
	if !ok {
		return nil, apperrors.Parse(fmt.Sprintf("%s: missing META-INF/container.xml", p), nil)
	}
	var container containerXML
	if err := xml.Unmarshal(containerData, &container); err != nil {
		return nil, apperrors.Parse(fmt.Sprintf("%s: malformed container.xml", p), err)
	}
	if len(container.RootFiles) == 0 {
		return nil, apperrors.Parse(fmt.Sprintf("%s: container.xml names no rootfile", p), nil)
	}
	opfPath := container.RootFiles[0].FullPath

	opfData, ok := byName[opfPath]
	if !ok {
		return nil, apperrors.Parse(fmt.Sprintf("%s: missing package document %s", p, opfPath), nil)
	}
	var pkg opfPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return nil, apperrors.Parse(fmt.Sprintf("%s: malformed package document %s", p, opfPath), err)
	}

	hrefByID := make(map[string]opfItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefByID[item.ID] = item
	}

	opfDir := path.Dir(opfPath)
	var chapters []string
	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := hrefByID[ref.IDRef]
		if !ok {
			return nil, apperrors.Parse(fmt.Sprintf("%s: spine idref %q not in manifest", p, ref.IDRef), nil)
		}
		if !isDocumentMediaType(item.MediaType) {
			continue
		}
		name := item.Href
		if opfDir != "." {
			name = path.Join(opfDir, item.Href)
		}
		chapters = append(chapters, name)
	}
	return chapters, nil
}

func isDocumentMediaType(mt string) bool {
	switch mt {
	case "application/xhtml+xml", "text/html", "application/html":
		return true
	}
	return false
}

// parseChapter splits off the XML prolog and DOCTYPE declaration (restored
// verbatim on output) and parses the remaining markup.
func parseChapter(name string, data []byte) (*Chapter, error) {
	ch := &Chapter{Name: name}
	content := string(data)

	if strings.HasPrefix(strings.TrimLeft(content, " \t\r\n"), "<?xml") {
		if idx := strings.Index(content, "?>"); idx >= 0 {
			ch.Prolog = content[:idx+2]
			content = content[idx+2:]
			if strings.HasPrefix(content, "\r\n") {
				ch.Prolog += "\r\n"
				content = content[2:]
			} else if strings.HasPrefix(content, "\n") {
				ch.Prolog += "\n"
				content = content[1:]
			}
		}
	}
	if idx := strings.Index(content, "<!DOCTYPE"); idx >= 0 {
		if end := strings.Index(content[idx:], ">"); end >= 0 {
			decl := content[idx : idx+end+1]
			rest := content[idx+end+1:]
			ch.Doctype = decl
			content = content[:idx] + strings.TrimPrefix(strings.TrimPrefix(rest, "\r\n"), "\n")
			if strings.HasPrefix(rest, "\r\n") || strings.HasPrefix(rest, "\n") {
				ch.Doctype += "\n"
			}
		}
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, apperrors.Parse(fmt.Sprintf("%s: malformed markup", name), err)
	}
	ch.Root = root
	return ch, nil
}

// render serializes a chapter back to bytes, prepending the preserved
// declaration headers.
func (ch *Chapter) render() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(ch.Prolog)
	buf.WriteString(ch.Doctype)
	if err := html.Render(&buf, ch.Root); err != nil {
		return nil, fmt.Errorf("%s: failed to render markup: %w", ch.Name, err)
	}
	return buf.Bytes(), nil
}
