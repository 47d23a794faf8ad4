package epub

import (
	"golang.org/x/net/html"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/document"
)

// Elements whose text content is never prose.
var skipElements = map[string]bool{
	"script": true,
	"style":  true,
}

// Extract walks every chapter in spine order and returns a Document with one
// segment per text node. IDs are assigned sequentially across chapters so
// they stay unique for the whole book.
func (b *Book) Extract() *document.Document {
	doc := &document.Document{
		Path:   b.Path,
		Format: document.FormatEPUB,
	}
	nextID := 1
	for _, ch := range b.chapters {
		ch.nodes = make(map[int]*html.Node)
		walkTextNodes(ch.Root, func(n *html.Node) {
			seg := document.Segment{
				ID:           nextID,
				Text:         n.Data,
				Translatable: document.IsTranslatableText(n.Data),
			}
			doc.Segments = append(doc.Segments, seg)
			ch.nodes[nextID] = n
			nextID++
		})
	}
	return doc
}

// walkTextNodes visits text nodes in document order, skipping script and
// style subtrees.
func walkTextNodes(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode && skipElements[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		visit(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkTextNodes(c, visit)
	}
}
