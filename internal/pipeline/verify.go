package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/document"
)

// A Mismatch flags a translated unit whose structural content drifted from
// its source: numbers, URLs, or bracket pairing changed. The text itself
// stays out of the record so it can be logged safely.
type Mismatch struct {
	ID     int
	Reason string
}

var (
	numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	urlRe    = regexp.MustCompile(`https?://\S+`)
)

var bracketPairs = [][2]rune{
	{'(', ')'},
	{'[', ']'},
	{'{', '}'},
}

// findMismatches compares each translated unit against its source. It only
// reports drift a translation should never introduce; stylistic differences
// are none of its business.
func findMismatches(units []document.Unit, results map[int]string) []Mismatch {
	var out []Mismatch
	for _, u := range units {
		translated, ok := results[u.ID]
		if !ok {
			continue
		}
		if reason := compareUnit(u.Text, translated); reason != "" {
			out = append(out, Mismatch{ID: u.ID, Reason: reason})
		}
	}
	return out
}

func compareUnit(source, translated string) string {
	if !sameStrings(numberRe.FindAllString(source, -1), numberRe.FindAllString(translated, -1)) {
		return "numbers changed"
	}
	if len(urlRe.FindAllString(source, -1)) != len(urlRe.FindAllString(translated, -1)) {
		return "URLs changed"
	}
	for _, pair := range bracketPairs {
		srcOpen := strings.Count(source, string(pair[0]))
		srcClose := strings.Count(source, string(pair[1]))
		open := strings.Count(translated, string(pair[0]))
		closed := strings.Count(translated, string(pair[1]))
		if open != srcOpen || closed != srcClose {
			return fmt.Sprintf("%c%c pairing changed", pair[0], pair[1])
		}
	}
	return ""
}

// sameStrings compares two slices as multisets.
func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
