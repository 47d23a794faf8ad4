package language

import "sort"

// Language represents a supported language with its configuration.
type Language struct {
	Code string
	Name string
	// MaxLineLen is the default characters-per-line budget used as a length
	// hint for subtitle units.
	MaxLineLen int
}

const defaultMaxLineLen = 42

// Languages maps language code -> Language.
var Languages = map[string]Language{
	"bg": {Code: "bg", Name: "Bulgarian", MaxLineLen: defaultMaxLineLen},
	"cs": {Code: "cs", Name: "Czech", MaxLineLen: defaultMaxLineLen},
	"da": {Code: "da", Name: "Danish", MaxLineLen: defaultMaxLineLen},
	"de": {Code: "de", Name: "German", MaxLineLen: defaultMaxLineLen},
	"el": {Code: "el", Name: "Greek", MaxLineLen: defaultMaxLineLen},
	"en": {Code: "en", Name: "English", MaxLineLen: defaultMaxLineLen},
	"es": {Code: "es", Name: "Spanish", MaxLineLen: defaultMaxLineLen},
	"et": {Code: "et", Name: "Estonian", MaxLineLen: defaultMaxLineLen},
	"fi": {Code: "fi", Name: "Finnish", MaxLineLen: defaultMaxLineLen},
	"fr": {Code: "fr", Name: "French", MaxLineLen: defaultMaxLineLen},
	"hu": {Code: "hu", Name: "Hungarian", MaxLineLen: defaultMaxLineLen},
	"id": {Code: "id", Name: "Indonesian", MaxLineLen: defaultMaxLineLen},
	"it": {Code: "it", Name: "Italian", MaxLineLen: defaultMaxLineLen},
	"ja": {Code: "ja", Name: "Japanese", MaxLineLen: 13},
	"ko": {Code: "ko", Name: "Korean", MaxLineLen: 16},
	"lt": {Code: "lt", Name: "Lithuanian", MaxLineLen: defaultMaxLineLen},
	"lv": {Code: "lv", Name: "Latvian", MaxLineLen: defaultMaxLineLen},
	"nb": {Code: "nb", Name: "Norwegian (Bokmål)", MaxLineLen: defaultMaxLineLen},
	"nl": {Code: "nl", Name: "Dutch", MaxLineLen: defaultMaxLineLen},
	"pl": {Code: "pl", Name: "Polish", MaxLineLen: defaultMaxLineLen},
	"pt": {Code: "pt", Name: "Portuguese", MaxLineLen: defaultMaxLineLen},
	"ro": {Code: "ro", Name: "Romanian", MaxLineLen: defaultMaxLineLen},
	"ru": {Code: "ru", Name: "Russian", MaxLineLen: defaultMaxLineLen},
	"sk": {Code: "sk", Name: "Slovak", MaxLineLen: defaultMaxLineLen},
	"sl": {Code: "sl", Name: "Slovenian", MaxLineLen: defaultMaxLineLen},
	"sv": {Code: "sv", Name: "Swedish", MaxLineLen: defaultMaxLineLen},
	"th": {Code: "th", Name: "Thai", MaxLineLen: 35},
	"tr": {Code: "tr", Name: "Turkish", MaxLineLen: defaultMaxLineLen},
	"uk": {Code: "uk", Name: "Ukrainian", MaxLineLen: defaultMaxLineLen},
	"vi": {Code: "vi", Name: "Vietnamese", MaxLineLen: defaultMaxLineLen},
	"zh": {Code: "zh", Name: "Chinese", MaxLineLen: 16},
}

// GetLanguage returns the language for a strict code match.
func GetLanguage(code string) (Language, bool) {
	lang, ok := Languages[code]
	return lang, ok
}

// GetSupportedLanguages returns all languages sorted by Name.
func GetSupportedLanguages() []Language {
	entries := make([]Language, 0, len(Languages))
	for _, v := range Languages {
		entries = append(entries, v)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name == entries[j].Name {
			return entries[i].Code < entries[j].Code
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}
