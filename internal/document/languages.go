package document

import "strings"

// Language is a selectable recognition or translation language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DefaultSourceLanguage is the language scanned documents are assumed to be in.
const DefaultSourceLanguage = "Vietnamese"

// DefaultTargetLanguage is the translation target used until a user picks one.
const DefaultTargetLanguage = "English"

// Languages is the fixed set offered for translation.
var Languages = []Language{
	{Code: "vi", Name: "Vietnamese"},
	{Code: "en", Name: "English"},
	{Code: "fr", Name: "French"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
	{Code: "zh", Name: "Chinese"},
	{Code: "de", Name: "German"},
	{Code: "ru", Name: "Russian"},
}

// LookupLanguage finds a language by name or code, case-insensitively.
func LookupLanguage(s string) (Language, bool) {
	s = strings.TrimSpace(s)
	for _, l := range Languages {
		if strings.EqualFold(l.Name, s) || strings.EqualFold(l.Code, s) {
			return l, true
		}
	}
	return Language{}, false
}
