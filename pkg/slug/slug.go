// Package slug turns free text (category names, uploaded filenames) into
// ASCII identifiers.
package slug

import (
	"path"
	"strings"

	gosimple "github.com/gosimple/slug"
)

// maxStemLength caps the sanitized filename stem.
const maxStemLength = 100

// Generate returns a lowercase, hyphen-separated ASCII slug. Non-Latin
// scripts are transliterated, so "影師" becomes "ying-shi".
func Generate(name string) string {
	return gosimple.Make(strings.TrimSpace(name))
}

// Filename sanitizes an uploaded filename: directory components are dropped,
// the stem is slugged and the extension lowercased. It returns "" when
// nothing usable remains.
func Filename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}

	ext := strings.ToLower(path.Ext(base))
	stem := Generate(strings.TrimSuffix(base, path.Ext(base)))
	if len(stem) > maxStemLength {
		stem = strings.TrimRight(stem[:maxStemLength], "-")
	}
	if stem == "" {
		return ""
	}

	ext = strings.TrimPrefix(ext, ".")
	if ext == "" || !gosimple.IsSlug(ext) {
		return stem
	}
	return stem + "." + ext
}

// Extension returns the lowercased extension of name without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(strings.ReplaceAll(name, `\`, "/"))), ".")
}
