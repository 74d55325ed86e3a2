package tagset

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexing helpers for the tag text form. Tag names are dotted identifiers:
// identifier parts separated by single dots, e.g. "colour" or "cast.lead".

func isIdentifierStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentifierPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// SkipWhite returns the offset of the first non-whitespace rune in s at or
// after offset.
func SkipWhite(s string, offset int) int {
	for offset < len(s) {
		r, size := decodeRune(s, offset)
		if !unicode.IsSpace(r) {
			break
		}
		offset += size
	}
	return offset
}

// GetNonWhite collects the run of non-whitespace from s at offset.
// It returns the run and the offset beyond it.
func GetNonWhite(s string, offset int) (string, int) {
	start := offset
	for offset < len(s) {
		r, size := decodeRune(s, offset)
		if unicode.IsSpace(r) {
			break
		}
		offset += size
	}
	return s[start:offset], offset
}

// GetIdentifier collects an identifier ([A-Za-z_]\w*) from s at offset.
// It returns "" and the unchanged offset if there is no identifier there.
func GetIdentifier(s string, offset int) (string, int) {
	start := offset
	r, size := decodeRune(s, offset)
	if offset >= len(s) || !isIdentifierStart(r) {
		return "", offset
	}
	offset += size
	for offset < len(s) {
		r, size = decodeRune(s, offset)
		if !isIdentifierPart(r) {
			break
		}
		offset += size
	}
	return s[start:offset], offset
}

// GetDottedIdentifier collects a dotted identifier from s at offset.
// It returns "" and the unchanged offset if there is no identifier there.
// A trailing dot is never consumed.
func GetDottedIdentifier(s string, offset int) (string, int) {
	name, offset := GetIdentifier(s, offset)
	if name == "" {
		return "", offset
	}
	for offset < len(s) && s[offset] == '.' {
		part, offset2 := GetIdentifier(s, offset+1)
		if part == "" {
			break
		}
		name = name + "." + part
		offset = offset2
	}
	return name, offset
}

// IsDottedIdentifier tests whether s is entirely a dotted identifier.
func IsDottedIdentifier(s string) bool {
	name, offset := GetDottedIdentifier(s, 0)
	return name != "" && name == s && offset == len(s)
}

func decodeRune(s string, offset int) (rune, int) {
	if offset >= len(s) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(s[offset:])
}

// lcUnderscore lowercases s and joins its words with underscores,
// e.g. "Black Widow" becomes "black_widow".
func lcUnderscore(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// titleifyLc reverses lcUnderscore: underscores become spaces and each word
// is title-cased, e.g. "black_widow" becomes "Black Widow".
func titleifyLc(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
