package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// ReelLength is the CMX3600 reel field width.
	ReelLength = 8

	// TitleLength bounds the TITLE line; longer titles are cut.
	TitleLength = 70

	fileNameLength = 120
	fallbackFile   = "timeline_export"
)

var ErrInvalidOutputDir = errors.New("invalid output_dir")

// mapRunes applies fn to every rune of s, dropping runes it maps to -1,
// then trims cutset and cuts the result to maxLen runes.
func mapRunes(s string, fn func(rune) rune, cutset string, maxLen int) string {
	runes := []rune(strings.Trim(strings.Map(fn, s), cutset))
	if maxLen > 0 && len(runes) > maxLen {
		runes = []rune(strings.TrimRight(string(runes[:maxLen]), cutset))
	}
	return string(runes)
}

// Reel turns a media file name into a reel: upper case ASCII letters,
// digits and underscores, at most ReelLength long. Separators become
// underscores and anything else is dropped. DefaultReel is returned when
// nothing remains.
func Reel(name string) string {
	reel := mapRunes(strings.ToUpper(name), func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		case r == ' ', r == '-', r == '.':
			return '_'
		}
		return -1
	}, "_", ReelLength)
	if reel == "" {
		return DefaultReel
	}
	return reel
}

// Title makes s safe for the TITLE line and comment lines of an EDL.
// Control characters are dropped so a name can never start a new line,
// and non-ASCII runes become underscores.
func Title(s string, maxLen int) string {
	return mapRunes(s, func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case r > unicode.MaxASCII:
			return '_'
		}
		return r
	}, " ", maxLen)
}

// FileName turns a timeline name into a file name without extension.
// Letters, digits and " -_.,()" are kept, other printable runes become
// underscores.
func FileName(name string) string {
	out := mapRunes(name, func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune(" -_.,()", r):
			return r
		}
		return '_'
	}, " ", fileNameLength)
	if out == "" || strings.Trim(out, ".") == "" {
		return fallbackFile
	}
	return out
}

// ValidateOutputDir accepts only an existing directory given as a clean
// absolute path.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: output_dir is required", ErrInvalidOutputDir)
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("%w: output_dir cannot contain path traversal", ErrInvalidOutputDir)
		}
	}
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("%w: output_dir must be absolute", ErrInvalidOutputDir)
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("%w: output_dir must be a clean path", ErrInvalidOutputDir)
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: output_dir does not exist", ErrInvalidOutputDir)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutputDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: output_dir is not a directory", ErrInvalidOutputDir)
	}
	return nil
}
