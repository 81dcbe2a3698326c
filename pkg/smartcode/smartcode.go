package smartcode

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrEmpty          = errors.New("smart_code_empty")
	ErrGrammar        = errors.New("smart_code_grammar_invalid")
	ErrMissingVersion = errors.New("smart_code_version_missing")
	ErrEmptySegment   = errors.New("smart_code_segment_empty")
)

var (
	codePattern    = regexp.MustCompile(`^[A-Z]+(\.[A-Z0-9_]+)+\.v[0-9]+$`)
	versionPattern = regexp.MustCompile(`^v[0-9]+$`)
)

// Code is a validated classification code. Construct through Parse; the
// zero value is not a valid code. Once a code is referenced a new meaning
// requires a new version suffix, never a mutation of an existing one.
type Code struct {
	raw     string
	version int
}

// Parse validates the raw classification string and returns an opaque Code.
// Grammar: upper-case dot-segmented path ending in a v<N> version suffix,
// e.g. HERA.SALON.SERVICE.FIELD.PRICE.v1.
func Parse(raw string) (Code, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Code{}, ErrEmpty
	}
	if trimmed != raw {
		return Code{}, ErrGrammar
	}
	if strings.Contains(raw, "..") {
		return Code{}, ErrEmptySegment
	}
	last := raw[strings.LastIndex(raw, ".")+1:]
	if !versionPattern.MatchString(last) {
		return Code{}, ErrMissingVersion
	}
	if !codePattern.MatchString(raw) {
		return Code{}, ErrGrammar
	}
	version, _ := strconv.Atoi(last[1:])
	return Code{raw: raw, version: version}, nil
}

// MustParse is for fixtures and static configuration only.
func MustParse(raw string) Code {
	c, err := Parse(raw)
	if err != nil {
		panic("smartcode: " + raw + ": " + err.Error())
	}
	return c
}

func (c Code) String() string { return c.raw }

func (c Code) IsZero() bool { return c.raw == "" }

// Version returns the numeric version suffix.
func (c Code) Version() int { return c.version }

// Family returns the code without its version suffix.
func (c Code) Family() string {
	if c.raw == "" {
		return ""
	}
	return c.raw[:strings.LastIndex(c.raw, ".")]
}

// Segments returns the dot-separated segments including the version suffix.
func (c Code) Segments() []string {
	if c.raw == "" {
		return nil
	}
	return strings.Split(c.raw, ".")
}
