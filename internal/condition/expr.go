package condition

import (
	"regexp"
	"strings"

	"github.com/hexacore/hexacore/pkg/httperr"
)

// pathPattern is the allow-list grammar for field paths and template
// placeholders. Anything outside it is rejected before resolution so a
// hostile resource configuration can never become code or a query.
var pathPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// storeKeywords are rejected case-insensitively even though the grammar
// already excludes the characters a real injection needs. The double
// check keeps the evaluator safe if the grammar is ever loosened.
var storeKeywords = []string{
	"drop", "delete", "insert", "update", "select", "truncate", "exec", "union",
}

// ValidatePath rejects any expression string that is not a plain dotted
// identifier path. The rejected content is never echoed back.
func ValidatePath(path string) error {
	if path == "" {
		return httperr.NewMalformedExpression()
	}
	for _, r := range path {
		if r < 0x20 || r == 0x7f {
			return httperr.NewMalformedExpression()
		}
	}
	if strings.Contains(path, "${") ||
		strings.Contains(path, "../") ||
		strings.Contains(path, ";") ||
		strings.Contains(path, "--") {
		return httperr.NewMalformedExpression()
	}
	lower := strings.ToLower(path)
	for _, kw := range storeKeywords {
		for _, seg := range strings.Split(lower, ".") {
			if seg == kw {
				return httperr.NewMalformedExpression()
			}
		}
	}
	if !pathPattern.MatchString(path) {
		return httperr.NewMalformedExpression()
	}
	return nil
}
