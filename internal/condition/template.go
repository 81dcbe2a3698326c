package condition

import (
	"strings"

	"github.com/hexacore/hexacore/pkg/httperr"
)

// ResolveTemplate substitutes {{path}} placeholders using the same dotted
// path resolution as condition fields. A template that is exactly one
// placeholder preserves the resolved value's type; anything else renders
// to a string. Placeholders are validated before resolution; a malformed
// placeholder fails the whole template.
func ResolveTemplate(template string, ctx *Context) (any, error) {
	if !strings.Contains(template, "{{") {
		return template, nil
	}

	if path, ok := wholePlaceholder(template); ok {
		if err := ValidatePath(path); err != nil {
			return nil, err
		}
		v, _ := ctx.lookup(path)
		return v, nil
	}

	var b strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return nil, httperr.NewMalformedExpression()
		}
		b.WriteString(rest[:start])
		path := strings.TrimSpace(rest[start+2 : start+end])
		if err := ValidatePath(path); err != nil {
			return nil, err
		}
		v, _ := ctx.lookup(path)
		b.WriteString(stringify(v))
		rest = rest[start+end+2:]
	}
}

func wholePlaceholder(template string) (string, bool) {
	if !strings.HasPrefix(template, "{{") || !strings.HasSuffix(template, "}}") {
		return "", false
	}
	inner := strings.TrimSpace(template[2 : len(template)-2])
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") {
		return "", false
	}
	return inner, true
}
