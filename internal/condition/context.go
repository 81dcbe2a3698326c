package condition

import (
	"strconv"
	"strings"
)

// User is the already-authenticated identity the gateway binds per request.
type User struct {
	ID             string
	Role           string
	Permissions    []string
	OrganizationID string
	Email          string
}

type Organization struct {
	ID string
}

// Context is the ephemeral request-scoped bundle every condition and
// template is resolved against. It is built fresh per request and
// discarded at response time; it must never be cached or shared across
// tenants or users.
type Context struct {
	User         User
	Organization Organization
	Entity       map[string]any
	Variables    map[string]any
}

// roots returns the dotted-path resolution tree. Entity and Variables are
// referenced, not copied; the evaluator never mutates them.
func (c *Context) roots() map[string]any {
	return map[string]any{
		"user": map[string]any{
			"id":              c.User.ID,
			"role":            c.User.Role,
			"permissions":     c.User.Permissions,
			"organization_id": c.User.OrganizationID,
			"email":           c.User.Email,
		},
		"organization": map[string]any{
			"id": c.Organization.ID,
		},
		"entity":    c.Entity,
		"variables": c.Variables,
	}
}

// lookup resolves a dotted path against the context tree. An unknown path
// reports ok=false; it never panics.
func (c *Context) lookup(path string) (any, bool) {
	var cur any = c.roots()
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Resolve validates the path against the allow-list grammar and resolves
// it. Unknown paths yield (nil, false, nil); hostile paths yield a
// MalformedExpressionError before any resolution happens.
func (c *Context) Resolve(path string) (any, bool, error) {
	if err := ValidatePath(path); err != nil {
		return nil, false, err
	}
	v, ok := c.lookup(path)
	return v, ok, nil
}

// stringify renders a resolved value for template substitution.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
