package users

import (
	"fmt"
	"strings"
)

// rolesArray renders a single role as a Postgres text[] literal. Role names
// never contain commas or braces, so no quoting is needed.
func rolesArray(role string) string {
	return "{" + role + "}"
}

// rolesScanner scans a Postgres text[] column into a []string.
type rolesScanner struct {
	dest *[]string
}

func (r *rolesScanner) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*r.dest = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into roles", src)
	}

	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimSuffix(raw, "}")
	if raw == "" {
		*r.dest = nil
		return nil
	}
	*r.dest = strings.Split(raw, ",")
	return nil
}
