package metadata

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

// Validate checks the shape of a decoded (JSON/YAML) record and returns one
// message per problem. An empty result means the record is valid.
func Validate(raw map[string]any) []string {
	_, errs := Decode(raw)
	return errs
}

// Decode converts a decoded record into a typed record, skipping and
// reporting every section or field that does not fit the schema.
// A null field value decodes as the empty string.
func Decode(raw map[string]any) (domain.Record, []string) {
	var errs []string
	rec := make(domain.Record, len(raw))

	for _, name := range sortedKeys(raw) {
		fields, ok := asMapping(raw[name])
		if !ok {
			errs = append(errs, fmt.Sprintf("Section '%s' must be a mapping", name))
			continue
		}

		section := make(domain.Section, len(fields))
		for _, field := range sortedKeys(fields) {
			if strings.TrimSpace(field) == "" {
				errs = append(errs, fmt.Sprintf("Field name in '%s' must be non-empty", name))
				continue
			}
			v := fields[field]
			if v == nil {
				section[field] = domain.String("")
				continue
			}
			value, ok := domain.ScalarOf(v)
			if !ok {
				errs = append(errs, fmt.Sprintf("Field '%s' in '%s' must be a scalar value", field, name))
				continue
			}
			section[field] = value
		}
		rec[name] = section
	}

	return rec, errs
}

func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	case domain.Section:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
