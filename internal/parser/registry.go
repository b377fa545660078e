package parser

import (
	"sort"

	"claudeview/internal/mappings"
)

// Registry resolves raw field names to canonical names through a reverse
// index built once at load time. It is read-only after construction and safe
// to share between goroutines.
type Registry struct {
	aliases map[string][]string
	reverse map[string]string
}

// NewRegistry builds the reverse index from an alias map. A canonical name
// is always an alias of itself, so canonical names are fixed points of
// Resolve. An alias declared under two different canonical names is an
// ambiguity and fails the load.
func NewRegistry(aliasMap mappings.AliasMap) (*Registry, error) {
	r := &Registry{
		aliases: make(map[string][]string, len(aliasMap)),
		reverse: make(map[string]string, len(aliasMap)*4),
	}

	// Sorted iteration keeps the reported conflict deterministic.
	canonicals := make([]string, 0, len(aliasMap))
	for canonical := range aliasMap {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)

	for _, canonical := range canonicals {
		if err := r.index(canonical, canonical); err != nil {
			return nil, err
		}
	}
	for _, canonical := range canonicals {
		r.aliases[canonical] = aliasMap[canonical]
		for _, alias := range aliasMap[canonical] {
			if err := r.index(alias, canonical); err != nil {
				return nil, err
			}
		}
	}

	return r, nil
}

func (r *Registry) index(alias, canonical string) error {
	if existing, ok := r.reverse[alias]; ok {
		if existing != canonical {
			return &mappings.ConfigError{
				Section: "field_aliases",
				Name:    alias,
				Reason:  "declared under both " + existing + " and " + canonical,
			}
		}
		return nil
	}
	r.reverse[alias] = canonical
	return nil
}

// Resolve maps a raw field name to its canonical name. An unresolved name is
// not an error; the caller keeps the field as unknown.
func (r *Registry) Resolve(fieldName string) (string, bool) {
	canonical, ok := r.reverse[fieldName]
	return canonical, ok
}

// Aliases returns the configured alias list for a canonical name, most
// common spelling first. FindField additionally tries the canonical name
// itself as a final fallback.
func (r *Registry) Aliases(canonical string) []string {
	return r.aliases[canonical]
}

// Canonicals returns every canonical name in sorted order.
func (r *Registry) Canonicals() []string {
	names := make([]string, 0, len(r.aliases))
	for canonical := range r.aliases {
		names = append(names, canonical)
	}
	sort.Strings(names)
	return names
}

// FindField probes an entry with the ordered alias list of a canonical name
// and returns the first present value along with the raw key that supplied
// it.
func (r *Registry) FindField(entry map[string]any, canonical string) (any, string, bool) {
	for _, alias := range r.aliases[canonical] {
		if v, ok := entry[alias]; ok {
			return v, alias, true
		}
	}
	if v, ok := entry[canonical]; ok {
		return v, canonical, true
	}
	return nil, "", false
}
