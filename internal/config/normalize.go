package config

import (
	"fmt"
	"sort"
	"strings"
)

// normalizer maps case-insensitive user input onto a closed enum, falling
// back to a default for unknown input.
type normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
	validKeys    []string
}

func newNormalizer[T comparable](values map[string]T, defaultValue T) *normalizer[T] {
	normalized := make(map[string]T, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		clean := strings.ToLower(strings.TrimSpace(k))
		normalized[clean] = v
		keys = append(keys, clean)
	}
	sort.Strings(keys)
	return &normalizer[T]{values: normalized, defaultValue: defaultValue, validKeys: keys}
}

func (n *normalizer[T]) normalize(raw string) T {
	if v, ok := n.values[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v
	}
	return n.defaultValue
}

func (n *normalizer[T]) normalizeStrict(raw string) (T, error) {
	if v, ok := n.values[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.validKeys)
}
