package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NoEnvironment is the namespace used when no environment is configured.
const NoEnvironment = "NoEnvironment"

// KeySeparator joins the segments of a full key.
const KeySeparator = ":"

// KeyBuilder derives full keys from an environment, a descriptor and an
// optional modifier.
//
// Format: <environment>:<group>:<name>[:<xxhash64(modifier) in hex>]
//
// The modifier is content-hashed so arbitrarily long discriminators produce
// bounded key lengths.
type KeyBuilder struct {
	environment string
}

// NewKeyBuilder creates a key builder scoped to environment.
func NewKeyBuilder(environment string) KeyBuilder {
	if strings.TrimSpace(environment) == "" {
		environment = NoEnvironment
	}
	return KeyBuilder{environment: sanitizeSegment(environment)}
}

// Environment returns the namespace every key is prefixed with.
func (b KeyBuilder) Environment() string {
	return b.environment
}

// FullKey builds the storage key for d and modifier. An empty modifier
// addresses the canonical instance of the key.
func (b KeyBuilder) FullKey(d *Descriptor, modifier string) string {
	var sb strings.Builder
	sb.Grow(len(b.environment) + len(d.Group) + len(d.Name) + 20)
	sb.WriteString(b.environment)
	sb.WriteString(KeySeparator)
	sb.WriteString(sanitizeSegment(d.Group))
	sb.WriteString(KeySeparator)
	sb.WriteString(sanitizeSegment(d.Name))
	if modifier != "" {
		sb.WriteString(KeySeparator)
		sb.WriteString(HashModifier(modifier))
	}
	return sb.String()
}

// HashModifier returns the fixed-width hex digest used for modifiers.
func HashModifier(modifier string) string {
	digest := strconv.FormatUint(xxhash.Sum64String(modifier), 16)
	if pad := 16 - len(digest); pad > 0 {
		digest = strings.Repeat("0", pad) + digest
	}
	return digest
}

func sanitizeSegment(s string) string {
	return strings.Join(strings.Fields(s), "_")
}

// Modifier builds a deterministic modifier string from arbitrary arguments.
// Maps are serialized with sorted keys so iteration order never changes the
// result.
func Modifier(args ...any) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	items := make([]any, len(args))
	copy(items, args)

	canonical, err := canonicalize(items)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize modifier: %w", err)
	}
	return string(canonical), nil
}

// canonicalize produces a deterministic JSON representation of the input.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}
