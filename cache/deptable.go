package cache

import "sort"

// DependencyTable maps a full key to the full keys that must be evicted when
// it is rewritten.
type DependencyTable map[string][]string

// Add records dependent under key. It reports whether the table changed.
func (t DependencyTable) Add(key, dependent string) bool {
	list := t[key]
	i := sort.SearchStrings(list, dependent)
	if i < len(list) && list[i] == dependent {
		return false
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = dependent
	t[key] = list
	return true
}

// Dependents returns the keys registered under key.
func (t DependencyTable) Dependents(key string) []string {
	return t[key]
}
