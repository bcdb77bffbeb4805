package cache

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Reserved groups used by the layer itself and by the circuit breaker.
const (
	SystemGroup  = "cache"
	CircuitGroup = "circuitbreaker"
)

// DependencyTableDescriptor addresses the persisted dependency table.
var DependencyTableDescriptor = &Descriptor{Group: SystemGroup, Name: "dependency-table"}

// IsReservedGroup reports whether name is reserved for internal entries.
func IsReservedGroup(name string) bool {
	return name == SystemGroup || name == CircuitGroup
}

// DependencyRef names a dependency target. A ref with an empty Key refers to
// every key of Group.
type DependencyRef struct {
	Group string `yaml:"group" json:"group"`
	Key   string `yaml:"key,omitempty" json:"key,omitempty"`
}

// KeyConfig declares one cache key.
type KeyConfig struct {
	Name string `yaml:"name" json:"name"`

	// ExpiryMinutes is the key's own freshness window.
	// Default: nil (cached until evicted or flushed)
	ExpiryMinutes *int `yaml:"expiryMinutes,omitempty" json:"expiryMinutes,omitempty"`

	DependsOn []DependencyRef `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
}

// GroupConfig declares a named group of keys. DependsOn applies to every key
// of the group in addition to each key's own dependencies.
type GroupConfig struct {
	Name      string          `yaml:"name" json:"name"`
	DependsOn []DependencyRef `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	Keys      []KeyConfig     `yaml:"keys" json:"keys"`
}

// Descriptor identifies a cache key and carries its resolved dependencies.
// Descriptors are owned by the Registry that created them and are immutable
// after NewRegistry returns.
type Descriptor struct {
	Group string
	Name  string

	// Expiry is the key's own freshness window. Zero means no expiry.
	Expiry time.Duration

	// DependsOn lists resolved dependencies, group references already
	// expanded to their member keys.
	DependsOn []*Descriptor
}

// String returns "group/name".
func (d *Descriptor) String() string {
	return d.Group + "/" + d.Name
}

// Registry holds every configured cache key.
type Registry struct {
	groups []string
	byName map[string]map[string]*Descriptor
	order  map[string][]*Descriptor
}

// NewRegistry resolves group configuration into descriptors.
//
// Dependencies on a whole group are expanded once, to the keys the group
// declares; they are not re-expanded through that group's own dependencies.
// A key never depends on itself.
func NewRegistry(groups []GroupConfig) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]map[string]*Descriptor, len(groups)),
		order:  make(map[string][]*Descriptor, len(groups)),
	}

	for _, g := range groups {
		if g.Name == "" {
			return nil, fmt.Errorf("cache: group name is empty")
		}
		if strings.Contains(g.Name, KeySeparator) {
			return nil, fmt.Errorf("%w: group %q", ErrInvalidName, g.Name)
		}
		if IsReservedGroup(g.Name) {
			return nil, fmt.Errorf("%w: %s", ErrReservedGroup, g.Name)
		}
		if _, dup := r.byName[g.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateGroup, g.Name)
		}
		keys := make(map[string]*Descriptor, len(g.Keys))
		for _, k := range g.Keys {
			if k.Name == "" {
				return nil, fmt.Errorf("cache: group %s: key name is empty", g.Name)
			}
			if strings.Contains(k.Name, KeySeparator) {
				return nil, fmt.Errorf("%w: key %q in group %s", ErrInvalidName, k.Name, g.Name)
			}
			if _, dup := keys[k.Name]; dup {
				return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateKey, g.Name, k.Name)
			}
			d := &Descriptor{Group: g.Name, Name: k.Name}
			if k.ExpiryMinutes != nil {
				if *k.ExpiryMinutes < 0 {
					return nil, fmt.Errorf("cache: %s/%s: expiryMinutes must be >= 0", g.Name, k.Name)
				}
				d.Expiry = time.Duration(*k.ExpiryMinutes) * time.Minute
			}
			keys[k.Name] = d
			r.order[g.Name] = append(r.order[g.Name], d)
		}
		r.byName[g.Name] = keys
		r.groups = append(r.groups, g.Name)
	}

	for _, g := range groups {
		for _, k := range g.Keys {
			d := r.byName[g.Name][k.Name]
			refs := make([]DependencyRef, 0, len(g.DependsOn)+len(k.DependsOn))
			refs = append(refs, g.DependsOn...)
			refs = append(refs, k.DependsOn...)

			deps, err := r.resolve(d, refs)
			if err != nil {
				return nil, err
			}
			d.DependsOn = deps
		}
	}

	return r, nil
}

func (r *Registry) resolve(owner *Descriptor, refs []DependencyRef) ([]*Descriptor, error) {
	seen := make(map[*Descriptor]struct{})
	var out []*Descriptor
	add := func(dep *Descriptor) {
		if dep == owner {
			return
		}
		if _, ok := seen[dep]; ok {
			return
		}
		seen[dep] = struct{}{}
		out = append(out, dep)
	}

	for _, ref := range refs {
		members, ok := r.byName[ref.Group]
		if !ok {
			return nil, fmt.Errorf("%w: %s (referenced by %s)", ErrUnknownGroup, ref.Group, owner)
		}
		if ref.Key == "" {
			for _, dep := range r.order[ref.Group] {
				add(dep)
			}
			continue
		}
		dep, ok := members[ref.Key]
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s (referenced by %s)", ErrUnknownKey, ref.Group, ref.Key, owner)
		}
		add(dep)
	}
	return out, nil
}

// Key returns the descriptor for group/name.
func (r *Registry) Key(group, name string) (*Descriptor, error) {
	keys, ok := r.byName[group]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, group)
	}
	d, ok := keys[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownKey, group, name)
	}
	return d, nil
}

// MustKey is like Key but panics when the key is not configured.
func (r *Registry) MustKey(group, name string) *Descriptor {
	d, err := r.Key(group, name)
	if err != nil {
		panic(err)
	}
	return d
}

// Groups returns group names in declaration order.
func (r *Registry) Groups() []string {
	out := make([]string, len(r.groups))
	copy(out, r.groups)
	return out
}

// Keys returns the descriptors of group in declaration order.
func (r *Registry) Keys(group string) []*Descriptor {
	keys := r.order[group]
	out := make([]*Descriptor, len(keys))
	copy(out, keys)
	return out
}

// Dependents returns every descriptor that declares d as a dependency,
// sorted by group then name.
func (r *Registry) Dependents(d *Descriptor) []*Descriptor {
	var out []*Descriptor
	for _, g := range r.groups {
		for _, candidate := range r.order[g] {
			for _, dep := range candidate.DependsOn {
				if dep == d {
					out = append(out, candidate)
					break
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Name < out[j].Name
	})
	return out
}
