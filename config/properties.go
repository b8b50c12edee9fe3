package config

import (
	"os"
	"sort"
	"strings"
	"sync"
)

const (
	// Prefix marks property keys that overlay the configuration tree.
	Prefix = "bq."
	// EnvPrefix marks environment variables that overlay the configuration tree.
	EnvPrefix = "BQ_"
)

// Properties is a read-only view over string key/value overrides.
// Keys returns keys in assignment order; later keys win when overlaid.
type Properties interface {
	Keys() []string
	Lookup(key string) (string, bool)
}

// MapProperties is an ordered, concurrency-safe property store.
type MapProperties struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]string
}

// System is the process-wide property store read by production runtimes.
var System = NewProperties()

// NewProperties returns an empty store.
func NewProperties() *MapProperties {
	return &MapProperties{values: make(map[string]string)}
}

// PropertiesOf returns a store holding m, keys in sorted order.
func PropertiesOf(m map[string]string) *MapProperties {
	p := NewProperties()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// Set assigns key. Re-assigning an existing key moves it to the end.
func (p *MapProperties) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.values[key]; exists {
		p.removeKey(key)
	}
	p.keys = append(p.keys, key)
	p.values[key] = value
}

// Clear removes key.
func (p *MapProperties) Clear(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.values[key]; !exists {
		return
	}
	p.removeKey(key)
	delete(p.values, key)
}

func (p *MapProperties) removeKey(key string) {
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			return
		}
	}
}

// Keys returns a snapshot of the keys in assignment order.
func (p *MapProperties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// Lookup returns the value stored under key.
func (p *MapProperties) Lookup(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	v, ok := p.values[key]
	return v, ok
}

// Len returns the number of stored keys.
func (p *MapProperties) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys)
}

// EnvTransformFunc names the environment variable for a configuration path.
type EnvTransformFunc func(path string) string

// EnvName is the variable EnvProperties reads for a path, c.m.k -> BQ_C_M_K.
// DeclaredVars falls back to it for paths declared without a name.
var EnvName EnvTransformFunc = prefixedEnvName(EnvPrefix)

func prefixedEnvName(prefix string) EnvTransformFunc {
	return func(path string) string {
		return prefix + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
	}
}

type envProperties struct {
	environ func() []string
}

// EnvProperties exposes BQ_ environment variables as bq. properties.
// BQ_C_M_K=v becomes bq.c.m.k=v. Only variables spelled the way EnvName spells
// them are read, so BQ_c_m is ignored. The environment is read on every call.
func EnvProperties() Properties {
	return envProperties{environ: os.Environ}
}

func (e envProperties) snapshot() (keys []string, values map[string]string) {
	values = make(map[string]string)
	for _, kv := range e.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) || len(name) == len(EnvPrefix) {
			continue
		}
		path := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, EnvPrefix), "_", "."))
		if EnvName(path) != name {
			continue
		}
		key := Prefix + path
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = value
	}
	sort.Strings(keys)
	return keys, values
}

func (e envProperties) Keys() []string {
	keys, _ := e.snapshot()
	return keys
}

func (e envProperties) Lookup(key string) (string, bool) {
	_, values := e.snapshot()
	v, ok := values[key]
	return v, ok
}

type declaredVars struct {
	paths  []string
	names  map[string]string
	lookup func(string) (string, bool)
}

// DeclaredVars exposes explicitly declared environment variables as properties.
// vars maps a configuration path to the variable name that feeds it; an empty
// name means EnvName(path).
func DeclaredVars(vars map[string]string) Properties {
	d := declaredVars{names: make(map[string]string, len(vars)), lookup: os.LookupEnv}
	for path, name := range vars {
		if name == "" {
			name = EnvName(path)
		}
		d.paths = append(d.paths, path)
		d.names[Prefix+path] = name
	}
	sort.Strings(d.paths)
	return d
}

func (d declaredVars) Keys() []string {
	var keys []string
	for _, path := range d.paths {
		if _, ok := d.lookup(d.names[Prefix+path]); ok {
			keys = append(keys, Prefix+path)
		}
	}
	return keys
}

func (d declaredVars) Lookup(key string) (string, bool) {
	name, declared := d.names[key]
	if !declared {
		return "", false
	}
	return d.lookup(name)
}

type chain []Properties

// Chain combines stores; a key present in several stores takes the value and
// position of the last one.
func Chain(props ...Properties) Properties {
	var c chain
	for _, p := range props {
		if p != nil {
			c = append(c, p)
		}
	}
	return c
}

func (c chain) Keys() []string {
	var keys []string
	index := make(map[string]int)
	for _, p := range c {
		for _, k := range p.Keys() {
			if i, seen := index[k]; seen {
				keys = append(keys[:i], keys[i+1:]...)
				for key, pos := range index {
					if pos > i {
						index[key] = pos - 1
					}
				}
			}
			index[k] = len(keys)
			keys = append(keys, k)
		}
	}
	return keys
}

func (c chain) Lookup(key string) (string, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if v, ok := c[i].Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}
