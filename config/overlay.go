package config

import "strings"

// Overlay returns a copy of tree with every Prefix property applied on top.
// Keys are applied in the order the store reports them, so later keys win.
// Keys with empty path segments are ignored.
func Overlay(tree *Node, props Properties) *Node {
	out := tree.Clone()
	if out == nil {
		out = Mapping()
	}
	if props == nil {
		return out
	}

	for _, key := range props.Keys() {
		path, ok := strings.CutPrefix(key, Prefix)
		if !ok || !isValidPath(path) {
			continue
		}
		value, ok := props.Lookup(key)
		if !ok {
			continue
		}
		out.SetPath(path, Scalar(value))
	}
	return out
}

func isValidPath(path string) bool {
	if path == "" {
		return false
	}
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return false
		}
	}
	return true
}
