package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format names a configuration document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ReadFile reads and parses one configuration document.
// The format is taken from the file extension, falling back to content detection.
func ReadFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: config file '%s' not found", ErrConfigRead, path)
		}
		return nil, fmt.Errorf("%w: failed to read config file '%s': %w", ErrConfigRead, path, err)
	}

	format := detectFileFormat(path)
	if format == "" {
		format = detectFormatFromContent(data)
		if format == "" {
			return nil, fmt.Errorf("%w: unable to determine config format for file '%s'", ErrConfigRead, path)
		}
	}

	node, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w (file '%s')", err, path)
	}
	return node, nil
}

// ReadFiles reads every path in order and deep-merges the documents, later files winning.
// With no paths the result is an empty mapping.
func ReadFiles(paths ...string) (*Node, error) {
	merged := Mapping()
	for _, path := range paths {
		node, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		merged = Merge(merged, node)
	}
	return merged, nil
}

// Parse parses an in-memory document. The document root must be a mapping;
// an empty document yields an empty mapping.
func Parse(data []byte, format Format) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Mapping(), nil
	}

	var (
		root *Node
		err  error
	)
	switch format {
	case FormatYAML:
		root, err = parseYAML(data)
	case FormatJSON:
		root, err = parseJSON(data)
	case FormatTOML:
		root, err = parseTOML(data)
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrConfigRead, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s config: %w", ErrConfigRead, strings.ToUpper(string(format)), err)
	}
	if root == nil {
		return Mapping(), nil
	}
	if root.Kind != MappingNode {
		return nil, fmt.Errorf("%w: document root must be a mapping, got %s", ErrConfigRead, root.Kind)
	}
	return root, nil
}

func parseYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	return fromYAML(doc.Content[0])
}

func fromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.AliasNode:
		return fromYAML(y.Alias)

	case yaml.MappingNode:
		out := Mapping()
		var merges []*Node
		seen := make(map[string]struct{}, len(y.Content)/2)
		for i := 0; i+1 < len(y.Content); i += 2 {
			key, value := y.Content[i], y.Content[i+1]
			if key.Tag == "!!merge" {
				merged, err := fromYAML(value)
				if err != nil {
					return nil, err
				}
				merges = append(merges, merged)
				continue
			}
			if _, dup := seen[key.Value]; dup {
				return nil, fmt.Errorf("line %d: mapping key %q already defined", key.Line, key.Value)
			}
			seen[key.Value] = struct{}{}
			if isYAMLNull(value) {
				continue
			}
			child, err := fromYAML(value)
			if err != nil {
				return nil, err
			}
			out.Set(key.Value, child)
		}
		// explicit keys take precedence over merged ones
		for _, m := range merges {
			applyYAMLMerge(out, m)
		}
		return out, nil

	case yaml.SequenceNode:
		items := make([]*Node, 0, len(y.Content))
		for _, item := range y.Content {
			if isYAMLNull(item) {
				items = append(items, Scalar(""))
				continue
			}
			child, err := fromYAML(item)
			if err != nil {
				return nil, err
			}
			items = append(items, child)
		}
		return Sequence(items...), nil

	case yaml.ScalarNode:
		return Scalar(y.Value), nil
	}
	return nil, fmt.Errorf("unsupported YAML node at line %d", y.Line)
}

func applyYAMLMerge(out, source *Node) {
	switch source.Kind {
	case MappingNode:
		for _, key := range source.Keys() {
			if _, exists := out.Field(key); !exists {
				value, _ := source.Field(key)
				out.Set(key, value)
			}
		}
	case SequenceNode:
		for _, item := range source.Items {
			applyYAMLMerge(out, item)
		}
	}
}

func isYAMLNull(y *yaml.Node) bool {
	if y.Kind == yaml.AliasNode && y.Alias != nil {
		return isYAMLNull(y.Alias)
	}
	return y.Kind == yaml.ScalarNode && y.Tag == "!!null"
}

func parseJSON(data []byte) (*Node, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber() // Preserve number precision
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}
	return FromValue(raw)
}

func parseTOML(data []byte) (*Node, error) {
	raw := make(map[string]any)
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return FromValue(raw)
}

// FromValue converts decoded generic data (maps, slices, scalars) into a tree.
// Map keys are sorted; nil values are dropped.
func FromValue(v any) (*Node, error) {
	if v == nil {
		return nil, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)

		out := Mapping()
		for _, key := range keys {
			child, err := FromValue(rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			if child != nil {
				out.Set(key, child)
			}
		}
		return out, nil

	case reflect.Slice, reflect.Array:
		if b, ok := v.([]byte); ok {
			return Scalar(string(b)), nil
		}
		items := make([]*Node, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			child, err := FromValue(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			if child == nil {
				child = Scalar("")
			}
			items = append(items, child)
		}
		return Sequence(items...), nil
	}

	return Scalar(formatScalar(v)), nil
}

func formatScalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) Format {
	// Try JSON first (strict format)
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return FormatJSON
	}

	// YAML is a superset of JSON, so check after JSON
	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		if _, isMap := yamlTest.(map[string]any); isMap {
			return FormatYAML
		}
	}

	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	return ""
}
