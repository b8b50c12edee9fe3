package config

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// Encode serializes a bean (struct or pointer to struct) into a tree that
// resolves back to an equal bean. Nil pointers, slices and maps are omitted.
func Encode(bean any) (*Node, error) {
	rv := reflect.ValueOf(bean)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return Mapping(), nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("encode requires a struct, got %T", bean)
	}
	return encodeBean(rv, "")
}

func encodeBean(bean reflect.Value, path string) (*Node, error) {
	d, err := Describe(bean.Type())
	if err != nil {
		return nil, err
	}

	out := Mapping()
	for _, attr := range d.Attributes() {
		if attr.Get == nil {
			continue
		}
		child, err := encodeValue(attr.Get(bean), joinPath(path, attr.Name))
		if err != nil {
			return nil, err
		}
		if child != nil {
			out.Set(attr.Name, child)
		}
	}
	return out, nil
}

func encodeValue(v reflect.Value, path string) (*Node, error) {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		if v.Kind() == reflect.Ptr && isScalarType(v.Type()) {
			return encodeScalar(v.Elem(), path)
		}
		return encodeValue(v.Elem(), path)
	}

	if isScalarType(v.Type()) {
		return encodeScalar(v, path)
	}

	switch v.Kind() {
	case reflect.Struct:
		return encodeBean(v, path)

	case reflect.Slice, reflect.Array:
		items := make([]*Node, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := encodeValue(v.Index(i), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			if item == nil {
				item = Scalar("")
			}
			items = append(items, item)
		}
		return Sequence(items...), nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("'%s': map key type %s is not a string", path, v.Type().Key())
		}
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		out := Mapping()
		for _, key := range keys {
			child, err := encodeValue(v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key())), joinPath(path, key))
			if err != nil {
				return nil, err
			}
			if child != nil {
				out.Set(key, child)
			}
		}
		return out, nil
	}

	return nil, fmt.Errorf("'%s': unsupported attribute type %s", path, v.Type())
}

func encodeScalar(v reflect.Value, path string) (*Node, error) {
	switch v.Type() {
	case durationType:
		return Scalar(time.Duration(v.Int()).String()), nil
	case urlType:
		u := v.Interface().(url.URL)
		return Scalar(u.String()), nil
	case ipNetType:
		n := v.Interface().(net.IPNet)
		return Scalar(n.String()), nil
	}

	if v.Type().Implements(textMarshalerType) || reflect.PointerTo(v.Type()).Implements(textMarshalerType) {
		addressable := reflect.New(v.Type())
		addressable.Elem().Set(v)
		text, err := addressable.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, fmt.Errorf("'%s': %w", path, err)
		}
		return Scalar(string(text)), nil
	}

	switch v.Kind() {
	case reflect.String:
		return Scalar(v.String()), nil
	case reflect.Bool:
		return Scalar(strconv.FormatBool(v.Bool())), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Scalar(strconv.FormatInt(v.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Scalar(strconv.FormatUint(v.Uint(), 10)), nil
	case reflect.Float32:
		return Scalar(strconv.FormatFloat(v.Float(), 'g', -1, 32)), nil
	case reflect.Float64:
		return Scalar(strconv.FormatFloat(v.Float(), 'g', -1, 64)), nil
	case reflect.Slice:
		return Scalar(string(v.Bytes())), nil
	}
	return nil, fmt.Errorf("'%s': unsupported scalar type %s", path, v.Type())
}

// Marshal renders a tree in the given format.
func Marshal(n *Node, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(n)
	case FormatJSON:
		data, err := json.MarshalIndent(n.Interface(), "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(n.Interface()); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported config format %q", format)
}

// WriteFile atomically writes a tree to path, the format chosen by extension
// (YAML when the extension is unknown).
func WriteFile(path string, n *Node) error {
	format := detectFileFormat(path)
	if format == "" {
		format = FormatYAML
	}
	data, err := Marshal(n, format)
	if err != nil {
		return fmt.Errorf("marshal config to %s: %w", format, err)
	}
	return atomicWriteFile(path, data)
}

// atomicWriteFile writes data next to path and renames it into place, so
// readers see either the old file or the new one.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file for '%s': %w", path, err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0644)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		return fmt.Errorf("write '%s': %w", path, err)
	}
	return nil
}
