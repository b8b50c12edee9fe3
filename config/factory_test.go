package config

import (
	"net"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leaf struct {
	K string `config:"k"`
	F string `config:"f"`
	L string `config:"l"`
}

type middle struct {
	M leaf `config:"m"`
}

type lenientBean struct {
	A string  `config:"a"`
	C *middle `config:"c"`
}

func (lenientBean) IgnoreUnknownKeys() bool { return true }

type strictBean struct {
	Name    string
	Port    int
	Enabled bool
	Skipped string `config:"-"`
}

type strictLeaf struct {
	K string `config:"k"`
	L string `config:"l"`
}

type strictMiddle struct {
	M strictLeaf `config:"m"`
}

type tolerantRoot struct {
	A string       `config:"a"`
	C strictMiddle `config:"c"`
}

func (tolerantRoot) IgnoreUnknownKeys() bool { return true }

type hostPort struct {
	Host string `config:"host"`
	Port int    `config:"port"`
}

type withNested struct {
	Inner hostPort  `config:"inner"`
	Ptr   *hostPort `config:"ptr"`
}

func mustParseYAML(t *testing.T, doc string) *Node {
	t.Helper()
	root, err := Parse([]byte(doc), FormatYAML)
	require.NoError(t, err)
	return root
}

// TestFactoryResolve tests bean resolution from a tree
func TestFactoryResolve(t *testing.T) {
	t.Run("NestedBeans", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "a: e\nc:\n  m:\n    k: q\n    l: n\nextra: ignored\n"))

		bean, err := Resolve[lenientBean](f, "")
		require.NoError(t, err)
		assert.Equal(t, "e", bean.A)
		require.NotNil(t, bean.C)
		assert.Equal(t, "q", bean.C.M.K)
		assert.Equal(t, "n", bean.C.M.L)
		assert.Empty(t, bean.C.M.F)
	})

	t.Run("ToleranceCoversNestedBeans", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "a: e\nc:\n  m:\n    k: q\n    f: extra\n    l: n\n"))

		bean, err := Resolve[tolerantRoot](f, "")
		require.NoError(t, err)
		assert.Equal(t, tolerantRoot{A: "e", C: strictMiddle{M: strictLeaf{K: "q", L: "n"}}}, *bean)

		_, err = Resolve[strictMiddle](f, "c")
		require.ErrorIs(t, err, ErrUnknownKey)
		assert.Contains(t, err.Error(), "c.m.f")
	})

	t.Run("NestedDefaultsKept", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "inner:\n  port: 9090\nptr:\n  port: 6543\n"))

		shared := &hostPort{Host: "db", Port: 5432}
		bean := &withNested{Inner: hostPort{Host: "localhost", Port: 80}, Ptr: shared}
		require.NoError(t, f.Config(bean, ""))

		assert.Equal(t, hostPort{Host: "localhost", Port: 9090}, bean.Inner)
		assert.Same(t, shared, bean.Ptr)
		assert.Equal(t, hostPort{Host: "db", Port: 6543}, *bean.Ptr)
	})

	t.Run("NilPointerAllocated", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "ptr:\n  host: cache\n"))

		bean, err := Resolve[withNested](f, "")
		require.NoError(t, err)
		require.NotNil(t, bean.Ptr)
		assert.Equal(t, hostPort{Host: "cache"}, *bean.Ptr)
	})

	t.Run("FieldNameFallback", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "app:\n  name: demo\n  port: \"8080\"\n  enabled: true\n"))

		bean, err := Resolve[strictBean](f, "app")
		require.NoError(t, err)
		assert.Equal(t, "demo", bean.Name)
		assert.Equal(t, 8080, bean.Port)
		assert.True(t, bean.Enabled)
	})

	t.Run("MissingPrefixKeepsDefaults", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "other: 1\n"))

		bean := &strictBean{Name: "default", Port: 1}
		require.NoError(t, f.Config(bean, "app"))
		assert.Equal(t, "default", bean.Name)
		assert.Equal(t, 1, bean.Port)
	})

	t.Run("UnknownKeyOnStrictBean", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "app:\n  name: demo\n  bogus: 1\n"))

		_, err := Resolve[strictBean](f, "app")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownKey)
		assert.Contains(t, err.Error(), "app.bogus")
	})

	t.Run("SkippedFieldIsUnknown", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "skipped: x\n"))

		_, err := Resolve[strictBean](f, "")
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("ScalarWhereBeanExpected", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "a: e\nc: flat\n"))

		_, err := Resolve[lenientBean](f, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)
		assert.Contains(t, err.Error(), "'c'")
	})

	t.Run("MappingWhereScalarExpected", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "c:\n  m:\n    k:\n      deep: x\n"))

		_, err := Resolve[lenientBean](f, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)
		assert.Contains(t, err.Error(), "c.m.k")
	})

	t.Run("UnconvertibleScalar", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "port: eighty\n"))

		_, err := Resolve[strictBean](f, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)
		assert.Contains(t, err.Error(), "port")
	})

	t.Run("PrefixNotMapping", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "app: scalar\n"))

		_, err := Resolve[strictBean](f, "app")
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("InvalidTarget", func(t *testing.T) {
		f := NewFactory(nil)
		assert.Error(t, f.Config(strictBean{}, ""))
		assert.Error(t, f.Config((*strictBean)(nil), ""))
		n := 1
		assert.Error(t, f.Config(&n, ""))
	})

	t.Run("Deterministic", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "a: e\nc:\n  m:\n    k: q\n"))

		first, err := Resolve[lenientBean](f, "")
		require.NoError(t, err)
		second, err := Resolve[lenientBean](f, "")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

// TestFactoryComplexTypes tests scalar coercion through decode hooks
func TestFactoryComplexTypes(t *testing.T) {
	type retry struct {
		Count    int           `config:"count"`
		Interval time.Duration `config:"interval"`
	}

	type network struct {
		IP      net.IP        `config:"ip"`
		Subnet  *net.IPNet    `config:"subnet"`
		URL     *url.URL      `config:"endpoint"`
		Timeout time.Duration `config:"timeout"`
		Since   time.Time     `config:"since"`
		Retry   retry         `config:"retry"`
	}

	type app struct {
		Network network           `config:"network"`
		Tags    []string          `config:"tags"`
		Ports   []int             `config:"ports"`
		Labels  map[string]string `config:"labels"`
		Extra   any               `config:"extra"`
		Secret  []byte            `config:"secret"`
	}

	doc := `
network:
  ip: 192.168.1.100
  subnet: 192.168.1.0/24
  endpoint: https://api.example.com:8443/v1
  timeout: 2m30s
  since: 2024-01-02T03:04:05Z
  retry:
    count: 5
    interval: 10s
tags: prod,staging,test
ports: [80, 443, 8080]
labels:
  env: prod
  tier: web
extra:
  nested: [a, b]
secret: s3cr3t
`
	f := NewFactory(mustParseYAML(t, doc))

	bean, err := Resolve[app](f, "")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.100", bean.Network.IP.String())
	require.NotNil(t, bean.Network.Subnet)
	assert.Equal(t, "192.168.1.0/24", bean.Network.Subnet.String())
	require.NotNil(t, bean.Network.URL)
	assert.Equal(t, "api.example.com:8443", bean.Network.URL.Host)
	assert.Equal(t, 150*time.Second, bean.Network.Timeout)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), bean.Network.Since.UTC())
	assert.Equal(t, 5, bean.Network.Retry.Count)
	assert.Equal(t, 10*time.Second, bean.Network.Retry.Interval)
	assert.Equal(t, []string{"prod", "staging", "test"}, bean.Tags)
	assert.Equal(t, []int{80, 443, 8080}, bean.Ports)
	assert.Equal(t, map[string]string{"env": "prod", "tier": "web"}, bean.Labels)
	assert.Equal(t, map[string]any{"nested": []any{"a", "b"}}, bean.Extra)
	assert.Equal(t, []byte("s3cr3t"), bean.Secret)

	t.Run("InvalidIP", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "network:\n  ip: not-an-ip\n"))
		_, err := Resolve[app](f, "")
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("SequenceItemPath", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "ports: [80, http]\n"))
		_, err := Resolve[app](f, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ports[1]")
	})
}

// TestFactoryRegister tests hand-written descriptors
func TestFactoryRegister(t *testing.T) {
	type endpoint struct {
		host string
		port int
	}

	d, err := NewDescriptor(reflect.TypeOf(endpoint{}), false,
		Attribute{
			Name: "host",
			Type: reflect.TypeOf(""),
			Set: func(bean, value reflect.Value) {
				bean.Addr().Interface().(*endpoint).host = value.String()
			},
		},
		Attribute{
			Name: "port",
			Type: reflect.TypeOf(0),
			Set: func(bean, value reflect.Value) {
				bean.Addr().Interface().(*endpoint).port = int(value.Int())
			},
		},
	)
	require.NoError(t, err)

	f := NewFactory(mustParseYAML(t, "ep:\n  host: example.com\n  port: 443\n"))
	f.Register(d)

	ep, err := Resolve[endpoint](f, "ep")
	require.NoError(t, err)
	assert.Equal(t, "example.com", ep.host)
	assert.Equal(t, 443, ep.port)

	t.Run("StrictDescriptor", func(t *testing.T) {
		f := NewFactory(mustParseYAML(t, "ep:\n  scheme: https\n"))
		f.Register(d)
		_, err := Resolve[endpoint](f, "ep")
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("InvalidDescriptors", func(t *testing.T) {
		_, err := NewDescriptor(reflect.TypeOf(0), false)
		assert.Error(t, err)

		_, err = NewDescriptor(reflect.TypeOf(endpoint{}), false, Attribute{Name: "host"})
		assert.Error(t, err)

		set := func(bean, value reflect.Value) {}
		_, err = NewDescriptor(reflect.TypeOf(endpoint{}), false,
			Attribute{Name: "host", Type: reflect.TypeOf(""), Set: set},
			Attribute{Name: "host", Type: reflect.TypeOf(""), Set: set},
		)
		assert.Error(t, err)
	})
}

// TestDescribe tests derived descriptors
func TestDescribe(t *testing.T) {
	type Base struct {
		ID string `config:"id"`
	}
	type withEmbedded struct {
		Base
		Name string
	}

	d, err := Describe(reflect.TypeOf(withEmbedded{}))
	require.NoError(t, err)

	var names []string
	for _, attr := range d.Attributes() {
		names = append(names, attr.Name)
	}
	assert.Equal(t, []string{"id", "name"}, names)
	assert.False(t, d.IgnoreUnknown)

	cached, err := Describe(reflect.TypeOf(withEmbedded{}))
	require.NoError(t, err)
	assert.Same(t, d, cached)

	lenient, err := Describe(reflect.TypeOf(lenientBean{}))
	require.NoError(t, err)
	assert.True(t, lenient.IgnoreUnknown)

}
