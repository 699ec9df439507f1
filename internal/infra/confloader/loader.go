package confloader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "WI_"

// Layer names reported by Origin and Layers.
const (
	LayerDefault = "default"
	LayerFile    = "file"
	LayerEnv     = "env"
	LayerFlags   = "flags"
)

// Layer is one configuration source that set at least one key.
type Layer struct {
	Name string
	// Path is the file a file layer was read from.
	Path string
	Keys []string
}

func (l Layer) String() string {
	if l.Path != "" {
		return fmt.Sprintf("%s %s (%d keys)", l.Name, l.Path, len(l.Keys))
	}
	return fmt.Sprintf("%s (%d keys)", l.Name, len(l.Keys))
}

// Loader merges configuration layers and remembers which layer set each
// key.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	flags     map[string]any
	layers    []Layer
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithFlags sets values taken from explicitly set command-line flags,
// keyed by dotted path.
func WithFlags(values map[string]any) Option {
	return func(l *Loader) {
		l.flags = values
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges every configured layer and unmarshals the result into
// target. Later layers override earlier ones:
//  1. Values already present in target
//  2. Configuration file (YAML)
//  3. Environment variables
//  4. Flags
func (l *Loader) Load(target any) error {
	if err := l.LoadFile(l.filePath); err != nil {
		return err
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if err := l.LoadFlags(l.flags); err != nil {
		return err
	}
	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// LoadFile merges a YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.merge(Layer{Name: LayerFile, Path: path}, file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges environment variables of the form PREFIX_SECTION_KEY.
// The first underscore after the prefix separates section from key, so
// keys keep their underscores: WI_FINGERPRINT_CHUNK_SIZE=500 sets
// fingerprint.chunk_size.
func (l *Loader) LoadEnv() error {
	provider := env.Provider(l.envPrefix, ".", func(s string) string {
		return EnvKey(l.envPrefix, s)
	})
	if err := l.merge(Layer{Name: LayerEnv}, provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// LoadFlags merges a map of dotted paths to values.
func (l *Loader) LoadFlags(values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	if err := l.merge(Layer{Name: LayerFlags}, mapProvider(values), nil); err != nil {
		return fmt.Errorf("load flags: %w", err)
	}
	return nil
}

// merge loads one source on its own so its keys can be recorded, then
// merges it over the layers loaded before it.
func (l *Loader) merge(layer Layer, p koanf.Provider, parser koanf.Parser) error {
	k := koanf.New(".")
	if err := k.Load(p, parser); err != nil {
		return err
	}
	layer.Keys = k.Keys()
	if len(layer.Keys) == 0 {
		return nil
	}
	sort.Strings(layer.Keys)
	if err := l.k.Merge(k); err != nil {
		return err
	}
	l.layers = append(l.layers, layer)
	return nil
}

// EnvKey maps an environment variable name to a configuration path. Names
// without a section, such as WI_USER, map to "" and are skipped.
func EnvKey(prefix, name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

// Layers returns the layers that set at least one key, lowest priority
// first.
func (l *Loader) Layers() []Layer {
	return append([]Layer(nil), l.layers...)
}

// Origin names the layer that last set key, or LayerDefault.
func (l *Loader) Origin(key string) string {
	for i := len(l.layers) - 1; i >= 0; i-- {
		keys := l.layers[i].Keys
		if j := sort.SearchStrings(keys, key); j < len(keys) && keys[j] == key {
			return l.layers[i].Name
		}
	}
	return LayerDefault
}
