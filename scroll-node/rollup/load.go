package rollup

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed configs/*.toml
var builtInConfigs embed.FS

var ErrUnknownNetwork = errors.New("unknown network")

// Networks lists the names of the built-in network configurations.
func Networks() []string {
	entries, err := builtInConfigs.ReadDir("configs")
	if err != nil {
		panic(fmt.Errorf("built-in configs: %w", err))
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".toml"))
	}
	return out
}

// LoadNetwork returns the built-in configuration of the named network.
func LoadNetwork(name string) (*ChainConfig, error) {
	data, err := builtInConfigs.ReadFile(path.Join("configs", name+".toml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	cfg, err := decodeTOML(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s config: %w", name, err)
	}
	return cfg, nil
}

func mustLoadNetwork(name string) *ChainConfig {
	cfg, err := LoadNetwork(name)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Mainnet returns the Scroll mainnet configuration.
func Mainnet() *ChainConfig { return mustLoadNetwork("mainnet") }

// Sepolia returns the Scroll Sepolia testnet configuration.
func Sepolia() *ChainConfig { return mustLoadNetwork("sepolia") }

// LoadConfigFile reads a chain configuration from a .toml, .json or .yaml file and checks it.
func LoadConfigFile(file string) (*ChainConfig, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open chain config: %w", err)
	}
	defer f.Close()

	var cfg *ChainConfig
	switch ext := filepath.Ext(file); ext {
	case ".toml":
		cfg, err = decodeTOML(f)
	case ".json":
		cfg, err = decodeJSON(f)
	case ".yaml", ".yml":
		cfg, err = decodeYAML(f)
	default:
		return nil, fmt.Errorf("unsupported chain config extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode chain config %s: %w", file, err)
	}
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid chain config %s: %w", file, err)
	}
	return cfg, nil
}

func decodeTOML(r io.Reader) (*ChainConfig, error) {
	var cfg ChainConfig
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown fields: %v", undecoded)
	}
	return &cfg, nil
}

func decodeJSON(r io.Reader) (*ChainConfig, error) {
	var cfg ChainConfig
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader) (*ChainConfig, error) {
	var cfg ChainConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
