// Package config loads table definitions from YAML.
package config

import (
	"bytes"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/IvanBrykalov/camtable/cam"
	"github.com/IvanBrykalov/camtable/keys"
	"github.com/IvanBrykalov/camtable/policy"
	"github.com/IvanBrykalov/camtable/policy/none"
	"github.com/IvanBrykalov/camtable/policy/nru"
	"github.com/IvanBrykalov/camtable/policy/plru"
	"github.com/IvanBrykalov/camtable/policy/wraparound"
)

// KeyFormat tells how entry and query strings are turned into keys.
type KeyFormat string

const (
	// FormatUint accepts integers in any base strconv understands (0x.., 0b..).
	FormatUint KeyFormat = "uint"
	// FormatMAC accepts MAC addresses.
	FormatMAC KeyFormat = "mac"
	// FormatIPv4 accepts dotted quads and, for entries, CIDR prefixes.
	FormatIPv4 KeyFormat = "ipv4"
)

// Config describes one table and its initial content.
type Config struct {
	Capacity    int       `yaml:"capacity"`
	KeyWidth    int       `yaml:"key_width"`
	MetaWidth   int       `yaml:"meta_width"`
	WritePolicy string    `yaml:"write_policy"`
	Eviction    string    `yaml:"eviction"`
	KeyFormat   KeyFormat `yaml:"key_format"`
	Entries     []Entry   `yaml:"entries"`
}

// Entry is a seed entry. Index is optional; nil means "let the policy choose".
type Entry struct {
	Index    *int   `yaml:"index,omitempty"`
	Key      string `yaml:"key"`
	Metadata uint64 `yaml:"metadata"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML config bytes. Unknown fields are errors.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	c.setDefaults()
	if _, err := c.Options(nil, nil); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) setDefaults() {
	if c.KeyFormat == "" {
		switch c.KeyWidth {
		case keys.MACWidth:
			c.KeyFormat = FormatMAC
		case keys.IPv4Width:
			c.KeyFormat = FormatIPv4
		default:
			c.KeyFormat = FormatUint
		}
	}
}

// Options translates the config into table options.
func (c *Config) Options(log *zap.Logger, m cam.Metrics) (cam.Options, error) {
	wp, err := cam.ParseWritePolicy(c.WritePolicy)
	if err != nil {
		return cam.Options{}, fmt.Errorf("config: %w", err)
	}
	ev, err := ParseEviction(c.Eviction)
	if err != nil {
		return cam.Options{}, fmt.Errorf("config: %w", err)
	}
	switch c.KeyFormat {
	case FormatUint, FormatMAC, FormatIPv4:
	default:
		return cam.Options{}, fmt.Errorf("config: unknown key format %q", c.KeyFormat)
	}
	if c.Capacity <= 0 {
		return cam.Options{}, fmt.Errorf("config: capacity must be > 0, got %d", c.Capacity)
	}
	return cam.Options{
		Capacity:    c.Capacity,
		KeyWidth:    c.KeyWidth,
		MetaWidth:   c.MetaWidth,
		WritePolicy: wp,
		Policy:      ev,
		Logger:      log,
		Metrics:     m,
	}, nil
}

// ParseEviction maps an eviction policy name to its factory.
// The empty name selects none.
func ParseEviction(name string) (policy.Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return none.New(), nil
	case "wraparound", "fifo":
		return wraparound.New(), nil
	case "nru", "nru2":
		return nru.New(), nil
	case "plru":
		return plru.New(), nil
	}
	return nil, fmt.Errorf("%w: unknown eviction policy %q", cam.ErrInvalidArgument, name)
}

// Writes converts the seed entries into table writes.
func (c *Config) Writes() ([]cam.Write, error) {
	out := make([]cam.Write, 0, len(c.Entries))
	for n, e := range c.Entries {
		k, plen, err := c.ParseEntryKey(e.Key)
		if err != nil {
			return nil, fmt.Errorf("config: entry %d: %w", n, err)
		}
		w := cam.Write{Index: cam.AutoIndex, Key: k, PrefixLen: plen, Metadata: e.Metadata}
		if e.Index != nil {
			w.Index = *e.Index
		}
		out = append(out, w)
	}
	return out, nil
}

// ParseEntryKey parses an entry key. "key/len" carries a prefix length in
// every format; without one the prefix length is left at 0 (full width).
func (c *Config) ParseEntryKey(s string) (uint64, int, error) {
	s = strings.TrimSpace(s)
	if c.KeyFormat == FormatIPv4 && strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return 0, 0, err
		}
		return keys.IPv4Prefix(p)
	}
	plen := 0
	if base, l, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.Atoi(l)
		if err != nil {
			return 0, 0, fmt.Errorf("prefix length %q: %w", l, err)
		}
		s, plen = base, n
	}
	k, err := c.ParseKey(s)
	return k, plen, err
}

// ParseKey parses a query key in the configured format.
func (c *Config) ParseKey(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	switch c.KeyFormat {
	case FormatMAC:
		return keys.ParseMAC(s)
	case FormatIPv4:
		a, err := netip.ParseAddr(s)
		if err != nil {
			return 0, err
		}
		return keys.IPv4(a)
	default:
		return strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 0, 64)
	}
}

// FormatKey renders a key in the configured format.
func (c *Config) FormatKey(k uint64) string {
	switch c.KeyFormat {
	case FormatMAC:
		return keys.FormatMAC(k)
	case FormatIPv4:
		return keys.FormatIPv4(k)
	default:
		return "0x" + strconv.FormatUint(k, 16)
	}
}
