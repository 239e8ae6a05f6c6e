package messagesinfra

import (
	"context"
	"strconv"
	"sync"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/BurntSushi/toml"
)

// TOMLSettingStore reads settings from a TOML file. Nested tables are
// flattened with dots, so
//
//	[messages.warmup]
//	enable_logging = true
//
// is read as "messages.warmup.enable_logging".
type TOMLSettingStore struct {
	path string

	mu     sync.RWMutex
	values map[string]any
}

// NewTOMLSettingStore loads path. An empty path gives a store that always
// returns defaults.
func NewTOMLSettingStore(path string) (*TOMLSettingStore, error) {
	s := &TOMLSettingStore{path: path, values: map[string]any{}}
	if path == "" {
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseTOMLSettings builds a store from TOML text.
func ParseTOMLSettings(data string) (*TOMLSettingStore, error) {
	raw := map[string]any{}
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, errx.Wrap(err, "parse settings", errx.TypeConfiguration)
	}
	return &TOMLSettingStore{values: flatten("", raw, map[string]any{})}, nil
}

// Reload re-reads the file.
func (s *TOMLSettingStore) Reload() error {
	if s.path == "" {
		return nil
	}
	raw := map[string]any{}
	if _, err := toml.DecodeFile(s.path, &raw); err != nil {
		return errx.Wrap(err, "load settings", errx.TypeConfiguration).WithDetail("path", s.path)
	}
	values := flatten("", raw, map[string]any{})

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()

	logx.WithFields(logx.Fields{"path": s.path, "keys": len(values)}).Debug("settings loaded")
	return nil
}

func (s *TOMLSettingStore) GetBool(_ context.Context, key string, def bool) bool {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	case int64:
		return b != 0
	}
	return def
}

func flatten(prefix string, in map[string]any, out map[string]any) map[string]any {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			flatten(key, table, out)
			continue
		}
		out[key] = v
	}
	return out
}

var _ messages.SettingStore = (*TOMLSettingStore)(nil)
