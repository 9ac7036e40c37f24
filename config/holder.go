package config

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Holder keeps the current OrgConfig snapshot. Readers call Get once per
// operation and pass the snapshot down.
type Holder struct {
	current atomic.Pointer[OrgConfig]

	mu        sync.Mutex
	listeners []func(*OrgConfig)
}

func NewHolder(org OrgConfig) *Holder {
	h := &Holder{}
	h.Set(org)
	return h
}

func (h *Holder) Get() *OrgConfig {
	return h.current.Load()
}

// Set swaps in a copy of org.
func (h *Holder) Set(org OrgConfig) {
	org.CheckinRooms = append([]string(nil), org.CheckinRooms...)
	org.AdminUsers = append([]string(nil), org.AdminUsers...)
	h.current.Store(&org)

	h.mu.Lock()
	listeners := slices.Clone(h.listeners)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(&org)
	}
}

// OnChange registers fn to run after every Set.
func (h *Holder) OnChange(fn func(*OrgConfig)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Watch loads the config at path and keeps the holder in sync with the file.
// A change that fails validation is logged and ignored; the previous
// snapshot stays active.
func Watch(path string, log *zap.Logger) (*Config, *Holder, error) {
	cfg, v, err := load(path)
	if err != nil {
		return nil, nil, err
	}

	h := NewHolder(cfg.Org)
	if v.ConfigFileUsed() == "" {
		return cfg, h, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(v)
		if err != nil {
			log.Warn("ignoring invalid config change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		h.Set(next.Org)
		log.Info("org settings reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return cfg, h, nil
}
