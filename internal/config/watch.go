package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch loads configPath and calls onChange with every later valid
// revision. Invalid revisions are reported to onError and skipped.
func Watch(configPath string, onChange func(*Config, fsnotify.Event), onError func(error)) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(next, e)
	})
	v.WatchConfig()
	return cfg, nil
}
