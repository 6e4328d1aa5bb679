package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Runtime defines extension runtime settings
type Runtime struct {
	// MaxPackages bounds the registry size, 0 means unbounded
	MaxPackages int `json:"max_packages" yaml:"max_packages"`
	// ScriptTimeout bounds a single lifecycle script run
	ScriptTimeout string `json:"script_timeout" yaml:"script_timeout"`
	// DispatchTimeout bounds a whole tunnel action dispatch
	DispatchTimeout string `json:"dispatch_timeout" yaml:"dispatch_timeout"`
}

func getRuntimeConfig(v *viper.Viper) *Runtime {
	r := &Runtime{
		MaxPackages:     v.GetInt("runtime.max_packages"),
		ScriptTimeout:   v.GetString("runtime.script_timeout"),
		DispatchTimeout: v.GetString("runtime.dispatch_timeout"),
	}
	if r.ScriptTimeout == "" {
		r.ScriptTimeout = "30s"
	}
	if r.DispatchTimeout == "" {
		r.DispatchTimeout = "120s"
	}
	return r
}

// Validate validates the runtime configuration
func (r *Runtime) Validate() error {
	if r.MaxPackages < 0 {
		return fmt.Errorf("max_packages must not be negative, got: %d", r.MaxPackages)
	}

	timeouts := map[string]string{
		"script_timeout":   r.ScriptTimeout,
		"dispatch_timeout": r.DispatchTimeout,
	}
	for name, timeout := range timeouts {
		if timeout != "" {
			if _, err := time.ParseDuration(timeout); err != nil {
				return fmt.Errorf("invalid %s: %v", name, err)
			}
		}
	}
	return nil
}
