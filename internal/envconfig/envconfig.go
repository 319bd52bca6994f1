// Package envconfig loads connection defaults from the environment
// variables spec.md §6 names for the CLI front-end (out of scope here),
// so the core can offer the same convenience without depending on any
// CLI code. Grounded on luma-pharos's internal/env.LoadConfig, built on
// the same github.com/sethvargo/go-envconfig.
package envconfig

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Params mirrors the subset of netconf.ConnectParams that spec.md §6
// allows to be sourced from the environment.
type Params struct {
	Host      string `env:"NETCONF_HOST"`
	User      string `env:"NETCONF_USER,default=admin"`
	Pass      string `env:"NETCONF_PASS,default=admin"`
	Port      int    `env:"NETCONF_PORT,default=2022"`
	Namespace string `env:"NETCONF_NAMESPACE"`
}

// Load reads Params from the process environment, applying spec.md §6's
// defaults (user=admin, pass=admin, port=2022) for anything unset.
func Load(ctx context.Context) (*Params, error) {
	var p Params
	if err := envconfig.Process(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
