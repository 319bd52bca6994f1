package session

import (
	"time"

	"github.com/imdario/mergo"
)

// Config controls session timeouts, matching the teacher's
// client.Config/DefaultConfig pattern
// (github.com/damianoneill/net/v2/netconf/client/config.go), generalized
// from a single setup timeout to three: handshake, first reply and
// session close (20s each by default; no timeout applies to notification
// streams). SSH connect and subsystem open are bounded by
// transport.ReadyTimeout, which is not part of Config.
type Config struct {
	// SetupTimeout bounds the hello handshake (spec.md §4.4).
	SetupTimeout time.Duration

	// FirstReplyTimeout bounds only the first reply to a request; it does
	// not apply to notifications delivered after it (spec.md §4.4, §5).
	FirstReplyTimeout time.Duration

	// CloseTimeout bounds the close-session RPC sent during an orderly
	// Close (spec.md §4.4).
	CloseTimeout time.Duration

	// IgnoreAttributes drops the codec's $ attribute sub-mappings during
	// decode (spec.md §3, connection parameters).
	IgnoreAttributes bool
}

// DefaultConfig mirrors spec.md §5/§6/§7's uniform 20s ceiling.
var DefaultConfig = &Config{
	SetupTimeout:      20 * time.Second,
	FirstReplyTimeout: 20 * time.Second,
	CloseTimeout:      20 * time.Second,
}

// resolved returns cfg with zero-valued fields defaulted from
// DefaultConfig, using mergo the same way the teacher's
// rpcsessionfactory.NewRPCSessionWithConfig defaults an unspecified
// Config (github.com/damianoneill/net/v2/netconf/client/rpcsessionfactory.go).
func resolved(cfg *Config) *Config {
	var out Config
	if cfg != nil {
		out = *cfg
	}
	_ = mergo.Merge(&out, *DefaultConfig)
	return &out
}
