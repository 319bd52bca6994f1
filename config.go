package netconf

import (
	"context"

	"github.com/kolotsey/netconf-client/internal/envconfig"
	"github.com/kolotsey/netconf-client/session"
)

// ResultType selects which RPC getData uses and how it filters the
// datastore (spec.md §4.6).
type ResultType int

const (
	// ResultUndefined uses the base get operation with an xpath filter.
	ResultUndefined ResultType = iota
	// ResultConfig uses get-data with config-filter=true.
	ResultConfig
	// ResultState uses get-data with config-filter=false.
	ResultState
	// ResultSchema uses get-data with max-depth=1, for schema discovery.
	ResultSchema
)

// ConnectParams carries the connection parameters spec.md §3 names,
// generalizing the teacher's flat (host, port, user, pass) argument
// list (github.com/damianoneill/net/v2/netconf/client/rpcsessionfactory.go)
// into a struct so the optional fields (ReadOnly, AllowMultipleEdit,
// IgnoreAttributes, namespaces, debug sink) have somewhere to live.
type ConnectParams struct {
	Host string
	Port int
	User string
	Pass string

	// ReadOnly rejects editConfig*/rpc calls with ncerrors.ErrReadOnly
	// instead of sending them (spec.md §9's "throw for both" decision).
	ReadOnly bool

	// AllowMultipleEdit is forwarded to resolver.BuildOptions for every
	// editConfig* call.
	AllowMultipleEdit bool

	// IgnoreAttributes is forwarded to the session, suppressing $
	// sub-mappings during decode.
	IgnoreAttributes bool

	// Namespace is the default namespace URI injected on the first
	// resolved segment of a strict-XPath build.
	Namespace string

	// NamespaceAliases are alias->URI pairs injected as xmlns:alias
	// attributes on the first resolved segment.
	NamespaceAliases map[string]string

	// Debug receives every record the session and client emit. Nil
	// discards everything (session.NoOpDebugSink).
	Debug session.DebugSink

	// Config overrides the session's timeouts. Nil applies
	// session.DefaultConfig.
	Config *session.Config
}

// ConnectParamsFromEnv loads host/user/pass/port/namespace defaults from
// the environment variables spec.md §6 names for the CLI collaborator
// (NETCONF_HOST, NETCONF_USER, NETCONF_PASS, NETCONF_PORT,
// NETCONF_NAMESPACE), so a caller that wants the CLI's defaults without
// the CLI itself can ask for them directly.
func ConnectParamsFromEnv(ctx context.Context) (ConnectParams, error) {
	p, err := envconfig.Load(ctx)
	if err != nil {
		return ConnectParams{}, err
	}
	return ConnectParams{
		Host:      p.Host,
		Port:      p.Port,
		User:      p.User,
		Pass:      p.Pass,
		Namespace: p.Namespace,
	}, nil
}
