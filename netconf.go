// Package netconf is the public client API for a NETCONF-over-SSH
// server, addressed with XPath-style expressions (spec.md §1, §4.6).
// It composes, rather than extends, the lower layers: a Client has-a
// session.Session, the way the teacher library's higher-level ops
// package has-a client.Session instead of embedding one implementation
// inside another
// (github.com/damianoneill/net/v2/netconf/ops/session.go).
//
//	c, err := netconf.Dial(ctx, "switch1:2022", sshConfig, netconf.ConnectParams{
//		ReadOnly: false,
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close(ctx)
//
//	env, err := c.GetData("/interfaces/interface[name='eth0']", netconf.ResultState).First(ctx)
package netconf
