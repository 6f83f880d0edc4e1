// Package security builds client TLS settings for outbound connections to
// LLM backends and CKAN portals served with private CAs or mutual TLS.
//
//	tlsCfg, err := (&security.TLSConfig{CAFile: "/etc/portalgpt/ca.pem"}).Build()
package security
