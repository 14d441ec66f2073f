package unifi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Network is a network profile as stored by the controller. Only a handful of
// keys are interpreted; everything else is passed through untouched so that
// updates never drop controller-side fields.
type Network map[string]any

// Known network profile keys.
const (
	KeyID      = "_id"
	KeyName    = "name"
	KeyPurpose = "purpose"
	KeyEnabled = "enabled"
	KeyType    = "type"
)

// Purpose values that drive VPN client selection.
const (
	PurposeVPNClient = "vpn-client"
	PurposeWAN       = "wan"
)

func (n Network) str(key string) string {
	if s, ok := n[key].(string); ok {
		return s
	}
	return ""
}

// ID returns the profile identifier, or "" when absent.
func (n Network) ID() string { return n.str(KeyID) }

// Name returns the profile name, or "" when absent.
func (n Network) Name() string { return n.str(KeyName) }

// Purpose returns the profile purpose, or "" when absent.
func (n Network) Purpose() string { return n.str(KeyPurpose) }

// Type returns the profile type, or "" when absent.
func (n Network) Type() string { return n.str(KeyType) }

// Enabled reports whether the profile is enabled. Missing or non-boolean
// values count as disabled.
func (n Network) Enabled() bool {
	b, _ := n[KeyEnabled].(bool)
	return b
}

// WithEnabled returns a shallow copy of n with the enabled flag overwritten.
func (n Network) WithEnabled(enabled bool) Network {
	out := make(Network, len(n)+1)
	maps.Copy(out, n)
	out[KeyEnabled] = enabled
	return out
}

// networkList is the envelope of the networkconf endpoint.
type networkList struct {
	Meta map[string]any `json:"meta,omitempty"`
	Data []Network      `json:"data"`
}

// decodeNetworks parses a networkconf response. Numbers are kept as
// json.Number so they are re-encoded exactly as received.
func decodeNetworks(body []byte) ([]Network, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var resp networkList
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse network configurations: %w", err)
	}
	if resp.Data == nil {
		return []Network{}, nil
	}
	return resp.Data, nil
}
