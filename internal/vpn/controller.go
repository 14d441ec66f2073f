// Package vpn selects VPN client network profiles and toggles them.
package vpn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xabinapal/unifi-vpn/internal/unifi"
)

var (
	// ErrMissingID is returned when a profile to update has no identifier.
	ErrMissingID = errors.New("VPN configuration missing ID")
	// ErrVPNClientNotFound is returned by Pause and Resume when no profile matches.
	ErrVPNClientNotFound = errors.New("VPN client not found")
)

// unknown is reported for summary fields the controller did not send.
const unknown = "Unknown"

// API is the subset of the controller session used by Controller.
type API interface {
	ListNetworks(ctx context.Context) ([]unifi.Network, error)
	UpdateNetwork(ctx context.Context, id string, n unifi.Network) error
}

// Logger receives the controller's operational messages.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Controller lists, finds and toggles VPN client profiles.
type Controller struct {
	api    API
	logger Logger
}

// NewController creates a Controller on top of an authenticated session.
func NewController(api API, logger Logger) *Controller {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Controller{api: api, logger: logger}
}

// ListVPNClients returns the site's profiles classified as VPN clients, in
// controller order.
func (c *Controller) ListVPNClients(ctx context.Context) ([]unifi.Network, error) {
	networks, err := c.api.ListNetworks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve VPN clients: %w", err)
	}

	clients := make([]unifi.Network, 0, len(networks))
	for _, n := range networks {
		reason := Classify(n)
		if !reason.IsVPN() {
			continue
		}
		c.logger.Info("found VPN client", "name", displayName(n), "purpose", n.Purpose(), "reason", string(reason))
		clients = append(clients, n)
	}

	c.logger.Info("found VPN client configurations", "count", len(clients))
	return clients, nil
}

// FindVPNClient selects one VPN client. With an empty name it prefers a
// profile tagged as a VPN client and falls back to the first match; with a
// name it returns the first profile whose name contains it, ignoring case.
// The boolean is false when nothing matches.
func (c *Controller) FindVPNClient(ctx context.Context, name string) (unifi.Network, bool, error) {
	clients, err := c.ListVPNClients(ctx)
	if err != nil {
		return nil, false, err
	}

	if n, ok := selectVPNClient(clients, name); ok {
		return n, true, nil
	}
	return nil, false, nil
}

func selectVPNClient(clients []unifi.Network, name string) (unifi.Network, bool) {
	if name == "" {
		for _, n := range clients {
			if n.Purpose() == unifi.PurposeVPNClient {
				return n, true
			}
		}
		if len(clients) > 0 {
			return clients[0], true
		}
		return nil, false
	}

	needle := strings.ToLower(name)
	for _, n := range clients {
		if strings.Contains(strings.ToLower(n.Name()), needle) {
			return n, true
		}
	}
	return nil, false
}

// UpdateVPNClient resubmits n with only its enabled flag overwritten.
func (c *Controller) UpdateVPNClient(ctx context.Context, n unifi.Network, enabled bool) error {
	id := n.ID()
	if id == "" {
		c.logger.Error("VPN configuration missing ID", "name", displayName(n))
		return ErrMissingID
	}

	if err := c.api.UpdateNetwork(ctx, id, n.WithEnabled(enabled)); err != nil {
		return fmt.Errorf("failed to update VPN client %q: %w", displayName(n), err)
	}

	c.logger.Info("updated VPN client", "name", displayName(n), "enabled", enabled)
	return nil
}

// ClientStatus summarizes one VPN client.
type ClientStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Type    string `json:"type"`
	ID      string `json:"id"`
}

// Summarize builds a ClientStatus, reporting "Unknown" for missing fields.
func Summarize(n unifi.Network) ClientStatus {
	return ClientStatus{
		Name:    orUnknown(n.Name()),
		Enabled: n.Enabled(),
		Type:    orUnknown(n.Type()),
		ID:      orUnknown(n.ID()),
	}
}

// StatusResult is the outcome of a status query. A query for a name yields
// either Client or a not-found message; an empty query yields Clients.
type StatusResult struct {
	Query   string
	Client  *ClientStatus
	Clients []ClientStatus
}

// Found reports whether a named query matched a client.
func (r *StatusResult) Found() bool {
	return r.Query == "" || r.Client != nil
}

// ErrorMessage returns the not-found message of a failed named query.
func (r *StatusResult) ErrorMessage() string {
	if r.Found() {
		return ""
	}
	return fmt.Sprintf("VPN client %q not found", r.Query)
}

// MarshalJSON renders the single summary, the error object, or the
// vpn_clients list depending on the query.
func (r StatusResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Query == "":
		clients := r.Clients
		if clients == nil {
			clients = []ClientStatus{}
		}
		return json.Marshal(struct {
			VPNClients []ClientStatus `json:"vpn_clients"`
		}{clients})
	case r.Client == nil:
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.ErrorMessage()})
	default:
		return json.Marshal(r.Client)
	}
}

// Status reports the named client, or every VPN client when name is empty.
func (c *Controller) Status(ctx context.Context, name string) (*StatusResult, error) {
	result := &StatusResult{Query: name}

	if name != "" {
		n, ok, err := c.FindVPNClient(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			s := Summarize(n)
			result.Client = &s
		}
		return result, nil
	}

	clients, err := c.ListVPNClients(ctx)
	if err != nil {
		return nil, err
	}
	result.Clients = make([]ClientStatus, 0, len(clients))
	for _, n := range clients {
		result.Clients = append(result.Clients, Summarize(n))
	}
	return result, nil
}

// ToggleResult describes a pause or resume.
type ToggleResult struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	// Changed is false when the client was already in the requested state.
	Changed bool `json:"changed"`
}

// Pause disables a VPN client. Pausing a disabled client succeeds without a write.
func (c *Controller) Pause(ctx context.Context, name string) (*ToggleResult, error) {
	return c.toggle(ctx, name, false)
}

// Resume enables a VPN client. Resuming an enabled client succeeds without a write.
func (c *Controller) Resume(ctx context.Context, name string) (*ToggleResult, error) {
	return c.toggle(ctx, name, true)
}

func (c *Controller) toggle(ctx context.Context, name string, enabled bool) (*ToggleResult, error) {
	n, ok, err := c.FindVPNClient(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		query := name
		if query == "" {
			query = "any"
		}
		c.logger.Error("VPN client not found", "query", query)
		return nil, fmt.Errorf("%w: %s", ErrVPNClientNotFound, query)
	}

	result := &ToggleResult{Name: displayName(n), Enabled: enabled}
	if n.Enabled() == enabled {
		c.logger.Info("VPN client already in requested state", "name", result.Name, "enabled", enabled)
		return result, nil
	}

	if err := c.UpdateVPNClient(ctx, n, enabled); err != nil {
		return nil, err
	}
	result.Changed = true
	return result, nil
}

func displayName(n unifi.Network) string {
	return orUnknown(n.Name())
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
