package vpn

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xabinapal/unifi-vpn/internal/unifi"
)

type update struct {
	id      string
	network unifi.Network
}

// fakeAPI is an in-memory controller.
type fakeAPI struct {
	networks  []unifi.Network
	listErr   error
	updateErr error
	updates   []update
}

func (f *fakeAPI) ListNetworks(ctx context.Context) ([]unifi.Network, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.networks, nil
}

func (f *fakeAPI) UpdateNetwork(ctx context.Context, id string, n unifi.Network) error {
	f.updates = append(f.updates, update{id: id, network: n})
	return f.updateErr
}

func sampleNetworks() []unifi.Network {
	return []unifi.Network{
		{"_id": "1", "name": "WAN", "purpose": "wan", "enabled": true},
		{"_id": "2", "name": "VPN Failover", "purpose": "wan", "enabled": true},
		{"_id": "3", "name": "Home-VPN", "purpose": "corporate", "enabled": true, "type": "openvpn"},
		{"_id": "4", "name": "Surfshark-VPN", "purpose": "vpn-client", "enabled": false, "type": "wireguard"},
		{"_id": "5", "name": "Default", "purpose": "corporate", "enabled": true},
	}
}

func names(networks []unifi.Network) []string {
	out := make([]string, 0, len(networks))
	for _, n := range networks {
		out = append(out, n.Name())
	}
	return out
}

func TestListVPNClients(t *testing.T) {
	api := &fakeAPI{networks: sampleNetworks()}
	c := NewController(api, nil)

	clients, err := c.ListVPNClients(context.Background())
	if err != nil {
		t.Fatalf("ListVPNClients() error = %v", err)
	}

	want := []string{"Home-VPN", "Surfshark-VPN"}
	if got := names(clients); !reflect.DeepEqual(got, want) {
		t.Errorf("ListVPNClients() = %v, want %v", got, want)
	}
}

func TestListVPNClients_Error(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("connection refused")}
	c := NewController(api, nil)

	if _, err := c.ListVPNClients(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestFindVPNClient(t *testing.T) {
	tests := []struct {
		name      string
		networks  []unifi.Network
		query     string
		wantName  string
		wantFound bool
	}{
		{
			name:      "default prefers vpn-client purpose",
			networks:  sampleNetworks(),
			wantName:  "Surfshark-VPN",
			wantFound: true,
		},
		{
			name: "default falls back to first match",
			networks: []unifi.Network{
				{"_id": "1", "name": "LAN"},
				{"_id": "2", "name": "OpenVPN Server", "purpose": "corporate"},
				{"_id": "3", "name": "Travel VPN", "purpose": "corporate"},
			},
			wantName:  "OpenVPN Server",
			wantFound: true,
		},
		{
			name: "default purpose match is exact",
			networks: []unifi.Network{
				{"_id": "1", "name": "NordVPN", "purpose": "corporate"},
				{"_id": "2", "name": "Tunnel", "purpose": "VPN-Client"},
			},
			wantName:  "NordVPN",
			wantFound: true,
		},
		{
			name:      "name is a case-insensitive substring",
			networks:  sampleNetworks(),
			query:     "Shark",
			wantName:  "Surfshark-VPN",
			wantFound: true,
		},
		{
			name:      "name returns first filtered match",
			networks:  sampleNetworks(),
			query:     "vpn",
			wantName:  "Home-VPN",
			wantFound: true,
		},
		{
			name:     "name only searches VPN clients",
			networks: sampleNetworks(),
			query:    "Default",
		},
		{
			name:     "no match",
			networks: sampleNetworks(),
			query:    "ProtonVPN",
		},
		{
			name:     "no VPN clients at all",
			networks: []unifi.Network{{"_id": "1", "name": "WAN", "purpose": "wan"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(&fakeAPI{networks: tt.networks}, nil)
			n, found, err := c.FindVPNClient(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("FindVPNClient() error = %v", err)
			}
			if found != tt.wantFound {
				t.Fatalf("FindVPNClient() found = %v, want %v", found, tt.wantFound)
			}
			if found && n.Name() != tt.wantName {
				t.Errorf("FindVPNClient() = %q, want %q", n.Name(), tt.wantName)
			}
			if !found && n != nil {
				t.Errorf("expected nil network when not found, got %v", n)
			}
		})
	}
}

func TestUpdateVPNClient_MissingID(t *testing.T) {
	api := &fakeAPI{}
	c := NewController(api, nil)

	err := c.UpdateVPNClient(context.Background(), unifi.Network{"name": "MyVPN"}, true)
	if !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
	if len(api.updates) != 0 {
		t.Errorf("expected no write, got %d", len(api.updates))
	}
}

func TestUpdateVPNClient_DoesNotMutateInput(t *testing.T) {
	api := &fakeAPI{}
	c := NewController(api, nil)
	n := unifi.Network{"_id": "9", "name": "MyVPN", "enabled": true}

	if err := c.UpdateVPNClient(context.Background(), n, false); err != nil {
		t.Fatalf("UpdateVPNClient() error = %v", err)
	}
	if !n.Enabled() {
		t.Error("input network was mutated")
	}
	if api.updates[0].network.Enabled() {
		t.Error("expected submitted network to be disabled")
	}
}

func TestPauseResume_NoopWhenAlreadyInState(t *testing.T) {
	t.Run("pause disabled client", func(t *testing.T) {
		api := &fakeAPI{networks: []unifi.Network{
			{"_id": "1", "name": "MyVPN", "purpose": "vpn-client", "enabled": false},
		}}
		result, err := NewController(api, nil).Pause(context.Background(), "")
		if err != nil {
			t.Fatalf("Pause() error = %v", err)
		}
		if result.Changed {
			t.Error("expected Changed = false")
		}
		if len(api.updates) != 0 {
			t.Errorf("expected no write, got %d", len(api.updates))
		}
	})

	t.Run("resume enabled client", func(t *testing.T) {
		api := &fakeAPI{networks: []unifi.Network{
			{"_id": "1", "name": "MyVPN", "purpose": "vpn-client", "enabled": true},
		}}
		result, err := NewController(api, nil).Resume(context.Background(), "myvpn")
		if err != nil {
			t.Fatalf("Resume() error = %v", err)
		}
		if result.Changed || !result.Enabled {
			t.Errorf("unexpected result: %+v", result)
		}
		if len(api.updates) != 0 {
			t.Errorf("expected no write, got %d", len(api.updates))
		}
	})

	t.Run("missing enabled counts as disabled", func(t *testing.T) {
		api := &fakeAPI{networks: []unifi.Network{
			{"_id": "1", "name": "MyVPN", "purpose": "vpn-client"},
		}}
		if _, err := NewController(api, nil).Pause(context.Background(), ""); err != nil {
			t.Fatalf("Pause() error = %v", err)
		}
		if len(api.updates) != 0 {
			t.Errorf("expected no write, got %d", len(api.updates))
		}
	})
}

func TestResume_DefaultPreservesFields(t *testing.T) {
	api := &fakeAPI{networks: []unifi.Network{
		{"name": "WAN", "purpose": "wan", "enabled": true},
		{"_id": "abc", "name": "MyVPN", "purpose": "vpn-client", "enabled": false, "wireguard_id": json.Number("7")},
	}}
	c := NewController(api, nil)

	n, found, err := c.FindVPNClient(context.Background(), "")
	if err != nil || !found {
		t.Fatalf("FindVPNClient() = %v, %v, %v", n, found, err)
	}
	if n.Name() != "MyVPN" {
		t.Errorf("FindVPNClient() = %q, want MyVPN", n.Name())
	}

	result, err := c.Resume(context.Background(), "")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if !result.Changed || result.Name != "MyVPN" {
		t.Errorf("unexpected result: %+v", result)
	}

	if len(api.updates) != 1 {
		t.Fatalf("expected exactly one update, got %d", len(api.updates))
	}
	got := api.updates[0]
	want := unifi.Network{"_id": "abc", "name": "MyVPN", "purpose": "vpn-client", "enabled": true, "wireguard_id": json.Number("7")}
	if got.id != "abc" {
		t.Errorf("update id = %q, want abc", got.id)
	}
	if !reflect.DeepEqual(got.network, want) {
		t.Errorf("update body = %v, want %v", got.network, want)
	}
}

func TestPause_NotFound(t *testing.T) {
	api := &fakeAPI{networks: []unifi.Network{{"_id": "1", "name": "LAN"}}}
	_, err := NewController(api, nil).Pause(context.Background(), "")
	if !errors.Is(err, ErrVPNClientNotFound) {
		t.Errorf("expected ErrVPNClientNotFound, got %v", err)
	}
}

func TestPause_UpdateFailure(t *testing.T) {
	api := &fakeAPI{
		networks:  []unifi.Network{{"_id": "1", "name": "MyVPN", "purpose": "vpn-client", "enabled": true}},
		updateErr: &unifi.APIError{Op: "update network configuration", StatusCode: 500},
	}
	_, err := NewController(api, nil).Pause(context.Background(), "")

	var apiErr *unifi.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Errorf("expected wrapped APIError 500, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	c := NewController(&fakeAPI{networks: sampleNetworks()}, nil)
	ctx := context.Background()

	t.Run("all clients", func(t *testing.T) {
		result, err := c.Status(ctx, "")
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		b, err := json.Marshal(result)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		want := `{"vpn_clients":[{"name":"Home-VPN","enabled":true,"type":"openvpn","id":"3"},{"name":"Surfshark-VPN","enabled":false,"type":"wireguard","id":"4"}]}`
		if string(b) != want {
			t.Errorf("Status JSON = %s, want %s", b, want)
		}
	})

	t.Run("named client", func(t *testing.T) {
		result, err := c.Status(ctx, "home")
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		b, _ := json.Marshal(result)
		want := `{"name":"Home-VPN","enabled":true,"type":"openvpn","id":"3"}`
		if string(b) != want {
			t.Errorf("Status JSON = %s, want %s", b, want)
		}
	})

	t.Run("named client not found", func(t *testing.T) {
		result, err := c.Status(ctx, "Proton")
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if result.Found() {
			t.Error("expected Found() = false")
		}
		b, _ := json.Marshal(result)
		want := `{"error":"VPN client \"Proton\" not found"}`
		if string(b) != want {
			t.Errorf("Status JSON = %s, want %s", b, want)
		}
	})

	t.Run("no clients renders empty list", func(t *testing.T) {
		empty := NewController(&fakeAPI{}, nil)
		result, err := empty.Status(ctx, "")
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		b, _ := json.Marshal(result)
		if string(b) != `{"vpn_clients":[]}` {
			t.Errorf("Status JSON = %s", b)
		}
	})
}

func TestSummarize_Defaults(t *testing.T) {
	got := Summarize(unifi.Network{"name": "openvpn"})
	want := ClientStatus{Name: "openvpn", Enabled: false, Type: "Unknown", ID: "Unknown"}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}

// TestPause_PersistentServerErrorAgainstController drives the real session
// against a controller that keeps failing the update.
func TestPause_PersistentServerErrorAgainstController(t *testing.T) {
	var puts int32
	mux := http.NewServeMux()
	mux.HandleFunc("/proxy/network/api/s/default/rest/networkconf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"_id":"v1","name":"MyVPN","purpose":"vpn-client","enabled":true}]}`)
	})
	mux.HandleFunc("/proxy/network/api/s/default/rest/networkconf/v1", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&puts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	session, err := unifi.NewClient(unifi.Options{
		BaseURL:      server.URL,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = NewController(session, nil).Pause(context.Background(), "")
	if err == nil {
		t.Fatal("expected failure after retries")
	}
	if got := atomic.LoadInt32(&puts); got != 4 {
		t.Errorf("expected 4 update attempts (1 + 3 retries), got %d", got)
	}
}
