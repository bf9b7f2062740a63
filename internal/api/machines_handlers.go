package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jbweber/homelab/infrabase/internal/connectivity"
	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/render"
)

// MachineResponse is the public view of a machine. Private keys are never served.
type MachineResponse struct {
	Hostname             string            `json:"hostname"`
	Owner                string            `json:"owner"`
	AddedTime            time.Time         `json:"added_time"`
	ProviderID           *int64            `json:"provider_id,omitempty"`
	ProviderReference    *string           `json:"provider_reference,omitempty"`
	SSHPort              *int              `json:"ssh_port,omitempty"`
	SSHUser              *string           `json:"ssh_user,omitempty"`
	WireguardIPv4Address string            `json:"wireguard_ipv4_address,omitempty"`
	WireguardIPv6Address string            `json:"wireguard_ipv6_address,omitempty"`
	WireguardPort        *int              `json:"wireguard_port,omitempty"`
	WireguardPublicKey   *string           `json:"wireguard_public_key,omitempty"`
	Networks             []string          `json:"networks"`
	Addresses            []AddressResponse `json:"addresses"`
}

// AddressResponse is one address of a machine
type AddressResponse struct {
	Network       string `json:"network"`
	Address       string `json:"address"`
	SSHPort       *int   `json:"ssh_port,omitempty"`
	WireguardPort *int   `json:"wireguard_port,omitempty"`
}

// PeerResponse is one WireGuard peer of a machine
type PeerResponse struct {
	Hostname   string   `json:"hostname"`
	PublicKey  string   `json:"public_key"`
	AllowedIPs []string `json:"allowed_ips"`
	Endpoint   string   `json:"endpoint,omitempty"`
	Keepalive  *int     `json:"persistent_keepalive,omitempty"`
}

func newMachineResponse(m domain.Machine) MachineResponse {
	resp := MachineResponse{
		Hostname:           m.Hostname,
		Owner:              m.Owner,
		AddedTime:          m.AddedTime,
		ProviderID:         m.ProviderID,
		ProviderReference:  m.ProviderReference,
		SSHPort:            m.SSHPort,
		SSHUser:            m.SSHUser,
		WireguardPort:      m.WireguardPort,
		WireguardPublicKey: m.WireguardPublicKey,
		Networks:           []string{},
		Addresses:          []AddressResponse{},
	}
	if m.WireguardIPv4Address.IsValid() {
		resp.WireguardIPv4Address = m.WireguardIPv4Address.String()
	}
	if m.WireguardIPv6Address.IsValid() {
		resp.WireguardIPv6Address = m.WireguardIPv6Address.String()
	}
	resp.Networks = append(resp.Networks, m.Networks...)
	for _, a := range m.Addresses {
		resp.Addresses = append(resp.Addresses, AddressResponse{
			Network:       a.Network,
			Address:       a.Address.String(),
			SSHPort:       a.SSHPort,
			WireguardPort: a.WireguardPort,
		})
	}
	return resp
}

// listMachinesHandler handles GET /api/v0/machines
func (a *API) listMachinesHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.source.Snapshot(r.Context())
	if err != nil {
		writeError(w, a.log, err)
		return
	}

	response := make([]MachineResponse, 0, len(snapshot.Machines))
	for _, m := range snapshot.Machines {
		response = append(response, newMachineResponse(m))
	}
	writeJSON(w, a.log, http.StatusOK, response)
}

// getMachineHandler handles GET /api/v0/machines/{hostname}
func (a *API) getMachineHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.source.Snapshot(r.Context())
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	m, err := snapshot.Machine(chi.URLParam(r, "hostname"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeJSON(w, a.log, http.StatusOK, newMachineResponse(m))
}

// sshConfigHandler handles GET /api/v0/machines/{hostname}/ssh-config
func (a *API) sshConfigHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.source.Snapshot(r.Context())
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	var buf bytes.Buffer
	if err := render.SSHConfig(&buf, chi.URLParam(r, "hostname"), snapshot); err != nil {
		writeError(w, a.log, err)
		return
	}
	writeText(w, a.log, "text/plain; charset=utf-8", buf.Bytes())
}

// wgQuickHandler handles GET /api/v0/machines/{hostname}/wg-quick. The
// private key is redacted; it is only available through the CLI.
func (a *API) wgQuickHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.source.Snapshot(r.Context())
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	var buf bytes.Buffer
	if err := render.WgQuick(&buf, chi.URLParam(r, "hostname"), snapshot, render.WithRedactedPrivateKey()); err != nil {
		writeError(w, a.log, err)
		return
	}
	writeText(w, a.log, "text/plain; charset=utf-8", buf.Bytes())
}

// peersHandler handles GET /api/v0/machines/{hostname}/peers
func (a *API) peersHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.source.Snapshot(r.Context())
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	peers, err := connectivity.BuildPeers(snapshot.Machines, snapshot.Index, snapshot.KeepaliveLookup(), chi.URLParam(r, "hostname"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}

	response := make([]PeerResponse, 0, len(peers))
	for _, p := range peers {
		pr := PeerResponse{
			Hostname:  p.Hostname,
			PublicKey: p.PublicKey,
			Keepalive: p.Keepalive,
		}
		for _, addr := range p.Addresses {
			pr.AllowedIPs = append(pr.AllowedIPs, render.HostPrefix(addr))
		}
		if p.Endpoint != nil {
			pr.Endpoint = p.Endpoint.String()
		}
		response = append(response, pr)
	}
	writeJSON(w, a.log, http.StatusOK, response)
}
