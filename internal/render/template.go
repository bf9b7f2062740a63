package render

import (
	"fmt"
	"regexp"

	"github.com/jbweber/homelab/infrabase/internal/domain"
)

var templateToken = regexp.MustCompile(`\{[^{}]*\}`)

// PeersPath expands the per-machine peers file template. Allowed tokens are
// {hostname}, {wireguard_ipv4_address} and {wireguard_ipv6_address}.
func PeersPath(template string, m domain.Machine) (string, error) {
	if template == "" {
		return "", fmt.Errorf("the peers path template is empty")
	}

	var badToken string
	path := templateToken.ReplaceAllStringFunc(template, func(token string) string {
		switch token {
		case "{hostname}":
			return m.Hostname
		case "{wireguard_ipv4_address}":
			return addrOrEmpty(m.WireguardIPv4Address.String(), m.WireguardIPv4Address.IsValid())
		case "{wireguard_ipv6_address}":
			return addrOrEmpty(m.WireguardIPv6Address.String(), m.WireguardIPv6Address.IsValid())
		}
		if badToken == "" {
			badToken = token
		}
		return token
	})
	if badToken != "" {
		return "", fmt.Errorf("bad token %s in peers path template: allowed tokens are {hostname}, {wireguard_ipv4_address} and {wireguard_ipv6_address}", badToken)
	}
	return path, nil
}

func addrOrEmpty(s string, ok bool) string {
	if !ok {
		return ""
	}
	return s
}
