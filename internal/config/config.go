package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/jbweber/homelab/infrabase/internal/datastore"
)

// Configuration keys. They are read from the environment and from the
// optional env-format config file using the same names.
const (
	KeyDatabasePath           = "DATABASE_PATH"
	KeyWireguardIPv4Start     = "WIREGUARD_IPV4_START"
	KeyWireguardIPv4End       = "WIREGUARD_IPV4_END"
	KeyWireguardIPv6Start     = "WIREGUARD_IPV6_START"
	KeyWireguardIPv6End       = "WIREGUARD_IPV6_END"
	KeyDefaultSSHPort         = "DEFAULT_SSH_PORT"
	KeyDefaultSSHUser         = "DEFAULT_SSH_USER"
	KeyDefaultWireguardPort   = "DEFAULT_WIREGUARD_PORT"
	KeyDefaultOwner           = "DEFAULT_OWNER"
	KeyDefaultProvider        = "DEFAULT_PROVIDER"
	KeyWireguardPeersTemplate = "WIREGUARD_PEERS_PATH_TEMPLATE"
	KeyLogLevel               = "LOG_LEVEL"
	KeyLogFormat              = "LOG_FORMAT"
	KeyListenAddress          = "LISTEN_ADDRESS"

	// EnvConfigFile names an alternative config file
	EnvConfigFile = "INFRABASE_CONFIG"
)

// Settings holds the fully resolved configuration of one invocation.
// Optional values are nil or zero when unset.
type Settings struct {
	DatabasePath string

	WireguardIPv4Start netip.Addr
	WireguardIPv4End   netip.Addr
	WireguardIPv6Start netip.Addr
	WireguardIPv6End   netip.Addr

	DefaultSSHPort       *int
	DefaultSSHUser       string
	DefaultWireguardPort *int
	DefaultOwner         string
	DefaultProvider      *int64

	WireguardPeersPathTemplate string

	LogLevel      string
	LogFormat     string
	ListenAddress string
}

// NewSettings creates Settings with default values
func NewSettings() *Settings {
	return &Settings{
		DatabasePath:  "~/.local/share/infrabase/infrabase.db",
		LogLevel:      "warn",
		LogFormat:     "text",
		ListenAddress: "127.0.0.1:8080",
	}
}

// DefaultConfigFile returns $XDG_CONFIG_HOME/infrabase/env
func DefaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "infrabase", "env")
}

// Load resolves Settings from the config file at path and the environment.
// Environment variables win over the file. A missing file is not an error.
// When path is empty, INFRABASE_CONFIG and then DefaultConfigFile are used.
func Load(v *viper.Viper, path string) (*Settings, error) {
	defaults := NewSettings()
	v.SetDefault(KeyDatabasePath, defaults.DatabasePath)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyLogFormat, defaults.LogFormat)
	v.SetDefault(KeyListenAddress, defaults.ListenAddress)
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		path = DefaultConfigFile()
	}
	if path != "" {
		if err := readConfigFile(v, path); err != nil {
			return nil, err
		}
	}

	s := &Settings{
		DatabasePath:               v.GetString(KeyDatabasePath),
		DefaultSSHUser:             v.GetString(KeyDefaultSSHUser),
		DefaultOwner:               v.GetString(KeyDefaultOwner),
		WireguardPeersPathTemplate: v.GetString(KeyWireguardPeersTemplate),
		LogLevel:                   v.GetString(KeyLogLevel),
		LogFormat:                  v.GetString(KeyLogFormat),
		ListenAddress:              v.GetString(KeyListenAddress),
	}

	var err error
	if s.WireguardIPv4Start, err = parseAddr(v, KeyWireguardIPv4Start, true); err != nil {
		return nil, err
	}
	if s.WireguardIPv4End, err = parseAddr(v, KeyWireguardIPv4End, true); err != nil {
		return nil, err
	}
	if s.WireguardIPv6Start, err = parseAddr(v, KeyWireguardIPv6Start, false); err != nil {
		return nil, err
	}
	if s.WireguardIPv6End, err = parseAddr(v, KeyWireguardIPv6End, false); err != nil {
		return nil, err
	}
	if s.DefaultSSHPort, err = parsePort(v, KeyDefaultSSHPort); err != nil {
		return nil, err
	}
	if s.DefaultWireguardPort, err = parsePort(v, KeyDefaultWireguardPort); err != nil {
		return nil, err
	}
	if raw := strings.TrimSpace(v.GetString(KeyDefaultProvider)); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("could not parse %s %q as an integer: %w", KeyDefaultProvider, raw, err)
		}
		s.DefaultProvider = &id
	}

	return s, nil
}

// IPv4Range returns the WireGuard IPv4 allocation range
func (s *Settings) IPv4Range() (netip.Addr, netip.Addr, error) {
	return requireRange(s.WireguardIPv4Start, s.WireguardIPv4End, KeyWireguardIPv4Start, KeyWireguardIPv4End)
}

// IPv6Range returns the WireGuard IPv6 allocation range
func (s *Settings) IPv6Range() (netip.Addr, netip.Addr, error) {
	return requireRange(s.WireguardIPv6Start, s.WireguardIPv6End, KeyWireguardIPv6Start, KeyWireguardIPv6End)
}

// OpenDatabase creates the database directory if needed, opens the database
// and runs migrations
func (s *Settings) OpenDatabase() (*datastore.Datastore, error) {
	dbPath := expandPath(s.DatabasePath)

	// Ensure database directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	ds, err := datastore.Open(datastore.FileDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply performance optimizations
	OptimizeDatabaseConnection(ds.DB)

	if err := ApplyPragmaOptimizations(ds.DB); err != nil {
		ds.Close()
		return nil, fmt.Errorf("failed to apply performance optimizations: %w", err)
	}

	return ds, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	v.SetConfigFile(expandPath(path))
	if filepath.Ext(path) == "" {
		v.SetConfigType("env")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("unable to read configuration from %s: %w", path, err)
	}
	return nil
}

func parseAddr(v *viper.Viper, key string, want4 bool) (netip.Addr, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return netip.Addr{}, nil
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("could not parse %s %q as an address: %w", key, raw, err)
	}
	addr = addr.Unmap()
	if addr.Is4() != want4 {
		family := "IPv6"
		if want4 {
			family = "IPv4"
		}
		return netip.Addr{}, fmt.Errorf("%s %q is not an %s address", key, raw, family)
	}
	return addr, nil
}

func parsePort(v *viper.Viper, key string) (*int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return nil, nil
	}
	port, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s %q as a port: %w", key, raw, err)
	}
	p := int(port)
	return &p, nil
}

func requireRange(start, end netip.Addr, startKey, endKey string) (netip.Addr, netip.Addr, error) {
	if !start.IsValid() {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("%s is not set", startKey)
	}
	if !end.IsValid() {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("%s is not set", endKey)
	}
	return start, end, nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Return original path if we can't get home dir
		return path
	}

	return filepath.Join(homeDir, path[2:])
}
