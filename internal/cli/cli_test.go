package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/homelab/infrabase/internal/domain"
	"github.com/jbweber/homelab/infrabase/internal/logging"
	"github.com/jbweber/homelab/infrabase/internal/repository"
	"github.com/jbweber/homelab/infrabase/internal/wgkeys"
)

type testEnv struct {
	t      *testing.T
	dir    string
	dbPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WIREGUARD_IPV4_START", "10.0.0.1")
	t.Setenv("WIREGUARD_IPV4_END", "10.0.0.10")
	t.Setenv("WIREGUARD_IPV6_START", "fd00::1")
	t.Setenv("WIREGUARD_IPV6_END", "fd00::ff")
	t.Setenv("DEFAULT_OWNER", "alice")
	t.Setenv("DEFAULT_SSH_PORT", "22")
	t.Setenv("DEFAULT_WIREGUARD_PORT", "51820")
	t.Setenv("WIREGUARD_PEERS_PATH_TEMPLATE", "")
	t.Setenv("INFRABASE_CONFIG", "")
	return &testEnv{t: t, dir: dir, dbPath: filepath.Join(dir, "infrabase.db")}
}

// run executes one command line against the environment's database
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	a := &app{}
	root := newRootCommand(a)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{
		"--config", filepath.Join(e.dir, "missing.env"),
		"--db", e.dbPath,
		"--log-level", "error",
	}, args...))

	err := root.ExecuteContext(context.Background())
	require.NoError(e.t, a.close())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "infrabase %s", strings.Join(args, " "))
	return out
}

// seedTwoMachines adds a and b, both reachable on the public network
func (e *testEnv) seedTwoMachines() {
	e.mustRun("add", "a")
	e.mustRun("add", "b", "--ssh-user", "root")
	e.mustRun("address", "add", "a", "public", "192.0.2.1")
	e.mustRun("address", "add", "b", "public", "192.0.2.2")
	e.mustRun("link", "set", "public", "public", "10")
}

func TestAddAndList(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("add", "a")
	assert.Equal(t, "a\t10.0.0.1\tfd00::1\n", out)

	out = env.mustRun("add", "b", "--wireguard-ipv4-address", "10.0.0.5", "--owner", "bob", "--provider-reference", "srv-1")
	assert.Equal(t, "b\t10.0.0.5\tfd00::2\n", out)

	out = env.mustRun("ls")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "HOSTNAME")
	assert.Contains(t, lines[1], "alice")
	assert.Contains(t, lines[1], "10.0.0.1")
	assert.Contains(t, lines[2], "bob")
	assert.Contains(t, lines[2], "srv-1")
}

func TestAddWithImportedKey(t *testing.T) {
	env := newTestEnv(t)
	kp, err := wgkeys.Generate()
	require.NoError(t, err)

	env.mustRun("add", "a", "--wireguard-private-key", kp.PrivateKey)
	out := env.mustRun("wg-privkey", "a")
	assert.Equal(t, kp.PrivateKey+"\n", out)
}

func TestAddRejectsUnsafeHostname(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("add", "../../etc/x")
	assert.ErrorIs(t, err, repository.ErrInvalidEntity)

	out := env.mustRun("ls")
	assert.NotContains(t, out, "etc")
}

func TestAddDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "a")

	_, err := env.run("add", "a")
	assert.Error(t, err)
}

func TestAddInvalidAddressFlag(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("add", "a", "--wireguard-ipv4-address", "not-an-ip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--wireguard-ipv4-address")
}

func TestRemoveMachine(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "a")

	env.mustRun("rm", "a")
	out := env.mustRun("ls")
	assert.NotContains(t, out, "alice")

	_, err := env.run("rm", "a")
	assert.ErrorIs(t, err, domain.ErrNoSuchMachine)
}

func TestAddresses(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "a")

	env.mustRun("address", "add", "a", "lan", "192.168.1.10", "--ssh-port", "2222")
	out := env.mustRun("address", "ls")
	assert.Contains(t, out, "192.168.1.10")
	assert.Contains(t, out, "2222")
	assert.Contains(t, out, "51820")

	out = env.mustRun("network", "ls")
	assert.Contains(t, out, "lan")

	env.mustRun("address", "rm", "a", "lan", "192.168.1.10")
	_, err := env.run("address", "rm", "a", "lan", "192.168.1.10")
	assert.ErrorIs(t, err, domain.ErrNoSuchAddress)

	_, err = env.run("address", "add", "nope", "lan", "192.168.1.11")
	assert.ErrorIs(t, err, domain.ErrNoSuchMachine)
}

func TestNetworksAndLinks(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("network", "add", "vpn")
	env.mustRun("link", "set", "lan", "public", "20")
	env.mustRun("link", "set", "lan", "lan", "10")

	out := env.mustRun("network", "ls")
	assert.Contains(t, out, "vpn")
	assert.Contains(t, out, "public")

	out = env.mustRun("link", "ls")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "10")
	assert.Contains(t, lines[2], "public")

	env.mustRun("link", "rm", "lan", "public")
	_, err := env.run("link", "rm", "lan", "public")
	assert.Error(t, err)

	_, err = env.run("link", "set", "lan", "public", "high")
	assert.Error(t, err)
}

func TestProviders(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("provider", "add", "hetzner", "--email", "ops@example.com")
	assert.Equal(t, "1\n", out)
	env.mustRun("add", "a", "--provider", "1")

	out = env.mustRun("provider", "ls")
	assert.Contains(t, out, "hetzner")
	assert.Contains(t, out, "ops@example.com")
}

func TestKeepalives(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "a")
	env.mustRun("add", "b")

	env.mustRun("wg-keepalive", "set", "a", "b", "25")
	out := env.mustRun("wg-keepalive", "ls")
	assert.Contains(t, out, "25")

	_, err := env.run("wg-keepalive", "set", "a", "nope", "25")
	assert.ErrorIs(t, err, domain.ErrNoSuchMachine)

	env.mustRun("wg-keepalive", "rm", "a", "b")
	_, err = env.run("wg-keepalive", "rm", "a", "b")
	assert.Error(t, err)
}

func TestWireguardPrivkey(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "a")

	out := env.mustRun("wg-privkey", "a")
	assert.Len(t, strings.TrimSpace(out), 44)

	_, err := env.run("wg-privkey", "nope")
	assert.ErrorIs(t, err, domain.ErrNoSuchMachine)
}

func TestSSHConfig(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoMachines()

	out := env.mustRun("ssh-config", "--for", "a")
	assert.Equal(t, "# infrabase-generated SSH config for a\n\n"+
		"# owner: alice\n"+
		"Host b\n"+
		"  HostName 192.0.2.2\n"+
		"  Port 22\n"+
		"  User root\n"+
		"\n", out)

	_, err := env.run("ssh-config")
	assert.Error(t, err)

	_, err = env.run("ssh-config", "--for", "nope")
	assert.ErrorIs(t, err, domain.ErrNoSuchMachine)
}

func TestWgQuick(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoMachines()

	out := env.mustRun("wg-quick", "--for", "a")
	assert.Contains(t, out, "[Interface]\n")
	assert.Contains(t, out, "Address = 10.0.0.1/32, fd00::1/128\n")
	assert.Contains(t, out, "ListenPort = 51820\n")
	assert.Contains(t, out, "# b\n[Peer]\n")
	assert.Contains(t, out, "AllowedIPs = 10.0.0.2/32, fd00::2/128\n")
	assert.Contains(t, out, "Endpoint = 192.0.2.2:51820\n")
}

func TestWriteWireguardPeers(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoMachines()

	template := filepath.Join(env.dir, "peers", "{hostname}.nix")
	env.mustRun("write-wg-peers", "--template", template)

	for _, host := range []string{"a", "b"} {
		content, err := os.ReadFile(filepath.Join(env.dir, "peers", host+".nix"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(content), "[\n"))
	}

	_, err := env.run("write-wg-peers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WIREGUARD_PEERS_PATH_TEMPLATE")

	_, err = env.run("write-wg-peers", "--template", filepath.Join(env.dir, "{name}.nix"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allowed tokens are")
}

func TestNixDataAndExport(t *testing.T) {
	env := newTestEnv(t)
	env.seedTwoMachines()

	out := env.mustRun("nix-data")
	assert.True(t, strings.HasPrefix(out, "{\n"))
	assert.Contains(t, out, `"a" = {`)

	out = env.mustRun("export")
	assert.Contains(t, out, "hostname: a")
	assert.Contains(t, out, "public_key:")
	assert.NotContains(t, out, "private")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, logging.Discard()) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
