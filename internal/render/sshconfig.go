package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jbweber/homelab/infrabase/internal/connectivity"
	"github.com/jbweber/homelab/infrabase/internal/repository"
)

// SSHConfig writes an OpenSSH client config for forHostname with one Host
// block per reachable machine
func SSHConfig(w io.Writer, forHostname string, snapshot *repository.Snapshot) error {
	targets, err := connectivity.SelectSSHTargets(snapshot.Machines, snapshot.Index, forHostname)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# infrabase-generated SSH config for %s\n\n", forHostname)
	for _, t := range connectivity.SortedSSHTargets(targets) {
		fmt.Fprintf(&buf, "# owner: %s\n", t.Owner)
		fmt.Fprintf(&buf, "Host %s\n", t.Hostname)
		fmt.Fprintf(&buf, "  HostName %s\n", t.Address)
		fmt.Fprintf(&buf, "  Port %d\n", t.Port)
		if t.User != nil && *t.User != "" {
			fmt.Fprintf(&buf, "  User %s\n", *t.User)
		}
		buf.WriteString("\n")
	}
	return flush(w, &buf)
}
