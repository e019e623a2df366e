// Package hostinfo resolves the identity of the machine running this
// process: hostname, reachable addresses, platform and runtime. Resolution
// is best-effort; missing facts degrade to "unknown" rather than failing
// startup.
package hostinfo

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/kubegraph/kubegraph/pkg/model"
)

// Resolve gathers the host identity. The hostname override, when non-empty,
// replaces the OS-reported name. FirstSeen is stamped here and anchors the
// host identifier for the process lifetime.
func Resolve(logger *slog.Logger, hostnameOverride string) model.HostIdentity {
	id := model.HostIdentity{
		Hostname:  hostnameOverride,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Runtime:   runtime.Version(),
		FirstSeen: time.Now().UTC(),
	}

	if id.Hostname == "" {
		name, err := os.Hostname()
		if err != nil {
			logger.Warn("hostname unavailable", "error", err)
			name = "unknown"
		}
		id.Hostname = name
	}

	id.Addresses = localAddresses(logger)

	logger.Debug("resolved host identity",
		"hostname", id.Hostname,
		"addresses", id.Addresses,
		"platform", id.Platform,
	)

	return id
}

// localAddresses returns the non-loopback unicast IP addresses of all
// interfaces that are up.
func localAddresses(logger *slog.Logger) []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		logger.Warn("interface enumeration failed", "error", err)
		return nil
	}

	var out []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() {
				continue
			}
			out = append(out, ipnet.IP.String())
		}
	}
	return out
}
