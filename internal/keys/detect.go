package keys

import (
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/host"

	"credvault/internal/crypto"
	"credvault/internal/domain"
)

// Capabilities are the host facts that decide the key strategy.
type Capabilities struct {
	OS             string
	Arch           string
	Virtualization string // e.g. "docker", "kvm"; empty on bare metal
	Guest          bool   // running as a virtualization guest
}

// HostCapabilities inspects the running host. Lookup failures fall back to
// what the Go runtime reports.
func HostCapabilities() Capabilities {
	caps := Capabilities{OS: runtime.GOOS, Arch: runtime.GOARCH}
	info, err := host.Info()
	if err != nil || info == nil {
		return caps
	}
	if info.OS != "" {
		caps.OS = info.OS
	}
	if info.KernelArch != "" {
		caps.Arch = info.KernelArch
	}
	caps.Virtualization = strings.ToLower(info.VirtualizationSystem)
	caps.Guest = info.VirtualizationRole == "guest"
	return caps
}

var (
	constrainedArch = map[string]bool{
		"386": true, "i386": true, "i686": true,
		"arm": true, "armv6l": true, "armv7l": true,
		"mips": true, "mipsle": true,
	}
	containerSystems = map[string]bool{
		"docker": true, "lxc": true, "podman": true, "openvz": true, "rkt": true,
	}
)

// Detect picks the strongest strategy the host supports:
//   - 32-bit hosts get the RSA fallback,
//   - container guests get X25519,
//   - everything else gets the hybrid ML-KEM-768 + X25519 scheme.
func Detect(caps Capabilities) domain.Strategy {
	switch {
	case constrainedArch[strings.ToLower(caps.Arch)]:
		return crypto.StrategyRSA
	case caps.Guest && containerSystems[caps.Virtualization]:
		return crypto.StrategyX25519
	default:
		return crypto.StrategyMLKEM
	}
}
