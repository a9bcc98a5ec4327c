package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/artpar/swarmup/internal/shell/command"
)

// ErrNoAddress is returned when the host has no usable IPv4 address.
var ErrNoAddress = errors.New("no non-loopback IPv4 address")

// DefaultInstallScript is the upstream convenience installer of the engine.
const DefaultInstallScript = "https://get.docker.com"

// AddressFunc returns the address the swarm advertises.
type AddressFunc func() (string, error)

// PrimaryAddress returns the first non-loopback IPv4 address of the host.
func PrimaryAddress() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("list interface addresses: %w", err)
	}
	return firstIPv4(addrs)
}

func firstIPv4(addrs []net.Addr) (string, error) {
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.IsLinkLocalUnicast() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	return "", ErrNoAddress
}

// engineInstalled reports whether the docker CLI is on PATH.
func engineInstalled(runner command.Runner) bool {
	_, err := runner.LookPath("docker")
	return err == nil
}

// installCommand downloads and runs the installer script.
func installCommand(script string) command.Cmd {
	return command.Cmd{
		Name: "sh",
		Args: []string{"-c", fmt.Sprintf("curl -fsSL %s | sh", script)},
	}
}

func installEngine(ctx context.Context, runner command.Runner, script string) error {
	_, err := runner.Run(ctx, installCommand(script))
	return err
}
