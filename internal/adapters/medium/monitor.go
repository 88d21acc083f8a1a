package medium

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
)

// runCommand executes an external tool. Replaced in tests.
var runCommand = func(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		slog.Debug("Command failed", "cmd", name, "args", args, "output", string(out))
		return fmt.Errorf("%s %v: %w (%s)", name, args, err, out)
	}
	return nil
}

// KillConflictingProcesses stops NetworkManager and wpa_supplicant, which
// would otherwise take the interface back into managed mode.
func KillConflictingProcesses() error {
	for _, svc := range []string{"NetworkManager", "wpa_supplicant"} {
		if err := runCommand("systemctl", "stop", svc); err != nil {
			return err
		}
	}
	return nil
}

// RestoreNetworkServices restarts the services stopped by
// KillConflictingProcesses. It tries both even if one fails.
func RestoreNetworkServices() error {
	var lastErr error
	for _, svc := range []string{"wpa_supplicant", "NetworkManager"} {
		if err := runCommand("systemctl", "start", svc); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// SetInterfaceChannel tunes the interface.
func SetInterfaceChannel(iface string, channel uint8) error {
	if channel == 0 {
		return fmt.Errorf("invalid channel: %d", channel)
	}
	return runCommand("iw", iface, "set", "channel", strconv.Itoa(int(channel)))
}

// EnableMonitorMode puts the interface into monitor mode on channel.
func EnableMonitorMode(iface string, channel uint8) error {
	slog.Info("Enabling monitor mode", "interface", iface, "channel", channel)
	if err := runCommand("ip", "link", "set", iface, "down"); err != nil {
		return err
	}
	if err := runCommand("iw", iface, "set", "type", "monitor"); err != nil {
		slog.Warn("Could not set monitor mode; conflicting processes may hold the interface", "interface", iface)
		return err
	}
	if err := runCommand("ip", "link", "set", iface, "up"); err != nil {
		return err
	}
	return SetInterfaceChannel(iface, channel)
}

// DisableMonitorMode puts the interface back into managed mode. Failures are
// logged only.
func DisableMonitorMode(iface string) {
	slog.Info("Restoring managed mode", "interface", iface)
	for _, args := range [][]string{
		{"link", "set", iface, "down"},
		{"set", "type", "managed"},
		{"link", "set", iface, "up"},
	} {
		name := "ip"
		if args[0] == "set" {
			name = "iw"
			args = append([]string{iface}, args...)
		}
		if err := runCommand(name, args...); err != nil {
			slog.Warn("Restore step failed", "interface", iface, "error", err)
		}
	}
}
