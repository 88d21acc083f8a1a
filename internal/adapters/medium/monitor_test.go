package medium

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordCommands(t *testing.T, fail string) *[]string {
	t.Helper()
	var got []string
	orig := runCommand
	runCommand = func(name string, args ...string) error {
		line := name + " " + strings.Join(args, " ")
		got = append(got, line)
		if fail != "" && strings.Contains(line, fail) {
			return errors.New("boom")
		}
		return nil
	}
	t.Cleanup(func() { runCommand = orig })
	return &got
}

func TestEnableMonitorMode(t *testing.T) {
	got := recordCommands(t, "")
	require.NoError(t, EnableMonitorMode("wlan1", 11))
	assert.Equal(t, []string{
		"ip link set wlan1 down",
		"iw wlan1 set type monitor",
		"ip link set wlan1 up",
		"iw wlan1 set channel 11",
	}, *got)
}

func TestEnableMonitorMode_Busy(t *testing.T) {
	got := recordCommands(t, "type monitor")
	assert.Error(t, EnableMonitorMode("wlan1", 11))
	assert.Len(t, *got, 2)
}

func TestDisableMonitorMode(t *testing.T) {
	got := recordCommands(t, "managed")
	DisableMonitorMode("wlan1")
	assert.Equal(t, []string{
		"ip link set wlan1 down",
		"iw wlan1 set type managed",
		"ip link set wlan1 up",
	}, *got)
}

func TestNetworkServices(t *testing.T) {
	got := recordCommands(t, "start wpa_supplicant")
	require.NoError(t, KillConflictingProcesses())
	assert.Error(t, RestoreNetworkServices())
	assert.Equal(t, []string{
		"systemctl stop NetworkManager",
		"systemctl stop wpa_supplicant",
		"systemctl start wpa_supplicant",
		"systemctl start NetworkManager",
	}, *got)
	assert.Error(t, SetInterfaceChannel("wlan1", 0))
}
