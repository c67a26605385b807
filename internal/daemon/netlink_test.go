package daemon

import (
	"context"
	"testing"

	"github.com/pilebones/go-udev/netlink"

	"platter/internal/logging"
)

func TestDiscMatcher(t *testing.T) {
	matcher := discMatcher()

	discEnv := map[string]string{
		"SUBSYSTEM":      "block",
		"ID_CDROM":       "1",
		"ID_CDROM_MEDIA": "1",
	}
	if !matcher.Evaluate(netlink.UEvent{Action: netlink.CHANGE, Env: discEnv}) {
		t.Error("expected matcher to accept a media change event")
	}
	if !matcher.Evaluate(netlink.UEvent{Action: netlink.ADD, Env: discEnv}) {
		t.Error("expected matcher to accept a device add event")
	}

	noMedia := map[string]string{
		"SUBSYSTEM": "block",
		"ID_CDROM":  "1",
	}
	if matcher.Evaluate(netlink.UEvent{Action: netlink.CHANGE, Env: noMedia}) {
		t.Error("expected matcher to reject an event without media present")
	}

	if matcher.Evaluate(netlink.UEvent{Action: netlink.REMOVE, Env: discEnv}) {
		t.Error("expected matcher to reject a remove event")
	}
}

func TestHandleEventWakesPollers(t *testing.T) {
	var wakes int
	m := newNetlinkMonitor(logging.NewNop(), func() { wakes++ })

	m.handleEvent(netlink.UEvent{
		Action: netlink.CHANGE,
		Env:    map[string]string{"DEVNAME": "/dev/sr0"},
	})
	if wakes != 1 {
		t.Fatalf("wakes = %d, want 1", wakes)
	}

	// Drive slots are MakeMKV indexes, so events wake the pollers even
	// when no device name can be extracted.
	m.handleEvent(netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{}})
	if wakes != 2 {
		t.Fatalf("wakes = %d, want 2", wakes)
	}
}

func TestHandleEventWithNilWake(t *testing.T) {
	m := newNetlinkMonitor(logging.NewNop(), nil)
	m.handleEvent(netlink.UEvent{
		Action: netlink.CHANGE,
		Env:    map[string]string{"DEVNAME": "/dev/sr0"},
	})
}

func TestDeviceName(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "devname preferred",
			env:  map[string]string{"DEVNAME": "/dev/sr0", "DEVPATH": "/devices/pci0000:00/block/sr1"},
			want: "/dev/sr0",
		},
		{
			name: "devpath fallback",
			env:  map[string]string{"DEVPATH": "/devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sr0"},
			want: "/dev/sr0",
		},
		{
			name: "no device info",
			env:  map[string]string{},
			want: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := deviceName(netlink.UEvent{Env: tc.env})
			if got != tc.want {
				t.Fatalf("deviceName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNetlinkMonitorLifecycleSafety(t *testing.T) {
	t.Run("nil monitor", func(t *testing.T) {
		var m *netlinkMonitor
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start on nil monitor: %v", err)
		}
		m.Stop()
		if m.Running() {
			t.Error("nil monitor should not report running")
		}
	})

	t.Run("unstarted monitor", func(t *testing.T) {
		m := newNetlinkMonitor(logging.NewNop(), func() {})
		if m.Running() {
			t.Error("unstarted monitor should not report running")
		}
		m.Stop()
		m.Stop()
	})

	t.Run("start never hard-fails", func(t *testing.T) {
		m := newNetlinkMonitor(logging.NewNop(), func() {})
		// The uevent socket is usually unavailable in test environments;
		// connect failures must degrade to polling, not error.
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		m.Stop()
	})
}
