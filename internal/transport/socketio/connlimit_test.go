package socketio

import (
	"testing"
)

func TestConnectionLimiterLoopbackNeverCounted(t *testing.T) {
	cl := NewConnectionLimiter(1)

	addrs := []string{"127.0.0.1", "127.0.0.1:52000", "::1", "[::1]:52001", "::ffff:127.0.0.1", "localhost"}
	for i, addr := range addrs {
		if evicted := cl.Add("local-"+string(rune('a'+i)), addr); evicted != "" {
			t.Errorf("loopback client %s should not evict anyone, got %s", addr, evicted)
		}
	}

	total, external := cl.Counts()
	if total != len(addrs) || external != 0 {
		t.Errorf("expected %d total and 0 external, got %d and %d", len(addrs), total, external)
	}
}

func TestConnectionLimiterEvictsOldestExternal(t *testing.T) {
	cl := NewConnectionLimiter(2)

	if ev := cl.Add("ext-1", "192.168.1.10:4000"); ev != "" {
		t.Errorf("first external client should fit, evicted %s", ev)
	}
	if ev := cl.Add("ext-2", "192.168.1.11"); ev != "" {
		t.Errorf("second external client should fit, evicted %s", ev)
	}
	if ev := cl.Add("ext-3", "192.168.1.12"); ev != "ext-1" {
		t.Errorf("expected ext-1 to be evicted, got %q", ev)
	}

	total, external := cl.Counts()
	if total != 2 || external != 2 {
		t.Errorf("expected 2 tracked clients, got %d/%d", total, external)
	}
}

func TestConnectionLimiterDuplicateAddIgnored(t *testing.T) {
	cl := NewConnectionLimiter(1)

	cl.Add("ext-1", "10.0.0.1")
	if ev := cl.Add("ext-1", "10.0.0.1"); ev != "" {
		t.Errorf("re-adding a client should not evict, got %s", ev)
	}
	if _, external := cl.Counts(); external != 1 {
		t.Errorf("expected 1 external client, got %d", external)
	}
}

func TestConnectionLimiterRemoveFreesSlot(t *testing.T) {
	cl := NewConnectionLimiter(1)

	cl.Add("ext-1", "10.0.0.1")
	cl.Remove("ext-1")
	if ev := cl.Add("ext-2", "10.0.0.2"); ev != "" {
		t.Errorf("slot should be free after Remove, evicted %s", ev)
	}

	cl.Add("local", "127.0.0.1")
	cl.Remove("local")
	cl.Remove("unknown")
	if total, external := cl.Counts(); total != 1 || external != 1 {
		t.Errorf("expected only ext-2 to remain, got %d/%d", total, external)
	}
}

func TestConnectionLimiterMinimumOne(t *testing.T) {
	cl := NewConnectionLimiter(0)

	if ev := cl.Add("ext-1", "10.0.0.1"); ev != "" {
		t.Errorf("limit should be at least one, evicted %s", ev)
	}
}
