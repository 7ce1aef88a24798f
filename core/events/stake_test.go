package events

import (
	"testing"

	"tierstake/crypto"
)

func TestStakeEventAttributes(t *testing.T) {
	user := [20]byte{0x11}
	evt := StakeCompleted{User: user, Amount: 42, Tier: 1, TotalStaked: 100}.Event()
	if evt.Type != TypeStakeCompleted {
		t.Fatalf("unexpected type %s", evt.Type)
	}
	if got := evt.Attribute("user"); got != crypto.FromRaw(user).String() {
		t.Fatalf("unexpected user attribute %q", got)
	}
	if evt.Attribute("amount") != "42" || evt.Attribute("tier") != "1" || evt.Attribute("totalStaked") != "100" {
		t.Fatalf("unexpected attributes %v", evt.Attributes)
	}

	paused := StakePausedChanged{Paused: true, Timestamp: 7}.Event()
	if paused.Attribute("authority") != "" {
		t.Fatalf("zero address must render empty")
	}
	if paused.Attribute("paused") != "true" || paused.Attribute("timestamp") != "7" {
		t.Fatalf("unexpected attributes %v", paused.Attributes)
	}
}

func TestEventCloneIsIndependent(t *testing.T) {
	evt := StakeEscrowFunded{Amount: 5, NewBalance: 5}.Event()
	clone := evt.Clone()
	clone.Attributes["amount"] = "6"
	if evt.Attribute("amount") != "5" {
		t.Fatalf("clone shares attribute map")
	}
}

func TestBufferDrainsInOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(StakeEscrowFunded{Amount: 1})
	buf.Emit(nil)
	buf.Emit(StakeCompleted{Amount: 2})
	drained := buf.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 events, got %d", len(drained))
	}
	if drained[0].EventType() != TypeStakeEscrowFunded || drained[1].EventType() != TypeStakeCompleted {
		t.Fatalf("unexpected order")
	}
	if len(buf.Drain()) != 0 {
		t.Fatalf("buffer not emptied")
	}
}
