package core

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestLogger() logging.Logger {
	return logging.NewLogrusLogger(false)
}

func TestPortConnectTwiceFails(t *testing.T) {
	log := newTestLogger()
	a := NewPort("a", log)
	b := NewPort("b", log)
	c := NewPort("c", log)

	if err := a.Connect(b); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if err := a.Connect(c); err == nil {
		t.Fatalf("expected error re-wiring an already-connected port")
	}
}

func TestPortDelayedTransferPreservesFIFO(t *testing.T) {
	log := newTestLogger()
	a := NewPort("a", log)
	b := NewPort("b", log)
	if err := a.Connect(b); err != nil {
		t.Fatalf("connect: %v", err)
	}

	msg1 := types.Message{Kind: types.KindDirect, ProtocolVersion: types.CurrentProtocolVersion, Payload: types.DirectPayload{Data: []float64{1}}}
	msg2 := types.Message{Kind: types.KindDirect, ProtocolVersion: types.CurrentProtocolVersion, Payload: types.DirectPayload{Data: []float64{2}}}

	if err := a.PushOutgoing(msg1); err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if err := a.PushOutgoing(msg2); err != nil {
		t.Fatalf("push 2: %v", err)
	}

	delay := delayFor(msg1, baseOutgoingDelay) + delayFor(msg1, baseIncomingDelay)
	var got []types.Message
	for i := 0; i < delay+4; i++ {
		a.Tick()
		b.Tick()
		if b.HasIncoming() {
			got = append(got, b.PopIncoming())
		}
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 delivered messages, got %d", len(got))
	}
	d0 := got[0].Payload.(types.DirectPayload).Data[0]
	d1 := got[1].Payload.(types.DirectPayload).Data[0]
	if d0 != 1 || d1 != 2 {
		t.Fatalf("FIFO order violated: got %v then %v", d0, d1)
	}
}

func TestLeastLoadedUpPort(t *testing.T) {
	log := newTestLogger()
	base := NewBase(0, 4, "test", log)

	msg := types.Message{Kind: types.KindBroadcast, ProtocolVersion: types.CurrentProtocolVersion, Payload: types.BroadcastPayload{Data: []float64{1, 2, 3}}}
	if err := base.UpPort(1).PushOutgoing(msg); err != nil {
		t.Fatalf("push: %v", err)
	}

	if got := base.LeastLoadedUpPort(); got != 0 {
		t.Fatalf("expected up-port 0 (least loaded), got %d", got)
	}
}
