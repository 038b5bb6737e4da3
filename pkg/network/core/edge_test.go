package core

import (
	"testing"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// wireEdgeStub connects edge down-port `local` directly to a bare peer
// port, standing in for an endpoint, so Edge's dispatch can be tested
// in isolation from the rest of the tree.
func wireEdgeStub(t *testing.T, e *Edge, local int) *Port {
	t.Helper()
	peer := NewPort("stub", newTestLogger())
	if err := e.DownPort(local).Connect(peer); err != nil {
		t.Fatalf("wire stub: %v", err)
	}
	return peer
}

func tickUntilIdle(t *testing.T, ticks int, fns ...func() error) {
	t.Helper()
	for i := 0; i < ticks; i++ {
		for _, f := range fns {
			if err := f(); err != nil {
				t.Fatalf("tick %d: %v", i, err)
			}
		}
	}
}

func TestEdgeOwnsAndLocalIndex(t *testing.T) {
	e := NewEdge(1, 4, 8, true, newTestLogger())
	if !e.Owns(2) || !e.Owns(3) {
		t.Fatalf("edge 1 should own endpoints 2,3 for k=4")
	}
	if e.Owns(0) || e.Owns(4) {
		t.Fatalf("edge 1 should not own endpoints 0 or 4")
	}
	off, ok := e.LocalIndex(3)
	if !ok || off != 1 {
		t.Fatalf("expected local index 1 for endpoint 3, got %d (ok=%v)", off, ok)
	}
}

func TestEdgeDirectMessageRoutedToLocalEndpoint(t *testing.T) {
	log := newTestLogger()
	e := NewEdge(0, 4, 8, true, log)
	dst := wireEdgeStub(t, e, 1) // owns endpoints 0,1
	src := wireEdgeStub(t, e, 0)

	msg := types.Message{
		Kind:            types.KindDirect,
		ProtocolVersion: types.CurrentProtocolVersion,
		Payload:         types.DirectPayload{Source: 0, Destination: 1, Data: []float64{42}},
	}
	if err := src.PushOutgoing(msg); err != nil {
		t.Fatalf("push: %v", err)
	}

	tickUntilIdle(t, 14, e.Tick, func() error { src.Tick(); return nil }, func() error { dst.Tick(); return nil })

	if !dst.HasIncoming() {
		t.Fatalf("destination never received the direct message")
	}
	got := dst.PopIncoming().Payload.(types.DirectPayload)
	if got.Data[0] != 42 {
		t.Fatalf("expected payload 42, got %v", got.Data)
	}
}

// TestEdgeReduceOneLocalDestination exercises the to-down fold: the
// destination endpoint (port 2, local) must receive the sum of every
// OTHER port's contribution -- both up-ports (external pods) and the
// other down-port (endpoint 1) -- per the to-down branch of onReduce.
func TestEdgeReduceOneLocalDestination(t *testing.T) {
	log := newTestLogger()
	e := NewEdge(0, 4, 8, true, log)
	dest := wireEdgeStub(t, e, 0) // endpoint 0, the reduce destination
	b := wireEdgeStub(t, e, 1)    // endpoint 1
	up0 := NewPort("up0", log)
	up1 := NewPort("up1", log)
	if err := e.UpPort(0).Connect(up0); err != nil {
		t.Fatalf("wire up0: %v", err)
	}
	if err := e.UpPort(1).Connect(up1); err != nil {
		t.Fatalf("wire up1: %v", err)
	}

	send := func(p *Port, data []float64) {
		msg := types.Message{
			Kind:            types.KindReduce,
			ProtocolVersion: types.CurrentProtocolVersion,
			Payload:         types.ReducePayload{Destination: 0, Op: types.OpSum, Data: data},
		}
		if err := p.PushOutgoing(msg); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	send(b, []float64{3, 4})
	send(up0, []float64{10, 10})
	send(up1, []float64{100, 100})

	tickUntilIdle(t, 14, e.Tick,
		func() error { dest.Tick(); return nil },
		func() error { b.Tick(); return nil },
		func() error { up0.Tick(); return nil },
		func() error { up1.Tick(); return nil },
	)

	if !dest.HasIncoming() {
		t.Fatalf("destination endpoint never received the reduced result")
	}
	got := dest.PopIncoming().Payload.(types.ReducePayload)
	if len(got.Data) != 2 || got.Data[0] != 113 || got.Data[1] != 114 {
		t.Fatalf("expected folded sum [113 114], got %v", got.Data)
	}
}
