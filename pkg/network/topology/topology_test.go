package topology

import (
	"testing"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

func TestDeriveDimensions(t *testing.T) {
	d := Derive(4)
	if d.PodCount != 4 || d.CoreCount != 4 || d.AggregatePerPod != 2 || d.EdgePerPod != 2 {
		t.Fatalf("unexpected dimensions for k=4: %+v", d)
	}
	if d.EndpointCount != 16 {
		t.Fatalf("expected 16 endpoints for k=4 (k^3/4), got %d", d.EndpointCount)
	}
}

func TestBuildRejectsInvalidPortCount(t *testing.T) {
	log := logging.NewLogrusLogger(false)
	if _, err := Build(3, true, log); err == nil {
		t.Fatalf("expected error building with odd k")
	}
	if _, err := Build(0, true, log); err == nil {
		t.Fatalf("expected error building with k=0")
	}
}

func TestBuildWiresEveryEndpointToExactlyOneEdge(t *testing.T) {
	log := logging.NewLogrusLogger(false)
	net, err := Build(4, true, log)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for id := types.EndpointID(0); id < net.Dims.EndpointCount; id++ {
		owners := 0
		for _, e := range net.Edges {
			if e.Owns(id) {
				owners++
			}
		}
		if owners != 1 {
			t.Fatalf("endpoint %d owned by %d edges, want 1", id, owners)
		}
	}

	if got := net.EdgeFor(5); got == nil || !got.Owns(5) {
		t.Fatalf("EdgeFor(5) did not return the owning edge")
	}
}

func TestBuildEveryPortConnected(t *testing.T) {
	log := logging.NewLogrusLogger(false)
	net, err := Build(4, true, log)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for i, c := range net.Cores {
		for p, port := range c.Ports {
			if !port.Connected() {
				t.Fatalf("core %d port %d unconnected", i, p)
			}
		}
	}
	for i, a := range net.Aggregates {
		for p, port := range a.Ports {
			if !port.Connected() {
				t.Fatalf("aggregate %d port %d unconnected", i, p)
			}
		}
	}
	// Edge down-ports are left for the simulation layer to wire to
	// endpoints; only up-ports are expected connected here.
	for i, e := range net.Edges {
		for p := 0; p < e.UpPortAmount(); p++ {
			if !e.Ports[p].Connected() {
				t.Fatalf("edge %d up-port %d unconnected", i, p)
			}
		}
	}
}
