// Package topology builds a k-ary fat-tree: derives its tier sizes
// from k and wires every switch and endpoint port, the way the
// simulator's own builder does (no global state, one explicit
// construction pass).
package topology

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/core"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// Dimensions holds the counts derived from k (§3).
type Dimensions struct {
	K             int
	PodCount      int
	CoreCount     int
	AggregatePerPod int
	EdgePerPod    int
	EndpointCount types.EndpointID
}

// Derive computes every tier size from the port count k. k must be a
// positive even number (Config.Validate enforces this before Derive
// is called).
func Derive(k int) Dimensions {
	return Dimensions{
		K:               k,
		PodCount:        k,
		CoreCount:       (k / 2) * (k / 2),
		AggregatePerPod: k / 2,
		EdgePerPod:      k / 2,
		EndpointCount:   types.EndpointID(k) * types.EndpointID(k/2) * types.EndpointID(k/2),
	}
}

// Network is the fully wired set of switches for one simulation run.
type Network struct {
	Dims       Dimensions
	Cores      []*core.CoreSwitch
	Aggregates []*core.Aggregate // indexed 0..PodCount*AggregatePerPod-1, global index = pod*AggregatePerPod+col
	Edges      []*core.Edge      // indexed 0..PodCount*EdgePerPod-1, global index = pod*EdgePerPod+col
}

// Build constructs every switch and wires every port for a k-port
// fat-tree (k^3/4 endpoints), following the port-layout convention of
// §3: a switch's first half of ports face up, the second half face
// down.
func Build(k int, networkComputing bool, log logging.Logger) (*Network, error) {
	if k < 4 || k%2 != 0 {
		return nil, fmt.Errorf("%w: k=%d", types.ErrInvalidPortCount, k)
	}
	dims := Derive(k)
	endpointsPerEdge := types.EndpointID(k / 2)

	net := &Network{Dims: dims}

	for i := 0; i < dims.CoreCount; i++ {
		net.Cores = append(net.Cores, core.NewCoreSwitch(i, k, dims.PodCount, endpointsPerEdge*types.EndpointID(dims.EdgePerPod), dims.EndpointCount, networkComputing, log))
	}

	for pod := 0; pod < dims.PodCount; pod++ {
		for col := 0; col < dims.AggregatePerPod; col++ {
			id := pod*dims.AggregatePerPod + col
			net.Aggregates = append(net.Aggregates, core.NewAggregate(id, pod, k, dims.EndpointCount, networkComputing, log))
		}
	}

	for pod := 0; pod < dims.PodCount; pod++ {
		for col := 0; col < dims.EdgePerPod; col++ {
			id := pod*dims.EdgePerPod + col
			net.Edges = append(net.Edges, core.NewEdge(id, k, dims.EndpointCount, networkComputing, log))
		}
	}

	if err := net.wire(); err != nil {
		return nil, err
	}
	return net, nil
}

// wire connects every aggregate<->core and edge<->aggregate link. Core
// switch c's port p connects to pod p's aggregate at column c/(k/2),
// so each core switch has exactly one link into every pod, per the
// standard fat-tree permutation.
func (n *Network) wire() error {
	k := n.Dims.K
	half := k / 2

	for pod := 0; pod < n.Dims.PodCount; pod++ {
		for col := 0; col < n.Dims.AggregatePerPod; col++ {
			agg := n.Aggregates[pod*n.Dims.AggregatePerPod+col]
			for u := 0; u < half; u++ {
				coreIdx := col*half + u
				c := n.Cores[coreIdx]
				corePort := pod
				aggPort := agg.UpPort(u)
				if err := aggPort.Connect(c.Ports[corePort]); err != nil {
					return err
				}
			}
		}
	}

	for pod := 0; pod < n.Dims.PodCount; pod++ {
		for col := 0; col < n.Dims.EdgePerPod; col++ {
			edge := n.Edges[pod*n.Dims.EdgePerPod+col]
			for u := 0; u < half; u++ {
				agg := n.Aggregates[pod*n.Dims.AggregatePerPod+u]
				if err := edge.UpPort(u).Connect(agg.DownPort(col)); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// EdgeFor returns the edge switch owning endpoint id.
func (n *Network) EdgeFor(id types.EndpointID) *core.Edge {
	for _, e := range n.Edges {
		if e.Owns(id) {
			return e
		}
	}
	return nil
}

// Tick advances the whole network one simulation step, in core ->
// aggregate -> edge tier order (§4.11); endpoints tick separately,
// driven by the simulation loop after the switches.
func (n *Network) Tick() error {
	for _, c := range n.Cores {
		if err := c.Tick(); err != nil {
			return err
		}
	}
	for _, a := range n.Aggregates {
		if err := a.Tick(); err != nil {
			return err
		}
	}
	for _, e := range n.Edges {
		if err := e.Tick(); err != nil {
			return err
		}
	}
	return nil
}
