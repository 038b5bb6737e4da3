// Package mpi implements the blocking, MPI-style collective API each
// endpoint uses to talk to the rest of the network (§4.10), backed by
// a per-kind inbox so the user's worker goroutine can block while the
// simulation driver keeps ticking the transport on its own goroutine.
package mpi

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/core"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// Endpoint is a compute node: a single Port into its edge switch, an
// id, and the inbox the blocking MPI operations wait on. Only the
// driver goroutine ever calls Tick; only the worker goroutine ever
// calls an MPI operation (§5).
type Endpoint struct {
	ID            types.EndpointID
	EndpointCount types.EndpointID

	port *core.Port
	log  logging.Logger
	in   *inboxSet

	done bool
}

// NewEndpoint builds an endpoint with its own unconnected port; the
// topology builder wires it to its owning edge switch's down-port.
func NewEndpoint(id types.EndpointID, endpointCount types.EndpointID, log logging.Logger) *Endpoint {
	return &Endpoint{
		ID:            id,
		EndpointCount: endpointCount,
		port:          core.NewPort(fmt.Sprintf("endpoint[%d]", id), log),
		log:           log,
		in:            newInboxSet(),
	}
}

// Port exposes the endpoint's link for the topology builder to wire.
func (e *Endpoint) Port() *core.Port {
	return e.port
}

// Done reports whether the endpoint's worker has returned, used by the
// simulation loop's termination check (§4.11).
func (e *Endpoint) Done() bool {
	return e.done
}

// MarkDone is called by the simulation driver once the worker
// goroutine running this endpoint's task has returned.
func (e *Endpoint) MarkDone() {
	e.done = true
}

func (e *Endpoint) send(kind types.Kind, payload interface{}) {
	e.port.PushOutgoing(types.Message{
		Kind:            kind,
		ProtocolVersion: types.CurrentProtocolVersion,
		UID:             types.NewUID(),
		Payload:         payload,
	})
}

// Tick advances the endpoint's port and files any ready incoming
// message into the matching inbox. Called once per simulation step by
// the driver, never by the worker goroutine.
func (e *Endpoint) Tick() error {
	e.port.Tick()
	if !e.port.HasIncoming() {
		return nil
	}
	msg := e.port.PopIncoming()
	if err := types.CheckProtocolVersion(msg.ProtocolVersion); err != nil {
		return err
	}

	switch msg.Kind {
	case types.KindAcknowledge:
		e.in.acknowledge.put(msg.Payload.(types.AcknowledgePayload))
	case types.KindDirect:
		p := msg.Payload.(types.DirectPayload)
		e.in.direct.put(p)
		e.send(types.KindAcknowledge, types.AcknowledgePayload{Source: e.ID, Destination: p.Source, AckKind: types.KindDirect})
	case types.KindBroadcast:
		e.in.broadcast.put(msg.Payload.(types.BroadcastPayload))
	case types.KindBarrierRelease:
		e.in.barrier.put(struct{}{})
	case types.KindReduce:
		e.in.reduce.put(msg.Payload.(types.ReducePayload))
	case types.KindReduceAll:
		e.in.reduceAll.put(msg.Payload.(types.ReduceAllPayload))
	case types.KindScatter:
		e.in.scatter.put(msg.Payload.(types.ScatterPayload))
	case types.KindGather:
		e.in.gather.put(msg.Payload.(types.GatherPayload))
	case types.KindAllGather:
		e.in.allGather.put(msg.Payload.(types.AllGatherPayload))
	default:
		return fmt.Errorf("%w: %v", types.ErrUnknownMessageKind, msg.Kind)
	}
	return nil
}
