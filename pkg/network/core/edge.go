package core

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// Edge is the endpoint-facing switch tier. Its down-ports map to a
// contiguous block of endpoint ids (§3); its up-ports reach into the
// aggregate tier.
type Edge struct {
	Base

	firstEndpoint    types.EndpointID
	endpointCount    types.EndpointID // N, global endpoint count
	downPortTable    map[types.EndpointID]int
	sameColumnUpPort int // = ID mod (k/2)
	networkComputing bool

	barrierReleaseFlags []bool

	reduceToUp   *reduceState
	reduceToDown *reduceState

	reduceAllToUp   *reduceAllState
	reduceAllToDown *reduceAllState

	gatherToUp   *gatherToUpState
	gatherToDown *gatherToDownState

	allGatherToUp *allGatherToUpState
}

// NewEdge builds edge switch id (0-indexed among edge switches) for a
// k-port fat-tree with the given global endpoint count.
func NewEdge(id int, k int, endpointCount types.EndpointID, networkComputing bool, log logging.Logger) *Edge {
	base := NewBase(id, k, "edge", log)
	e := &Edge{
		Base:             base,
		firstEndpoint:    types.EndpointID(id) * types.EndpointID(k/2),
		endpointCount:    endpointCount,
		downPortTable:    make(map[types.EndpointID]int, k/2),
		sameColumnUpPort: id % (k / 2),
		networkComputing: networkComputing,

		barrierReleaseFlags: make([]bool, k/2),

		reduceToUp:   newReduceState(),
		reduceToDown: newReduceState(),

		reduceAllToUp:   newReduceAllState(),
		reduceAllToDown: newReduceAllState(),

		gatherToUp:   newGatherToUpState(k / 2),
		gatherToDown: newGatherToDownState(),

		allGatherToUp: newAllGatherToUpState(k / 2),
	}
	for i := 0; i < k/2; i++ {
		e.downPortTable[e.firstEndpoint+types.EndpointID(i)] = i
	}
	return e
}

// Owns reports whether endpoint e is local to this edge switch (§4.3
// invariant 2/3).
func (e *Edge) Owns(id types.EndpointID) bool {
	_, ok := e.downPortTable[id]
	return ok
}

// LocalIndex returns endpoint id's offset among this edge's
// down-ports, for wiring its link during topology construction.
func (e *Edge) LocalIndex(id types.EndpointID) (int, bool) {
	off, ok := e.downPortTable[id]
	return off, ok
}

// Tick advances every port and dispatches at most one ready message
// per port (§4.2).
func (e *Edge) Tick() error {
	for _, r := range e.AdvanceAndDrain() {
		if err := e.dispatch(r.portIdx, r.msg); err != nil {
			e.log.Errorf("edge[%d]: %v", e.ID, err)
			return err
		}
	}
	return nil
}

func (e *Edge) dispatch(portIdx int, msg types.Message) error {
	if err := types.CheckProtocolVersion(msg.ProtocolVersion); err != nil {
		return err
	}

	switch msg.Kind {
	case types.KindAcknowledge:
		return e.onAcknowledge(portIdx, msg)
	case types.KindDirect:
		return e.onDirect(portIdx, msg)
	case types.KindBroadcast:
		return e.onBroadcast(portIdx, msg)
	case types.KindBarrierRequest:
		return e.onBarrierRequest(portIdx, msg)
	case types.KindBarrierRelease:
		return e.onBarrierRelease(portIdx)
	case types.KindReduce:
		return e.onReduce(portIdx, msg)
	case types.KindReduceAll:
		return e.onReduceAll(portIdx, msg)
	case types.KindScatter:
		return e.onScatter(portIdx, msg)
	case types.KindGather:
		return e.onGather(portIdx, msg)
	case types.KindAllGather:
		return e.onAllGather(portIdx, msg)
	case types.KindInterSwitchScatter:
		return e.onInterSwitchScatter(portIdx, msg)
	case types.KindInterSwitchGather:
		return e.onInterSwitchGather(portIdx, msg)
	case types.KindInterSwitchAllGather:
		return e.onInterSwitchAllGather(portIdx, msg)
	default:
		return fmt.Errorf("%w: %v", types.ErrUnknownMessageKind, msg.Kind)
	}
}

func (e *Edge) send(portIdx int, kind types.Kind, payload interface{}) {
	e.Ports[portIdx].PushOutgoing(types.Message{
		Kind:            kind,
		ProtocolVersion: types.CurrentProtocolVersion,
		UID:             types.NewUID(),
		Payload:         payload,
	})
}

// route picks the down-port for dst if local, else the least-loaded
// up-port (§4.3).
func (e *Edge) route(dst types.EndpointID) int {
	if p, ok := e.downPortTable[dst]; ok {
		return e.DownPortAmount() + p
	}
	return e.LeastLoadedUpPort()
}

func (e *Edge) onAcknowledge(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.AcknowledgePayload)
	e.send(e.route(p.Destination), types.KindAcknowledge, p)
	_ = portIdx
	return nil
}

func (e *Edge) onDirect(_ int, msg types.Message) error {
	p := msg.Payload.(types.DirectPayload)
	e.send(e.route(p.Destination), types.KindDirect, p)
	return nil
}

func (e *Edge) onBroadcast(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.BroadcastPayload)
	fromDown := portIdx >= e.UpPortAmount()
	if fromDown {
		for i := 0; i < e.DownPortAmount(); i++ {
			if e.DownPortAmount()+i == portIdx {
				continue
			}
			e.send(e.DownPortAmount()+i, types.KindBroadcast, p)
		}
		e.send(e.LeastLoadedUpPort(), types.KindBroadcast, p)
	} else {
		for i := 0; i < e.DownPortAmount(); i++ {
			e.send(e.DownPortAmount()+i, types.KindBroadcast, p)
		}
	}
	return nil
}

func (e *Edge) onBarrierRequest(portIdx int, msg types.Message) error {
	if portIdx < e.UpPortAmount() {
		return fmt.Errorf("network: barrier request from up-port %d", portIdx)
	}
	p := msg.Payload.(types.BarrierRequestPayload)
	for i := 0; i < e.UpPortAmount(); i++ {
		e.send(i, types.KindBarrierRequest, p)
	}
	return nil
}

func (e *Edge) onBarrierRelease(portIdx int) error {
	if portIdx >= e.UpPortAmount() {
		return fmt.Errorf("network: barrier release from down-port %d", portIdx-e.UpPortAmount())
	}
	e.barrierReleaseFlags[portIdx] = true
	for _, got := range e.barrierReleaseFlags {
		if !got {
			return nil
		}
	}
	for i := 0; i < e.DownPortAmount(); i++ {
		e.send(e.DownPortAmount()+i, types.KindBarrierRelease, types.BarrierReleasePayload{})
	}
	for i := range e.barrierReleaseFlags {
		e.barrierReleaseFlags[i] = false
	}
	return nil
}

func (e *Edge) onReduce(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.ReducePayload)
	toUp := !e.Owns(p.Destination)

	if !e.networkComputing {
		return e.forwardReduceTransparent(portIdx, toUp, p)
	}

	if toUp {
		if portIdx < e.UpPortAmount() {
			return fmt.Errorf("network: reduce destined up received from up-port %d", portIdx)
		}
		if e.reduceToDown.ongoing {
			return types.ErrPhaseCollision
		}
		relevant := indexRange(e.UpPortAmount(), len(e.Ports))
		return e.accumulateReduce(e.reduceToUp, portIdx, p, relevant, func(final []float64) {
			e.send(e.sameColumnUpPort, types.KindReduce, types.ReducePayload{
				Destination: p.Destination, Op: p.Op, Data: final,
			})
		})
	}

	if e.reduceToUp.ongoing {
		return types.ErrPhaseCollision
	}
	ownPort := e.DownPortAmount() + e.downPortTable[p.Destination]
	relevant := excluding(indexRange(0, len(e.Ports)), ownPort)
	return e.accumulateReduce(e.reduceToDown, portIdx, p, relevant, func(final []float64) {
		e.send(ownPort, types.KindReduce, types.ReducePayload{Destination: p.Destination, Op: p.Op, Data: final})
	})
}

// forwardReduceTransparent implements the network-computing=false
// degrade path (§6): pure store-and-forward, no in-switch folding.
func (e *Edge) forwardReduceTransparent(portIdx int, toUp bool, p types.ReducePayload) error {
	if toUp {
		e.send(e.sameColumnUpPort, types.KindReduce, p)
	} else {
		e.send(e.DownPortAmount()+e.downPortTable[p.Destination], types.KindReduce, p)
	}
	_ = portIdx
	return nil
}

func (e *Edge) accumulateReduce(s *reduceState, portIdx int, p types.ReducePayload, relevant []int, onComplete func([]float64)) error {
	if !s.ongoing {
		s.start(p.Destination, p.Op, p.Data, relevant)
		if _, known := s.received[portIdx]; !known {
			return fmt.Errorf("%w: port %d not part of this reduce", types.ErrDuplicateContribution, portIdx)
		}
		s.received[portIdx] = true
		if len(relevant) == 1 && s.allReceived() {
			onComplete(s.value)
			s.reset()
		}
		return nil
	}
	if p.Destination != s.destination {
		return fmt.Errorf("%w: reduce destination changed mid-collective", types.ErrDuplicateContribution)
	}
	if err := s.contribute(portIdx, p.Op, p.Data); err != nil {
		return err
	}
	if s.allReceived() {
		onComplete(s.value)
		s.reset()
	}
	return nil
}

func (e *Edge) onReduceAll(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.ReduceAllPayload)
	fromDown := portIdx >= e.UpPortAmount()

	if fromDown {
		if e.reduceAllToDown.ongoing {
			return types.ErrPhaseCollision
		}
		if !e.reduceAllToUp.ongoing {
			e.reduceAllToUp.start(indexRange(e.UpPortAmount(), len(e.Ports)))
		}
		if err := e.reduceAllToUp.contribute(portIdx, p.Op, p.Data, true); err != nil {
			return err
		}
		if e.reduceAllToUp.allReceived() {
			final := e.reduceAllToUp.value
			op := e.reduceAllToUp.op
			e.reduceAllToUp.reset()
			for i := 0; i < e.UpPortAmount(); i++ {
				e.send(i, types.KindReduceAll, types.ReduceAllPayload{Op: op, Data: final})
			}
			e.reduceAllToDown.start(indexRange(0, e.UpPortAmount()))
			e.reduceAllToDown.ongoing = true
		}
		return nil
	}

	if e.reduceAllToUp.ongoing {
		return types.ErrPhaseCollision
	}
	if !e.reduceAllToDown.ongoing {
		return types.ErrPhaseCollision
	}
	if err := e.reduceAllToDown.contribute(portIdx, p.Op, p.Data, false); err != nil {
		return err
	}
	if e.reduceAllToDown.allReceived() {
		final := e.reduceAllToDown.value
		op := e.reduceAllToDown.op
		e.reduceAllToDown.reset()
		for i := 0; i < e.DownPortAmount(); i++ {
			e.send(e.DownPortAmount()+i, types.KindReduceAll, types.ReduceAllPayload{Op: op, Data: final})
		}
	}
	return nil
}

func indexRange(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func excluding(in []int, excl int) []int {
	out := make([]int, 0, len(in))
	for _, v := range in {
		if v != excl {
			out = append(out, v)
		}
	}
	return out
}
