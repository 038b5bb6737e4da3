package core

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// Aggregate is the middle fat-tree tier. Its down-ports reach a
// contiguous block of edge switches (one pod); its up-ports reach the
// core tier. "Owns" an endpoint means that endpoint sits behind one of
// this aggregate's edges, not that it is directly attached.
type Aggregate struct {
	Base

	firstEdge         int
	edgesPerPod       int // k/2
	endpointsPerEdge  types.EndpointID
	endpointCount     types.EndpointID
	sameColumnDownID  int // localColumnIdx: this aggregate's position within its pod
	networkComputing  bool

	barrierReleaseFlags []bool

	reduceToDown *aggregateReduceDownState

	reduceAllToUp   *reduceAllState
	reduceAllToDown *reduceAllState

	gatherToUp *bundleGatherState

	allGatherToUp *allGatherToUpState
}

// NewAggregate builds aggregate switch id (global index,
// pod*(k/2)+column) for a k-port fat-tree. pod is this switch's pod
// index.
func NewAggregate(id int, pod int, k int, endpointCount types.EndpointID, networkComputing bool, log logging.Logger) *Aggregate {
	base := NewBase(id, k, "aggregate", log)
	a := &Aggregate{
		Base:             base,
		firstEdge:        pod * (k / 2),
		edgesPerPod:      k / 2,
		endpointsPerEdge: types.EndpointID(k / 2),
		endpointCount:    endpointCount,
		sameColumnDownID: id % (k / 2),
		networkComputing: networkComputing,

		barrierReleaseFlags: make([]bool, k/2),

		reduceToDown: newAggregateReduceDownState(),

		reduceAllToUp:   newReduceAllState(),
		reduceAllToDown: newReduceAllState(),

		gatherToUp: newBundleGatherState(),

		allGatherToUp: newAllGatherToUpState(k / 2),
	}
	return a
}

// edgeIndexOf returns the global edge index owning endpoint id.
func (a *Aggregate) edgeIndexOf(id types.EndpointID) int {
	return int(id / a.endpointsPerEdge)
}

// Owns reports whether endpoint id sits behind one of this
// aggregate's edges.
func (a *Aggregate) Owns(id types.EndpointID) bool {
	edge := a.edgeIndexOf(id)
	return edge >= a.firstEdge && edge < a.firstEdge+a.edgesPerPod
}

// downPortForEdge maps a local edge index to its down-port.
func (a *Aggregate) downPortForEdge(edge int) int {
	return a.DownPortAmount() + (edge - a.firstEdge)
}

func (a *Aggregate) Tick() error {
	for _, r := range a.AdvanceAndDrain() {
		if err := a.dispatch(r.portIdx, r.msg); err != nil {
			a.log.Errorf("aggregate[%d]: %v", a.ID, err)
			return err
		}
	}
	return nil
}

func (a *Aggregate) dispatch(portIdx int, msg types.Message) error {
	if err := types.CheckProtocolVersion(msg.ProtocolVersion); err != nil {
		return err
	}

	switch msg.Kind {
	case types.KindAcknowledge:
		return a.onAcknowledge(msg)
	case types.KindDirect:
		return a.onDirect(msg)
	case types.KindBroadcast:
		return a.onBroadcast(portIdx, msg)
	case types.KindBarrierRequest:
		return a.onBarrierRequest(portIdx, msg)
	case types.KindBarrierRelease:
		return a.onBarrierRelease(portIdx)
	case types.KindReduce:
		return a.onReduce(portIdx, msg)
	case types.KindReduceAll:
		return a.onReduceAll(portIdx, msg)
	case types.KindInterSwitchScatter:
		return a.onInterSwitchScatter(portIdx, msg)
	case types.KindInterSwitchGather:
		return a.onInterSwitchGather(portIdx, msg)
	case types.KindInterSwitchAllGather:
		return a.onInterSwitchAllGather(portIdx, msg)
	default:
		return fmt.Errorf("%w: %v", types.ErrUnknownMessageKind, msg.Kind)
	}
}

func (a *Aggregate) send(portIdx int, kind types.Kind, payload interface{}) {
	a.Ports[portIdx].PushOutgoing(types.Message{
		Kind:            kind,
		ProtocolVersion: types.CurrentProtocolVersion,
		UID:             types.NewUID(),
		Payload:         payload,
	})
}

func (a *Aggregate) route(dst types.EndpointID) int {
	if edge := a.edgeIndexOf(dst); a.Owns(dst) {
		return a.downPortForEdge(edge)
	}
	return a.LeastLoadedUpPort()
}

func (a *Aggregate) onAcknowledge(msg types.Message) error {
	p := msg.Payload.(types.AcknowledgePayload)
	a.send(a.route(p.Destination), types.KindAcknowledge, p)
	return nil
}

func (a *Aggregate) onDirect(msg types.Message) error {
	p := msg.Payload.(types.DirectPayload)
	a.send(a.route(p.Destination), types.KindDirect, p)
	return nil
}

func (a *Aggregate) onBroadcast(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.BroadcastPayload)
	fromDown := portIdx >= a.UpPortAmount()
	if fromDown {
		for i := 0; i < a.DownPortAmount(); i++ {
			if a.DownPortAmount()+i == portIdx {
				continue
			}
			a.send(a.DownPortAmount()+i, types.KindBroadcast, p)
		}
		a.send(a.LeastLoadedUpPort(), types.KindBroadcast, p)
	} else {
		for i := 0; i < a.DownPortAmount(); i++ {
			a.send(a.DownPortAmount()+i, types.KindBroadcast, p)
		}
	}
	return nil
}

func (a *Aggregate) onBarrierRequest(portIdx int, msg types.Message) error {
	if portIdx < a.UpPortAmount() {
		return fmt.Errorf("network: barrier request from up-port %d", portIdx)
	}
	p := msg.Payload.(types.BarrierRequestPayload)
	for i := 0; i < a.UpPortAmount(); i++ {
		a.send(i, types.KindBarrierRequest, p)
	}
	return nil
}

func (a *Aggregate) onBarrierRelease(portIdx int) error {
	if portIdx >= a.UpPortAmount() {
		return fmt.Errorf("network: barrier release from down-port %d", portIdx-a.UpPortAmount())
	}
	a.barrierReleaseFlags[portIdx] = true
	for _, got := range a.barrierReleaseFlags {
		if !got {
			return nil
		}
	}
	for i := 0; i < a.DownPortAmount(); i++ {
		a.send(a.DownPortAmount()+i, types.KindBarrierRelease, types.BarrierReleasePayload{})
	}
	for i := range a.barrierReleaseFlags {
		a.barrierReleaseFlags[i] = false
	}
	return nil
}

// onReduce mirrors Edge.onReduce, but "same column" identifies the one
// down-port (the edge sharing this aggregate's column index within its
// pod) that may ever send this aggregate a Reduce contribution, and
// locality is edge-ownership rather than direct attachment.
//
// A destination outside this aggregate's pod is stateless: the
// incoming contribution is replicated to every up-port unmodified, no
// folding and no waiting (Aggregate.cpp:437-448). A destination inside
// the pod folds every up-port plus, unless the destination sits behind
// the same-column edge itself, the same-column down-port
// (Aggregate.cpp:380-420).
func (a *Aggregate) onReduce(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.ReducePayload)
	sameColumnDownPort := a.DownPortAmount() + a.sameColumnDownID
	fromDownPort := portIdx >= a.UpPortAmount()

	if fromDownPort && portIdx != sameColumnDownPort {
		return fmt.Errorf("network: reduce message from down-port %d, only the same-column edge may reach this aggregate", portIdx-a.UpPortAmount())
	}

	toUp := !a.Owns(p.Destination)

	if !a.networkComputing {
		if toUp {
			a.send(a.LeastLoadedUpPort(), types.KindReduce, p)
		} else {
			a.send(a.downPortForEdge(a.edgeIndexOf(p.Destination)), types.KindReduce, p)
		}
		return nil
	}

	if toUp {
		if a.reduceToDown.ongoing {
			return types.ErrPhaseCollision
		}
		for i := 0; i < a.UpPortAmount(); i++ {
			a.send(i, types.KindReduce, p)
		}
		return nil
	}

	destPort := a.downPortForEdge(a.edgeIndexOf(p.Destination))
	destinedToSameColumn := destPort == sameColumnDownPort
	if destinedToSameColumn && fromDownPort {
		return fmt.Errorf("network: although destined to the same column port, received reduce message from that port")
	}

	s := a.reduceToDown
	if !s.ongoing {
		relevant := indexRange(0, a.UpPortAmount())
		if !destinedToSameColumn {
			relevant = append(relevant, sameColumnDownPort)
		}
		s.start(p.Destination, p.Op, relevant)
	} else if p.Destination != s.destination {
		return fmt.Errorf("%w: reduce destination changed mid-collective", types.ErrDuplicateContribution)
	}

	if err := s.contribute(portIdx, p.Op, p.Data, fromDownPort); err != nil {
		return err
	}
	if s.allReceived() {
		final := s.value
		op := s.op
		s.reset()
		a.send(destPort, types.KindReduce, types.ReducePayload{Destination: p.Destination, Op: op, Data: final})
	}
	return nil
}

func (a *Aggregate) onReduceAll(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.ReduceAllPayload)
	fromDown := portIdx >= a.UpPortAmount()

	if fromDown {
		if a.reduceAllToDown.ongoing {
			return types.ErrPhaseCollision
		}
		if !a.reduceAllToUp.ongoing {
			a.reduceAllToUp.start(indexRange(a.UpPortAmount(), len(a.Ports)))
		}
		if err := a.reduceAllToUp.contribute(portIdx, p.Op, p.Data, true); err != nil {
			return err
		}
		if a.reduceAllToUp.allReceived() {
			final := a.reduceAllToUp.value
			op := a.reduceAllToUp.op
			a.reduceAllToUp.reset()
			for i := 0; i < a.UpPortAmount(); i++ {
				a.send(i, types.KindReduceAll, types.ReduceAllPayload{Op: op, Data: final})
			}
			a.reduceAllToDown.start(indexRange(0, a.UpPortAmount()))
			a.reduceAllToDown.ongoing = true
		}
		return nil
	}

	if a.reduceAllToUp.ongoing {
		return types.ErrPhaseCollision
	}
	if !a.reduceAllToDown.ongoing {
		return types.ErrPhaseCollision
	}
	if err := a.reduceAllToDown.contribute(portIdx, p.Op, p.Data, false); err != nil {
		return err
	}
	if a.reduceAllToDown.allReceived() {
		final := a.reduceAllToDown.value
		op := a.reduceAllToDown.op
		a.reduceAllToDown.reset()
		for i := 0; i < a.DownPortAmount(); i++ {
			a.send(a.DownPortAmount()+i, types.KindReduceAll, types.ReduceAllPayload{Op: op, Data: final})
		}
	}
	return nil
}
