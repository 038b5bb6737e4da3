package core

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// CoreSwitch is the top fat-tree tier. Every port is equivalent (no
// up/down split, unlike Edge and Aggregate): port i is wired by the
// topology builder to pod i's aggregate switch at this core's column.
type CoreSwitch struct {
	ID   int
	log  logging.Logger
	Ports []*Port

	portForPod       []int // pod index -> port index, set by the builder
	endpointsPerPod   types.EndpointID
	endpointCount     types.EndpointID
	networkComputing  bool

	barrierRequestFlags map[types.EndpointID]bool

	reduceFlags       map[int]bool
	reduceDestination types.EndpointID
	reduceOp          types.ReduceOp
	reduceValue       []float64
	reduceOngoing     bool

	reduceAll *reduceAllState

	gather *bundleGatherState

	allGather *allGatherToUpState
}

// NewCoreSwitch builds core switch id for a k-port fat-tree with podCount pods.
func NewCoreSwitch(id int, k int, podCount int, endpointsPerPod types.EndpointID, endpointCount types.EndpointID, networkComputing bool, log logging.Logger) *CoreSwitch {
	ports := make([]*Port, k)
	for i := range ports {
		ports[i] = NewPort(fmt.Sprintf("core[%d].port[%d]", id, i), log)
	}
	portForPod := make([]int, podCount)
	for i := range portForPod {
		portForPod[i] = i
	}
	return &CoreSwitch{
		ID:    id,
		log:   log,
		Ports: ports,

		portForPod:       portForPod,
		endpointsPerPod:  endpointsPerPod,
		endpointCount:    endpointCount,
		networkComputing: networkComputing,

		barrierRequestFlags: make(map[types.EndpointID]bool, endpointCount),

		reduceFlags: make(map[int]bool),

		reduceAll: newReduceAllState(),

		gather: newBundleGatherState(),

		allGather: newAllGatherToUpState(k),
	}
}

func (c *CoreSwitch) podOf(id types.EndpointID) int {
	return int(id / c.endpointsPerPod)
}

func (c *CoreSwitch) portFor(id types.EndpointID) int {
	return c.portForPod[c.podOf(id)]
}

// Tick advances every port and dispatches at most one ready message
// per port, mirroring Base.AdvanceAndDrain for the homogeneous-port
// Core tier.
func (c *CoreSwitch) Tick() error {
	for _, p := range c.Ports {
		p.Tick()
	}
	for i, p := range c.Ports {
		if !p.HasIncoming() {
			continue
		}
		msg := p.PopIncoming()
		if err := c.dispatch(i, msg); err != nil {
			c.log.Errorf("core[%d]: %v", c.ID, err)
			return err
		}
	}
	return nil
}

func (c *CoreSwitch) dispatch(portIdx int, msg types.Message) error {
	if err := types.CheckProtocolVersion(msg.ProtocolVersion); err != nil {
		return err
	}

	switch msg.Kind {
	case types.KindAcknowledge:
		return c.onAcknowledge(msg)
	case types.KindDirect:
		return c.onDirect(msg)
	case types.KindBroadcast:
		return c.onBroadcast(portIdx, msg)
	case types.KindBarrierRequest:
		return c.onBarrierRequest(msg)
	case types.KindReduce:
		return c.onReduce(portIdx, msg)
	case types.KindReduceAll:
		return c.onReduceAll(portIdx, msg)
	case types.KindInterSwitchScatter:
		return c.onInterSwitchScatter(msg)
	case types.KindInterSwitchGather:
		return c.onInterSwitchGather(portIdx, msg)
	case types.KindInterSwitchAllGather:
		return c.onInterSwitchAllGather(portIdx, msg)
	default:
		return fmt.Errorf("%w: %v", types.ErrUnknownMessageKind, msg.Kind)
	}
}

func (c *CoreSwitch) send(portIdx int, kind types.Kind, payload interface{}) {
	c.Ports[portIdx].PushOutgoing(types.Message{
		Kind:            kind,
		ProtocolVersion: types.CurrentProtocolVersion,
		UID:             types.NewUID(),
		Payload:         payload,
	})
}

func (c *CoreSwitch) onAcknowledge(msg types.Message) error {
	p := msg.Payload.(types.AcknowledgePayload)
	c.send(c.portFor(p.Destination), types.KindAcknowledge, p)
	return nil
}

func (c *CoreSwitch) onDirect(msg types.Message) error {
	p := msg.Payload.(types.DirectPayload)
	c.send(c.portFor(p.Destination), types.KindDirect, p)
	return nil
}

func (c *CoreSwitch) onBroadcast(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.BroadcastPayload)
	for i := range c.Ports {
		if i == portIdx {
			continue
		}
		c.send(i, types.KindBroadcast, p)
	}
	return nil
}

// onBarrierRequest tracks flags per endpoint id, not per port: a
// single core switch sees exactly one request copy per endpoint (fanned
// redundantly from every edge/aggregate above each endpoint), so it can
// independently decide when every endpoint has joined and release.
func (c *CoreSwitch) onBarrierRequest(msg types.Message) error {
	p := msg.Payload.(types.BarrierRequestPayload)
	if c.barrierRequestFlags[p.Source] {
		c.log.Warnf("core[%d]: duplicate barrier request from endpoint %d", c.ID, p.Source)
		return nil
	}
	c.barrierRequestFlags[p.Source] = true

	if types.EndpointID(len(c.barrierRequestFlags)) < c.endpointCount {
		return nil
	}
	for id := range c.barrierRequestFlags {
		delete(c.barrierRequestFlags, id)
	}
	for i := range c.Ports {
		c.send(i, types.KindBarrierRelease, types.BarrierReleasePayload{})
	}
	return nil
}

// onReduce collects one contribution from every port but the
// destination's own, then emits the folded result to the destination's
// port (§4.6's Core case: no further up-tier to forward toward).
func (c *CoreSwitch) onReduce(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.ReducePayload)
	destPort := c.portFor(p.Destination)

	if !c.networkComputing {
		c.send(destPort, types.KindReduce, p)
		return nil
	}

	if portIdx == destPort {
		return fmt.Errorf("network: reduce source port equals destination port")
	}

	if !c.reduceOngoing {
		c.reduceOngoing = true
		c.reduceDestination = p.Destination
		c.reduceOp = p.Op
		c.reduceValue = append([]float64(nil), p.Data...)
		c.reduceFlags = make(map[int]bool, len(c.Ports)-1)
		for i := range c.Ports {
			if i != destPort {
				c.reduceFlags[i] = false
			}
		}
		c.reduceFlags[portIdx] = true
	} else {
		if p.Destination != c.reduceDestination {
			return fmt.Errorf("%w: reduce destination changed mid-collective", types.ErrDuplicateContribution)
		}
		if p.Op != c.reduceOp {
			return fmt.Errorf("%w: expected %s got %s", types.ErrOpMismatch, c.reduceOp, p.Op)
		}
		if c.reduceFlags[portIdx] {
			return fmt.Errorf("%w: port %d", types.ErrDuplicateContribution, portIdx)
		}
		c.reduceValue = types.Fold(p.Op, c.reduceValue, p.Data)
		c.reduceFlags[portIdx] = true
	}

	for _, done := range c.reduceFlags {
		if !done {
			return nil
		}
	}
	c.send(destPort, types.KindReduce, types.ReducePayload{Destination: c.reduceDestination, Op: c.reduceOp, Data: c.reduceValue})
	c.reduceOngoing = false
	c.reduceValue = nil
	c.reduceFlags = make(map[int]bool)
	return nil
}

func (c *CoreSwitch) onReduceAll(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.ReduceAllPayload)
	if !c.reduceAll.ongoing {
		c.reduceAll.start(indexRangeAll(len(c.Ports)))
	}
	if err := c.reduceAll.contribute(portIdx, p.Op, p.Data, true); err != nil {
		return err
	}
	if c.reduceAll.allReceived() {
		final := c.reduceAll.value
		op := c.reduceAll.op
		c.reduceAll.reset()
		for i := range c.Ports {
			c.send(i, types.KindReduceAll, types.ReduceAllPayload{Op: op, Data: final})
		}
	}
	return nil
}

func indexRangeAll(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
