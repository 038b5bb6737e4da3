package core

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// Scatter/Gather/AllGather all follow the same shape at every tier: a
// switch owns a contiguous slice of the global endpoint space (via its
// down-ports, directly at Edge or transitively at Aggregate/Core); it
// peels off the entries it can deliver locally and re-bundles the rest
// for the next tier up, or unpacks an inbound bundle and fans it back
// down to whichever of its children own each entry. This is a
// deliberate generalization of the original per-tier chunk formulas
// (documented in the grounding ledger) chosen so the same shape works
// unmodified at all three tiers.

func (e *Edge) onScatter(portIdx int, msg types.Message) error {
	if portIdx < e.UpPortAmount() {
		return fmt.Errorf("network: scatter root must be local")
	}
	p := msg.Payload.(types.ScatterPayload)
	if e.endpointCount < 2 || len(p.Data)%(int(e.endpointCount)-1) != 0 {
		return types.ErrSizeMismatch
	}
	chunk := len(p.Data) / (int(e.endpointCount) - 1)

	var remote []types.ScatterEntry
	idx := 0
	for id := types.EndpointID(0); id < e.endpointCount; id++ {
		if id == p.Source {
			continue
		}
		piece := p.Data[idx*chunk : (idx+1)*chunk]
		idx++
		if down, ok := e.downPortTable[id]; ok {
			e.send(e.DownPortAmount()+down, types.KindScatter, types.ScatterPayload{Source: p.Source, Data: piece})
			continue
		}
		remote = append(remote, types.ScatterEntry{Destination: id, Chunk: piece})
	}

	if len(remote) > 0 {
		e.send(e.LeastLoadedUpPort(), types.KindInterSwitchScatter, types.InterSwitchScatterPayload{
			Source: p.Source, Entries: remote,
		})
	}
	return nil
}

func (e *Edge) onInterSwitchScatter(portIdx int, msg types.Message) error {
	if portIdx >= e.UpPortAmount() {
		return fmt.Errorf("network: unexpected inter-switch scatter from down-port %d", portIdx-e.UpPortAmount())
	}
	p := msg.Payload.(types.InterSwitchScatterPayload)
	for _, entry := range p.Entries {
		down, ok := e.downPortTable[entry.Destination]
		if !ok {
			return fmt.Errorf("network: inter-switch scatter entry for %d not owned by this edge", entry.Destination)
		}
		e.send(e.DownPortAmount()+down, types.KindScatter, types.ScatterPayload{Source: p.Source, Data: entry.Chunk})
	}
	return nil
}

func (e *Edge) onGather(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.GatherPayload)
	fromDown := portIdx >= e.UpPortAmount()

	if fromDown && e.Owns(p.Destination) {
		slot := portIdx - e.UpPortAmount()
		var srcID types.EndpointID
		for id, dp := range e.downPortTable {
			if dp == slot {
				srcID = id
				break
			}
		}
		if srcID == p.Destination {
			return fmt.Errorf("network: root contributing its own gather chunk over the network")
		}
		return e.accumulateGatherToDown(p.Destination, []types.GatherEntry{{Source: srcID, Chunk: p.Data}}, false)
	}

	if fromDown {
		if !e.gatherToUp.ongoing {
			e.gatherToUp.ongoing = true
			e.gatherToUp.destination = p.Destination
			e.gatherToUp.refSize = len(p.Data)
		}
		if p.Destination != e.gatherToUp.destination {
			return types.ErrDuplicateContribution
		}
		slot := portIdx - e.UpPortAmount()
		if e.gatherToUp.slots[slot].Chunk != nil {
			return fmt.Errorf("%w: down-port %d", types.ErrDuplicateContribution, slot)
		}
		var srcID types.EndpointID
		for id, dp := range e.downPortTable {
			if dp == slot {
				srcID = id
				break
			}
		}
		e.gatherToUp.slots[slot] = types.GatherEntry{Source: srcID, Chunk: p.Data}
		if e.gatherToUp.filled() {
			entries := append([]types.GatherEntry(nil), e.gatherToUp.slots...)
			dest := e.gatherToUp.destination
			e.gatherToUp.reset()
			e.send(e.LeastLoadedUpPort(), types.KindInterSwitchGather, types.InterSwitchGatherPayload{
				Destination: dest, Entries: entries,
			})
		}
		return nil
	}

	return fmt.Errorf("network: unexpected direct gather from up-port %d", portIdx)
}

func (e *Edge) onInterSwitchGather(portIdx int, msg types.Message) error {
	if portIdx >= e.UpPortAmount() {
		return fmt.Errorf("network: unexpected inter-switch gather from down-port %d", portIdx-e.UpPortAmount())
	}
	p := msg.Payload.(types.InterSwitchGatherPayload)
	return e.accumulateGatherToDown(p.Destination, p.Entries, false)
}

// accumulateGatherToDown collects the N-1 non-root chunks of a Gather
// (every endpoint but the root itself, which splices its own chunk in
// locally at the MPI layer once the network delivers the rest, per the
// root-splices-locally resolution recorded in the grounding ledger).
func (e *Edge) accumulateGatherToDown(dest types.EndpointID, entries []types.GatherEntry, fromDirectRoot bool) error {
	_ = fromDirectRoot
	s := e.gatherToDown
	if !s.ongoing {
		s.ongoing = true
		s.destination = dest
		s.expected = int(e.endpointCount) - 1
	}
	if dest != s.destination {
		return fmt.Errorf("%w: gather destination changed mid-collective", types.ErrDuplicateContribution)
	}
	for _, en := range entries {
		if en.Source == dest {
			return fmt.Errorf("network: root must not contribute its own gather chunk over the network")
		}
		if _, ok := s.received[en.Source]; ok {
			return fmt.Errorf("%w: endpoint %d", types.ErrDuplicateContribution, en.Source)
		}
		s.received[en.Source] = en.Chunk
	}
	if len(s.received) >= s.expected {
		var final []float64
		for id := types.EndpointID(0); id < e.endpointCount; id++ {
			if id == s.destination {
				continue
			}
			final = append(final, s.received[id]...)
		}
		down, ok := e.downPortTable[s.destination]
		if !ok {
			return fmt.Errorf("network: gather destination %d not owned by this edge", s.destination)
		}
		s.reset()
		e.send(e.DownPortAmount()+down, types.KindGather, types.GatherPayload{Destination: dest, Data: final})
	}
	return nil
}

func (e *Edge) onAllGather(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.AllGatherPayload)
	fromDown := portIdx >= e.UpPortAmount()

	if fromDown {
		if !e.allGatherToUp.ongoing {
			e.allGatherToUp.ongoing = true
			e.allGatherToUp.refSize = len(p.Data)
		}
		slot := portIdx - e.UpPortAmount()
		if e.allGatherToUp.slots[slot].Chunk != nil {
			return fmt.Errorf("%w: down-port %d", types.ErrDuplicateContribution, slot)
		}
		var srcID types.EndpointID
		for id, dp := range e.downPortTable {
			if dp == slot {
				srcID = id
				break
			}
		}
		e.allGatherToUp.slots[slot] = types.GatherEntry{Source: srcID, Chunk: p.Data}
		if e.allGatherToUp.filled() {
			entries := append([]types.GatherEntry(nil), e.allGatherToUp.slots...)
			e.allGatherToUp.reset()
			e.send(e.LeastLoadedUpPort(), types.KindInterSwitchAllGather, types.InterSwitchAllGatherPayload{Entries: entries})
		}
		return nil
	}

	for i := 0; i < e.DownPortAmount(); i++ {
		e.send(e.DownPortAmount()+i, types.KindAllGather, p)
	}
	return nil
}

func (e *Edge) onInterSwitchAllGather(portIdx int, msg types.Message) error {
	if portIdx >= e.UpPortAmount() {
		return fmt.Errorf("network: unexpected inter-switch all-gather from down-port %d", portIdx-e.UpPortAmount())
	}
	p := msg.Payload.(types.InterSwitchAllGatherPayload)
	var final []float64
	for _, en := range p.Entries {
		final = append(final, en.Chunk...)
	}
	for i := 0; i < e.DownPortAmount(); i++ {
		e.send(e.DownPortAmount()+i, types.KindAllGather, types.AllGatherPayload{Data: final})
	}
	return nil
}
