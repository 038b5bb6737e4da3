package core

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

func (a *Aggregate) onInterSwitchScatter(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.InterSwitchScatterPayload)
	fromDown := portIdx >= a.UpPortAmount()

	byEdge := make(map[int][]types.ScatterEntry)
	var remote []types.ScatterEntry
	for _, en := range p.Entries {
		if a.Owns(en.Destination) {
			edge := a.edgeIndexOf(en.Destination)
			byEdge[edge] = append(byEdge[edge], en)
		} else {
			remote = append(remote, en)
		}
	}

	if len(remote) > 0 {
		if !fromDown {
			return fmt.Errorf("network: inter-switch scatter entry not owned by this pod, arrived from up-port %d", portIdx)
		}
		a.send(a.LeastLoadedUpPort(), types.KindInterSwitchScatter, types.InterSwitchScatterPayload{
			Source: p.Source, Entries: remote,
		})
	}
	for edge, entries := range byEdge {
		a.send(a.downPortForEdge(edge), types.KindInterSwitchScatter, types.InterSwitchScatterPayload{
			Source: p.Source, Entries: entries,
		})
	}
	return nil
}

func (a *Aggregate) onInterSwitchGather(portIdx int, msg types.Message) error {
	if portIdx < a.UpPortAmount() {
		return a.forwardGatherDown(msg.Payload.(types.InterSwitchGatherPayload))
	}

	p := msg.Payload.(types.InterSwitchGatherPayload)
	if !a.gatherToUp.ongoing {
		a.gatherToUp.ongoing = true
		a.gatherToUp.destination = p.Destination
		a.gatherToUp.expected = a.DownPortAmount()
		if a.Owns(p.Destination) {
			// The destination's own edge keeps its chunks local and
			// never sends a bundle up.
			a.gatherToUp.expected--
		}
	}
	if p.Destination != a.gatherToUp.destination {
		return types.ErrDuplicateContribution
	}
	if _, ok := a.gatherToUp.received[portIdx]; ok {
		return fmt.Errorf("%w: down-port %d", types.ErrDuplicateContribution, portIdx-a.UpPortAmount())
	}
	a.gatherToUp.received[portIdx] = p.Entries
	if a.gatherToUp.filled() {
		entries := a.gatherToUp.flatten()
		dest := a.gatherToUp.destination
		a.gatherToUp.reset()
		if a.Owns(dest) {
			return a.forwardGatherDown(types.InterSwitchGatherPayload{Destination: dest, Entries: entries})
		}
		a.send(a.LeastLoadedUpPort(), types.KindInterSwitchGather, types.InterSwitchGatherPayload{
			Destination: dest, Entries: entries,
		})
	}
	return nil
}

// forwardGatherDown hands a gather bundle, unchanged, to the down-port
// of the edge owning the destination; that edge merges every bundle it
// receives. A destination outside this pod is an error.
func (a *Aggregate) forwardGatherDown(p types.InterSwitchGatherPayload) error {
	if !a.Owns(p.Destination) {
		return fmt.Errorf("network: gather destination %d not reachable from this pod", p.Destination)
	}
	a.send(a.downPortForEdge(a.edgeIndexOf(p.Destination)), types.KindInterSwitchGather, p)
	return nil
}

func (a *Aggregate) onInterSwitchAllGather(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.InterSwitchAllGatherPayload)
	fromDown := portIdx >= a.UpPortAmount()

	if !fromDown {
		for i := 0; i < a.DownPortAmount(); i++ {
			a.send(a.DownPortAmount()+i, types.KindInterSwitchAllGather, p)
		}
		return nil
	}

	if !a.allGatherToUp.ongoing {
		a.allGatherToUp.ongoing = true
	}
	slot := portIdx - a.UpPortAmount()
	if a.allGatherToUp.slots[slot].Chunk != nil {
		return fmt.Errorf("%w: down-port %d", types.ErrDuplicateContribution, slot)
	}
	var merged []float64
	for _, en := range p.Entries {
		merged = append(merged, en.Chunk...)
	}
	a.allGatherToUp.slots[slot] = types.GatherEntry{Source: types.EndpointID(slot), Chunk: merged}
	if a.allGatherToUp.filled() {
		entries := append([]types.GatherEntry(nil), a.allGatherToUp.slots...)
		a.allGatherToUp.reset()
		a.send(a.LeastLoadedUpPort(), types.KindInterSwitchAllGather, types.InterSwitchAllGatherPayload{Entries: entries})
	}
	return nil
}
