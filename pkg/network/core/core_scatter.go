package core

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

func (c *CoreSwitch) onInterSwitchScatter(msg types.Message) error {
	p := msg.Payload.(types.InterSwitchScatterPayload)
	byPort := make(map[int][]types.ScatterEntry)
	for _, en := range p.Entries {
		port := c.portFor(en.Destination)
		byPort[port] = append(byPort[port], en)
	}
	for port, entries := range byPort {
		c.send(port, types.KindInterSwitchScatter, types.InterSwitchScatterPayload{Source: p.Source, Entries: entries})
	}
	return nil
}

// onInterSwitchGather collects one bundle per port (one per pod) and,
// once every pod other than the destination's has contributed, forwards the merged result to the
// destination's own port. Since Core is the top tier, every bundle it
// receives is upward-bound; it only ever forwards down again.
func (c *CoreSwitch) onInterSwitchGather(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.InterSwitchGatherPayload)
	destPort := c.portFor(p.Destination)
	if portIdx == destPort {
		return fmt.Errorf("network: gather source pod equals destination pod")
	}

	s := c.gather
	if !s.ongoing {
		s.ongoing = true
		s.destination = p.Destination
		s.expected = len(c.Ports) - 1
	}
	if p.Destination != s.destination {
		return fmt.Errorf("%w: gather destination changed mid-collective", types.ErrDuplicateContribution)
	}
	if _, ok := s.received[portIdx]; ok {
		return fmt.Errorf("%w: port %d", types.ErrDuplicateContribution, portIdx)
	}
	s.received[portIdx] = p.Entries

	if s.filled() {
		entries := s.flatten()
		dest := s.destination
		s.reset()
		c.send(destPort, types.KindInterSwitchGather, types.InterSwitchGatherPayload{Destination: dest, Entries: entries})
	}
	return nil
}

func (c *CoreSwitch) onInterSwitchAllGather(portIdx int, msg types.Message) error {
	p := msg.Payload.(types.InterSwitchAllGatherPayload)
	if !c.allGather.ongoing {
		c.allGather.ongoing = true
	}
	if c.allGather.slots[portIdx].Chunk != nil {
		return fmt.Errorf("%w: port %d", types.ErrDuplicateContribution, portIdx)
	}
	var merged []float64
	for _, en := range p.Entries {
		merged = append(merged, en.Chunk...)
	}
	c.allGather.slots[portIdx] = types.GatherEntry{Source: types.EndpointID(portIdx), Chunk: merged}
	if c.allGather.filled() {
		entries := append([]types.GatherEntry(nil), c.allGather.slots...)
		c.allGather.reset()
		for i := range c.Ports {
			c.send(i, types.KindInterSwitchAllGather, types.InterSwitchAllGatherPayload{Entries: entries})
		}
	}
	return nil
}
