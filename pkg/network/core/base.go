package core

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// Base is embedded by every switch tier. It owns the fixed-size port
// vector (first half up-facing, second half down-facing, per §3) and
// drives the shared tick skeleton described in §4.2: advance every
// port, then dispatch at most one ready message per port.
type Base struct {
	ID    int
	Ports []*Port
	log   logging.Logger
}

// NewBase allocates portAmount unconnected ports (k of them) for a
// switch with the given tier-unique ID.
func NewBase(id int, portAmount int, label string, log logging.Logger) Base {
	ports := make([]*Port, portAmount)
	for i := range ports {
		ports[i] = NewPort(fmt.Sprintf("%s[%d].port[%d]", label, id, i), log)
	}
	return Base{ID: id, Ports: ports, log: log}
}

// UpPortAmount is half the port vector, by the layout convention of §3.
func (b *Base) UpPortAmount() int {
	return len(b.Ports) / 2
}

// DownPortAmount mirrors UpPortAmount.
func (b *Base) DownPortAmount() int {
	return len(b.Ports) / 2
}

// UpPort returns up-port i, i in [0, UpPortAmount).
func (b *Base) UpPort(i int) *Port {
	return b.Ports[i]
}

// DownPort returns down-port i, i in [0, DownPortAmount); its
// absolute port index is UpPortAmount()+i.
func (b *Base) DownPort(i int) *Port {
	return b.Ports[b.UpPortAmount()+i]
}

// LeastLoadedUpPort returns the index (into the full Ports slice) of
// the up-port with the smallest outgoing queue, ties broken by lowest
// index (§4.3).
func (b *Base) LeastLoadedUpPort() int {
	best := 0
	bestLen := b.Ports[0].OutgoingLen()
	for i := 1; i < b.UpPortAmount(); i++ {
		if l := b.Ports[i].OutgoingLen(); l < bestLen {
			best = i
			bestLen = l
		}
	}
	return best
}

// readyMessage pairs a ready-to-process message with the index of the
// port it arrived on.
type readyMessage struct {
	portIdx int
	msg     types.Message
}

// AdvanceAndDrain ticks every port, then collects at most one ready
// incoming message per port, in port-index order. Only one message is
// drained per port per tick (§4.2), bounding per-tick work.
func (b *Base) AdvanceAndDrain() []readyMessage {
	for _, p := range b.Ports {
		p.Tick()
	}

	var ready []readyMessage
	for i, p := range b.Ports {
		if p.HasIncoming() {
			ready = append(ready, readyMessage{portIdx: i, msg: p.PopIncoming()})
		}
	}
	return ready
}
