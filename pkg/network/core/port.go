// Package core implements the Port transport and the three switch
// engines (Edge, Aggregate, Core) of the fat-tree simulator.
package core

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// Delay model constants, grounded on the original simulator's
// PortDelays (Port.cpp): base 3 ticks plus 1 tick per 100 bytes.
const (
	baseIncomingDelay = 3
	baseOutgoingDelay = 3
	bytesPerTick      = 100
)

// pendingMessage is a queued message tagged with its remaining
// countdown before it becomes ready.
type pendingMessage struct {
	msg       types.Message
	remaining int
}

// Port is a half-duplex link endpoint: an incoming and an outgoing
// queue, each entry delayed by a byte-size-derived tick count. Only
// the driver thread ever touches a Port (§5).
type Port struct {
	label string
	log   logging.Logger

	peer *Port

	incoming []pendingMessage
	outgoing []pendingMessage
}

// NewPort builds an unconnected port. label is used only for log
// messages.
func NewPort(label string, log logging.Logger) *Port {
	return &Port{label: label, log: log}
}

// Connect wires this port to remote, symmetrically and exactly once.
// A second call on either side is a wiring error, fatal before ticks
// begin per spec §7.
func (p *Port) Connect(remote *Port) error {
	if p.peer != nil || remote.peer != nil {
		return fmt.Errorf("%w: %s<->%s", types.ErrPortAlreadyWired, p.label, remote.label)
	}
	p.peer = remote
	remote.peer = p
	return nil
}

// Connected reports whether the one-shot wiring has happened.
func (p *Port) Connected() bool {
	return p.peer != nil
}

func delayFor(msg types.Message, base int) int {
	return base + msg.Size()/bytesPerTick
}

// PushOutgoing enqueues msg for eventual transfer to the peer.
func (p *Port) PushOutgoing(msg types.Message) error {
	p.outgoing = append(p.outgoing, pendingMessage{msg: msg, remaining: delayFor(msg, baseOutgoingDelay)})
	return nil
}

// pushIncoming is only ever invoked by the peer port during Tick.
func (p *Port) pushIncoming(msg types.Message) {
	p.incoming = append(p.incoming, pendingMessage{msg: msg, remaining: delayFor(msg, baseIncomingDelay)})
}

// Tick advances the port by one simulation step: the head of the
// outgoing queue transfers to the peer if its countdown has elapsed,
// then every remaining pending message (both queues) counts down.
// Only the single head message may transfer per tick, which combined
// with per-message delay preserves FIFO (§4.1).
func (p *Port) Tick() {
	if len(p.outgoing) > 0 && p.outgoing[0].remaining == 0 {
		head := p.outgoing[0]
		if p.peer != nil {
			p.peer.pushIncoming(head.msg)
			p.outgoing = p.outgoing[1:]
		} else {
			p.log.Errorf("port %s: cannot transfer, unconnected", p.label)
		}
	}

	for i := range p.incoming {
		if p.incoming[i].remaining > 0 {
			p.incoming[i].remaining--
		}
	}
	for i := range p.outgoing {
		if p.outgoing[i].remaining > 0 {
			p.outgoing[i].remaining--
		}
	}
}

// HasIncoming reports whether the head of the incoming queue is ready
// to be popped.
func (p *Port) HasIncoming() bool {
	return len(p.incoming) > 0 && p.incoming[0].remaining == 0
}

// PopIncoming removes and returns the ready head message. Callers
// must check HasIncoming first.
func (p *Port) PopIncoming() types.Message {
	msg := p.incoming[0].msg
	p.incoming = p.incoming[1:]
	return msg
}

// OutgoingLen reports the current outgoing queue depth, used for
// least-loaded up-port selection.
func (p *Port) OutgoingLen() int {
	return len(p.outgoing)
}
