package mpi

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// Send pushes data to dest and blocks until dest acknowledges receipt.
// Self-addressed sends are rejected (§4.10 edge case).
func (e *Endpoint) Send(dest types.EndpointID, data []float64) error {
	if dest == e.ID {
		return types.ErrSelfAddressed
	}
	if len(data) == 0 {
		return types.ErrEmptyData
	}

	e.send(types.KindDirect, types.DirectPayload{Source: e.ID, Destination: dest, Data: data})
	for {
		ack := e.in.acknowledge.take().(types.AcknowledgePayload)
		if ack.Source == dest && ack.AckKind == types.KindDirect {
			return nil
		}
		e.in.acknowledge.put(ack) // not ours, requeue for whoever is waiting on it
	}
}

// Receive blocks until a direct message addressed to this endpoint
// arrives, returning its sender and payload.
func (e *Endpoint) Receive() (types.EndpointID, []float64, error) {
	p := e.in.direct.take().(types.DirectPayload)
	if p.Destination != e.ID {
		return 0, nil, fmt.Errorf("network: direct message misrouted to endpoint %d", e.ID)
	}
	return p.Source, p.Data, nil
}

// Broadcast sends data to every other endpoint (root's own call never
// touches the network for its own copy) and returns immediately; it is
// the root's one-sided half of the collective.
func (e *Endpoint) Broadcast(data []float64) error {
	if len(data) == 0 {
		return types.ErrEmptyData
	}
	e.send(types.KindBroadcast, types.BroadcastPayload{Source: e.ID, Data: data})
	return nil
}

// ReceiveBroadcast blocks until a broadcast arrives, for every endpoint
// other than the one that originated it.
func (e *Endpoint) ReceiveBroadcast() ([]float64, error) {
	p := e.in.broadcast.take().(types.BroadcastPayload)
	return p.Data, nil
}

// Barrier blocks until every endpoint has called Barrier (§4.5).
func (e *Endpoint) Barrier() error {
	e.send(types.KindBarrierRequest, types.BarrierRequestPayload{Source: e.ID})
	e.in.barrier.take()
	return nil
}

// Reduce folds data from every endpoint using op, with the result
// delivered only to dest. dest keeps its own data off the network and
// folds it locally into the value the network delivers.
func (e *Endpoint) Reduce(dest types.EndpointID, op types.ReduceOp, data []float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, types.ErrEmptyData
	}
	if dest != e.ID {
		e.send(types.KindReduce, types.ReducePayload{Source: e.ID, HasSource: true, Destination: dest, Op: op, Data: data})
		return nil, nil
	}
	p := e.in.reduce.take().(types.ReducePayload)
	if len(p.Data) != len(data) {
		return nil, types.ErrSizeMismatch
	}
	return types.Fold(op, data, p.Data), nil
}

// ReduceAll folds data from every endpoint using op and delivers the
// result to every endpoint (§4.7).
func (e *Endpoint) ReduceAll(op types.ReduceOp, data []float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, types.ErrEmptyData
	}
	e.send(types.KindReduceAll, types.ReduceAllPayload{Op: op, Data: data})
	p := e.in.reduceAll.take().(types.ReduceAllPayload)
	return p.Data, nil
}

// Scatter is the root's call: data must be evenly divisible by the
// endpoint count, one chunk per endpoint in ascending id order. The
// root's own chunk is returned directly, without touching the network.
func (e *Endpoint) Scatter(data []float64) ([]float64, error) {
	if len(data) == 0 || len(data)%int(e.EndpointCount) != 0 {
		return nil, types.ErrSizeMismatch
	}
	chunk := len(data) / int(e.EndpointCount)
	own := append([]float64(nil), data[int(e.ID)*chunk:(int(e.ID)+1)*chunk]...)

	rest := make([]float64, 0, len(data)-chunk)
	rest = append(rest, data[:int(e.ID)*chunk]...)
	rest = append(rest, data[(int(e.ID)+1)*chunk:]...)

	e.send(types.KindScatter, types.ScatterPayload{Source: e.ID, Data: rest})
	return own, nil
}

// ReceiveScatter blocks until this endpoint's chunk of a Scatter
// arrives.
func (e *Endpoint) ReceiveScatter() ([]float64, error) {
	p := e.in.scatter.take().(types.ScatterPayload)
	return p.Data, nil
}

// Gather collects one chunk from every other endpoint into dest's
// buffer, ordered by ascending endpoint id; dest splices its own chunk
// in locally once the network delivers the other N-1 (§9 resolution).
func (e *Endpoint) Gather(dest types.EndpointID, data []float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, types.ErrEmptyData
	}
	if dest == e.ID {
		p := e.in.gather.take().(types.GatherPayload)
		result := make([]float64, 0, len(p.Data)+len(data))
		chunkSize := len(data)
		for id := types.EndpointID(0); id < e.EndpointCount; id++ {
			switch {
			case id == e.ID:
				result = append(result, data...)
			case int(id) < int(e.ID):
				result = append(result, p.Data[int(id)*chunkSize:(int(id)+1)*chunkSize]...)
			default:
				result = append(result, p.Data[(int(id)-1)*chunkSize:int(id)*chunkSize]...)
			}
		}
		return result, nil
	}
	e.send(types.KindGather, types.GatherPayload{Destination: dest, Data: data})
	return nil, nil
}

// AllGather sends this endpoint's chunk as an AllGather and blocks
// until the switches deliver the assembled buffer of every endpoint's
// contribution; every endpoint both contributes and receives.
func (e *Endpoint) AllGather(data []float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, types.ErrEmptyData
	}
	e.send(types.KindAllGather, types.AllGatherPayload{Data: data})
	p := e.in.allGather.take().(types.AllGatherPayload)
	return p.Data, nil
}
