// Package sim drives the discrete-time simulation loop: advance every
// switch tier, then every endpoint's transport, until every endpoint's
// worker task has returned (§4.11).
package sim

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/core"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/mpi"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/topology"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// Task is a worker function run on its own goroutine per endpoint,
// driving the blocking MPI API.
type Task func(e *mpi.Endpoint) error

// Simulation owns a wired topology, one endpoint per network leaf, and
// the invoker used to run worker tasks.
type Simulation struct {
	Net       *topology.Network
	Endpoints []*mpi.Endpoint

	invoker core.Invoker
	log     logging.Logger
	ticks   int

	errs []error
}

// New builds a simulation over a k-port fat-tree, wiring one endpoint
// per down-port of every edge switch.
func New(k int, networkComputing bool, log logging.Logger) (*Simulation, error) {
	net, err := topology.Build(k, networkComputing, log)
	if err != nil {
		return nil, err
	}

	endpoints := make([]*mpi.Endpoint, net.Dims.EndpointCount)
	for i := range endpoints {
		endpoints[i] = mpi.NewEndpoint(types.EndpointID(i), net.Dims.EndpointCount, log)
	}

	for _, e := range net.Edges {
		for i, ep := range endpoints {
			off, ok := e.LocalIndex(types.EndpointID(i))
			if !ok {
				continue
			}
			if err := e.DownPort(off).Connect(ep.Port()); err != nil {
				return nil, err
			}
		}
	}

	return &Simulation{
		Net:       net,
		Endpoints: endpoints,
		invoker:   core.NewGoroutineInvoker(),
		log:       log,
	}, nil
}

// Run spawns every endpoint's task and ticks the simulation until all
// have finished.
func (s *Simulation) Run(tasks []Task) error {
	if len(tasks) != len(s.Endpoints) {
		return fmt.Errorf("network: expected %d tasks, got %d", len(s.Endpoints), len(tasks))
	}

	s.errs = make([]error, len(tasks))
	for i, task := range tasks {
		i, task := i, task
		ep := s.Endpoints[i]
		s.invoker.Spawn(func() {
			if err := task(ep); err != nil {
				s.errs[i] = err
			}
			ep.MarkDone()
		})
	}

	for !s.allDone() {
		if err := s.Net.Tick(); err != nil {
			return err
		}
		for _, e := range s.Endpoints {
			if err := e.Tick(); err != nil {
				return err
			}
		}
		s.ticks++
	}

	for _, err := range s.errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) allDone() bool {
	for _, e := range s.Endpoints {
		if !e.Done() {
			return false
		}
	}
	return true
}

// Ticks reports how many simulation steps Run consumed.
func (s *Simulation) Ticks() int {
	return s.ticks
}
