package sim

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/logging"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/mpi"
	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestLogger() logging.Logger {
	return logging.NewLogrusLogger(false)
}

func TestSimulationBroadcastAndBarrier(t *testing.T) {
	s, err := New(4, true, newTestLogger())
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}

	n := len(s.Endpoints)
	tasks := make([]Task, n)
	tasks[0] = func(e *mpi.Endpoint) error {
		if err := e.Broadcast([]float64{7, 8, 9}); err != nil {
			return err
		}
		return e.Barrier()
	}
	for i := 1; i < n; i++ {
		tasks[i] = func(e *mpi.Endpoint) error {
			data, err := e.ReceiveBroadcast()
			if err != nil {
				return err
			}
			if len(data) != 3 || data[0] != 7 {
				t.Errorf("endpoint %d got unexpected broadcast data %v", e.ID, data)
			}
			return e.Barrier()
		}
	}

	if err := s.Run(tasks); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.Ticks() == 0 {
		t.Fatalf("expected at least one simulation tick to have elapsed")
	}
}

func TestSimulationReduceToOneDestination(t *testing.T) {
	s, err := New(4, true, newTestLogger())
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}

	n := len(s.Endpoints)
	tasks := make([]Task, n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = func(e *mpi.Endpoint) error {
			res, err := e.Reduce(0, types.OpSum, []float64{1})
			if err != nil {
				return err
			}
			if i == 0 {
				if len(res) != 1 || res[0] != float64(n) {
					t.Errorf("expected reduce sum %d, got %v", n, res)
				}
			}
			return nil
		}
	}

	if err := s.Run(tasks); err != nil {
		t.Fatalf("run: %v", err)
	}
}
