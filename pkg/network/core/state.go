package core

import (
	"fmt"

	"github.com/CaglayanDokme/in-network-computing-go/pkg/network/types"
)

// reduceState tracks one direction (to-up or to-down) of an ongoing
// Reduce fold. Exactly one Reduce per direction may be in flight on a
// switch at a time (§4.6, §9 Design Note 6); a second destination
// arriving mid-collective is a protocol violation.
type reduceState struct {
	ongoing     bool
	destination types.EndpointID
	op          types.ReduceOp
	value       []float64
	received    map[int]bool // relevant port idx -> contributed
}

func newReduceState() *reduceState {
	return &reduceState{received: make(map[int]bool)}
}

// start begins tracking a new reduce, seeding the rolling value from
// the first contribution.
func (s *reduceState) start(dest types.EndpointID, op types.ReduceOp, data []float64, relevant []int) {
	s.ongoing = true
	s.destination = dest
	s.op = op
	s.value = append([]float64(nil), data...)
	s.received = make(map[int]bool, len(relevant))
	for _, p := range relevant {
		s.received[p] = false
	}
}

// contribute folds data from sourcePort into the rolling value.
// Returns an error if sourcePort already contributed, or if op/size
// disagree with the established reduce (protocol corruption, §7).
func (s *reduceState) contribute(sourcePort int, op types.ReduceOp, data []float64) error {
	done, known := s.received[sourcePort]
	if !known {
		return fmt.Errorf("%w: port %d not part of this reduce", types.ErrDuplicateContribution, sourcePort)
	}
	if done {
		return fmt.Errorf("%w: port %d", types.ErrDuplicateContribution, sourcePort)
	}
	if op != s.op {
		return fmt.Errorf("%w: expected %s got %s", types.ErrOpMismatch, s.op, op)
	}
	if len(data) != len(s.value) {
		return fmt.Errorf("%w: expected %d got %d", types.ErrSizeMismatch, len(s.value), len(data))
	}
	s.value = types.Fold(op, s.value, data)
	s.received[sourcePort] = true
	return nil
}

// allReceived reports whether every relevant port has contributed.
func (s *reduceState) allReceived() bool {
	for _, done := range s.received {
		if !done {
			return false
		}
	}
	return true
}

func (s *reduceState) reset() {
	s.ongoing = false
	s.value = nil
	s.received = make(map[int]bool)
}

// aggregateReduceDownState tracks the to-down Reduce fold at an
// Aggregate switch. Its down-port contribution (the same-column edge
// below) always folds into the rolling value, but among its up-port
// contributions only the first folds in and is kept as a reference;
// every later up-port is checked for exact equality against that
// reference instead of being folded again, because every up-port
// independently carries the same core-computed sum for every pod but
// this one (Aggregate.cpp's upPortReferenceValue bookkeeping).
type aggregateReduceDownState struct {
	ongoing     bool
	destination types.EndpointID
	op          types.ReduceOp
	value       []float64
	upReference []float64
	received    map[int]bool
}

func newAggregateReduceDownState() *aggregateReduceDownState {
	return &aggregateReduceDownState{received: make(map[int]bool)}
}

func (s *aggregateReduceDownState) start(dest types.EndpointID, op types.ReduceOp, relevant []int) {
	s.ongoing = true
	s.destination = dest
	s.op = op
	s.value = nil
	s.upReference = nil
	s.received = make(map[int]bool, len(relevant))
	for _, p := range relevant {
		s.received[p] = false
	}
}

func (s *aggregateReduceDownState) contribute(portIdx int, op types.ReduceOp, data []float64, fromDownPort bool) error {
	done, known := s.received[portIdx]
	if !known {
		return fmt.Errorf("%w: port %d not part of this reduce", types.ErrDuplicateContribution, portIdx)
	}
	if done {
		return fmt.Errorf("%w: port %d", types.ErrDuplicateContribution, portIdx)
	}
	if op != s.op {
		return fmt.Errorf("%w: expected %s got %s", types.ErrOpMismatch, s.op, op)
	}
	if s.value != nil && len(data) != len(s.value) {
		return fmt.Errorf("%w: expected %d got %d", types.ErrSizeMismatch, len(s.value), len(data))
	}

	firstUpPortData := !fromDownPort && s.upReference == nil

	switch {
	case s.value == nil:
		s.value = append([]float64(nil), data...)
	case fromDownPort || firstUpPortData:
		s.value = types.Fold(op, s.value, data)
	}
	s.received[portIdx] = true

	if !fromDownPort {
		if firstUpPortData {
			s.upReference = append([]float64(nil), data...)
		} else {
			for i := range data {
				if data[i] != s.upReference[i] {
					return types.ErrValueMismatch
				}
			}
		}
	}
	return nil
}

func (s *aggregateReduceDownState) allReceived() bool {
	for _, done := range s.received {
		if !done {
			return false
		}
	}
	return true
}

func (s *aggregateReduceDownState) reset() {
	s.ongoing = false
	s.value = nil
	s.upReference = nil
	s.received = make(map[int]bool)
}

// reduceAllState tracks one direction of an ongoing ReduceAll. Unlike
// reduceState it carries no destination (every endpoint receives the
// result).
type reduceAllState struct {
	ongoing  bool
	op       types.ReduceOp
	value    []float64
	received map[int]bool
	started  bool
}

func newReduceAllState() *reduceAllState {
	return &reduceAllState{received: make(map[int]bool)}
}

func (s *reduceAllState) start(relevant []int) {
	s.ongoing = true
	s.started = false
	s.value = nil
	s.received = make(map[int]bool, len(relevant))
	for _, p := range relevant {
		s.received[p] = false
	}
}

// contribute folds or, for the downward verification phase, checks
// equality (§4.7's "must be equal, checked").
func (s *reduceAllState) contribute(sourcePort int, op types.ReduceOp, data []float64, fold bool) error {
	done, known := s.received[sourcePort]
	if !known {
		return fmt.Errorf("%w: port %d not part of this reduce-all", types.ErrDuplicateContribution, sourcePort)
	}
	if done {
		return fmt.Errorf("%w: port %d", types.ErrDuplicateContribution, sourcePort)
	}

	if !s.started {
		s.op = op
		s.value = append([]float64(nil), data...)
		s.started = true
	} else {
		if op != s.op {
			return fmt.Errorf("%w: expected %s got %s", types.ErrOpMismatch, s.op, op)
		}
		if len(data) != len(s.value) {
			return fmt.Errorf("%w: expected %d got %d", types.ErrSizeMismatch, len(s.value), len(data))
		}
		if fold {
			s.value = types.Fold(op, s.value, data)
		} else {
			for i := range data {
				if data[i] != s.value[i] {
					return types.ErrValueMismatch
				}
			}
		}
	}
	s.received[sourcePort] = true
	return nil
}

func (s *reduceAllState) allReceived() bool {
	for _, done := range s.received {
		if !done {
			return false
		}
	}
	return true
}

func (s *reduceAllState) reset() {
	s.ongoing = false
	s.started = false
	s.value = nil
	s.received = make(map[int]bool)
}

// bundleGatherState accumulates a variable-length InterSwitch.Gather
// entry list per contributing port, used at the Aggregate and Core
// tiers where a single port already carries many endpoints' chunks
// (unlike Edge, where one down-port is exactly one endpoint and
// gatherToUpState's fixed one-chunk-per-slot shape applies directly).
type bundleGatherState struct {
	ongoing     bool
	destination types.EndpointID
	expected    int
	received    map[int][]types.GatherEntry
}

func newBundleGatherState() *bundleGatherState {
	return &bundleGatherState{received: make(map[int][]types.GatherEntry)}
}

func (s *bundleGatherState) filled() bool {
	return len(s.received) >= s.expected
}

func (s *bundleGatherState) flatten() []types.GatherEntry {
	var out []types.GatherEntry
	for _, entries := range s.received {
		out = append(out, entries...)
	}
	return out
}

func (s *bundleGatherState) reset() {
	s.ongoing = false
	s.destination = 0
	s.expected = 0
	s.received = make(map[int][]types.GatherEntry)
}

// gatherToUpState accumulates one chunk per local down-port before
// packing an InterSwitch.Gather upward (§4.9).
type gatherToUpState struct {
	ongoing     bool
	destination types.EndpointID
	refSize     int
	slots       []types.GatherEntry // len == downPortAmount, Chunk nil until filled
}

func newGatherToUpState(downPortAmount int) *gatherToUpState {
	return &gatherToUpState{slots: make([]types.GatherEntry, downPortAmount)}
}

func (s *gatherToUpState) filled() bool {
	for _, e := range s.slots {
		if e.Chunk == nil {
			return false
		}
	}
	return true
}

func (s *gatherToUpState) reset() {
	s.ongoing = false
	s.destination = 0
	s.refSize = 0
	s.slots = make([]types.GatherEntry, len(s.slots))
}

// gatherToDownState accumulates contributions from every endpoint
// except the root itself (the root splices its own chunk in later,
// per the Open Question resolution in spec.md §9).
type gatherToDownState struct {
	ongoing     bool
	destination types.EndpointID
	refSize     int
	received    map[types.EndpointID][]float64
	expected    int
}

func newGatherToDownState() *gatherToDownState {
	return &gatherToDownState{received: make(map[types.EndpointID][]float64)}
}

func (s *gatherToDownState) reset() {
	s.ongoing = false
	s.refSize = 0
	s.expected = 0
	s.received = make(map[types.EndpointID][]float64)
}

// allGatherToUpState accumulates one chunk per local down-port before
// folding into an InterSwitch.AllGather upward.
type allGatherToUpState struct {
	ongoing bool
	refSize int
	slots   []types.GatherEntry
}

func newAllGatherToUpState(downPortAmount int) *allGatherToUpState {
	return &allGatherToUpState{slots: make([]types.GatherEntry, downPortAmount)}
}

func (s *allGatherToUpState) filled() bool {
	for _, e := range s.slots {
		if e.Chunk == nil {
			return false
		}
	}
	return true
}

func (s *allGatherToUpState) reset() {
	s.ongoing = false
	s.refSize = 0
	s.slots = make([]types.GatherEntry, len(s.slots))
}
