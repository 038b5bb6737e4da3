package types

import "testing"

func TestFold(t *testing.T) {
	a := []float64{1, 4, 2}
	b := []float64{3, 2, 5}

	cases := []struct {
		op   ReduceOp
		want []float64
	}{
		{OpSum, []float64{4, 6, 7}},
		{OpMultiply, []float64{3, 8, 10}},
		{OpMax, []float64{3, 4, 5}},
		{OpMin, []float64{1, 2, 2}},
	}
	for _, c := range cases {
		got := Fold(c.op, a, b)
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%s: expected %v, got %v", c.op, c.want, got)
			}
		}
	}
}

func TestMessageSizeDerivedFromPayload(t *testing.T) {
	empty := Message{Payload: BarrierRequestPayload{}}
	if empty.Size() != headerBytes {
		t.Fatalf("expected bare header cost for empty payload, got %d", empty.Size())
	}

	withData := Message{Payload: DirectPayload{Data: []float64{1, 2, 3}}}
	want := headerBytes + floatBytes*3
	if withData.Size() != want {
		t.Fatalf("expected %d, got %d", want, withData.Size())
	}
}

func TestCheckProtocolVersion(t *testing.T) {
	if err := CheckProtocolVersion(CurrentProtocolVersion); err != nil {
		t.Fatalf("current version rejected: %v", err)
	}
	if err := CheckProtocolVersion(99); err == nil {
		t.Fatalf("expected unsupported-version error for v=99")
	}
}
