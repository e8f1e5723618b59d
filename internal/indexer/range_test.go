package indexer

import (
	"math"
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	cases := []struct {
		name      string
		from, to  uint64
		batchSize uint64
		want      []BlockRange
	}{
		{
			name: "uneven tail", from: 100, to: 105, batchSize: 2,
			want: []BlockRange{{From: 100, To: 101}, {From: 102, To: 103}, {From: 104, To: 105}},
		},
		{
			name: "single block", from: 5, to: 5, batchSize: 10,
			want: []BlockRange{{From: 5, To: 5}},
		},
		{
			name: "batch larger than span", from: 10, to: 14, batchSize: 100,
			want: []BlockRange{{From: 10, To: 14}},
		},
		{
			name: "end near uint64 max", from: math.MaxUint64 - 2, to: math.MaxUint64, batchSize: 1000,
			want: []BlockRange{{From: math.MaxUint64 - 2, To: math.MaxUint64}},
		},
	}

	for _, tc := range cases {
		got, err := SplitRange(tc.from, tc.to, tc.batchSize)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: %+v != %+v", tc.name, got, tc.want)
		}
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestBlockRangeString(t *testing.T) {
	if got := (BlockRange{From: 7, To: 12}).String(); got != "7-12" {
		t.Fatalf("string mismatch: %q", got)
	}
}
