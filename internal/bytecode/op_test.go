package bytecode

import "testing"

func TestOpKindString(t *testing.T) {
	tests := []struct {
		k    OpKind
		want string
	}{
		{Zero, "Zero"},
		{Inc, "Inc"},
		{Dec, "Dec"},
		{IncPtr, "IncPtr"},
		{DecPtr, "DecPtr"},
		{Read, "Read"},
		{Write, "Write"},
		{LStart, "LStart"},
		{LEnd, "LEnd"},
		{WLStart, "WLStart"},
		{WLEnd, "WLEnd"},
		{Multiply, "Multiply"},
		{OpKind(255), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.k.String(); got != tc.want {
			t.Errorf("OpKind(%d).String() = %q, want %q", tc.k, got, tc.want)
		}
	}
}
