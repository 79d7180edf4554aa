package erasure

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEndToEnd encodes a known string with (N=5,K=3,w=8) and decodes it
// back under every possible pair of excluded shards.
func TestEndToEnd(t *testing.T) {
	c, err := New(5, 3, 8)
	require.NoError(t, err)
	input := []byte("The quick brown fox jumps over the lazy dog.")
	require.Len(t, input, 44)
	shards, err := c.EncodeBytes(input)
	require.NoError(t, err)
	require.Len(t, shards, 5)

	for a := 0; a < 5; a++ {
		for b := a + 1; b < 5; b++ {
			excluded := []int{a, b}
			var surviving [][]byte
			for i, s := range shards {
				if i == a || i == b {
					continue
				}
				surviving = append(surviving, s)
			}
			got, err := c.DecodeBytes(excluded, surviving)
			if err != nil {
				t.Fatalf("DecodeBytes excluding %v: %v", excluded, err)
			}
			if !bytes.Equal(got, input) {
				t.Fatalf("excluding %v: got %q, want %q", excluded, got, input)
			}
			if len(got) != 44 {
				t.Fatalf("excluding %v: decoded length = %d, want 44", excluded, len(got))
			}
		}
	}
}

// TestRoundTripVariousShapes checks that several (N,K,w) combinations
// round-trip for every possible excluded set, across a few input
// lengths including ones that don't divide the block size evenly.
func TestRoundTripVariousShapes(t *testing.T) {
	type shape struct{ n, k, w int }
	shapes := []shape{
		{4, 2, 1},
		{6, 4, 2},
		{3, 1, 4},
	}
	lengths := []int{0, 1, 7, 64, 100}

	for _, sh := range shapes {
		c, err := New(sh.n, sh.k, sh.w)
		if err != nil {
			t.Fatalf("New(%d,%d,%d): %v", sh.n, sh.k, sh.w, err)
		}
		for _, length := range lengths {
			data := make([]byte, length)
			for i := range data {
				data[i] = byte(i*7 + 3)
			}
			shards, err := c.EncodeBytes(data)
			if err != nil {
				t.Fatalf("EncodeBytes shape=%+v len=%d: %v", sh, length, err)
			}
			for _, excluded := range combinations(sh.n, sh.n-sh.k) {
				skip := make(map[int]bool, len(excluded))
				for _, e := range excluded {
					skip[e] = true
				}
				var surviving [][]byte
				for i, s := range shards {
					if !skip[i] {
						surviving = append(surviving, s)
					}
				}
				got, err := c.DecodeBytes(excluded, surviving)
				if err != nil {
					t.Fatalf("DecodeBytes shape=%+v len=%d excluded=%v: %v", sh, length, excluded, err)
				}
				if !bytes.Equal(got, data) {
					t.Fatalf("shape=%+v len=%d excluded=%v: round trip mismatch", sh, length, excluded)
				}
			}
		}
	}
}

// combinations returns every size-r ascending index combination from
// [0,n), in ascending order, matching the order Decode requires.
func combinations(n, r int) [][]int {
	if r == 0 {
		return [][]int{{}}
	}
	var out [][]int
	idx := make([]int, r)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]int, r)
		copy(combo, idx)
		out = append(out, combo)
		i := r - 1
		for i >= 0 && idx[i] == n-r+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < r; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return out
}

func TestNewRejectsBadShapes(t *testing.T) {
	if _, err := New(3, 5, 1); err == nil {
		t.Fatal("k > n should be rejected")
	}
	if _, err := New(3, 0, 1); err == nil {
		t.Fatal("k < 1 should be rejected")
	}
	if _, err := New(3, 2, 0); err == nil {
		t.Fatal("w < 1 should be rejected")
	}
}

func TestNewRejectsOversizedBlock(t *testing.T) {
	if _, err := New(30, 20, 8); err == nil {
		t.Fatal("oversized data block should be rejected")
	}
}

func TestDecodeValidatesExcludedShards(t *testing.T) {
	c, err := New(5, 3, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := make([]byte, 10)
	shards, err := c.EncodeBytes(data)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	cases := [][]int{
		{0},     // wrong length
		{1, 0},  // not ascending
		{0, 0},  // duplicate
		{0, 10}, // out of range
	}
	for _, excluded := range cases {
		if _, err := c.DecodeBytes(excluded, shards[:3]); err == nil {
			t.Fatalf("excluded=%v should be rejected", excluded)
		}
	}
}

// TestByteCountIdentity checks that the total bytes Encode reports
// reading equals len(input), for inputs that are and aren't exact
// multiples of the data block size.
func TestByteCountIdentity(t *testing.T) {
	c, err := New(5, 3, 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dataBlockSize := 8 * 3 * 3 // w * deg * k
	lengths := []int{0, 1, dataBlockSize - 1, dataBlockSize, dataBlockSize + 5, dataBlockSize * 3}
	for _, length := range lengths {
		data := make([]byte, length)
		writers := make([]io.Writer, c.N())
		for i := range writers {
			writers[i] = new(bytes.Buffer)
		}
		n, err := c.Encode(bytes.NewReader(data), writers)
		if err != nil {
			t.Fatalf("Encode length=%d: %v", length, err)
		}
		if n != int64(length) {
			t.Fatalf("Encode length=%d reported %d bytes", length, n)
		}
	}
}

func TestBinaryExpansionShape(t *testing.T) {
	c, err := New(5, 3, 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	deg := c.field.Degree()
	if c.binEnc.Rows != 5*deg || c.binEnc.Cols != 3*deg {
		t.Fatalf("unexpected binary expansion shape %dx%d", c.binEnc.Rows, c.binEnc.Cols)
	}
}
