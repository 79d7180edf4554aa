// Package erasure implements an MDS erasure code over GF(2^n):
// N shards are produced from K, any K of which are sufficient to recover
// the original data. The encoder and decoder matrices are Cauchy
// matrices, expanded into GF(2) so that every block is coded by XORing
// whole words together rather than doing field multiplication on the
// data path.
package erasure

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/edyu/odin-erasure/field"
	"github.com/edyu/odin-erasure/matrix"
)

// maxBlockSize is the smallest data block size the end-of-stream length
// tag cannot represent in a single byte; data blocks must be smaller.
const maxBlockSize = 256

// Coder encodes a byte stream into N shards, any K of which suffice to
// reconstruct the original stream. A Coder is immutable once constructed
// and safe for concurrent use: Encode and Decode share no mutable state,
// either with each other or across calls.
type Coder struct {
	n, k, w int
	field   *field.Field
	encoder *matrix.Matrix // N x K Cauchy matrix over field
	binEnc  *matrix.Matrix // its GF(2) expansion, shape (N*deg) x (K*deg)
}

// New constructs a Coder producing n shards from k, using words w bytes
// wide. w is typically 1, 2, 4, or 8, matching a convenient machine
// integer width, though any positive width works. The smallest field
// degree that can host n+k distinct Cauchy evaluation points is chosen
// automatically; New fails if no supported degree (1 through 7) is large
// enough, or if the resulting data block would be too large for the
// end-of-stream length tag to describe.
func New(n, k, w int) (*Coder, error) {
	if k < 1 || n < k {
		return nil, fmt.Errorf("%w: require 1 <= k <= n, got n=%d k=%d", ErrInvalidConfig, n, k)
	}
	if w < 1 {
		return nil, fmt.Errorf("%w: word width must be positive, got %d", ErrInvalidConfig, w)
	}
	deg := fieldDegreeFor(n + k)
	if deg == 0 {
		return nil, fmt.Errorf("%w: n+k=%d needs more than 128 Cauchy points, no supported field is large enough", ErrInvalidConfig, n+k)
	}
	f, err := field.New(deg)
	if err != nil {
		return nil, err
	}
	dataBlockSize := w * deg * k
	if dataBlockSize >= maxBlockSize {
		return nil, fmt.Errorf("%w: w*n*k=%d", ErrBlockTooLarge, dataBlockSize)
	}
	enc, err := matrix.NewCauchy(n, k, f)
	if err != nil {
		return nil, err
	}
	binEnc, err := enc.ToBinary()
	if err != nil {
		return nil, err
	}
	return &Coder{n: n, k: k, w: w, field: f, encoder: enc, binEnc: binEnc}, nil
}

// fieldDegreeFor returns the smallest supported field degree, at least 2,
// whose order is at least points, or 0 if none of the supported degrees
// is large enough.
func fieldDegreeFor(points int) int {
	for n := 2; n <= 7; n++ {
		if 1<<uint(n) >= points {
			return n
		}
	}
	return 0
}

// N returns the total number of shards produced by Encode.
func (c *Coder) N() int { return c.n }

// K returns the number of shards required to reconstruct the data.
func (c *Coder) K() int { return c.k }

// Encode reads data from r and writes exactly c.N() shards, one per
// writer in writers, reading blocks until r is exhausted. It returns the
// total number of bytes read from r.
func (c *Coder) Encode(r io.Reader, writers []io.Writer) (int64, error) {
	if len(writers) != c.n {
		return 0, fmt.Errorf("%w: need %d shard writers, got %d", ErrShardCount, c.n, len(writers))
	}
	deg := c.field.Degree()
	var total int64
	for {
		dataWords, blockSize, done, err := readDataBlock(r, deg, c.k, c.w)
		if err != nil {
			return total, errors.Wrap(err, "erasure: read data block")
		}
		codeWords := applyBinary(c.binEnc, dataWords)
		for shard := 0; shard < c.n; shard++ {
			base := shard * deg
			for j := 0; j < deg; j++ {
				if _, err := writers[shard].Write(codeWords[base+j]); err != nil {
					return total, errors.Wrapf(err, "erasure: write shard %d", shard)
				}
			}
		}
		total += int64(blockSize)
		if done {
			return total, nil
		}
	}
}

// Decode reconstructs the original stream from exactly c.K() shard
// readers, given the sorted, distinct indices of the n-k shards that were
// not supplied. The readers must be given in ascending shard-index order,
// skipping the excluded indices. It returns the total number of bytes
// written to w.
func (c *Coder) Decode(excluded []int, readers []io.Reader, w io.Writer) (int64, error) {
	if err := validateExcluded(excluded, c.n, c.k); err != nil {
		return 0, err
	}
	if len(readers) != c.k {
		return 0, fmt.Errorf("%w: need %d shard readers, got %d", ErrShardCount, c.k, len(readers))
	}
	decoder, err := c.decoderMatrix(excluded)
	if err != nil {
		return 0, err
	}
	binDec, err := decoder.ToBinary()
	if err != nil {
		return 0, err
	}

	peek := newPeekReader(readers[len(readers)-1])
	shardReaders := make([]io.Reader, len(readers))
	copy(shardReaders, readers)
	shardReaders[len(shardReaders)-1] = peek

	deg := c.field.Degree()
	var total int64
	for {
		codeWords, err := readCodeBlock(shardReaders, deg, c.w)
		if err != nil {
			return total, errors.Wrap(err, "erasure: read code block")
		}
		dataWords := applyBinary(binDec, codeWords)
		final := !peek.HasMore()
		n, err := writeDataBlock(w, dataWords, c.w, final)
		total += int64(n)
		if err != nil {
			return total, errors.Wrap(err, "erasure: write data block")
		}
		if final {
			return total, nil
		}
	}
}

// decoderMatrix returns the K x K inverse of the encoder's submatrix with
// the excluded rows removed: the matrix that recovers the original K
// words of a block from the K surviving shards' contributions.
func (c *Coder) decoderMatrix(excluded []int) (*matrix.Matrix, error) {
	sub, err := c.encoder.SubMatrix(excluded, nil)
	if err != nil {
		return nil, err
	}
	inv, err := sub.Invert()
	if err != nil {
		return nil, errors.Wrap(err, "erasure: excluded shards leave an unrecoverable block")
	}
	return inv, nil
}

func validateExcluded(excluded []int, n, k int) error {
	if len(excluded) != n-k {
		return fmt.Errorf("%w: need %d excluded indices, got %d", ErrExcludedShards, n-k, len(excluded))
	}
	if !sort.IntsAreSorted(excluded) {
		return fmt.Errorf("%w: indices must be ascending", ErrExcludedShards)
	}
	for i, idx := range excluded {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: index %d out of range [0,%d)", ErrExcludedShards, idx, n)
		}
		if i > 0 && excluded[i-1] == idx {
			return fmt.Errorf("%w: duplicate index %d", ErrExcludedShards, idx)
		}
	}
	return nil
}

// applyBinary XORs together the input words selected by each row of a
// GF(2)-expanded matrix, producing one output word per row. This is the
// coder's entire per-block hot path: binary-expanding the Cauchy matrix
// up front turns every multiply into a conditional XOR of whole words.
func applyBinary(m *matrix.Matrix, words [][]byte) [][]byte {
	wordLen := len(words[0])
	out := make([][]byte, m.Rows)
	for r := 0; r < m.Rows; r++ {
		acc := make([]byte, wordLen)
		for c := 0; c < m.Cols; c++ {
			if m.Get(r, c) != 0 {
				xorInto(acc, words[c])
			}
		}
		out[r] = acc
	}
	return out
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// EncodeBytes is a buffer-oriented convenience wrapper over Encode for
// callers holding the whole input in memory.
func (c *Coder) EncodeBytes(data []byte) ([][]byte, error) {
	buffers := make([]*bytes.Buffer, c.n)
	writers := make([]io.Writer, c.n)
	for i := range buffers {
		buffers[i] = new(bytes.Buffer)
		writers[i] = buffers[i]
	}
	if _, err := c.Encode(bytes.NewReader(data), writers); err != nil {
		return nil, err
	}
	shards := make([][]byte, c.n)
	for i, b := range buffers {
		shards[i] = b.Bytes()
	}
	return shards, nil
}

// DecodeBytes is a buffer-oriented convenience wrapper over Decode for
// callers holding the surviving shards in memory.
func (c *Coder) DecodeBytes(excluded []int, shards [][]byte) ([]byte, error) {
	readers := make([]io.Reader, len(shards))
	for i, s := range shards {
		readers[i] = bytes.NewReader(s)
	}
	var buf bytes.Buffer
	if _, err := c.Decode(excluded, readers, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
