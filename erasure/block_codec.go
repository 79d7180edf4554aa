package erasure

import "io"

// readWord reads exactly w bytes from r into a fresh buffer. A short or
// empty read is not an error here: it is the signal readDataBlock uses to
// recognize the final block of a stream, so EOF and io.ErrUnexpectedEOF
// are folded into a plain (buf, n, nil) and only reported as real errors
// to the caller if propagated for another reason.
func readWord(r io.Reader, w int) (buf []byte, n int, err error) {
	buf = make([]byte, w)
	n, err = io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	return buf, n, err
}

// readDataBlock reads one data block of deg*k words, each w bytes, from
// r. It returns blockSize, the number of real payload bytes found in
// this block, and done, whether the stream ended partway through it. Any
// word short of w bytes has its final byte overwritten with blockSize
// truncated to 8 bits; every word from the first short read onward is
// short (and carries the same frozen blockSize), so the tag decode reads
// back from the block's last word always reflects the true count.
func readDataBlock(r io.Reader, deg, k, w int) (words [][]byte, blockSize int, done bool, err error) {
	total := deg * k
	dataBlockSize := w * total
	words = make([][]byte, total)
	for i := 0; i < total; i++ {
		buf, n, rerr := readWord(r, w)
		if rerr != nil {
			return nil, 0, false, rerr
		}
		blockSize += n
		if n < w {
			buf[w-1] = byte(blockSize)
		}
		words[i] = buf
	}
	return words, blockSize, blockSize < dataBlockSize, nil
}

// writeDataBlock writes a decoded data block's real payload bytes to dst.
// A non-final block is written in full. A final block instead trusts the
// length tag burned into the last byte of its last word, and writes only
// that many leading bytes across the concatenated word buffers: the tag
// only ever overwrites bytes beyond the real payload, so truncating there
// reproduces the original stream exactly.
func writeDataBlock(dst io.Writer, words [][]byte, w int, final bool) (int, error) {
	dataBlockSize := w * len(words)
	if !final {
		for _, word := range words {
			if _, err := dst.Write(word); err != nil {
				return 0, err
			}
		}
		return dataBlockSize, nil
	}
	last := words[len(words)-1]
	n := int(last[w-1])
	if n >= dataBlockSize {
		return 0, ErrCorruptLengthTag
	}
	written := 0
	for _, word := range words {
		if written >= n {
			break
		}
		take := w
		if written+take > n {
			take = n - written
		}
		if _, err := dst.Write(word[:take]); err != nil {
			return written, err
		}
		written += take
	}
	return written, nil
}

// readCodeBlock reads deg words of w bytes each from every reader in
// readers, one shard's contribution to a code block per reader, and
// returns them concatenated in reader order.
func readCodeBlock(readers []io.Reader, deg, w int) ([][]byte, error) {
	words := make([][]byte, len(readers)*deg)
	for s, r := range readers {
		for j := 0; j < deg; j++ {
			buf := make([]byte, w)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			words[s*deg+j] = buf
		}
	}
	return words, nil
}

// peekReader wraps an io.Reader with a one-byte lookahead buffer so a
// caller can ask HasMore without consuming from the underlying stream.
// Decode uses this on a single representative shard to detect the final
// code block without relying on a short read, since code blocks (unlike
// data blocks) are always full size.
type peekReader struct {
	r    io.Reader
	peek [1]byte
	has  bool
	err  error
}

func newPeekReader(r io.Reader) *peekReader { return &peekReader{r: r} }

func (p *peekReader) fill() {
	if p.has || p.err != nil {
		return
	}
	n, err := p.r.Read(p.peek[:])
	if n > 0 {
		p.has = true
	}
	if err != nil && n == 0 {
		p.err = err
	}
}

// HasMore reports whether at least one more byte is available to read.
func (p *peekReader) HasMore() bool {
	p.fill()
	return p.has
}

func (p *peekReader) Read(dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	n := 0
	if p.has {
		dst[0] = p.peek[0]
		p.has = false
		n = 1
		dst = dst[1:]
	} else if p.err != nil {
		return 0, p.err
	}
	if len(dst) == 0 {
		return n, nil
	}
	m, err := p.r.Read(dst)
	return n + m, err
}
