package erasure

import "errors"

// ErrInvalidConfig is returned by New when n, k, or w describe a coder
// that cannot be constructed.
var ErrInvalidConfig = errors.New("erasure: invalid coder configuration")

// ErrBlockTooLarge is returned by New when the resulting data block would
// be 256 bytes or larger, which the end-of-stream length tag cannot
// represent in a single byte.
var ErrBlockTooLarge = errors.New("erasure: data block size must be under 256 bytes")

// ErrShardCount is returned when the number of shard readers or writers
// passed to Encode or Decode doesn't match the coder's configuration.
var ErrShardCount = errors.New("erasure: wrong number of shard readers or writers")

// ErrExcludedShards is returned when the excluded-shard list passed to
// Decode isn't exactly n-k distinct, in-range indices in ascending order.
var ErrExcludedShards = errors.New("erasure: excluded shard indices must be n-k distinct, sorted, in-range values")

// ErrCorruptLengthTag is returned when the embedded end-of-stream length
// tag read back from a final data block names the whole block or more: a
// final block's tag is always smaller than the block size.
var ErrCorruptLengthTag = errors.New("erasure: corrupt end-of-stream length tag")
