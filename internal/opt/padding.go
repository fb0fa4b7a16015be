package opt

import (
	"sync/atomic"
	"unsafe"
)

// PaddedUint64_ is an atomic word that owns a whole cache line, so stores to
// a neighbouring PaddedUint64_ never invalidate it.
type PaddedUint64_ struct {
	atomic.Uint64
	_ [(CacheLineSize_ - unsafe.Sizeof(atomic.Uint64{})%CacheLineSize_) % CacheLineSize_]byte
}
