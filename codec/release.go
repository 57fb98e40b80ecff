package codec

import "sync"

// Decoded messages arrive in bursts on the channel read path; the sequence
// backing slices are the bulk of the allocation churn, so they come from a
// pool and go back through Release.
var seqPool = sync.Pool{
	New: func() any { return make(Seq, 0, 16) },
}

func takeSeq(n int) Seq {
	s := seqPool.Get().(Seq)
	if cap(s) < n {
		return make(Seq, 0, n)
	}
	return s[:0]
}

// Release returns the storage a decoded value tree holds to the pool. The
// value must not be used afterwards. Values built by the caller for
// encoding are safe to pass too; Release only walks containers.
func Release(v Value) {
	switch t := v.(type) {
	case Seq:
		for _, e := range t {
			Release(e)
		}
		seqPool.Put(t[:0])
	case List:
		for _, e := range t {
			Release(e)
		}
	case Map:
		for _, e := range t {
			Release(e.Key)
			Release(e.Val)
		}
	case Opt:
		if t.Elem != nil {
			Release(t.Elem)
		}
	case Union:
		if t.Elem != nil {
			Release(t.Elem)
		}
	case Ref:
		if t.Elem != nil {
			Release(t.Elem)
		}
	}
}
