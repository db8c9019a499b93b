package types

import (
	"github.com/cespare/xxhash/v2"
	ristretto "github.com/dgraph-io/ristretto/v2"
)

// joinCache memoizes Join results. Entries keep their operands so a hash
// collision is detected by structural comparison instead of returning a
// foreign result.
type joinCache struct {
	c *ristretto.Cache[uint64, joinEntry]
}

type joinEntry struct {
	a, b, result Type
}

func newJoinCache(size int64) (*joinCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[uint64, joinEntry]{
		NumCounters:        size * 10,
		MaxCost:            size,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &joinCache{c: c}, nil
}

func joinKey(a, b Type) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(a.String())
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(b.String())
	return d.Sum64()
}

func (jc *joinCache) get(a, b Type) (Type, bool) {
	e, ok := jc.c.Get(joinKey(a, b))
	if !ok || !Equal(e.a, a) || !Equal(e.b, b) {
		return nil, false
	}
	return e.result, true
}

func (jc *joinCache) put(a, b, result Type) {
	jc.c.Set(joinKey(a, b), joinEntry{a: a, b: b, result: result}, 1)
}

func (jc *joinCache) close() { jc.c.Close() }
