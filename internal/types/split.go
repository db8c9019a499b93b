package types

// ====== Type Split ======

// Split returns an upper bound of a with b removed: the result is a
// subtype of a and Union{result, b} equals Union{a, b}. b should be a
// simple type; the result relies on the oracle handling it well.
func (l *Lattice) Split(a, b Type) Type {
	if l.oracle.IsSubtype(a, b) {
		return Bottom
	}
	if u, ok := a.(*Union); ok {
		return NewUnion(l.Split(u.A, b), l.Split(u.B, b))
	}
	return a
}

// Union builds the union of ts and drops members subsumed by another
// member, so Union{Int64, Real} collapses to Real.
func (l *Lattice) Union(ts ...Type) Type {
	members := UnionMembers(NewUnion(ts...))
	kept := make([]Type, 0, len(members))
	for i, m := range members {
		subsumed := false
		for j, o := range members {
			if i == j || !l.oracle.IsSubtype(m, o) {
				continue
			}
			// Of two equivalent members keep the first.
			if j > i && l.oracle.IsSubtype(o, m) {
				continue
			}
			subsumed = true
			break
		}
		if !subsumed {
			kept = append(kept, m)
		}
	}
	return NewUnion(kept...)
}
