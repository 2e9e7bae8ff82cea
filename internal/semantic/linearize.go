package semantic

import (
	"ember/internal/ast"
)

// linearize computes the C3 linearization of a contract's inheritance
// graph, most-derived first. Direct bases are merged in reverse source
// order, so that in `contract D is B, C` the linearization is D, C, B and
// constructors execute base-most first as B, C, D-wards.
//
// Returns nil when no consistent order exists.
func linearize(c *ast.Contract, direct []*ast.Contract) []*ast.Contract {
	var seqs [][]*ast.Contract
	for i := len(direct) - 1; i >= 0; i-- {
		base := direct[i]
		seq := make([]*ast.Contract, len(base.Linearized))
		copy(seq, base.Linearized)
		seqs = append(seqs, seq)
	}
	rev := make([]*ast.Contract, 0, len(direct))
	for i := len(direct) - 1; i >= 0; i-- {
		rev = append(rev, direct[i])
	}
	if len(rev) > 0 {
		seqs = append(seqs, rev)
	}

	result := []*ast.Contract{c}
	for {
		seqs = dropEmpty(seqs)
		if len(seqs) == 0 {
			return result
		}
		next := pickHead(seqs)
		if next == nil {
			return nil
		}
		result = append(result, next)
		for i, seq := range seqs {
			if len(seq) > 0 && seq[0] == next {
				seqs[i] = seq[1:]
			}
		}
	}
}

// pickHead finds the first sequence head that appears in no other
// sequence's tail.
func pickHead(seqs [][]*ast.Contract) *ast.Contract {
	for _, seq := range seqs {
		head := seq[0]
		if !inAnyTail(head, seqs) {
			return head
		}
	}
	return nil
}

func inAnyTail(c *ast.Contract, seqs [][]*ast.Contract) bool {
	for _, seq := range seqs {
		for _, other := range seq[1:] {
			if other == c {
				return true
			}
		}
	}
	return false
}

func dropEmpty(seqs [][]*ast.Contract) [][]*ast.Contract {
	out := seqs[:0]
	for _, seq := range seqs {
		if len(seq) > 0 {
			out = append(out, seq)
		}
	}
	return out
}
