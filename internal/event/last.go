package event

// classifyLast reports a CL event when both transcripts diverge at the 3'
// end with at least one unique exon each after their last shared exon.
func classifyLast(g *Gene, a, b *transcript) (*Record, bool) {
	if len(a.exons) == 0 || len(b.exons) == 0 {
		return nil, false
	}

	txA := ByTranscriptionOrder(a.exons, g.Strand)
	txB := ByTranscriptionOrder(b.exons, g.Strand)
	if txA[len(txA)-1] == txB[len(txB)-1] {
		return nil, false
	}

	shared := Intersect(a.exons, b.exons)
	if len(shared) == 0 {
		return nil, false
	}
	txShared := ByTranscriptionOrder(shared, g.Strand)
	anchor := txShared[len(txShared)-1]

	uniqueA := tailAfter(txA, anchor)
	uniqueB := tailAfter(txB, anchor)
	if len(uniqueA) == 0 || len(uniqueB) == 0 {
		return nil, false
	}

	r := g.newRecord(Last)
	assign(r, a, b, uniqueA, uniqueB)
	r.Upstream = anchor
	return r, true
}

// tailAfter scans a transcription-ordered list from its 3' end back to anchor
// and returns the exons 3'-ward of anchor, in transcription order.
func tailAfter(exons []Exon, anchor Exon) []Exon {
	for i := len(exons) - 1; i >= 0; i-- {
		if exons[i] == anchor {
			tail := make([]Exon, len(exons)-i-1)
			copy(tail, exons[i+1:])
			return tail
		}
	}
	return nil
}
