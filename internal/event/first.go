package event

// classifyFirst reports a CF event when both transcripts diverge at the 5'
// end with at least one unique exon each before their first shared exon.
func classifyFirst(g *Gene, a, b *transcript) (*Record, bool) {
	if len(a.exons) == 0 || len(b.exons) == 0 {
		return nil, false
	}

	txA := ByTranscriptionOrder(a.exons, g.Strand)
	txB := ByTranscriptionOrder(b.exons, g.Strand)
	if txA[0] == txB[0] {
		return nil, false
	}

	shared := Intersect(a.exons, b.exons)
	if len(shared) == 0 {
		return nil, false
	}
	anchor := ByTranscriptionOrder(shared, g.Strand)[0]

	inShared := newExonSet(shared)
	uniqueA := headUntilShared(txA, inShared)
	uniqueB := headUntilShared(txB, inShared)
	if len(uniqueA) == 0 || len(uniqueB) == 0 {
		return nil, false
	}

	r := g.newRecord(First)
	assign(r, a, b, uniqueA, uniqueB)
	r.Downstream = anchor
	return r, true
}

// headUntilShared returns the leading exons of a transcription-ordered list
// up to, not including, the first shared exon.
func headUntilShared(exons []Exon, shared exonSet) []Exon {
	var head []Exon
	for _, e := range exons {
		if shared.has(e) {
			break
		}
		head = append(head, e)
	}
	return head
}
