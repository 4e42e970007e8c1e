package record

// Bracket is one resolved undo episode. Undone is the index of the action the
// episode reverted, or -1 when no action precedes the start marker.
type Bracket struct {
	Start  int
	End    int
	Undone int
}

type Analysis struct {
	Mask            RemovalMask
	Brackets        []Bracket
	UnmatchedStarts []int
}

func (analysis Analysis) Removed() int {
	removed := 0
	for _, drop := range analysis.Mask {
		if drop {
			removed++
		}
	}
	return removed
}

func Compact(sequence FlatSequence) RemovalMask {
	return Analyze(sequence).Mask
}

// Analyze resolves undo brackets first-match and non-overlapping. A start marker
// inside an already resolved span is consumed by that span. An end marker is
// claimed at most once. Unmatched starts remove nothing.
func Analyze(sequence FlatSequence) Analysis {
	analysis := Analysis{Mask: make(RemovalMask, len(sequence))}
	consumed := make([]bool, len(sequence))
	claimed := make([]bool, len(sequence))

	for index := 0; index < len(sequence); index++ {
		if !sequence[index].IsUndoStart() || consumed[index] {
			continue
		}
		end := findUnclaimedEnd(sequence, claimed, index+1)
		if end < 0 {
			analysis.UnmatchedStarts = append(analysis.UnmatchedStarts, index)
			continue
		}
		claimed[end] = true
		for position := index; position <= end; position++ {
			analysis.Mask[position] = true
			consumed[position] = true
		}
		undone := findPrecedingAction(sequence, index-1)
		if undone >= 0 {
			analysis.Mask[undone] = true
		}
		analysis.Brackets = append(analysis.Brackets, Bracket{Start: index, End: end, Undone: undone})
	}
	return analysis
}

func findUnclaimedEnd(sequence FlatSequence, claimed []bool, from int) int {
	for position := from; position < len(sequence); position++ {
		if sequence[position].IsUndoEnd() && !claimed[position] {
			return position
		}
	}
	return -1
}

func findPrecedingAction(sequence FlatSequence, from int) int {
	for position := from; position >= 0; position-- {
		if sequence[position].IsAction() {
			return position
		}
	}
	return -1
}
