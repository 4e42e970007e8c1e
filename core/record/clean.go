package record

type Result struct {
	Container       Container
	InputRecords    int
	RemovedRecords  int
	Brackets        []Bracket
	UnmatchedStarts []int
}

// Clean flattens root, removes every resolved undo bracket together with the
// action it undid, and rebuilds the survivors into a flat container.
func Clean(root *Record) (Result, error) {
	sequence := Flatten(root)
	analysis := Analyze(sequence)
	container, err := Rebuild(sequence, analysis.Mask)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Container:       container,
		InputRecords:    len(sequence),
		RemovedRecords:  analysis.Removed(),
		Brackets:        analysis.Brackets,
		UnmatchedStarts: analysis.UnmatchedStarts,
	}, nil
}
