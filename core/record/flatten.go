package record

// Flatten walks root depth-first in pre-order and returns every node exactly once.
// Entries are shallow copies without children; nesting does not survive flattening.
// Container nodes are transparent, so a rebuilt log flattens to the sequence it
// was rebuilt from.
func Flatten(root *Record) FlatSequence {
	if root == nil {
		return FlatSequence{}
	}
	sequence := make(FlatSequence, 0, countNodes(*root))
	return appendPreOrder(sequence, *root)
}

func appendPreOrder(sequence FlatSequence, node Record) FlatSequence {
	if node.Kind != KindContainer {
		flat := node
		flat.Children = nil
		sequence = append(sequence, flat)
	}
	for _, child := range node.Children {
		sequence = appendPreOrder(sequence, child)
	}
	return sequence
}

func countNodes(node Record) int {
	total := 1
	for _, child := range node.Children {
		total += countNodes(child)
	}
	return total
}
