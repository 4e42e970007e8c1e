package record

import "bytes"

type Kind uint8

const (
	KindOther Kind = iota
	KindAction
	KindUndo
	// KindContainer wraps a compacted sequence. It is never a record of its own:
	// Flatten emits its children and skips the wrapper.
	KindContainer
)

func (kind Kind) String() string {
	switch kind {
	case KindAction:
		return "action"
	case KindUndo:
		return "undo"
	case KindContainer:
		return "container"
	default:
		return "other"
	}
}

// Record is one recorded unit of a session log. Payload is opaque to everything in
// this package; only Kind and InProgress drive compaction.
type Record struct {
	Kind       Kind
	Type       string
	Payload    []byte
	InProgress bool
	Children   []Record
}

type FlatSequence []Record

// RemovalMask marks positions of a FlatSequence that rebuild drops.
type RemovalMask []bool

func Action(recordType string, payload []byte) Record {
	return Record{Kind: KindAction, Type: recordType, Payload: payload}
}

func UndoStart() Record {
	return Record{Kind: KindUndo, Type: "undo", InProgress: true}
}

func UndoEnd() Record {
	return Record{Kind: KindUndo, Type: "undo", InProgress: false}
}

func Other(recordType string, payload []byte, children ...Record) Record {
	return Record{Kind: KindOther, Type: recordType, Payload: payload, Children: children}
}

func (record Record) IsAction() bool {
	return record.Kind == KindAction
}

func (record Record) IsUndo() bool {
	return record.Kind == KindUndo
}

func (record Record) IsUndoStart() bool {
	return record.Kind == KindUndo && record.InProgress
}

func (record Record) IsUndoEnd() bool {
	return record.Kind == KindUndo && !record.InProgress
}

// Equal compares two records including their children.
func (record Record) Equal(other Record) bool {
	if record.Kind != other.Kind || record.Type != other.Type || record.InProgress != other.InProgress {
		return false
	}
	if !bytes.Equal(record.Payload, other.Payload) {
		return false
	}
	if len(record.Children) != len(other.Children) {
		return false
	}
	for index := range record.Children {
		if !record.Children[index].Equal(other.Children[index]) {
			return false
		}
	}
	return true
}

func (sequence FlatSequence) CountUndo() int {
	count := 0
	for _, entry := range sequence {
		if entry.IsUndo() {
			count++
		}
	}
	return count
}
