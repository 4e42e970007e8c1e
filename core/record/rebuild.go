package record

import (
	"errors"
	"fmt"
)

const ContainerType = "container"

var ErrMaskLength = errors.New("removal mask length does not match sequence length")

// Container is the flat aggregate produced by Rebuild. It has no payload of its own.
type Container struct {
	children []Record
}

type containerBuilder struct {
	children []Record
}

func (builder *containerBuilder) append(entry Record) {
	builder.children = append(builder.children, entry)
}

func (builder *containerBuilder) finalize() Container {
	children := make([]Record, len(builder.children))
	copy(children, builder.children)
	return Container{children: children}
}

func Rebuild(sequence FlatSequence, mask RemovalMask) (Container, error) {
	if len(sequence) != len(mask) {
		return Container{}, fmt.Errorf("%w: sequence=%d mask=%d", ErrMaskLength, len(sequence), len(mask))
	}
	builder := containerBuilder{children: make([]Record, 0, len(sequence))}
	for index, entry := range sequence {
		if mask[index] {
			continue
		}
		builder.append(entry)
	}
	return builder.finalize(), nil
}

func (container Container) Len() int {
	return len(container.children)
}

// Children returns a copy of the surviving records in order.
func (container Container) Children() []Record {
	children := make([]Record, len(container.children))
	copy(children, container.children)
	return children
}

// Record exposes the container as a root record for encoding.
func (container Container) Record() Record {
	return Record{Kind: KindContainer, Type: ContainerType, Children: container.Children()}
}
