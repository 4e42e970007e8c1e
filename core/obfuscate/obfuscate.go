package obfuscate

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Header prefixes every obfuscated stream. It is followed by the key byte as two
// hex digits, then every payload byte XOR key as two hex digits.
const Header = "!VCSK"

var ErrMalformed = errors.New("malformed obfuscated stream")

type Reader struct {
	source     *bufio.Reader
	key        byte
	obfuscated bool
	pair       [2]byte
}

// NewReader sniffs the header. Streams without it are passed through unchanged.
func NewReader(source io.Reader) (*Reader, error) {
	buffered := bufio.NewReader(source)
	prefix, err := buffered.Peek(len(Header))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read obfuscation header: %w", err)
	}
	reader := &Reader{source: buffered}
	if !bytes.Equal(prefix, []byte(Header)) {
		return reader, nil
	}
	if _, err := buffered.Discard(len(Header)); err != nil {
		return nil, fmt.Errorf("skip obfuscation header: %w", err)
	}
	key, err := reader.readHexByte()
	if err != nil {
		return nil, fmt.Errorf("read obfuscation key: %w", err)
	}
	reader.key = key
	reader.obfuscated = true
	return reader, nil
}

func (reader *Reader) Obfuscated() bool {
	return reader.obfuscated
}

func (reader *Reader) Key() byte {
	return reader.key
}

func (reader *Reader) Read(buffer []byte) (int, error) {
	if !reader.obfuscated {
		return reader.source.Read(buffer)
	}
	written := 0
	for written < len(buffer) {
		value, err := reader.readHexByte()
		if err != nil {
			if errors.Is(err, io.EOF) && written > 0 {
				return written, nil
			}
			return written, err
		}
		buffer[written] = value ^ reader.key
		written++
		if reader.source.Buffered() == 0 {
			break
		}
	}
	return written, nil
}

func (reader *Reader) readHexByte() (byte, error) {
	if _, err := io.ReadFull(reader.source, reader.pair[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: odd number of hex digits", ErrMalformed)
		}
		return 0, err
	}
	var decoded [1]byte
	if _, err := hex.Decode(decoded[:], reader.pair[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decoded[0], nil
}

type Writer struct {
	target        io.Writer
	key           byte
	headerWritten bool
	scratch       []byte
}

func NewWriter(target io.Writer, key byte) *Writer {
	return &Writer{target: target, key: key}
}

func (writer *Writer) Write(payload []byte) (int, error) {
	if err := writer.writeHeader(); err != nil {
		return 0, err
	}
	needed := hex.EncodedLen(len(payload))
	if cap(writer.scratch) < needed {
		writer.scratch = make([]byte, needed)
	}
	encoded := writer.scratch[:needed]
	for index, value := range payload {
		hex.Encode(encoded[index*2:index*2+2], []byte{value ^ writer.key})
	}
	if _, err := writer.target.Write(encoded); err != nil {
		return 0, err
	}
	return len(payload), nil
}

// Close emits the header for empty payloads. It does not close the target.
func (writer *Writer) Close() error {
	return writer.writeHeader()
}

func (writer *Writer) writeHeader() error {
	if writer.headerWritten {
		return nil
	}
	writer.headerWritten = true
	header := Header + hex.EncodeToString([]byte{writer.key})
	if _, err := io.WriteString(writer.target, header); err != nil {
		return fmt.Errorf("write obfuscation header: %w", err)
	}
	return nil
}

func Obfuscate(payload []byte, key byte) []byte {
	var buffer bytes.Buffer
	writer := NewWriter(&buffer, key)
	_, _ = writer.Write(payload)
	_ = writer.Close()
	return buffer.Bytes()
}

// Deobfuscate reverses Obfuscate and reports the key. Plain input is returned as-is.
func Deobfuscate(data []byte) ([]byte, byte, bool, error) {
	reader, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, false, err
	}
	plain, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, false, err
	}
	return plain, reader.Key(), reader.Obfuscated(), nil
}
