package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BinaryReader reads big-endian class file data from an in-memory buffer.
// Class files are small and the code walker needs absolute offsets for
// switch padding, so the whole file is kept in memory.
type BinaryReader struct {
	data []byte
	pos  int
}

func NewBinaryReader(data []byte) *BinaryReader {
	return &BinaryReader{data: data}
}

// Pos returns the current offset from the start of the buffer
func (br *BinaryReader) Pos() int {
	return br.pos
}

func (br *BinaryReader) Remaining() int {
	return len(br.data) - br.pos
}

// ReadNBytes reads exactly n bytes and advances the position
func (br *BinaryReader) ReadNBytes(n int) ([]byte, error) {
	if n < 0 || n > br.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			io.ErrUnexpectedEOF, n, br.pos, br.Remaining())
	}
	buf := br.data[br.pos : br.pos+n]
	br.pos += n
	return buf, nil
}

// ReadU1 reads a single unsigned byte
func (br *BinaryReader) ReadU1() (uint8, error) {
	buf, err := br.ReadNBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadU2 reads a 2-byte unsigned integer (big-endian)
func (br *BinaryReader) ReadU2() (uint16, error) {
	buf, err := br.ReadNBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadU4 reads a 4-byte unsigned integer (big-endian)
func (br *BinaryReader) ReadU4() (uint32, error) {
	buf, err := br.ReadNBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadI4 reads a 4-byte signed integer (big-endian)
func (br *BinaryReader) ReadI4() (int32, error) {
	v, err := br.ReadU4()
	return int32(v), err
}

// ReadU8 reads an 8-byte unsigned integer (big-endian)
func (br *BinaryReader) ReadU8() (uint64, error) {
	buf, err := br.ReadNBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// Skip skips n bytes
func (br *BinaryReader) Skip(n int) error {
	if _, err := br.ReadNBytes(n); err != nil {
		return fmt.Errorf("failed to skip %d bytes: %w", n, err)
	}
	return nil
}
