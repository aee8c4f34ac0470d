package core

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
)

// SerializationHeader precedes every serialized tensor.
type SerializationHeader struct {
	Magic    uint32 // "CVCA"
	Version  uint16 // format version
	Rank     uint16 // number of shape entries that follow
	Checksum uint32 // crc32 (IEEE) over shape and data
}

const (
	SerializationMagic   = 0x41435643 // "CVCA" in little endian
	SerializationVersion = 1
	HeaderSize           = 12 // sizeof(SerializationHeader)
	maxRank              = 8
)

var (
	ErrMagic     = errors.New("invalid magic number")
	ErrVersion   = errors.New("unsupported serialization version")
	ErrTruncated = errors.New("serialized tensor truncated")
	ErrChecksum  = errors.New("data corruption detected")
)

// Serialize encodes a tensor as header, shape (uint32 each) and
// little-endian float32 data.
func Serialize(t *Tensor) ([]byte, error) {
	if t.Rank() == 0 || t.Rank() > maxRank {
		return nil, fmt.Errorf("%w: cannot serialize rank %d", ErrRank, t.Rank())
	}

	body := make([]byte, 4*t.Rank()+4*t.Len())
	for i, d := range t.Shape {
		binary.LittleEndian.PutUint32(body[4*i:], uint32(d))
	}
	off := 4 * t.Rank()
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(body[off+4*i:], math.Float32bits(v))
	}

	header := SerializationHeader{
		Magic:    SerializationMagic,
		Version:  SerializationVersion,
		Rank:     uint16(t.Rank()),
		Checksum: crc32.ChecksumIEEE(body),
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(body)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// Deserialize decodes the output of Serialize, verifying the checksum.
func Deserialize(data []byte) (*Tensor, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(data), HeaderSize)
	}

	var header SerializationHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != SerializationMagic {
		return nil, ErrMagic
	}
	if header.Version != SerializationVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, header.Version)
	}
	rank := int(header.Rank)
	if rank == 0 || rank > maxRank {
		return nil, fmt.Errorf("%w: rank %d", ErrRank, rank)
	}

	body := data[HeaderSize:]
	if len(body) < 4*rank {
		return nil, ErrTruncated
	}
	if crc32.ChecksumIEEE(body) != header.Checksum {
		return nil, ErrChecksum
	}

	shape := make([]int, rank)
	for i := range shape {
		shape[i] = int(binary.LittleEndian.Uint32(body[4*i:]))
	}
	n, err := volume(shape)
	if err != nil {
		return nil, err
	}
	payload := body[4*rank:]
	if len(payload)%4 != 0 || len(payload)/4 != n {
		return nil, fmt.Errorf("%w: %d data bytes for shape %v", ErrTruncated, len(payload), shape)
	}

	values := make([]float32, n)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[4*i:]))
	}
	return FromSlice(values, shape...)
}

// WriteTo serializes t into w.
func WriteTo(w io.Writer, t *Tensor) error {
	data, err := Serialize(t)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile serializes t to path.
func WriteFile(path string, t *Tensor) error {
	data, err := Serialize(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile loads a tensor written by WriteFile.
func ReadFile(path string) (*Tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}
