package fragment

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Entity is one decoded record.
type Entity struct {
	ID   int64
	Type string
	Args string
}

// Model is a fully decoded fragment container.
type Model struct {
	Header   Header
	Strings  []string
	Entities []Entity
}

// Detect reports whether data starts with a fragment container magic.
func Detect(data []byte) bool {
	return len(data) >= len(Magic) && bytes.Equal(data[:len(Magic)], Magic[:])
}

// Decode parses a complete fragment container.
func Decode(data []byte) (*Model, error) {
	if !Detect(data) {
		return nil, fmt.Errorf("invalid magic: not a fragment container")
	}
	pos := len(Magic)

	if pos+2 > len(data) {
		return nil, fmt.Errorf("truncated container")
	}
	version := data[pos]
	flags := data[pos+1]
	pos += 2
	if version != Version {
		return nil, fmt.Errorf("unsupported version: %d", version)
	}

	if pos+4 > len(data) {
		return nil, fmt.Errorf("truncated header length")
	}
	headerLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+headerLen > len(data) {
		return nil, fmt.Errorf("truncated header")
	}

	var header Header
	if err := msgpack.Unmarshal(data[pos:pos+headerLen], &header); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	pos += headerLen

	strings, pos, err := readStringTable(data, pos)
	if err != nil {
		return nil, fmt.Errorf("reading string table: %w", err)
	}
	if uint32(len(strings)) != header.StringCount {
		return nil, fmt.Errorf("string count mismatch: header says %d, table has %d",
			header.StringCount, len(strings))
	}

	records := data[pos:]
	if flags&FlagCompressed != 0 {
		raw := make([]byte, header.RecordBytes)
		if _, err := lz4.UncompressBlock(records, raw); err != nil {
			return nil, fmt.Errorf("decompressing records: %w", err)
		}
		records = raw
	}

	entities, err := readEntities(records, strings, header.EntityCount)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	return &Model{Header: header, Strings: strings, Entities: entities}, nil
}

func readStringTable(data []byte, pos int) ([]string, int, error) {
	count, n := binary.Uvarint(data[pos:])
	if n <= 0 {
		return nil, 0, fmt.Errorf("bad string count")
	}
	pos += n

	strings := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		length, n := binary.Uvarint(data[pos:])
		if n <= 0 {
			return nil, 0, fmt.Errorf("bad string length at index %d", i)
		}
		pos += n
		if pos+int(length) > len(data) {
			return nil, 0, fmt.Errorf("truncated string at index %d", i)
		}
		strings = append(strings, string(data[pos:pos+int(length)]))
		pos += int(length)
	}
	return strings, pos, nil
}

func readEntities(records []byte, strings []string, count uint32) ([]Entity, error) {
	entities := make([]Entity, 0, count)
	pos := 0

	for uint32(len(entities)) < count {
		id, n := binary.Uvarint(records[pos:])
		if n <= 0 {
			return nil, fmt.Errorf("bad entity id at record %d", len(entities))
		}
		pos += n

		idx, n := binary.Uvarint(records[pos:])
		if n <= 0 {
			return nil, fmt.Errorf("bad type index at record %d", len(entities))
		}
		pos += n
		if idx >= uint64(len(strings)) {
			return nil, fmt.Errorf("type index %d out of range", idx)
		}

		argLen, n := binary.Uvarint(records[pos:])
		if n <= 0 {
			return nil, fmt.Errorf("bad argument length at record %d", len(entities))
		}
		pos += n
		if pos+int(argLen) > len(records) {
			return nil, fmt.Errorf("truncated arguments at record %d", len(entities))
		}

		entities = append(entities, Entity{
			ID:   int64(id),
			Type: strings[idx],
			Args: string(records[pos : pos+int(argLen)]),
		})
		pos += int(argLen)
	}

	return entities, nil
}
