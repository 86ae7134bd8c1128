package fragment

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/step-fragments/backend/internal/chunkio"
)

// DefaultChunkSize is how many bytes the encoder pulls per range request.
const DefaultChunkSize = 256 * 1024

var schemaStmt = regexp.MustCompile(`(?i)^FILE_SCHEMA\s*\(+\s*'([^']*)'`)

// Encoder is the built-in fragment parser. It makes two sequential passes
// over the input through the pull reader: the first builds the entity-type
// string table, the second restarts at offset zero and emits records.
// An Encoder holds no per-file state and may be shared across conversions.
type Encoder struct {
	chunkSize int
}

// NewEncoder creates an Encoder with the default chunk size.
func NewEncoder() *Encoder {
	return &Encoder{chunkSize: DefaultChunkSize}
}

// NewEncoderWithChunkSize creates an Encoder pulling chunkSize bytes per read.
func NewEncoderWithChunkSize(chunkSize int) *Encoder {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Encoder{chunkSize: chunkSize}
}

// table accumulates one file's interned entity types and counters.
type table struct {
	strings   []string
	stringIdx map[string]uint32
	schemaID  string
	entities  uint32
}

func (t *table) intern(s string) uint32 {
	if idx, ok := t.stringIdx[s]; ok {
		return idx
	}
	idx := uint32(len(t.strings))
	t.strings = append(t.strings, s)
	t.stringIdx[s] = idx
	return idx
}

// Parse implements Parser. The returned slice is the complete container.
func (e *Encoder) Parse(r chunkio.RangeReader) ([]byte, error) {
	t := &table{
		strings:   make([]string, 0, 256),
		stringIdx: make(map[string]uint32),
	}

	// Pass 1: collect entity types and the schema declaration.
	err := e.scan(r, func(stmt []byte) error {
		if m := schemaStmt.FindSubmatch(stmt); m != nil && t.schemaID == "" {
			t.schemaID = string(m[1])
			return nil
		}
		if _, typ, _, ok := splitEntity(stmt); ok {
			t.intern(typ)
			t.entities++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexing pass: %w", err)
	}

	// Pass 2: restart at offset zero and encode records against the table.
	var records bytes.Buffer
	err = e.scan(r, func(stmt []byte) error {
		id, typ, args, ok := splitEntity(stmt)
		if !ok {
			return nil
		}
		idx, known := t.stringIdx[typ]
		if !known {
			// Type missed by pass 1 can only mean the file changed between
			// passes; encode against the table we have.
			idx = t.intern(typ)
		}
		writeUvarint(&records, uint64(id))
		writeUvarint(&records, uint64(idx))
		writeUvarint(&records, uint64(len(args)))
		records.Write(args)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("encoding pass: %w", err)
	}

	r.MarkFinished()

	return assemble(t, r.Size(), records.Bytes())
}

// scan pulls the file front to back and invokes fn for every ';'-terminated
// statement. Statements may span chunk boundaries; a trailing fragment
// without a terminator is ignored.
func (e *Encoder) scan(r chunkio.RangeReader, fn func(stmt []byte) error) error {
	var carry []byte
	offset := int64(0)

	for {
		chunk, err := r.Read(offset, e.chunkSize)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
		offset += int64(len(chunk))

		carry = append(carry, chunk...)
		for {
			i := bytes.IndexByte(carry, ';')
			if i < 0 {
				break
			}
			stmt := bytes.TrimSpace(carry[:i])
			carry = carry[i+1:]
			if len(stmt) == 0 {
				continue
			}
			if err := fn(stmt); err != nil {
				return err
			}
		}
	}
}

func assemble(t *table, sourceSize int64, records []byte) ([]byte, error) {
	flags := FlagCompressed
	body := make([]byte, lz4.CompressBlockBound(len(records)))
	written, err := lz4.CompressBlock(records, body, nil)
	if err != nil {
		return nil, fmt.Errorf("compressing records: %w", err)
	}
	if written == 0 {
		// Incompressible; store raw.
		flags = 0
		body = records
	} else {
		body = body[:written]
	}

	header := Header{
		SourceSize:  sourceSize,
		SchemaID:    t.schemaID,
		EntityCount: t.entities,
		StringCount: uint32(len(t.strings)),
		RecordBytes: uint32(len(records)),
	}
	headerBytes, err := msgpack.Marshal(&header)
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}

	var out bytes.Buffer
	out.Write(Magic[:])
	out.WriteByte(Version)
	out.WriteByte(flags)
	if err := binary.Write(&out, binary.BigEndian, uint32(len(headerBytes))); err != nil {
		return nil, err
	}
	out.Write(headerBytes)

	writeUvarint(&out, uint64(len(t.strings)))
	for _, s := range t.strings {
		writeUvarint(&out, uint64(len(s)))
		out.WriteString(s)
	}

	out.Write(body)
	return out.Bytes(), nil
}

// splitEntity parses a data-section statement of the form
// "#123= ENTITYTYPE(args)" into its id, type token and argument bytes.
func splitEntity(stmt []byte) (id int64, typ string, args []byte, ok bool) {
	if len(stmt) == 0 || stmt[0] != '#' {
		return 0, "", nil, false
	}

	i := 1
	for i < len(stmt) && stmt[i] >= '0' && stmt[i] <= '9' {
		id = id*10 + int64(stmt[i]-'0')
		i++
	}
	if i == 1 {
		return 0, "", nil, false
	}

	for i < len(stmt) && (stmt[i] == ' ' || stmt[i] == '\t' || stmt[i] == '\r' || stmt[i] == '\n') {
		i++
	}
	if i >= len(stmt) || stmt[i] != '=' {
		return 0, "", nil, false
	}
	i++
	for i < len(stmt) && (stmt[i] == ' ' || stmt[i] == '\t' || stmt[i] == '\r' || stmt[i] == '\n') {
		i++
	}

	start := i
	for i < len(stmt) {
		c := stmt[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			i++
			continue
		}
		break
	}
	if i == start {
		return 0, "", nil, false
	}

	return id, string(stmt[start:i]), stmt[i:], true
}

func writeUvarint(w io.Writer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	w.Write(buf[:n])
}
