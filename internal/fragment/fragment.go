/*
Package fragment converts STEP-style exchange text into the compressed
fragment container served to viewers.

Container layout:

	[Magic]         - 4 bytes "SFRG"
	[Version]       - 1 byte
	[Flags]         - 1 byte (bit 0: record section is LZ4-compressed)
	[Header Length] - 4 bytes big-endian
	[Header]        - msgpack-encoded Header
	[String Table]  - varint count, then varint length + bytes per string
	[Records]       - entity records, LZ4 block unless flagged raw

Entity records reference the string table by index, so repeated entity
types cost one varint each. The record section is a flat concatenation of
(entity id varint, type index varint, argument length varint, argument
bytes) tuples; LZ4 then exploits the heavy repetition in argument text.
*/
package fragment

import (
	"github.com/step-fragments/backend/internal/chunkio"
)

// Magic identifies a fragment container.
var Magic = [4]byte{'S', 'F', 'R', 'G'}

// Version is the current container version.
const Version uint8 = 1

// FlagCompressed marks the record section as LZ4 block-compressed.
const FlagCompressed uint8 = 1 << 0

// Header is the msgpack-encoded container header.
type Header struct {
	SourceSize  int64  `msgpack:"sourceSize"`
	SchemaID    string `msgpack:"schemaId,omitempty"`
	EntityCount uint32 `msgpack:"entityCount"`
	StringCount uint32 `msgpack:"stringCount"`
	RecordBytes uint32 `msgpack:"recordBytes"`
}

// Parser turns one exchange file, accessed through a pull reader, into a
// complete fragment artifact held in memory. Implementations may request
// byte ranges in any order.
type Parser interface {
	Parse(r chunkio.RangeReader) ([]byte, error)
}
