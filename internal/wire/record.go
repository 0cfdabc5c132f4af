package wire

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// ErrCorruptRecord is returned when a version group fails its CRC check.
var ErrCorruptRecord = errors.New("wire: corrupt record")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeVersionGroup appends the on-wire encoding of a single committed
// version's items to dst and returns the result. Framing is:
//
//	varint(version) varint(numItems)
//	  { varint(subsequence) byte(type) varint(len(payload)) payload } * numItems
//	uint32 crc32c(everything above, big-endian)
//
// This mirrors the teacher's EncodeRecord (varint length-prefixed header +
// payload + CRC32C trailer), generalized from a single record to a group of
// items sharing one version.
func EncodeVersionGroup(dst []byte, version uint64, items []VSM) []byte {
	start := len(dst)
	var tmp [10]byte

	n := binary.PutUvarint(tmp[:], version)
	dst = append(dst, tmp[:n]...)

	n = binary.PutUvarint(tmp[:], uint64(len(items)))
	dst = append(dst, tmp[:n]...)

	for _, it := range items {
		n = binary.PutUvarint(tmp[:], uint64(it.Subsequence))
		dst = append(dst, tmp[:n]...)
		dst = append(dst, byte(it.Message.Type))
		n = binary.PutUvarint(tmp[:], uint64(len(it.Message.Payload)))
		dst = append(dst, tmp[:n]...)
		dst = append(dst, it.Message.Payload...)
	}

	crc := crc32.Checksum(dst[start:], castagnoli)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	dst = append(dst, crcb[:]...)
	return dst
}

// decodedGroup is one version's worth of items plus the byte length consumed
// from the source buffer (including its CRC trailer).
type decodedGroup struct {
	version uint64
	items   []VSM
	consumed int
}

// decodeVersionGroup decodes exactly one version group starting at b[0].
func decodeVersionGroup(b []byte) (decodedGroup, error) {
	version, n1 := binary.Uvarint(b)
	if n1 <= 0 {
		return decodedGroup{}, ErrCorruptRecord
	}
	rest := b[n1:]
	numItems, n2 := binary.Uvarint(rest)
	if n2 <= 0 {
		return decodedGroup{}, ErrCorruptRecord
	}
	rest = rest[n2:]
	off := n1 + n2

	items := make([]VSM, 0, numItems)
	for i := uint64(0); i < numItems; i++ {
		sub, ns := binary.Uvarint(rest)
		if ns <= 0 {
			return decodedGroup{}, ErrCorruptRecord
		}
		rest = rest[ns:]
		off += ns

		if len(rest) < 1 {
			return decodedGroup{}, ErrCorruptRecord
		}
		mtype := MessageType(rest[0])
		rest = rest[1:]
		off++

		plen, np := binary.Uvarint(rest)
		if np <= 0 {
			return decodedGroup{}, ErrCorruptRecord
		}
		rest = rest[np:]
		off += np

		if uint64(len(rest)) < plen {
			return decodedGroup{}, ErrCorruptRecord
		}
		var payload []byte
		if plen > 0 {
			payload = append([]byte(nil), rest[:plen]...)
		}
		rest = rest[plen:]
		off += int(plen)

		items = append(items, VSM{
			Version:     version,
			Subsequence: uint32(sub),
			Message:     Message{Type: mtype, Payload: payload},
		})
	}

	if len(b) < off+4 {
		return decodedGroup{}, ErrCorruptRecord
	}
	expect := binary.BigEndian.Uint32(b[off : off+4])
	got := crc32.Checksum(b[:off], castagnoli)
	if got != expect {
		return decodedGroup{}, ErrCorruptRecord
	}

	return decodedGroup{version: version, items: items, consumed: off + 4}, nil
}
