// Package wire defines the record model shared by every TLog peek cursor and
// a small reference codec for framing those records inside a peek reply
// buffer. The codec is intentionally simple: the spec this subsystem
// implements binds callers only to the iterator contract a deserializer must
// expose, not to any particular wire format.
package wire

// StorageTeamID identifies a remote mutation stream. It is stable and opaque
// to the cursor subsystem; equality is by value.
type StorageTeamID string

// MessageType tags the payload carried by a VersionSubsequenceMessage.
type MessageType uint8

const (
	// MessageMutation is an ordinary committed mutation.
	MessageMutation MessageType = iota
	// MessageEmptyVersion marks a committed version that carried no mutation
	// for this storage team. It still occupies a slot in the version
	// sequence so that broadcast alignment (every team sees every version)
	// holds.
	MessageEmptyVersion
	// MessageSpanContext carries tracing context interleaved with mutations.
	MessageSpanContext
	// MessageLogProtocol carries transaction-log protocol control messages.
	MessageLogProtocol
)

func (t MessageType) String() string {
	switch t {
	case MessageMutation:
		return "MUTATION"
	case MessageEmptyVersion:
		return "EMPTY_VERSION"
	case MessageSpanContext:
		return "SPAN_CONTEXT"
	case MessageLogProtocol:
		return "LOG_PROTOCOL"
	default:
		return "UNKNOWN"
	}
}

// Message is the opaque tagged union carried by a VSM. Payload is nil for
// EMPTY_VERSION messages.
type Message struct {
	Type    MessageType
	Payload []byte
}

// VSM is a VersionSubsequenceMessage: the atomic unit of ordering in this
// subsystem. Total order is lexicographic on (Version, Subsequence).
type VSM struct {
	Version     uint64
	Subsequence uint32
	Message     Message
}

// Less reports whether v sorts strictly before other under (Version, Subsequence).
func (v VSM) Less(other VSM) bool {
	if v.Version != other.Version {
		return v.Version < other.Version
	}
	return v.Subsequence < other.Subsequence
}
