package log

// Field is a single structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// Str builds a string-valued Field.
func Str(key, value string) Field { return Field{Key: key, Value: value} }

// Int builds an int-valued Field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Uint64 builds a uint64-valued Field.
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }

// Uint32 builds a uint32-valued Field.
func Uint32(key string, value uint32) Field { return Field{Key: key, Value: value} }

// Bool builds a bool-valued Field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Err builds a Field carrying an error (nil-safe: renders as nil if err is nil).
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Any builds a Field with an arbitrary value.
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Component builds the conventional "component" Field used to tag log lines
// emitted by a particular subsystem (e.g. "storageteam", "broadcast").
func Component(name string) Field { return Field{Key: ComponentKey, Value: name} }

// Duration builds a Field from a time.Duration, stored as nanoseconds to
// keep the Field's value type simple for formatters; formatters that care
// about units can special-case the key.
func Duration(key string, nanos int64) Field { return Field{Key: key, Value: nanos} }
