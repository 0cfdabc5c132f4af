package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// JSONFormatter renders an Entry as a single-line JSON object. It is the
// default formatter used by NewLogger when none is supplied.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	obj := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		obj[k] = v
	}
	obj["level"] = entry.Level.String()
	obj["msg"] = entry.Message
	obj["time"] = entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")
	if entry.Caller != "" {
		obj["caller"] = entry.Caller
	}
	if entry.Error != nil {
		obj["error"] = entry.Error.Error()
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// TextFormatter renders an Entry as a single human-readable line:
// "TIME LEVEL message key=value key=value".
type TextFormatter struct{}

func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %-5s %s",
		entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		entry.Level.String(),
		entry.Message,
	)
	if entry.Caller != "" {
		fmt.Fprintf(&buf, " caller=%s", entry.Caller)
	}
	if entry.Error != nil {
		fmt.Fprintf(&buf, " error=%q", entry.Error.Error())
	}
	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, entry.Fields[k])
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
