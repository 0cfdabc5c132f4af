package log

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"
)

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	var caller string
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = file + ":" + itoa(line)
	}
	entry := &Entry{
		Level:     level,
		Message:   msg,
		Fields:    merged,
		Timestamp: time.Now(),
		Caller:    caller,
	}
	if errVal, ok := merged["error"].(error); ok {
		entry.Error = errVal
	}
	formatted, err := l.formatter.Format(entry)
	if err != nil {
		return
	}
	for _, out := range l.outputs {
		_ = out.Write(entry, formatted)
	}
	if level == FatalLevel {
		os.Exit(1)
	}
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }
func (l *BaseLogger) Fatal(msg string, fields ...Field) { l.log(FatalLevel, msg, fields) }

func (l *BaseLogger) Debugf(msg string, args ...interface{}) { l.log(DebugLevel, fmt.Sprintf(msg, args...), nil) }
func (l *BaseLogger) Infof(msg string, args ...interface{})  { l.log(InfoLevel, fmt.Sprintf(msg, args...), nil) }
func (l *BaseLogger) Warnf(msg string, args ...interface{})  { l.log(WarnLevel, fmt.Sprintf(msg, args...), nil) }
func (l *BaseLogger) Errorf(msg string, args ...interface{}) { l.log(ErrorLevel, fmt.Sprintf(msg, args...), nil) }
func (l *BaseLogger) Fatalf(msg string, args ...interface{}) { l.log(FatalLevel, fmt.Sprintf(msg, args...), nil) }

func (l *BaseLogger) clone() *BaseLogger {
	nl := &BaseLogger{
		level:     l.level,
		fields:    make(Fields, len(l.fields)),
		formatter: l.formatter,
		outputs:   l.outputs,
	}
	for k, v := range l.fields {
		nl.fields[k] = v
	}
	return nl
}

func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	nl := l.clone()
	nl.fields[key] = value
	return nl
}

func (l *BaseLogger) WithFields(fields Fields) Logger {
	nl := l.clone()
	for k, v := range fields {
		nl.fields[k] = v
	}
	return nl
}

func (l *BaseLogger) WithError(err error) Logger {
	return l.WithField("error", err)
}

func (l *BaseLogger) With(fields ...Field) Logger {
	nl := l.clone()
	for _, f := range fields {
		nl.fields[f.Key] = f.Value
	}
	return nl
}

func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	nl := l.clone()
	for k, v := range ContextExtractor(ctx) {
		nl.fields[k] = v
	}
	return nl
}

func (l *BaseLogger) WithComponent(component string) Logger {
	return l.WithField(ComponentKey, component)
}

func (l *BaseLogger) SetLevel(level Level) { l.level = level }
func (l *BaseLogger) GetLevel() Level      { return l.level }
