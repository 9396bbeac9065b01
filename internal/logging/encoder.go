package logging

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	timeLayout = "2006-01-02 15:04:05,000"
	separator  = " - "
)

var bufferPool = buffer.NewPool()

// templateEncoder renders entries as
//
//	timestamp - user - logger_name - source_file @function #line - level - message
//
// Context fields other than the user are appended as sorted key=value pairs.
type templateEncoder struct {
	*zapcore.MapObjectEncoder
}

func newTemplateEncoder() *templateEncoder {
	return &templateEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (e *templateEncoder) Clone() zapcore.Encoder {
	clone := newTemplateEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (e *templateEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := e.Clone().(*templateEncoder)
	for _, f := range fields {
		f.AddTo(line.MapObjectEncoder)
	}

	usr, ok := line.Fields[UserKey].(string)
	if !ok {
		usr = "-"
	}
	delete(line.Fields, UserKey)

	buf := bufferPool.Get()
	buf.AppendString(ent.Time.Format(timeLayout))
	buf.AppendString(separator)
	buf.AppendString(usr)
	buf.AppendString(separator)
	buf.AppendString(ent.LoggerName)
	buf.AppendString(separator)
	appendCaller(buf, ent.Caller)
	buf.AppendString(separator)
	buf.AppendString(ent.Level.CapitalString())
	buf.AppendString(separator)
	buf.AppendString(ent.Message)
	appendFields(buf, line.Fields)
	if ent.Stack != "" {
		buf.AppendByte('\n')
		buf.AppendString(ent.Stack)
	}
	buf.AppendString(zapcore.DefaultLineEnding)
	return buf, nil
}

func appendCaller(buf *buffer.Buffer, caller zapcore.EntryCaller) {
	if !caller.Defined {
		buf.AppendString("- @- #0")
		return
	}
	buf.AppendString(filepath.Base(caller.File))
	buf.AppendString(" @")
	buf.AppendString(shortFunction(caller.Function))
	buf.AppendString(" #")
	buf.AppendInt(int64(caller.Line))
}

// shortFunction trims the import path and package from a runtime function name:
// "etl-tools/internal/io.LoadFile" becomes "LoadFile".
func shortFunction(fn string) string {
	if fn == "" {
		return "-"
	}
	if i := strings.LastIndexByte(fn, '/'); i >= 0 {
		fn = fn[i+1:]
	}
	if i := strings.IndexByte(fn, '.'); i >= 0 {
		fn = fn[i+1:]
	}
	return fn
}

func appendFields(buf *buffer.Buffer, fields map[string]interface{}) {
	if len(fields) == 0 {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.AppendByte(' ')
		buf.AppendString(k)
		buf.AppendByte('=')
		buf.AppendString(fmt.Sprint(fields[k]))
	}
}
