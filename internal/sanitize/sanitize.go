// Package sanitize masks credentials and personal data in log output.
// The sync job logs supplier file names, mail accounts and API traffic;
// masking happens at the zap core so no call site can leak a secret.
package sanitize

import (
	"regexp"

	"go.uber.org/zap/zapcore"
)

type pattern struct {
	re          *regexp.Regexp
	replacement string
}

var patterns = []pattern{
	{regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer [redacted]"},
	{regexp.MustCompile(`(?i)Basic\s+[A-Za-z0-9+/]+=*`), "Basic [redacted]"},
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)(["'\s]*[:=]["'\s]*)\S+`), "$1$2[redacted]"},
	{regexp.MustCompile(`://[^/\s:]+:[^@\s]+@`), "://[redacted]@"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[email]"},
}

// Mask replaces credentials and addresses in s with placeholders.
func Mask(s string) string {
	for _, p := range patterns {
		s = p.re.ReplaceAllString(s, p.replacement)
	}
	return s
}

// WrapCore wraps a zapcore.Core so entry messages and string fields are
// masked before encoding. Intended for zap.WrapCore.
func WrapCore(c zapcore.Core) zapcore.Core {
	return &sanitizingCore{Core: c}
}

type sanitizingCore struct {
	zapcore.Core
}

func (c *sanitizingCore) With(fields []zapcore.Field) zapcore.Core {
	return &sanitizingCore{Core: c.Core.With(maskFields(fields))}
}

func (c *sanitizingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sanitizingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = Mask(ent.Message)
	return c.Core.Write(ent, maskFields(fields))
}

func maskFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if f.Type == zapcore.StringType {
			f.String = Mask(f.String)
		}
		out[i] = f
	}
	return out
}
