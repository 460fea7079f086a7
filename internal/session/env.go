// Copyright (c) 2025 p4go
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"log/slog"
	"strings"

	"p4go/cli/internal/errors"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Env returns an environment setting. Values set through SetEnv take
// precedence over the process environment.
func (s *Session) Env(name string) string {
	if v, ok := s.env[name]; ok {
		return v
	}
	v, _ := s.lookupEnv(name)
	return v
}

// SetEnv overrides an environment setting for this session only; an empty
// value clears it. A bad name is an error at exception level 1 and above and
// reports false at level 0.
func (s *Session) SetEnv(name, value string) (bool, error) {
	if name == "" || strings.ContainsAny(name, "= \t\n") {
		if s.exceptionLevel > 0 {
			return false, s.except("P4.set_env()", errors.Environment, "invalid environment variable name "+`"`+name+`"`, nil)
		}
		return false, nil
	}
	s.env[name] = value
	s.log.Debug("session.env.set", slog.String("name", name))
	return true, nil
}

// charsetAliases maps server charset names to IANA names.
var charsetAliases = map[string]string{
	"utf8":       "UTF-8",
	"utf8-bom":   "UTF-8",
	"iso8859-1":  "ISO-8859-1",
	"iso8859-5":  "ISO-8859-5",
	"iso8859-7":  "ISO-8859-7",
	"iso8859-15": "ISO-8859-15",
	"winansi":    "windows-1252",
	"cp1251":     "windows-1251",
	"cp1253":     "windows-1253",
	"cp850":      "IBM850",
	"cp858":      "IBM00858",
	"cp866":      "IBM866",
	"cp936":      "GBK",
	"cp949":      "EUC-KR",
	"cp950":      "Big5",
	"shiftjis":   "Shift_JIS",
	"eucjp":      "EUC-JP",
	"koi8-r":     "KOI8-R",
	"macosroman": "macintosh",
	"utf16":      "UTF-16",
	"utf16le":    "UTF-16LE",
	"utf16be":    "UTF-16BE",
}

// lookupCharset resolves a server charset name. "none" and "auto" need no
// conversion and resolve to a nil encoding.
func lookupCharset(name string) (encoding.Encoding, error) {
	lower := strings.ToLower(name)
	if lower == "none" || lower == "auto" {
		return nil, nil
	}
	iana := name
	if alias, ok := charsetAliases[lower]; ok {
		iana = alias
	}
	enc, err := ianaindex.IANA.Encoding(iana)
	if err != nil || enc == nil {
		return nil, errors.New(errors.Charset, "Unknown or unsupported charset: "+name)
	}
	return enc, nil
}

func (s *Session) setCharset(name string) error {
	if name != "" {
		if _, err := lookupCharset(name); err != nil {
			return err
		}
	}
	s.charset = name
	s.log.Debug("session.charset", slog.String("charset", name))
	return nil
}

// Convert encodes UTF-8 text into the named charset. Unknown charsets and
// text the charset cannot represent are errors at exception level 1 and
// above; at level 0 Convert returns (nil, nil).
func (s *Session) Convert(charset, text string) ([]byte, error) {
	const fn = "P4.__convert"
	enc, err := lookupCharset(charset)
	if err != nil {
		return nil, s.convertFailure(fn, errors.Charset, "Unknown or unsupported charset: "+charset, err)
	}
	if enc == nil || strings.HasPrefix(strings.ToLower(charset), "utf8") || strings.EqualFold(charset, "UTF-8") {
		return []byte(text), nil
	}
	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, s.convertFailure(fn, errors.Charset, "Translation of file content failed", err)
	}
	return out, nil
}

func (s *Session) convertFailure(fn string, kind errors.Kind, msg string, cause error) error {
	if s.exceptionLevel == 0 {
		return nil
	}
	return s.except(fn, kind, msg, cause)
}
