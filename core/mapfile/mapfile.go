// Package mapfile loads the flat key=value lookup tables the mappers are
// built from. The format is one mapping per line; backslash escapes protect
// the three structural characters (`\`, `=`, `;`), `#` starts a trailing
// comment and an unescaped `;` ends the mapping early. Loading is strict: a
// malformed line fails the whole load with a line-numbered diagnostic, since
// a broken table means a broken deployment rather than bad user input.
package mapfile

import (
	"bufio"
	"encoding/hex"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/scrinium/bibrange/core/errors"
)

// Load reads and parses the map file at path.
func Load(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.ConfigError{Path: path, Message: "cannot open map file", Err: err}
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads key=value mappings from r. The name is used in diagnostics
// only.
func Parse(r io.Reader, name string) (map[string]string, error) {
	m := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, value, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, &errors.ConfigError{Path: name, Line: lineNo, Message: err.Error()}
		}
		if !ok {
			continue
		}
		m[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, &errors.IOError{Operation: "read", Path: name, Err: err}
	}
	return m, nil
}

// parseLine splits one raw line into its key and value. ok is false for
// blank and comment-only lines.
func parseLine(line string) (key, value string, ok bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false, nil
	}

	var buf strings.Builder
	sawSep := false
	escaped := false
scan:
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			buf.WriteByte(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '=':
			if sawSep {
				return "", "", false, errors.NewParse("map entry", line, "unescaped '=' after separator")
			}
			key = buf.String()
			buf.Reset()
			sawSep = true
		case ch == ';':
			// Unescaped semicolon terminates the entry.
			break scan
		default:
			buf.WriteByte(ch)
		}
	}
	if escaped {
		return "", "", false, errors.NewParse("map entry", line, "dangling escape")
	}
	if !sawSep {
		return "", "", false, errors.NewParse("map entry", line, "missing '=' separator")
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(buf.String())
	if key == "" {
		return "", "", false, errors.NewParse("map entry", line, "missing key")
	}
	return key, value, true, nil
}

// Escape renders s so that Parse reads it back verbatim, protecting the
// structural characters.
func Escape(s string) string {
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '\\', '=', ';':
			buf.WriteByte('\\')
			buf.WriteByte(ch)
		default:
			buf.WriteByte(ch)
		}
	}
	return buf.String()
}

// Write serializes m to w in the map-file format, keys sorted, so that
// exported tables diff cleanly.
func Write(w io.Writer, m map[string]string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	bw := bufio.NewWriter(w)
	for _, k := range keys {
		if _, err := bw.WriteString(Escape(k) + "=" + Escape(m[k]) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Fingerprint returns the hex BLAKE3 digest of the map's sorted entries.
// Two loads of byte-different files with identical mappings fingerprint the
// same, which is what table-drift checks care about.
func Fingerprint(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf strings.Builder
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte(0)
		buf.WriteString(m[k])
		buf.WriteByte(0)
	}
	sum := blake3.Sum256([]byte(buf.String()))
	return hex.EncodeToString(sum[:])
}

// FingerprintFile returns the hex BLAKE3 digest of the raw file bytes.
func FingerprintFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &errors.IOError{Operation: "read", Path: path, Err: err}
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
