package utils

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

const dataFileExt = ".dat"

// StationCodeFromFilename extracts the station code from a datalogger file
// name: the extension is stripped and the last underscore-separated token is
// the code, e.g. "H_Gabinete_FAO_21738.dat" -> "21738".
func StationCodeFromFilename(name string) (string, bool) {
	base := strings.TrimSuffix(name, dataFileExt)
	idx := strings.LastIndex(base, "_")
	if idx < 0 {
		return "", false
	}
	code := strings.TrimSpace(base[idx+1:])
	if code == "" {
		return "", false
	}
	return code, true
}

// DecodeLatin1 decodes a single-byte ISO-8859-1 payload. Every byte maps to a
// rune so decoding never fails on logger output.
func DecodeLatin1(payload []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(payload)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), nil
}

// SplitLines breaks text on \n, \r\n and bare \r line endings.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ValuePtrString prints pointer values for logging.
func ValuePtrString(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%.3f", *v)
}

// TimePtrString prints optional timestamps for logging.
func TimePtrString(t *time.Time) string {
	if t == nil {
		return "null"
	}
	return t.Format(time.RFC3339)
}
