package operations

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// compactJSON parses body as a single JSON value and re-encodes it without
// insignificant whitespace. Object keys come out sorted. Integers that fit in
// 64 bits keep their digits; every other number is read as a float64 and
// printed in shortest round-trip form with at least one fractional digit
// ("1e2" becomes "100.0"). Numbers outside the float64 range and trailing
// data after the value are parse errors.
func compactJSON(body string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return "", err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", errors.New("unexpected data after JSON value")
	}
	value, err := normalizeNumbers(value)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return unescapeLineSeparators(strings.TrimSuffix(buf.String(), "\n")), nil
}

func normalizeNumbers(value any) (any, error) {
	switch v := value.(type) {
	case json.Number:
		text, err := formatNumber(v.String())
		if err != nil {
			return nil, err
		}
		return json.Number(text), nil
	case []any:
		for i := range v {
			n, err := normalizeNumbers(v[i])
			if err != nil {
				return nil, err
			}
			v[i] = n
		}
	case map[string]any:
		for k, item := range v {
			n, err := normalizeNumbers(item)
			if err != nil {
				return nil, err
			}
			v[k] = n
		}
	}
	return value, nil
}

func formatNumber(text string) (string, error) {
	if !strings.ContainsAny(text, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		if u, err := strconv.ParseUint(text, 10, 64); err == nil {
			return strconv.FormatUint(u, 10), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return "", fmt.Errorf("number %s out of range", text)
	}
	return formatFloat(f), nil
}

// formatFloat prints f with the shortest digits that round-trip. Plain
// notation is used while the decimal point falls within 16 digits of the
// first digit or at most 5 places to its left; otherwise scientific notation.
func formatFloat(f float64) string {
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	sign := ""
	if strings.HasPrefix(sci, "-") {
		sign, sci = "-", sci[1:]
	}
	mantissa, expText, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expText)
	digits := strings.Replace(mantissa, ".", "", 1)
	if f == 0 {
		return sign + "0.0"
	}

	n := len(digits)
	point := exp + 1 // digits before the decimal point
	var out string
	switch {
	case point >= n && point <= 16:
		out = digits + strings.Repeat("0", point-n) + ".0"
	case point > 0 && point <= 16:
		out = digits[:point] + "." + digits[point:]
	case point > -5 && point <= 0:
		out = "0." + strings.Repeat("0", -point) + digits
	case n == 1:
		out = digits + "e" + strconv.Itoa(point-1)
	default:
		out = digits[:1] + "." + digits[1:] + "e" + strconv.Itoa(point-1)
	}
	return sign + out
}

// unescapeLineSeparators writes U+2028 and U+2029 as literal characters;
// encoding/json always escapes them.
func unescapeLineSeparators(s string) string {
	if !strings.Contains(s, `\u202`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		if rest := s[i+1:]; strings.HasPrefix(rest, "u2028") || strings.HasPrefix(rest, "u2029") {
			if rest[4] == '8' {
				b.WriteRune('\u2028')
			} else {
				b.WriteRune('\u2029')
			}
			i += 5
			continue
		}
		b.WriteByte(s[i])
		b.WriteByte(s[i+1])
		i++
	}
	return b.String()
}
