package codec

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/core/store"
)

// ImportJSON parses a JSON export and stores its entries. Syntax errors
// abort the import regardless of SkipErrors; SkipErrors only covers
// per-entry conversion and store failures.
func ImportJSON(t *store.Table, data []byte, opts ImportOptions) error {
	p := &jsonParser{data: data}

	p.skipSpace()
	if !p.consume('{') {
		return p.syntaxError("expected object")
	}

	if opts.Clear {
		clearDestination(t, opts)
	}

	p.skipSpace()
	if p.consume('}') {
		return p.expectEnd()
	}

	for {
		key, err := p.parseString()
		if err != nil {
			return err
		}
		p.skipSpace()
		if !p.consume(':') {
			return p.syntaxError("expected ':' after key")
		}

		if err := p.parseEntry(t, key, opts); err != nil {
			return err
		}

		p.skipSpace()
		if p.consume(',') {
			p.skipSpace()
			continue
		}
		if p.consume('}') {
			return p.expectEnd()
		}
		return p.syntaxError("expected ',' or '}'")
	}
}

// jsonParser is a recursive-descent parser over a byte slice. It keeps
// no lookahead beyond the current offset.
type jsonParser struct {
	data []byte
	pos  int
}

// jsonValue is one parsed scalar. Exactly one of its fields is
// meaningful according to kind. Numbers keep their literal text so
// 64-bit integers can be reparsed without going through float64.
type jsonValue struct {
	kind    byte // 's', 'n', 'b'
	str     string
	lit     string
	num     float64
	isFloat bool
	boolean bool
}

// parseEntry parses one `{"type":..., "value":..., ...}` entry object
// and stores it. Unknown fields are skipped. A type field that follows
// the value field is ignored; the shape of the value decides the type
// in that case.
func (p *jsonParser) parseEntry(t *store.Table, key string, opts ImportOptions) error {
	p.skipSpace()
	if !p.consume('{') {
		return p.syntaxError("expected entry object")
	}

	var (
		typ       = domain.ValueType(0)
		haveType  = false
		value     jsonValue
		haveValue = false
		encrypted = false
	)

	p.skipSpace()
	if !p.consume('}') {
		for {
			field, err := p.parseString()
			if err != nil {
				return err
			}
			p.skipSpace()
			if !p.consume(':') {
				return p.syntaxError("expected ':' after field name")
			}
			p.skipSpace()

			switch field {
			case "type":
				if haveValue {
					// Too late to matter, skip it.
					if err := p.skipValue(); err != nil {
						return err
					}
					break
				}
				name, err := p.parseString()
				if err != nil {
					return err
				}
				if vt, err := domain.ParseValueType(name); err == nil {
					typ = vt
					haveType = true
				}
			case "value":
				v, err := p.parseScalar()
				if err != nil {
					return err
				}
				value = v
				haveValue = true
			case "encrypted":
				v, err := p.parseScalar()
				if err != nil {
					return err
				}
				encrypted = v.kind == 'b' && v.boolean
			default:
				if err := p.skipValue(); err != nil {
					return err
				}
			}

			p.skipSpace()
			if p.consume(',') {
				p.skipSpace()
				continue
			}
			if p.consume('}') {
				break
			}
			return p.syntaxError("expected ',' or '}' in entry")
		}
	}

	if !haveValue {
		if opts.SkipErrors {
			return nil
		}
		return domain.ErrInvalidFormat.WithDetails(
			fmt.Sprintf("entry %q has no value field", key))
	}

	if !haveType {
		typ = inferType(value)
	}

	raw, flags, err := materializeValue(typ, value, encrypted)
	if err != nil {
		if opts.SkipErrors {
			return nil
		}
		return err
	}

	nsID := byte(domain.DefaultNamespaceID)
	if opts.NamespaceID != store.AllNamespaces {
		nsID = uint8(opts.NamespaceID)
	}

	if err := t.Set(key, nsID, typ, raw, flags); err != nil {
		if opts.SkipErrors {
			return nil
		}
		return err
	}
	return nil
}

// inferType maps a JSON shape to a value type when no explicit type
// field preceded the value.
func inferType(v jsonValue) domain.ValueType {
	switch v.kind {
	case 's':
		return domain.TypeString
	case 'b':
		return domain.TypeBool
	default:
		if v.isFloat {
			return domain.TypeFloat
		}
		if n, err := strconv.ParseInt(v.lit, 10, 64); err == nil &&
			n >= math.MinInt32 && n <= math.MaxInt32 {
			return domain.TypeInt32
		}
		return domain.TypeInt64
	}
}

// materializeValue converts a parsed scalar into stored value bytes.
// Encrypted values are hex strings holding the iv-prefixed ciphertext
// and bypass the typed encoding.
func materializeValue(typ domain.ValueType, v jsonValue, encrypted bool) ([]byte, domain.EntryFlags, error) {
	if encrypted {
		if v.kind != 's' {
			return nil, 0, domain.ErrInvalidFormat.WithDetails("encrypted value is not a hex string")
		}
		raw, err := hex.DecodeString(v.str)
		if err != nil {
			return nil, 0, domain.ErrInvalidFormat.WithDetails("encrypted value is not valid hex")
		}
		return raw, domain.FlagEncrypted, nil
	}

	switch typ {
	case domain.TypeInt32:
		n, ok := v.intValue(math.MinInt32, math.MaxInt32)
		if !ok {
			return nil, 0, domain.ErrTypeMismatch.WithDetails("value does not fit i32")
		}
		return domain.EncodeInt32(int32(n)), 0, nil
	case domain.TypeUint32:
		n, ok := v.intValue(0, math.MaxUint32)
		if !ok {
			return nil, 0, domain.ErrTypeMismatch.WithDetails("value does not fit u32")
		}
		return domain.EncodeUint32(uint32(n)), 0, nil
	case domain.TypeInt64:
		n, ok := v.intValue(math.MinInt64, math.MaxInt64)
		if !ok {
			return nil, 0, domain.ErrTypeMismatch.WithDetails("value does not fit i64")
		}
		return domain.EncodeInt64(n), 0, nil
	case domain.TypeFloat:
		if v.kind != 'n' {
			return nil, 0, domain.ErrTypeMismatch.WithDetails("float value is not a number")
		}
		return domain.EncodeFloat(float32(v.num)), 0, nil
	case domain.TypeBool:
		if v.kind != 'b' {
			return nil, 0, domain.ErrTypeMismatch.WithDetails("bool value is not a boolean")
		}
		return domain.EncodeBool(v.boolean), 0, nil
	case domain.TypeString:
		if v.kind != 's' {
			return nil, 0, domain.ErrTypeMismatch.WithDetails("string value is not a string")
		}
		return domain.EncodeString(v.str), 0, nil
	case domain.TypeBlob:
		if v.kind != 's' {
			return nil, 0, domain.ErrTypeMismatch.WithDetails("blob value is not a hex string")
		}
		raw, err := hex.DecodeString(v.str)
		if err != nil {
			return nil, 0, domain.ErrInvalidFormat.WithDetails("blob value is not valid hex")
		}
		return raw, 0, nil
	}
	return nil, 0, domain.ErrInvalidParameter.WithDetails(
		fmt.Sprintf("unknown value type %d", typ))
}

// intValue extracts an integral number within [lo, hi]. Float-shaped
// numbers and out-of-range values are rejected. The literal text is
// parsed as an integer so the full int64 range survives intact.
func (v jsonValue) intValue(lo, hi int64) (int64, bool) {
	if v.kind != 'n' || v.isFloat {
		return 0, false
	}
	n, err := strconv.ParseInt(v.lit, 10, 64)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

// parseScalar parses one string, number, or boolean literal.
func (p *jsonParser) parseScalar() (jsonValue, error) {
	p.skipSpace()
	switch {
	case p.peek() == '"':
		s, err := p.parseString()
		if err != nil {
			return jsonValue{}, err
		}
		return jsonValue{kind: 's', str: s}, nil
	case p.peek() == 't' || p.peek() == 'f':
		b, err := p.parseBool()
		if err != nil {
			return jsonValue{}, err
		}
		return jsonValue{kind: 'b', boolean: b}, nil
	case p.peek() == '-' || (p.peek() >= '0' && p.peek() <= '9'):
		return p.parseNumber()
	}
	return jsonValue{}, p.syntaxError("expected string, number, or boolean")
}

// parseString parses a quoted string with the standard JSON escapes.
func (p *jsonParser) parseString() (string, error) {
	p.skipSpace()
	if !p.consume('"') {
		return "", p.syntaxError("expected string")
	}
	var out []byte
	for {
		if p.pos >= len(p.data) {
			return "", p.syntaxError("unterminated string")
		}
		c := p.data[p.pos]
		p.pos++
		switch {
		case c == '"':
			return string(out), nil
		case c == '\\':
			if p.pos >= len(p.data) {
				return "", p.syntaxError("unterminated escape")
			}
			e := p.data[p.pos]
			p.pos++
			switch e {
			case '"', '\\', '/':
				out = append(out, e)
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'u':
				r, err := p.parseHex4()
				if err != nil {
					return "", err
				}
				if utf16.IsSurrogate(r) && p.pos+1 < len(p.data) &&
					p.data[p.pos] == '\\' && p.data[p.pos+1] == 'u' {
					p.pos += 2
					r2, err := p.parseHex4()
					if err != nil {
						return "", err
					}
					r = utf16.DecodeRune(r, r2)
				}
				out = utf8.AppendRune(out, r)
			default:
				return "", p.syntaxError("invalid escape")
			}
		case c < 0x20:
			return "", p.syntaxError("control character in string")
		default:
			out = append(out, c)
		}
	}
}

func (p *jsonParser) parseHex4() (rune, error) {
	if p.pos+4 > len(p.data) {
		return 0, p.syntaxError("truncated \\u escape")
	}
	n, err := strconv.ParseUint(string(p.data[p.pos:p.pos+4]), 16, 32)
	if err != nil {
		return 0, p.syntaxError("invalid \\u escape")
	}
	p.pos += 4
	return rune(n), nil
}

// parseNumber parses a JSON number, recording whether it carried a
// fraction or exponent. That distinction drives type inference.
func (p *jsonParser) parseNumber() (jsonValue, error) {
	start := p.pos
	isFloat := false
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			isFloat = c == '.' || c == 'e' || c == 'E' || isFloat
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return jsonValue{}, p.syntaxError("expected number")
	}
	lit := string(p.data[start:p.pos])
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return jsonValue{}, p.syntaxError("invalid number")
	}
	return jsonValue{kind: 'n', lit: lit, num: f, isFloat: isFloat}, nil
}

func (p *jsonParser) parseBool() (bool, error) {
	if p.consumeWord("true") {
		return true, nil
	}
	if p.consumeWord("false") {
		return false, nil
	}
	return false, p.syntaxError("expected boolean")
}

// skipValue consumes one JSON value of any kind, including nested
// arrays and objects. Used for unknown entry fields.
func (p *jsonParser) skipValue() error {
	p.skipSpace()
	switch {
	case p.peek() == '"':
		_, err := p.parseString()
		return err
	case p.peek() == '{':
		return p.skipComposite('{', '}')
	case p.peek() == '[':
		return p.skipComposite('[', ']')
	case p.consumeWord("true"), p.consumeWord("false"), p.consumeWord("null"):
		return nil
	case p.peek() == '-' || (p.peek() >= '0' && p.peek() <= '9'):
		_, err := p.parseNumber()
		return err
	}
	return p.syntaxError("expected value")
}

func (p *jsonParser) skipComposite(open, close byte) error {
	p.pos++ // opening bracket
	depth := 1
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case '"':
			if _, err := p.parseString(); err != nil {
				return err
			}
			continue
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				p.pos++
				return nil
			}
		}
		p.pos++
	}
	return p.syntaxError("unterminated value")
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) peek() byte {
	if p.pos >= len(p.data) {
		return 0
	}
	return p.data[p.pos]
}

func (p *jsonParser) consume(c byte) bool {
	if p.pos < len(p.data) && p.data[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *jsonParser) consumeWord(w string) bool {
	if p.pos+len(w) <= len(p.data) && string(p.data[p.pos:p.pos+len(w)]) == w {
		p.pos += len(w)
		return true
	}
	return false
}

// expectEnd verifies only whitespace remains after the root object.
func (p *jsonParser) expectEnd() error {
	p.skipSpace()
	if p.pos != len(p.data) {
		return p.syntaxError("trailing data after object")
	}
	return nil
}

func (p *jsonParser) syntaxError(msg string) error {
	return domain.ErrInvalidFormat.WithDetails(
		fmt.Sprintf("%s at offset %d", msg, p.pos))
}
