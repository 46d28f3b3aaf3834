package dbf

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// A .cpg sidecar is plain text; at most this many bytes are read and
// the content is cut at the first CR or LF.
const cpgReadLimit = 499

// Resolves the code page of a table. The sidecar file wins over the
// language driver byte; a nonzero driver byte without sidecar is
// stringified as "LDID/<n>".
func resolveCodePage(hooks Hooks, base string, languageDriver byte) string {
	stream, err := hooks.Open(base+".cpg", "r")
	if err != nil {
		stream, err = hooks.Open(base+".CPG", "r")
	}
	if err == nil {
		buf := make([]byte, cpgReadLimit)
		n, _ := io.ReadFull(stream, buf)
		stream.Close()
		content := buf[:n]
		if i := bytes.IndexAny(content, "\r\n"); i >= 0 {
			content = content[:i]
		}
		if len(content) > 0 {
			debugf("Resolved code page %q from sidecar", string(content))
			return string(content)
		}
	}
	if languageDriver != 0 {
		return fmt.Sprintf("LDID/%d", languageDriver)
	}
	return ""
}

// EncodingConverter translates character field bytes between their
// stored code page and UTF-8.
type EncodingConverter interface {
	Decode(in []byte) ([]byte, error)
	Encode(in []byte) ([]byte, error)
	CodePage() byte
}

type DefaultConverter struct {
	encoding *charmap.Charmap
}

// Decode decodes a specified encoding to byte slice to a UTF8 byte slice
func (c DefaultConverter) Decode(in []byte) ([]byte, error) {
	if utf8.Valid(in) {
		return in, nil
	}
	r := transform.NewReader(bytes.NewReader(in), c.encoding.NewDecoder())
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError("dbf-codepage-decode-1", err)
	}
	return data, nil
}

// Encode encodes a UTF8 byte slice to the specified encoding byte slice
func (c DefaultConverter) Encode(in []byte) ([]byte, error) {
	out := make([]byte, len(in))
	enc := c.encoding.NewEncoder()
	nDst, _, err := enc.Transform(out, in, false)
	if err != nil {
		return nil, newError("dbf-codepage-encode-1", err)
	}
	return out[:nDst], nil
}

// CodePage returns the corresponding language driver byte for the encoding
func (c DefaultConverter) CodePage() byte {
	switch c.encoding {
	case charmap.CodePage437: // U.S. MS-DOS
		return 0x01
	case charmap.CodePage850: // International MS-DOS
		return 0x02
	case charmap.CodePage852: // Eastern European MS-DOS
		return 0x64
	case charmap.CodePage865: // Nordic MS-DOS
		return 0x66
	case charmap.CodePage866: // Russian MS-DOS
		return 0x65
	case charmap.Windows874: // Thai Windows
		return 0x7C
	case charmap.Windows1250: // Central European Windows
		return 0xC8
	case charmap.Windows1251: // Russian Windows
		return 0xC9
	case charmap.Windows1252: // Windows ANSI
		return 0x57
	case charmap.Windows1253: // Greek Windows
		return 0xCB
	case charmap.Windows1254: // Turkish Windows
		return 0xCA
	case charmap.Windows1255: // Hebrew Windows
		return 0x7D
	case charmap.Windows1256: // Arabic Windows
		return 0x7E
	default:
		return 0x00
	}
}

func NewDefaultConverter(encoding *charmap.Charmap) DefaultConverter {
	return DefaultConverter{encoding: encoding}
}

// ConverterFromCodePage returns a converter for a language driver byte.
func ConverterFromCodePage(languageDriver byte) DefaultConverter {
	switch languageDriver {
	case 0x01: // U.S. MS-DOS
		return NewDefaultConverter(charmap.CodePage437)
	case 0x02: // International MS-DOS
		return NewDefaultConverter(charmap.CodePage850)
	case 0x64: // Eastern European MS-DOS
		return NewDefaultConverter(charmap.CodePage852)
	case 0x66: // Nordic MS-DOS
		return NewDefaultConverter(charmap.CodePage865)
	case 0x65: // Russian MS-DOS
		return NewDefaultConverter(charmap.CodePage866)
	case 0x7C: // Thai Windows
		return NewDefaultConverter(charmap.Windows874)
	case 0xC8: // Central European Windows
		return NewDefaultConverter(charmap.Windows1250)
	case 0xC9: // Russian Windows
		return NewDefaultConverter(charmap.Windows1251)
	case 0x03, 0x57: // Windows ANSI
		return NewDefaultConverter(charmap.Windows1252)
	case 0xCB: // Greek Windows
		return NewDefaultConverter(charmap.Windows1253)
	case 0xCA: // Turkish Windows
		return NewDefaultConverter(charmap.Windows1254)
	case 0x7D: // Hebrew Windows
		return NewDefaultConverter(charmap.Windows1255)
	case 0x7E: // Arabic Windows
		return NewDefaultConverter(charmap.Windows1256)
	default: // Default to Windows ANSI
		return NewDefaultConverter(charmap.Windows1252)
	}
}
