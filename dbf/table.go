package dbf

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Table is the handle to one attribute table. It owns the underlying
// byte stream, the schema, a single record-sized buffer for the
// currently loaded record and the header metadata. A handle is
// single-threaded; distinct handles on distinct files are independent.
type Table struct {
	config *Config
	hooks  Hooks
	stream Stream

	fields    []*Field
	rawHeader []byte // descriptor region exactly as stored on disk

	records      int
	headerLength int
	recordLength int

	updateYear     int // years since 1900
	updateMonth    int
	updateDay      int
	languageDriver byte
	codePage       string
	converter      EncodingConverter

	current int // record index held in the cache, -1 when none
	record  []byte
	work    []byte

	noHeader        bool
	updated         bool
	currentModified bool
	requireSeek     bool
	writeEOF        bool
}

// Open opens an existing table through the default hooks. The
// recognized modes are "r" and "rb" (read-only) and "r+", "rb+" and
// "r+b" (read-write).
func Open(filename string, mode string) (*Table, error) {
	return OpenTable(&Config{Filename: filename, Mode: mode})
}

// OpenTable opens an existing table as described by the config.
func OpenTable(config *Config) (*Table, error) {
	if config == nil || len(strings.TrimSpace(config.Filename)) == 0 {
		return nil, newErrorf("dbf-table-opentable-1", "missing filename")
	}
	hooks := config.Hooks
	if hooks == nil {
		hooks = DefaultHooks
	}
	mode, err := normalizeMode(config.Mode)
	if err != nil {
		return nil, newError("dbf-table-opentable-2", err)
	}
	base := trimExtension(config.Filename)
	debugf("Opening table: %s - Mode: %s - Trim spaces: %v - InterpretCodepage: %v", base, mode, config.TrimSpaces, config.InterpretCodePage)

	stream, err := hooks.Open(base+".dbf", mode)
	if err != nil {
		stream, err = hooks.Open(base+".DBF", mode)
	}
	if err != nil {
		return nil, newError("dbf-table-opentable-3", err)
	}

	t := &Table{
		config:      config,
		hooks:       hooks,
		stream:      stream,
		current:     -1,
		writeEOF:    true,
		requireSeek: true,
	}

	header := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(stream, header); err != nil {
		stream.Close()
		return nil, newError("dbf-table-opentable-4", err)
	}
	t.updateYear = int(header[1])
	t.updateMonth = int(header[2])
	t.updateDay = int(header[3])
	// Some producers set the high bit of the record count.
	t.records = int(binary.LittleEndian.Uint32(header[4:8]) & 0x7fffffff)
	t.headerLength = int(binary.LittleEndian.Uint16(header[8:10]))
	t.recordLength = int(binary.LittleEndian.Uint16(header[10:12]))
	t.languageDriver = header[29]

	if t.recordLength == 0 || t.headerLength < fileHeaderSize {
		stream.Close()
		return nil, newErrorf("dbf-table-opentable-5", "malformed header, record length %v, header length %v", t.recordLength, t.headerLength)
	}

	t.record = make([]byte, t.recordLength)
	t.codePage = resolveCodePage(hooks, base, t.languageDriver)
	t.converter = config.Converter
	if t.converter == nil && config.InterpretCodePage && t.languageDriver != 0 {
		t.converter = ConverterFromCodePage(t.languageDriver)
	}

	count := (t.headerLength - fileHeaderSize) / fieldDescSize
	raw := make([]byte, t.headerLength-fileHeaderSize)
	if _, err := stream.Seek(fileHeaderSize, io.SeekStart); err != nil {
		stream.Close()
		return nil, newError("dbf-table-opentable-6", err)
	}
	if _, err := io.ReadFull(stream, raw); err != nil {
		stream.Close()
		return nil, newError("dbf-table-opentable-7", err)
	}
	if err := t.parseFields(raw[:count*fieldDescSize]); err != nil {
		stream.Close()
		return nil, newError("dbf-table-opentable-8", err)
	}
	t.rawHeader = raw[:len(t.fields)*fieldDescSize]
	debugf("Opened table with %d field/s and %d record/s", len(t.fields), t.records)
	return t, nil
}

// Create creates a new table through the default hooks with the
// default code page LDID/87.
func Create(filename string) (*Table, error) {
	return CreateEx(filename, "LDID/87")
}

// CreateEx creates a new table through the default hooks with the
// given code page.
func CreateEx(filename string, codePage string) (*Table, error) {
	return CreateTable(&Config{Filename: filename}, codePage)
}

// CreateTable creates a new, empty table. A code page of the form
// "LDID/<n>" with n in 0..255 is stored in the header's language
// driver byte; any other non-empty string is written verbatim to the
// .cpg sidecar file. The header itself is written lazily by the first
// mutating operation.
func CreateTable(config *Config, codePage string) (*Table, error) {
	if config == nil || len(strings.TrimSpace(config.Filename)) == 0 {
		return nil, newErrorf("dbf-table-createtable-1", "missing filename")
	}
	hooks := config.Hooks
	if hooks == nil {
		hooks = DefaultHooks
	}
	base := trimExtension(config.Filename)
	debugf("Creating table: %s - code page: %q", base, codePage)

	stream, err := hooks.Open(base+".dbf", "wb+")
	if err != nil {
		hooks.Error(fmt.Sprintf("Failed to create file %s.dbf: %v", base, err))
		return nil, newError("dbf-table-createtable-2", err)
	}

	ldid := -1
	if strings.HasPrefix(codePage, "LDID/") {
		if n, aerr := parseInt(codePage[5:]); aerr == nil && n >= 0 && n <= 255 {
			ldid = n
		}
	}
	if len(codePage) > 0 && ldid < 0 {
		if cpg, cerr := hooks.Open(base+".cpg", "w"); cerr == nil {
			cpg.Write([]byte(codePage))
			cpg.Close()
		}
	}
	if len(codePage) == 0 || ldid >= 0 {
		hooks.Remove(base + ".cpg")
	}

	t := &Table{
		config:       config,
		hooks:        hooks,
		stream:       stream,
		fields:       make([]*Field, 0),
		rawHeader:    make([]byte, 0),
		recordLength: 1,
		headerLength: fileHeaderSize + 1,
		record:       make([]byte, 1),
		current:      -1,
		noHeader:     true,
		writeEOF:     true,
		requireSeek:  true,
		codePage:     codePage,
	}
	if ldid > 0 {
		t.languageDriver = byte(ldid)
	}
	t.converter = config.Converter
	t.SetLastModifiedDate(95, 7, 26)
	return t, nil
}

// Close flushes the dirty record and header, closes the stream and
// releases the owned buffers. Every successful open pairs with exactly
// one close.
func (t *Table) Close() error {
	if t.stream == nil {
		return newErrorf("dbf-table-close-1", "table already closed")
	}
	var firstErr error
	if t.noHeader {
		if err := t.writeHeader(); err != nil {
			firstErr = err
		}
	}
	if err := t.flushRecord(); err != nil && firstErr == nil {
		firstErr = err
	}
	if t.updated {
		if err := t.UpdateHeader(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := t.stream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	t.stream = nil
	t.record = nil
	t.work = nil
	t.rawHeader = nil
	t.fields = nil
	if firstErr != nil {
		return newError("dbf-table-close-2", firstErr)
	}
	return nil
}

// CloneEmpty creates a new table with the same code page and field
// definitions as this handle and zero records. The returned handle is
// open read-write.
func (t *Table) CloneEmpty(filename string) (*Table, error) {
	clone, err := CreateTable(&Config{Filename: filename, Hooks: t.hooks, TrimSpaces: t.config.TrimSpaces}, t.codePage)
	if err != nil {
		return nil, newError("dbf-table-cloneempty-1", err)
	}
	clone.fields = make([]*Field, len(t.fields))
	for i, field := range t.fields {
		copied := *field
		clone.fields[i] = &copied
	}
	clone.rawHeader = append([]byte{}, t.rawHeader...)
	clone.recordLength = t.recordLength
	clone.headerLength = t.headerLength
	clone.record = make([]byte, t.recordLength)
	clone.updated = true
	if err := clone.Close(); err != nil {
		return nil, newError("dbf-table-cloneempty-2", err)
	}
	reopened, err := OpenTable(&Config{
		Filename:   filename,
		Mode:       "rb+",
		Hooks:      t.hooks,
		TrimSpaces: t.config.TrimSpaces,
		Converter:  t.converter,
	})
	if err != nil {
		return nil, newError("dbf-table-cloneempty-3", err)
	}
	reopened.writeEOF = t.writeEOF
	return reopened, nil
}

/**
 *	################################################################
 *	#						Schema accessors
 *	################################################################
 */

// FieldCount returns the number of fields in the schema.
func (t *Table) FieldCount() int {
	return len(t.fields)
}

// RecordCount returns the number of records in the table, live and
// deleted alike.
func (t *Table) RecordCount() int {
	return t.records
}

// RecordLength returns the on-disk length of one record including the
// deletion flag.
func (t *Table) RecordLength() int {
	return t.recordLength
}

// HeaderLength returns the on-disk length of the header including the
// terminator byte.
func (t *Table) HeaderLength() int {
	return t.headerLength
}

// FieldInfo returns a copy of the field descriptor at the given
// position.
func (t *Table) FieldInfo(pos int) (Field, error) {
	if pos < 0 || pos >= len(t.fields) {
		return Field{}, newError("dbf-table-fieldinfo-1", ErrInvalid)
	}
	return *t.fields[pos], nil
}

// Fields returns a copy of the schema.
func (t *Table) Fields() []Field {
	fields := make([]Field, len(t.fields))
	for i, field := range t.fields {
		fields[i] = *field
	}
	return fields
}

// FieldNames returns a slice of all the field names.
func (t *Table) FieldNames() []string {
	names := make([]string, len(t.fields))
	for i, field := range t.fields {
		names[i] = field.Name
	}
	return names
}

// FieldIndex returns the position of the first field matching the
// name case-insensitively, or -1 if not found. Duplicate names resolve
// to the first match.
func (t *Table) FieldIndex(name string) int {
	for i, field := range t.fields {
		if strings.EqualFold(field.Name, name) {
			return i
		}
	}
	return -1
}

// NativeFieldType returns the one-byte native type tag of the field,
// or a blank for an invalid position.
func (t *Table) NativeFieldType(pos int) DataType {
	if pos < 0 || pos >= len(t.fields) {
		return DataType(' ')
	}
	return t.fields[pos].Type
}

// CodePage returns the code page resolved on open or set on create,
// or an empty string when none is known.
func (t *Table) CodePage() string {
	return t.codePage
}

// SetConverter sets the encoding converter applied to character
// values.
func (t *Table) SetConverter(converter EncodingConverter) {
	t.converter = converter
}

// SetWriteEndOfFileChar controls whether the legacy 0x1A end-of-file
// marker is maintained after the last record.
func (t *Table) SetWriteEndOfFileChar(enabled bool) {
	t.writeEOF = enabled
}

/**
 *	################################################################
 *	#						Helpers
 *	################################################################
 */

// Strips a trailing extension from the filename, leaving directory
// separators intact.
func trimExtension(filename string) string {
	for i := len(filename) - 1; i > 0; i-- {
		if filename[i] == '/' || filename[i] == '\\' {
			break
		}
		if filename[i] == '.' {
			return filename[:i]
		}
	}
	return filename
}

func normalizeMode(mode string) (string, error) {
	switch mode {
	case "", "r", "rb":
		return "rb", nil
	case "r+", "rb+", "r+b":
		return "rb+", nil
	}
	return "", newErrorf("dbf-table-normalizemode-1", "unknown access mode %q", mode)
}

func parseInt(s string) (int, error) {
	n := 0
	if len(s) == 0 {
		return 0, fmt.Errorf("empty number")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid number %q", s)
		}
		n = n*10 + int(s[i]-'0')
		if n > 1<<30 {
			return 0, fmt.Errorf("number %q out of range", s)
		}
	}
	return n, nil
}
