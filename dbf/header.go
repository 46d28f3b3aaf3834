package dbf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Field is one column of the table schema. Offset is the position of
// the field's bytes inside a record; byte 0 of every record is the
// deletion flag, so the first field starts at offset 1.
type Field struct {
	Name     string
	Type     DataType
	Length   int
	Decimals int
	Offset   int
}

// FieldType classifies the field the way typed reads do: numeric
// fields surface as double when they carry decimals or at least ten
// digits, as integer otherwise.
func (f *Field) FieldType() FieldType {
	switch f.Type {
	case Logical:
		return FTLogical
	case Date:
		return FTDate
	case Numeric, Float:
		if f.Decimals > 0 || f.Length >= 10 {
			return FTDouble
		}
		return FTInteger
	default:
		return FTString
	}
}

// Encodes the field into its 32-byte on-disk descriptor. Character
// fields store the width little-endian across bytes 16-17, all other
// types store width and decimals in one byte each.
func (f *Field) descriptor() []byte {
	desc := make([]byte, fieldDescSize)
	name := f.Name
	if len(name) > fieldNameWriteLength {
		name = name[:fieldNameWriteLength]
	}
	copy(desc[:fieldNameWriteLength], name)
	desc[11] = byte(f.Type)
	if f.Type == Character {
		binary.LittleEndian.PutUint16(desc[16:18], uint16(f.Length))
	} else {
		desc[16] = byte(f.Length)
		desc[17] = byte(f.Decimals)
	}
	return desc
}

// Decodes a 32-byte descriptor. The name is NUL-padded on disk, at
// most 11 bytes are honoured on read and trailing spaces stripped.
func fieldFromDescriptor(desc []byte) *Field {
	name := desc[:fieldNameReadLength]
	if i := bytes.IndexByte(name, 0x00); i >= 0 {
		name = name[:i]
	}
	name = bytes.TrimRight(name, " ")
	field := &Field{
		Name: string(name),
		Type: DataType(desc[11]),
	}
	if field.Type == Character {
		field.Length = int(binary.LittleEndian.Uint16(desc[16:18]))
	} else {
		field.Length = int(desc[16])
		field.Decimals = int(desc[17])
	}
	return field
}

// Parses the descriptor region into the schema. Parsing stops early at
// a terminator byte in place of a descriptor, which tolerates
// truncated headers.
func (t *Table) parseFields(raw []byte) error {
	count := len(raw) / fieldDescSize
	t.fields = make([]*Field, 0, count)
	for i := 0; i < count; i++ {
		desc := raw[i*fieldDescSize : (i+1)*fieldDescSize]
		if desc[0] == ColumnEnd {
			break
		}
		field := fieldFromDescriptor(desc)
		if i == 0 {
			field.Offset = 1
		} else {
			prev := t.fields[i-1]
			field.Offset = prev.Offset + prev.Length
		}
		debugf("Found field %v of type %v at offset: %d", field.Name, field.Type, field.Offset)
		t.fields = append(t.fields, field)
	}
	if n := len(t.fields); n > 0 {
		last := t.fields[n-1]
		if last.Offset+last.Length > t.recordLength {
			return newErrorf("dbf-header-parsefields-1", "field widths exceed record length %v", t.recordLength)
		}
	}
	return nil
}

// Writes the full header: the 32-byte file header, the raw descriptor
// region and the terminator. Only acts when the header is still
// pending; record data written earlier stays untouched because the
// header region never shrinks below its declared length.
func (t *Table) writeHeader() error {
	if !t.noHeader {
		return nil
	}
	t.noHeader = false

	header := make([]byte, fileHeaderSize)
	header[0] = 0x03
	header[1] = byte(t.updateYear)
	header[2] = byte(t.updateMonth)
	header[3] = byte(t.updateDay)
	binary.LittleEndian.PutUint32(header[4:8], uint32(t.records))
	binary.LittleEndian.PutUint16(header[8:10], uint16(t.headerLength))
	binary.LittleEndian.PutUint16(header[10:12], uint16(t.recordLength))
	header[29] = t.languageDriver

	debugf("Writing header - %d field/s, header length: %d, record length: %d", len(t.fields), t.headerLength, t.recordLength)
	if _, err := t.stream.Seek(0, io.SeekStart); err != nil {
		return newError("dbf-header-writeheader-1", err)
	}
	if _, err := t.stream.Write(header); err != nil {
		return newError("dbf-header-writeheader-2", err)
	}
	if _, err := t.stream.Write(t.rawHeader); err != nil {
		return newError("dbf-header-writeheader-3", err)
	}
	if _, err := t.stream.Write([]byte{ColumnEnd}); err != nil {
		return newError("dbf-header-writeheader-4", err)
	}
	if t.records == 0 && t.writeEOF {
		if _, err := t.stream.Write([]byte{EOFMarker}); err != nil {
			return newError("dbf-header-writeheader-5", err)
		}
	}
	t.requireSeek = true
	return nil
}

// UpdateHeader refreshes the mutable bytes of the file header, the
// update date and the record count, without disturbing the descriptor
// region.
func (t *Table) UpdateHeader() error {
	if t.noHeader {
		if err := t.writeHeader(); err != nil {
			return newError("dbf-header-updateheader-1", err)
		}
	}
	if err := t.flushRecord(); err != nil {
		return newError("dbf-header-updateheader-2", err)
	}
	if _, err := t.stream.Seek(0, io.SeekStart); err != nil {
		return newError("dbf-header-updateheader-3", err)
	}
	header := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(t.stream, header); err != nil {
		return newError("dbf-header-updateheader-4", err)
	}
	header[1] = byte(t.updateYear)
	header[2] = byte(t.updateMonth)
	header[3] = byte(t.updateDay)
	binary.LittleEndian.PutUint32(header[4:8], uint32(t.records))
	if _, err := t.stream.Seek(0, io.SeekStart); err != nil {
		return newError("dbf-header-updateheader-5", err)
	}
	if _, err := t.stream.Write(header); err != nil {
		return newError("dbf-header-updateheader-6", err)
	}
	t.requireSeek = true
	if err := t.stream.Sync(); err != nil {
		return newError("dbf-header-updateheader-7", err)
	}
	return nil
}

// SetLastModifiedDate sets the update date written to the header. The
// year is counted from 1900.
func (t *Table) SetLastModifiedDate(yearSince1900 int, month int, day int) {
	t.updateYear = yearSince1900
	t.updateMonth = month
	t.updateDay = day
}

// Modified returns the header's update date. The on-disk year is
// counted from 1900.
func (t *Table) Modified() time.Time {
	return time.Date(1900+t.updateYear, time.Month(t.updateMonth), t.updateDay, 0, 0, 0, 0, time.Local)
}

// Reports the failing operation through the hooks error reporter and
// wraps the underlying error.
func (t *Table) ioError(context string, format string, v ...interface{}) error {
	message := fmt.Sprintf(format, v...)
	t.hooks.Error(message)
	return newErrorf(context, "%s", message)
}
