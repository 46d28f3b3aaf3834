package dbf

import (
	"fmt"
	"strconv"
	"strings"
)

// The null sentinel fill byte for a native type. DBF has no dedicated
// null bit; absence is encoded in the field bytes themselves.
func nullCharacter(typ DataType) byte {
	switch typ {
	case Numeric, Float:
		return '*'
	case Date:
		return '0'
	case Logical:
		return '?'
	default:
		return ' '
	}
}

// Reports whether the raw field bytes encode the null value for the
// given native type.
func isValueNull(typ DataType, value string) bool {
	switch typ {
	case Numeric, Float:
		if len(value) > 0 && value[0] == '*' {
			return true
		}
		return len(strings.Trim(value, " ")) == 0
	case Date:
		trimmed := strings.Trim(value, " ")
		if len(trimmed) == 0 || trimmed == "0" {
			return true
		}
		if strings.HasPrefix(value, "00000000") {
			return true
		}
		for i := 0; i < len(value); i++ {
			if value[i] != '0' {
				return false
			}
		}
		return true
	case Logical:
		if len(value) > 0 && value[0] == '?' {
			return true
		}
		return len(strings.Trim(value, " ")) == 0
	default:
		return len(strings.Trim(value, " ")) == 0
	}
}

// Extracts the raw bytes of one field of one record through the
// scratch buffer.
func (t *Table) readAttribute(index int, pos int) (string, error) {
	if index < 0 || index >= t.records {
		return "", newError("dbf-interpreter-readattribute-1", ErrEOF)
	}
	if pos < 0 || pos >= len(t.fields) {
		return "", newError("dbf-interpreter-readattribute-2", ErrInvalid)
	}
	if err := t.loadRecord(index); err != nil {
		return "", newError("dbf-interpreter-readattribute-3", err)
	}
	field := t.fields[pos]
	if field.Length >= len(t.work) {
		t.work = make([]byte, field.Length+100)
	}
	n := copy(t.work, t.record[field.Offset:field.Offset+field.Length])
	return string(t.work[:n]), nil
}

// ReadInteger reads a field as an integer. Parsing routes through the
// locale-independent double parser and truncates.
func (t *Table) ReadInteger(index int, pos int) (int, error) {
	value, err := t.readAttribute(index, pos)
	if err != nil {
		return 0, newError("dbf-interpreter-readinteger-1", err)
	}
	return int(t.hooks.Atof(value)), nil
}

// ReadDouble reads a field as a double.
func (t *Table) ReadDouble(index int, pos int) (float64, error) {
	value, err := t.readAttribute(index, pos)
	if err != nil {
		return 0, newError("dbf-interpreter-readdouble-1", err)
	}
	return t.hooks.Atof(value), nil
}

// ReadString reads a field as a string. When a converter is configured
// the bytes are decoded through it; when the trim policy is enabled
// leading and trailing spaces are stripped.
func (t *Table) ReadString(index int, pos int) (string, error) {
	value, err := t.readAttribute(index, pos)
	if err != nil {
		return "", newError("dbf-interpreter-readstring-1", err)
	}
	if t.converter != nil {
		decoded, derr := t.converter.Decode([]byte(value))
		if derr != nil {
			return value, newError("dbf-interpreter-readstring-2", derr)
		}
		value = string(decoded)
	}
	if t.config != nil && t.config.TrimSpaces {
		value = strings.Trim(value, " ")
	}
	return value, nil
}

// ReadLogical reads the single character of a logical field, 'T', 'F'
// or the null sentinel '?'.
func (t *Table) ReadLogical(index int, pos int) (byte, error) {
	value, err := t.readAttribute(index, pos)
	if err != nil {
		return 0, newError("dbf-interpreter-readlogical-1", err)
	}
	if len(value) == 0 {
		return 0, newError("dbf-interpreter-readlogical-2", ErrIncomplete)
	}
	return value[0], nil
}

// ReadDate reads a date field stored as "yyyymmdd". Unparseable
// content yields the all-zero date, matching the null convention.
func (t *Table) ReadDate(index int, pos int) (CalendarDate, error) {
	value, err := t.readAttribute(index, pos)
	if err != nil {
		return CalendarDate{}, newError("dbf-interpreter-readdate-1", err)
	}
	return parseDate(value), nil
}

func parseDate(value string) CalendarDate {
	if len(value) < 8 {
		return CalendarDate{}
	}
	year, erry := strconv.Atoi(strings.TrimLeft(value[0:4], " "))
	month, errm := strconv.Atoi(strings.TrimLeft(value[4:6], " "))
	day, errd := strconv.Atoi(strings.TrimLeft(value[6:8], " "))
	if erry != nil || errm != nil || errd != nil {
		return CalendarDate{}
	}
	return CalendarDate{Year: year, Month: month, Day: day}
}

// IsNull reports whether the field value of the record is the null
// value of its type.
func (t *Table) IsNull(index int, pos int) (bool, error) {
	value, err := t.readAttribute(index, pos)
	if err != nil {
		return false, newError("dbf-interpreter-isnull-1", err)
	}
	return isValueNull(t.fields[pos].Type, value), nil
}

/**
 *	################################################################
 *	#						Typed writes
 *	################################################################
 */

// WriteDouble writes a numeric value formatted to the field's width
// and decimals. A value whose formatted string exceeds the width is
// truncated; the write reports failure iff the truncated value no
// longer parses back to the input. The bytes are written either way.
func (t *Table) WriteDouble(index int, pos int, value float64) error {
	if pos < 0 || pos >= len(t.fields) {
		return newError("dbf-interpreter-writedouble-1", ErrInvalid)
	}
	field := t.fields[pos]
	switch field.Type {
	case Numeric, Float, Date:
	default:
		return newError("dbf-interpreter-writedouble-2", ErrInvalid)
	}
	if err := t.prepareWrite(index); err != nil {
		return newError("dbf-interpreter-writedouble-3", err)
	}
	formatted := fmt.Sprintf("%*.*f", field.Length, field.Decimals, value)
	truncated := false
	if len(formatted) > field.Length {
		formatted = formatted[:field.Length]
		truncated = t.hooks.Atof(formatted) != value
	}
	copy(t.record[field.Offset:field.Offset+field.Length], formatted)
	if truncated {
		return newErrorf("dbf-interpreter-writedouble-4", "value %v does not fit into field %v of width %v", value, field.Name, field.Length)
	}
	return nil
}

// WriteInteger writes an integer value through the numeric path.
func (t *Table) WriteInteger(index int, pos int, value int) error {
	err := t.WriteDouble(index, pos, float64(value))
	if err != nil {
		return newError("dbf-interpreter-writeinteger-1", err)
	}
	return nil
}

// WriteString writes a string value left-aligned and space-padded. A
// value longer than the field truncates and reports failure.
func (t *Table) WriteString(index int, pos int, value string) error {
	if pos < 0 || pos >= len(t.fields) {
		return newError("dbf-interpreter-writestring-1", ErrInvalid)
	}
	raw := []byte(value)
	if t.converter != nil {
		encoded, err := t.converter.Encode(raw)
		if err != nil {
			return newError("dbf-interpreter-writestring-2", err)
		}
		raw = encoded
	}
	if err := t.prepareWrite(index); err != nil {
		return newError("dbf-interpreter-writestring-3", err)
	}
	field := t.fields[pos]
	if len(raw) > field.Length {
		copy(t.record[field.Offset:field.Offset+field.Length], raw[:field.Length])
		return newErrorf("dbf-interpreter-writestring-4", "value of %v Bytes does not fit into field %v of width %v", len(raw), field.Name, field.Length)
	}
	for i := field.Offset; i < field.Offset+field.Length; i++ {
		t.record[i] = ' '
	}
	copy(t.record[field.Offset:], raw)
	return nil
}

// WriteLogical writes 'T' or 'F' into a logical field. Any other value
// leaves the field untouched and reports failure.
func (t *Table) WriteLogical(index int, pos int, value byte) error {
	if pos < 0 || pos >= len(t.fields) {
		return newError("dbf-interpreter-writelogical-1", ErrInvalid)
	}
	field := t.fields[pos]
	if field.Type != Logical {
		return newError("dbf-interpreter-writelogical-2", ErrInvalid)
	}
	if err := t.prepareWrite(index); err != nil {
		return newError("dbf-interpreter-writelogical-3", err)
	}
	if field.Length < 1 || (value != 'T' && value != 'F') {
		return newErrorf("dbf-interpreter-writelogical-4", "invalid logical value %q", string(rune(value)))
	}
	t.record[field.Offset] = value
	return nil
}

// WriteDate writes a date as the fixed 8 bytes "yyyymmdd". The digit
// ranges are validated, calendar validity is not.
func (t *Table) WriteDate(index int, pos int, date CalendarDate) error {
	if date.Year < 0 || date.Year > 9999 {
		return newError("dbf-interpreter-writedate-1", ErrInvalid)
	}
	if date.Month < 0 || date.Month > 99 {
		return newError("dbf-interpreter-writedate-2", ErrInvalid)
	}
	if date.Day < 0 || date.Day > 99 {
		return newError("dbf-interpreter-writedate-3", ErrInvalid)
	}
	value := fmt.Sprintf("%04d%02d%02d", date.Year, date.Month, date.Day)
	err := t.WriteAttributeDirectly(index, pos, value)
	if err != nil {
		return newError("dbf-interpreter-writedate-4", err)
	}
	return nil
}

// WriteNull fills the field with the null sentinel of its type.
func (t *Table) WriteNull(index int, pos int) error {
	if pos < 0 || pos >= len(t.fields) {
		return newError("dbf-interpreter-writenull-1", ErrInvalid)
	}
	if err := t.prepareWrite(index); err != nil {
		return newError("dbf-interpreter-writenull-2", err)
	}
	field := t.fields[pos]
	fill := nullCharacter(field.Type)
	for i := field.Offset; i < field.Offset+field.Length; i++ {
		t.record[i] = fill
	}
	return nil
}

// WriteAttributeDirectly writes the value into the field position
// without any type-dependent formatting. Overlong values are truncated
// silently, shorter values are space-padded on the right.
func (t *Table) WriteAttributeDirectly(index int, pos int, value string) error {
	if pos < 0 || pos >= len(t.fields) {
		return newError("dbf-interpreter-writedirectly-1", ErrInvalid)
	}
	if err := t.prepareWrite(index); err != nil {
		return newError("dbf-interpreter-writedirectly-2", err)
	}
	field := t.fields[pos]
	n := len(value)
	if n > field.Length {
		n = field.Length
	} else {
		for i := field.Offset; i < field.Offset+field.Length; i++ {
			t.record[i] = ' '
		}
	}
	copy(t.record[field.Offset:field.Offset+n], value[:n])
	return nil
}
