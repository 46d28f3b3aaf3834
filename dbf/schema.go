package dbf

import "io"

// Schema mutations share one flow: flush the current record, build the
// replacement schema in parallel buffers, rewrite the record stream in
// the order that never overwrites unread bytes, force a full header
// rewrite and invalidate the record cache. A failure mid-rewrite
// leaves the file observable but the handle's cache invalidated; the
// caller is expected to discard the handle.

// AddField appends a field to the schema. The width is clamped to 255.
// On a table that already has records, every record is rewritten from
// last to first and the new field's bytes are initialised to the
// type's null sentinel. Returns the index of the new field.
func (t *Table) AddField(name string, typ DataType, width int, decimals int) (int, error) {
	if t.headerLength+fieldDescSize > maxHeaderLength {
		return -1, t.ioError("dbf-schema-addfield-2", "Cannot add field %s. Header length limit reached (max 65535 bytes, 2046 fields).", name)
	}
	if width < 1 {
		return -1, newError("dbf-schema-addfield-3", ErrInvalid)
	}
	if width > maxFieldWidth {
		width = maxFieldWidth
	}
	if t.recordLength+width > maxRecordLength {
		return -1, t.ioError("dbf-schema-addfield-4", "Cannot add field %s. Record length limit reached (max 65535 bytes).", name)
	}
	if len(name) > fieldNameWriteLength {
		name = name[:fieldNameWriteLength]
	}
	if err := t.flushRecord(); err != nil {
		return -1, newError("dbf-schema-addfield-1", err)
	}

	oldRecordLength := t.recordLength
	oldHeaderLength := t.headerLength

	field := &Field{
		Name:     name,
		Type:     typ,
		Length:   width,
		Decimals: decimals,
		Offset:   t.recordLength,
	}

	// Build the replacement buffers before touching the live schema.
	fields := append(append(make([]*Field, 0, len(t.fields)+1), t.fields...), field)
	rawHeader := append(append(make([]byte, 0, len(t.rawHeader)+fieldDescSize), t.rawHeader...), field.descriptor()...)
	record := make([]byte, oldRecordLength+width)
	copy(record, t.record)

	t.fields = fields
	t.rawHeader = rawHeader
	t.record = record
	t.recordLength += width
	t.headerLength += fieldDescSize
	debugf("Added field %v of type %v, record length now %d", name, typ, t.recordLength)

	if t.noHeader {
		return len(t.fields) - 1, nil
	}

	// The header grew, so every record moves; walking backwards never
	// overwrites a record that is still unread.
	fill := nullCharacter(typ)
	buf := make([]byte, t.recordLength)
	for i := t.records - 1; i >= 0; i-- {
		if err := t.readRecordAt(buf[:oldRecordLength], oldHeaderLength, oldRecordLength, i); err != nil {
			t.invalidate()
			return -1, newError("dbf-schema-addfield-5", err)
		}
		for j := oldRecordLength; j < t.recordLength; j++ {
			buf[j] = fill
		}
		if err := t.writeRecordAt(buf, i); err != nil {
			t.invalidate()
			return -1, newError("dbf-schema-addfield-6", err)
		}
	}
	if err := t.writeEOFMarker(); err != nil {
		t.invalidate()
		return -1, newError("dbf-schema-addfield-7", err)
	}

	t.noHeader = true
	if err := t.UpdateHeader(); err != nil {
		t.invalidate()
		return -1, newError("dbf-schema-addfield-8", err)
	}
	t.invalidate()
	t.updated = true
	return len(t.fields) - 1, nil
}

// DeleteField removes the field at the given position. Records are
// rewritten from first to last in two writes each, the bytes before
// the deleted field and the bytes after it. The file is not truncated
// to the shorter length; the stale tail stays unreachable through the
// record count.
// TODO: truncate the file once the hooks grow a truncate capability.
func (t *Table) DeleteField(pos int) error {
	if pos < 0 || pos >= len(t.fields) {
		return newError("dbf-schema-deletefield-1", ErrInvalid)
	}
	if err := t.flushRecord(); err != nil {
		return newError("dbf-schema-deletefield-2", err)
	}

	oldRecordLength := t.recordLength
	oldHeaderLength := t.headerLength
	deletedOffset := t.fields[pos].Offset
	deletedSize := t.fields[pos].Length

	fields := make([]*Field, 0, len(t.fields)-1)
	rawHeader := make([]byte, 0, len(t.rawHeader)-fieldDescSize)
	for i, field := range t.fields {
		if i == pos {
			continue
		}
		copied := *field
		if i > pos {
			copied.Offset -= deletedSize
		}
		fields = append(fields, &copied)
		rawHeader = append(rawHeader, t.rawHeader[i*fieldDescSize:(i+1)*fieldDescSize]...)
	}
	record := make([]byte, oldRecordLength-deletedSize)

	t.fields = fields
	t.rawHeader = rawHeader
	t.record = record
	t.recordLength -= deletedSize
	t.headerLength -= fieldDescSize
	debugf("Deleted field %d, record length now %d", pos, t.recordLength)

	if t.noHeader && t.records == 0 {
		return nil
	}

	t.noHeader = true
	if err := t.UpdateHeader(); err != nil {
		t.invalidate()
		return newError("dbf-schema-deletefield-3", err)
	}

	buf := make([]byte, oldRecordLength)
	for i := 0; i < t.records; i++ {
		if err := t.readRecordAt(buf, oldHeaderLength, oldRecordLength, i); err != nil {
			t.invalidate()
			return newError("dbf-schema-deletefield-4", err)
		}
		offset := int64(t.headerLength) + int64(i)*int64(t.recordLength)
		if _, err := t.stream.Seek(offset, io.SeekStart); err != nil {
			t.invalidate()
			return t.ioError("dbf-schema-deletefield-5", "Failure seeking to position before writing DBF record %d.", i)
		}
		if _, err := t.stream.Write(buf[:deletedOffset]); err != nil {
			t.invalidate()
			return t.ioError("dbf-schema-deletefield-6", "Failure writing DBF record %d.", i)
		}
		if _, err := t.stream.Write(buf[deletedOffset+deletedSize : oldRecordLength]); err != nil {
			t.invalidate()
			return t.ioError("dbf-schema-deletefield-7", "Failure writing DBF record %d.", i)
		}
	}
	if err := t.writeEOFMarker(); err != nil {
		t.invalidate()
		return newError("dbf-schema-deletefield-8", err)
	}

	t.invalidate()
	t.updated = true
	return nil
}

// ReorderFields rearranges the schema according to order, a
// permutation of [0..FieldCount()). Each record is reassembled in a
// scratch buffer with the deletion flag preserved and written back in
// place; the record length does not change.
func (t *Table) ReorderFields(order []int) error {
	if len(t.fields) == 0 {
		return nil
	}
	if len(order) != len(t.fields) {
		return newError("dbf-schema-reorderfields-1", ErrInvalid)
	}
	seen := make([]bool, len(order))
	for _, src := range order {
		if src < 0 || src >= len(order) || seen[src] {
			return newError("dbf-schema-reorderfields-2", ErrInvalid)
		}
		seen[src] = true
	}
	if err := t.flushRecord(); err != nil {
		return newError("dbf-schema-reorderfields-3", err)
	}

	fields := make([]*Field, len(t.fields))
	rawHeader := make([]byte, len(t.rawHeader))
	for i, src := range order {
		copied := *t.fields[src]
		fields[i] = &copied
		copy(rawHeader[i*fieldDescSize:(i+1)*fieldDescSize], t.rawHeader[src*fieldDescSize:(src+1)*fieldDescSize])
	}
	fields[0].Offset = 1
	for i := 1; i < len(fields); i++ {
		fields[i].Offset = fields[i-1].Offset + fields[i-1].Length
	}

	oldFields := t.fields
	t.fields = fields
	t.rawHeader = rawHeader
	debugf("Reordered %d field/s", len(fields))

	if t.noHeader && t.records == 0 {
		return nil
	}

	t.noHeader = true
	if err := t.UpdateHeader(); err != nil {
		t.invalidate()
		return newError("dbf-schema-reorderfields-4", err)
	}

	buf := make([]byte, t.recordLength)
	scratch := make([]byte, t.recordLength)
	for i := 0; i < t.records; i++ {
		if err := t.readRecordAt(buf, t.headerLength, t.recordLength, i); err != nil {
			t.invalidate()
			return newError("dbf-schema-reorderfields-5", err)
		}
		scratch[0] = buf[0]
		for j, field := range fields {
			src := oldFields[order[j]]
			copy(scratch[field.Offset:field.Offset+field.Length], buf[src.Offset:src.Offset+src.Length])
		}
		if err := t.writeRecordAt(scratch, i); err != nil {
			t.invalidate()
			return newError("dbf-schema-reorderfields-6", err)
		}
	}

	t.invalidate()
	t.updated = true
	return nil
}

// AlterField changes name, type, width and decimals of one field. A
// width change rewrites every record: shrinking walks front to back
// and truncates (numeric and date fields strip leading spaces first),
// growing walks back to front and pads (numeric fields with leading
// spaces, everything else trailing). Null values are re-emitted as the
// destination type's null sentinel.
func (t *Table) AlterField(pos int, name string, typ DataType, width int, decimals int) error {
	if pos < 0 || pos >= len(t.fields) {
		return newError("dbf-schema-alterfield-1", ErrInvalid)
	}
	if width < 1 {
		return newError("dbf-schema-alterfield-3", ErrInvalid)
	}
	if width > maxFieldWidth {
		width = maxFieldWidth
	}
	if err := t.flushRecord(); err != nil {
		return newError("dbf-schema-alterfield-2", err)
	}
	if len(name) > fieldNameWriteLength {
		name = name[:fieldNameWriteLength]
	}

	fill := nullCharacter(typ)
	old := *t.fields[pos]
	oldRecordLength := t.recordLength
	delta := width - old.Length

	if delta != 0 {
		record := make([]byte, oldRecordLength+delta)
		copy(record, t.record)
		t.record = record
	}

	field := t.fields[pos]
	field.Name = name
	field.Type = typ
	field.Length = width
	field.Decimals = decimals
	copy(t.rawHeader[pos*fieldDescSize:(pos+1)*fieldDescSize], field.descriptor())
	if delta != 0 {
		for i := pos + 1; i < len(t.fields); i++ {
			t.fields[i].Offset += delta
		}
		t.recordLength += delta
	}
	debugf("Altered field %d to %v %v(%d,%d), record length now %d", pos, name, typ, width, decimals, t.recordLength)

	if t.noHeader && t.records == 0 {
		return nil
	}

	t.noHeader = true
	if err := t.UpdateHeader(); err != nil {
		t.invalidate()
		return newError("dbf-schema-alterfield-4", err)
	}

	numericOld := old.Type == Numeric || old.Type == Float
	switch {
	case delta < 0 || (delta == 0 && typ != old.Type):
		buf := make([]byte, oldRecordLength)
		for i := 0; i < t.records; i++ {
			if err := t.readRecordAt(buf, t.headerLength, oldRecordLength, i); err != nil {
				t.invalidate()
				return newError("dbf-schema-alterfield-5", err)
			}
			wasNull := isValueNull(old.Type, string(buf[old.Offset:old.Offset+old.Length]))
			if delta != 0 {
				if (numericOld || old.Type == Date) && buf[old.Offset] == ' ' {
					// Strip leading spaces when truncating a numeric field.
					copy(buf[old.Offset:old.Offset+width], buf[old.Offset+old.Length-width:old.Offset+old.Length])
				}
				if old.Offset+old.Length < oldRecordLength {
					copy(buf[old.Offset+width:], buf[old.Offset+old.Length:oldRecordLength])
				}
			}
			if wasNull {
				for j := old.Offset; j < old.Offset+width; j++ {
					buf[j] = fill
				}
			}
			if err := t.writeRecordAt(buf[:t.recordLength], i); err != nil {
				t.invalidate()
				return newError("dbf-schema-alterfield-6", err)
			}
		}
		if err := t.writeEOFMarker(); err != nil {
			t.invalidate()
			return newError("dbf-schema-alterfield-7", err)
		}
		// TODO: truncate file
	case delta > 0:
		buf := make([]byte, t.recordLength)
		oldField := make([]byte, old.Length)
		for i := t.records - 1; i >= 0; i-- {
			if err := t.readRecordAt(buf[:oldRecordLength], t.headerLength, oldRecordLength, i); err != nil {
				t.invalidate()
				return newError("dbf-schema-alterfield-8", err)
			}
			copy(oldField, buf[old.Offset:old.Offset+old.Length])
			wasNull := isValueNull(old.Type, string(oldField))
			if old.Offset+old.Length < oldRecordLength {
				copy(buf[old.Offset+width:t.recordLength], buf[old.Offset+old.Length:oldRecordLength])
			}
			switch {
			case wasNull:
				for j := old.Offset; j < old.Offset+width; j++ {
					buf[j] = fill
				}
			case numericOld:
				// Add leading spaces when expanding a numeric field.
				copy(buf[old.Offset+delta:old.Offset+width], oldField)
				for j := old.Offset; j < old.Offset+delta; j++ {
					buf[j] = ' '
				}
			default:
				for j := old.Offset + old.Length; j < old.Offset+width; j++ {
					buf[j] = ' '
				}
			}
			if err := t.writeRecordAt(buf, i); err != nil {
				t.invalidate()
				return newError("dbf-schema-alterfield-9", err)
			}
		}
		if err := t.writeEOFMarker(); err != nil {
			t.invalidate()
			return newError("dbf-schema-alterfield-10", err)
		}
	}

	t.invalidate()
	t.updated = true
	return nil
}

/**
 *	################################################################
 *	#						Rewrite helpers
 *	################################################################
 */

// Reads the raw bytes of record index from an explicitly given file
// layout; mutations read the old layout while the schema already
// describes the new one.
func (t *Table) readRecordAt(buf []byte, headerLength int, recordLength int, index int) error {
	offset := int64(headerLength) + int64(index)*int64(recordLength)
	if _, err := t.stream.Seek(offset, io.SeekStart); err != nil {
		return t.ioError("dbf-schema-readrecordat-1", "Failure seeking to record %d of DBF file.", index)
	}
	if _, err := io.ReadFull(t.stream, buf); err != nil {
		return t.ioError("dbf-schema-readrecordat-2", "Failure reading record %d of DBF file.", index)
	}
	return nil
}

// Writes the raw bytes of record index using the current (post
// mutation) layout.
func (t *Table) writeRecordAt(buf []byte, index int) error {
	offset := int64(t.headerLength) + int64(index)*int64(t.recordLength)
	if _, err := t.stream.Seek(offset, io.SeekStart); err != nil {
		return t.ioError("dbf-schema-writerecordat-1", "Failure seeking to position before writing DBF record %d.", index)
	}
	if _, err := t.stream.Write(buf); err != nil {
		return t.ioError("dbf-schema-writerecordat-2", "Failure writing DBF record %d.", index)
	}
	return nil
}

// Rewrites the legacy end-of-file marker at the current end of the
// record stream when enabled.
func (t *Table) writeEOFMarker() error {
	if !t.writeEOF {
		return nil
	}
	offset := int64(t.headerLength) + int64(t.records)*int64(t.recordLength)
	if _, err := t.stream.Seek(offset, io.SeekStart); err != nil {
		return t.ioError("dbf-schema-writeeofmarker-1", "Failure seeking to position before writing end of file marker.")
	}
	if _, err := t.stream.Write([]byte{EOFMarker}); err != nil {
		return t.ioError("dbf-schema-writeeofmarker-2", "Failure writing end of file marker.")
	}
	t.requireSeek = true
	return nil
}

// Drops the record cache after a mutation; the buffered bytes describe
// the previous layout.
func (t *Table) invalidate() {
	t.current = -1
	t.currentModified = false
	t.requireSeek = true
}
