package dbf

import "io"

// Loads record index into the single-record cache, flushing any dirty
// record first. A no-op when the record is already cached.
func (t *Table) loadRecord(index int) error {
	if t.current == index {
		return nil
	}
	if err := t.flushRecord(); err != nil {
		return newError("dbf-record-loadrecord-1", err)
	}
	offset := int64(t.headerLength) + int64(index)*int64(t.recordLength)
	if _, err := t.stream.Seek(offset, io.SeekStart); err != nil {
		t.current = -1
		return t.ioError("dbf-record-loadrecord-2", "Failure seeking to record %d of DBF file.", index)
	}
	if _, err := io.ReadFull(t.stream, t.record); err != nil {
		t.current = -1
		return t.ioError("dbf-record-loadrecord-3", "Failure reading record %d of DBF file.", index)
	}
	t.current = index
	// A read moved the stream position, the next flush must seek.
	t.requireSeek = true
	return nil
}

// Writes the dirty cached record back to its slot. The seek is elided
// when the stream already sits at the target and no read intervened
// since the last write; no-op seeks defeat the write coalescing of
// some network file systems.
func (t *Table) flushRecord() error {
	if !t.currentModified || t.current < 0 {
		return nil
	}
	t.currentModified = false
	offset := int64(t.headerLength) + int64(t.current)*int64(t.recordLength)
	seek := t.requireSeek
	if !seek {
		position, err := tell(t.stream)
		if err != nil || position != offset {
			seek = true
		}
	}
	if seek {
		if _, err := t.stream.Seek(offset, io.SeekStart); err != nil {
			return t.ioError("dbf-record-flushrecord-1", "Failure seeking to position before writing DBF record %d.", t.current)
		}
	}
	if _, err := t.stream.Write(t.record); err != nil {
		return t.ioError("dbf-record-flushrecord-2", "Failure writing DBF record %d.", t.current)
	}
	t.requireSeek = false
	if t.current == t.records-1 && t.writeEOF {
		if _, err := t.stream.Write([]byte{EOFMarker}); err != nil {
			return t.ioError("dbf-record-flushrecord-3", "Failure writing end of file marker after DBF record %d.", t.current)
		}
		// The marker moved the position past the record slot.
		t.requireSeek = true
	}
	return nil
}

// Shared prologue of every record write: validates the position,
// forces the pending header out, appends a blank record when writing
// one past the end and loads the target into the cache.
func (t *Table) prepareWrite(index int) error {
	if index < 0 || index > t.records {
		return newError("dbf-record-preparewrite-1", ErrInvalid)
	}
	if t.noHeader {
		if err := t.writeHeader(); err != nil {
			return newError("dbf-record-preparewrite-2", err)
		}
	}
	if index == t.records {
		if err := t.flushRecord(); err != nil {
			return newError("dbf-record-preparewrite-3", err)
		}
		t.records++
		for i := range t.record {
			t.record[i] = Active
		}
		t.current = index
		debugf("Appending record %d", index)
	}
	if err := t.loadRecord(index); err != nil {
		return newError("dbf-record-preparewrite-4", err)
	}
	t.currentModified = true
	t.updated = true
	return nil
}

// ReadTuple returns a copy of the raw bytes of the record, deletion
// flag included.
func (t *Table) ReadTuple(index int) ([]byte, error) {
	if index < 0 || index >= t.records {
		return nil, newError("dbf-record-readtuple-1", ErrEOF)
	}
	if err := t.loadRecord(index); err != nil {
		return nil, newError("dbf-record-readtuple-2", err)
	}
	return append([]byte{}, t.record...), nil
}

// WriteTuple overwrites the whole record with the given raw bytes.
// Writing to index RecordCount() appends a new record.
func (t *Table) WriteTuple(index int, raw []byte) error {
	if len(raw) < t.recordLength {
		return newErrorf("dbf-record-writetuple-1", "invalid tuple size %v Bytes < %v Bytes", len(raw), t.recordLength)
	}
	if err := t.prepareWrite(index); err != nil {
		return newError("dbf-record-writetuple-2", err)
	}
	copy(t.record, raw[:t.recordLength])
	return nil
}

// IsDeleted reports whether the record carries the deletion flag.
func (t *Table) IsDeleted(index int) (bool, error) {
	if index < 0 || index >= t.records {
		return false, newError("dbf-record-isdeleted-1", ErrEOF)
	}
	if err := t.loadRecord(index); err != nil {
		return false, newError("dbf-record-isdeleted-2", err)
	}
	return t.record[0] == Deleted, nil
}

// MarkDeleted flips the deletion flag of the record. No bytes other
// than the flag change; deletion never shrinks the file.
func (t *Table) MarkDeleted(index int, deleted bool) error {
	if index < 0 || index >= t.records {
		return newError("dbf-record-markdeleted-1", ErrEOF)
	}
	if err := t.loadRecord(index); err != nil {
		return newError("dbf-record-markdeleted-2", err)
	}
	flag := Active
	if deleted {
		flag = Deleted
	}
	if t.record[0] != flag {
		t.record[0] = flag
		t.currentModified = true
		t.updated = true
	}
	return nil
}
