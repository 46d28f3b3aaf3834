package dbf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Creates an empty table named t.dbf on a fresh in-memory provider.
func newMemTable(t *testing.T, codePage string) (*Table, *MemHooks) {
	t.Helper()
	hooks := NewMemHooks()
	table, err := CreateTable(&Config{Filename: "t.dbf", Hooks: hooks}, codePage)
	require.NoError(t, err)
	return table, hooks
}

func reopen(t *testing.T, hooks *MemHooks, mode string) *Table {
	t.Helper()
	table, err := OpenTable(&Config{Filename: "t.dbf", Mode: mode, Hooks: hooks})
	require.NoError(t, err)
	return table
}

func TestCreateWriteReopen(t *testing.T) {
	table, hooks := newMemTable(t, "LDID/87")
	_, err := table.AddField("ID", Numeric, 10, 0)
	require.NoError(t, err)

	for i, value := range []int{1, 2, 3} {
		require.NoError(t, table.WriteInteger(i, 0, value))
	}
	require.NoError(t, table.Close())

	table = reopen(t, hooks, "rb")
	defer table.Close()
	assert.Equal(t, 3, table.RecordCount())
	for i, want := range []int{1, 2, 3} {
		got, err := table.ReadInteger(i, 0)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSchemaRoundTrip(t *testing.T) {
	specs := []struct {
		name     string
		typ      DataType
		width    int
		decimals int
	}{
		{"NAME", Character, 20, 0},
		{"ID", Numeric, 10, 0},
		{"RATIO", Numeric, 12, 3},
		{"TEMP", Float, 8, 2},
		{"SEEN", Date, 8, 0},
		{"FLAG", Logical, 1, 0},
		{"NOTES", Memo, 10, 0},
	}

	table, hooks := newMemTable(t, "LDID/87")
	for _, spec := range specs {
		_, err := table.AddField(spec.name, spec.typ, spec.width, spec.decimals)
		require.NoError(t, err)
	}
	require.NoError(t, table.Close())

	table = reopen(t, hooks, "rb")
	defer table.Close()
	require.Equal(t, len(specs), table.FieldCount())
	offset := 1
	for i, spec := range specs {
		field, err := table.FieldInfo(i)
		require.NoError(t, err)
		assert.Equal(t, spec.name, field.Name)
		assert.Equal(t, spec.typ, field.Type)
		assert.Equal(t, spec.width, field.Length)
		assert.Equal(t, spec.decimals, field.Decimals)
		assert.Equal(t, offset, field.Offset)
		offset += spec.width
	}
	assert.Equal(t, 1+offset-1, table.RecordLength())
	assert.Equal(t, 32+32*len(specs)+1, table.HeaderLength())
}

func TestLongFieldNameTruncatedOnWrite(t *testing.T) {
	table, hooks := newMemTable(t, "")
	_, err := table.AddField("ABCDEFGHIJKL", Character, 5, 0)
	require.NoError(t, err)
	require.NoError(t, table.Close())

	table = reopen(t, hooks, "rb")
	defer table.Close()
	field, err := table.FieldInfo(0)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJ", field.Name, "names are truncated to 10 bytes on write")
}

func TestOpenRejectsUnknownMode(t *testing.T) {
	hooks := memTableWithRecords(t)
	for _, mode := range []string{"w", "a", "rw", "rb++"} {
		_, err := OpenTable(&Config{Filename: "t.dbf", Mode: mode, Hooks: hooks})
		assert.Error(t, err, "mode %q must be rejected", mode)
	}
	for _, mode := range []string{"r", "rb", "r+", "rb+", "r+b"} {
		table, err := OpenTable(&Config{Filename: "t.dbf", Mode: mode, Hooks: hooks})
		require.NoError(t, err, "mode %q must be accepted", mode)
		require.NoError(t, table.Close())
	}
}

func TestOpenRejectsMalformedHeader(t *testing.T) {
	hooks := NewMemHooks()

	// Record length of zero.
	raw := make([]byte, 40)
	raw[0] = 0x03
	raw[8] = 33 // header length
	stream, err := hooks.Open("bad.dbf", "wb+")
	require.NoError(t, err)
	stream.Write(raw)
	stream.Close()
	_, err = OpenTable(&Config{Filename: "bad.dbf", Hooks: hooks})
	assert.Error(t, err)

	// Header length below the file header size.
	raw[8] = 16
	raw[10] = 5
	stream, err = hooks.Open("bad.dbf", "wb+")
	require.NoError(t, err)
	stream.Write(raw)
	stream.Close()
	_, err = OpenTable(&Config{Filename: "bad.dbf", Hooks: hooks})
	assert.Error(t, err)
}

func TestOpenToleratesTruncatedDescriptors(t *testing.T) {
	// Header claims two descriptors but the second slot holds the
	// terminator; parsing must stop after the first field.
	hooks := NewMemHooks()
	raw := make([]byte, 32+64+1)
	raw[0] = 0x03
	raw[8] = byte((32 + 64 + 1) % 256)
	raw[9] = byte((32 + 64 + 1) / 256)
	raw[10] = 6 // record length: flag + one width-5 field
	copy(raw[32:], "NAME")
	raw[32+11] = 'C'
	raw[32+16] = 5
	raw[64] = ColumnEnd
	stream, err := hooks.Open("trunc.dbf", "wb+")
	require.NoError(t, err)
	stream.Write(raw)
	stream.Close()

	table, err := OpenTable(&Config{Filename: "trunc.dbf", Hooks: hooks})
	require.NoError(t, err)
	defer table.Close()
	assert.Equal(t, 1, table.FieldCount())
	field, err := table.FieldInfo(0)
	require.NoError(t, err)
	assert.Equal(t, "NAME", field.Name)
	assert.Equal(t, 5, field.Length)
}

func TestFieldIndex(t *testing.T) {
	table, _ := newMemTable(t, "")
	_, err := table.AddField("NAME", Character, 10, 0)
	require.NoError(t, err)
	_, err = table.AddField("VALUE", Numeric, 8, 2)
	require.NoError(t, err)
	defer table.Close()

	assert.Equal(t, 0, table.FieldIndex("NAME"))
	assert.Equal(t, 1, table.FieldIndex("value"), "lookup is case-insensitive")
	assert.Equal(t, -1, table.FieldIndex("MISSING"))
	assert.Equal(t, Character, table.NativeFieldType(0))
	assert.Equal(t, DataType(' '), table.NativeFieldType(9))
}

func TestFieldTypeClassification(t *testing.T) {
	tests := []struct {
		field Field
		want  FieldType
	}{
		{Field{Type: Numeric, Length: 9}, FTInteger},
		{Field{Type: Numeric, Length: 10}, FTDouble},
		{Field{Type: Numeric, Length: 5, Decimals: 2}, FTDouble},
		{Field{Type: Float, Length: 4}, FTInteger},
		{Field{Type: Logical, Length: 1}, FTLogical},
		{Field{Type: Date, Length: 8}, FTDate},
		{Field{Type: Character, Length: 12}, FTString},
		{Field{Type: Memo, Length: 10}, FTString},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.field.FieldType())
	}
}

func TestFileLength(t *testing.T) {
	table, hooks := newMemTable(t, "LDID/87")
	_, err := table.AddField("NAME", Character, 5, 0)
	require.NoError(t, err)
	require.NoError(t, table.WriteString(0, 0, "a"))
	require.NoError(t, table.WriteString(1, 0, "b"))
	require.NoError(t, table.Close())

	// header + records + EOF marker
	want := (32 + 32 + 1) + 2*6 + 1
	assert.Equal(t, want, len(hooks.Content("t.dbf")))
}

func TestCloneEmpty(t *testing.T) {
	table, hooks := newMemTable(t, "LDID/87")
	_, err := table.AddField("NAME", Character, 10, 0)
	require.NoError(t, err)
	_, err = table.AddField("ID", Numeric, 6, 0)
	require.NoError(t, err)
	require.NoError(t, table.WriteString(0, 0, "original"))

	clone, err := table.CloneEmpty("c.dbf")
	require.NoError(t, err)
	assert.Equal(t, 0, clone.RecordCount())
	assert.Equal(t, table.FieldCount(), clone.FieldCount())
	assert.Equal(t, table.RecordLength(), clone.RecordLength())
	assert.Equal(t, "LDID/87", clone.CodePage())
	require.NoError(t, clone.WriteString(0, 0, "cloned"))
	require.NoError(t, clone.Close())
	require.NoError(t, table.Close())

	clone, err = OpenTable(&Config{Filename: "c.dbf", Hooks: hooks})
	require.NoError(t, err)
	defer clone.Close()
	assert.Equal(t, 1, clone.RecordCount())
	value, err := clone.ReadString(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "cloned    ", value)
}

func TestDoubleCloseFails(t *testing.T) {
	table, _ := newMemTable(t, "")
	require.NoError(t, table.Close())
	assert.Error(t, table.Close())
}
