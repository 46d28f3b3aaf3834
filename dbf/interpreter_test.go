package dbf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringStorage(t *testing.T) {
	table, _ := newMemTable(t, "")
	_, err := table.AddField("NAME", Character, 5, 0)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.WriteString(0, 0, "hello"))
	require.NoError(t, table.WriteString(1, 0, "hi"))

	tuple, err := table.ReadTuple(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(tuple[1:]))
	tuple, err = table.ReadTuple(1)
	require.NoError(t, err)
	assert.Equal(t, "hi   ", string(tuple[1:]), "short strings are stored space-padded")
}

func TestStringTruncation(t *testing.T) {
	table, _ := newMemTable(t, "")
	_, err := table.AddField("NAME", Character, 3, 0)
	require.NoError(t, err)
	defer table.Close()

	err = table.WriteString(0, 0, "abcd")
	assert.Error(t, err, "overlong strings truncate and report failure")
	value, rerr := table.ReadString(0, 0)
	require.NoError(t, rerr)
	assert.Equal(t, "abc", value, "the truncated bytes are written regardless")
}

func TestNumericRoundTrip(t *testing.T) {
	table, _ := newMemTable(t, "")
	_, err := table.AddField("INT", Numeric, 8, 0)
	require.NoError(t, err)
	_, err = table.AddField("DBL", Numeric, 12, 3)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.WriteInteger(0, 0, -1234))
	require.NoError(t, table.WriteDouble(0, 1, 12.625))

	i, err := table.ReadInteger(0, 0)
	require.NoError(t, err)
	assert.Equal(t, -1234, i)
	d, err := table.ReadDouble(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 12.625, d)

	tuple, err := table.ReadTuple(0)
	require.NoError(t, err)
	assert.Equal(t, "   -1234", string(tuple[1:9]), "numerics are right-aligned")
	assert.Equal(t, "      12.625", string(tuple[9:21]))
}

func TestNumericTruncation(t *testing.T) {
	table, _ := newMemTable(t, "")
	_, err := table.AddField("N", Numeric, 4, 0)
	require.NoError(t, err)
	defer table.Close()

	err = table.WriteInteger(0, 0, 123456)
	assert.Error(t, err, "a value that does not round-trip after truncation fails")
	value, rerr := table.ReadInteger(0, 0)
	require.NoError(t, rerr)
	assert.Equal(t, 1234, value, "the truncated bytes are written regardless")

	require.NoError(t, table.WriteInteger(1, 0, 9999), "a fitting value succeeds")
}

func TestLogicalWrites(t *testing.T) {
	table, _ := newMemTable(t, "")
	_, err := table.AddField("FLAG", Logical, 1, 0)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.WriteLogical(0, 0, 'T'))
	value, err := table.ReadLogical(0, 0)
	require.NoError(t, err)
	assert.Equal(t, byte('T'), value)

	err = table.WriteLogical(0, 0, 'X')
	assert.Error(t, err, "only 'T' and 'F' are valid")
	value, err = table.ReadLogical(0, 0)
	require.NoError(t, err)
	assert.Equal(t, byte('T'), value, "a failed logical write leaves the field untouched")
}

func TestDateRoundTrip(t *testing.T) {
	table, _ := newMemTable(t, "")
	_, err := table.AddField("SEEN", Date, 8, 0)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.WriteDate(0, 0, CalendarDate{Year: 2024, Month: 3, Day: 7}))
	tuple, err := table.ReadTuple(0)
	require.NoError(t, err)
	assert.Equal(t, "20240307", string(tuple[1:9]), "dates are stored as exactly eight digits")

	date, err := table.ReadDate(0, 0)
	require.NoError(t, err)
	assert.Equal(t, CalendarDate{Year: 2024, Month: 3, Day: 7}, date)

	require.NoError(t, table.WriteAttributeDirectly(1, 0, "00000000"))
	date, err = table.ReadDate(1, 0)
	require.NoError(t, err)
	assert.True(t, date.IsZero())
	null, err := table.IsNull(1, 0)
	require.NoError(t, err)
	assert.True(t, null)

	assert.Error(t, table.WriteDate(0, 0, CalendarDate{Year: 10000}))
	assert.Error(t, table.WriteDate(0, 0, CalendarDate{Year: 2024, Month: 100}))
	assert.Error(t, table.WriteDate(0, 0, CalendarDate{Year: 2024, Month: 1, Day: -1}))
}

func TestNullIdempotence(t *testing.T) {
	table, _ := newMemTable(t, "")
	specs := []struct {
		name     string
		typ      DataType
		width    int
		sentinel byte
	}{
		{"N", Numeric, 6, '*'},
		{"F", Float, 6, '*'},
		{"D", Date, 8, '0'},
		{"L", Logical, 1, '?'},
		{"C", Character, 4, ' '},
	}
	for _, spec := range specs {
		_, err := table.AddField(spec.name, spec.typ, spec.width, 0)
		require.NoError(t, err)
	}
	defer table.Close()

	for i := range specs {
		require.NoError(t, table.WriteNull(0, i))
	}
	tuple, err := table.ReadTuple(0)
	require.NoError(t, err)
	offset := 1
	for i, spec := range specs {
		null, err := table.IsNull(0, i)
		require.NoError(t, err)
		assert.True(t, null, "field %s must read back null", spec.name)
		for j := 0; j < spec.width; j++ {
			assert.Equal(t, spec.sentinel, tuple[offset+j], "field %s sentinel byte %d", spec.name, j)
		}
		offset += spec.width
	}

	// Writing a value clears the null state.
	require.NoError(t, table.WriteInteger(0, 0, 7))
	null, err := table.IsNull(0, 0)
	require.NoError(t, err)
	assert.False(t, null)
}

func TestIsValueNull(t *testing.T) {
	tests := []struct {
		typ   DataType
		value string
		want  bool
	}{
		{Numeric, "******", true},
		{Numeric, "*23456", true},
		{Numeric, "      ", true},
		{Numeric, "     1", false},
		{Date, "00000000", true},
		{Date, "        ", true},
		{Date, "       0", true},
		{Date, "20240307", false},
		{Logical, "?", true},
		{Logical, " ", true},
		{Logical, "T", false},
		{Character, "    ", true},
		{Character, "x   ", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isValueNull(tt.typ, tt.value), "isValueNull(%v, %q)", tt.typ, tt.value)
	}
}

func TestTrimSpacesPolicy(t *testing.T) {
	hooks := NewMemHooks()
	table, err := CreateTable(&Config{Filename: "t.dbf", Hooks: hooks, TrimSpaces: true}, "")
	require.NoError(t, err)
	_, err = table.AddField("NAME", Character, 8, 0)
	require.NoError(t, err)
	require.NoError(t, table.WriteString(0, 0, "  ab"))
	require.NoError(t, table.Close())

	table, err = OpenTable(&Config{Filename: "t.dbf", Mode: "rb", Hooks: hooks, TrimSpaces: true})
	require.NoError(t, err)
	defer table.Close()
	value, err := table.ReadString(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "ab", value, "trim policy strips leading and trailing spaces")
}

func TestReadValidation(t *testing.T) {
	hooks := memTableWithRecords(t)
	table := reopen(t, hooks, "rb")
	defer table.Close()

	_, err := table.ReadString(5, 0)
	assert.ErrorIs(t, err, ErrEOF)
	_, err = table.ReadString(-1, 0)
	assert.ErrorIs(t, err, ErrEOF)
	_, err = table.ReadString(0, 3)
	assert.ErrorIs(t, err, ErrInvalid)
	err = table.WriteString(4, 0, "x")
	assert.ErrorIs(t, err, ErrInvalid, "writing past one-beyond-the-end is invalid")
}

func TestWriteAppends(t *testing.T) {
	hooks := memTableWithRecords(t)
	table := reopen(t, hooks, "rb+")
	defer table.Close()

	// Writing at index RecordCount() appends a live all-space record.
	require.NoError(t, table.WriteString(2, 0, "three"))
	assert.Equal(t, 3, table.RecordCount())
	deleted, err := table.IsDeleted(2)
	require.NoError(t, err)
	assert.False(t, deleted)
}
