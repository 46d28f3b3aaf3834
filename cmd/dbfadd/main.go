// Command dbfadd appends one record to an existing DBF attribute
// table. Values are given in field order; an empty argument writes the
// field's null value.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/a0x8o/shapelib/dbf"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: dbfadd file.dbf value [value]...\n")
		os.Exit(1)
	}

	table, err := dbf.Open(os.Args[1], "rb+")
	if err != nil {
		fmt.Fprintf(os.Stderr, "dbfadd: %v\n", dbf.GetErrorTrace(err))
		os.Exit(1)
	}

	values := os.Args[2:]
	if len(values) != table.FieldCount() {
		fmt.Fprintf(os.Stderr, "dbfadd: got %d value/s for %d field/s\n", len(values), table.FieldCount())
		os.Exit(1)
	}

	record := table.RecordCount()
	for i, value := range values {
		field, _ := table.FieldInfo(i)
		if len(value) == 0 {
			err = table.WriteNull(record, i)
		} else {
			switch field.FieldType() {
			case dbf.FTInteger, dbf.FTDouble:
				number, perr := strconv.ParseFloat(value, 64)
				if perr != nil {
					fmt.Fprintf(os.Stderr, "dbfadd: field %s: invalid number %q\n", field.Name, value)
					os.Exit(1)
				}
				err = table.WriteDouble(record, i, number)
			case dbf.FTLogical:
				err = table.WriteLogical(record, i, value[0])
			case dbf.FTDate:
				if len(value) != 8 {
					fmt.Fprintf(os.Stderr, "dbfadd: field %s: dates are written as yyyymmdd\n", field.Name)
					os.Exit(1)
				}
				err = table.WriteAttributeDirectly(record, i, value)
			default:
				err = table.WriteString(record, i, value)
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "dbfadd: field %s: %v\n", field.Name, dbf.GetErrorTrace(err))
			os.Exit(1)
		}
	}

	if err := table.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "dbfadd: %v\n", dbf.GetErrorTrace(err))
		os.Exit(1)
	}
}
