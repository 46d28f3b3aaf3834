// Command dbfdump prints the schema and records of a DBF attribute
// table.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/a0x8o/shapelib/dbf"
)

func main() {
	header := flag.Bool("h", false, "print header and field definitions")
	raw := flag.Bool("r", false, "print raw record bytes")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: dbfdump [-h] [-r] file.dbf\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	table, err := dbf.Open(flag.Arg(0), "rb")
	if err != nil {
		fmt.Fprintf(os.Stderr, "dbfdump: %v\n", dbf.GetErrorTrace(err))
		os.Exit(1)
	}
	defer table.Close()

	if *header {
		fmt.Printf("Filename:       %s\n", flag.Arg(0))
		fmt.Printf("Code page:      %s\n", table.CodePage())
		fmt.Printf("Last modified:  %s\n", table.Modified().Format("2006-01-02"))
		fmt.Printf("Record count:   %d\n", table.RecordCount())
		fmt.Printf("Record length:  %d\n", table.RecordLength())
		fmt.Printf("Field count:    %d\n", table.FieldCount())
		for i, field := range table.Fields() {
			fmt.Printf("Field %2d: %-11s %s(%d,%d)\n", i, field.Name, field.Type, field.Length, field.Decimals)
		}
		fmt.Println()
	}

	for _, field := range table.Fields() {
		fmt.Printf("%-*s ", field.Length, field.Name)
	}
	fmt.Println()

	for i := 0; i < table.RecordCount(); i++ {
		if *raw {
			tuple, err := table.ReadTuple(i)
			if err != nil {
				fmt.Fprintf(os.Stderr, "dbfdump: record %d: %v\n", i, err)
				os.Exit(1)
			}
			fmt.Printf("%q\n", tuple)
			continue
		}
		deleted, err := table.IsDeleted(i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dbfdump: record %d: %v\n", i, err)
			os.Exit(1)
		}
		if deleted {
			fmt.Print("* ")
		}
		for j, field := range table.Fields() {
			value, err := table.ReadString(i, j)
			if err != nil {
				fmt.Fprintf(os.Stderr, "dbfdump: record %d field %d: %v\n", i, j, err)
				os.Exit(1)
			}
			fmt.Printf("%-*s ", field.Length, value)
		}
		fmt.Println()
	}
}
