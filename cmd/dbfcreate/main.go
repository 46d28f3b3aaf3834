// Command dbfcreate creates a new empty DBF attribute table with the
// fields given on the command line.
//
//	dbfcreate out.dbf -s NAME 20 -n VALUE 10 2 -l FLAG -d SEEN
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/a0x8o/shapelib/dbf"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: dbfcreate file.dbf [[-s name width] [-n name width decimals] [-l name] [-d name]]...\n")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	table, err := dbf.Create(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "dbfcreate: %v\n", dbf.GetErrorTrace(err))
		os.Exit(1)
	}

	args := os.Args[2:]
	for len(args) > 0 {
		var name string
		var typ dbf.DataType
		var width, decimals, consumed int
		switch args[0] {
		case "-s":
			if len(args) < 3 {
				usage()
			}
			name = args[1]
			typ = dbf.Character
			width = atoi(args[2])
			consumed = 3
		case "-n":
			if len(args) < 4 {
				usage()
			}
			name = args[1]
			typ = dbf.Numeric
			width = atoi(args[2])
			decimals = atoi(args[3])
			consumed = 4
		case "-l":
			if len(args) < 2 {
				usage()
			}
			name = args[1]
			typ = dbf.Logical
			width = 1
			consumed = 2
		case "-d":
			if len(args) < 2 {
				usage()
			}
			name = args[1]
			typ = dbf.Date
			width = 8
			consumed = 2
		default:
			usage()
		}
		if _, err := table.AddField(name, typ, width, decimals); err != nil {
			fmt.Fprintf(os.Stderr, "dbfcreate: adding field %s: %v\n", name, dbf.GetErrorTrace(err))
			os.Exit(1)
		}
		args = args[consumed:]
	}

	if err := table.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "dbfcreate: %v\n", dbf.GetErrorTrace(err))
		os.Exit(1)
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		usage()
	}
	return n
}
