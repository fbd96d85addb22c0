// Command isi-sessioninfo inspects a finalized acquisition session
// directory written by the session recorder and reports what was
// captured: directions recorded, whether the run was aborted
// mid-acquisition, and per-plane-file frame/angle/timestamp counts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

func main() {
	asJSON := flag.Bool("json", false, "Print the report as JSON instead of plain text")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: isi-sessioninfo [options] session-dir\n\nReports the directions, completeness, and per-plane sample counts\nof a finalized isi-core acquisition session.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n  isi-sessioninfo ~/.isi-core/sessions/2026-07-30T12-00-00\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	report, err := inspectSession(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	report.printHuman()
	if report.Partial {
		os.Exit(2)
	}
}
