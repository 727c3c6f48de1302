package main

import (
	"fmt"
	"os"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: sentinel <command> [flags]

Commands:
  watch       follow the live alert channel and publish dashboard snapshots
  summarize   load an EVE/Snort export and print or write its snapshot
  filters     list, save or delete saved filters
  inspect     look up threat intel for a source and destination address
  prefs       show or update alert notification preferences
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "watch":
		os.Exit(runWatch(os.Args[2:]))
	case "summarize":
		os.Exit(runSummarize(os.Args[2:]))
	case "filters":
		os.Exit(runFilters(os.Args[2:]))
	case "inspect":
		os.Exit(runInspect(os.Args[2:]))
	case "prefs":
		os.Exit(runPrefs(os.Args[2:]))
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}
