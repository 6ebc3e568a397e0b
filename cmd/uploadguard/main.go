// Command uploadguard serves the upload intake over HTTP and checks files
// from the command line.
package main

import (
	"fmt"
	"os"

	_ "github.com/gobeaver/uploadguard/driver/local"
	_ "github.com/gobeaver/uploadguard/driver/memory"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
