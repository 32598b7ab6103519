// Command fsclient explores the FamilySearch API through its discovery
// document.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fsclient: %v\n", err)
		os.Exit(1)
	}
}
