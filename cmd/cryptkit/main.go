// Command cryptkit generates keys, encrypts and decrypts text from the
// command line, and serves the key store HTTP API.
package main

import (
	"os"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
