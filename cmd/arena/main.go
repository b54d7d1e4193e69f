// Command arena runs every payload in a directory and prints aggregated
// solver performance as JSON.
//
//	arena [flags] <path_to_payloads>
//
// Exit codes: 0 success, 1 usage error, 2 IO error.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
