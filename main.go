// Package main is the entry point for the Casedesk terminal client.
package main

import (
	"casedesk/cli/cmd"
)

func main() {
	cmd.Execute()
}
