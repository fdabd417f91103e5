// Package main provides the gatectl CLI entry point.
package main

import "github.com/GateAI-net/gate-ios/cmd/gatectl/cmd"

func main() {
	cmd.Execute()
}
