package main

import "os"

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
