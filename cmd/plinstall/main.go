package main

import (
	"os"

	"plinstall/internal/plinstall"
)

func main() {
	os.Exit(plinstall.Main())
}
