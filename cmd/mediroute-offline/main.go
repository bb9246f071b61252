package main

import (
	"fmt"
	"os"
)

func main() {
	root, app := newRootCmd(nil)
	err := root.Execute()
	if cerr := app.teardown(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
