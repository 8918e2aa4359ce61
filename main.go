package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kilianp07/haulshare/cmd"
)

func main() {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
