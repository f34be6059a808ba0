package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/costbuddy/costbuddy/internal/api"
	"github.com/costbuddy/costbuddy/internal/cli"
)

var version = "dev"

func main() {
	root := cli.New(version)
	if err := root.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			fmt.Fprintln(os.Stderr, "Session expired. Run 'costbuddy login' to continue.")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
