// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "recorder",
		Short: "konobangu recorder: task queue, cron engine and feed extraction for anime subscriptions",
	}

	root.AddCommand(runServeCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
