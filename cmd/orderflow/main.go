package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maz279/getit-project-v2-sub015/internal/cli"
)

var rootCmd = &cobra.Command{Use: "orderflow"}

func main() {
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
