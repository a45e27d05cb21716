package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:          "mailrag",
	Short:        "mailrag answers questions over a user's synced mail, calendar, and documents",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mailrag version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("mailrag version", version)
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(startCmd, stopCmd, statusCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
