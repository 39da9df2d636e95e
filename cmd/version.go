package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("luminate", version)
		fmt.Printf("course format %s.x\n", course.SupportedMajor)
	},
}
