package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tutor as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp()

		logger := a.Logger()
		logger.Info("serving MCP on stdio", zap.String("course", a.Course.Info().Code))

		s := mcpserver.New(mcpserver.Deps{
			Engine:   a.Engine,
			Students: a.Students,
			Course:   a.Course,
			Review:   a.Review,
			Logger:   logger.Named("mcp"),
		}, version)
		return mcpserver.Serve(s)
	},
}
