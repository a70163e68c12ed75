package cmd

import (
	"fmt"

	"github.com/nikogura/resume-intake/pkg/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long: `Create a default config file at $HOME/.resume-intake/config.json
(or the path given with --config).

Edit the identity section afterwards, or set RESUME_INTAKE_IDENTITY or
RESUME_INTAKE_TOKEN in the environment or a .env file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) (err error) {
	path := getConfigFile()
	if path == "" {
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	err = config.InitConfig(path)
	if err != nil {
		err = errors.Wrap(err, "failed to initialize config")
		return err
	}

	fmt.Printf("Config written to %s\n", path)
	return err
}
