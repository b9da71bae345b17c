package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndacheck/ndacheck/internal/version"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionJSON {
			return writeJSON(cmd.OutOrStdout(), info)
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output JSON")
}

// GetVersionCmd export
func GetVersionCmd() *cobra.Command {
	return versionCmd
}
