package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/qntx-runtime/rtlog"
)

// RootCmd is the qntx-runtime entry point, tying run/doctor/version
// together the way the teacher's qntx root command ties am/as/ax/server
// together.
var RootCmd = &cobra.Command{
	Use:   "qntx-runtime",
	Short: "qntx-runtime - embeddable application runtime",
	Long: `qntx-runtime hosts an embedded web-view, exposes native capabilities
(filesystem, UDP, process, notifications, permissions, service workers,
dialogs) to it over an IPC bridge, and drives everything from a single
cooperative event loop.

Available commands:
  run      - Start the runtime process
  doctor   - Check that the environment is ready to start
  version  - Show build and version information`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// "run" initializes the logger itself once it knows the --json flag;
		// "version" needs no logging at all.
		if cmd.Name() == "version" || cmd.Name() == "run" {
			return nil
		}
		if err := rtlog.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	RootCmd.AddCommand(RunCmd)
	RootCmd.AddCommand(DoctorCmd)
	RootCmd.AddCommand(VersionCmd)
}
