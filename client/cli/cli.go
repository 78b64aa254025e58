// Package cli implements the command line interface.
package cli

import (
	"context"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/hijra-meet/hijra-meet/client/logger"
)

type Props struct {
	Log     logger.Logger
	Version string
	Args    []string
}

// Exec runs the command line interface.
func Exec(ctx context.Context, props Props) error {
	root := newRootCmd(props)
	root.SetArgs(props.Args)

	return errors.Trace(root.ExecuteContext(ctx))
}

func newRootCmd(props Props) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hijra-meet",
		Short: "Terminal client for multi-party video meetings",
		Long: `hijra-meet joins a video meeting as a participant or host:
it captures local media, publishes it through the SFU and keeps the
roster in sync over the realtime channel.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	cmd.AddCommand(
		newJoinCmd(props),
		newVersionCmd(props),
	)

	return cmd
}
