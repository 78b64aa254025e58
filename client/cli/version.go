package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(props Props) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hijra-meet %s\n", props.Version)
		},
	}
}
