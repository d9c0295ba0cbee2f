package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/larder/internal/position"
	"github.com/papapumpkin/larder/internal/ui"
)

var positionCmd = &cobra.Command{
	Use:   "position <value>",
	Short: "Decode an ingredient-list position",
	Args:  cobra.ExactArgs(1),
	RunE:  runPosition,
}

func init() {
	rootCmd.AddCommand(positionCmd)
}

func runPosition(cmd *cobra.Command, args []string) error {
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid position %q", args[0])
	}
	p := position.Position(v)
	if err := position.Validate(p); err != nil {
		return err
	}
	ui.NewTo(cmd.OutOrStdout()).Decoded(p)
	return nil
}
