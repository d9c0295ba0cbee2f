package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/larder/internal/session"
	"github.com/papapumpkin/larder/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <recipe>",
	Short: "Print a recipe's ingredient tree with positions",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, args[0], func(a *app, s *session.Session) error {
		r, err := a.store.Recipe(cmd.Context(), s.RecipeID())
		if err != nil {
			return err
		}
		t, err := s.Tree(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s\n", ui.RecipeHeader(r))
		if t.Len() == 0 {
			a.status.Info("(no ingredients)")
		} else {
			renderer := &ui.TreeRenderer{UseColor: a.color, Entry: s.Entry}
			fmt.Fprint(w, renderer.Render(t))
		}
		fmt.Fprint(w, ui.RecipeText(r))
		return nil
	})
}
