package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/larder/internal/session"
	"github.com/papapumpkin/larder/internal/tree"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage ingredient groups",
}

var groupAddCmd = &cobra.Command{
	Use:   "add <recipe> <name>",
	Short: "Append a group to a recipe",
	Args:  cobra.ExactArgs(2),
	RunE:  runGroupAdd,
}

var ingredientCmd = &cobra.Command{
	Use:   "ingredient",
	Short: "Manage ingredients",
}

var ingredientAddCmd = &cobra.Command{
	Use:   "add <recipe> <ingredient>",
	Short: "Append an ingredient",
	Long: `Appends an ingredient to a recipe. Without --parent it goes to the ungrouped
list. With --parent it goes below that entry: into a group, as an "or"
alternative of an ingredient, or as an "and" member of an alternative.`,
	Args: cobra.ExactArgs(2),
	RunE: runIngredientAdd,
}

var moveCmd = &cobra.Command{
	Use:   "move <recipe> <entry>",
	Short: "Move an entry and renumber the ingredient list",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

var rmCmd = &cobra.Command{
	Use:   "rm <recipe> <entry>",
	Short: "Remove an entry with everything below it",
	Args:  cobra.ExactArgs(2),
	RunE:  runRm,
}

func init() {
	ingredientAddCmd.Flags().Int64("parent", tree.Root, "entry id to add below (default: ungrouped)")
	ingredientAddCmd.Flags().Float64("amount", 0, "amount")
	ingredientAddCmd.Flags().Float64("range", 0, "upper end of an amount range")
	ingredientAddCmd.Flags().String("unit", "", "unit name")
	ingredientAddCmd.Flags().String("name", "", "name shown instead of the ingredient")
	ingredientAddCmd.Flags().Bool("optional", false, "mark as optional")

	moveCmd.Flags().Int64("parent", tree.Root, "new parent entry id (default: root)")
	moveCmd.Flags().Int("index", -1, "slot among the new siblings (default: last)")

	groupCmd.AddCommand(groupAddCmd)
	ingredientCmd.AddCommand(ingredientAddCmd)
	rootCmd.AddCommand(groupCmd, ingredientCmd, moveCmd, rmCmd)
}

// withSession opens the app and a session on the recipe named by arg.
func withSession(cmd *cobra.Command, arg string, fn func(a *app, s *session.Session) error) error {
	id, err := parseID(arg, "recipe")
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.openSession(cmd.Context(), id)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(a, s)
}

func runGroupAdd(cmd *cobra.Command, args []string) error {
	return withSession(cmd, args[0], func(a *app, s *session.Session) error {
		e, err := s.AddGroup(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		a.out.EntryAdded(e)
		return nil
	})
}

func runIngredientAdd(cmd *cobra.Command, args []string) error {
	parent, _ := cmd.Flags().GetInt64("parent")
	unit, _ := cmd.Flags().GetString("unit")
	name, _ := cmd.Flags().GetString("name")
	optional, _ := cmd.Flags().GetBool("optional")

	spec := session.EntrySpec{Ingredient: args[1], Name: name, Unit: unit, Optional: optional}
	if cmd.Flags().Changed("amount") {
		amount, _ := cmd.Flags().GetFloat64("amount")
		spec.Amount = &amount
	}
	if cmd.Flags().Changed("range") {
		rng, _ := cmd.Flags().GetFloat64("range")
		spec.RangeAmount = &rng
	}

	return withSession(cmd, args[0], func(a *app, s *session.Session) error {
		e, err := s.AddIngredient(cmd.Context(), parent, spec)
		if err != nil {
			return err
		}
		a.out.EntryAdded(e)
		return nil
	})
}

func runMove(cmd *cobra.Command, args []string) error {
	entry, err := parseID(args[1], "entry")
	if err != nil {
		return err
	}
	parent, _ := cmd.Flags().GetInt64("parent")
	index, _ := cmd.Flags().GetInt("index")

	return withSession(cmd, args[0], func(a *app, s *session.Session) error {
		changed, err := s.Move(cmd.Context(), entry, tree.Target{Parent: parent, Index: index})
		if err != nil {
			return err
		}
		a.out.Moved(entry, changed)
		return nil
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	entry, err := parseID(args[1], "entry")
	if err != nil {
		return err
	}
	return withSession(cmd, args[0], func(a *app, s *session.Session) error {
		removed, err := s.Remove(cmd.Context(), entry)
		if err != nil {
			return err
		}
		a.out.Removed(removed)
		return nil
	})
}
