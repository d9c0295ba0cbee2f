package cmd

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/papapumpkin/larder/internal/session"
	"github.com/papapumpkin/larder/internal/store"
)

var recipeCmd = &cobra.Command{
	Use:   "recipe",
	Short: "Create, edit, list and delete recipes",
}

var recipeAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create an empty recipe",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipeAdd,
}

var recipeEditCmd = &cobra.Command{
	Use:   "edit <recipe>",
	Short: "Change a recipe's metadata",
	Long: `Changes only the fields whose flags are given. --category replaces the
whole category list; pass --category "" to clear it.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecipeEdit,
}

var recipeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recipes",
	Args:    cobra.NoArgs,
	RunE:    runRecipeList,
}

var recipeRmCmd = &cobra.Command{
	Use:   "rm <recipe>",
	Short: "Delete a recipe and its ingredient list",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecipeRm,
}

func init() {
	addRecipeFlags(recipeAddCmd.Flags())
	addRecipeFlags(recipeEditCmd.Flags())
	recipeEditCmd.Flags().String("title", "", "new title")
	recipeListCmd.Flags().String("category", "", "only list recipes in this category")

	recipeCmd.AddCommand(recipeAddCmd, recipeEditCmd, recipeListCmd, recipeRmCmd)
	rootCmd.AddCommand(recipeCmd)
}

func addRecipeFlags(fs *pflag.FlagSet) {
	fs.Float64("yields", 0, "number of servings or pieces")
	fs.String("yield-unit", "", "unit of --yields")
	fs.String("url", "", "source URL")
	fs.String("description", "", "short description")
	fs.String("instructions", "", "preparation steps")
	fs.String("notes", "", "personal notes")
	fs.String("author", "", "who the recipe is from")
	fs.String("cuisine", "", "cuisine, e.g. Italian")
	fs.StringSlice("category", nil, "category (repeatable)")
	fs.Int("rating", 0, "rating from 0 to 10")
	fs.Duration("prep-time", 0, "preparation time, e.g. 20m")
	fs.Duration("cook-time", 0, "cooking time")
	fs.Duration("total-time", 0, "total time including rests")
}

// applyRecipeFlags copies every flag the user set onto r.
func applyRecipeFlags(fs *pflag.FlagSet, r *store.Recipe) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	dur := func(name string, dst **time.Duration) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var d time.Duration
		if d, err = fs.GetDuration(name); err == nil && d < 0 {
			err = fmt.Errorf("--%s must not be negative", name)
		}
		*dst = &d
	}

	str("title", &r.Title)
	str("yield-unit", &r.YieldUnit)
	str("url", &r.URL)
	str("description", &r.Description)
	str("instructions", &r.Instructions)
	str("notes", &r.Notes)
	str("author", &r.Author)
	str("cuisine", &r.Cuisine)
	dur("prep-time", &r.PreparationTime)
	dur("cook-time", &r.CookingTime)
	dur("total-time", &r.TotalTime)
	if err != nil {
		return err
	}

	if fs.Changed("yields") {
		if r.Yields, err = fs.GetFloat64("yields"); err != nil {
			return err
		}
	}
	if fs.Changed("category") {
		if r.Categories, err = fs.GetStringSlice("category"); err != nil {
			return err
		}
	}
	if fs.Changed("rating") {
		rating, err := fs.GetInt("rating")
		if err != nil {
			return err
		}
		if rating < 0 || rating > 10 {
			return fmt.Errorf("--rating must be between 0 and 10, got %d", rating)
		}
		r.Rating = &rating
	}
	return nil
}

func runRecipeAdd(cmd *cobra.Command, args []string) error {
	r := store.Recipe{Title: args[0]}
	if err := applyRecipeFlags(cmd.Flags(), &r); err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err = a.store.CreateRecipe(cmd.Context(), r)
	if err != nil {
		return err
	}
	a.out.RecipeCreated(r)
	return nil
}

func runRecipeEdit(cmd *cobra.Command, args []string) error {
	return withSession(cmd, args[0], func(a *app, s *session.Session) error {
		r, err := a.store.Recipe(cmd.Context(), s.RecipeID())
		if err != nil {
			return err
		}
		if err := applyRecipeFlags(cmd.Flags(), &r); err != nil {
			return err
		}
		if r.Title == "" {
			return errors.New("recipe: title must not be empty")
		}
		if r, err = a.store.UpdateRecipe(cmd.Context(), r); err != nil {
			return err
		}
		a.out.RecipeUpdated(r)
		return nil
	})
}

func runRecipeList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	recipes, err := a.store.Recipes(cmd.Context())
	if err != nil {
		return err
	}
	if category, _ := cmd.Flags().GetString("category"); category != "" {
		recipes = slices.DeleteFunc(recipes, func(r store.Recipe) bool {
			return !slices.Contains(r.Categories, category)
		})
	}
	a.out.Recipes(recipes)
	return nil
}

func runRecipeRm(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "recipe")
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// Hold the edit lock so no session is mid-edit on the recipe.
	s, err := a.openSession(cmd.Context(), id)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := a.store.DeleteRecipe(cmd.Context(), id); err != nil {
		return err
	}
	a.status.Info("recipe deleted")
	return nil
}
