package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"chuan-dai/internal/client/api"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "查看菜单",
	Long: `查看菜单，已登录时标出收藏的菜品。

分类: APPETIZER / MAIN_COURSE / SOUP / DESSERT / BEVERAGE`,
	Args: cobra.NoArgs,
	RunE: runMenu,
}

var favCmd = &cobra.Command{
	Use:   "fav <菜品ID>",
	Short: "收藏或取消收藏菜品",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		favorite, err := newClient().ToggleFavorite(id)
		if err != nil {
			return err
		}
		if favorite {
			fmt.Println("⭐ 已收藏")
		} else {
			fmt.Println("✓ 已取消收藏")
		}
		return nil
	},
}

func init() {
	menuCmd.Flags().StringP("category", "c", "", "只看某个分类")
	rootCmd.AddCommand(menuCmd, favCmd)
}

func runMenu(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	dishes, err := newClient().ListDishes(category)
	if err != nil {
		return err
	}
	if len(dishes) == 0 {
		fmt.Println("暂无菜品")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t菜名\t分类\t价格\t")
	for _, d := range dishes {
		fmt.Fprintf(w, "%d\t%s%s\t%s\t¥%s\t\n", d.ID, displayName(d.Name, d.NameEn), dishMarks(d), d.Category, d.Price.StringFixed(2))
	}
	return w.Flush()
}

func dishMarks(d api.Dish) string {
	marks := ""
	if d.IsSpicy {
		marks += " 🌶"
	}
	if d.IsVegetarian {
		marks += " 🥬"
	}
	if d.IsFavorite {
		marks += " ⭐"
	}
	if !d.IsAvailable {
		marks += " (已下架)"
	}
	return marks
}
