package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"chuan-dai/internal/client/cart"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "管理购物车",
	Long: `管理本地购物车，内容保存在 ~/.chuan-dai/cart.json。

不带子命令时显示购物车。`,
	RunE: runCartShow,
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "显示购物车",
	Args:  cobra.NoArgs,
	RunE:  runCartShow,
}

var cartAddCmd = &cobra.Command{
	Use:   "add <菜品ID> [数量]",
	Short: "加入菜品",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		quantity := 1
		if len(args) == 2 {
			if quantity, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("无效的数量: %s", args[1])
			}
		}

		dish, err := newClient().GetDish(id)
		if err != nil {
			return err
		}
		if !dish.IsAvailable {
			return fmt.Errorf("%s 已下架", displayName(dish.Name, dish.NameEn))
		}

		remark, _ := cmd.Flags().GetString("remark")
		return withCart(func(store *cart.Store) error {
			return store.Add(cart.Item{
				DishID:   dish.ID,
				Name:     dish.Name,
				NameEn:   dish.NameEn,
				Price:    dish.Price,
				Quantity: quantity,
				Remark:   remark,
			})
		})
	},
}

var cartSetCmd = &cobra.Command{
	Use:   "set <菜品ID> <数量>",
	Short: "修改数量，为 0 时移除",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		quantity, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("无效的数量: %s", args[1])
		}
		return withCart(func(store *cart.Store) error {
			return store.SetQuantity(id, quantity)
		})
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <菜品ID>",
	Short: "移除菜品",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withCart(func(store *cart.Store) error {
			return store.Remove(id)
		})
	},
}

var cartRemarkCmd = &cobra.Command{
	Use:   "remark <菜品ID> <备注>",
	Short: "设置菜品备注，如 少辣、不要香菜",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		remark := strings.Join(args[1:], " ")
		return withCart(func(store *cart.Store) error {
			return store.SetRemark(id, remark)
		})
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "清空购物车",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(func(store *cart.Store) error {
			return store.Clear()
		})
	},
}

func init() {
	cartAddCmd.Flags().StringP("remark", "r", "", "备注")
	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartSetCmd, cartRemoveCmd, cartRemarkCmd, cartClearCmd)
	rootCmd.AddCommand(cartCmd)
}

// withCart 打开购物车执行修改，成功后打印最新内容
func withCart(fn func(store *cart.Store) error) error {
	store, err := openCart()
	if err != nil {
		return err
	}
	unsubscribe := store.Subscribe(printCart)
	defer unsubscribe()
	return fn(store)
}

func runCartShow(cmd *cobra.Command, args []string) error {
	store, err := openCart()
	if err != nil {
		return err
	}
	printCart(store.Get())
	return nil
}

func printCart(items []cart.Item) {
	if len(items) == 0 {
		fmt.Println("🛒 购物车是空的")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t菜名\t单价\t数量\t小计\t备注\t")
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%s\t¥%s\t%d\t¥%s\t%s\t\n",
			item.DishID,
			displayName(item.Name, item.NameEn),
			item.Price.StringFixed(2),
			item.Quantity,
			item.Subtotal().StringFixed(2),
			item.Remark,
		)
	}
	w.Flush()

	total := decimal.Zero
	count := 0
	for _, item := range items {
		total = total.Add(item.Subtotal())
		count += item.Quantity
	}
	fmt.Printf("共 %d 份，合计 ¥%s\n", count, total.StringFixed(2))
}
