package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"chuan-dai/internal/client/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示当前状态",
	Long: `显示当前登录状态和配置信息。

包括：
- 服务器地址
- 登录账号（如果已登录）
- 购物车概况`,
	Run: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	fmt.Println("╔════════════════════════════════════════════════╗")
	fmt.Println("║           川味小馆 状态信息                     ║")
	fmt.Println("╠════════════════════════════════════════════════╣")

	fmt.Printf("║  服务器: %s\n", config.GetServerURL())
	fmt.Printf("║  语言: %s\n", config.GetLocale())

	if config.IsLoggedIn() {
		fmt.Println("║  登录状态: ✓ 已登录")
		fmt.Printf("║  账号: %s\n", config.GetAccount())
		if user, err := newClient().Me(); err == nil {
			fmt.Printf("║  昵称: %s\n", user.DisplayName())
		} else {
			fmt.Printf("║  ⚠️  无法获取用户信息: %s\n", describeError(err))
		}
	} else {
		fmt.Println("║  登录状态: ✗ 未登录")
		fmt.Println("║")
		fmt.Println("║  请运行 'chuandai login' 完成登录")
	}

	if store, err := openCart(); err == nil && store.Count() > 0 {
		fmt.Printf("║  购物车: %d 份，合计 ¥%s\n", store.Count(), store.Total().StringFixed(2))
	}

	fmt.Println("╚════════════════════════════════════════════════╝")
}
