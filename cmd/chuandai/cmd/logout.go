package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chuan-dai/internal/client/config"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "登出并清除本地凭证",
	Long: `登出当前账号并清除本地保存的 token。

服务端会让当前 token 立即失效。登出后需要重新运行 'chuandai login' 才能下单。`,
	Run: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) {
	if !config.IsLoggedIn() {
		fmt.Println("当前未登录")
		return
	}

	// 服务端失败也继续清除本地凭证
	if err := newClient().SignOut(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  通知服务端登出失败: %v\n", describeError(err))
	}

	if err := config.ClearAuth(); err != nil {
		fmt.Fprintf(os.Stderr, "清除凭证失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ 已登出并清除本地凭证")
}
