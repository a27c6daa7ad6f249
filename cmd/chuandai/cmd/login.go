package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"chuan-dai/internal/client/api"
	"chuan-dai/internal/client/config"
)

var loginCmd = &cobra.Command{
	Use:   "login [账号]",
	Short: "使用账号密码登录",
	Long: `使用账号密码登录，凭证保存在 ~/.chuan-dai/config.yaml。

未指定账号时交互式输入，密码输入不会回显。`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "短信验证码",
}

var otpSendCmd = &cobra.Command{
	Use:   "send <手机号>",
	Short: "发送验证码",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		purpose, _ := cmd.Flags().GetString("type")
		if err := api.NewClient(config.GetServerURL()).SendOTP(args[0], purpose); err != nil {
			return err
		}
		fmt.Println("✓ 验证码已发送，请运行 'chuandai otp login <手机号> <验证码>'")
		return nil
	},
}

var otpLoginCmd = &cobra.Command{
	Use:   "login <手机号> <验证码>",
	Short: "使用验证码登录",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient(config.GetServerURL())
		result, err := client.SignInWithOTP(args[0], args[1])
		if err != nil {
			return err
		}
		return saveLogin(result)
	},
}

func init() {
	otpSendCmd.Flags().StringP("type", "t", "login", "用途 register / login / reset")
	otpCmd.AddCommand(otpSendCmd, otpLoginCmd)
	rootCmd.AddCommand(loginCmd, otpCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	var account string
	if len(args) == 1 {
		account = strings.TrimSpace(args[0])
	} else {
		fmt.Print("请输入账号: ")
		line, _ := reader.ReadString('\n')
		account = strings.TrimSpace(line)
	}
	if account == "" {
		return errors.New("账号不能为空")
	}

	// 输入密码（隐藏输入）
	fmt.Print("请输入密码: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("读取密码失败: %w", err)
	}
	password := strings.TrimSpace(string(passwordBytes))
	if password == "" {
		return errors.New("密码不能为空")
	}

	fmt.Println("🔐 正在登录...")
	result, err := api.NewClient(config.GetServerURL()).SignIn(account, password)
	if err != nil {
		return err
	}
	return saveLogin(result)
}

func saveLogin(result *api.AuthResult) error {
	account := ""
	if result.User != nil {
		account = result.User.Account
	}
	if err := config.SaveAuth(account, result.AccessToken, result.RefreshToken); err != nil {
		return fmt.Errorf("保存登录信息失败: %w", err)
	}

	fmt.Println()
	fmt.Println("✅ 登录成功！")
	fmt.Println("─────────────────────────────────")
	fmt.Printf("  👤 账号: %s\n", account)
	if result.User != nil {
		fmt.Printf("  😀 昵称: %s\n", result.User.DisplayName())
	}
	fmt.Println()
	return nil
}
