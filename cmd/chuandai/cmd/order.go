package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"chuan-dai/internal/client/api"
	"chuan-dai/internal/client/cart"
	"chuan-dai/internal/client/websocket"
	"chuan-dai/internal/model"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "订单",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return requireLogin()
	},
}

var orderSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "提交购物车中的菜品",
	Long:  `提交购物车中的菜品，成功后清空购物车。价格以服务端当前价格为准。`,
	Args:  cobra.NoArgs,
	RunE:  runOrderSubmit,
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "我的订单",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		orders, err := newClient().ListOrders(status)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			fmt.Println("暂无订单")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\t订单号\t状态\t金额\t下单时间\t")
		for _, o := range orders {
			fmt.Fprintf(w, "%d\t%s\t%s\t¥%s\t%s\t\n",
				o.ID, o.OrderNumber, statusLabel(o.Status), o.TotalAmount.StringFixed(2),
				o.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var orderShowCmd = &cobra.Command{
	Use:   "show <订单ID>",
	Short: "订单详情",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		order, err := newClient().GetOrder(id)
		if err != nil {
			return err
		}
		printOrder(order)
		return nil
	},
}

func init() {
	orderSubmitCmd.Flags().StringP("remark", "r", "", "订单备注")
	orderSubmitCmd.Flags().Int64P("gathering", "g", 0, "关联的聚会 ID")
	orderListCmd.Flags().String("status", "", "按状态筛选 PENDING / CONFIRMED / COMPLETED / CANCELLED")

	orderCmd.AddCommand(
		orderSubmitCmd,
		orderListCmd,
		orderShowCmd,
		newTransitionCmd("confirm", "确认订单", model.OrderStatusConfirmed),
		newTransitionCmd("complete", "完成订单", model.OrderStatusCompleted),
		newTransitionCmd("cancel", "取消订单", model.OrderStatusCancelled),
		orderWatchCmd,
	)
	rootCmd.AddCommand(orderCmd)
}

// newTransitionCmd 创建变更订单状态的子命令
func newTransitionCmd(use, short, status string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <订单ID>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			order, err := newClient().UpdateOrderStatus(id, status)
			if err != nil {
				return err
			}
			fmt.Printf("✓ 订单 %s %s\n", order.OrderNumber, statusLabel(order.Status))
			return nil
		},
	}
}

func runOrderSubmit(cmd *cobra.Command, args []string) error {
	store, err := openCart()
	if err != nil {
		return err
	}
	items := store.Get()
	if len(items) == 0 {
		return errors.New("购物车是空的，先运行 'chuandai cart add <菜品ID>'")
	}

	req := &api.CreateOrderRequest{}
	for _, item := range items {
		req.Items = append(req.Items, api.OrderItem{
			DishID:   item.DishID,
			Quantity: item.Quantity,
			Remark:   item.Remark,
		})
	}
	req.Remark, _ = cmd.Flags().GetString("remark")
	if gathering, _ := cmd.Flags().GetInt64("gathering"); gathering > 0 {
		req.GatheringID = &gathering
	}

	order, err := newClient().CreateOrder(req)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  清空购物车失败: %v\n", err)
	}

	fmt.Println("✅ 下单成功！")
	printOrder(order)
	if !order.TotalAmount.Equal(cartTotal(items)) {
		fmt.Println("⚠️  部分菜品价格已变动，以订单金额为准")
	}
	return nil
}

func cartTotal(items []cart.Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func printOrder(order *model.Order) {
	fmt.Println("─────────────────────────────────")
	fmt.Printf("  订单号: %s\n", order.OrderNumber)
	fmt.Printf("  状态: %s\n", statusLabel(order.Status))
	fmt.Printf("  下单时间: %s\n", order.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if order.Remark != nil && *order.Remark != "" {
		fmt.Printf("  备注: %s\n", *order.Remark)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, item := range order.Items {
		remark := ""
		if item.Remark != nil {
			remark = *item.Remark
		}
		fmt.Fprintf(w, "  %s\tx%d\t¥%s\t%s\t\n", item.DishName, item.Quantity, item.Subtotal().StringFixed(2), remark)
	}
	w.Flush()
	fmt.Printf("  合计: ¥%s\n", order.TotalAmount.StringFixed(2))
	fmt.Println("─────────────────────────────────")
}

func statusLabel(status string) string {
	switch status {
	case model.OrderStatusPending:
		return "待确认"
	case model.OrderStatusConfirmed:
		return "已确认"
	case model.OrderStatusCompleted:
		return "已完成"
	case model.OrderStatusCancelled:
		return "已取消"
	}
	return status
}

var orderWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "实时查看订单状态和照片评论",
	Args:  cobra.NoArgs,
	RunE:  runOrderWatch,
}

// orderNotice 服务端推送的订单事件
type orderNotice struct {
	OrderID        int64           `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// commentNotice 照片收到评论
type commentNotice struct {
	PhotoID    int64  `json:"photo_id"`
	PhotoTitle string `json:"photo_title"`
	Comment    struct {
		Content string           `json:"content"`
		Author  *model.UserBrief `json:"author"`
	} `json:"comment"`
}

func runOrderWatch(cmd *cobra.Command, args []string) error {
	// 先调用一次 API，过期的 Token 在这里刷新
	client := newClient()
	if _, err := client.Me(); err != nil {
		return err
	}

	ws := websocket.NewClient(client.BaseURL(), client.AccessToken())
	ws.OnMessage(func(msg *websocket.Message) {
		switch msg.Type {
		case websocket.TypeOrderCreated, websocket.TypeOrderStatus:
			var n orderNotice
			if err := msg.Decode(&n); err != nil {
				return
			}
			if msg.Type == websocket.TypeOrderCreated {
				fmt.Printf("🧾 新订单 %s，合计 ¥%s\n", n.OrderNumber, n.TotalAmount.StringFixed(2))
				return
			}
			fmt.Printf("🔔 订单 %s: %s → %s\n", n.OrderNumber, statusLabel(n.PreviousStatus), statusLabel(n.Status))

		case websocket.TypePhotoComment:
			var n commentNotice
			if err := msg.Decode(&n); err != nil {
				return
			}
			author := "有人"
			if n.Comment.Author != nil {
				author = n.Comment.Author.Nickname
			}
			fmt.Printf("💬 %s 评论了《%s》: %s\n", author, n.PhotoTitle, n.Comment.Content)

		case websocket.TypeError:
			fmt.Fprintf(os.Stderr, "⚠️  服务端错误: %s\n", string(msg.Payload))
		}
	})

	if err := ws.Connect(); err != nil {
		return err
	}
	defer ws.Disconnect()

	fmt.Println("🌐 已连接，等待通知 (按 Ctrl+C 退出)")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ws.Done():
		return errors.New("连接已断开")
	}
	fmt.Println("\n再见！")
	return nil
}
