package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"chuan-dai/internal/events"
	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
	"chuan-dai/pkg/util"
)

// 订单相关错误
var (
	ErrEmptyOrder         = errors.New("订单中没有菜品")
	ErrInvalidQuantity    = errors.New("菜品数量必须在 1 到 99 之间")
	ErrOrderNotFound      = errors.New("订单不存在")
	ErrInvalidStatus      = errors.New("订单状态无效")
	ErrInvalidTransition  = errors.New("当前订单状态不允许此操作")
	ErrGatheringNotFound  = errors.New("聚会不存在")
	ErrOrderNumberExhaust = errors.New("订单号生成失败，请重试")
)

const (
	maxItemQuantity     = 99
	orderNumberAttempts = 3
	orderNumberSuffix   = 6
)

// OrderService 订单服务
// 下单时快照菜品名称和价格，总价在创建后不再变化
type OrderService struct {
	orderRepo     *repository.OrderRepository
	dishRepo      *repository.DishRepository
	userRepo      *repository.UserRepository
	gatheringRepo *repository.GatheringRepository
	publisher     events.Publisher
	notifier      Notifier
	now           func() time.Time
}

// NewOrderService 创建 OrderService 实例
// 参数:
//   - publisher: 后厨事件发布器
//   - notifier: 实时通知推送
func NewOrderService(
	orderRepo *repository.OrderRepository,
	dishRepo *repository.DishRepository,
	userRepo *repository.UserRepository,
	gatheringRepo *repository.GatheringRepository,
	publisher events.Publisher,
	notifier Notifier,
) *OrderService {
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &OrderService{
		orderRepo:     orderRepo,
		dishRepo:      dishRepo,
		userRepo:      userRepo,
		gatheringRepo: gatheringRepo,
		publisher:     publisher,
		notifier:      notifier,
		now:           time.Now,
	}
}

// OrderItemRequest 下单明细
type OrderItemRequest struct {
	DishID   int64  `json:"dish_id" binding:"required,gt=0"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=99"`
	Remark   string `json:"remark" binding:"omitempty,max=200"`
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	Items       []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Remark      string             `json:"remark" binding:"omitempty,max=500"`
	GatheringID *int64             `json:"gathering_id"`
}

// UpdateStatusRequest 订单状态迁移请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=CONFIRMED COMPLETED CANCELLED"`
}

// OrderEvent 推送给后厨和客户端的订单事件
type OrderEvent struct {
	OrderID        int64            `json:"order_id"`
	OrderNumber    string           `json:"order_number"`
	CustomerID     int64            `json:"customer_id"`
	CustomerName   string           `json:"customer_name"`
	Status         string           `json:"status"`
	PreviousStatus string           `json:"previous_status,omitempty"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	Items          []OrderEventItem `json:"items,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// OrderEventItem 事件中的明细
type OrderEventItem struct {
	DishID   int64   `json:"dish_id"`
	DishName string  `json:"dish_name"`
	Quantity int     `json:"quantity"`
	Remark   *string `json:"remark,omitempty"`
}

// CreateOrder 创建订单
// 订单和明细在同一事务中写入；订单号冲突时最多重新生成 3 次
// 返回:
//   - *model.Order: 创建后的订单（含明细）
//   - error: ErrEmptyOrder、ErrInvalidQuantity、ErrDishNotFound、ErrDishUnavailable、ErrGatheringNotFound 等
func (s *OrderService) CreateOrder(ctx context.Context, customerID int64, req *CreateOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity < 1 || item.Quantity > maxItemQuantity {
			return nil, ErrInvalidQuantity
		}
	}

	customer, err := s.userRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrUserNotFound
	}

	if req.GatheringID != nil {
		gathering, err := s.gatheringRepo.GetByID(ctx, *req.GatheringID)
		if err != nil {
			return nil, err
		}
		if gathering == nil {
			return nil, ErrGatheringNotFound
		}
	}

	var order *model.Order
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order = &model.Order{
			OrderNumber:  s.generateOrderNumber(),
			CustomerID:   customerID,
			CustomerName: customer.DisplayName(),
			GatheringID:  req.GatheringID,
			Remark:       util.NonEmptyPtr(req.Remark),
			Status:       model.OrderStatusPending,
		}

		err = s.orderRepo.Transaction(ctx, func(tx *gorm.DB) error {
			return s.fillAndCreate(ctx, tx, order, req.Items)
		})
		if err == nil {
			break
		}
		if !isDuplicateKey(err) {
			return nil, err
		}
		zap.L().Warn("order number collision", zap.String("order_number", order.OrderNumber))
	}
	if err != nil {
		return nil, ErrOrderNumberExhaust
	}

	created, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.RoutingOrderCreated, NotifyOrderCreated, created, "")
	return created, nil
}

// fillAndCreate 读取当前菜品价格，生成明细快照并写入订单
func (s *OrderService) fillAndCreate(ctx context.Context, tx *gorm.DB, order *model.Order, items []OrderItemRequest) error {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.DishID)
	}

	dishes, err := s.dishRepo.WithTx(tx).GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	total := decimal.Zero
	order.Items = make([]model.OrderItem, 0, len(items))
	for _, item := range items {
		dish, ok := dishes[item.DishID]
		if !ok {
			return fmt.Errorf("dish %d: %w", item.DishID, ErrDishNotFound)
		}
		if !dish.IsAvailable {
			return fmt.Errorf("dish %d: %w", item.DishID, ErrDishUnavailable)
		}

		line := model.OrderItem{
			DishID:   dish.ID,
			DishName: dish.Name,
			Price:    dish.Price,
			Quantity: item.Quantity,
			Remark:   util.NonEmptyPtr(item.Remark),
		}
		total = total.Add(line.Subtotal())
		order.Items = append(order.Items, line)
	}
	order.TotalAmount = total

	return s.orderRepo.WithTx(tx).Create(ctx, order)
}

func (s *OrderService) generateOrderNumber() string {
	return "ORD-" + s.now().Format("20060102") + "-" + util.GenerateReadableCode(orderNumberSuffix)
}

// ListOrders 获取用户的订单，最新的在前
// 参数:
//   - status: 状态过滤，为空表示全部
func (s *OrderService) ListOrders(ctx context.Context, customerID int64, status string) ([]model.Order, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !model.ValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.orderRepo.ListByCustomer(ctx, customerID, status)
}

// GetOrder 获取订单详情
// 他人的订单同样返回 ErrOrderNotFound
func (s *OrderService) GetOrder(ctx context.Context, customerID, orderID int64) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.CustomerID != customerID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus 迁移订单状态
// 合法迁移: PENDING→CONFIRMED, CONFIRMED→COMPLETED, PENDING→CANCELLED
// 只有下单人可以操作；更新带状态条件，并发迁移只有一个成功
func (s *OrderService) UpdateStatus(ctx context.Context, userID, orderID int64, to string) (*model.Order, error) {
	if !model.ValidOrderStatus(to) {
		return nil, ErrInvalidStatus
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.CustomerID != userID {
		return nil, ErrForbidden
	}

	from := order.Status
	if !model.CanTransition(from, to) {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	fields := make(map[string]interface{})
	switch to {
	case model.OrderStatusConfirmed:
		fields["confirmed_at"] = now
	case model.OrderStatusCompleted:
		fields["completed_at"] = now
	case model.OrderStatusCancelled:
		fields["cancelled_at"] = now
	}

	affected, err := s.orderRepo.UpdateStatus(ctx, orderID, from, to, fields)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInvalidTransition
	}

	updated, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.RoutingOrderStatusChanged, NotifyOrderStatus, updated, from)
	return updated, nil
}

// emit 发布后厨事件并通知下单人
// 发布失败只记录日志，不影响订单本身
func (s *OrderService) emit(ctx context.Context, routingKey, notifyType string, order *model.Order, previous string) {
	if order == nil {
		return
	}

	event := OrderEvent{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerID:     order.CustomerID,
		CustomerName:   order.CustomerName,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalAmount:    order.TotalAmount,
		OccurredAt:     s.now(),
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderEventItem{
			DishID:   item.DishID,
			DishName: item.DishName,
			Quantity: item.Quantity,
			Remark:   item.Remark,
		})
	}

	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		zap.L().Error("publish order event failed",
			zap.String("routing_key", routingKey),
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}
	s.notifier.NotifyUser(order.CustomerID, notifyType, event)
}
