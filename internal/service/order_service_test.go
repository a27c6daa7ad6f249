package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"chuan-dai/internal/events"
	"chuan-dai/internal/model"
	"chuan-dai/internal/repository"
)

type orderFixture struct {
	db        *gorm.DB
	svc       *OrderService
	publisher *recordingPublisher
	notifier  *recordingNotifier
	clock     *fakeClock
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := newTestDB(t)
	publisher := &recordingPublisher{}
	notifier := &recordingNotifier{}
	clock := newFakeClock()

	svc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewDishRepository(db),
		repository.NewUserRepository(db),
		repository.NewGatheringRepository(db),
		publisher,
		notifier,
	)
	svc.now = clock.Now

	return &orderFixture{db: db, svc: svc, publisher: publisher, notifier: notifier, clock: clock}
}

func TestCreateOrderTotal(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	user := createUser(t, f.db, "alice", "secret123")
	tofu := createDish(t, f.db, "麻婆豆腐", "28.00", model.CategoryMainCourse)
	chicken := createDish(t, f.db, "宫保鸡丁", "48.00", model.CategoryMainCourse)

	order, err := f.svc.CreateOrder(ctx, user.ID, &CreateOrderRequest{
		Items: []OrderItemRequest{
			{DishID: tofu.ID, Quantity: 2, Remark: "少辣"},
			{DishID: chicken.ID, Quantity: 1},
		},
		Remark: "靠窗",
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	want := decimal.RequireFromString("104.00")
	if !order.TotalAmount.Equal(want) {
		t.Errorf("Expected total %s, got %s", want, order.TotalAmount)
	}

	sum := decimal.Zero
	for _, item := range order.Items {
		sum = sum.Add(item.Subtotal())
	}
	if !sum.Equal(order.TotalAmount) {
		t.Errorf("Expected total to equal sum of items, got %s vs %s", order.TotalAmount, sum)
	}

	if order.Status != model.OrderStatusPending {
		t.Errorf("Expected PENDING, got %s", order.Status)
	}
	if order.CustomerName != "alice" {
		t.Errorf("Expected customer name alice, got %s", order.CustomerName)
	}
	if !regexp.MustCompile(`^ORD-20240315-[A-Z2-9]{6}$`).MatchString(order.OrderNumber) {
		t.Errorf("Unexpected order number %s", order.OrderNumber)
	}
	if len(order.Items) != 2 || order.Items[0].DishName != "麻婆豆腐" {
		t.Errorf("Expected snapshotted items, got %+v", order.Items)
	}

	if keys := f.publisher.keys(); len(keys) != 1 || keys[0] != events.RoutingOrderCreated {
		t.Errorf("Expected order.created event, got %v", keys)
	}
	sent := f.notifier.all()
	if len(sent) != 1 || sent[0].userID != user.ID || sent[0].msgType != NotifyOrderCreated {
		t.Errorf("Expected order:created notification, got %+v", sent)
	}
}

func TestOrderSnapshotsPrice(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	user := createUser(t, f.db, "bob", "secret123")
	dish := createDish(t, f.db, "口水鸡", "38.00", model.CategoryAppetizer)

	order, err := f.svc.CreateOrder(ctx, user.ID, &CreateOrderRequest{
		Items: []OrderItemRequest{{DishID: dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	// 菜单调价
	if err := f.db.Model(&model.Dish{}).Where("id = ?", dish.ID).Update("price", decimal.RequireFromString("45.00")).Error; err != nil {
		t.Fatalf("update price failed: %v", err)
	}

	got, err := f.svc.GetOrder(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if !got.Items[0].Price.Equal(decimal.RequireFromString("38.00")) {
		t.Errorf("Expected snapshotted price 38.00, got %s", got.Items[0].Price)
	}
	if !got.TotalAmount.Equal(decimal.RequireFromString("38.00")) {
		t.Errorf("Expected total 38.00, got %s", got.TotalAmount)
	}
}

func TestCreateOrderRejects(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	user := createUser(t, f.db, "carol", "secret123")
	dish := createDish(t, f.db, "回锅肉", "45.00", model.CategoryMainCourse)
	offMenu := createDish(t, f.db, "季节菜", "30.00", model.CategoryMainCourse)
	f.db.Model(&model.Dish{}).Where("id = ?", offMenu.ID).Update("is_available", false)

	missingGathering := int64(404)

	tests := []struct {
		name    string
		req     *CreateOrderRequest
		wantErr error
	}{
		{"empty items", &CreateOrderRequest{}, ErrEmptyOrder},
		{"zero quantity", &CreateOrderRequest{Items: []OrderItemRequest{{DishID: dish.ID, Quantity: 0}}}, ErrInvalidQuantity},
		{"quantity over limit", &CreateOrderRequest{Items: []OrderItemRequest{{DishID: dish.ID, Quantity: 100}}}, ErrInvalidQuantity},
		{"unknown dish", &CreateOrderRequest{Items: []OrderItemRequest{{DishID: dish.ID, Quantity: 1}, {DishID: 9999, Quantity: 1}}}, ErrDishNotFound},
		{"unavailable dish", &CreateOrderRequest{Items: []OrderItemRequest{{DishID: offMenu.ID, Quantity: 1}}}, ErrDishUnavailable},
		{"unknown gathering", &CreateOrderRequest{Items: []OrderItemRequest{{DishID: dish.ID, Quantity: 1}}, GatheringID: &missingGathering}, ErrGatheringNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(ctx, user.ID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// 失败的下单不能留下任何数据
	var orders, items int64
	f.db.Model(&model.Order{}).Count(&orders)
	f.db.Model(&model.OrderItem{}).Count(&items)
	if orders != 0 || items != 0 {
		t.Errorf("Expected no rows after rejected orders, got %d orders %d items", orders, items)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	all := []string{
		model.OrderStatusPending,
		model.OrderStatusConfirmed,
		model.OrderStatusCompleted,
		model.OrderStatusCancelled,
	}
	allowed := map[[2]string]bool{
		{model.OrderStatusPending, model.OrderStatusConfirmed}:   true,
		{model.OrderStatusConfirmed, model.OrderStatusCompleted}: true,
		{model.OrderStatusPending, model.OrderStatusCancelled}:   true,
	}

	f := newOrderFixture(t)
	ctx := context.Background()
	user := createUser(t, f.db, "dave", "secret123")
	dish := createDish(t, f.db, "鱼香肉丝", "32.00", model.CategoryMainCourse)

	for _, from := range all {
		for _, to := range all {
			order, err := f.svc.CreateOrder(ctx, user.ID, &CreateOrderRequest{
				Items: []OrderItemRequest{{DishID: dish.ID, Quantity: 1}},
			})
			if err != nil {
				t.Fatalf("CreateOrder failed: %v", err)
			}
			f.db.Model(&model.Order{}).Where("id = ?", order.ID).Update("status", from)

			_, err = f.svc.UpdateStatus(ctx, user.ID, order.ID, to)
			want := allowed[[2]string{from, to}]
			if want && err != nil {
				t.Errorf("%s -> %s: expected success, got %v", from, to, err)
			}
			if !want && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
			}
		}
	}
}

func TestUpdateStatusStampsAndNotifies(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	owner := createUser(t, f.db, "erin", "secret123")
	stranger := createUser(t, f.db, "frank", "secret123")
	dish := createDish(t, f.db, "紫米露", "18.00", model.CategoryDessert)

	order, err := f.svc.CreateOrder(ctx, owner.ID, &CreateOrderRequest{
		Items: []OrderItemRequest{{DishID: dish.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, stranger.ID, order.ID, model.OrderStatusConfirmed); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for other users, got %v", err)
	}
	if _, err := f.svc.GetOrder(ctx, stranger.ID, order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound for other users, got %v", err)
	}

	confirmed, err := f.svc.UpdateStatus(ctx, owner.ID, order.ID, model.OrderStatusConfirmed)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if confirmed.ConfirmedAt == nil {
		t.Error("Expected confirmed_at to be set")
	}

	completed, err := f.svc.UpdateStatus(ctx, owner.ID, order.ID, model.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if completed.CompletedAt == nil || completed.Status != model.OrderStatusCompleted {
		t.Errorf("Expected completed order, got %+v", completed)
	}

	keys := f.publisher.keys()
	if len(keys) != 3 || keys[1] != events.RoutingOrderStatusChanged {
		t.Errorf("Expected created + 2 status events, got %v", keys)
	}

	if _, err := f.svc.UpdateStatus(ctx, owner.ID, order.ID, "SHIPPED"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestListOrders(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	user := createUser(t, f.db, "grace", "secret123")
	other := createUser(t, f.db, "heidi", "secret123")
	dish := createDish(t, f.db, "酸角汁", "12.00", model.CategoryBeverage)

	req := &CreateOrderRequest{Items: []OrderItemRequest{{DishID: dish.ID, Quantity: 1}}}
	first, _ := f.svc.CreateOrder(ctx, user.ID, req)
	second, _ := f.svc.CreateOrder(ctx, user.ID, req)
	f.svc.CreateOrder(ctx, other.ID, req)

	if _, err := f.svc.UpdateStatus(ctx, user.ID, first.ID, model.OrderStatusCancelled); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	orders, err := f.svc.ListOrders(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != second.ID {
		t.Errorf("Expected 2 orders newest first, got %d", len(orders))
	}

	pending, _ := f.svc.ListOrders(ctx, user.ID, "pending")
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Errorf("Expected only the pending order, got %d", len(pending))
	}

	if _, err := f.svc.ListOrders(ctx, user.ID, "LOST"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestCustomerNameFallsBackToNickname(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	user := createUser(t, f.db, "ivan", "secret123")
	f.db.Model(&model.User{}).Where("id = ?", user.ID).Update("nickname", "小伊")
	dish := createDish(t, f.db, "柠檬虾", "48.00", model.CategorySoup)

	order, err := f.svc.CreateOrder(ctx, user.ID, &CreateOrderRequest{
		Items: []OrderItemRequest{{DishID: dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.CustomerName != "小伊" {
		t.Errorf("Expected nickname as customer name, got %s", order.CustomerName)
	}
}
