package cart

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type failingPersister struct{}

func (failingPersister) Load() ([]Item, error) { return nil, nil }
func (failingPersister) Save([]Item) error     { return errors.New("disk full") }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func item(id int64, price string, qty int) Item {
	return Item{DishID: id, Name: "菜品", Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestAddAccumulates(t *testing.T) {
	s := newTestStore(t)

	if err := s.Add(item(1, "38.00", 1)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add(item(2, "28.00", 2)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add(item(1, "38.00", 2)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	items := s.Get()
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].DishID != 1 || items[0].Quantity != 3 {
		t.Errorf("Expected dish 1 x3 first, got dish %d x%d", items[0].DishID, items[0].Quantity)
	}
	if s.Count() != 5 {
		t.Errorf("Expected count 5, got %d", s.Count())
	}
	if !s.Total().Equal(decimal.RequireFromString("170.00")) {
		t.Errorf("Expected total 170.00, got %s", s.Total().StringFixed(2))
	}
}

func TestQuantityBounds(t *testing.T) {
	tests := []struct {
		name    string
		setup   []Item
		op      func(s *Store) error
		wantErr error
	}{
		{"zero quantity add", nil, func(s *Store) error { return s.Add(item(1, "1", 0)) }, ErrInvalidQuantity},
		{"over max add", nil, func(s *Store) error { return s.Add(item(1, "1", 100)) }, ErrInvalidQuantity},
		{"accumulate over max", []Item{item(1, "1", 98)}, func(s *Store) error { return s.Add(item(1, "1", 2)) }, ErrInvalidQuantity},
		{"set negative", []Item{item(1, "1", 1)}, func(s *Store) error { return s.SetQuantity(1, -1) }, ErrInvalidQuantity},
		{"set max", []Item{item(1, "1", 1)}, func(s *Store) error { return s.SetQuantity(1, MaxQuantity) }, nil},
		{"set missing", nil, func(s *Store) error { return s.SetQuantity(9, 2) }, ErrItemNotFound},
		{"remark missing", nil, func(s *Store) error { return s.SetRemark(9, "少辣") }, ErrItemNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			for _, it := range tt.setup {
				if err := s.Add(it); err != nil {
					t.Fatalf("setup failed: %v", err)
				}
			}
			if err := tt.op(s); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	s := newTestStore(t)
	_ = s.Add(item(1, "10", 2))

	if err := s.SetQuantity(1, 0); err != nil {
		t.Fatalf("SetQuantity failed: %v", err)
	}
	if len(s.Get()) != 0 {
		t.Errorf("Expected empty cart, got %d items", len(s.Get()))
	}
	if err := s.Remove(1); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	s := newTestStore(t)

	var calls int
	var last []Item
	unsubscribe := s.Subscribe(func(items []Item) {
		calls++
		last = items
	})

	_ = s.Add(item(1, "10", 1))
	_ = s.SetRemark(1, "不要香菜")
	if calls != 2 {
		t.Errorf("Expected 2 notifications, got %d", calls)
	}
	if len(last) != 1 || last[0].Remark != "不要香菜" {
		t.Errorf("Expected remark in snapshot, got %+v", last)
	}

	// 失败的修改不通知
	_ = s.SetQuantity(1, 500)
	if calls != 2 {
		t.Errorf("Expected no notification on failure, got %d", calls)
	}

	unsubscribe()
	_ = s.Clear()
	if calls != 2 {
		t.Errorf("Expected no notification after unsubscribe, got %d", calls)
	}
}

func TestSaveFailureKeepsState(t *testing.T) {
	s, err := NewStore(failingPersister{})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := s.Add(item(1, "10", 1)); err == nil {
		t.Error("Expected save error")
	}
	if s.Count() != 0 {
		t.Errorf("Expected cart unchanged, got count %d", s.Count())
	}
}

func TestFilePersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cart.json")
	p := FilePersister{Path: path}

	s, err := NewStore(p)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	_ = s.Add(Item{DishID: 3, Name: "麻婆豆腐", NameEn: "Mapo Tofu", Price: decimal.RequireFromString("26.50"), Quantity: 2, Remark: "微辣"})
	_ = s.Add(item(4, "12.00", 1))

	restored, err := NewStore(p)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	items := restored.Get()
	if len(items) != 2 {
		t.Fatalf("Expected 2 items after reload, got %d", len(items))
	}
	if items[0].NameEn != "Mapo Tofu" || items[0].Remark != "微辣" {
		t.Errorf("Expected first item restored, got %+v", items[0])
	}
	if !restored.Total().Equal(decimal.RequireFromString("65.00")) {
		t.Errorf("Expected total 65.00, got %s", restored.Total().StringFixed(2))
	}

	_ = restored.Clear()
	empty, _ := NewStore(p)
	if empty.Count() != 0 {
		t.Errorf("Expected empty cart after clear, got %d", empty.Count())
	}
}

func TestFilePersisterMissingFile(t *testing.T) {
	p := FilePersister{Path: filepath.Join(t.TempDir(), "none.json")}
	items, err := p.Load()
	if err != nil || items != nil {
		t.Errorf("Expected nil, nil for missing file, got %v, %v", items, err)
	}
}
