// Package cart 实现客户端购物车
// 购物车只保存在本地，提交订单时才发给服务端
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity 单个菜品的最大数量
const MaxQuantity = 99

var (
	ErrInvalidQuantity = fmt.Errorf("数量必须在 1 到 %d 之间", MaxQuantity)
	ErrItemNotFound    = errors.New("购物车中没有该菜品")
)

// Item 购物车中的一项
// 名称和价格在加入时记录，仅用于展示，实际价格以下单时为准
type Item struct {
	DishID   int64           `json:"dish_id"`
	Name     string          `json:"name"`
	NameEn   string          `json:"name_en,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Remark   string          `json:"remark,omitempty"`
	AddedAt  time.Time       `json:"added_at"`
}

// Subtotal 小计
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Persister 购物车持久化
type Persister interface {
	Load() ([]Item, error)
	Save(items []Item) error
}

// Store 购物车
// 每次修改后持久化并通知订阅者
type Store struct {
	mu          sync.Mutex
	items       map[int64]Item
	persister   Persister
	subscribers map[int]func([]Item)
	nextSubID   int
	now         func() time.Time
}

// NewStore 创建购物车并从 persister 恢复内容
// persister 为 nil 时只保存在内存中
func NewStore(persister Persister) (*Store, error) {
	s := &Store{
		items:       make(map[int64]Item),
		persister:   persister,
		subscribers: make(map[int]func([]Item)),
		now:         time.Now,
	}
	if persister == nil {
		return s, nil
	}

	items, err := persister.Load()
	if err != nil {
		return nil, fmt.Errorf("加载购物车失败: %w", err)
	}
	for _, item := range items {
		if item.Quantity < 1 || item.Quantity > MaxQuantity {
			continue
		}
		s.items[item.DishID] = item
	}
	return s, nil
}

// Get 获取购物车内容，按加入顺序排列
func (s *Store) Get() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() []Item {
	items := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].DishID < items[j].DishID
	})
	return items
}

// Set 整体替换购物车内容
func (s *Store) Set(items []Item) error {
	next := make(map[int64]Item, len(items))
	for _, item := range items {
		if item.Quantity < 1 || item.Quantity > MaxQuantity {
			return ErrInvalidQuantity
		}
		if item.AddedAt.IsZero() {
			item.AddedAt = s.now()
		}
		next[item.DishID] = item
	}

	return s.update(func(map[int64]Item) error {
		s.items = next
		return nil
	})
}

// Add 加入菜品，已存在时累加数量
func (s *Store) Add(item Item) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.update(func(items map[int64]Item) error {
		if existing, ok := items[item.DishID]; ok {
			existing.Quantity += item.Quantity
			if existing.Quantity > MaxQuantity {
				return ErrInvalidQuantity
			}
			if item.Remark != "" {
				existing.Remark = item.Remark
			}
			items[item.DishID] = existing
			return nil
		}
		if item.Quantity > MaxQuantity {
			return ErrInvalidQuantity
		}
		item.AddedAt = s.now()
		items[item.DishID] = item
		return nil
	})
}

// SetQuantity 修改数量，数量为 0 时移除
func (s *Store) SetQuantity(dishID int64, quantity int) error {
	if quantity < 0 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	return s.update(func(items map[int64]Item) error {
		item, ok := items[dishID]
		if !ok {
			return ErrItemNotFound
		}
		if quantity == 0 {
			delete(items, dishID)
			return nil
		}
		item.Quantity = quantity
		items[dishID] = item
		return nil
	})
}

// SetRemark 修改备注
func (s *Store) SetRemark(dishID int64, remark string) error {
	return s.update(func(items map[int64]Item) error {
		item, ok := items[dishID]
		if !ok {
			return ErrItemNotFound
		}
		item.Remark = remark
		items[dishID] = item
		return nil
	})
}

// Remove 移除菜品
func (s *Store) Remove(dishID int64) error {
	return s.SetQuantity(dishID, 0)
}

// Clear 清空购物车
func (s *Store) Clear() error {
	return s.update(func(items map[int64]Item) error {
		for id := range items {
			delete(items, id)
		}
		return nil
	})
}

// Total 总价
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count 菜品总份数
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

// Subscribe 订阅购物车变化
// 返回取消订阅的函数
func (s *Store) Subscribe(fn func([]Item)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// update 在副本上执行修改，成功后持久化并通知订阅者
// 修改或持久化失败时购物车保持原样
func (s *Store) update(fn func(items map[int64]Item) error) error {
	s.mu.Lock()

	draft := make(map[int64]Item, len(s.items))
	for id, item := range s.items {
		draft[id] = item
	}
	prev := s.items
	s.items = draft

	if err := fn(draft); err != nil {
		s.items = prev
		s.mu.Unlock()
		return err
	}

	items := s.snapshot()
	if s.persister != nil {
		if err := s.persister.Save(items); err != nil {
			s.items = prev
			s.mu.Unlock()
			return fmt.Errorf("保存购物车失败: %w", err)
		}
	}

	subs := make([]func([]Item), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(items)
	}
	return nil
}

// FilePersister 把购物车保存为 JSON 文件
type FilePersister struct {
	Path string
}

// Load 读取购物车，文件不存在时返回空
func (p FilePersister) Load() ([]Item, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Save 写入临时文件后重命名，避免写到一半留下损坏的文件
func (p FilePersister) Save(items []Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.Path), 0700); err != nil {
		return err
	}
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, p.Path)
}
