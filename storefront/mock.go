package storefront

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// staticProducts 内置静态商品目录
//
// 既是 mock 模式的数据源，也是 products 端点熔断打开时的显式降级数据。
var staticProducts = []Product{
	{ID: "1", Name: "Canvas Tote Bag", Description: "Heavy-duty cotton tote", Category: "accessories", Price: 18.00, Featured: false},
	{ID: "3", Name: "Enamel Mug", Description: "Campfire-style 350ml mug", Category: "kitchen", Price: 12.50, Featured: true},
	{ID: "5", Name: "Linen Throw Pillow", Description: "45cm stonewashed linen", Category: "home", Price: 29.00, Featured: false},
	{ID: "7", Name: "Wool Beanie", Description: "Merino wool, one size", Category: "accessories", Price: 24.00, Featured: true},
	{ID: "9", Name: "Ceramic Planter", Description: "Matte glaze, drainage hole", Category: "home", Price: 34.00, Featured: false},
	{ID: "42", Name: "Classic Logo Tee", Description: "Organic cotton crew neck", Category: "apparel", Price: 22.00, Featured: true},
}

// mockCatalog 静态目录查询 + mock 模式下的内存购物车/订单状态
type mockCatalog struct {
	mu     sync.Mutex
	cart   map[string]CartLine // key: productID|variantID
	orders []Order
	users  map[string]User // key: email
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		cart:  make(map[string]CartLine),
		users: make(map[string]User),
	}
}

// ========================================
// 静态目录查询 (Static Catalog)
// ========================================

func (m *mockCatalog) products() []Product {
	out := make([]Product, len(staticProducts))
	copy(out, staticProducts)
	return out
}

func (m *mockCatalog) productByID(id string) *Product {
	for _, p := range staticProducts {
		if p.ID == id {
			dup := p
			return &dup
		}
	}
	return nil
}

func (m *mockCatalog) featured() []Product {
	var out []Product
	for _, p := range staticProducts {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockCatalog) byCategory(category string) []Product {
	var out []Product
	for _, p := range staticProducts {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockCatalog) search(query string) []Product {
	q := strings.ToLower(query)
	var out []Product
	for _, p := range staticProducts {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}

// ========================================
// Mock 模式可变状态 (Mutable Mock State)
// ========================================

func (m *mockCatalog) getCart() *Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cartLocked()
}

func (m *mockCatalog) upsertCartLine(productID, variantID string, quantity int) (*Cart, error) {
	product := m.productByID(productID)
	if product == nil {
		return nil, errMockNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := productID + "|" + variantID
	if quantity <= 0 {
		delete(m.cart, key)
	} else {
		m.cart[key] = CartLine{
			ProductID: productID,
			VariantID: variantID,
			Quantity:  quantity,
			UnitPrice: product.Price,
		}
	}
	return m.cartLocked(), nil
}

func (m *mockCatalog) removeCartLine(productID, variantID string) *Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cart, productID+"|"+variantID)
	return m.cartLocked()
}

func (m *mockCatalog) createOrder() (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart := m.cartLocked()
	if len(cart.Items) == 0 {
		return nil, errMockEmptyCart
	}

	order := Order{
		ID:        uuid.NewString(),
		Items:     cart.Items,
		Total:     cart.Total,
		Status:    "created",
		CreatedAt: time.Now(),
	}
	m.orders = append(m.orders, order)
	m.cart = make(map[string]CartLine)
	return &order, nil
}

func (m *mockCatalog) listOrders() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Order, len(m.orders))
	copy(out, m.orders)
	return out
}

func (m *mockCatalog) orderByID(id string) *Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			dup := o
			return &dup
		}
	}
	return nil
}

func (m *mockCatalog) login(creds Credentials) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[creds.Email]
	if !ok {
		// mock 模式下任何未注册邮箱都可直接登录
		user = User{
			ID:    uuid.NewString(),
			Email: creds.Email,
			Name:  strings.Split(creds.Email, "@")[0],
		}
		m.users[creds.Email] = user
	}
	user.Token = uuid.NewString()
	return &user, nil
}

func (m *mockCatalog) register(reg Registration) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[reg.Email]; ok {
		return nil, errMockEmailTaken
	}
	user := User{
		ID:    uuid.NewString(),
		Email: reg.Email,
		Name:  reg.Name,
		Token: uuid.NewString(),
	}
	m.users[reg.Email] = user
	return &user, nil
}

// cartLocked 组装购物车视图，调用方需持有 m.mu
func (m *mockCatalog) cartLocked() *Cart {
	cart := &Cart{Items: make([]CartLine, 0, len(m.cart))}
	for _, line := range m.cart {
		cart.Items = append(cart.Items, line)
		cart.Total += line.UnitPrice * float64(line.Quantity)
	}
	sort.Slice(cart.Items, func(i, j int) bool {
		return cart.Items[i].ProductID+cart.Items[i].VariantID <
			cart.Items[j].ProductID+cart.Items[j].VariantID
	})
	return cart
}
