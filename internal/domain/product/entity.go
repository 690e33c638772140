// internal/domain/product/entity.go
package product

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a catalogue item sold in one or more sizes
type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"not null;size:255" json:"name"`
	Slug         string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Category     string          `gorm:"index;size:100" json:"category"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"` // INR
	CurrentStock int             `gorm:"not null;default:0" json:"current_stock"`
	InStock      bool            `gorm:"not null;default:false" json:"in_stock"`
	IsVisible    bool            `gorm:"not null;default:true" json:"is_visible"`
	Buys         int             `gorm:"not null;default:0" json:"buys"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`

	Sizes []ProductSize `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// ProductSize holds the stock of one size of a product
type ProductSize struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_product_size" json:"-"`
	Size      string    `gorm:"not null;size:20;uniqueIndex:idx_product_size" json:"size"`
	Stock     int       `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	UpdatedAt time.Time `json:"-"`
}

// TableName overrides
func (Product) TableName() string     { return "products" }
func (ProductSize) TableName() string { return "product_sizes" }

// SizeStock returns the size → quantity map
func (p *Product) SizeStock() map[string]int {
	stock := make(map[string]int, len(p.Sizes))
	for _, s := range p.Sizes {
		stock[s.Size] = s.Stock
	}
	return stock
}

// StockFor returns the stock of a size, or false if the product has no such size
func (p *Product) StockFor(size string) (int, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Stock, true
		}
	}
	return 0, false
}

// RecomputeStock refreshes the derived stock fields from the loaded sizes
func (p *Product) RecomputeStock() {
	total := 0
	for _, s := range p.Sizes {
		total += s.Stock
	}
	p.CurrentStock = total
	p.InStock = total > 0
}

// IsPurchasable reports whether the product can be ordered at all
func (p *Product) IsPurchasable() bool {
	return p.IsVisible && !p.DeletedAt.Valid
}

// MarshalJSON adds the size_stock map to the product representation
func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		SizeStock map[string]int `json:"size_stock"`
	}{
		alias:     alias(p),
		SizeStock: p.SizeStock(),
	})
}
