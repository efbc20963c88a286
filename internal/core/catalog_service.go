package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogProvider is read-only access to host-owned reference data.
type CatalogProvider interface {
	GetBusiness(ctx context.Context, businessID int) (*Business, error)
	GetBusinessTx(ctx context.Context, tx pgx.Tx, businessID int) (*Business, error)
	GetProduct(ctx context.Context, productID int) (*Product, error)
	// ListUnlockedProductsTx returns sellable products ordered by id.
	ListUnlockedProductsTx(ctx context.Context, tx pgx.Tx, businessID int) ([]Product, error)
	GetVendorTx(ctx context.Context, tx pgx.Tx, vendorID int) (*Vendor, error)
	// GetOfferTx returns the vendor's offer for a product with its volume tiers.
	GetOfferTx(ctx context.Context, tx pgx.Tx, vendorID, productID int) (*VendorOffer, error)
	ListOffers(ctx context.Context, vendorID int) ([]VendorOffer, error)
}

// querier is the read surface shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogProvider backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool) CatalogProvider {
	return &catalogService{pool: pool}
}

func (s *catalogService) GetBusiness(ctx context.Context, businessID int) (*Business, error) {
	return getBusiness(ctx, s.pool, businessID)
}

func (s *catalogService) GetBusinessTx(ctx context.Context, tx pgx.Tx, businessID int) (*Business, error) {
	return getBusiness(ctx, tx, businessID)
}

func getBusiness(ctx context.Context, q querier, businessID int) (*Business, error) {
	b := &Business{}
	err := q.QueryRow(ctx, `
		SELECT id, code, name, volatility, starting_cash
		FROM businesses WHERE id = $1`,
		businessID,
	).Scan(&b.ID, &b.Code, &b.Name, &b.Volatility, &b.StartingCash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("business %d: %w", businessID, ErrNotFound)
		}
		return nil, fmt.Errorf("get business %d: %w", businessID, err)
	}
	return b, nil
}

const productColumns = `id, business_id, category_id, sku, name, base_demand, price_sensitivity,
	default_price, status, attribute_1, attribute_2, attribute_3`

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(&p.ID, &p.BusinessID, &p.CategoryID, &p.SKU, &p.Name, &p.BaseDemand,
		&p.PriceSensitivity, &p.DefaultPrice, &p.Status, &p.Attribute1, &p.Attribute2, &p.Attribute3)
}

func (s *catalogService) GetProduct(ctx context.Context, productID int) (*Product, error) {
	p := &Product{}
	err := scanProduct(s.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", productID), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	return p, nil
}

func (s *catalogService) ListUnlockedProductsTx(ctx context.Context, tx pgx.Tx, businessID int) ([]Product, error) {
	rows, err := tx.Query(ctx, "SELECT "+productColumns+`
		FROM products
		WHERE business_id = $1 AND status = 'UNLOCKED'
		ORDER BY id`,
		businessID,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *catalogService) GetVendorTx(ctx context.Context, tx pgx.Tx, vendorID int) (*Vendor, error) {
	v := &Vendor{}
	err := tx.QueryRow(ctx, `
		SELECT id, business_id, name, lead_time_days, reliability, minimum_order_value,
		       payment_terms_days, shipping_fee, status
		FROM vendors
		WHERE id = $1`,
		vendorID,
	).Scan(&v.ID, &v.BusinessID, &v.Name, &v.LeadTimeDays, &v.Reliability, &v.MinimumOrderValue,
		&v.PaymentTermsDays, &v.ShippingFee, &v.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor %d: %w", vendorID, ErrNotFound)
		}
		return nil, fmt.Errorf("get vendor %d: %w", vendorID, err)
	}
	return v, nil
}

func (s *catalogService) GetOfferTx(ctx context.Context, tx pgx.Tx, vendorID, productID int) (*VendorOffer, error) {
	o := &VendorOffer{}
	err := tx.QueryRow(ctx, `
		SELECT id, vendor_id, product_id, unit_cost, minimum_order_quantity
		FROM vendor_offers
		WHERE vendor_id = $1 AND product_id = $2`,
		vendorID, productID,
	).Scan(&o.ID, &o.VendorID, &o.ProductID, &o.UnitCost, &o.MinimumOrderQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor %d offer for product %d: %w", vendorID, productID, ErrNotFound)
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}

	o.Tiers, err = listTiers(ctx, tx, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *catalogService) ListOffers(ctx context.Context, vendorID int) ([]VendorOffer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, vendor_id, product_id, unit_cost, minimum_order_quantity
		FROM vendor_offers
		WHERE vendor_id = $1
		ORDER BY product_id`,
		vendorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}

	var offers []VendorOffer
	for rows.Next() {
		var o VendorOffer
		if err := rows.Scan(&o.ID, &o.VendorID, &o.ProductID, &o.UnitCost, &o.MinimumOrderQuantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}

	for i := range offers {
		if offers[i].Tiers, err = listTiers(ctx, s.pool, offers[i].ID); err != nil {
			return nil, err
		}
	}
	return offers, nil
}

func listTiers(ctx context.Context, q querier, offerID int) ([]VolumeTier, error) {
	rows, err := q.Query(ctx, `
		SELECT min_quantity, max_quantity, unit_cost
		FROM volume_discounts
		WHERE offer_id = $1
		ORDER BY min_quantity`,
		offerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list volume tiers: %w", err)
	}
	defer rows.Close()

	var tiers []VolumeTier
	for rows.Next() {
		var t VolumeTier
		if err := rows.Scan(&t.MinQuantity, &t.MaxQuantity, &t.UnitCost); err != nil {
			return nil, fmt.Errorf("scan volume tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}
