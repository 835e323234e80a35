package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-license-server/licensing"
	"github.com/goliatone/go-license-server/repository"
)

// ErrMissingParameter reports a verification call that omitted one of the
// five required protocol parameters. The HTTP layer renders it as the blank
// response, indistinguishable from every other failure.
var ErrMissingParameter = errors.New("verify: missing required parameter")

// ErrNotLicensed reports a trading-station request with no pool row for the
// (device, product) pair. Also rendered as the blank response.
var ErrNotLicensed = errors.New("verify: no eligible license")

// stationMarker selects the trading-station family: any product code
// containing this substring is resolved against the license pool instead of
// the standard per-client licenses.
const stationMarker = "mk"

// expirationLayout is the legacy wire format for dates, zero-padded and
// dot-separated.
const expirationLayout = "2006.01.02"

// Request carries the five required query parameters of the legacy protocol.
type Request struct {
	ProductCode string
	DeviceID    string
	DeviceName  string
	BrokerName  string
	TestFlag    string
}

// Grant is a successful verification: the resolved expiration, its wire
// rendering, and the checksum the terminal validates against.
type Grant struct {
	Expiration time.Time
	Formatted  string
	Checksum   string
}

// Body renders the two-line success response.
func (g *Grant) Body() string {
	return g.Formatted + "\n" + g.Checksum
}

// Resolver orchestrates the repositories to answer verification calls:
// find-or-create of client and product, family-specific license resolution,
// and the response checksum.
type Resolver struct {
	clients  *repository.Clients
	products *repository.Products
	licenses *repository.Licenses
	stations *repository.StationLicenses
	logger   *slog.Logger

	// group serializes find-or-create per (device, product) pair, so two
	// first-time calls racing each other cannot both observe "absent" and
	// insert duplicate rows. The store's unique indexes back this up across
	// processes.
	group singleflight.Group
	now   func() time.Time
}

// NewResolver builds a Resolver over the entity repositories.
func NewResolver(
	clients *repository.Clients,
	products *repository.Products,
	licenses *repository.Licenses,
	stations *repository.StationLicenses,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		clients:  clients,
		products: products,
		licenses: licenses,
		stations: stations,
		logger:   logger.With(slog.String("component", "verify")),
		now:      time.Now,
	}
}

// SetClock replaces the time source; tests only.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Verify resolves a verification request to a Grant. Every returned error is
// one the HTTP layer renders as the blank response; the caller never sees
// details.
func (r *Resolver) Verify(ctx context.Context, req Request) (*Grant, error) {
	if req.ProductCode == "" || req.DeviceID == "" || req.DeviceName == "" ||
		req.BrokerName == "" || req.TestFlag == "" {
		return nil, ErrMissingParameter
	}

	v, err, _ := r.group.Do(req.DeviceID+"\x00"+req.ProductCode, func() (any, error) {
		return r.resolve(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Grant), nil
}

func (r *Resolver) resolve(ctx context.Context, req Request) (*Grant, error) {
	client, err := r.findOrCreateClient(ctx, req)
	if err != nil {
		return nil, err
	}
	product, err := r.findOrCreateProduct(ctx, req.ProductCode)
	if err != nil {
		return nil, err
	}

	var expiration time.Time
	if strings.Contains(req.ProductCode, stationMarker) {
		expiration, err = r.stationExpiration(ctx, req.DeviceID, product.ID)
	} else {
		expiration, err = r.standardExpiration(ctx, client.ID, product)
	}
	if err != nil {
		return nil, err
	}

	formatted := expiration.UTC().Format(expirationLayout)
	return &Grant{
		Expiration: expiration,
		Formatted:  formatted,
		Checksum:   ResponseChecksum(req.ProductCode, req.DeviceID, formatted),
	}, nil
}

func (r *Resolver) findOrCreateClient(ctx context.Context, req Request) (*licensing.Client, error) {
	client, err := r.clients.FindByDeviceID(ctx, req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}
	if client != nil {
		return client, nil
	}

	client, err = r.clients.Create(ctx, &licensing.Client{
		DeviceID: req.DeviceID,
		Name:     req.DeviceName,
		Broker:   req.BrokerName,
		TestFlag: req.TestFlag,
		ShopID:   licensing.DefaultShopID,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	r.logger.InfoContext(ctx, "registered new client",
		slog.String("device_id", req.DeviceID),
		slog.String("broker", req.BrokerName))
	return client, nil
}

// findOrCreateProduct auto-provisions unknown codes with placeholder values.
// Intentional leniency inherited from the legacy service: a stricter
// deployment would keep an allow-list instead.
func (r *Resolver) findOrCreateProduct(ctx context.Context, code string) (*licensing.Product, error) {
	product, err := r.products.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product != nil {
		return product, nil
	}

	product, err = r.products.Create(ctx, &licensing.Product{
		Name:     code,
		Code:     code,
		Version:  1,
		DemoDays: 1,
		ShopID:   licensing.DefaultShopID,
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	r.logger.InfoContext(ctx, "auto-provisioned product", slog.String("code", code))
	return product, nil
}

// stationExpiration never writes: eligibility comes from the pool, and the
// expiration is recomputed on every call as the first day of the next
// calendar month. While a pool row exists the license effectively
// auto-extends month after month.
func (r *Resolver) stationExpiration(ctx context.Context, deviceID string, productID int64) (time.Time, error) {
	pool, err := r.stations.FindByDeviceAndProduct(ctx, deviceID, productID)
	if err != nil {
		return time.Time{}, fmt.Errorf("find station licence: %w", err)
	}
	if pool == nil {
		return time.Time{}, ErrNotLicensed
	}

	now := r.now().UTC()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC), nil
}

// standardExpiration issues a demo license on first contact and afterwards
// reuses the stored expiration unchanged. No renewal happens on this path.
func (r *Resolver) standardExpiration(ctx context.Context, clientID int64, product *licensing.Product) (time.Time, error) {
	license, err := r.licenses.FindByClientAndProduct(ctx, clientID, product.ID)
	if err != nil {
		return time.Time{}, fmt.Errorf("find licence: %w", err)
	}
	if license == nil {
		now := r.now().UTC()
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		license, err = r.licenses.Create(ctx, &licensing.License{
			ClientID:   clientID,
			ProductID:  product.ID,
			Expiration: start.AddDate(0, 0, product.DemoDays),
			ShopID:     licensing.DefaultShopID,
		})
		if err != nil {
			return time.Time{}, fmt.Errorf("create licence: %w", err)
		}
		r.logger.InfoContext(ctx, "issued demo licence",
			slog.Int64("client_id", clientID),
			slog.String("product", product.Code),
			slog.Int("demo_days", product.DemoDays))
	}
	return license.Expiration, nil
}
