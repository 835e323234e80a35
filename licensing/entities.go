package licensing

import (
	"time"

	"github.com/uptrace/bun"
)

// DefaultShopID is assigned to every row the verification endpoint creates
// lazily. Other shops only appear through the admin surface.
const DefaultShopID = 1

// Client is a trading terminal installation, identified by the device ID the
// terminal reports (the legacy MT4ID). Created lazily on the first
// verification call from an unseen device.
type Client struct {
	bun.BaseModel `bun:"table:mt4clients"`

	ID       int64  `bun:"idClient,pk,autoincrement" json:"id"`
	DeviceID string `bun:"MT4ID" json:"device_id"`
	Name     string `bun:"Nombre" json:"name"`
	Broker   string `bun:"Broker" json:"broker"`
	TestFlag string `bun:"Tests" json:"test_flag"`
	ShopID   int64  `bun:"idShop" json:"shop_id"`
}

// Product is a sellable indicator or expert advisor, identified by its code.
// Unknown codes are auto-provisioned with placeholder values by the
// verification endpoint; DemoDays drives the trial length of the standard
// license family.
type Product struct {
	bun.BaseModel `bun:"table:mt4products"`

	ID       int64  `bun:"idProduct,pk,autoincrement" json:"id"`
	Name     string `bun:"Product" json:"name"`
	Code     string `bun:"Code" json:"code"`
	Version  int    `bun:"version" json:"version"`
	DemoDays int    `bun:"DemoDays" json:"demo_days"`
	Link     string `bun:"link" json:"link"`
	Comment  string `bun:"comentario" json:"comment"`
	ShopID   int64  `bun:"idShop" json:"shop_id"`
}

// License is the standard family: one row per (client, product) with an
// expiration set once at creation and never renewed by the verification path.
type License struct {
	bun.BaseModel `bun:"table:mt4licences"`

	ID         int64     `bun:"idLicence,pk,autoincrement" json:"id"`
	ClientID   int64     `bun:"idClient" json:"client_id"`
	ProductID  int64     `bun:"idProduct" json:"product_id"`
	Expiration time.Time `bun:"expiration" json:"expiration"`
	ShopID     int64     `bun:"idShop" json:"shop_id"`
}

// StationLicense is the trading-station family (the legacy mt4licences2
// pool): rows are issued out of band, keyed by device rather than client, and
// carry no expiration. The verification path only checks that a row exists.
type StationLicense struct {
	bun.BaseModel `bun:"table:mt4licences2"`

	ID        int64  `bun:"idLicence,pk,autoincrement" json:"id"`
	DeviceID  string `bun:"MT4ID" json:"device_id"`
	ProductID int64  `bun:"idProduct" json:"product_id"`
	ShopID    int64  `bun:"idShop" json:"shop_id"`
}
