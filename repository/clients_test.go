package repository

import (
	"context"
	"testing"

	"github.com/goliatone/go-license-server/licensing"
)

func (h *repoHarness) seedClient(t *testing.T, deviceID string) *licensing.Client {
	t.Helper()
	c, err := h.clients.Create(context.Background(), &licensing.Client{
		DeviceID: deviceID, Name: "Desk", Broker: "BrokerOne", TestFlag: "0", ShopID: 1,
	})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func TestClientsFindByDeviceID(t *testing.T) {
	h := newRepoHarness(t)
	ctx := context.Background()

	// Negative lookup cached first; registration must clear it.
	if got, err := h.clients.FindByDeviceID(ctx, "900123"); err != nil || got != nil {
		t.Fatalf("FindByDeviceID = %+v, %v", got, err)
	}

	c := h.seedClient(t, "900123")

	got, err := h.clients.FindByDeviceID(ctx, "900123")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != c.ID {
		t.Errorf("FindByDeviceID after create = %+v", got)
	}
}

func TestClientsUpdateClearsOldDeviceLookup(t *testing.T) {
	h := newRepoHarness(t)
	ctx := context.Background()

	c := h.seedClient(t, "900123")
	if got, _ := h.clients.FindByDeviceID(ctx, "900123"); got == nil {
		t.Fatal("warmup miss")
	}

	ok, err := h.clients.Update(ctx, c.ID, map[string]any{"MT4ID": "777000"})
	if err != nil || !ok {
		t.Fatalf("Update = %v, %v", ok, err)
	}

	if got, err := h.clients.FindByDeviceID(ctx, "900123"); err != nil || got != nil {
		t.Errorf("old device lookup survived: %+v, %v", got, err)
	}
	got, err := h.clients.FindByDeviceID(ctx, "777000")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != c.ID {
		t.Errorf("FindByDeviceID(777000) = %+v", got)
	}
}

func TestFindWithLicenses(t *testing.T) {
	h := newRepoHarness(t)
	ctx := context.Background()

	c := h.seedClient(t, "900123")
	p := h.seedProduct(t, "trendfx")

	view, err := h.clients.FindWithLicenses(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view == nil || len(view.Licenses) != 0 {
		t.Fatalf("initial view = %+v", view)
	}

	// A license write reaches across entities and clears the client's view.
	if _, err := h.licenses.Create(ctx, &licensing.License{
		ClientID: c.ID, ProductID: p.ID, ShopID: 1,
	}); err != nil {
		t.Fatal(err)
	}

	view, err = h.clients.FindWithLicenses(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Licenses) != 1 {
		t.Errorf("view after license create has %d licences, want 1", len(view.Licenses))
	}
	if view.Client.DeviceID != "900123" {
		t.Errorf("view client = %+v", view.Client)
	}
}

func TestFindWithLicensesAbsentClient(t *testing.T) {
	h := newRepoHarness(t)

	view, err := h.clients.FindWithLicenses(context.Background(), 424242)
	if err != nil {
		t.Fatalf("FindWithLicenses: %v", err)
	}
	if view != nil {
		t.Errorf("got %+v, want nil", view)
	}
}

func TestLicenseDeleteClearsClientView(t *testing.T) {
	h := newRepoHarness(t)
	ctx := context.Background()

	c := h.seedClient(t, "900123")
	p := h.seedProduct(t, "trendfx")
	l, err := h.licenses.Create(ctx, &licensing.License{ClientID: c.ID, ProductID: p.ID, ShopID: 1})
	if err != nil {
		t.Fatal(err)
	}

	if view, _ := h.clients.FindWithLicenses(ctx, c.ID); len(view.Licenses) != 1 {
		t.Fatal("warmup view missing license")
	}

	ok, err := h.licenses.Delete(ctx, l.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}

	view, err := h.clients.FindWithLicenses(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Licenses) != 0 {
		t.Errorf("view after license delete has %d licences, want 0", len(view.Licenses))
	}
}

func TestLicensesByClientAndProduct(t *testing.T) {
	h := newRepoHarness(t)
	ctx := context.Background()

	c := h.seedClient(t, "900123")
	p := h.seedProduct(t, "trendfx")
	other := h.seedProduct(t, "scalper")

	l, err := h.licenses.Create(ctx, &licensing.License{ClientID: c.ID, ProductID: p.ID, ShopID: 1})
	if err != nil {
		t.Fatal(err)
	}

	got, err := h.licenses.FindByClientAndProduct(ctx, c.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != l.ID {
		t.Errorf("FindByClientAndProduct = %+v", got)
	}

	// The pair lookup is exact: a different product yields nothing.
	got, err = h.licenses.FindByClientAndProduct(ctx, c.ID, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("unexpected license for other product: %+v", got)
	}

	all, err := h.licenses.FindByClient(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("FindByClient = %d rows, want 1", len(all))
	}
}
