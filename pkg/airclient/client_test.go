//go:build integration

// Integration test for the airmap client.
// Requires a running server: task run
//
// Run: go test -tags=integration ./pkg/airclient/
package airclient_test

import (
	"context"
	"os"
	"testing"

	"github.com/airsense/airmap/pkg/airclient"
)

func baseURL() string {
	if u := os.Getenv("AIRMAP_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8090"
}

func client() *airclient.Client {
	return airclient.New(baseURL())
}

func TestHealth(t *testing.T) {
	_, body, err := client().Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Fatalf("status=%q, want ok", body.Status)
	}
}

func TestGetInfo(t *testing.T) {
	_, body, err := client().GetInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if body.Name != "airmap" {
		t.Fatalf("name=%q, want airmap", body.Name)
	}
}

func TestListRegions(t *testing.T) {
	_, _, err := client().ListRegions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
}

func TestStationCRUD(t *testing.T) {
	c := client()
	ctx := context.Background()

	_, _, err := c.ListStations(ctx)
	if err != nil {
		t.Fatal("list:", err)
	}

	_, created, err := c.CreateStation(ctx, airclient.Station{
		Name:       "Integration Test",
		Lon:        13.4,
		Lat:        52.5,
		Pollutants: []string{"no2"},
		Active:     true,
	})
	if err != nil {
		t.Fatal("create:", err)
	}

	_, station, err := c.GetStation(ctx, created.ID)
	if err != nil {
		t.Fatal("get:", err)
	}
	if station.Name != "Integration Test" {
		t.Fatalf("name=%q, want Integration Test", station.Name)
	}

	_, _, err = c.DeleteStation(ctx, created.ID)
	if err != nil {
		t.Fatal("delete:", err)
	}
}

func TestOverlayCRUD(t *testing.T) {
	c := client()
	ctx := context.Background()

	_, created, err := c.CreateOverlay(ctx, airclient.Overlay{
		Name:      "Integration Test",
		Pollutant: "no2",
		GeomType:  "polygon",
		Opacity:   0.5,
	})
	if err != nil {
		t.Fatal("create:", err)
	}

	_, _, err = c.SetOverlayVisibility(ctx, created.ID, false)
	if err != nil {
		t.Fatal("visibility:", err)
	}

	_, _, err = c.DeleteOverlay(ctx, created.ID)
	if err != nil {
		t.Fatal("delete:", err)
	}
}

func TestNavigate(t *testing.T) {
	_, body, err := client().Navigate(context.Background(), 13.4, 52.5, 11)
	if err != nil {
		t.Fatal(err)
	}
	if body.Message == "" {
		t.Fatal("empty response message")
	}
}
