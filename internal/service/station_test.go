package service

import (
	"testing"
)

func TestStationCRUD(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	svc := NewStationService(t.TempDir(), bus)

	created, err := svc.Create(Station{Name: "Berlin Mitte", Lon: 13.405, Lat: 52.52, Active: true})
	if err != nil {
		t.Fatal("create:", err)
	}
	if created.ID != "berlin_mitte" {
		t.Fatalf("id=%q, want berlin_mitte", created.ID)
	}

	if ev := <-ch; ev.Resource != "stations" || ev.Action != "created" || ev.ID != created.ID {
		t.Fatalf("event=%+v, want stations/created/%s", ev, created.ID)
	}

	got, ok := svc.Get(created.ID)
	if !ok || got.Name != "Berlin Mitte" {
		t.Fatalf("get=%+v ok=%v", got, ok)
	}

	if _, err := svc.Create(Station{ID: created.ID, Name: "Duplicate"}); err == nil {
		t.Fatal("duplicate create succeeded")
	}

	updated, err := svc.Update(created.ID, Station{Name: "Berlin Mitte 2", Lon: 13.4, Lat: 52.5})
	if err != nil {
		t.Fatal("update:", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("update changed id to %q", updated.ID)
	}

	if err := svc.Delete(created.ID); err != nil {
		t.Fatal("delete:", err)
	}
	if err := svc.Delete(created.ID); err == nil {
		t.Fatal("second delete succeeded")
	}
}

func TestStationPersistence(t *testing.T) {
	dir := t.TempDir()
	first := NewStationService(dir, nil)
	if _, err := first.Create(Station{Name: "Hamburg Nord", Lon: 10.0, Lat: 53.6}); err != nil {
		t.Fatal(err)
	}

	second := NewStationService(dir, nil)
	if _, ok := second.Get("hamburg_nord"); !ok {
		t.Fatal("station not reloaded from disk")
	}
}

func TestOverlayValidation(t *testing.T) {
	svc := NewOverlayService(t.TempDir(), nil)

	if _, err := svc.Create(Overlay{Name: "Bad", GeomType: "polygon", Opacity: 0.5}); err == nil {
		t.Fatal("missing pollutant accepted")
	}
	if _, err := svc.Create(Overlay{Name: "Bad", Pollutant: "no2", GeomType: "hexagon", Opacity: 0.5}); err == nil {
		t.Fatal("bad geometry type accepted")
	}
	if _, err := svc.Create(Overlay{Name: "Bad", Pollutant: "no2", GeomType: "polygon", Opacity: 1.5}); err == nil {
		t.Fatal("out-of-range opacity accepted")
	}

	created, err := svc.Create(Overlay{Name: "NO2 Satellite", Pollutant: "no2", GeomType: "polygon", Opacity: 0.7})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID != "no2_satellite" {
		t.Fatalf("id=%q, want no2_satellite", created.ID)
	}
}
