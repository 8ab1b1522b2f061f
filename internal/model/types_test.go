package model

import (
	"encoding/json"
	"testing"
)

func TestLocationBatchKeepsRecordsWithBadCoordinates(t *testing.T) {
	var locs []LocationRecord
	err := json.Unmarshal([]byte(`[
		{"slug":"miami","name":"Miami","latitude":"25.7617","longitude":-80.1918},
		{"slug":"tampa","city":"Tampa","latitude":"27.9 N","longitude":"-82.4572"},
		{"slug":"ghost","name":"Ghost","latitude":null,"longitude":"west"}
	]`), &locs)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(locs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(locs))
	}
	if !locs[0].HasCoordinates() || *locs[0].Longitude != -80.1918 {
		t.Errorf("miami should keep its coordinates: %+v", locs[0])
	}
	if locs[1].Name != "Tampa" || locs[1].Latitude != nil || locs[1].Longitude == nil || *locs[1].Longitude != -82.4572 {
		t.Errorf("tampa should lose only its latitude: %+v", locs[1])
	}
	if locs[2].Latitude != nil || locs[2].Longitude != nil {
		t.Errorf("ghost should have no coordinates: %+v", locs[2])
	}
}

func TestProviderBatchKeepsEntriesWithBadCoordinates(t *testing.T) {
	var entries []Provider
	err := json.Unmarshal([]byte(`[
		{"id":12,"name":"Miami Aerial Services","latitude":"25.7617","longitude":"-80.1918"},
		{"id":"13","name":"Tampa Drones","latitude":"n/a","longitude":""}
	]`), &entries)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "12" || entries[1].ID != "13" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].Latitude != nil || entries[1].Longitude != nil {
		t.Errorf("bad coordinates should be unset: %+v", entries[1])
	}
}

func TestParseCoordinate(t *testing.T) {
	for raw, want := range map[string]float64{`25.5`: 25.5, `"-80.1"`: -80.1, `" 3 "`: 3} {
		v, err := ParseCoordinate(json.RawMessage(raw))
		if err != nil || v == nil || *v != want {
			t.Errorf("ParseCoordinate(%s) = %v, %v", raw, v, err)
		}
	}
	for _, raw := range []string{``, `null`, `""`} {
		if v, err := ParseCoordinate(json.RawMessage(raw)); v != nil || err != nil {
			t.Errorf("ParseCoordinate(%q) should be unset, got %v, %v", raw, v, err)
		}
	}
	if _, err := ParseCoordinate(json.RawMessage(`"27.9 N"`)); err == nil {
		t.Error("expected error for malformed coordinate")
	}
}
