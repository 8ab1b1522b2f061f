package binder

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/umarjalal00/location-providers/internal/model"
	"github.com/umarjalal00/location-providers/internal/svgmap"
)

const usa = `<svg viewBox="0 0 810 600">
  <defs><linearGradient id="grad"/></defs>
  <rect id="state-TX" x="300" y="350" width="150" height="120" style="fill:#000;stroke-width:1"/>
  <rect data-slug="florida" x="600" y="450" width="90" height="100"/>
  <rect id="CA" x="20" y="200" width="100" height="200"/>
  <rect data-state="RI" x="760" y="120" width="8" height="6"/>
  <rect id="---" x="0" y="0" width="10" height="10"/>
  <path id="texas-panhandle" d=""/>
  <path id="NY" d="M700 80 L760 80 L760 140 Z"/>
  <path id="ny-islands" data-slug="new_york" d="M770 140 l10 0 l0 10 z"/>
</svg>`

var palette = Palette{Active: "#a", Upcoming: "#u", Available: "#v", Selected: "#s"}

func bindSample(t *testing.T, records map[string]model.RegionRecord, onSelect func(string)) (*svgmap.Map, *Bindings) {
	t.Helper()
	m, err := svgmap.Parse(usa)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	b := Bind(context.Background(), m, records, Options{Palette: palette, MinLabelSize: 20, OnSelect: onSelect})
	return m, b
}

func TestClassify(t *testing.T) {
	tests := []struct {
		rec  model.RegionRecord
		want model.Tier
	}{
		{model.RegionRecord{Count: 0, IsUpcoming: false}, model.TierAvailable},
		{model.RegionRecord{Count: 3, IsUpcoming: false}, model.TierActive},
		{model.RegionRecord{Count: 3, IsUpcoming: true}, model.TierActive},
		{model.RegionRecord{Count: 0, IsUpcoming: true}, model.TierUpcoming},
	}
	for _, tt := range tests {
		if got := Classify(tt.rec); got != tt.want {
			t.Errorf("Classify(%+v) = %s, want %s", tt.rec, got, tt.want)
		}
	}
}

func TestBuildRecords(t *testing.T) {
	counts := []model.RegionCount{
		{Slug: "texas", Count: 2},
		{Slug: "state-tx", Count: 1},
		{Slug: "florida", Count: 0},
		{Slug: "", Count: 9},
	}
	recs := BuildRecords(counts, []string{"fl", "georgia"})

	if got := recs["texas"]; got.Count != 3 || got.IsUpcoming || got.DisplayAbbreviation != "TX" {
		t.Errorf("unexpected texas record %+v", got)
	}
	if got := recs["florida"]; got.Count != 0 || !got.IsUpcoming {
		t.Errorf("unexpected florida record %+v", got)
	}
	if got := recs["georgia"]; !got.IsUpcoming || got.DisplayAbbreviation != "GA" {
		t.Errorf("unexpected georgia record %+v", got)
	}
	if len(recs) != 3 {
		t.Errorf("expected 3 records, got %d", len(recs))
	}
}

func TestBindTiersAndStyles(t *testing.T) {
	recs := BuildRecords([]model.RegionCount{{Slug: "texas", Count: 3}}, []string{"florida", "texas"})
	m, b := bindSample(t, recs, nil)

	tests := map[string]model.Tier{
		"texas":      model.TierActive,
		"florida":    model.TierUpcoming,
		"california": model.TierAvailable,
	}
	for key, want := range tests {
		r, ok := b.Region(key)
		if !ok {
			t.Errorf("%s not bound", key)
			continue
		}
		if r.Tier != want {
			t.Errorf("%s: tier %s, want %s", key, r.Tier, want)
		}
	}

	tx := m.Root().Find("#state-TX")
	if got := tx.AttrOr("style", ""); got != "fill:#a;stroke-width:1;cursor:pointer" {
		t.Errorf("unexpected texas style %q", got)
	}
	if tx.AttrOr("data-tier", "") != "active" || !tx.HasClass("region-active") {
		t.Error("texas should carry active tier markers")
	}

	if m.Root().Find("#grad").AttrOr("data-region-key", "") != "" {
		t.Error("defs content must not be bound")
	}
	if m.Root().Find(`[id="---"]`).AttrOr("data-region-key", "") != "" {
		t.Error("empty keys must be skipped")
	}
}

func TestBindGroupsDuplicateKeys(t *testing.T) {
	_, b := bindSample(t, nil, nil)

	keys := map[string]int{}
	for _, r := range b.Regions() {
		keys[r.Key]++
	}
	for k, n := range keys {
		if n != 1 {
			t.Errorf("key %s bound %d times", k, n)
		}
	}
	if r, ok := b.Region("new-york"); !ok || r.elems.Length() != 2 {
		t.Errorf("expected both new york elements grouped, got %+v", r)
	}
}

func TestBindLabels(t *testing.T) {
	m, b := bindSample(t, nil, nil)

	labels := m.Root().Find("[" + svgmap.LabelAttr + "]")
	byKey := map[string]string{}
	labels.Each(func(_ int, s *goquery.Selection) {
		byKey[s.AttrOr(svgmap.LabelAttr, "")] = s.Text()
	})

	if byKey["texas"] != "TX" {
		t.Errorf("expected TX label, got %q", byKey["texas"])
	}
	if _, ok := byKey["rhode-island"]; ok {
		t.Error("tiny region should not be labeled")
	}
	if _, ok := byKey["texas-panhandle"]; ok {
		t.Error("unmeasurable region should not be labeled")
	}
	if r, _ := b.Region("texas"); !r.Labeled {
		t.Error("texas region should be marked labeled")
	}

	tx := labels.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr(svgmap.LabelAttr, "") == "texas"
	})
	if tx.AttrOr("x", "") != "375" || tx.AttrOr("y", "") != "410" || tx.AttrOr("font-size", "") != "20px" {
		t.Errorf("unexpected texas label attrs %v", tx.Nodes[0].Attr)
	}
}

func TestFontSize(t *testing.T) {
	for w, want := range map[float64]int{3: 10, 45: 15, 600: 20} {
		if got := FontSize(w); got != want {
			t.Errorf("FontSize(%v) = %d, want %d", w, got, want)
		}
	}
}

func TestClickKeepsSingleSelection(t *testing.T) {
	var notified []string
	m, b := bindSample(t, nil, func(key string) { notified = append(notified, key) })

	if err := b.Click("TX"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if err := b.Click("fl"); err != nil {
		t.Fatalf("Click: %v", err)
	}

	selected := 0
	for _, r := range b.Regions() {
		if r.State == model.Selected {
			selected++
			if r.Key != "florida" {
				t.Errorf("unexpected selected region %s", r.Key)
			}
		}
	}
	if selected != 1 {
		t.Errorf("expected exactly one selected region, got %d", selected)
	}
	if b.Selected() != "florida" {
		t.Errorf("Selected() = %q", b.Selected())
	}
	if !strings.Contains(m.Root().Find("#state-TX").AttrOr("style", ""), "stroke:none") {
		t.Error("texas stroke should be cleared")
	}
	if strings.Join(notified, ",") != "texas,florida" {
		t.Errorf("unexpected notifications %v", notified)
	}

	if err := b.Click("!!"); err != ErrUnknownRegion {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
}

func TestSelectStylesWithoutNotifying(t *testing.T) {
	called := false
	_, b := bindSample(t, nil, func(string) { called = true })

	key, err := b.Select("NY")
	if err != nil || key != "new-york" {
		t.Fatalf("Select: %q, %v", key, err)
	}
	if called {
		t.Error("Select must not notify OnSelect")
	}
	markup, err := b.Markup()
	if err != nil {
		t.Fatalf("Markup: %v", err)
	}
	if !strings.Contains(markup, "stroke:#s") {
		t.Error("selection stroke missing from markup")
	}
}

func TestHoverLeave(t *testing.T) {
	_, b := bindSample(t, nil, nil)

	b.Hover("texas")
	if r, _ := b.Region("texas"); r.State != model.Hovered {
		t.Errorf("expected hovered, got %s", r.State)
	}
	b.Leave("texas")
	if r, _ := b.Region("texas"); r.State != model.Unselected {
		t.Errorf("expected unselected, got %s", r.State)
	}

	b.Click("texas")
	b.Hover("texas")
	if r, _ := b.Region("texas"); r.State != model.Selected {
		t.Errorf("hover must not clear selection, got %s", r.State)
	}
}
