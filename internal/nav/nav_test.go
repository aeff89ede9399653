package nav

import "testing"

func TestBuildMarksActiveSection(t *testing.T) {
	items := Build("/products/drop")
	var active []string
	for _, it := range items {
		if it.Active {
			active = append(active, it.Href)
		}
	}
	if len(active) != 1 || active[0] != "/products" {
		t.Fatalf("unexpected active items %v", active)
	}
	for _, it := range Build("/productsx") {
		if it.Active {
			t.Fatalf("prefix without boundary must not be active: %s", it.Href)
		}
	}
}

func TestBreadcrumbs(t *testing.T) {
	crumbs := Breadcrumbs("/blog/why-swiss-infrastructure", map[string]string{
		"/blog/why-swiss-infrastructure": "Why We Chose Swiss Infrastructure",
	})
	if len(crumbs) != 3 {
		t.Fatalf("expected 3 crumbs, got %d", len(crumbs))
	}
	if crumbs[0].LabelKey != "nav.home" || crumbs[0].Active {
		t.Fatalf("unexpected home crumb %#v", crumbs[0])
	}
	if crumbs[1].LabelKey != "nav.blog" || crumbs[1].Href != "/blog" {
		t.Fatalf("unexpected section crumb %#v", crumbs[1])
	}
	if crumbs[2].Label != "Why We Chose Swiss Infrastructure" || !crumbs[2].Active {
		t.Fatalf("unexpected leaf crumb %#v", crumbs[2])
	}
}

func TestBreadcrumbsFallbackLabels(t *testing.T) {
	crumbs := Breadcrumbs("/faq", nil)
	if crumbs[1].LabelKey != "nav.faq" || crumbs[1].Label != "Faq" || !crumbs[1].Active {
		t.Fatalf("unexpected crumb %#v", crumbs[1])
	}
	if len(Breadcrumbs("/", nil)) != 1 {
		t.Fatalf("home has a single crumb")
	}
}
