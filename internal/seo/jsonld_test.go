package seo

import (
	"encoding/json"
	"testing"
)

func TestFAQPage(t *testing.T) {
	out := JSON(FAQPage([]QA{{Question: "Is Drop free?", Answer: " Yes. \n"}}))
	var doc struct {
		Type       string `json:"@type"`
		MainEntity []struct {
			Name   string `json:"name"`
			Answer struct {
				Text string `json:"text"`
			} `json:"acceptedAnswer"`
		} `json:"mainEntity"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Type != "FAQPage" || len(doc.MainEntity) != 1 || doc.MainEntity[0].Answer.Text != "Yes." {
		t.Fatalf("unexpected document %s", out)
	}
}

func TestContactPageOrdersContactPoints(t *testing.T) {
	page := ContactPage("https://ciphera.net/contact", "Ciphera", map[string]string{
		"security": "security@ciphera.net",
		"business": "business@ciphera.net",
	})
	points := page["mainEntity"].(map[string]any)["contactPoint"].([]map[string]any)
	if points[0]["contactType"] != "business" || points[1]["contactType"] != "security" {
		t.Fatalf("unexpected order %v", points)
	}
}

func TestBreadcrumbListPositions(t *testing.T) {
	list := BreadcrumbList([]BreadcrumbItem{{Name: "Home", Item: "/"}, {Name: "Blog", Item: "/blog"}})
	items := list["itemListElement"].([]map[string]any)
	if items[1]["position"] != 2 {
		t.Fatalf("unexpected position %v", items[1]["position"])
	}
}
