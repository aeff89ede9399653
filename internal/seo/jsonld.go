package seo

import (
	"encoding/json"
	"strings"
)

const schemaContext = "https://schema.org"

// JSON marshals v to a compact JSON string, "" on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Organization returns an Organization schema.
func Organization(name, url, logoURL string, sameAs ...string) map[string]any {
	m := map[string]any{
		"@context": schemaContext,
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	if len(sameAs) > 0 {
		m["sameAs"] = sameAs
	}
	return m
}

// WebSite returns a WebSite schema.
func WebSite(name, url string) map[string]any {
	m := map[string]any{
		"@context": schemaContext,
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	return m
}

// BreadcrumbItem maps a name to an absolute URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds a schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        schemaContext,
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// Article returns an Article schema.
func Article(headline, url, description, authorName, datePublished string) map[string]any {
	m := map[string]any{
		"@context": schemaContext,
		"@type":    "Article",
		"headline": headline,
	}
	if url != "" {
		m["url"] = url
	}
	if description != "" {
		m["description"] = description
	}
	if authorName != "" {
		m["author"] = map[string]any{"@type": "Organization", "name": authorName}
	}
	if datePublished != "" {
		m["datePublished"] = datePublished
	}
	return m
}

// QA is a question with its answer.
type QA struct {
	Question string
	Answer   string
}

// FAQPage returns a FAQPage schema.
func FAQPage(items []QA) map[string]any {
	entities := make([]map[string]any, 0, len(items))
	for _, it := range items {
		entities = append(entities, map[string]any{
			"@type": "Question",
			"name":  it.Question,
			"acceptedAnswer": map[string]any{
				"@type": "Answer",
				"text":  strings.TrimSpace(it.Answer),
			},
		})
	}
	return map[string]any{
		"@context":   schemaContext,
		"@type":      "FAQPage",
		"mainEntity": entities,
	}
}

// ContactPage returns a ContactPage schema with one contact point per
// mailbox.
func ContactPage(url, orgName string, mailboxes map[string]string) map[string]any {
	points := make([]map[string]any, 0, len(mailboxes))
	for _, contactType := range sortedKeys(mailboxes) {
		points = append(points, map[string]any{
			"@type":       "ContactPoint",
			"contactType": contactType,
			"email":       mailboxes[contactType],
		})
	}
	return map[string]any{
		"@context": schemaContext,
		"@type":    "ContactPage",
		"url":      url,
		"mainEntity": map[string]any{
			"@type":        "Organization",
			"name":         orgName,
			"contactPoint": points,
		},
	}
}

// SoftwareApplication returns a SoftwareApplication schema.
func SoftwareApplication(name, description, url, category string) map[string]any {
	m := map[string]any{
		"@context":            schemaContext,
		"@type":               "SoftwareApplication",
		"name":                name,
		"description":         description,
		"applicationCategory": category,
		"operatingSystem":     "Web",
		"offers": map[string]any{
			"@type":         "Offer",
			"price":         "0",
			"priceCurrency": "EUR",
		},
	}
	if url != "" {
		m["url"] = url
	}
	return m
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
