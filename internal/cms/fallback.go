package cms

import "time"

func date(v string) time.Time {
	t, _ := time.Parse("2006-01-02", v)
	return t
}

// fallbackPosts keeps the blog index populated when no markdown exists for a
// post yet.
func fallbackPosts() []Post {
	return []Post{
		{
			Slug:        "understanding-zero-knowledge-encryption",
			Title:       "Understanding Zero-Knowledge Encryption",
			Excerpt:     "A deep dive into how zero-knowledge encryption works and why it matters for your privacy.",
			Date:        date("2026-02-01"),
			Category:    "Security",
			ReadMinutes: 8,
		},
		{
			Slug:        "why-swiss-infrastructure",
			Title:       "Why We Chose Swiss Infrastructure",
			Excerpt:     "Exploring Swiss data protection laws and why Switzerland is the ideal location for privacy-first services.",
			Date:        date("2026-01-28"),
			Category:    "Privacy",
			ReadMinutes: 6,
		},
		{
			Slug:        "building-privacy-first-analytics",
			Title:       "Building Privacy-First Analytics with Pulse",
			Excerpt:     "How we built Pulse to provide powerful analytics while respecting user privacy.",
			Date:        date("2026-01-20"),
			Category:    "Product",
			ReadMinutes: 10,
		},
		{
			Slug:        "secure-file-sharing-best-practices",
			Title:       "Secure File Sharing: Best Practices",
			Excerpt:     "Essential security practices for sharing sensitive files in personal and business contexts.",
			Date:        date("2026-01-15"),
			Category:    "Security",
			ReadMinutes: 7,
		},
		{
			Slug:        "gdpr-compliance-guide",
			Title:       "GDPR Compliance for Developers",
			Excerpt:     "A practical guide to building GDPR-compliant applications with privacy by design.",
			Date:        date("2026-01-10"),
			Category:    "Compliance",
			ReadMinutes: 12,
		},
		{
			Slug:        "open-source-security",
			Title:       "The Benefits of Open Source Security",
			Excerpt:     "Why open-sourcing our security implementation strengthens trust and improves our products.",
			Date:        date("2026-01-05"),
			Category:    "Open Source",
			ReadMinutes: 5,
		},
	}
}
