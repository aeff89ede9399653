// Package catalog holds the static product, comparison and company data
// rendered by the marketing pages.
package catalog

import "strings"

// Product is one entry of the Ciphera suite.
type Product struct {
	Slug        string
	Name        string
	Tagline     string
	Description string
	Features    []string
	URL         string
	Category    string
	Available   bool
}

// External reports whether the product links to its own site.
func (p Product) External() bool {
	return strings.HasPrefix(p.URL, "https://")
}

var products = []Product{
	{
		Slug:        "drop",
		Name:        "Drop",
		Tagline:     "Secure file sharing",
		Description: "Share files securely with end-to-end encryption. Your files are encrypted before they leave your device.",
		Features:    []string{"AES-256-GCM encryption", "Zero-knowledge storage", "Password protection", "Expiring links"},
		URL:         "https://drop.ciphera.net",
		Category:    "SecurityApplication",
		Available:   true,
	},
	{
		Slug:        "pulse",
		Name:        "Pulse",
		Tagline:     "Privacy-first analytics & replay",
		Description: "Real-time user insights and session replay without compromising user privacy. Visualize user journeys and debug issues instantly.",
		Features:    []string{"Session replay", "Geographic heatmaps", "Real-time traffic monitoring", "Privacy-preserving data collection"},
		URL:         "https://pulse.ciphera.net",
		Category:    "BusinessApplication",
		Available:   true,
	},
	{
		Slug:        "auth",
		Name:        "Ciphera Auth",
		Tagline:     "Identity provider",
		Description: "Secure authentication for the Ciphera ecosystem with OAuth2, JWT, and advanced security features.",
		Features:    []string{"Double-hashed passwords", "Two-factor auth", "Account lockout", "Session management"},
		Category:    "SecurityApplication",
		Available:   true,
	},
	{
		Slug:        "captcha",
		Name:        "Ciphera Captcha",
		Tagline:     "Bot protection",
		Description: "Protect your applications from bots and automated abuse with visual and proof-of-work challenges.",
		Features:    []string{"Visual captchas", "Proof-of-Work", "Stateless verification", "JWT tokens"},
		Category:    "SecurityApplication",
		Available:   true,
	},
	{
		Slug:        "relay",
		Name:        "Ciphera Relay",
		Tagline:     "Email infrastructure",
		Description: "Transactional email infrastructure for secure, privacy-first email delivery with TLS encryption.",
		Features:    []string{"TLS encryption", "High deliverability", "SMTP AUTH", "Admin dashboard"},
		Category:    "CommunicationApplication",
		Available:   true,
	},
}

// Products returns every product in display order.
func Products() []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p
		out[i].Features = append([]string(nil), p.Features...)
	}
	return out
}

// FindProduct looks a product up by slug.
func FindProduct(slug string) (Product, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, p := range Products() {
		if p.Slug == slug {
			return p, true
		}
	}
	return Product{}, false
}

// Competitor is a column of the comparison table.
type Competitor struct {
	ID        string
	Name      string
	Highlight bool
}

// Cell is either a yes/no mark or a literal value.
type Cell struct {
	Supported bool
	Value     string
}

// Feature is one comparison row keyed by competitor id.
type Feature struct {
	Name  string
	Cells map[string]Cell
}

// Cell returns the value for competitor id.
func (f Feature) Cell(id string) Cell { return f.Cells[id] }

// FeatureGroup is a titled block of rows.
type FeatureGroup struct {
	Name     string
	Features []Feature
}

// Competitors returns the comparison columns, Ciphera first.
func Competitors() []Competitor {
	return []Competitor{
		{ID: "ciphera", Name: "Ciphera", Highlight: true},
		{ID: "dropbox", Name: "Dropbox"},
		{ID: "gdrive", Name: "Google Drive"},
		{ID: "proton", Name: "Proton Drive"},
		{ID: "tresorit", Name: "Tresorit"},
	}
}

func marks(ciphera, dropbox, gdrive, proton, tresorit bool) map[string]Cell {
	return map[string]Cell{
		"ciphera":  {Supported: ciphera},
		"dropbox":  {Supported: dropbox},
		"gdrive":   {Supported: gdrive},
		"proton":   {Supported: proton},
		"tresorit": {Supported: tresorit},
	}
}

func values(ciphera, dropbox, gdrive, proton, tresorit string) map[string]Cell {
	return map[string]Cell{
		"ciphera":  {Supported: true, Value: ciphera},
		"dropbox":  {Supported: true, Value: dropbox},
		"gdrive":   {Supported: true, Value: gdrive},
		"proton":   {Supported: true, Value: proton},
		"tresorit": {Supported: true, Value: tresorit},
	}
}

// Comparison returns the feature matrix.
func Comparison() []FeatureGroup {
	return []FeatureGroup{
		{Name: "Security & Privacy", Features: []Feature{
			{Name: "Zero-knowledge encryption", Cells: marks(true, false, false, true, true)},
			{Name: "End-to-end encryption", Cells: marks(true, false, false, true, true)},
			{Name: "Client-side encryption", Cells: marks(true, false, false, true, true)},
			{Name: "No tracking/analytics", Cells: marks(true, false, false, true, false)},
			{Name: "Swiss data protection", Cells: marks(true, false, false, true, false)},
		}},
		{Name: "Transparency", Features: []Feature{
			{Name: "Open source client", Cells: marks(true, false, false, true, false)},
			{Name: "Open source server", Cells: marks(true, false, false, false, false)},
			{Name: "Security audits", Cells: marks(true, true, true, true, true)},
			{Name: "Publicly verifiable encryption", Cells: marks(true, false, false, true, false)},
		}},
		{Name: "Features", Features: []Feature{
			{Name: "Password protection", Cells: marks(true, true, false, true, true)},
			{Name: "Expiring links", Cells: marks(true, true, false, true, true)},
			{Name: "File versioning", Cells: marks(false, true, true, true, true)},
			{Name: "Team collaboration", Cells: marks(false, true, true, true, true)},
		}},
		{Name: "Pricing", Features: []Feature{
			{Name: "Free tier available", Cells: marks(true, true, true, true, true)},
			{Name: "Free tier file size (max)", Cells: values("5GB", "2GB", "15GB", "1GB", "5GB")},
			{Name: "Free tier storage", Cells: values("Unlimited", "2GB", "15GB", "5GB", "5GB")},
		}},
	}
}

// Highlight is a titled blurb, optionally with bullet points.
type Highlight struct {
	Title       string
	Description string
	Points      []string
}

// Differentiators returns the blurbs under the comparison table.
func Differentiators() []Highlight {
	return []Highlight{
		{Title: "Fully Open Source", Description: "Both client and server code are open source. Verify our security claims yourself."},
		{Title: "True Zero-Knowledge", Description: "We mathematically cannot access your data. Your encryption keys never leave your device."},
		{Title: "Privacy by Design", Description: "No tracking, no analytics, no data collection. Swiss infrastructure with strong privacy laws."},
	}
}

// CompanyProblems lists the pain points on the companies page.
func CompanyProblems() []Highlight {
	return []Highlight{
		{Title: "Data Breaches", Description: "Your current systems expose sensitive data. One breach could cost millions and destroy customer trust."},
		{Title: "Privacy Violations", Description: "You're collecting more data than necessary, violating GDPR and risking regulatory fines."},
		{Title: "Legacy Systems", Description: "Outdated infrastructure with security vulnerabilities and poor privacy practices."},
	}
}

// CompanySolutions lists how Ciphera addresses those problems.
func CompanySolutions() []Highlight {
	return []Highlight{
		{
			Title:       "Privacy by Design",
			Description: "We help you rebuild your infrastructure with privacy as the foundation, not an afterthought.",
			Points:      []string{"End-to-end encryption for all data", "Zero-knowledge architecture", "Minimal data collection", "GDPR compliance built-in"},
		},
		{
			Title:       "Secure Infrastructure",
			Description: "Replace vulnerable systems with battle-tested, privacy-first alternatives.",
			Points:      []string{"Double-hashed password storage", "OAuth2 and JWT authentication", "Bot protection without tracking", "Secure email infrastructure"},
		},
		{
			Title:       "Open Source & Auditable",
			Description: "Transparency builds trust. Our code is open for inspection and verification.",
			Points:      []string{"Public codebase for security audits", "No vendor lock-in", "Self-hostable solutions", "Community-driven improvements"},
		},
	}
}

// CompanyServices lists the business editions of the products.
func CompanyServices() []Highlight {
	return []Highlight{
		{
			Title:       "Drop for Business",
			Description: "Enterprise file sharing with zero-knowledge encryption. Perfect for secure document sharing, client communications, and internal collaboration.",
			Points:      []string{"End-to-end encrypted file sharing", "Team workspaces", "Admin controls and permissions", "Audit logs", "Custom retention policies", "SSO integration"},
		},
		{
			Title:       "Ciphera Auth",
			Description: "Enterprise identity provider with advanced security features. Replace vulnerable authentication systems with zero-knowledge architecture.",
			Points:      []string{"OAuth2 and SAML support", "Multi-factor authentication", "Account lockout protection", "Session management", "Enterprise SSO", "Custom branding"},
		},
		{
			Title:       "Ciphera Captcha",
			Description: "Bot protection that respects privacy. No tracking, no cookies, just effective protection.",
			Points:      []string{"Privacy-first bot protection", "No user tracking", "Proof-of-Work challenges", "API rate limiting", "Custom difficulty settings", "Analytics-free"},
		},
		{
			Title:       "Ciphera Relay",
			Description: "Transactional email infrastructure for secure, privacy-first email delivery with TLS encryption.",
			Points:      []string{"TLS encryption", "High deliverability", "SMTP AUTH", "Admin dashboard"},
		},
	}
}
