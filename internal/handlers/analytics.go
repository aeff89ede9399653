package handlers

import "github.com/ciphera-net/website/internal/platform/config"

// Analytics holds client instrumentation configuration surfaced to templates.
type Analytics struct {
	PulseDomain    string // site id registered with Pulse
	PulseScriptURL string
	Debug          bool
}

// Enabled reports whether the Pulse script should be emitted.
func (a Analytics) Enabled() bool {
	return a.PulseDomain != "" && a.PulseScriptURL != ""
}

// AnalyticsFromConfig builds Analytics from the loaded configuration.
func AnalyticsFromConfig(cfg config.Config) Analytics {
	return Analytics{
		PulseDomain:    cfg.Telemetry.PulseDomain,
		PulseScriptURL: cfg.Telemetry.PulseScriptURL,
		Debug:          cfg.Site.DevMode,
	}
}
