package store

// Settings holds event branding and connection settings.
type Settings struct {
	EventTitle   string `json:"eventTitle" yaml:"eventTitle"`
	Subtitle     string `json:"subtitle" yaml:"subtitle"`
	WelcomeTitle string `json:"welcomeTitle" yaml:"welcomeTitle"`
	WelcomeBody  string `json:"welcomeBody" yaml:"welcomeBody"`
	LogoURL      string `json:"logoUrl" yaml:"logoUrl"`
	// AdminPass is the local admin passcode; the remote store keeps its own.
	AdminPass string `json:"adminPass" yaml:"adminPass"`
	RemoteURL string `json:"remoteUrl,omitempty" yaml:"remoteUrl"`
}

// DefaultLogoURL is shown when no logo is configured.
const DefaultLogoURL = "https://dummyimage.com/128x128/1f2a52/ffffff&text=SE"

// DefaultSettings returns the out-of-the-box event settings.
func DefaultSettings() Settings {
	return Settings{
		EventTitle:   "Think Big Science Carnival 2025",
		Subtitle:     "Project Evaluation System",
		WelcomeTitle: "Welcome to Think Big Science Carnival 2025",
		WelcomeBody:  "Please read the instructions. Click below to enter your basic details and start evaluating assigned projects.",
		LogoURL:      DefaultLogoURL,
		AdminPass:    "admin123",
	}
}

// WithDefaultBranding restores branding fields, keeping credentials and the
// remote endpoint.
func (s Settings) WithDefaultBranding() Settings {
	d := DefaultSettings()
	d.AdminPass = s.AdminPass
	d.RemoteURL = s.RemoteURL
	return d
}

// SettingsPatch updates a subset of settings; nil fields are left alone.
type SettingsPatch struct {
	EventTitle   *string `json:"eventTitle,omitempty"`
	Subtitle     *string `json:"subtitle,omitempty"`
	WelcomeTitle *string `json:"welcomeTitle,omitempty"`
	WelcomeBody  *string `json:"welcomeBody,omitempty"`
	LogoURL      *string `json:"logoUrl,omitempty"`
	AdminPass    *string `json:"adminPass,omitempty"`
	RemoteURL    *string `json:"remoteUrl,omitempty"`
}

// Apply returns s with the patch applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&s.EventTitle, p.EventTitle)
	set(&s.Subtitle, p.Subtitle)
	set(&s.WelcomeTitle, p.WelcomeTitle)
	set(&s.WelcomeBody, p.WelcomeBody)
	set(&s.LogoURL, p.LogoURL)
	set(&s.AdminPass, p.AdminPass)
	set(&s.RemoteURL, p.RemoteURL)
	return s
}
