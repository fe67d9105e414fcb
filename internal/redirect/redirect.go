package redirect

import "github.com/avvvet/hotel-concierge/internal/prompts"

// DefaultLinks maps self-service intents to their pages.
func DefaultLinks() map[string]string {
	return map[string]string{
		"rezervasyon_değiştirme": "https://cullinan.com.tr/rezervasyon/değiştir",
		"rezervasyon_iptali":     "https://cullinan.com.tr/rezervasyon/iptal",
		"rezervasyon_durumu":     "https://cullinan.com.tr/rezervasyon/durum",
	}
}

// Redirector answers with a static link for the intent.
type Redirector struct {
	links map[string]string
}

func New(links map[string]string) *Redirector {
	copied := make(map[string]string, len(links))
	for k, v := range links {
		copied[k] = v
	}
	return &Redirector{links: copied}
}

func (r *Redirector) Redirect(intent string) string {
	url, ok := r.links[intent]
	if !ok || url == "" {
		return prompts.RedirectMissing
	}
	return prompts.Redirect(url)
}

// Intents returns the intents that have a link.
func (r *Redirector) Intents() []string {
	out := make([]string, 0, len(r.links))
	for k := range r.links {
		out = append(out, k)
	}
	return out
}
