package adapters

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"lookout/internal/lookup/identifier"
	"lookout/internal/platform/config"
)

const (
	truecallerURL      = "https://truecaller4.p.rapidapi.com"
	instagramURL       = "https://instagram-checker.p.rapidapi.com"
	snapchatURL        = "https://snapchat-checker.p.rapidapi.com"
	ipqsURL            = "https://www.ipqualityscore.com"
	microsoftPhoneURL  = "https://ms-roan-chi.vercel.app"
	acelogicURL        = "https://api.acelogic.cloud"
	osintIndustriesURL = "https://api.osint.industries"
	hibpURL            = "https://haveibeenpwned.com"
)

// NewCatalog builds one HTTP adapter per known kind from configuration.
// Adapters without credentials are still registered and report
// ErrNotConfigured when invoked.
func NewCatalog(cfg config.Providers, client Doer) ([]Adapter, error) {
	endpoints := Endpoints(cfg)
	out := make([]Adapter, 0, len(endpoints))
	for _, ep := range endpoints {
		a, err := NewHTTPAdapter(ep, client)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Endpoints returns the endpoint table for every known kind.
func Endpoints(cfg config.Providers) []Endpoint {
	base := func(def string) string {
		if cfg.BaseURLOverride != "" {
			return strings.TrimRight(cfg.BaseURLOverride, "/")
		}
		return strings.TrimRight(def, "/")
	}
	rapid := func(host, key string) map[string]string {
		return map[string]string{
			"X-RapidAPI-Key":  key,
			"X-RapidAPI-Host": strings.TrimPrefix(host, "https://"),
		}
	}
	plusDigits := func(id string) map[string]string {
		return map[string]string{"input": "+" + identifier.Digits(id)}
	}

	return []Endpoint{
		{
			Kind: KindTruecaller,
			URL: func(id string) string {
				return fmt.Sprintf("%s/api/v1/getDetails?phone=%s&countryCode=US", base(truecallerURL), identifier.Digits(id))
			},
			Headers:    rapid(truecallerURL, cfg.TruecallerAPIKey()),
			Configured: cfg.TruecallerAPIKey() != "",
			Parse:      parseTruecaller,
		},
		{
			Kind:       KindInstagram,
			Method:     http.MethodPost,
			URL:        func(string) string { return base(instagramURL) + "/check" },
			Body:       func(id string) any { return plusDigits(id) },
			Headers:    rapid(instagramURL, cfg.RapidAPIKey),
			Configured: cfg.RapidAPIKey != "",
			Parse:      parsePresence(KindInstagram, "instagram_found"),
		},
		{
			Kind:       KindSnapchat,
			Method:     http.MethodPost,
			URL:        func(string) string { return base(snapchatURL) + "/check" },
			Body:       func(id string) any { return plusDigits(id) },
			Headers:    rapid(snapchatURL, cfg.RapidAPIKey),
			Configured: cfg.RapidAPIKey != "",
			Parse:      parsePresence(KindSnapchat, "snapchat_found"),
		},
		{
			Kind: KindIPQualityScore,
			URL: func(id string) string {
				return fmt.Sprintf("%s/api/json/phone/%s/%s", base(ipqsURL), url.PathEscape(cfg.IPQSKey), identifier.Digits(id))
			},
			Configured: cfg.IPQSKey != "",
			Parse:      parseIPQS,
		},
		{
			Kind: KindMicrosoftPhone,
			URL: func(id string) string {
				return base(microsoftPhoneURL) + "/api/check/phone?value=" + url.QueryEscape("+"+identifier.Digits(id))
			},
			Configured: true,
			Parse:      parseMicrosoftPhone,
		},
		{
			Kind: KindDataBreach,
			URL: func(id string) string {
				return base(cfg.DataBreachURL) + "/api/v1/search?phone=" + url.QueryEscape(identifier.Digits(id))
			},
			Configured: cfg.DataBreachURL != "" || cfg.BaseURLOverride != "",
			Parse:      parseDataBreach,
		},
		{
			Kind:       KindMessengerPresence,
			Method:     http.MethodPost,
			URL:        func(string) string { return base(acelogicURL) + "/api/truecaller" },
			Body:       func(id string) any { return map[string]string{"phone": "+" + identifier.Digits(id)} },
			Headers:    map[string]string{"x-api-key": cfg.AcelogicKey},
			Configured: cfg.AcelogicKey != "",
			Parse:      parseMessengerPresence,
		},
		{
			Kind: KindPeopleIndex,
			URL: func(id string) string {
				return base(cfg.PeopleIndexURL) + "/api/profile?phone=" + url.QueryEscape("+"+identifier.Digits(id))
			},
			Configured: cfg.PeopleIndexURL != "" || cfg.BaseURLOverride != "",
			Parse:      parsePeopleIndex,
		},
		{
			Kind: KindIndonesiaInvestigate,
			URL: func(id string) string {
				return base(cfg.IndonesiaURL) + "/api/profile?phone=" + url.QueryEscape("+"+identifier.Digits(id)) + "&country_code=ID"
			},
			Configured: cfg.IndonesiaURL != "" || cfg.BaseURLOverride != "",
			Parse:      parseIndonesia,
		},
		{
			Kind: KindOSINTIndustries,
			URL: func(id string) string {
				return base(osintIndustriesURL) + "/v2/request?type=email&query=" + url.QueryEscape(id)
			},
			Headers:    map[string]string{"api-key": cfg.OSINTIndustriesKey},
			Configured: cfg.OSINTIndustriesKey != "",
			Parse:      parseOSINTIndustries,
		},
		{
			Kind: KindHIBP,
			URL: func(id string) string {
				return base(hibpURL) + "/api/v3/breachedaccount/" + url.PathEscape(id) + "?truncateResponse=false"
			},
			Headers:    map[string]string{"hibp-api-key": cfg.HIBPKey, "User-Agent": "lookout"},
			Configured: cfg.HIBPKey != "",
			Parse:      parseHIBP,
		},
	}
}
