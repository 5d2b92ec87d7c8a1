package normalizer

import "lookout/internal/lookup/adapters"

// mapping lists dot-paths into a source payload. A "*" segment expands over
// every element of a list or every value of an object. The first path that
// yields a value wins for DisplayName and Carrier; Location joins every path
// that yields a value.
type mapping struct {
	name     []string
	carrier  []string
	location []string
	breaches []string
	// handles maps a platform to a path holding its existence flag.
	handles map[string]string
	// handleList is a path whose values are platform names that exist.
	handleList string
}

var mappings = map[string]mapping{
	adapters.KindTruecaller.String(): {
		name:     []string{"data.0.name"},
		carrier:  []string{"data.0.phones.0.carrier"},
		location: []string{"data.0.addresses.0.city", "data.0.addresses.0.countryCode"},
	},
	adapters.KindInstagram.String(): {
		handles: map[string]string{"instagram": "instagram_found"},
	},
	adapters.KindSnapchat.String(): {
		handles: map[string]string{"snapchat": "snapchat_found"},
	},
	adapters.KindIPQualityScore.String(): {
		name:     []string{"name"},
		carrier:  []string{"carrier"},
		location: []string{"city", "region", "country"},
	},
	adapters.KindMicrosoftPhone.String(): {
		handles: map[string]string{"microsoft": "microsoft_found"},
	},
	adapters.KindDataBreach.String(): {
		breaches: []string{"databases.*.name"},
	},
	adapters.KindMessengerPresence.String(): {
		name:     []string{"name"},
		carrier:  []string{"carrier"},
		location: []string{"country"},
		handles: map[string]string{
			"telegram": "telegram_found",
			"whatsapp": "whatsapp_found",
		},
	},
	adapters.KindPeopleIndex.String(): {
		name:     []string{"user_profile.name"},
		carrier:  []string{"user_profile.carrier"},
		location: []string{"user_profile.city", "user_profile.state"},
		breaches: []string{"user_profile.sources.*"},
	},
	adapters.KindIndonesiaInvestigate.String(): {
		name:     []string{"profile.name"},
		carrier:  []string{"profile.operator"},
		location: []string{"profile.city", "profile.province"},
		breaches: []string{"data_breaches.databases.*.name"},
	},
	adapters.KindOSINTIndustries.String(): {
		name:       []string{"modules.*.name"},
		location:   []string{"modules.*.location"},
		handleList: "modules.*.module",
	},
	adapters.KindHIBP.String(): {
		breaches: []string{"breaches.*.Name"},
	},
}
