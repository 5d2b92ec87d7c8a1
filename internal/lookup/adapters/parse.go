package adapters

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"lookout/internal/lookup/models"
)

func decodeObject(body []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode json object: %w", err)
	}
	return obj, nil
}

func decodeList(body []byte) ([]any, error) {
	var list []any
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode json list: %w", err)
	}
	return list, nil
}

func found(ok bool) models.LookupStatus {
	if ok {
		return models.LookupFound
	}
	return models.LookupNotFound
}

// truthy interprets the loose booleans providers send: true, "yes", 1, "found".
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "found", "exists", "registered", "valid":
			return true
		}
	}
	return false
}

func nonEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case string:
		return t != ""
	default:
		return true
	}
}

func parseTruecaller(status int, body []byte) (Response, error) {
	if status != http.StatusOK {
		return statusFailure(KindTruecaller, status, body), nil
	}
	data, err := decodeObject(body)
	if err != nil {
		return Response{}, err
	}
	return Ok(KindTruecaller, data, found(nonEmpty(data["data"]))), nil
}

// presenceKeys are the fields account checkers use to signal a hit.
var presenceKeys = []string{"result", "exists", "is_instagram", "has_instagram", "is_snapchat", "has_snapchat", "valid", "found", "instagram", "snapchat", "live"}

func parsePresence(kind Kind, flag string) func(int, []byte) (Response, error) {
	return func(status int, body []byte) (Response, error) {
		if status != http.StatusOK {
			return statusFailure(kind, status, body), nil
		}
		raw, err := decodeObject(body)
		if err != nil {
			return Response{}, err
		}
		hit := raw["status"] == "found"
		for _, k := range presenceKeys {
			if truthy(raw[k]) {
				hit = true
				break
			}
		}
		return Ok(kind, map[string]any{flag: hit, "raw": raw}, found(hit)), nil
	}
}

func parseIPQS(status int, body []byte) (Response, error) {
	if status != http.StatusOK {
		return statusFailure(KindIPQualityScore, status, body), nil
	}
	data, err := decodeObject(body)
	if err != nil {
		return Response{}, err
	}
	if msg, _ := data["message"].(string); strings.Contains(strings.ToLower(msg), "quota") {
		data["quota_exceeded"] = true
		return Ok(KindIPQualityScore, data, models.LookupNotFound), nil
	}
	return Ok(KindIPQualityScore, data, found(truthy(data["valid"]))), nil
}

func parseMicrosoftPhone(status int, body []byte) (Response, error) {
	if status != http.StatusOK {
		return statusFailure(KindMicrosoftPhone, status, body), nil
	}
	data, err := decodeObject(body)
	if err != nil {
		return Response{}, err
	}
	hit := truthy(data["exists"]) || truthy(data["registered"]) || truthy(data["status"])
	data["microsoft_found"] = hit
	return Ok(KindMicrosoftPhone, data, found(hit)), nil
}

func parseDataBreach(status int, body []byte) (Response, error) {
	if status == http.StatusNotFound {
		return Ok(KindDataBreach, map[string]any{"databases": []any{}}, models.LookupNotFound), nil
	}
	if status != http.StatusOK {
		return statusFailure(KindDataBreach, status, body), nil
	}
	data, err := decodeObject(body)
	if err != nil {
		return Response{}, err
	}
	return Ok(KindDataBreach, data, found(nonEmpty(data["databases"]))), nil
}

var (
	countryLine   = regexp.MustCompile(`Country:\s*(.+?)(?:\n|$)`)
	carrierLine   = regexp.MustCompile(`Carrier:\s*(.+?)(?:\n|$)`)
	truecallerTag = regexp.MustCompile(`TrueCaller Says:\s*\n\s*Name:\s*(.+?)(?:\n|$)`)
	unknownTag    = regexp.MustCompile(`Unknown Says:\s*\n\s*Name:\s*(.+?)(?:\n|$)`)
)

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	v := strings.TrimSpace(m[1])
	if v == "Not Found" {
		return ""
	}
	return v
}

// parseMessengerPresence reads the combined telegram/whatsapp reply. Name and
// country come from a free-text block in the reply.
func parseMessengerPresence(status int, body []byte) (Response, error) {
	if status != http.StatusOK {
		return statusFailure(KindMessengerPresence, status, body), nil
	}
	var reply struct {
		OK   bool `json:"ok"`
		Data struct {
			Matched bool `json:"matched"`
			Reply   struct {
				Text string `json:"text"`
			} `json:"reply"`
			Profile struct {
				TelegramUsername string `json:"telegram_username"`
				ProfilePhoto     string `json:"profile_photo"`
				WhatsAppPhoto    string `json:"whatsapp_photo"`
			} `json:"profile"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return Response{}, fmt.Errorf("decode messenger reply: %w", err)
	}
	if !reply.OK || !reply.Data.Matched {
		return Ok(KindMessengerPresence, map[string]any{"telegram_found": false, "whatsapp_found": false}, models.LookupNotFound), nil
	}

	text := reply.Data.Reply.Text
	name := firstMatch(truecallerTag, text)
	if name == "" {
		name = firstMatch(unknownTag, text)
	}
	profile := reply.Data.Profile
	telegram := profile.TelegramUsername != "" || profile.ProfilePhoto != ""
	whatsapp := profile.WhatsAppPhoto != ""

	data := map[string]any{
		"telegram_found": telegram,
		"whatsapp_found": whatsapp,
	}
	if name != "" {
		data["name"] = name
	}
	if c := firstMatch(countryLine, text); c != "" {
		data["country"] = c
	}
	if c := firstMatch(carrierLine, text); c != "" {
		data["carrier"] = c
	}
	if profile.TelegramUsername != "" {
		data["telegram_username"] = profile.TelegramUsername
	}
	return Ok(KindMessengerPresence, data, found(telegram || whatsapp)), nil
}

func parsePeopleIndex(status int, body []byte) (Response, error) {
	if status != http.StatusOK {
		return statusFailure(KindPeopleIndex, status, body), nil
	}
	data, err := decodeObject(body)
	if err != nil {
		return Response{}, err
	}
	hit := nonEmpty(data["user_profile"]) || nonEmpty(data["phone_records"]) || nonEmpty(data["name_records"])
	if !hit && !truthy(data["success"]) {
		return Fail(KindPeopleIndex, "empty profile"), nil
	}
	return Ok(KindPeopleIndex, data, found(hit)), nil
}

func parseIndonesia(status int, body []byte) (Response, error) {
	if status != http.StatusOK {
		return statusFailure(KindIndonesiaInvestigate, status, body), nil
	}
	data, err := decodeObject(body)
	if err != nil {
		return Response{}, err
	}
	if ok, present := data["success"].(bool); present && !ok {
		msg, _ := data["error"].(string)
		if msg == "" {
			msg = "lookup failed"
		}
		return Fail(KindIndonesiaInvestigate, msg), nil
	}
	return Ok(KindIndonesiaInvestigate, data, found(nonEmpty(data["profile"]))), nil
}

func parseOSINTIndustries(status int, body []byte) (Response, error) {
	if status == http.StatusNotFound {
		return Ok(KindOSINTIndustries, map[string]any{"modules": []any{}}, models.LookupNotFound), nil
	}
	if status != http.StatusOK {
		return statusFailure(KindOSINTIndustries, status, body), nil
	}
	modules, err := decodeList(body)
	if err != nil {
		return Response{}, err
	}
	return Ok(KindOSINTIndustries, map[string]any{"modules": modules}, found(len(modules) > 0)), nil
}

func parseHIBP(status int, body []byte) (Response, error) {
	if status == http.StatusNotFound {
		return Ok(KindHIBP, map[string]any{"breaches": []any{}}, models.LookupNotFound), nil
	}
	if status != http.StatusOK {
		return statusFailure(KindHIBP, status, body), nil
	}
	breaches, err := decodeList(body)
	if err != nil {
		return Response{}, err
	}
	return Ok(KindHIBP, map[string]any{"breaches": breaches}, found(len(breaches) > 0)), nil
}
