package advisory

import "strings"

// Intent is the classified purpose of a free-text farmer query.
type Intent string

const (
	IntentCrop        Intent = "crop"
	IntentMarket      Intent = "market"
	IntentWeather     Intent = "weather"
	IntentPlantHealth Intent = "plant_health"
	IntentGeneral     Intent = "general"
)

type intentRule struct {
	intent   Intent
	labelKey string
	triggers []string
}

// intentRules is evaluated top to bottom; the first matching rule wins. The
// ordering (crop > market > weather > plant-health) is load-bearing for
// queries that mention several topics and must not be reordered without a
// product decision. New intents or trigger terms are added to the table, not
// as branching code.
var intentRules = []intentRule{
	{
		intent:   IntentCrop,
		labelKey: "intent_crop",
		triggers: []string{
			"crop recommend", "suggest crop", "kya ugana",
			"फसल सुझाएं", "பயிர்களைப் பரிந்துரை", "ফসল সুপারিশ করুন", "పంటలను సూచించండి", "पिके सुचवा",
		},
	},
	{
		intent:   IntentMarket,
		labelKey: "intent_market",
		triggers: []string{
			"market price", "bhav kya hai", "rate kya hai",
			"बाजार भाव", "சந்தை விலை", "বাজারদর", "మార్కెట్ ధర", "बाजारभाव",
		},
	},
	{
		intent:   IntentWeather,
		labelKey: "intent_weather",
		triggers: []string{
			"weather", "mausam",
			"मौसम", "வானிலை", "আবহাওয়া", "వాతావరణం", "हवामान",
		},
	},
	{
		intent:   IntentPlantHealth,
		labelKey: "intent_health",
		triggers: []string{
			"disease", "pest", "problem", "rog", "bimari",
			"कीट", "நோய்", "রোগ", "తెగులు", "कीड", "समस्या",
		},
	},
}

// ClassifyIntent routes a query to exactly one intent by substring match over
// its lower-cased text, defaulting to the general intent.
func ClassifyIntent(query string) (Intent, string) {
	lower := strings.ToLower(query)
	for _, rule := range intentRules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lower, trigger) {
				return rule.intent, rule.labelKey
			}
		}
	}
	return IntentGeneral, "intent_general"
}
