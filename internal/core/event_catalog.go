package core

import "github.com/shopspring/decimal"

func tpl(name, description, attribute, value, boost string, days int) EventTemplate {
	return EventTemplate{
		Name:         name,
		Description:  description,
		Attribute:    attribute,
		Value:        value,
		Boost:        decimal.RequireFromString(boost),
		DurationDays: days,
	}
}

// eventCatalog holds random market events per business code.
var eventCatalog = map[string][]EventTemplate{
	"keyboards": {
		tpl("Streamer Craze", "Popular streamers are showcasing keyboard builds, boosting demand for smooth linear switches.",
			"attribute_1", "LINEAR", "1.50", 14),
		tpl("Ergonomics Trend", "A new study on workplace ergonomics is boosting demand for tactile switches.",
			"attribute_1", "TACTILE", "1.30", 20),
		tpl("ASMR Popularity", "ASMR videos featuring clicky keyboards are driving demand for loud switches.",
			"attribute_3", "LOUD", "1.75", 10),
	},
	"tech": {
		tpl("Crypto Bull Run", "Cryptocurrency prices are surging and miners are stockpiling GPUs.",
			"attribute_1", "MINING", "2.00", 21),
		tpl("AI Boom", "New AI models need massive compute; server components are in high demand.",
			"attribute_1", "SERVER", "1.60", 30),
		tpl("Retro Gaming Revival", "A nostalgia wave hits and vintage hardware prices climb.",
			"attribute_1", "VINTAGE", "1.80", 14),
	},
	"farm": {
		tpl("Farm-to-Table Movement", "Restaurants are prioritizing local greens.",
			"attribute_1", "LEAFY", "1.40", 28),
		tpl("Superfood Craze", "Health influencers are promoting microgreens as superfoods.",
			"attribute_1", "MICRO", "1.60", 21),
		tpl("Cocktail Renaissance", "Craft cocktail bars are buying fresh herbs in bulk.",
			"attribute_1", "HERB", "1.35", 14),
	},
}

// EventTemplates returns the random event catalog for a business code.
func EventTemplates(businessCode string) []EventTemplate {
	return eventCatalog[businessCode]
}
