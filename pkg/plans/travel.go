package plans

import (
	"fmt"
	"strings"

	"github.com/zen-systems/promptchain/pkg/adapter"
	"github.com/zen-systems/promptchain/pkg/pipeline"
	"github.com/zen-systems/promptchain/pkg/prompt"
)

// TravelParams parameterize the travel planning pipeline.
type TravelParams struct {
	Destination      string
	TripDuration     string
	TripDates        string
	DepartureCity    string
	Travelers        int
	BudgetPreference string
	Config           adapter.GenerateConfig
}

func (p TravelParams) withDefaults() TravelParams {
	if p.Destination == "" {
		p.Destination = "Iceland"
	}
	if p.TripDuration == "" {
		p.TripDuration = "5 days"
	}
	if p.TripDates == "" {
		p.TripDates = "January 15-20, 2026"
	}
	if p.DepartureCity == "" {
		p.DepartureCity = "New York"
	}
	if p.Travelers <= 0 {
		p.Travelers = 2
	}
	if p.BudgetPreference == "" {
		p.BudgetPreference = "mid-range"
	}
	if p.Config.MaxTokens == 0 {
		p.Config = adapter.GenerateConfig{
			Temperature: pipeline.FallbackTemperature,
			MaxTokens:   pipeline.FallbackMaxTokens,
		}
	}
	return p
}

// Params returns the effective parameters as printable pairs for run
// metadata.
func (p TravelParams) Params() map[string]string {
	p = p.withDefaults()
	return map[string]string{
		"destination": p.Destination,
		"duration":    p.TripDuration,
		"dates":       p.TripDates,
		"departure":   p.DepartureCity,
		"travelers":   fmt.Sprintf("%d", p.Travelers),
		"budget":      p.BudgetPreference,
	}
}

// hotelCity maps a country-level destination to its usual base city.
func hotelCity(destination string) string {
	switch strings.ToLower(destination) {
	case "iceland":
		return "Reykjavik"
	case "france":
		return "Paris"
	case "japan":
		return "Tokyo"
	default:
		return destination
	}
}

// Travel builds the travel planning pipeline: flights, hotels,
// itinerary, transportation, and budget specialists run in sequence,
// each seeing the full output of every earlier stage.
func Travel(params TravelParams) (*pipeline.Pipeline, error) {
	p := params.withDefaults()

	stages := []pipeline.Stage{
		travelStage(p, "flights", nil,
			"You are a senior aviation logistics expert with years of experience "+
				"coordinating flight routes, airline alliances, and seasonal pricing. "+
				"You recommend flights that balance price and convenience.",
			fmt.Sprintf("Compile 2-3 realistic flight options from %s to %s for the trip (%s). "+
				"Include airlines, departure and arrival times, durations, and prices, then "+
				"recommend the best value option with reasoning.\n\n%s",
				p.DepartureCity, p.Destination, p.TripDates, flightBrief(p.DepartureCity, p.Destination))),

		travelStage(p, "hotels", []string{"flights"},
			"You are a hospitality consultant who has inspected hundreds of properties "+
				"worldwide and matches travelers with the right accommodation for their "+
				"budget and itinerary.",
			fmt.Sprintf("Recommend the top 3-4 hotels in %s for the trip dates (%s). For each "+
				"hotel give the name, guest rating, price per night, amenities, and why it "+
				"suits this trip. Include a mix of budget, mid-range, and luxury options.\n\n%s",
				hotelCity(p.Destination), p.TripDates, hotelBrief(hotelCity(p.Destination), p.TripDates))),

		travelStage(p, "itinerary", []string{"flights", "hotels"},
			fmt.Sprintf("You are a professional travel curator who designs immersive, "+
				"well-paced journeys that reveal the authentic character of %s beyond "+
				"the usual tourist stops.", p.Destination),
			fmt.Sprintf("Create a detailed day-by-day %s itinerary for %s (%s). Plan visits to "+
				"real attractions with realistic travel times, activity durations, entry fees, "+
				"and weather-appropriate pacing.\n\n%s",
				p.TripDuration, p.Destination, p.TripDates, attractionsBrief(p.Destination))),

		travelStage(p, "transportation", []string{"flights", "hotels", "itinerary"},
			"You are an urban mobility specialist who has tested transportation systems "+
				"in dozens of countries and knows which transit passes, rental companies, "+
				"and rideshare options give travelers the best value.",
			fmt.Sprintf("Compile local transportation options for getting around %s during a %s "+
				"trip: public transit, rental cars, taxis, and rideshare, with pricing, practical "+
				"tips, and a recommendation for the most convenient and cost-effective mix.\n\n%s",
				p.Destination, p.TripDuration, transportBrief(p.Destination))),

		travelStage(p, "budget", []string{"flights", "hotels", "itinerary", "transportation"},
			"You are a travel financial strategist who breaks any trip down to its cost "+
				"components, spots hidden fees, and finds savings without compromising the "+
				"experience.",
			fmt.Sprintf("Using the flight options, hotel recommendations, itinerary, and "+
				"transportation guide above, calculate a comprehensive budget for the %s %s "+
				"trip for %d traveler(s) with a %s preference. Itemize flights, accommodation, "+
				"meals, activities, and local transport, give totals for budget, mid-range, and "+
				"luxury levels, and suggest cost-saving tips.\n\n%s",
				p.TripDuration, p.Destination, p.Travelers, p.BudgetPreference, costBrief(p.Destination))),
	}

	pl, err := pipeline.New("travel", stages...)
	if err != nil {
		return nil, err
	}
	pl.Description = fmt.Sprintf("Plan a %s trip to %s", p.TripDuration, p.Destination)
	return pl, nil
}

// travelStage builds one specialist stage whose user message carries
// the task plus the full output of every earlier stage it needs.
func travelStage(p TravelParams, name string, needs []string, system, task string) pipeline.Stage {
	return pipeline.Stage{
		Name:   name,
		Needs:  needs,
		Config: p.Config,
		Render: func(prior pipeline.Outputs) (prompt.Prompt, error) {
			var sb strings.Builder
			sb.WriteString(task)
			for _, need := range needs {
				out, err := prior.Need(name, need)
				if err != nil {
					return nil, err
				}
				fmt.Fprintf(&sb, "\n\n%s REPORT:\n%s", strings.ToUpper(need), out)
			}
			return prompt.Prompt{prompt.System(system), prompt.User(sb.String())}, nil
		},
	}
}
