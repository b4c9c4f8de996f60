package plans

import "fmt"

// Research briefs are instruction blocks embedded into stage prompts.
// They direct the model to research a topic itself rather than calling
// out to a search backend; no search integration exists or is assumed.

func flightBrief(departureCity, destination string) string {
	return fmt.Sprintf(`Research task: find flights from %s to %s.

Provide:
1. Current flight options with realistic prices
2. Airlines operating these routes
3. Flight durations and layover information
4. Best booking times and price trends
5. Seasonal pricing variations`, departureCity, destination)
}

func hotelBrief(location, checkIn string) string {
	return fmt.Sprintf(`Research task: find hotels in %s for check-in %s.

Provide:
1. Top-rated hotels with guest reviews
2. Current pricing for the full stay
3. Hotel amenities and facilities
4. Location details and proximity to attractions
5. Guest ratings and recommendation reasons

Include budget, mid-range, and luxury options.`, location, checkIn)
}

func attractionsBrief(destination string) string {
	return fmt.Sprintf(`Research task: find attractions and activities in %s.

Provide:
1. Top-rated attractions and their estimated visit times
2. Popular day tours and multi-day excursions
3. Outdoor activities and cultural sites
4. Typical costs for tours and entrance fees
5. Best time to visit each location
6. Transportation options between sites

Include hidden gems and less-known but highly-rated activities.`, destination)
}

func transportBrief(destination string) string {
	return fmt.Sprintf(`Research task: find local transportation options in %s.

Provide:
1. Public transportation systems
2. Rental car options and average daily rates
3. Taxi and rideshare services
4. Transportation passes or tourist cards
5. Estimated costs for each method
6. Driving considerations for visitors

Focus on options that are convenient and cost-effective for tourists.`, destination)
}

func costBrief(destination string) string {
	return fmt.Sprintf(`Research task: find cost information for a trip to %s.

Provide:
1. Average meal costs at budget, mid-range, and upscale restaurants
2. Public transportation and rental car prices
3. Tour and activity pricing
4. Entrance fees for attractions
5. Estimated daily costs for different budget levels
6. Money-saving tips and best budget periods`, destination)
}
