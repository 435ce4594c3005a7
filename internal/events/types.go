package events

// Event is the trimmed representation served to clients.
type Event struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Date     string `json:"date,omitempty"`
	Venue    string `json:"venue,omitempty"`
	City     string `json:"city,omitempty"`
}

// discoveryResponse mirrors the slice of the Discovery API payload we read.
type discoveryResponse struct {
	Embedded struct {
		Events []discoveryEvent `json:"events"`
	} `json:"_embedded"`
}

type discoveryEvent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Images []struct {
		URL   string `json:"url"`
		Width int    `json:"width"`
	} `json:"images"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
		} `json:"start"`
	} `json:"dates"`
	Embedded struct {
		Venues []struct {
			Name string `json:"name"`
			City struct {
				Name string `json:"name"`
			} `json:"city"`
		} `json:"venues"`
	} `json:"_embedded"`
}

func (e *discoveryEvent) toEvent() Event {
	out := Event{
		ID:   e.ID,
		Name: e.Name,
		URL:  e.URL,
		Date: e.Dates.Start.LocalDate,
	}

	// Prefer the widest image.
	best := -1
	for _, img := range e.Images {
		if img.Width > best {
			best = img.Width
			out.ImageURL = img.URL
		}
	}

	if len(e.Embedded.Venues) > 0 {
		out.Venue = e.Embedded.Venues[0].Name
		out.City = e.Embedded.Venues[0].City.Name
	}
	return out
}
