package feed

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// DefaultFallback is shown when no weather has ever been fetched.
const DefaultFallback = "Mock weather: sunny, 30°C"

// Decoder turns a response body into display text.
type Decoder func(body []byte) (string, error)

type weatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
}

// DecodeWeather decodes an OpenWeatherMap-style current weather response
// (metric units) into "City: description, 21.5°C".
func DecodeWeather(body []byte) (string, error) {
	if len(body) == 0 {
		return "", errors.New("empty body")
	}
	var wr weatherResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", err
	}
	if len(wr.Weather) == 0 {
		return "", errors.New("no weather conditions in response")
	}
	desc := wr.Weather[0].Description
	if desc == "" {
		desc = strings.ToLower(wr.Weather[0].Main)
	}
	if desc == "" {
		return "", errors.New("empty weather description")
	}
	var b strings.Builder
	if wr.Name != "" {
		b.WriteString(wr.Name)
		b.WriteString(": ")
	}
	b.WriteString(desc)
	if wr.Main.Temp != nil {
		fmt.Fprintf(&b, ", %.1f°C", *wr.Main.Temp)
	}
	return b.String(), nil
}
