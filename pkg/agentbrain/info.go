package agentbrain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var weatherTriggerRE = regexp.MustCompile(`날씨|weather|temperature|기온`)
var timeTriggerRE = regexp.MustCompile(`몇 시|지금 시간|what time|current time`)

// Info answers weather/time questions embedded in a transcript, matching
// the original assistant's info_services.py collaborator. Weather lookups
// require an API key; without one, weather queries are silently skipped
// and only the time lookup (no external dependency) is offered.
type Info struct {
	weatherAPIKey string
	weatherURL    string
	client        *http.Client
	now           func() time.Time
}

// NewInfo builds an info collaborator. An empty apiKey disables weather
// lookups but keeps time lookups available.
func NewInfo(apiKey string) *Info {
	return &Info{
		weatherAPIKey: apiKey,
		weatherURL:    "https://api.openweathermap.org/data/2.5/weather",
		client:        http.DefaultClient,
		now:           time.Now,
	}
}

// Lookup returns a short reference-data string for text if it asks about
// weather or the current time, and whether anything was found.
func (i *Info) Lookup(ctx context.Context, text string) (string, bool) {
	if timeTriggerRE.MatchString(text) {
		return fmt.Sprintf("Current time: %s", i.now().Format("15:04")), true
	}
	if weatherTriggerRE.MatchString(text) && i.weatherAPIKey != "" {
		if w, ok := i.fetchWeather(ctx); ok {
			return w, true
		}
	}
	return "", false
}

func (i *Info) fetchWeather(ctx context.Context) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, "GET", i.weatherURL, nil)
	if err != nil {
		return "", false
	}
	q := req.URL.Query()
	q.Set("appid", i.weatherAPIKey)
	q.Set("units", "metric")
	req.URL.RawQuery = q.Encode()

	resp, err := i.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var result struct {
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", false
	}
	if len(result.Weather) == 0 {
		return "", false
	}
	return fmt.Sprintf("Weather: %s, %.1f°C", strings.TrimSpace(result.Weather[0].Description), result.Main.Temp), true
}
