// internal/enrich/enrich.go
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/littleexplorer/atlas/internal/geo"
	"github.com/littleexplorer/atlas/internal/util"
	"github.com/littleexplorer/atlas/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// response mirrors EnrichedData with pointers so missing mandatory fields can be told apart from zero values.
type response struct {
	LocationName *string `json:"locationName"`
	Coordinates  *struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	} `json:"coordinates"`
	Date        *string  `json:"date"`
	Companions  []string `json:"companions"`
	Description *string  `json:"description"`
	FunFact     *string  `json:"funFact"`
	Tags        []string `json:"tags"`
}

// Enrich extracts an EnrichedData draft from free text.
// Errors wrap ErrEmptyInput, ErrEnrichmentUnavailable, ErrNoStructuredData or geo.ErrInvalidCoordinate.
func (c *Client) Enrich(ctx context.Context, text string) (core.EnrichedData, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.EnrichedData{}, ErrEmptyInput
	}

	if c.cache != nil {
		if data, ok := c.cache.Get(text); ok {
			c.record(ctx, "cached")
			return data, nil
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	content, err := c.complete(ctx, buildMessages(c.language, text))
	if err != nil {
		c.record(ctx, resultOf(err))
		c.logger.Warn("enrichment request failed", "model", c.model, "error", err)
		return core.EnrichedData{}, err
	}

	data, err := c.parse(content)
	if err != nil {
		c.record(ctx, resultOf(err))
		c.logger.Warn("enrichment response rejected", "model", c.model, "error", err)
		return core.EnrichedData{}, err
	}

	if c.cache != nil {
		c.cache.Set(text, data)
	}
	c.record(ctx, "ok")
	c.logger.Debug("enriched memory", "location", data.LocationName, "lat", data.Coordinates.Lat, "lng", data.Coordinates.Lng)
	return data, nil
}

// parse validates the model output and converts it into a draft.
func (c *Client) parse(content string) (core.EnrichedData, error) {
	content = util.TrimFence(content)
	if content == "" || content == "null" {
		return core.EnrichedData{}, fmt.Errorf("%w: empty content", ErrNoStructuredData)
	}

	var r response
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return core.EnrichedData{}, fmt.Errorf("%w: %v", ErrNoStructuredData, err)
	}

	switch {
	case r.LocationName == nil || strings.TrimSpace(*r.LocationName) == "":
		return core.EnrichedData{}, fmt.Errorf("%w: missing locationName", ErrNoStructuredData)
	case r.Coordinates == nil || r.Coordinates.Lat == nil || r.Coordinates.Lng == nil:
		return core.EnrichedData{}, fmt.Errorf("%w: missing coordinates", ErrNoStructuredData)
	case r.Description == nil:
		return core.EnrichedData{}, fmt.Errorf("%w: missing description", ErrNoStructuredData)
	case r.FunFact == nil:
		return core.EnrichedData{}, fmt.Errorf("%w: missing funFact", ErrNoStructuredData)
	case r.Tags == nil:
		return core.EnrichedData{}, fmt.Errorf("%w: missing tags", ErrNoStructuredData)
	}

	coords := core.Coordinates{Lat: *r.Coordinates.Lat, Lng: *r.Coordinates.Lng}
	if err := geo.Validate(coords); err != nil {
		return core.EnrichedData{}, err
	}

	data := core.EnrichedData{
		LocationName: strings.TrimSpace(*r.LocationName),
		Coordinates:  coords,
		Companions:   util.CompactStrings(r.Companions),
		Description:  strings.TrimSpace(*r.Description),
		FunFact:      strings.TrimSpace(*r.FunFact),
		Tags:         util.CompactStrings(r.Tags),
	}
	if data.Tags == nil {
		data.Tags = []string{}
	}

	if r.Date != nil && strings.TrimSpace(*r.Date) != "" {
		d, err := core.ParseDate(*r.Date)
		if err != nil {
			c.logger.Debug("dropping unparseable date", "date", *r.Date)
		} else {
			data.Date = &d
		}
	}
	return data, nil
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, ErrEnrichmentUnavailable):
		return "unavailable"
	case errors.Is(err, ErrNoStructuredData):
		return "no_data"
	case errors.Is(err, geo.ErrInvalidCoordinate):
		return "invalid_coordinates"
	default:
		return "error"
	}
}

func (c *Client) record(ctx context.Context, result string) {
	c.requests.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("result", result)))
}
