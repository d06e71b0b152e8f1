// Package geocode resolves GPS coordinates to human-readable places via an
// Amazon Location place index. Resolution is best effort: callers treat any
// failure as "no place", never as a processing error.
package geocode

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/location"

	"github.com/snapdraft/photoblog-backend/internal/models"
)

// SearchAPI defines the Location operation the resolver uses.
type SearchAPI interface {
	SearchPlaceIndexForPosition(ctx context.Context, params *location.SearchPlaceIndexForPositionInput, optFns ...func(*location.Options)) (*location.SearchPlaceIndexForPositionOutput, error)
}

// Resolver looks up places in one configured place index.
type Resolver struct {
	Client SearchAPI
	Index  string
}

// Resolve returns the closest place for a coordinate, or an error when the
// index is unconfigured, the lookup fails, or nothing matches.
func (r *Resolver) Resolve(ctx context.Context, lat, lng float64) (*models.Place, error) {
	if r == nil || r.Index == "" {
		return nil, fmt.Errorf("place index not configured")
	}
	// Location positions are [longitude, latitude].
	out, err := r.Client.SearchPlaceIndexForPosition(ctx, &location.SearchPlaceIndexForPositionInput{
		IndexName:  aws.String(r.Index),
		Position:   []float64{lng, lat},
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("search place index: %w", err)
	}
	if len(out.Results) == 0 || out.Results[0].Place == nil {
		return nil, fmt.Errorf("no place for %f,%f", lat, lng)
	}
	p := out.Results[0].Place
	place := &models.Place{
		Country: aws.ToString(p.Country),
		Region:  aws.ToString(p.Region),
		City:    aws.ToString(p.Municipality),
		Label:   aws.ToString(p.Label),
	}
	if place.Empty() {
		return nil, fmt.Errorf("empty place for %f,%f", lat, lng)
	}
	return place, nil
}
