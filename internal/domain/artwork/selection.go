// Package artwork selects and normalizes cover art for tagged audio files.
package artwork

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-tagger/internal/domain/metadata"
)

// Thumbnail is a thumbnail candidate advertised by the source platform.
type Thumbnail = metadata.Thumbnail

// QualityTiers lists the platform's thumbnail naming tiers, best first.
var QualityTiers = []string{
	"maxresdefault",
	"maxres",
	"hq720",
	"sddefault",
	"hqdefault",
	"mqdefault",
	"default",
}

// SelectBestThumbnail picks the URL of the best candidate, or fallback when
// there are no candidates.
func SelectBestThumbnail(candidates []Thumbnail, fallback string) string {
	return SelectBestThumbnailWithLogger(log.Logger, candidates, fallback)
}

// SelectBestThumbnailWithLogger is SelectBestThumbnail with an explicit logger.
func SelectBestThumbnailWithLogger(logger zerolog.Logger, candidates []Thumbnail, fallback string) string {
	if len(candidates) == 0 {
		logger.Debug().Str("url", fallback).Msg("No thumbnail candidates, using fallback")
		return fallback
	}

	for _, tier := range QualityTiers {
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.ID), tier) || strings.Contains(strings.ToLower(c.URL), tier) {
				logger.Debug().Str("tier", tier).Str("url", c.URL).Msg("Selected thumbnail by tier")
				return c.URL
			}
		}
	}

	best := -1
	bestArea := 0
	for i, c := range candidates {
		if c.Width <= 0 || c.Height <= 0 {
			continue
		}
		if area := c.Width * c.Height; area > bestArea {
			best = i
			bestArea = area
		}
	}
	if best >= 0 {
		logger.Debug().
			Int("width", candidates[best].Width).
			Int("height", candidates[best].Height).
			Str("url", candidates[best].URL).
			Msg("Selected thumbnail by size")
		return candidates[best].URL
	}

	logger.Debug().Str("url", candidates[0].URL).Msg("Selected first thumbnail")
	return candidates[0].URL
}
