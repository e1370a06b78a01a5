package tagwriter

import (
	"errors"
	"fmt"
	"strconv"

	mp4tag "github.com/zhaarey/go-mp4tag"

	"github.com/edumarques81/stellar-tagger/internal/domain/artwork"
	"github.com/edumarques81/stellar-tagger/internal/domain/metadata"
)

// ErrMissingMetadataBox is returned for MP4 files without a moov.udta.meta.ilst
// atom. go-mp4tag only rewrites an existing item list, it cannot create one.
var ErrMissingMetadataBox = errors.New("mp4 metadata box missing")

// writeMP4 sets the iTunes-style atoms (©nam, ©ART, ©alb, ©day, ©gen, covr).
func writeMP4(path string, c metadata.Canonical, cover []byte) error {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return err
	}
	defer mp4.Close()

	t := &mp4tag.MP4Tags{
		Title:       c.Title,
		Artist:      c.Artist,
		Album:       c.Album,
		CustomGenre: c.Genre,
	}
	var del []string

	// go-mp4tag reads an all-digit ©day back as Year and prefers Year on
	// write, so a new date must clear whichever form it does not use.
	if c.Date != "" {
		if year, err := strconv.ParseInt(c.Date, 10, 32); err == nil && year > 0 {
			t.Year = int32(year)
			del = append(del, "date")
		} else {
			t.Date = c.Date
			del = append(del, "year")
		}
	}

	if len(cover) > 0 {
		format := mp4tag.ImageTypeJPEG
		if artwork.IsPNG(cover) {
			format = mp4tag.ImageTypePNG
		}
		t.Pictures = []*mp4tag.MP4Picture{{Format: format, Data: cover}}
		del = append(del, "allpictures")
	}

	if err := mp4.Write(t, del); err != nil {
		var missing *mp4tag.ErrBoxNotPresent
		if errors.As(err, &missing) {
			return fmt.Errorf("%w: %s", ErrMissingMetadataBox, missing.Msg)
		}
		return err
	}
	return nil
}
