package tagwriter

import (
	"fmt"

	"github.com/bogem/id3v2/v2"

	"github.com/edumarques81/stellar-tagger/internal/domain/artwork"
	"github.com/edumarques81/stellar-tagger/internal/domain/metadata"
)

// writeMP3 writes ID3v2.4 frames; a file without a tag gets a new one.
func writeMP3(path string, c metadata.Canonical, cover []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	if c.Title != "" {
		tag.SetTitle(c.Title)
	}
	if c.Artist != "" {
		tag.SetArtist(c.Artist)
	}
	if c.Album != "" {
		tag.SetAlbum(c.Album)
	}
	if c.Date != "" {
		tag.SetYear(c.Date)
	}
	if c.Genre != "" {
		tag.SetGenre(c.Genre)
	}

	if len(cover) > 0 {
		replaceCover(tag, cover)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return nil
}

// replaceCover drops a previously written "Cover" picture and keeps the rest.
func replaceCover(tag *id3v2.Tag, cover []byte) {
	apicID := tag.CommonID("Attached picture")
	var keep []id3v2.PictureFrame
	for _, f := range tag.GetFrames(apicID) {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok || pic.Description == coverDescription {
			continue
		}
		keep = append(keep, pic)
	}
	tag.DeleteFrames(apicID)
	for _, pic := range keep {
		tag.AddAttachedPicture(pic)
	}

	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    artwork.CoverMimeType(cover),
		PictureType: id3v2.PTFrontCover,
		Description: coverDescription,
		Picture:     cover,
	})
}
