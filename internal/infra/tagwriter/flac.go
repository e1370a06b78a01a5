package tagwriter

import (
	"fmt"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/edumarques81/stellar-tagger/internal/domain/artwork"
	"github.com/edumarques81/stellar-tagger/internal/domain/metadata"
)

// writeFLAC merges our fields into the Vorbis comment block, replacing
// same-named comments, and optionally replaces the front cover picture.
func writeFLAC(path string, c metadata.Canonical, cover []byte) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	fields := []struct{ name, value string }{
		{flacvorbis.FIELD_TITLE, c.Title},
		{flacvorbis.FIELD_ARTIST, c.Artist},
		{flacvorbis.FIELD_ALBUM, c.Album},
		{flacvorbis.FIELD_DATE, c.Date},
		{flacvorbis.FIELD_GENRE, c.Genre},
	}
	written := make(map[string]bool)
	for _, fld := range fields {
		if fld.value != "" {
			written[fld.name] = true
		}
	}

	cmtIdx := -1
	var existing *flacvorbis.MetaDataBlockVorbisComment
	for idx, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			cmtIdx = idx
			existing, err = flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				existing = nil
			}
			break
		}
	}

	cmt := flacvorbis.New()
	if existing != nil {
		cmt.Vendor = existing.Vendor
		for _, comment := range existing.Comments {
			name, value, ok := strings.Cut(comment, "=")
			if !ok || written[strings.ToUpper(name)] {
				continue
			}
			_ = cmt.Add(name, value)
		}
	}
	for _, fld := range fields {
		if fld.value != "" {
			if err := cmt.Add(fld.name, fld.value); err != nil {
				return fmt.Errorf("add %s: %w", fld.name, err)
			}
		}
	}

	cmtBlock := cmt.Marshal()
	if cmtIdx < 0 {
		f.Meta = append(f.Meta, &cmtBlock)
	} else {
		f.Meta[cmtIdx] = &cmtBlock
	}

	if len(cover) > 0 {
		if err := replaceFLACCover(f, cover); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save flac: %w", err)
	}
	return nil
}

// replaceFLACCover swaps existing front cover PICTURE blocks for cover.
func replaceFLACCover(f *flac.File, cover []byte) error {
	picture, err := flacpicture.NewFromImageData(
		flacpicture.PictureTypeFrontCover,
		coverDescription,
		cover,
		artwork.CoverMimeType(cover),
	)
	if err != nil {
		return fmt.Errorf("create picture block: %w", err)
	}

	for i := len(f.Meta) - 1; i >= 0; i-- {
		if f.Meta[i].Type != flac.Picture {
			continue
		}
		pic, err := flacpicture.ParseFromMetaDataBlock(*f.Meta[i])
		if err != nil || pic.PictureType != flacpicture.PictureTypeFrontCover {
			continue
		}
		f.Meta = append(f.Meta[:i], f.Meta[i+1:]...)
	}

	pictureBlock := picture.Marshal()
	f.Meta = append(f.Meta, &pictureBlock)
	return nil
}
