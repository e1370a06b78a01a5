package ytdlp

import (
	"errors"

	"github.com/tidwall/gjson"

	"github.com/edumarques81/stellar-tagger/internal/domain/metadata"
)

// ErrInvalidInfo is returned when yt-dlp output isn't a JSON object.
var ErrInvalidInfo = errors.New("invalid info record")

// ParseInfo decodes a yt-dlp info record. Fields are read leniently: a missing,
// null or mistyped value is treated as absent.
func ParseInfo(data []byte) (metadata.RawInfo, error) {
	if !gjson.ValidBytes(data) {
		return metadata.RawInfo{}, ErrInvalidInfo
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return metadata.RawInfo{}, ErrInvalidInfo
	}
	return infoFromResult(root), nil
}

func infoFromResult(r gjson.Result) metadata.RawInfo {
	info := metadata.RawInfo{
		ID:          str(r, "id"),
		WebpageURL:  str(r, "webpage_url"),
		Ext:         str(r, "ext"),
		Title:       str(r, "title"),
		Artist:      str(r, "artist"),
		Creator:     str(r, "creator"),
		Track:       str(r, "track"),
		AltTitle:    str(r, "alt_title"),
		Description: str(r, "description"),
		Uploader:    str(r, "uploader"),
		Channel:     str(r, "channel"),
		Album:       str(r, "album"),
		ReleaseYear: int(r.Get("release_year").Int()),
		UploadDate:  str(r, "upload_date"),
		Duration:    r.Get("duration").Float(),
		Thumbnail:   str(r, "thumbnail"),
	}

	for _, c := range r.Get("categories").Array() {
		if c.Type == gjson.String {
			info.Categories = append(info.Categories, c.String())
		}
	}

	for _, t := range r.Get("thumbnails").Array() {
		if !t.IsObject() {
			continue
		}
		info.Thumbnails = append(info.Thumbnails, metadata.Thumbnail{
			ID:     str(t, "id"),
			URL:    str(t, "url"),
			Width:  int(t.Get("width").Int()),
			Height: int(t.Get("height").Int()),
		})
	}

	return info
}

// str reads a scalar as a string; objects, arrays and null are absent.
func str(r gjson.Result, path string) string {
	v := r.Get(path)
	switch v.Type {
	case gjson.String, gjson.Number:
		return v.String()
	}
	return ""
}

func firstStr(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := str(r, p); s != "" {
			return s
		}
	}
	return ""
}
