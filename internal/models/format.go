package models

import (
	"encoding/json"
	"strconv"
)

// FormatCatalog is the response of the format listing endpoint.
type FormatCatalog struct {
	Title        string        `json:"title"`
	Thumbnail    string        `json:"thumbnail"`
	VideoFormats []VideoFormat `json:"video_formats"`
	AudioFormats []AudioFormat `json:"audio_formats"`
}

type VideoFormat struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Filesize   *int64 `json:"filesize"`
}

type AudioFormat struct {
	FormatID string  `json:"format_id"`
	Ext      string  `json:"ext"`
	ABR      Bitrate `json:"abr"`
	Filesize *int64  `json:"filesize"`
}

// Bitrate is an average bitrate in kbps that renders as "?" when unknown.
type Bitrate struct {
	Kbps  float64
	Known bool
}

func KnownBitrate(kbps float64) Bitrate {
	return Bitrate{Kbps: kbps, Known: true}
}

func (b Bitrate) MarshalJSON() ([]byte, error) {
	if !b.Known {
		return []byte(`"?"`), nil
	}
	return []byte(strconv.FormatFloat(b.Kbps, 'f', -1, 64)), nil
}

func (b *Bitrate) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*b = Bitrate{}
		return nil
	}
	*b = KnownBitrate(v)
	return nil
}
