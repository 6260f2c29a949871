package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"
)

// Upload-time transcode bounds. The capture layer already reduces the
// frame; this second pass shrinks the payload further before it goes
// into a JSON body.
const (
	uploadWidth   = 600
	uploadQuality = 30
)

// transcodeDataURI resizes the staged photo to uploadWidth
// (aspect-preserving), re-encodes it as a reduced-quality JPEG and
// returns it as a base64 data URI.
func transcodeDataURI(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open photo: %w", err)
	}

	img = imaging.Resize(img, uploadWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(uploadQuality)); err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
