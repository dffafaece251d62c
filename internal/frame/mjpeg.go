package frame

import (
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net/http"
	"time"
)

// MJPEGSource reads frames from an IP camera's MJPEG-over-HTTP stream
// (multipart/x-mixed-replace). This is the stock capture backend for
// network cameras; USB capture stays deployment-specific.
type MJPEGSource struct {
	resp   *http.Response
	parts  *multipart.Reader
	closed bool
}

// OpenMJPEG connects to the given stream URL and prepares to read frames.
func OpenMJPEG(url string) (*MJPEGSource, error) {
	// The stream never ends, so the client must not impose a total timeout.
	client := &http.Client{}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("connect to stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned HTTP %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("parse stream content type: %w", err)
	}
	if mediaType != "multipart/x-mixed-replace" {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected stream content type %q", mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("stream content type is missing a boundary")
	}

	return &MJPEGSource{
		resp:  resp,
		parts: multipart.NewReader(resp.Body, boundary),
	}, nil
}

// Capture reads and decodes the next JPEG part of the stream.
func (s *MJPEGSource) Capture() (*Frame, error) {
	part, err := s.parts.NextPart()
	if err != nil {
		return nil, fmt.Errorf("read stream part: %w", err)
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	f := fromImage(img)
	f.Timestamp = time.Now()
	return f, nil
}

// Close terminates the stream connection.
func (s *MJPEGSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Body.Close()
}

// fromImage converts a decoded image into the packed BGR24 layout.
func fromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[i] = byte(bl >> 8)
			f.Pix[i+1] = byte(g >> 8)
			f.Pix[i+2] = byte(r >> 8)
			i += 3
		}
	}
	return f
}
