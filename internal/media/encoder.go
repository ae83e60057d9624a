package media

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MediaError covers local media failures: unsupported image shapes,
// missing video files, copy failures.
type MediaError struct {
	Reason string
	Err    error
}

func (e *MediaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("media error: %s: %v", e.Reason, e.Err)
	}
	return "media error: " + e.Reason
}

func (e *MediaError) Unwrap() error { return e.Err }

const maxVideoSize = 1 << 30 // 1 GiB, Threads' documented ceiling

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".m4v": {}, ".avi": {}, ".mkv": {}, ".webm": {},
}

// Encoder turns in-memory images and local video files into files under
// the served output directory, and hands back their public URLs.
type Encoder struct {
	outputDir string
}

func NewEncoder(outputDir string) (*Encoder, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output directory %s: %w", outputDir, err)
	}
	return &Encoder{outputDir: outputDir}, nil
}

// EncodeImage writes every batch slice of the tensor as an 8-bit PNG
// and returns the served URLs in slice order. Values of a slice whose
// maximum is at most 1.0 are scaled by 255 first; everything is rounded
// and clamped to [0,255].
func (e *Encoder) EncodeImage(t *Tensor, baseURL string) ([]string, error) {
	slices, err := t.frames()
	if err != nil {
		return nil, &MediaError{Reason: "unsupported image shape", Err: err}
	}

	urls := make([]string, 0, len(slices))
	for i, s := range slices {
		img, err := renderFrame(s)
		if err != nil {
			return nil, &MediaError{Reason: fmt.Sprintf("slice %d", i), Err: err}
		}

		name, err := imageFileName()
		if err != nil {
			return nil, &MediaError{Reason: "error generating file name", Err: err}
		}

		path := filepath.Join(e.outputDir, name)
		f, err := os.Create(path)
		if err != nil {
			return nil, &MediaError{Reason: "error creating image file", Err: err}
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return nil, &MediaError{Reason: "error encoding image", Err: err}
		}
		if err := f.Close(); err != nil {
			return nil, &MediaError{Reason: "error writing image file", Err: err}
		}

		slog.Info("image saved", "path", path)
		urls = append(urls, viewURL(baseURL, name))
	}

	return urls, nil
}

func renderFrame(s frame) (image.Image, error) {
	scale := float32(1.0)
	if s.max() <= 1.0 {
		scale = 255.0
	}

	quantize := func(v float32) uint8 {
		scaled := math.Round(float64(v * scale))
		if scaled < 0 {
			scaled = 0
		} else if scaled > 255 {
			scaled = 255
		}
		return uint8(scaled)
	}

	img := image.NewNRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			var px color.NRGBA
			switch s.channels {
			case 1:
				// single channel broadcast to RGB
				v := quantize(s.at(y, x, 0))
				px = color.NRGBA{R: v, G: v, B: v, A: 255}
			case 3:
				px = color.NRGBA{
					R: quantize(s.at(y, x, 0)),
					G: quantize(s.at(y, x, 1)),
					B: quantize(s.at(y, x, 2)),
					A: 255,
				}
			case 4:
				px = color.NRGBA{
					R: quantize(s.at(y, x, 0)),
					G: quantize(s.at(y, x, 1)),
					B: quantize(s.at(y, x, 2)),
					A: quantize(s.at(y, x, 3)),
				}
			default:
				return nil, fmt.Errorf("unsupported channel count %d", s.channels)
			}
			img.SetNRGBA(x, y, px)
		}
	}
	return img, nil
}

// EncodeLocalVideo copies a local video file into the served output
// directory and returns its public URL. Remote http(s) URLs pass
// through untouched.
func (e *Encoder) EncodeLocalVideo(path, baseURL string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", &MediaError{Reason: "video file not found: " + path, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; !ok {
		slog.Warn("file extension is not a recognized video format", "path", path)
	} else if head, err := sniffFile(path); err == nil && !filetype.IsVideo(head) {
		slog.Warn("file content does not look like video", "path", path)
	}

	if info.Size() > maxVideoSize {
		slog.Warn("video exceeds 1 GiB, the remote service may reject it",
			"path", path, "size", info.Size())
	}

	suffix, err := gonanoid.New(8)
	if err != nil {
		return "", &MediaError{Reason: "error generating file name", Err: err}
	}
	base := strings.TrimSuffix(filepath.Base(path), ext)
	name := fmt.Sprintf("%s_%s%s", base, suffix, ext)

	if err := copyFile(path, filepath.Join(e.outputDir, name)); err != nil {
		return "", &MediaError{Reason: "error copying video file", Err: err}
	}

	slog.Info("video copied", "name", name, "size", info.Size())
	return viewURL(baseURL, name), nil
}

// OpenFile resolves a served file name back to a path inside the output
// directory, rejecting traversal outside it.
func (e *Encoder) OpenFile(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", &MediaError{Reason: "invalid file name"}
	}
	path := filepath.Join(e.outputDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", &MediaError{Reason: "file not found: " + name, Err: err}
	}
	return path, nil
}

func imageFileName() (string, error) {
	suffix, err := gonanoid.New(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("thread_image_%s_%s.png", time.Now().Format("20060102_150405"), suffix), nil
}

func viewURL(baseURL, name string) string {
	return fmt.Sprintf("%s/api/view?filename=%s", strings.TrimRight(baseURL, "/"), url.QueryEscape(name))
}

func sniffFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return head[:n], nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
