package quality

import (
	"fmt"
	"image"
	"math"
	"os"

	_ "image/jpeg"
	_ "image/png"
)

// Metrics holds the measurements taken while validating a candidate image.
// Metrics are returned even when the image is rejected so callers can log
// the reason without re-computing them.
type Metrics struct {
	Format      string  `json:"format,omitempty"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FileSizeMB  float64 `json:"file_size_mb"`
	BlurScore   float64 `json:"blur_score"`
	Brightness  float64 `json:"brightness"`
	Contrast    float64 `json:"contrast"`
	IsBlurry    bool    `json:"is_blurry"`
	IsTooDark   bool    `json:"is_too_dark"`
	IsTooBright bool    `json:"is_too_bright"`
}

// Thresholds configures the acceptance criteria for candidate images.
type Thresholds struct {
	MinDimension  int
	MaxFileSizeMB float64
	BlurThreshold float64
	MinBrightness float64
	MaxBrightness float64
}

// DefaultThresholds returns the thresholds the ingestion pipeline was
// originally tuned with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinDimension:  224,
		MaxFileSizeMB: 10.0,
		BlurThreshold: 100.0,
		MinBrightness: 50.0,
		MaxBrightness: 200.0,
	}
}

// Gate validates candidate dataset images. It is a pure function over
// file content; it never mutates anything.
type Gate struct {
	thresholds Thresholds
}

// NewGate creates a quality gate with the given thresholds.
func NewGate(t Thresholds) *Gate {
	return &Gate{thresholds: t}
}

// Validate checks the image at path against the acceptance criteria.
// Checks run in order and short-circuit on the first failure:
// decodable JPEG/PNG, minimum dimensions, maximum file size, blur score,
// brightness window. A rejection is an expected outcome, not an error;
// the error return covers only I/O failures opening the file.
func (g *Gate) Validate(path string) (bool, string, Metrics) {
	var metrics Metrics

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Sprintf("failed to open image: %v", err), metrics
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return false, "invalid format: only JPEG/PNG allowed", metrics
	}
	metrics.Format = format

	bounds := img.Bounds()
	metrics.Width = bounds.Dx()
	metrics.Height = bounds.Dy()

	if metrics.Width < g.thresholds.MinDimension || metrics.Height < g.thresholds.MinDimension {
		return false, fmt.Sprintf("image too small: minimum %dx%d, got %dx%d",
			g.thresholds.MinDimension, g.thresholds.MinDimension, metrics.Width, metrics.Height), metrics
	}

	if info, statErr := os.Stat(path); statErr == nil {
		metrics.FileSizeMB = float64(info.Size()) / (1024 * 1024)
	}
	if metrics.FileSizeMB > g.thresholds.MaxFileSizeMB {
		return false, fmt.Sprintf("file too large: maximum %.0fMB, got %.2fMB",
			g.thresholds.MaxFileSizeMB, metrics.FileSizeMB), metrics
	}

	gray := grayscale(img)
	metrics.BlurScore = laplacianVariance(gray, metrics.Width, metrics.Height)
	metrics.Brightness = mean(gray)
	metrics.Contrast = stddev(gray, metrics.Brightness)

	metrics.IsBlurry = metrics.BlurScore < g.thresholds.BlurThreshold
	metrics.IsTooDark = metrics.Brightness < g.thresholds.MinBrightness
	metrics.IsTooBright = metrics.Brightness > g.thresholds.MaxBrightness

	if metrics.IsBlurry {
		return false, "image is too blurry", metrics
	}
	if metrics.IsTooDark || metrics.IsTooBright {
		return false, "image lighting is poor", metrics
	}

	return true, "", metrics
}

// grayscale flattens the image into row-major luma values.
func grayscale(img image.Image) []float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	gray := make([]float64, 0, w*h)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma on 8-bit channels.
			gray = append(gray, (0.299*float64(r)+0.587*float64(g)+0.114*float64(b))/257.0)
		}
	}
	return gray
}

// laplacianVariance convolves the grayscale image with the 4-neighbor
// Laplacian kernel and returns the variance of the response. Sharp images
// have strong high-frequency content and therefore high variance.
func laplacianVariance(gray []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	responses := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := gray[y*w+x]
			response := gray[(y-1)*w+x] + gray[(y+1)*w+x] +
				gray[y*w+x-1] + gray[y*w+x+1] - 4*center
			responses = append(responses, response)
		}
	}
	m := mean(responses)
	return variance(responses, m)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

func stddev(values []float64, mean float64) float64 {
	return math.Sqrt(variance(values, mean))
}
