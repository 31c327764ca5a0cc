package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/image/draw"

	"streamvault/config"
	"streamvault/models"
	"streamvault/services/streaminfo"
)

// ImageHandler serves content artwork variants. Default mode redirects to
// the object-storage key; proxy mode fetches the upstream image, resizes
// it locally and caches the result on disk.
type ImageHandler struct {
	streamService *streaminfo.Service
	cacheDir      string
	quality       int
	httpc         *http.Client

	mu         sync.Mutex
	inProgress map[string]chan struct{} // dedupe concurrent fetches per variant
}

func NewImageHandler(streamService *streaminfo.Service, images config.ImageSettings) *ImageHandler {
	quality := images.JPEGQuality
	if quality < 1 || quality > 100 {
		quality = 80
	}
	cacheDir := images.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "streamvault-images")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Printf("[image] could not create cache dir %s: %v", cacheDir, err)
	}
	return &ImageHandler{
		streamService: streamService,
		cacheDir:      cacheDir,
		quality:       quality,
		httpc:         &http.Client{Timeout: 30 * time.Second},
		inProgress:    make(map[string]chan struct{}),
	}
}

// Variant serves one image variant for a content id.
// GET /{size}/{imageId}
func (h *ImageHandler) Variant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	size, ok := models.ParseImageSize(vars["size"])
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("unknown size %q", vars["size"]),
			"sizes": []models.ImageSize{models.ImageSizeW200, models.ImageSizeW500, models.ImageSizeW1000, models.ImageSizeOriginal},
		})
		return
	}
	imageID := vars["imageId"]

	if h.streamService.ProxyEnabled() {
		h.proxyVariant(w, r, imageID, size)
		return
	}

	res, err := h.streamService.ResolveImage(r.Context(), imageID, size)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to resolve image",
		})
		return
	}
	if res.URL == "" {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": "no image available",
		})
		return
	}
	if res.Fallback {
		w.Header().Set("X-Image-Fallback", "true")
	}
	http.Redirect(w, r, res.URL, http.StatusFound)
}

// proxyVariant fetches the upstream image, scales it to the variant width
// and serves the cached JPEG.
func (h *ImageHandler) proxyVariant(w http.ResponseWriter, r *http.Request, imageID string, size models.ImageSize) {
	sourceURL, err := h.streamService.SourceImageURL(r.Context(), imageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Degrade to the redirect path's fallback resolution.
			res, rerr := h.streamService.ResolveImage(r.Context(), imageID, size)
			if rerr == nil && res.URL != "" {
				w.Header().Set("X-Image-Fallback", "true")
				http.Redirect(w, r, res.URL, http.StatusFound)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "no image available"})
		return
	}

	cacheKey := h.cacheKey(sourceURL, size)
	cachePath := filepath.Join(h.cacheDir, cacheKey+".jpg")

	if data, err := os.ReadFile(cachePath); err == nil {
		serveJPEG(w, data, "HIT")
		return
	}

	// Collapse concurrent requests for the same variant into one fetch.
	h.mu.Lock()
	if ch, exists := h.inProgress[cacheKey]; exists {
		h.mu.Unlock()
		<-ch
		if data, err := os.ReadFile(cachePath); err == nil {
			serveJPEG(w, data, "HIT")
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "failed to load image"})
		return
	}
	ch := make(chan struct{})
	h.inProgress[cacheKey] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.inProgress, cacheKey)
		close(ch)
		h.mu.Unlock()
	}()

	img, err := h.fetchAndDecode(sourceURL)
	if err != nil {
		log.Printf("[image] %s: %v", sourceURL, err)
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{"error": "failed to fetch image"})
		return
	}

	if width := size.Width(); width > 0 {
		img = scaleToWidth(img, width)
	}

	if err := h.writeCache(cachePath, img); err != nil {
		// Serve without caching rather than failing the request.
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("X-Cache", "MISS-NOCACHE")
		jpeg.Encode(w, img, &jpeg.Options{Quality: h.quality})
		return
	}

	data, err := os.ReadFile(cachePath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "failed to read cached image"})
		return
	}
	serveJPEG(w, data, "MISS")
}

func (h *ImageHandler) fetchAndDecode(sourceURL string) (image.Image, error) {
	resp, err := h.httpc.Get(sourceURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	return img, err
}

// scaleToWidth downscales keeping aspect ratio; images already narrower
// than the target pass through untouched.
func scaleToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	if width >= bounds.Dx() {
		return img
	}
	ratio := float64(width) / float64(bounds.Dx())
	height := int(float64(bounds.Dy()) * ratio)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func (h *ImageHandler) writeCache(cachePath string, img image.Image) error {
	tmpPath := cachePath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: h.quality}); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, cachePath)
}

func (h *ImageHandler) cacheKey(url string, size models.ImageSize) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", url, size, h.quality)))
	return hex.EncodeToString(hash[:16])
}

func serveJPEG(w http.ResponseWriter, data []byte, cacheState string) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=2592000")
	w.Header().Set("X-Cache", cacheState)
	w.Write(data)
}
