package handlers

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Extensions accepted for media uploads, mirroring the image/video/audio/
// document families the chat UI can render.
var allowedExtensions = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true,
	".mp4": true, ".mov": true, ".avi": true,
	".pdf": true, ".doc": true, ".docx": true, ".txt": true,
	".mp3": true, ".wav": true, ".ogg": true, ".webm": true, ".m4a": true,
}

var allowedMIMEPrefixes = []string{"image/", "video/", "audio/"}

var allowedMIMETypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

type uploadResponse struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
}

// HandleUpload stores one multipart blob (field "media") and returns its
// public path. The stored name is unix-millis plus a random suffix plus the
// original extension, so concurrent uploads never collide.
func (s *Server) HandleUpload(uploadDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		r.Body = http.MaxBytesReader(w, r.Body, s.Config.Storage.UploadMaxBytes)
		file, header, err := r.FormFile("media")
		if err != nil {
			writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedExtensions[ext] {
			writeError(w, http.StatusBadRequest, "file type not allowed")
			return
		}

		// Sniff the actual content rather than trusting the extension.
		mtype, err := mimetype.DetectReader(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file")
			return
		}
		if !mimeAllowed(mtype.String()) {
			writeError(w, http.StatusBadRequest, "file type not allowed")
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read file")
			return
		}

		name := fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
		dstPath := filepath.Join(uploadDir, name)
		dst, err := os.Create(dstPath)
		if err != nil {
			s.Metrics.IncrementErrors()
			writeError(w, http.StatusInternalServerError, "failed to store file")
			return
		}
		defer dst.Close()

		size, err := io.Copy(dst, file)
		if err != nil {
			s.Metrics.IncrementErrors()
			os.Remove(dstPath)
			writeError(w, http.StatusInternalServerError, "failed to store file")
			return
		}

		s.Logger.Info("media uploaded", "name", name, "original", header.Filename, "size", size)
		writeJSON(w, http.StatusOK, &uploadResponse{
			Filename:     name,
			OriginalName: header.Filename,
			Size:         size,
			Path:         "/uploads/" + name,
		})
	}
}

func mimeAllowed(mime string) bool {
	// mimetype may append parameters (e.g. "text/plain; charset=utf-8").
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if allowedMIMETypes[mime] {
		return true
	}
	for _, prefix := range allowedMIMEPrefixes {
		if strings.HasPrefix(mime, prefix) {
			return true
		}
	}
	return false
}
