package works

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"portfolio-server/core"
	"portfolio-server/files"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// uploadsPrefix is the public URL prefix for stored image files.
const uploadsPrefix = "/uploads/"

// absoluteURL resolves a stored path like /uploads/x.jpg against the request
// host. Values that are already absolute URLs pass through unchanged.
func absoluteURL(r *http.Request, p string) string {
	if p == "" || strings.HasPrefix(p, "http") {
		return p
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, p)
}

// resolved returns a copy of the work with image and thumbnail as absolute URLs.
func resolved(r *http.Request, w *core.Work) *core.Work {
	out := *w
	out.Image = absoluteURL(r, w.Image)
	out.Thumbnail = absoluteURL(r, w.Thumbnail)
	return &out
}

// storedName extracts the file name from a stored /uploads/ path. Returns ""
// for absolute URLs, which reference files outside the managed directory.
func storedName(p string) string {
	if !strings.HasPrefix(p, uploadsPrefix) {
		return ""
	}
	return path.Base(p)
}

// removeWorkFiles deletes the image and thumbnail backing a work, skipping
// external URLs and the thumbnail when it aliases the image.
func removeWorkFiles(r *http.Request, fileStore files.Store, work *core.Work) {
	if name := storedName(work.Image); name != "" {
		if err := fileStore.Remove(r.Context(), name); err != nil {
			logrus.WithError(err).WithField("file", name).Warn("Failed to remove image file")
		}
	}
	if work.Thumbnail != work.Image {
		if name := storedName(work.Thumbnail); name != "" {
			if err := fileStore.Remove(r.Context(), name); err != nil {
				logrus.WithError(err).WithField("file", name).Warn("Failed to remove thumbnail file")
			}
		}
	}
}

// HandleList returns the full collection, newest first. Public route.
func HandleList(store core.WorkStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		works, err := store.List(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list works")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to load works"})
			return
		}

		out := make([]*core.Work, 0, len(works))
		for _, work := range works {
			out = append(out, resolved(r, work))
		}
		render.JSON(w, r, out)
	}
}

// HandleCreate accepts a multipart form with title, optional description and
// an image file. The file is stored first; when the metadata turns out to be
// invalid the stored file is removed again so nothing is orphaned.
func HandleCreate(store core.WorkStore, fileStore files.Store, thumbnails bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, files.MaxUploadSize+1<<20)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, map[string]string{"error": "File too large. Maximum size: 50MB"})
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Image file is required"})
			return
		}
		defer file.Close()

		stored, err := files.Accept(r.Context(), fileStore, file, header.Size, header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			switch {
			case errors.Is(err, core.ErrFileTooLarge):
				render.Status(r, http.StatusRequestEntityTooLarge)
				render.JSON(w, r, map[string]string{"error": "File too large. Maximum size: 50MB"})
			case errors.Is(err, core.ErrUnsupportedType):
				render.Status(r, http.StatusUnsupportedMediaType)
				render.JSON(w, r, map[string]string{"error": "Only images are allowed (JPG, PNG, GIF, WebP, BMP, TIFF)"})
			default:
				logrus.WithError(err).Error("Failed to store upload")
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, map[string]string{"error": "Failed to store file"})
			}
			return
		}

		title := r.FormValue("title")
		if strings.TrimSpace(title) == "" {
			if err := fileStore.Remove(r.Context(), stored.Name); err != nil {
				logrus.WithError(err).Warn("Failed to remove orphaned upload")
			}
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Title is required"})
			return
		}

		imagePath := uploadsPrefix + stored.Name
		thumbnailPath := imagePath
		if thumbnails {
			if _, err := file.Seek(0, io.SeekStart); err == nil {
				name, err := files.MakeThumbnail(r.Context(), fileStore, file, stored.Name)
				if err != nil {
					logrus.WithError(err).Warn("Thumbnail generation failed, using original image")
				} else {
					thumbnailPath = uploadsPrefix + name
				}
			}
		}

		work := core.NewWork(title, r.FormValue("description"), imagePath, thumbnailPath, stored.MimeType, stored.Size)
		if err := store.Create(r.Context(), work); err != nil {
			removeWorkFiles(r, fileStore, work)
			if errors.Is(err, core.ErrTitleRequired) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "Title is required"})
				return
			}
			logrus.WithError(err).Error("Failed to create work")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create work"})
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, resolved(r, work))
	}
}

// HandleUpdate replaces title and description of a work. The image cannot be
// replaced through this route.
func HandleUpdate(store core.WorkStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		work, err := store.Update(r.Context(), id, body.Title, body.Description)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrTitleRequired):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "Title is required"})
			case errors.Is(err, core.ErrNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Work not found"})
			default:
				logrus.WithError(err).WithField("work_id", id).Error("Failed to update work")
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, map[string]string{"error": "Failed to update work"})
			}
			return
		}

		render.JSON(w, r, resolved(r, work))
	}
}

// HandleDelete removes a work record and its backing files.
func HandleDelete(store core.WorkStore, fileStore files.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		work, err := store.Delete(r.Context(), id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Work not found"})
				return
			}
			logrus.WithError(err).WithField("work_id", id).Error("Failed to delete work")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to delete work"})
			return
		}

		removeWorkFiles(r, fileStore, work)

		render.JSON(w, r, map[string]any{
			"success":   true,
			"deletedId": id,
		})
	}
}

// HandleStats reports collection totals for the admin dashboard.
func HandleStats(store core.WorkStore, fileStore files.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		works, err := store.List(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list works for stats")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to load stats"})
			return
		}

		totalSize, err := fileStore.TotalSize(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to compute upload directory size")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to load stats"})
			return
		}

		lastWork := "No works yet"
		if len(works) > 0 {
			lastWork = works[0].Title
		}

		render.JSON(w, r, map[string]any{
			"totalWorks":  len(works),
			"totalSize":   totalSize,
			"totalSizeMB": fmt.Sprintf("%.2f", float64(totalSize)/1024/1024),
			"lastWork":    lastWork,
		})
	}
}

// HandleBackup streams the raw collection as a JSON file download.
func HandleBackup(store core.WorkStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		works, err := store.List(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list works for backup")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create backup"})
			return
		}

		w.Header().Set("Content-Disposition", "attachment; filename=portfolio-backup.json")
		render.JSON(w, r, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"count":     len(works),
			"works":     works,
		})
	}
}

// HandleServeFile streams a stored image, whatever backend holds it.
func HandleServeFile(fileStore files.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if name == "" {
			http.NotFound(w, r)
			return
		}

		f, err := fileStore.Open(r.Context(), name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		if _, err := io.Copy(w, f); err != nil {
			logrus.WithError(err).WithField("file", name).Warn("Failed to stream file")
		}
	}
}
