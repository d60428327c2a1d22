package api

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/adept-starter/internal/apperr"
	"github.com/yanizio/adept-starter/internal/content"
	"github.com/yanizio/adept-starter/internal/logger"
	"github.com/yanizio/adept-starter/internal/media"
	"github.com/yanizio/adept-starter/internal/metrics"
)

// multipartSlack covers form fields and boundaries on top of the file cap.
const multipartSlack = 1 << 20

// attachmentView adds the public URL and a readable size.
type attachmentView struct {
	*content.Attachment
	URL         string `json:"url"`
	SizeDisplay string `json:"file_size_display"`
}

func (c *Component) attachmentView(a *content.Attachment) attachmentView {
	return attachmentView{Attachment: a, URL: c.d.Media.URL(a.FilePath), SizeDisplay: a.SizeDisplay()}
}

type imageView struct {
	*content.Image
	URL string `json:"url"`
}

func uuidParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound("Resource")
	}
	return id, nil
}

// receive stores the "file" part of a multipart request as kind.
func (c *Component) receive(w http.ResponseWriter, r *http.Request, kind media.Kind) (*media.Stored, error) {
	r.Body = http.MaxBytesReader(w, r.Body, c.d.Media.MaxBytes()+multipartSlack)
	if err := r.ParseMultipartForm(multipartSlack); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, apperr.TooLarge("Upload too large.")
		}
		return nil, apperr.Validation("Expected a multipart form.")
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, apperr.FieldErrors(map[string]string{"file": "This field is required."})
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	st, err := c.d.Media.Save(kind, hdr.Filename, file)
	switch {
	case errors.Is(err, media.ErrExtension):
		return nil, apperr.FieldErrors(map[string]string{"file": "File type not allowed."})
	case errors.Is(err, media.ErrEmpty):
		return nil, apperr.FieldErrors(map[string]string{"file": "The submitted file is empty."})
	case errors.Is(err, media.ErrTooLarge):
		return nil, apperr.TooLarge("File exceeds " + content.SizeDisplay(c.d.Media.MaxBytes()) + ".")
	case err != nil:
		return nil, err
	}
	return st, nil
}

// discard removes a stored file whose row could not be written.
func (c *Component) discard(r *http.Request, st *media.Stored) {
	if err := c.d.Media.Remove(st.Path); err != nil {
		logger.FromContext(r.Context()).Warn("orphan upload left behind",
			zap.String("path", st.Path), zap.Error(err))
	}
}

/*──────────────────────────── attachments ─────────────────────────────────*/

func (c *Component) attachmentUpload(w http.ResponseWriter, r *http.Request) {
	st, err := c.receive(w, r, media.Attachments)
	if err != nil {
		fail(w, r, err)
		return
	}
	u := user(r)
	public, _ := strconv.ParseBool(r.FormValue("is_public"))
	a := &content.Attachment{
		FilePath:         st.Path,
		OriginalFilename: st.OriginalName,
		FileSize:         st.Size,
		MIMEType:         st.MIME,
		Description:      r.FormValue("description"),
		UploadedBy:       &u.ID,
		IsPublic:         public,
	}
	if err := c.attachments.Create(r.Context(), a, c.d.Now()()); err != nil {
		c.discard(r, st)
		fail(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("attachment uploaded",
		zap.String("attachment_id", a.ID.String()), zap.Int64("size", a.FileSize))
	writeJSON(w, http.StatusCreated, c.attachmentView(a))
}

// attachmentScope hides other users' private files from non-staff.
func attachmentScope(r *http.Request) content.AttachmentFilter {
	u := user(r)
	if u.IsStaff {
		return content.AttachmentFilter{}
	}
	return content.AttachmentFilter{VisibleTo: u.ID}
}

func (c *Component) attachmentList(w http.ResponseWriter, r *http.Request) {
	f := attachmentScope(r)
	n, err := c.attachments.Count(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	pg := page(r, n)
	rows, err := c.attachments.List(r.Context(), f, pg.Limit(), pg.Offset())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := list[attachmentView]{Meta: pg.Meta(), Results: make([]attachmentView, 0, len(rows))}
	for i := range rows {
		out.Results = append(out.Results, c.attachmentView(&rows[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// visibleAttachment loads {id}.  Rows the caller may not view are
// reported as missing.
func (c *Component) visibleAttachment(r *http.Request, includeDeleted bool) (*content.Attachment, error) {
	id, err := uuidParam(r)
	if err != nil {
		return nil, err
	}
	a, err := c.attachments.Get(r.Context(), id, includeDeleted)
	if err != nil {
		return nil, err
	}
	if u := user(r); !a.CanView(u.ID, u.IsStaff) {
		return nil, apperr.NotFound("Attachment")
	}
	return a, nil
}

func (c *Component) attachmentGet(w http.ResponseWriter, r *http.Request) {
	a, err := c.visibleAttachment(r, false)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.attachmentView(a))
}

func (c *Component) attachmentDownload(w http.ResponseWriter, r *http.Request) {
	a, err := c.visibleAttachment(r, false)
	if err != nil {
		fail(w, r, err)
		return
	}
	f, err := c.d.Media.Open(a.FilePath)
	if err != nil {
		fail(w, r, apperr.NotFound("File"))
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := c.attachments.IncrementDownloads(r.Context(), a.ID); err != nil {
		fail(w, r, err)
		return
	}
	metrics.AttachmentDownloads.Inc()

	if a.MIMEType != "" {
		w.Header().Set("Content-Type", a.MIMEType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.OriginalFilename}))
	http.ServeContent(w, r, a.OriginalFilename, fi.ModTime(), f)
}

func (c *Component) attachmentDelete(w http.ResponseWriter, r *http.Request) {
	a, err := c.visibleAttachment(r, false)
	if err != nil {
		fail(w, r, err)
		return
	}
	u := user(r)
	if !a.CanModify(u.ID, u.IsStaff) {
		fail(w, r, apperr.Forbidden("Only the uploader may delete this file."))
		return
	}
	now := c.d.Now()()
	a.MarkDeleted(now, &u.ID)
	if err := c.attachments.SaveDeletion(r.Context(), a, now); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Component) attachmentRestore(w http.ResponseWriter, r *http.Request) {
	a, err := c.visibleAttachment(r, true)
	if err != nil {
		fail(w, r, err)
		return
	}
	a.Restore()
	if err := c.attachments.SaveDeletion(r.Context(), a, c.d.Now()()); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.attachmentView(a))
}

/*──────────────────────────── images ──────────────────────────────────────*/

func (c *Component) imageUpload(w http.ResponseWriter, r *http.Request) {
	st, err := c.receive(w, r, media.Images)
	if err != nil {
		fail(w, r, err)
		return
	}
	u := user(r)
	im := &content.Image{
		FilePath:   st.Path,
		Title:      r.FormValue("title"),
		AltText:    r.FormValue("alt_text"),
		Caption:    r.FormValue("caption"),
		UploadedBy: &u.ID,
	}
	if f, err := c.d.Media.Open(st.Path); err == nil {
		im.FillDimensions(f)
		_ = f.Close()
	}
	if err := c.images.Create(r.Context(), im, c.d.Now()()); err != nil {
		c.discard(r, st)
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, imageView{Image: im, URL: c.d.Media.URL(im.FilePath)})
}

func (c *Component) imageList(w http.ResponseWriter, r *http.Request) {
	n, err := c.images.Count(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	pg := page(r, n)
	rows, err := c.images.List(r.Context(), pg.Limit(), pg.Offset())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := list[imageView]{Meta: pg.Meta(), Results: make([]imageView, 0, len(rows))}
	for i := range rows {
		out.Results = append(out.Results, imageView{Image: &rows[i], URL: c.d.Media.URL(rows[i].FilePath)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *Component) imageGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	im, err := c.images.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, imageView{Image: im, URL: c.d.Media.URL(im.FilePath)})
}

func (c *Component) imageDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	im, err := c.images.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	u := user(r)
	if !u.IsStaff && (im.UploadedBy == nil || *im.UploadedBy != u.ID) {
		fail(w, r, apperr.Forbidden("Only the uploader may delete this image."))
		return
	}
	now := c.d.Now()()
	im.MarkDeleted(now, &u.ID)
	if err := c.images.SaveDeletion(r.Context(), im, now); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
