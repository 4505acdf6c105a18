package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/vbonduro/shotcoach/internal/flow"
	"github.com/vbonduro/shotcoach/internal/imagedata"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

var (
	errImageRequired = errors.New("please choose an image to upload")
	errImageTooLarge = errors.New("image is too large")
)

// readUpload reads the "image" form file and returns it as a data URI.
// The returned error message is safe to show to the user.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, int, error) {
	if r.ContentLength > s.maxUpload {
		return "", http.StatusRequestEntityTooLarge, s.tooLarge()
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "", http.StatusRequestEntityTooLarge, s.tooLarge()
		}
		return "", http.StatusBadRequest, errImageRequired
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return "", http.StatusBadRequest, errImageRequired
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "error", err)
		return "", http.StatusBadRequest, errImageRequired
	}
	if len(data) == 0 {
		return "", http.StatusBadRequest, errImageRequired
	}

	uri, err := imagedata.Encode(data, imagedata.DeclaredType(header.Header.Get("Content-Type"), data))
	if err != nil {
		return "", http.StatusBadRequest, err
	}
	return uri, http.StatusOK, nil
}

func (s *Server) tooLarge() error {
	return fmt.Errorf("%w (limit %s)", errImageTooLarge, s.uploadLimit())
}

func (s *Server) uploadLimit() string {
	return humanize.IBytes(uint64(s.maxUpload))
}

func (s *Server) handleSelectImage(w http.ResponseWriter, r *http.Request) {
	uri, status, err := s.readUpload(w, r)
	if err != nil {
		view := flow.ViewOf(flow.Empty{})
		if sess, ok := s.existingSession(r); ok {
			view = sess.Controller.View()
		}
		s.logger.Info("upload rejected", "status", status, "error", err)
		if err := s.renderView(w, status, view, err.Error()); err != nil {
			s.logger.Error("render page failed", "error", err)
		}
		return
	}

	sess := s.session(w, r)
	sess.Controller.SelectImage(uri)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
