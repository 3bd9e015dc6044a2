package route

import (
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"invitation/src-server/admin"
	"invitation/src-server/input"
	"invitation/src-server/model"
	"invitation/src-server/qr"
	"invitation/src-server/utils"
	"log/slog"
	"net/http"
	"strings"
)

const maxFrameBytes = 4 << 20

// Scan drives the check-in desk of the signed-in admin.
func Scan(muxer *http.ServeMux, as *utils.AppState) {
	muxer.HandleFunc("POST /admin/api/scan/start", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		state, err := console(as, r).StartScan(r.Context())
		if err != nil {
			slog.Warn("can't start scan", "error", err)
			writeJSON(w, http.StatusConflict, state)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}))

	// body is one camera frame, png or jpeg, either raw or as the
	// "frame" field of a multipart form
	muxer.HandleFunc("POST /admin/api/scan/frame", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFrameBytes)
		body := r.Body
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			file, _, err := r.FormFile("frame")
			if err != nil {
				writeText(w, http.StatusBadRequest, "Missing frame")
				return
			}
			defer file.Close()
			body = file
		}
		img, _, err := image.Decode(body)
		if err != nil {
			writeText(w, http.StatusBadRequest, "Frame is not a png or jpeg image")
			return
		}
		c := console(as, r)
		if err := c.PushFrame(img); errors.Is(err, admin.ErrNoScan) {
			writeText(w, http.StatusConflict, "No scan running")
			return
		}
		writeJSON(w, http.StatusAccepted, c.Scan())
	}))

	muxer.HandleFunc("POST /admin/api/scan/stop", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		c := console(as, r)
		c.StopScan()
		writeJSON(w, http.StatusOK, c.Scan())
	}))

	muxer.HandleFunc("GET /admin/api/scan", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, console(as, r).Scan())
	}))

	muxer.HandleFunc("POST /admin/api/scan/confirm", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		c := console(as, r)
		result, err := c.Desk.Confirm(r.Context())
		switch {
		case errors.Is(err, qr.ErrNoPending):
			writeText(w, http.StatusNotFound, "No scanned code to confirm, no-op")
			return
		case err != nil:
			slog.Error("can't confirm entry", "error", err)
			writeText(w, http.StatusInternalServerError, "Can't record entry")
			return
		}
		c.ClearScan()
		writeJSON(w, http.StatusCreated, result)
	}))

	muxer.HandleFunc("POST /admin/api/scan/reject", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		c := console(as, r)
		c.Desk.Reject()
		c.ClearScan()
		w.WriteHeader(http.StatusNoContent)
	}))

	type ManualEntryReqBody struct {
		Name  string `json:"name" validate:"required,max=20"`
		Phone string `json:"phone"`
		Email string `json:"email" validate:"omitempty,email"`
	}

	muxer.HandleFunc("POST /admin/api/entries", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody ManualEntryReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		reqBody.Name = input.Normalize(reqBody.Name)
		reqBody.Email = input.Normalize(reqBody.Email)
		if err := input.Validate(&reqBody); err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err := console(as, r).Desk.AddManual(r.Context(), model.AttendeeRecord{
			Name:  reqBody.Name,
			Phone: input.Normalize(reqBody.Phone),
			Email: reqBody.Email,
		})
		switch {
		case errors.Is(err, model.ErrNameRequired):
			writeText(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			slog.Error("can't add manual entry", "error", err)
			writeText(w, http.StatusInternalServerError, "Can't record entry")
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}))

	muxer.HandleFunc("DELETE /admin/api/entries/{id}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		err := console(as, r).Desk.Delete(r.Context(), r.PathValue("id"))
		switch {
		case errors.Is(err, qr.ErrNotFound):
			writeText(w, http.StatusNotFound, "No such entry, no-op")
		case err != nil:
			slog.Error("can't delete entry", "id", r.PathValue("id"), "error", err)
			writeText(w, http.StatusInternalServerError, "Can't delete entry")
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
}
