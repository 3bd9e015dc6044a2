package route

import (
	"errors"
	"invitation/src-server/guest"
	"invitation/src-server/hub"
	"invitation/src-server/model"
	"invitation/src-server/upload"
	"invitation/src-server/utils"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

const guestbookPageSize = 50

func Guest(muxer *http.ServeMux, as *utils.AppState) {
	muxer.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		page := as.LivePage.HTML(r.Context())
		if withGuestbook, err := guest.RenderGuestbook(page, as.Guests.Guestbook(r.Context(), guestbookPageSize)); err == nil {
			page = withGuestbook
		} else {
			slog.Warn("can't render guestbook into page", "error", err)
		}
		if raw := r.URL.Query().Get("photo"); raw != "" {
			if photo, err := strconv.Atoi(raw); err == nil {
				if withModal, err := guest.RenderGallery(page, photo); err == nil {
					page = withModal
				} else {
					slog.Warn("can't open gallery image", "error", err)
				}
			}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(page))
	})

	muxer.HandleFunc("GET /api/content", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, as.Content.Merged(r.Context()))
	})

	type RSVPReqBody struct {
		Response model.Response `json:"response"`
		*guest.Details
	}

	type RSVPRespBody struct {
		Record model.AttendeeRecord `json:"record"`
		guest.Saved
	}

	muxer.Handle("POST /api/rsvp", RateLimit(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody RSVPReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		rec, saved, err := as.Guests.RecordRSVP(r.Context(), reqBody.Response, reqBody.Details)
		switch {
		case errors.Is(err, guest.ErrInvalidResponse),
			errors.Is(err, guest.ErrDetailsRequired),
			errors.Is(err, guest.ErrInvalidPhone),
			errors.Is(err, guest.ErrInvalidInput):
			writeText(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			slog.Error("can't record rsvp", "error", err)
			writeText(w, http.StatusInternalServerError, "Can't save your response")
			return
		}
		// remote inserts reach the admin views through the realtime subscription
		if !saved.Remote {
			as.AdminHub.Broadcast(hub.MessageTypeRSVPNew, rec)
		}
		writeJSON(w, http.StatusCreated, RSVPRespBody{Record: rec, Saved: saved})
	}))

	muxer.HandleFunc("GET /api/guestbook", func(w http.ResponseWriter, r *http.Request) {
		limit := guestbookPageSize
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeText(w, http.StatusBadRequest, "limit must be a non-negative number")
				return
			}
			if n > 0 {
				limit = n
			}
		}
		writeJSON(w, http.StatusOK, as.Guests.Guestbook(r.Context(), limit))
	})

	type GuestbookReqBody struct {
		Name    string `json:"name"`
		Message string `json:"message"`
		Email   string `json:"email"`
	}

	type GuestbookRespBody struct {
		Message model.GuestbookMessage `json:"message"`
		guest.Saved
	}

	muxer.Handle("POST /api/guestbook", RateLimit(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody GuestbookReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		msg, saved, err := as.Guests.PostGuestbook(r.Context(), reqBody.Name, reqBody.Message, reqBody.Email)
		switch {
		case errors.Is(err, guest.ErrEmptyGuestbookField),
			errors.Is(err, guest.ErrNameTooLong),
			errors.Is(err, guest.ErrMessageTooLong):
			writeText(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			slog.Error("can't post guestbook message", "error", err)
			writeText(w, http.StatusInternalServerError, "Can't save your message")
			return
		}
		if !saved.Remote {
			as.Hub.Broadcast(hub.MessageTypeGuestbookNew, msg)
			as.AdminHub.Broadcast(hub.MessageTypeGuestbookNew, msg)
		}
		writeJSON(w, http.StatusCreated, GuestbookRespBody{Message: msg, Saved: saved})
	}))

	muxer.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		if _, err := hub.Upgrade(as.Hub, w, r, nil); err != nil {
			slog.Debug("can't upgrade guest websocket", "error", err)
		}
	})

	muxer.HandleFunc("GET "+upload.URLPrefix+"{path...}", func(w http.ResponseWriter, r *http.Request) {
		body, contentType, err := as.Uploads.Get(r.Context(), r.PathValue("path"))
		switch {
		case errors.Is(err, upload.ErrNotFound), errors.Is(err, upload.ErrInvalidKey):
			writeText(w, http.StatusNotFound, "Not found")
			return
		case err != nil:
			slog.Error("can't read upload", "path", r.PathValue("path"), "error", err)
			writeText(w, http.StatusInternalServerError, "Can't read file")
			return
		}
		defer body.Close()
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, body); err != nil {
			slog.Debug("upload copy interrupted", "error", err)
		}
	})
}
