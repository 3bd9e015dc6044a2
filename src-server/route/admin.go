package route

import (
	"encoding/json"
	"errors"
	"invitation/src-server/admin"
	"invitation/src-server/hub"
	"invitation/src-server/model"
	"invitation/src-server/remote"
	"invitation/src-server/upload"
	"invitation/src-server/utils"
	"invitation/src-server/web"
	"io"
	"log/slog"
	"net/http"
	"time"
)

func console(as *utils.AppState, r *http.Request) *admin.Console {
	session, _ := SessionFrom(r)
	return as.Consoles.Get(session.AdminID)
}

// Admin serves the dashboard shell and its data API.
func Admin(muxer *http.ServeMux, as *utils.AppState) {
	// the shell is public, its data is not
	muxer.HandleFunc("GET /admin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(web.AdminHTML))
	})

	muxer.HandleFunc("GET /admin/api/section/{name}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		section := admin.Section(r.PathValue("name"))
		data, err := console(as, r).Navigator.Show(r.Context(), section)
		switch {
		case errors.Is(err, admin.ErrUnknownSection):
			writeText(w, http.StatusNotFound, "Unknown section")
			return
		case err != nil:
			slog.Error("can't load section", "section", section, "error", err)
			writeText(w, http.StatusInternalServerError, "Can't load section")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"section": section, "data": data})
	}))

	muxer.HandleFunc("GET /admin/api/stats", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, as.Dashboard.Stats(r.Context()))
	}))

	muxer.HandleFunc("GET /admin/api/export/{kind}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		loc := as.Config.GetLocation()
		now := time.Now().In(loc)
		since, err := admin.ParseSince(as.When, r.URL.Query().Get("since"), now)
		if err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}
		kind := admin.ExportKind(r.PathValue("kind"))
		table, err := as.Dashboard.Export(r.Context(), kind, since, console(as, r).Desk.Entries(r.Context()), loc)
		switch {
		case errors.Is(err, admin.ErrUnknownExport):
			writeText(w, http.StatusNotFound, "Unknown export")
			return
		case err != nil:
			slog.Error("can't build export", "kind", kind, "error", err)
			writeText(w, http.StatusInternalServerError, "Can't build export")
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+admin.ExportFileName(kind, now)+`"`)
		w.WriteHeader(http.StatusOK)
		if err := admin.ExportCSV(w, table); err != nil {
			slog.Warn("export interrupted", "kind", kind, "error", err)
		}
	}))

	muxer.HandleFunc("POST /admin/api/content", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var overrides model.ContentOverrides
		if !decodeBody(w, r, &overrides) {
			return
		}
		result, err := as.Content.Save(r.Context(), overrides)
		if err != nil {
			slog.Error("can't save content", "error", err)
			writeText(w, http.StatusInternalServerError, "Can't save content")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}))

	muxer.HandleFunc("DELETE /admin/api/content", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		result, err := as.Content.Reset(r.Context())
		if err != nil {
			slog.Error("can't reset content", "error", err)
			writeText(w, http.StatusInternalServerError, "Can't reset content")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}))

	muxer.HandleFunc("POST /admin/api/gallery", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, upload.MaxImageSize+1<<20)
		file, _, err := r.FormFile("image")
		if err != nil {
			writeText(w, http.StatusBadRequest, "Missing image")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, upload.MaxImageSize+1))
		if err != nil {
			writeText(w, http.StatusBadRequest, "Can't read image")
			return
		}
		url, err := upload.PutImage(r.Context(), as.Uploads, data)
		switch {
		case errors.Is(err, upload.ErrTooLarge):
			writeText(w, http.StatusRequestEntityTooLarge, "Image is larger than 10MB")
			return
		case errors.Is(err, upload.ErrNotImage):
			writeText(w, http.StatusBadRequest, "Only images can be uploaded")
			return
		case err != nil:
			slog.Error("can't store gallery image", "error", err)
			writeText(w, http.StatusInternalServerError, "Can't store image")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"url": url})
	}))

	muxer.HandleFunc("DELETE /admin/api/rsvp/{id}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		writeEditResult(w, as.Dashboard.DeleteRSVP(r.Context(), r.PathValue("id")))
	}))

	muxer.HandleFunc("POST /admin/api/guestbook/{id}/approve", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		reqBody := struct {
			Approved *bool `json:"approved"`
		}{}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&reqBody); err != nil && !errors.Is(err, io.EOF) {
			writeText(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		approved := reqBody.Approved == nil || *reqBody.Approved
		writeEditResult(w, as.Dashboard.SetGuestbookApproval(r.Context(), r.PathValue("id"), approved))
	}))

	muxer.HandleFunc("DELETE /admin/api/guestbook/{id}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		writeEditResult(w, as.Dashboard.DeleteGuestbook(r.Context(), r.PathValue("id")))
	}))

	muxer.HandleFunc("GET /admin/api/connection", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, as.Dashboard.Connection(r.Context()))
	}))

	muxer.HandleFunc("POST /admin/api/migrate", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		report, err := as.Dashboard.MigrateLocal(r.Context())
		switch {
		case errors.Is(err, remote.ErrUnavailable):
			writeText(w, http.StatusServiceUnavailable, "Remote store is not connected")
			return
		case err != nil:
			slog.Warn("migration incomplete", "error", err)
			writeJSON(w, http.StatusMultiStatus, report)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}))

	type AutoRefreshMsg struct {
		Enabled bool `json:"enabled"`
	}

	muxer.HandleFunc("GET /admin/ws", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		c := console(as, r)
		client, err := hub.Upgrade(as.AdminHub, w, r, func(client *hub.Client, msg hub.Message) {
			if msg.Type != hub.MessageTypeAutoRefresh {
				return
			}
			var toggle AutoRefreshMsg
			raw, _ := json.Marshal(msg.Data)
			if err := json.Unmarshal(raw, &toggle); err != nil {
				return
			}
			c.AutoRefresh.Toggle(as.Ctx, toggle.Enabled)
			client.Send(hub.MessageTypeAutoRefresh, AutoRefreshMsg{Enabled: c.AutoRefresh.Enabled()})
		})
		if err != nil {
			slog.Debug("can't upgrade admin websocket", "error", err)
			return
		}
		as.AdminClients.Add(c.AdminID, client)
		client.OnClose(func() {
			// the last socket of an admin stops their timer
			if as.AdminClients.Count(c.AdminID) == 0 {
				c.AutoRefresh.Toggle(as.Ctx, false)
			}
		})
	}))
}

func writeEditResult(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, admin.ErrNotFound):
		writeText(w, http.StatusNotFound, "Nothing to change, no-op")
	case err != nil:
		slog.Error("can't apply admin edit", "error", err)
		writeText(w, http.StatusInternalServerError, "Can't apply change")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
