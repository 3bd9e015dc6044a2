package route

import (
	"context"
	"errors"
	"fmt"
	"invitation/src-server/model"
	"invitation/src-server/qr"
	"invitation/src-server/utils"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// attachmentSharer answers a share request with the PNG itself, for
// browsers that hand the download to their share sheet.
type attachmentSharer struct {
	w http.ResponseWriter
}

func (s attachmentSharer) Share(_ context.Context, fileName string, data []byte) error {
	writePNG(s.w, fileName, data)
	return nil
}

// textClipboard keeps the summary so it can be returned to the client.
type textClipboard struct {
	text string
}

func (c *textClipboard) WriteText(_ context.Context, text string) error {
	c.text = text
	return nil
}

func writePNG(w http.ResponseWriter, fileName string, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiFileName(fileName), url.PathEscape(fileName)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func asciiFileName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if c := name[i]; c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			out = append(out, c)
		}
	}
	return string(out)
}

func QR(muxer *http.ServeMux, as *utils.AppState) {
	type QRReqBody struct {
		Name           string `json:"name"`
		Phone          string `json:"phone"`
		Email          string `json:"email"`
		RequireContact bool   `json:"requireContact"`
	}

	type QRRespBody struct {
		Payload       model.QRPayload `json:"payload"`
		Encoder       string          `json:"encoder"`
		Degraded      bool            `json:"degraded"`
		SavedRemotely bool            `json:"savedRemotely"`
		FileName      string          `json:"fileName"`
		DownloadURL   string          `json:"downloadUrl"`
		ShareURL      string          `json:"shareUrl"`
	}

	muxer.Handle("POST /api/qr", RateLimit(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody QRReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		generated, err := as.Generator.Generate(r.Context(), model.AttendeeRecord{
			Name:  reqBody.Name,
			Phone: reqBody.Phone,
			Email: reqBody.Email,
		}, reqBody.RequireContact)
		switch {
		case errors.Is(err, model.ErrNameRequired), errors.Is(err, model.ErrContactRequired):
			writeText(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			slog.Error("can't generate qr code", "error", err)
			writeText(w, http.StatusInternalServerError, "Can't generate QR code")
			return
		}
		id := url.PathEscape(generated.Payload.ID)
		writeJSON(w, http.StatusCreated, QRRespBody{
			Payload:       generated.Payload,
			Encoder:       generated.Rendered.Encoder,
			Degraded:      generated.Rendered.Degraded,
			SavedRemotely: generated.SavedRemotely,
			FileName:      generated.FileName(),
			DownloadURL:   "/api/qr/" + id + "/download",
			ShareURL:      "/api/qr/" + id + "/share",
		})
	}))

	lookup := func(w http.ResponseWriter, r *http.Request) (*qr.Issued, bool) {
		issued, err := as.Generator.Lookup(r.Context(), r.PathValue("id"))
		switch {
		case errors.Is(err, qr.ErrUnknownCode):
			writeText(w, http.StatusNotFound, "QR code not found")
			return nil, false
		case err != nil:
			slog.Error("can't look up qr code", "qr_id", r.PathValue("id"), "error", err)
			writeText(w, http.StatusInternalServerError, "Can't load QR code")
			return nil, false
		}
		return issued, true
	}

	muxer.HandleFunc("GET /api/qr/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		issued, ok := lookup(w, r)
		if !ok {
			return
		}
		data, err := issued.PNG()
		if err != nil {
			slog.Error("can't encode qr png", "qr_id", issued.Payload.ID, "error", err)
			writeText(w, http.StatusInternalServerError, "Can't render QR code")
			return
		}
		writePNG(w, issued.FileName(), data)
	})

	type ShareRespBody struct {
		Outcome qr.ShareOutcome `json:"outcome"`
		Text    string          `json:"text"`
	}

	// ?native=1 when the browser can share files, else the text summary
	muxer.HandleFunc("GET /api/qr/{id}/share", func(w http.ResponseWriter, r *http.Request) {
		issued, ok := lookup(w, r)
		if !ok {
			return
		}
		var sharer qr.Sharer
		if r.URL.Query().Get("native") == "1" {
			sharer = attachmentSharer{w: w}
		}
		clipboard := &textClipboard{}
		outcome, err := issued.Share(r.Context(), sharer, clipboard)
		switch {
		case outcome == qr.SharedNatively:
			return
		case err != nil:
			slog.Error("can't share qr code", "qr_id", issued.Payload.ID, "error", err)
			writeText(w, http.StatusInternalServerError, "Can't share QR code")
			return
		}
		writeJSON(w, http.StatusOK, ShareRespBody{Outcome: outcome, Text: clipboard.text})
	})
}
