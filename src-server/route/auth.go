package route

import (
	"errors"
	"invitation/src-server/input"
	"invitation/src-server/model"
	"invitation/src-server/utils"
	"log/slog"
	"net/http"
	"time"
)

func Auth(muxer *http.ServeMux, as *utils.AppState) {
	// logout
	muxer.HandleFunc("DELETE /auth", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r)
		as.Sessions.Logout(r.Context(), session)
		as.Consoles.Remove(session.AdminID)
		clearSessionCookie(w)
		w.WriteHeader(http.StatusOK)
	}))

	type AuthReqBody struct {
		AdminID  string `json:"adminId" validate:"required,max=64"`
		Password string `json:"password" validate:"required,max=128"`
	}

	type AuthRespBody struct {
		AdminID   string    `json:"adminId"`
		LoginAt   time.Time `json:"loginAt"`
		ExpiresAt time.Time `json:"expiresAt"`
		Token     string    `json:"token,omitempty"`
	}

	// login
	muxer.Handle("POST /auth", RateLimit(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody AuthReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		reqBody.AdminID = input.Normalize(reqBody.AdminID)
		if err := input.Validate(&reqBody); err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}

		token, session, err := as.Sessions.Login(r.Context(), reqBody.AdminID, reqBody.Password)
		switch {
		case errors.Is(err, model.ErrInvalidCredentials):
			writeText(w, http.StatusUnauthorized, "Wrong admin id or password")
			return
		case err != nil:
			slog.Error("can't log admin in", "admin_id", reqBody.AdminID, "error", err)
			writeText(w, http.StatusInternalServerError, "Can't create session")
			return
		}

		respBody := AuthRespBody{
			AdminID:   session.AdminID,
			LoginAt:   session.LoginAt,
			ExpiresAt: session.LoginAt.Add(as.Sessions.TTL()),
		}
		// dev clients read the token from the body, everyone else gets the cookie
		if as.Config.IsDev() {
			respBody.Token = token
		}
		setSessionCookie(as, w, token)
		writeJSON(w, http.StatusOK, respBody)
	}))

	muxer.HandleFunc("GET /auth", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r)
		writeJSON(w, http.StatusOK, AuthRespBody{
			AdminID:   session.AdminID,
			LoginAt:   session.LoginAt,
			ExpiresAt: session.LoginAt.Add(as.Sessions.TTL()),
		})
	}))
}
