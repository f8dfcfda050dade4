package authrouter

import (
	"errors"
	"io"
	"net/http"

	"toolgate/internal/oauthproxy"
)

const maxRegistrationBytes = 64 << 10

func (a *Router) serveRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST, OPTIONS")
		return
	}
	w.Header().Set("Cache-Control", "no-store")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRegistrationBytes))
	if err != nil {
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidClientMetadata, "Unable to read registration request"))
		return
	}

	metadata, err := oauthproxy.ParseClientMetadata(body)
	if err != nil {
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidClientMetadata, err.Error()))
		return
	}

	info, err := a.provider.RegisterClient(r.Context(), metadata)
	if errors.Is(err, oauthproxy.ErrRegistrationUnsupported) {
		writeError(w, newError(http.StatusBadRequest, ErrCodeInvalidRequest, "Dynamic client registration is not supported"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}
