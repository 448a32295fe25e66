package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/information-sharing-networks/sri-gateway/internal/api"
	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
	"github.com/information-sharing-networks/sri-gateway/internal/logger"
)

// Workflow runs submissions and status queries. It is implemented by workflow.Workflow.
type Workflow interface {
	Submit(ctx context.Context, sub invoice.Submission) invoice.Result
	Status(ctx context.Context, accessKey string, env invoice.Environment) invoice.Result
}

// HandleEmit godoc
//
//	@Summary		Emit an invoice
//	@Description	Validates, signs and submits a factura to SRI and polls its authorization once.
//	@Description
//	@Description	The body is one of three shapes, chosen by the optional `format` member or by shape:
//	@Description	- **canonical**: the SRI factura structure (infoTributaria, infoFactura, detalles)
//	@Description	- **legacy**: company / buyer / items / totals
//	@Description	- **raw**: a pre-built unsigned comprobante in `xml_base64`
//	@Description
//	@Description	Requests are idempotent. The same content sent again under the same
//	@Description	idempotency key (or the same natural key) returns the stored result without contacting SRI.
//	@Description	A PROCESSING result is stored briefly so a later call polls SRI again.
//	@Description
//	@Description	Workflow outcomes, including ERROR, are returned with 200.
//	@Tags			Invoices
//	@Accept			json
//	@Produce		json
//	@Param			request	body		invoice.CanonicalInput	true	"Invoice submission"
//	@Success		200		{object}	invoice.Result			"Workflow outcome"
//	@Failure		400		{object}	invoice.Result			"Malformed or invalid request"
//	@Failure		413		{object}	invoice.Result			"Request body too large"
//	@Router			/api/v1/invoices/emit [post]
func HandleEmit(wf Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if !errors.As(err, &maxBytesErr) {
				err = api.WrapMalformedRequestError(err, "failed to read request body")
			}
			api.RespondWithError(w, r, err)
			return
		}

		in, err := invoice.DecodeInput(body)
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}
		logger.ContextWithLogAttrs(r.Context(), slog.String("format", string(in.Format())))

		sub, err := in.Submission()
		if err != nil {
			api.RespondWithError(w, r, err)
			return
		}

		result := wf.Submit(r.Context(), sub)
		reqLogger.Debug("emit handled", slog.String("status", string(result.Status)))

		api.RespondWithResult(w, result)
	}
}

// HandleStatus godoc
//
//	@Summary		Authorization status
//	@Description	Queries SRI for the authorization state of an access key.
//	@Description
//	@Description	Without `env` both environments are queried and the best answer wins
//	@Description	(AUTHORIZED, then PROCESSING, then NOT_AUTHORIZED).
//	@Description	Status results are not cached.
//	@Tags			Invoices
//	@Produce		json
//	@Param			accessKey	path		string		true	"49 digit access key"
//	@Param			env			query		string		false	"test or prod"	Enums(test, prod)
//	@Success		200			{object}	invoice.Result	"Authorization state"
//	@Failure		400			{object}	invoice.Result	"Invalid access key or environment"
//	@Router			/api/v1/invoices/{accessKey}/status [get]
func HandleStatus(wf Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessKey := chi.URLParam(r, "accessKey")
		if err := invoice.ValidateAccessKey(accessKey); err != nil {
			api.RespondWithError(w, r, api.NewInvalidParameterError("Clave de acceso inválida."))
			return
		}

		env, err := invoice.ParseEnvironment(r.URL.Query().Get("env"))
		if err != nil {
			api.RespondWithError(w, r, api.NewInvalidParameterError(err.Error()))
			return
		}

		api.RespondWithResult(w, wf.Status(r.Context(), accessKey, env))
	}
}
