// Package workflow orchestrates a submission end to end:
//
//	key + fingerprint -> cache lookup -> validate -> certificate -> generate -> sign
//	-> submit -> interpret reception -> poll authorization once -> normalise -> cache -> return
//
// Submit and Status never return an error. Every path produces an invoice.Result,
// including recovered panics.
//
// There is no retry loop against SRI. A PROCESSING result is cached briefly and the
// caller's next request polls again.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/document"
	"github.com/information-sharing-networks/sri-gateway/internal/idempotency"
	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
	"github.com/information-sharing-networks/sri-gateway/internal/logger"
	"github.com/information-sharing-networks/sri-gateway/internal/signer"
	"github.com/information-sharing-networks/sri-gateway/internal/sri"
)

const processingMessage = "El comprobante está siendo procesado por el SRI."

// CertificateResolver returns base64 PKCS#12 material for a certificate reference.
type CertificateResolver interface {
	Resolve(ctx context.Context, cert *invoice.Certificate) (string, error)
}

// Dependencies are the collaborators of a Workflow.
type Dependencies struct {
	Cache        *idempotency.Cache
	Certificates CertificateResolver
	Generator    document.Generator
	Signer       signer.Signer
	Transport    sri.Transport
	Environments *sri.EnvironmentResolver

	// ConflictPolicy is config.KeyConflictPolicyResubmit or config.KeyConflictPolicyReject
	ConflictPolicy string

	// ProbeBothEnvironments makes Status query test and prod when no environment is given
	ProbeBothEnvironments bool
}

type Workflow struct {
	deps         Dependencies
	newAttemptID func() uuid.UUID
}

func New(deps Dependencies) *Workflow {
	if deps.ConflictPolicy == "" {
		deps.ConflictPolicy = config.KeyConflictPolicyResubmit
	}
	return &Workflow{deps: deps, newAttemptID: uuid.New}
}

// Submit runs the submission workflow for sub.
func (w *Workflow) Submit(ctx context.Context, sub invoice.Submission) (result invoice.Result) {
	log := logger.ContextRequestLogger(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("submission workflow panic", slog.Any("panic", r))
			result = invoice.ErrorResult(fmt.Sprintf("internal error: %v", r))
		}
	}()

	key, err := invoice.DeriveKey(sub)
	if err != nil {
		// without a key there is nothing to cache under
		return w.fail(ctx, "", "", invoice.Result{}, err)
	}
	log = log.With(slog.String("idempotency_key", key))
	ctx = logger.ContextWithLogger(ctx, log)
	logger.ContextWithLogAttrs(ctx, slog.String("idempotency_key", key))

	fingerprint, err := invoice.Fingerprint(sub)
	if err != nil {
		return w.fail(ctx, "", "", invoice.Result{}, err)
	}
	log.Debug("fingerprinted", slog.String("fingerprint", fingerprint))

	cached, hit, err := w.deps.Cache.Get(ctx, key)
	if err != nil {
		log.Warn("idempotency cache read failed, continuing without it", slog.String("error", err.Error()))
	}
	if hit && cached.Fingerprint == fingerprint {
		log.Info("idempotent replay",
			slog.String("status", string(cached.Result.Status)),
			slog.String("attempt_id", cached.AttemptID.String()),
		)
		logger.ContextWithLogAttrs(ctx, slog.String("cache", "hit"))
		return cached.Result.Normalized()
	}

	if err := invoice.Validate(sub); err != nil {
		if hit && cached.Result.Status != invoice.StatusError {
			// an invalid resubmission leaves a non-error outcome in place
			return w.fail(ctx, "", "", invoice.Result{PayloadHash: fingerprint}, err)
		}
		return w.fail(ctx, key, fingerprint, invoice.Result{PayloadHash: fingerprint}, err)
	}

	if hit {
		if w.deps.ConflictPolicy == config.KeyConflictPolicyReject && cached.Result.Status != invoice.StatusError {
			return w.fail(ctx, "", "", invoice.Result{PayloadHash: fingerprint}, fmt.Errorf("%w (key %s)", idempotency.ErrKeyConflict, key))
		}
		log.Warn("idempotency key reused with different content, submitting again",
			slog.String("previous_status", string(cached.Result.Status)),
		)
	}
	logger.ContextWithLogAttrs(ctx, slog.String("cache", "miss"))

	partial, err := w.submit(ctx, sub, key)
	partial.PayloadHash = fingerprint
	if err != nil {
		return w.fail(ctx, key, fingerprint, partial, err)
	}
	return w.finish(ctx, key, fingerprint, partial)
}

// submit performs the external part of the workflow for a validated submission. The returned result carries
// whatever was produced before a failure so error results can include it.
func (w *Workflow) submit(ctx context.Context, sub invoice.Submission, key string) (invoice.Result, error) {
	log := logger.ContextRequestLogger(ctx)
	res := invoice.Result{Messages: []string{}}

	material, err := w.deps.Certificates.Resolve(ctx, sub.Certificate)
	if err != nil {
		return res, err
	}
	log.Debug("certificate resolved")

	env := w.deps.Environments.ForSubmission(sub.Env, sub.InfoTributaria.Ambiente)
	res.Environment = env
	endpoints, err := w.deps.Environments.Endpoints(env)
	if err != nil {
		return res, err
	}

	unsigned, accessKey := sub.RawXML, sub.AccessKey
	if !sub.IsRaw() {
		generated, err := w.deps.Generator.Generate(sub.Document, invoice.DeriveNumericCode(key, sub.NumericCode))
		if err != nil {
			return res, err
		}
		unsigned, accessKey = generated.XML, generated.AccessKey
	}
	res.AccessKey = accessKey
	logger.ContextWithLogAttrs(ctx, slog.String("access_key", accessKey))

	signed, err := w.deps.Signer.Sign(ctx, unsigned, material, sub.Certificate.Password)
	if err != nil {
		return res, err
	}
	res.SignedDocument = signed
	log.Debug("document signed", slog.String("access_key", accessKey))

	reply, err := w.deps.Transport.Submit(ctx, endpoints.Reception, signed)
	if err != nil {
		return res, err
	}
	reception := sri.InterpretReception(reply)
	if !reception.Received() {
		return res, sri.NewRejectedError(reception.DiagnosticLines(reply))
	}
	log.Debug("document received", slog.String("access_key", accessKey))

	authReply, err := w.deps.Transport.CheckAuthorization(ctx, endpoints.Authorization, accessKey)
	if err != nil {
		return res, err
	}
	applyAuthorization(&res, sri.ParseAuthorization(authReply))
	return res, nil
}

// applyAuthorization copies a normalised authorization into res.
func applyAuthorization(res *invoice.Result, a sri.Authorization) {
	res.Status = a.Status()
	res.Messages = a.Messages()
	switch res.Status {
	case invoice.StatusAuthorized:
		res.Authorization = &invoice.Authorization{Number: a.Number, Date: a.Date}
		if a.Document != "" {
			res.AuthorizedDocument = []byte(a.Document)
		}
	case invoice.StatusProcessing:
		if len(res.Messages) == 0 {
			res.Messages = []string{processingMessage}
		}
	}
}

// finish caches a result the authority decided on and returns it.
func (w *Workflow) finish(ctx context.Context, key, fingerprint string, res invoice.Result) invoice.Result {
	res = res.Normalized()
	w.store(ctx, key, fingerprint, res)

	logger.ContextRequestLogger(ctx).Info("submission finished",
		slog.String("access_key", res.AccessKey),
		slog.String("status", string(res.Status)),
		slog.String("environment", string(res.Environment)),
	)
	logger.ContextWithLogAttrs(ctx, slog.String("status", string(res.Status)))
	return res
}

// fail turns err into an ERROR result. It is cached only for cacheable kinds
// and only when key is set.
func (w *Workflow) fail(ctx context.Context, key, fingerprint string, partial invoice.Result, err error) invoice.Result {
	kind := Classify(err)

	res := partial
	res.Status = invoice.StatusError
	res.Messages = errorMessages(err)
	res = res.Normalized()

	log := logger.ContextRequestLogger(ctx)
	log.Info("submission failed",
		slog.String("kind", string(kind)),
		slog.String("access_key", res.AccessKey),
		slog.String("error", err.Error()),
	)
	logger.ContextWithLogAttrs(ctx, slog.String("status", string(res.Status)), slog.String("error_kind", string(kind)))

	if key != "" && kind.Cacheable() {
		w.store(ctx, key, fingerprint, res)
	}
	return res
}

func (w *Workflow) store(ctx context.Context, key, fingerprint string, res invoice.Result) {
	outcome, err := w.deps.Cache.Put(ctx, key, idempotency.CachedOutcome{
		Result:      res,
		Fingerprint: fingerprint,
		AttemptID:   w.newAttemptID(),
	})
	if err != nil {
		logger.ContextRequestLogger(ctx).Warn("failed to cache outcome", slog.String("error", err.Error()))
		return
	}
	logger.ContextRequestLogger(ctx).Debug("outcome cached",
		slog.String("attempt_id", outcome.AttemptID.String()),
		slog.Duration("ttl", outcome.TTL()),
	)
}
